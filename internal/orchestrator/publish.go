package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"wsm/internal/forge"
	"wsm/internal/model"
)

type PublishOptions struct {
	Title       string
	Description string
	Actor       string
	DryRun      bool
}

type PublishRepoResult struct {
	Repo               string         `json:"repo"`
	Platform           model.Platform `json:"platform"`
	SourceBranch       string         `json:"source_branch,omitempty"`
	TargetBranch       string         `json:"target_branch,omitempty"`
	URL                string         `json:"url,omitempty"`
	Number             int            `json:"number,omitempty"`
	DescriptionUpdated bool           `json:"description_updated"`
	TagCreated         bool           `json:"tag_created"`
	SkippedReason      string         `json:"skipped_reason,omitempty"`
	ErrorText          string         `json:"error_text,omitempty"`
}

type PublishResult struct {
	TaskName string                    `json:"task_name,omitempty"`
	Tag      string                    `json:"tag,omitempty"`
	Commits  []CommitRepoResult        `json:"commits"`
	Repos    []PublishRepoResult       `json:"repos"`
	Records  []model.PullRequestRecord `json:"records"`
}

// OpenPullRequests runs the full chain: commit dirty repositories, push,
// publish a request per repository with real changes, then cross-link the
// created requests via description updates and a shared annotated tag.
func (s *Service) OpenPullRequests(ctx context.Context, options PublishOptions) PublishResult {
	result := PublishResult{}
	result.Commits = s.Commit(ctx, CommitOptions{
		Message: options.Title,
		Actor:   options.Actor,
		DryRun:  options.DryRun,
	})

	result.Repos = make([]PublishRepoResult, len(s.ws.Members))
	s.forEachRepo(func(index int, member model.MemberRepo) {
		result.Repos[index] = s.publishRepo(ctx, member, result.Commits[index], options)
	})

	for _, repo := range result.Repos {
		if repo.URL == "" {
			continue
		}
		result.Records = append(result.Records, model.PullRequestRecord{
			Repo:         repo.Repo,
			SourceBranch: repo.SourceBranch,
			TargetBranch: repo.TargetBranch,
			Platform:     repo.Platform,
			URL:          repo.URL,
			Number:       repo.Number,
			CreatedAt:    s.now(),
		})
	}
	if len(result.Records) == 0 {
		return result
	}
	result.TaskName = ExtractTaskName(result.Records[0].SourceBranch)

	s.crossLink(ctx, options.Description, &result)
	return result
}

func (s *Service) publishRepo(ctx context.Context, member model.MemberRepo, commit CommitRepoResult, options PublishOptions) PublishRepoResult {
	result := PublishRepoResult{
		Repo:     member.Name,
		Platform: member.Platform,
	}
	if commit.Failed() {
		result.SkippedReason = "commit/push failed"
		return result
	}
	if commit.Branch == "" {
		result.SkippedReason = "no branch resolved"
		return result
	}
	result.SourceBranch = commit.Branch
	result.TargetBranch = s.cfg.Git.BaseBranch
	if commit.Branch == result.TargetBranch {
		result.SkippedReason = "already on target branch"
		return result
	}
	if options.DryRun {
		result.SkippedReason = "dry run"
		return result
	}

	// Idempotence guard: no content difference against the fetched remote
	// target means nothing to request.
	if err := s.git.Fetch(ctx, member.Path, "origin"); err != nil {
		result.ErrorText = err.Error()
		return result
	}
	different, err := s.git.HasDiff(ctx, member.Path, "origin/"+result.TargetBranch, result.SourceBranch)
	if err != nil {
		result.ErrorText = err.Error()
		return result
	}
	if !different {
		result.SkippedReason = "no difference against target branch"
		return result
	}

	client := s.clients(member.Platform)
	if client == nil {
		result.SkippedReason = fmt.Sprintf("no client for platform %s", member.Platform)
		return result
	}
	created, err := client.Create(ctx, member.RemoteURL, forge.CreateOptions{
		Title:        options.Title,
		Body:         options.Description,
		SourceBranch: result.SourceBranch,
		TargetBranch: result.TargetBranch,
	})
	if err != nil {
		result.ErrorText = err.Error()
		s.log.Error().Str("repo", member.Name).Err(err).Msg("publish failed")
		return result
	}
	result.URL = created.URL
	result.Number = created.Number
	s.log.Info().Str("repo", member.Name).Str("url", created.URL).Msg("request created")
	return result
}

// crossLink appends a summary of every created request to each request's
// description and stamps a shared annotated tag into each affected
// repository. Tag and update failures are logged, never fatal.
func (s *Service) crossLink(ctx context.Context, description string, result *PublishResult) {
	summary := buildCrossLinkSummary(result.Records)
	body := strings.TrimSpace(description)
	if body != "" {
		body += "\n\n"
	}
	body += summary

	tagName := s.crossLinkTagName(s.now())
	result.Tag = tagName
	tagMessage := summary + "\n\nwsm invocation " + s.invocationID

	byRepo := map[string]int{}
	for i, repo := range result.Repos {
		byRepo[repo.Repo] = i
	}
	members := map[string]model.MemberRepo{}
	for _, member := range s.ws.Members {
		members[member.Name] = member
	}

	done := make(chan struct{}, len(result.Records))
	for _, record := range result.Records {
		go func(record model.PullRequestRecord) {
			defer func() { done <- struct{}{} }()
			index := byRepo[record.Repo]
			member := members[record.Repo]

			client := s.clients(record.Platform)
			if client == nil {
				return
			}
			if err := client.UpdateDescription(ctx, record.URL, body); err != nil {
				s.log.Warn().Str("repo", record.Repo).Err(err).Msg("description update failed; cross-link skipped for entry")
			} else {
				result.Repos[index].DescriptionUpdated = true
			}

			if err := s.git.CreateAnnotatedTag(ctx, member.Path, tagName, tagMessage); err != nil {
				s.log.Warn().Str("repo", record.Repo).Str("tag", tagName).Err(err).Msg("tag creation failed")
				return
			}
			if err := s.git.PushTag(ctx, member.Path, tagName); err != nil {
				s.log.Warn().Str("repo", record.Repo).Str("tag", tagName).Err(err).Msg("tag push failed")
				return
			}
			result.Repos[index].TagCreated = true
		}(record)
	}
	for range result.Records {
		<-done
	}
}

func buildCrossLinkSummary(records []model.PullRequestRecord) string {
	var b strings.Builder
	b.WriteString("## Linked requests\n\n")
	for _, record := range records {
		fmt.Fprintf(&b, "- %s: %s\n", record.Repo, record.URL)
	}
	return strings.TrimSpace(b.String())
}
