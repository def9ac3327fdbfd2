package orchestrator

import (
	"context"

	"wsm/internal/model"
)

type StatusRepoResult struct {
	Repo      string            `json:"repo"`
	Path      string            `json:"path"`
	Platform  model.Platform    `json:"platform"`
	State     model.BranchState `json:"state"`
	ErrorText string            `json:"error_text,omitempty"`
}

// Status inspects every member repository. Purely observational.
func (s *Service) Status(ctx context.Context) []StatusRepoResult {
	results := make([]StatusRepoResult, len(s.ws.Members))
	s.forEachRepo(func(index int, member model.MemberRepo) {
		result := StatusRepoResult{
			Repo:     member.Name,
			Path:     member.Path,
			Platform: member.Platform,
		}
		state, err := s.git.Inspect(ctx, member.Path)
		if err != nil {
			result.ErrorText = err.Error()
		} else {
			result.State = state
		}
		results[index] = result
	})
	return results
}

type CommitRepoResult struct {
	Repo          string `json:"repo"`
	Branch        string `json:"branch"`
	CommitSHA     string `json:"commit_sha,omitempty"`
	Pushed        bool   `json:"pushed"`
	Actor         string `json:"actor,omitempty"`
	SkippedReason string `json:"skipped_reason,omitempty"`
	ErrorText     string `json:"error_text,omitempty"`
}

func (r CommitRepoResult) Failed() bool { return r.ErrorText != "" }

type CommitOptions struct {
	Message string
	Actor   string
	DryRun  bool
}

// Commit stages, commits, and pushes every repository with uncommitted or
// unpushed work. A failure in one repository never aborts the batch.
func (s *Service) Commit(ctx context.Context, options CommitOptions) []CommitRepoResult {
	results := make([]CommitRepoResult, len(s.ws.Members))
	s.forEachRepo(func(index int, member model.MemberRepo) {
		results[index] = s.commitRepo(ctx, member, options)
	})
	return results
}

// commitRepo is the per-repository worker shared by commit and pr.
func (s *Service) commitRepo(ctx context.Context, member model.MemberRepo, options CommitOptions) CommitRepoResult {
	result := CommitRepoResult{Repo: member.Name}
	result.Actor = s.resolveActor(ctx, options.Actor, member.Path)

	state, err := s.git.Inspect(ctx, member.Path)
	if err != nil {
		result.ErrorText = err.Error()
		return result
	}
	if !state.Dirty() && state.Ahead == 0 {
		result.Branch = state.Branch
		result.SkippedReason = "clean working tree"
		return result
	}

	branch, err := s.EnsureBranch(ctx, member.Path, options.Message)
	if err != nil {
		result.ErrorText = err.Error()
		return result
	}
	result.Branch = branch
	if options.DryRun {
		result.SkippedReason = "dry run"
		return result
	}

	if state.Dirty() {
		if err := s.git.AddAll(ctx, member.Path); err != nil {
			result.ErrorText = err.Error()
			return result
		}
		sha, err := s.git.Commit(ctx, member.Path, options.Message)
		if err != nil {
			result.ErrorText = err.Error()
			return result
		}
		result.CommitSHA = sha
	}

	if err := s.pushWithUpstreamFallback(ctx, member.Path, branch); err != nil {
		result.ErrorText = err.Error()
		s.log.Error().Str("repo", member.Name).Str("branch", branch).Err(err).Msg("push failed")
		return result
	}
	result.Pushed = true
	s.log.Info().Str("repo", member.Name).Str("branch", branch).Str("commit", result.CommitSHA).Msg("committed and pushed")
	return result
}

// pushWithUpstreamFallback pushes and, on failure, retries exactly once with
// the upstream-setting variant.
func (s *Service) pushWithUpstreamFallback(ctx context.Context, repoPath string, branch string) error {
	if err := s.git.Push(ctx, repoPath, branch); err != nil {
		s.log.Warn().Str("path", repoPath).Str("branch", branch).Err(err).Msg("push rejected, retrying with --set-upstream")
		return s.git.PushSetUpstream(ctx, repoPath, branch)
	}
	return nil
}

type RepoOpResult struct {
	Repo      string `json:"repo"`
	Branch    string `json:"branch,omitempty"`
	Detail    string `json:"detail,omitempty"`
	ErrorText string `json:"error_text,omitempty"`
}

// Push pushes every repository's current branch.
func (s *Service) Push(ctx context.Context) []RepoOpResult {
	results := make([]RepoOpResult, len(s.ws.Members))
	s.forEachRepo(func(index int, member model.MemberRepo) {
		result := RepoOpResult{Repo: member.Name}
		branch, detached, err := s.git.CurrentBranch(ctx, member.Path)
		switch {
		case err != nil:
			result.ErrorText = err.Error()
		case detached:
			result.ErrorText = "detached head; nothing to push"
		default:
			result.Branch = branch
			if err := s.pushWithUpstreamFallback(ctx, member.Path, branch); err != nil {
				result.ErrorText = err.Error()
			} else {
				result.Detail = "pushed"
			}
		}
		results[index] = result
	})
	return results
}

// Pull pulls every repository.
func (s *Service) Pull(ctx context.Context) []RepoOpResult {
	results := make([]RepoOpResult, len(s.ws.Members))
	s.forEachRepo(func(index int, member model.MemberRepo) {
		result := RepoOpResult{Repo: member.Name}
		out, err := s.git.Pull(ctx, member.Path)
		if err != nil {
			result.ErrorText = err.Error()
		} else {
			result.Detail = firstLine(out)
		}
		results[index] = result
	})
	return results
}

// Checkout switches every repository to branch, creating a tracking branch
// when only the remote ref exists.
func (s *Service) Checkout(ctx context.Context, branch string) []RepoOpResult {
	return s.switchBranch(ctx, branch, false)
}

// Branch creates branch in every repository and switches to it.
func (s *Service) Branch(ctx context.Context, branch string) []RepoOpResult {
	return s.switchBranch(ctx, branch, true)
}

func (s *Service) switchBranch(ctx context.Context, branch string, create bool) []RepoOpResult {
	results := make([]RepoOpResult, len(s.ws.Members))
	s.forEachRepo(func(index int, member model.MemberRepo) {
		result := RepoOpResult{Repo: member.Name, Branch: branch}
		result.Detail, result.ErrorText = s.switchOneBranch(ctx, member.Path, branch, create)
		results[index] = result
	})
	return results
}

func (s *Service) switchOneBranch(ctx context.Context, repoPath string, branch string, create bool) (detail string, errorText string) {
	localExists, err := s.git.LocalBranchExists(ctx, repoPath, branch)
	if err != nil {
		return "", err.Error()
	}
	if localExists {
		if err := s.git.Checkout(ctx, repoPath, branch); err != nil {
			return "", err.Error()
		}
		return "checked out", ""
	}
	remoteExists, err := s.git.RemoteBranchExists(ctx, repoPath, branch)
	if err != nil {
		return "", err.Error()
	}
	if remoteExists {
		if err := s.git.CreateTrackingBranch(ctx, repoPath, branch); err != nil {
			return "", err.Error()
		}
		return "created tracking branch", ""
	}
	if !create {
		return "", "branch not found locally or on origin"
	}
	if err := s.git.CreateBranch(ctx, repoPath, branch); err != nil {
		return "", err.Error()
	}
	return "created branch", ""
}

func firstLine(text string) string {
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			return text[:i]
		}
	}
	return text
}
