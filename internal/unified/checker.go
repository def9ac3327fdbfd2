package unified

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"wsm/internal/forge"
	"wsm/internal/model"
)

// ClientFactory returns the platform client for a request, or nil when the
// platform has no configured client.
type ClientFactory func(platform model.Platform) forge.Client

// Checker resolves approval and pipeline state for the members of a task by
// querying the platform APIs directly.
type Checker struct {
	clients     ClientFactory
	username    string
	maxParallel int
	log         zerolog.Logger
}

func NewChecker(clients ClientFactory, username string, maxParallel int, log zerolog.Logger) *Checker {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Checker{
		clients:     clients,
		username:    username,
		maxParallel: maxParallel,
		log:         log,
	}
}

// Check queries every PR of the task concurrently, bounded by maxParallel.
// A failed or unroutable query yields approved=false with unknown pipeline;
// it never fails the whole check.
func (c *Checker) Check(ctx context.Context, task TaskEntry) []model.ApprovalStatus {
	prs := Dedupe(task.PRs)
	statuses := make([]model.ApprovalStatus, len(prs))

	sem := make(chan struct{}, c.maxParallel)
	var wg sync.WaitGroup
	for i, pr := range prs {
		wg.Add(1)
		go func(i int, pr PREntry) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			statuses[i] = c.checkOne(ctx, pr)
		}(i, pr)
	}
	wg.Wait()
	return statuses
}

func (c *Checker) checkOne(ctx context.Context, pr PREntry) model.ApprovalStatus {
	status := model.ApprovalStatus{
		Record: model.PullRequestRecord{
			Repo:     pr.RepositoryName,
			URL:      pr.WebURL,
			Number:   pr.IID,
			Platform: forge.Resolve(pr.WebURL, model.PlatformUnknown),
		},
		Approved: false,
		Pipeline: MapPipelineStatus(pr.PipelineStatus),
	}

	client := c.clients(status.Record.Platform)
	if client == nil {
		c.log.Warn().Str("url", pr.WebURL).Msg("no client for platform, treating as unapproved")
		status.Pipeline = model.PipelineUnknown
		return status
	}

	approved, err := client.Approved(ctx, pr.WebURL, c.username)
	if err != nil {
		c.log.Warn().Err(err).Str("url", pr.WebURL).Msg("approval check failed")
		status.Pipeline = model.PipelineUnknown
		return status
	}
	status.Approved = approved
	return status
}
