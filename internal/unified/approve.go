package unified

import (
	"context"
	"fmt"
	"time"

	"github.com/Rican7/retry"
	"github.com/Rican7/retry/strategy"
	"github.com/rs/zerolog"
)

// ApproveOutcome reports the result of a bulk approval. Converged is false
// when the backend accepted the request but the platforms never reported all
// members approved within the re-poll budget.
type ApproveOutcome struct {
	TaskName  string
	Requested int
	Converged bool
	Statuses  []Snapshot
}

// Approver submits a bulk approval and waits, with bounded retries, for the
// platforms to reflect it.
type Approver struct {
	backend    *Backend
	poller     *Poller
	settleWait time.Duration
	pollWait   time.Duration
	maxPolls   uint
	log        zerolog.Logger
}

func NewApprover(backend *Backend, poller *Poller, log zerolog.Logger) *Approver {
	return &Approver{
		backend:    backend,
		poller:     poller,
		settleWait: 2 * time.Second,
		pollWait:   3 * time.Second,
		maxPolls:   5,
		log:        log,
	}
}

// BulkApprove approves every member request of the task through the backend,
// then re-polls until either all members show approved or the retry budget is
// spent. A non-converged outcome is not an error: platform approval state can
// lag the write.
func (a *Approver) BulkApprove(ctx context.Context, taskName string, repoURLs []string) (ApproveOutcome, error) {
	outcome := ApproveOutcome{TaskName: taskName, Requested: len(repoURLs)}

	if err := a.backend.Approve(ctx, taskName, repoURLs); err != nil {
		return outcome, fmt.Errorf("bulk approve task %s: %w", taskName, err)
	}
	a.log.Info().Str("task", taskName).Msg("approval submitted, waiting for platforms to settle")

	select {
	case <-ctx.Done():
		return outcome, ctx.Err()
	case <-time.After(a.settleWait):
	}

	err := retry.Retry(func(attempt uint) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		snap := a.poller.Observe(ctx, taskName)
		outcome.Statuses = append(outcome.Statuses, snap)
		if snap.Err != nil {
			a.log.Warn().Err(snap.Err).Uint("attempt", attempt).Msg("convergence poll failed")
			return snap.Err
		}
		if !snap.FullyApproved {
			return fmt.Errorf("task %s not fully approved yet", taskName)
		}
		outcome.Converged = true
		return nil
	}, strategy.Limit(a.maxPolls), strategy.Wait(a.pollWait))

	if err != nil && ctx.Err() != nil {
		return outcome, ctx.Err()
	}
	if !outcome.Converged {
		a.log.Warn().Str("task", taskName).Msg("approval submitted but platforms did not converge in time")
	}
	return outcome, nil
}
