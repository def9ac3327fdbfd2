package unified

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"wsm/internal/model"
)

// DefaultPollInterval is how often the watch loop refreshes.
const DefaultPollInterval = 30 * time.Second

// Snapshot is one observation of a task's state.
type Snapshot struct {
	Task          TaskEntry
	Statuses      []model.ApprovalStatus
	FullyApproved bool
	State         string
	ObservedAt    time.Time
	Err           error
}

// Poller periodically re-fetches a task from the backend and re-checks
// approvals against the platforms.
type Poller struct {
	backend  *Backend
	checker  *Checker
	repoURLs []string
	interval time.Duration
	log      zerolog.Logger
}

func NewPoller(backend *Backend, checker *Checker, repoURLs []string, interval time.Duration, log zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		backend:  backend,
		checker:  checker,
		repoURLs: repoURLs,
		interval: interval,
		log:      log,
	}
}

// Observe takes a single snapshot of the task. A backend or lookup failure is
// reported in the snapshot's Err, not returned, so a watch loop can keep
// running through transient outages.
func (p *Poller) Observe(ctx context.Context, taskName string) Snapshot {
	snap := Snapshot{ObservedAt: time.Now()}

	entries, err := p.backend.Unified(ctx, p.repoURLs)
	if err != nil {
		snap.Err = err
		return snap
	}
	task, ok := FindTask(entries, taskName)
	if !ok {
		snap.Err = errTaskNotFound(taskName)
		return snap
	}
	snap.Task = task
	snap.Statuses = p.checker.Check(ctx, task)
	snap.FullyApproved = FullyApproved(snap.Statuses)
	snap.State = RollupState(task.PRs)
	return snap
}

// Watch emits a snapshot immediately and then on every tick until the context
// is cancelled. The channel is closed on exit.
func (p *Poller) Watch(ctx context.Context, taskName string) <-chan Snapshot {
	out := make(chan Snapshot, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		out <- p.Observe(ctx, taskName)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case out <- p.Observe(ctx, taskName):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

type errTaskNotFound string

func (e errTaskNotFound) Error() string {
	return "task " + string(e) + " not found in unified list"
}
