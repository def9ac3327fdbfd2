package gitx

import (
	"context"
	"strings"

	"wsm/internal/model"
)

// Status parses `git status --porcelain` into typed file changes.
func (r *Runner) Status(ctx context.Context, dir string) ([]model.FileChange, error) {
	out, err := r.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	lines := strings.Split(out, "\n")
	changes := make([]model.FileChange, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		changes = append(changes, parseStatusLine(line))
	}
	return changes, nil
}

func (r *Runner) HasChanges(ctx context.Context, dir string) (bool, error) {
	changes, err := r.Status(ctx, dir)
	if err != nil {
		return false, err
	}
	return len(changes) > 0, nil
}

// parseStatusLine classifies one short-status line. Unrecognized codes map to
// ChangeOther rather than failing.
func parseStatusLine(line string) model.FileChange {
	code := line
	if len(code) > 2 {
		code = line[:2]
	}
	path := parseStatusPath(line)
	return model.FileChange{
		Path: path,
		Kind: classifyStatusCode(code),
	}
}

func classifyStatusCode(code string) model.ChangeKind {
	if code == "??" {
		return model.ChangeUntracked
	}
	for _, c := range []byte(code) {
		switch c {
		case 'M':
			return model.ChangeModified
		case 'A':
			return model.ChangeAdded
		case 'D':
			return model.ChangeDeleted
		case 'R':
			return model.ChangeRenamed
		case 'C':
			return model.ChangeCopied
		case ' ':
		}
	}
	return model.ChangeOther
}

// parseStatusPath extracts the path from a short-status line, keeping the
// destination of a rename ("old -> new").
func parseStatusPath(line string) string {
	if len(line) < 4 {
		return ""
	}
	path := strings.TrimSpace(line[3:])
	if idx := strings.Index(path, " -> "); idx >= 0 {
		path = path[idx+len(" -> "):]
	}
	return strings.Trim(path, `"`)
}

func Summarize(changes []model.FileChange) model.ChangeSummary {
	summary := model.ChangeSummary{}
	for _, change := range changes {
		switch change.Kind {
		case model.ChangeModified:
			summary.Modified++
		case model.ChangeAdded:
			summary.Added++
		case model.ChangeDeleted:
			summary.Deleted++
		case model.ChangeRenamed:
			summary.Renamed++
		case model.ChangeCopied:
			summary.Copied++
		case model.ChangeUntracked:
			summary.Untracked++
		default:
			summary.Other++
		}
	}
	return summary
}

// Inspect recomputes the full branch state for one repository.
func (r *Runner) Inspect(ctx context.Context, dir string) (model.BranchState, error) {
	state := model.BranchState{}
	branch, detached, err := r.CurrentBranch(ctx, dir)
	if err != nil {
		return state, err
	}
	state.Branch = branch
	state.Detached = detached
	if detached {
		state.Branch = "detached"
	}

	changes, err := r.Status(ctx, dir)
	if err != nil {
		return state, err
	}
	state.Changes = changes
	state.Summary = Summarize(changes)

	if detached {
		return state, nil
	}
	upstream, err := r.Upstream(ctx, dir, branch)
	if err != nil {
		return state, err
	}
	if upstream == "" {
		return state, nil
	}
	state.Upstream = upstream
	ahead, behind, err := r.AheadBehind(ctx, dir, branch, upstream)
	if err != nil {
		return state, err
	}
	state.Ahead = ahead
	state.Behind = behind
	return state, nil
}
