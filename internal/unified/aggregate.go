package unified

import (
	"regexp"
	"strings"

	"wsm/internal/model"
)

var taskNamePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?:feature|bugfix|hotfix)/([A-Z]+-\d+)`),
	regexp.MustCompile(`^(?:feature|bugfix|hotfix)/(\d+)`),
	regexp.MustCompile(`^([A-Z]+-\d+)`),
}

// ExtractTaskName pulls the task identifier from a branch name, trying the
// ticket-prefixed forms first and a bare leading ticket last.
func ExtractTaskName(branch string) string {
	for _, pattern := range taskNamePatterns {
		matches := pattern.FindStringSubmatch(branch)
		if len(matches) == 2 {
			return matches[1]
		}
	}
	return ""
}

// Dedupe drops entries whose web_url was already seen, preserving order.
func Dedupe(prs []PREntry) []PREntry {
	seen := map[string]struct{}{}
	out := make([]PREntry, 0, len(prs))
	for _, pr := range prs {
		if _, ok := seen[pr.WebURL]; ok {
			continue
		}
		seen[pr.WebURL] = struct{}{}
		out = append(out, pr)
	}
	return out
}

// FindTask locates the task group matching taskName and returns it with its
// PR list deduplicated.
func FindTask(entries []TaskEntry, taskName string) (TaskEntry, bool) {
	for _, entry := range entries {
		if strings.EqualFold(entry.TaskName, taskName) {
			entry.PRs = Dedupe(entry.PRs)
			return entry, true
		}
	}
	return TaskEntry{}, false
}

// MapPipelineStatus folds a platform pipeline string into the display enum.
func MapPipelineStatus(status string) model.PipelineStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "success":
		return model.PipelineSuccess
	case "failed", "failure", "error":
		return model.PipelineFailed
	case "running":
		return model.PipelineRunning
	case "pending", "created", "waiting_for_resource":
		return model.PipelinePending
	case "", "none":
		return model.PipelineNone
	default:
		return model.PipelineUnknown
	}
}

// FullyApproved is the logical AND over all member approvals.
func FullyApproved(statuses []model.ApprovalStatus) bool {
	if len(statuses) == 0 {
		return false
	}
	for _, status := range statuses {
		if !status.Approved {
			return false
		}
	}
	return true
}

// RollupState folds member PR states into one task state: merged or closed
// only when every member agrees, open otherwise.
func RollupState(prs []PREntry) string {
	if len(prs) == 0 {
		return "open"
	}
	allMerged := true
	allClosed := true
	for _, pr := range prs {
		if !strings.EqualFold(pr.State, "merged") {
			allMerged = false
		}
		if !strings.EqualFold(pr.State, "closed") {
			allClosed = false
		}
	}
	switch {
	case allMerged:
		return "merged"
	case allClosed:
		return "closed"
	default:
		return "open"
	}
}
