package unified

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wsm/internal/model"
)

func TestExtractTaskName(t *testing.T) {
	cases := []struct {
		branch string
		want   string
	}{
		{"feature/ABC-123", "ABC-123"},
		{"feature/ABC-123-login-fix", "ABC-123"},
		{"bugfix/PROJ-9", "PROJ-9"},
		{"hotfix/42-patch", "42"},
		{"ABC-123-direct", "ABC-123"},
		{"main", ""},
		{"feature/lowercase-1", ""},
		{"release/ABC-123", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractTaskName(tc.branch), "branch %q", tc.branch)
	}
}

func TestDedupePreservesOrderAndDropsRepeats(t *testing.T) {
	prs := []PREntry{
		{WebURL: "https://github.com/acme/api/pull/1", RepositoryName: "api"},
		{WebURL: "https://gitlab.example.com/acme/web/-/merge_requests/2", RepositoryName: "web"},
		{WebURL: "https://github.com/acme/api/pull/1", RepositoryName: "api"},
	}
	out := Dedupe(prs)
	assert.Len(t, out, 2)
	assert.Equal(t, "api", out[0].RepositoryName)
	assert.Equal(t, "web", out[1].RepositoryName)
	assert.LessOrEqual(t, len(out), len(prs))
}

func TestFindTaskDeduplicatesMembers(t *testing.T) {
	entries := []TaskEntry{
		{TaskName: "OTHER-1"},
		{TaskName: "ABC-123", PRs: []PREntry{
			{WebURL: "https://github.com/acme/api/pull/1"},
			{WebURL: "https://github.com/acme/api/pull/1"},
		}},
	}
	task, ok := FindTask(entries, "abc-123")
	assert.True(t, ok)
	assert.Len(t, task.PRs, 1)

	_, ok = FindTask(entries, "MISSING-9")
	assert.False(t, ok)
}

func TestMapPipelineStatus(t *testing.T) {
	assert.Equal(t, model.PipelineSuccess, MapPipelineStatus("success"))
	assert.Equal(t, model.PipelineFailed, MapPipelineStatus("FAILED"))
	assert.Equal(t, model.PipelineFailed, MapPipelineStatus("failure"))
	assert.Equal(t, model.PipelineRunning, MapPipelineStatus("running"))
	assert.Equal(t, model.PipelinePending, MapPipelineStatus("created"))
	assert.Equal(t, model.PipelineNone, MapPipelineStatus(""))
	assert.Equal(t, model.PipelineUnknown, MapPipelineStatus("manual"))
}

func TestFullyApproved(t *testing.T) {
	assert.False(t, FullyApproved(nil))
	assert.False(t, FullyApproved([]model.ApprovalStatus{
		{Approved: true},
		{Approved: false},
	}))
	assert.True(t, FullyApproved([]model.ApprovalStatus{
		{Approved: true},
		{Approved: true},
	}))
}

func TestRollupState(t *testing.T) {
	assert.Equal(t, "open", RollupState(nil))
	assert.Equal(t, "merged", RollupState([]PREntry{{State: "merged"}, {State: "merged"}}))
	assert.Equal(t, "closed", RollupState([]PREntry{{State: "closed"}, {State: "closed"}}))
	assert.Equal(t, "open", RollupState([]PREntry{{State: "merged"}, {State: "opened"}}))
}
