package unified

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wsm/internal/forge"
	"wsm/internal/model"
)

func TestBackendUnifiedSendsRepoURLsAndDecodes(t *testing.T) {
	var gotRepos []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/prs/unified", r.URL.Path)
		gotRepos = r.URL.Query()["repo_urls"]
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]TaskEntry{
			{TaskName: "ABC-123", PRs: []PREntry{
				{WebURL: "https://github.com/acme/api/pull/1", RepositoryName: "api", IID: 1, PipelineStatus: "success"},
			}},
		})
	}))
	defer server.Close()

	backend := NewBackend(server.URL, server.Client(), zerolog.Nop())
	entries, err := backend.Unified(t.Context(), []string{
		"https://github.com/acme/api",
		"https://gitlab.example.com/acme/web",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://github.com/acme/api",
		"https://gitlab.example.com/acme/web",
	}, gotRepos)
	require.Len(t, entries, 1)
	assert.Equal(t, "ABC-123", entries[0].TaskName)
	assert.Equal(t, 1, entries[0].PRs[0].IID)
}

func TestBackendUnifiedSurfacesErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusBadGateway)
	}))
	defer server.Close()

	backend := NewBackend(server.URL, server.Client(), zerolog.Nop())
	_, err := backend.Unified(t.Context(), []string{"https://github.com/acme/api"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestBackendApprovePostsTaskAndRepos(t *testing.T) {
	var gotTask string
	var gotBody approveRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/prs/approve", r.URL.Path)
		gotTask = r.URL.Query().Get("task_name")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	backend := NewBackend(server.URL, server.Client(), zerolog.Nop())
	err := backend.Approve(t.Context(), "ABC-123", []string{"https://github.com/acme/api"})
	require.NoError(t, err)
	assert.Equal(t, "ABC-123", gotTask)
	assert.Equal(t, []string{"https://github.com/acme/api"}, gotBody.RepoURLs)
}

type fakeClient struct {
	platform model.Platform
	approved map[string]bool
	err      error
}

func (f *fakeClient) Platform() model.Platform { return f.platform }

func (f *fakeClient) Create(ctx context.Context, remoteURL string, opts forge.CreateOptions) (forge.Created, error) {
	return forge.Created{}, nil
}

func (f *fakeClient) UpdateDescription(ctx context.Context, webURL string, body string) error {
	return nil
}

func (f *fakeClient) Approved(ctx context.Context, webURL string, username string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.approved[webURL], nil
}

func TestCheckerAggregatesApprovals(t *testing.T) {
	github := &fakeClient{platform: model.PlatformGitHub, approved: map[string]bool{
		"https://github.com/acme/api/pull/1": true,
	}}
	gitlab := &fakeClient{platform: model.PlatformGitLab, approved: map[string]bool{
		"https://gitlab.example.com/acme/web/-/merge_requests/2": true,
	}}
	clients := func(platform model.Platform) forge.Client {
		switch platform {
		case model.PlatformGitHub:
			return github
		case model.PlatformGitLab:
			return gitlab
		default:
			return nil
		}
	}

	checker := NewChecker(clients, "reviewer", 2, zerolog.Nop())
	task := TaskEntry{TaskName: "ABC-123", PRs: []PREntry{
		{WebURL: "https://github.com/acme/api/pull/1", RepositoryName: "api", IID: 1, PipelineStatus: "success"},
		{WebURL: "https://gitlab.example.com/acme/web/-/merge_requests/2", RepositoryName: "web", IID: 2, PipelineStatus: "running"},
	}}

	statuses := checker.Check(t.Context(), task)
	require.Len(t, statuses, 2)
	assert.True(t, FullyApproved(statuses))
	assert.Equal(t, model.PlatformGitHub, statuses[0].Record.Platform)
	assert.Equal(t, model.PipelineSuccess, statuses[0].Pipeline)
	assert.Equal(t, model.PipelineRunning, statuses[1].Pipeline)
}

func TestCheckerTreatsFailuresAsUnapproved(t *testing.T) {
	failing := &fakeClient{platform: model.PlatformGitHub, err: assert.AnError}
	clients := func(platform model.Platform) forge.Client {
		if platform == model.PlatformGitHub {
			return failing
		}
		return nil
	}

	checker := NewChecker(clients, "reviewer", 4, zerolog.Nop())
	task := TaskEntry{TaskName: "ABC-123", PRs: []PREntry{
		{WebURL: "https://github.com/acme/api/pull/1", PipelineStatus: "success"},
		{WebURL: "https://example.org/acme/web/pr/2", PipelineStatus: "success"},
	}}

	statuses := checker.Check(t.Context(), task)
	require.Len(t, statuses, 2)
	assert.False(t, FullyApproved(statuses))
	for _, status := range statuses {
		assert.False(t, status.Approved)
		assert.Equal(t, model.PipelineUnknown, status.Pipeline)
	}
}

func TestPollerObserveFindsTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]TaskEntry{
			{TaskName: "ABC-123", PRs: []PREntry{
				{WebURL: "https://github.com/acme/api/pull/1", RepositoryName: "api", IID: 1, PipelineStatus: "success", State: "opened"},
			}},
		})
	}))
	defer server.Close()

	github := &fakeClient{platform: model.PlatformGitHub, approved: map[string]bool{
		"https://github.com/acme/api/pull/1": true,
	}}
	clients := func(platform model.Platform) forge.Client {
		if platform == model.PlatformGitHub {
			return github
		}
		return nil
	}

	backend := NewBackend(server.URL, server.Client(), zerolog.Nop())
	checker := NewChecker(clients, "reviewer", 2, zerolog.Nop())
	poller := NewPoller(backend, checker, []string{"https://github.com/acme/api"}, time.Minute, zerolog.Nop())

	snap := poller.Observe(t.Context(), "ABC-123")
	require.NoError(t, snap.Err)
	assert.True(t, snap.FullyApproved)
	assert.Equal(t, "open", snap.State)

	missing := poller.Observe(t.Context(), "NOPE-1")
	require.Error(t, missing.Err)
}

func TestBulkApproveConverges(t *testing.T) {
	var approveCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			approveCalls++
			w.WriteHeader(http.StatusOK)
			return
		}
		_ = json.NewEncoder(w).Encode([]TaskEntry{
			{TaskName: "ABC-123", PRs: []PREntry{
				{WebURL: "https://github.com/acme/api/pull/1", RepositoryName: "api", PipelineStatus: "success"},
			}},
		})
	}))
	defer server.Close()

	github := &fakeClient{platform: model.PlatformGitHub, approved: map[string]bool{
		"https://github.com/acme/api/pull/1": true,
	}}
	clients := func(platform model.Platform) forge.Client {
		if platform == model.PlatformGitHub {
			return github
		}
		return nil
	}

	backend := NewBackend(server.URL, server.Client(), zerolog.Nop())
	checker := NewChecker(clients, "reviewer", 2, zerolog.Nop())
	poller := NewPoller(backend, checker, []string{"https://github.com/acme/api"}, time.Minute, zerolog.Nop())

	approver := NewApprover(backend, poller, zerolog.Nop())
	approver.settleWait = time.Millisecond
	approver.pollWait = time.Millisecond

	outcome, err := approver.BulkApprove(t.Context(), "ABC-123", []string{"https://github.com/acme/api"})
	require.NoError(t, err)
	assert.Equal(t, 1, approveCalls)
	assert.True(t, outcome.Converged)
}

func TestBulkApproveReportsNonConvergence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusOK)
			return
		}
		_ = json.NewEncoder(w).Encode([]TaskEntry{
			{TaskName: "ABC-123", PRs: []PREntry{
				{WebURL: "https://github.com/acme/api/pull/1", RepositoryName: "api", PipelineStatus: "running"},
			}},
		})
	}))
	defer server.Close()

	github := &fakeClient{platform: model.PlatformGitHub, approved: map[string]bool{}}
	clients := func(platform model.Platform) forge.Client {
		if platform == model.PlatformGitHub {
			return github
		}
		return nil
	}

	backend := NewBackend(server.URL, server.Client(), zerolog.Nop())
	checker := NewChecker(clients, "reviewer", 2, zerolog.Nop())
	poller := NewPoller(backend, checker, []string{"https://github.com/acme/api"}, time.Minute, zerolog.Nop())

	approver := NewApprover(backend, poller, zerolog.Nop())
	approver.settleWait = time.Millisecond
	approver.pollWait = time.Millisecond
	approver.maxPolls = 2

	outcome, err := approver.BulkApprove(t.Context(), "ABC-123", []string{"https://github.com/acme/api"})
	require.NoError(t, err)
	assert.False(t, outcome.Converged)
	assert.NotEmpty(t, outcome.Statuses)
}
