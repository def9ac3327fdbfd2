package unified

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"wsm/internal/forge"
)

// TaskEntry mirrors one element of the backend's unified list.
type TaskEntry struct {
	TaskName string    `json:"task_name"`
	PRs      []PREntry `json:"prs"`
}

type PREntry struct {
	WebURL         string `json:"web_url"`
	RepositoryName string `json:"repository_name"`
	IID            int    `json:"iid"`
	Title          string `json:"title"`
	Author         Author `json:"author"`
	PipelineStatus string `json:"pipeline_status"`
	State          string `json:"state,omitempty"`
}

type Author struct {
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Backend consumes the unified-list service as a black box.
type Backend struct {
	baseURL    string
	httpClient forge.HTTPClient
	log        zerolog.Logger
}

func NewBackend(baseURL string, httpClient forge.HTTPClient, log zerolog.Logger) *Backend {
	return &Backend{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		log:        log,
	}
}

// Unified fetches the task-grouped PR list for the given repositories.
func (b *Backend) Unified(ctx context.Context, repoURLs []string) ([]TaskEntry, error) {
	query := url.Values{}
	for _, repo := range repoURLs {
		query.Add("repo_urls", repo)
	}
	endpoint := b.baseURL + "/api/prs/unified?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unified list request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(raw))
	}
	entries := []TaskEntry{}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode unified list: %w", err)
	}
	return entries, nil
}

type approveRequest struct {
	RepoURLs []string `json:"repo_urls"`
}

// Approve asks the backend to approve every request of one task.
func (b *Backend) Approve(ctx context.Context, taskName string, repoURLs []string) error {
	endpoint := b.baseURL + "/api/prs/approve?task_name=" + url.QueryEscape(taskName)
	encoded, err := json.Marshal(approveRequest{RepoURLs: repoURLs})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("approve request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("backend returned status %d: %s", resp.StatusCode, string(raw))
	}
	return nil
}
