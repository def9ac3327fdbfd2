package forge

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

	"wsm/internal/model"
)

// GitLab talks to the GitLab REST API v4 of whichever instance hosts the
// repository; the API base is derived per call from the remote or web URL.
type GitLab struct {
	token      string
	httpClient HTTPClient
	log        zerolog.Logger
	// scheme override for tests against httptest servers.
	scheme string
}

func NewGitLab(token string, httpClient HTTPClient, log zerolog.Logger) *GitLab {
	return &GitLab{
		token:      token,
		httpClient: httpClient,
		log:        log,
		scheme:     "https",
	}
}

// NewGitLabWithScheme is used by tests to point at plain-HTTP servers.
func NewGitLabWithScheme(scheme string, token string, httpClient HTTPClient, log zerolog.Logger) *GitLab {
	client := NewGitLab(token, httpClient, log)
	client.scheme = scheme
	return client
}

func (g *GitLab) Platform() model.Platform { return model.PlatformGitLab }

type glCreateRequest struct {
	SourceBranch string `json:"source_branch"`
	TargetBranch string `json:"target_branch"`
	Title        string `json:"title"`
	Description  string `json:"description"`
}

type glMergeRequestResponse struct {
	WebURL  string `json:"web_url"`
	IID     int    `json:"iid"`
	Message any    `json:"message"`
}

type glProjectResponse struct {
	ID int `json:"id"`
}

func (g *GitLab) Create(ctx context.Context, remoteURL string, opts CreateOptions) (Created, error) {
	host, projectPath, err := ParseRemote(remoteURL)
	if err != nil {
		return Created{}, err
	}
	projectID, err := g.projectID(ctx, host, projectPath)
	if err != nil {
		return Created{}, err
	}
	endpoint := fmt.Sprintf("%s://%s/api/v4/projects/%d/merge_requests", g.scheme, host, projectID)
	payload := glCreateRequest{
		SourceBranch: opts.SourceBranch,
		TargetBranch: opts.TargetBranch,
		Title:        opts.Title,
		Description:  opts.Body,
	}

	var decoded glMergeRequestResponse
	if err := g.doJSON(ctx, http.MethodPost, endpoint, payload, &decoded); err != nil {
		return Created{}, err
	}
	if decoded.WebURL == "" {
		return Created{}, fmt.Errorf("gitlab response for %s missing web_url", projectPath)
	}

	webURL, correction := CorrectWebURL(decoded.WebURL)
	if correction.Corrected {
		g.log.Warn().Str("raw", decoded.WebURL).Str("corrected", webURL).Msg("corrected malformed merge request URL")
	}
	if correction.Ambiguous {
		g.log.Warn().Str("raw", decoded.WebURL).Msg("merge request URL has three or more scheme occurrences; left unchanged")
	}
	iid := decoded.IID
	if iid == 0 {
		iid, err = ExtractNumber(webURL)
		if err != nil {
			return Created{}, err
		}
	}
	return Created{URL: webURL, Number: iid}, nil
}

func (g *GitLab) UpdateDescription(ctx context.Context, webURL string, body string) error {
	host, projectPath, iid, err := gitlabLocator(webURL)
	if err != nil {
		return err
	}
	projectID, err := g.projectID(ctx, host, projectPath)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s://%s/api/v4/projects/%d/merge_requests/%d", g.scheme, host, projectID, iid)
	payload := map[string]string{"description": body}
	return g.doJSON(ctx, http.MethodPut, endpoint, payload, &glMergeRequestResponse{})
}

type glApprovalsResponse struct {
	ApprovedBy []struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	} `json:"approved_by"`
}

func (g *GitLab) Approved(ctx context.Context, webURL string, username string) (bool, error) {
	host, projectPath, iid, err := gitlabLocator(webURL)
	if err != nil {
		return false, err
	}
	projectID, err := g.projectID(ctx, host, projectPath)
	if err != nil {
		return false, err
	}
	endpoint := fmt.Sprintf("%s://%s/api/v4/projects/%d/merge_requests/%d/approvals", g.scheme, host, projectID, iid)
	var decoded glApprovalsResponse
	if err := g.doJSON(ctx, http.MethodGet, endpoint, nil, &decoded); err != nil {
		return false, err
	}
	for _, approver := range decoded.ApprovedBy {
		if strings.EqualFold(approver.User.Username, username) {
			return true, nil
		}
	}
	return false, nil
}

// projectID resolves the numeric project ID from its URL-encoded path.
func (g *GitLab) projectID(ctx context.Context, host string, projectPath string) (int, error) {
	endpoint := fmt.Sprintf("%s://%s/api/v4/projects/%s", g.scheme, host, url.PathEscape(projectPath))
	var decoded glProjectResponse
	if err := g.doJSON(ctx, http.MethodGet, endpoint, nil, &decoded); err != nil {
		return 0, err
	}
	if decoded.ID == 0 {
		return 0, fmt.Errorf("gitlab project %s has no numeric id", projectPath)
	}
	return decoded.ID, nil
}

// gitlabLocator derives host, project path, and MR IID from a stored web_url.
func gitlabLocator(webURL string) (host string, projectPath string, iid int, err error) {
	iid, err = ExtractNumber(webURL)
	if err != nil {
		return "", "", 0, err
	}
	host, fullPath, err := ParseRemote(webURL)
	if err != nil {
		return "", "", 0, err
	}
	idx := strings.Index(fullPath, "/-/merge_requests/")
	if idx < 0 {
		idx = strings.Index(fullPath, "/merge_requests/")
	}
	if idx < 0 {
		return "", "", 0, fmt.Errorf("not a merge request URL: %s", webURL)
	}
	return host, fullPath[:idx], iid, nil
}

func (g *GitLab) doJSON(ctx context.Context, method string, endpoint string, payload any, result any) error {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("PRIVATE-TOKEN", g.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		g.log.Warn().Int("status", resp.StatusCode).Str("body", string(raw)).Str("endpoint", endpoint).Msg("gitlab request failed")
		return fmt.Errorf("gitlab returned status %d: %s", resp.StatusCode, string(raw))
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("decode gitlab response: %w", err)
	}
	return nil
}
