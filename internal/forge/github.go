package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"wsm/internal/model"
)

// GitHub talks to the GitHub REST API v3.
type GitHub struct {
	apiBase    string
	token      string
	httpClient HTTPClient
	log        zerolog.Logger
}

func NewGitHub(token string, httpClient HTTPClient, log zerolog.Logger) *GitHub {
	return &GitHub{
		apiBase:    "https://api.github.com",
		token:      token,
		httpClient: httpClient,
		log:        log,
	}
}

// NewGitHubWithBase is used by tests and GitHub Enterprise setups.
func NewGitHubWithBase(apiBase string, token string, httpClient HTTPClient, log zerolog.Logger) *GitHub {
	client := NewGitHub(token, httpClient, log)
	client.apiBase = strings.TrimSuffix(apiBase, "/")
	return client
}

func (g *GitHub) Platform() model.Platform { return model.PlatformGitHub }

type ghCreateRequest struct {
	Title string `json:"title"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body"`
}

type ghPullResponse struct {
	HTMLURL string `json:"html_url"`
	Number  int    `json:"number"`
	Message string `json:"message"`
}

func (g *GitHub) Create(ctx context.Context, remoteURL string, opts CreateOptions) (Created, error) {
	_, projectPath, err := ParseRemote(remoteURL)
	if err != nil {
		return Created{}, err
	}
	endpoint := fmt.Sprintf("%s/repos/%s/pulls", g.apiBase, projectPath)
	payload := ghCreateRequest{
		Title: opts.Title,
		Head:  opts.SourceBranch,
		Base:  opts.TargetBranch,
		Body:  opts.Body,
	}

	var decoded ghPullResponse
	if err := g.doJSON(ctx, http.MethodPost, endpoint, payload, &decoded); err != nil {
		return Created{}, err
	}
	if decoded.HTMLURL == "" {
		return Created{}, fmt.Errorf("github response for %s missing html_url", projectPath)
	}
	return Created{URL: decoded.HTMLURL, Number: decoded.Number}, nil
}

func (g *GitHub) UpdateDescription(ctx context.Context, webURL string, body string) error {
	projectPath, number, err := githubLocator(webURL)
	if err != nil {
		return err
	}
	endpoint := fmt.Sprintf("%s/repos/%s/pulls/%d", g.apiBase, projectPath, number)
	payload := map[string]string{"body": body}
	return g.doJSON(ctx, http.MethodPatch, endpoint, payload, &ghPullResponse{})
}

type ghReview struct {
	State string `json:"state"`
	User  struct {
		Login string `json:"login"`
	} `json:"user"`
}

func (g *GitHub) Approved(ctx context.Context, webURL string, username string) (bool, error) {
	projectPath, number, err := githubLocator(webURL)
	if err != nil {
		return false, err
	}
	endpoint := fmt.Sprintf("%s/repos/%s/pulls/%d/reviews", g.apiBase, projectPath, number)
	reviews := []ghReview{}
	if err := g.doJSON(ctx, http.MethodGet, endpoint, nil, &reviews); err != nil {
		return false, err
	}
	for _, review := range reviews {
		if strings.EqualFold(review.State, "APPROVED") && strings.EqualFold(review.User.Login, username) {
			return true, nil
		}
	}
	return false, nil
}

// githubLocator derives "owner/repo" and the PR number from a stored html_url.
func githubLocator(webURL string) (projectPath string, number int, err error) {
	number, err = ExtractNumber(webURL)
	if err != nil {
		return "", 0, err
	}
	_, fullPath, err := ParseRemote(webURL)
	if err != nil {
		return "", 0, err
	}
	idx := strings.Index(fullPath, "/pull/")
	if idx < 0 {
		return "", 0, fmt.Errorf("not a pull request URL: %s", webURL)
	}
	return fullPath[:idx], number, nil
}

func (g *GitHub) doJSON(ctx context.Context, method string, endpoint string, payload any, result any) error {
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
	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Accept", "application/vnd.github+json")
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
		g.log.Warn().Int("status", resp.StatusCode).Str("body", string(raw)).Str("endpoint", endpoint).Msg("github request failed")
		return fmt.Errorf("github returned status %d: %s", resp.StatusCode, string(raw))
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("decode github response: %w", err)
	}
	return nil
}
