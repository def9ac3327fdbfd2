package forge

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"wsm/internal/model"
)

// HTTPClient allows mocking HTTP transport in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CreateOptions are the parameters for opening a PR/MR.
type CreateOptions struct {
	Title        string
	Body         string
	SourceBranch string
	TargetBranch string
}

// Created is the typed success variant of a publish call.
type Created struct {
	URL    string
	Number int
}

// Client abstracts GitHub and GitLab request operations.
type Client interface {
	Platform() model.Platform
	Create(ctx context.Context, remoteURL string, opts CreateOptions) (Created, error)
	UpdateDescription(ctx context.Context, webURL string, body string) error
	Approved(ctx context.Context, webURL string, username string) (bool, error)
}

// Resolve decides the platform for a remote URL. A recognized hosting
// substring wins; otherwise the caller-supplied fallback applies. Pure, so it
// is testable independently of any repository.
func Resolve(remoteURL string, fallback model.Platform) model.Platform {
	remote := strings.ToLower(strings.TrimSpace(remoteURL))
	switch {
	case strings.Contains(remote, "github.com"):
		return model.PlatformGitHub
	case strings.Contains(remote, "gitlab"):
		return model.PlatformGitLab
	default:
		return fallback
	}
}

// ParseRemote extracts host and project path ("owner/repo" or a deeper
// namespace) from an https or ssh remote URL.
func ParseRemote(remoteURL string) (host string, projectPath string, err error) {
	remote := strings.TrimSpace(remoteURL)
	if remote == "" {
		return "", "", fmt.Errorf("empty remote URL")
	}

	// scp-like syntax: git@host:owner/repo.git
	if !strings.Contains(remote, "://") {
		userHost, path, ok := strings.Cut(remote, ":")
		if !ok {
			return "", "", fmt.Errorf("unrecognized remote URL %q", remoteURL)
		}
		if _, h, ok := strings.Cut(userHost, "@"); ok {
			userHost = h
		}
		return userHost, trimProjectPath(path), nil
	}

	parsed, err := url.Parse(remote)
	if err != nil {
		return "", "", fmt.Errorf("parse remote URL %q: %w", remoteURL, err)
	}
	path := trimProjectPath(parsed.Path)
	if parsed.Host == "" || path == "" {
		return "", "", fmt.Errorf("remote URL %q has no host/project", remoteURL)
	}
	return parsed.Host, path, nil
}

func trimProjectPath(path string) string {
	path = strings.Trim(path, "/")
	path = strings.TrimSuffix(path, ".git")
	return path
}
