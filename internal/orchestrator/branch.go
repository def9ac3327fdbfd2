package orchestrator

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

var ticketRegex = regexp.MustCompile(`[A-Z]+-\d+`)

const timestampLayout = "20060102150405"

// ResolveBranchName decides the branch to use when no named branch is checked
// out: a ticket identifier found in the title wins, otherwise a UTC timestamp.
func (s *Service) ResolveBranchName(title string) string {
	prefix := s.cfg.Git.BranchPrefix
	if ticket := ticketRegex.FindString(title); ticket != "" {
		return prefix + "/" + ticket
	}
	return prefix + "/" + s.now().UTC().Format(timestampLayout)
}

// EnsureBranch moves the repository from Detached to Attached state and
// returns the branch name to operate on. Attached repositories are returned
// as-is; the transition is never reversed within one invocation.
func (s *Service) EnsureBranch(ctx context.Context, repoPath string, title string) (string, error) {
	branch, detached, err := s.git.CurrentBranch(ctx, repoPath)
	if err != nil {
		return "", err
	}
	if !detached {
		return branch, nil
	}

	name := s.ResolveBranchName(title)
	exists, err := s.git.LocalBranchExists(ctx, repoPath, name)
	if err != nil {
		return "", err
	}
	if exists {
		if err := s.git.Checkout(ctx, repoPath, name); err != nil {
			return "", err
		}
		return name, nil
	}

	if s.cfg.Confirm.ConfirmBranchCreate && !s.cfg.Confirm.NonInteractive {
		if !s.confirm.Confirm(fmt.Sprintf("create branch %s in %s?", name, repoPath)) {
			return "", fmt.Errorf("branch creation declined for %s", repoPath)
		}
	}

	remoteExists, err := s.git.RemoteBranchExists(ctx, repoPath, name)
	if err != nil {
		return "", err
	}
	if remoteExists {
		// Track the existing remote ref so local history does not diverge.
		if err := s.git.CreateTrackingBranch(ctx, repoPath, name); err != nil {
			return "", err
		}
		return name, nil
	}
	if err := s.git.CreateBranch(ctx, repoPath, name); err != nil {
		return "", err
	}
	return name, nil
}

// ExtractTaskName pulls the ticket identifier out of a branch name or title.
// Returns "" when no ticket pattern is present.
func ExtractTaskName(text string) string {
	return ticketRegex.FindString(text)
}

// crossLinkTagName builds the shared tag name for one publish invocation.
func (s *Service) crossLinkTagName(at time.Time) string {
	return fmt.Sprintf("%s-crosslink-%s", s.cfg.Git.TagPrefix, at.UTC().Format(timestampLayout))
}
