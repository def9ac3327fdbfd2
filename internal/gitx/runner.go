package gitx

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

// Runner executes git with an explicit working directory on every call.
// Repositories may be processed concurrently, so the process working
// directory is never mutated.
type Runner struct {
	gitPath string
	log     zerolog.Logger
}

func NewRunner(log zerolog.Logger) *Runner {
	return &Runner{
		gitPath: "git",
		log:     log,
	}
}

func (r *Runner) run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.gitPath, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	text := strings.TrimSpace(string(out))
	r.log.Debug().Str("dir", dir).Strs("args", args).Err(err).Msg("git")
	if err != nil {
		if text == "" {
			text = err.Error()
		}
		return "", fmt.Errorf("git %s failed in %s: %s", strings.Join(args, " "), dir, text)
	}
	return text, nil
}

// runExitCode is for commands whose exit status carries the answer
// (diff --quiet, show-ref --verify --quiet).
func (r *Runner) runExitCode(ctx context.Context, dir string, args ...string) (int, error) {
	cmd := exec.CommandContext(ctx, r.gitPath, args...)
	cmd.Dir = dir
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("git %s failed in %s: %w", strings.Join(args, " "), dir, err)
}

// CurrentBranch returns the checked-out branch name. detached is true when no
// named local branch is checked out.
func (r *Runner) CurrentBranch(ctx context.Context, dir string) (branch string, detached bool, err error) {
	out, err := r.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", false, err
	}
	if out == "HEAD" {
		return "", true, nil
	}
	return out, false, nil
}

// Upstream returns the tracking ref of branch, or "" when none is configured.
func (r *Runner) Upstream(ctx context.Context, dir string, branch string) (string, error) {
	out, err := r.run(ctx, dir, "rev-parse", "--abbrev-ref", branch+"@{upstream}")
	if err != nil {
		return "", nil
	}
	return out, nil
}

// AheadBehind computes the symmetric difference between branch and upstream
// tips: commits only on branch (ahead) and only on upstream (behind).
func (r *Runner) AheadBehind(ctx context.Context, dir string, branch string, upstream string) (ahead int, behind int, err error) {
	out, err := r.run(ctx, dir, "rev-list", "--left-right", "--count", upstream+"..."+branch)
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("unexpected rev-list output %q in %s", out, dir)
	}
	behind, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, fmt.Errorf("parse behind count %q: %w", fields[0], err)
	}
	ahead, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, fmt.Errorf("parse ahead count %q: %w", fields[1], err)
	}
	return ahead, behind, nil
}

func (r *Runner) Fetch(ctx context.Context, dir string, remote string) error {
	_, err := r.run(ctx, dir, "fetch", remote)
	return err
}

func (r *Runner) Pull(ctx context.Context, dir string) (string, error) {
	return r.run(ctx, dir, "pull")
}

// HasDiff reports whether refA and refB differ in content.
func (r *Runner) HasDiff(ctx context.Context, dir string, refA string, refB string) (bool, error) {
	code, err := r.runExitCode(ctx, dir, "diff", "--quiet", refA, refB)
	if err != nil {
		return false, err
	}
	return code != 0, nil
}

func (r *Runner) AddAll(ctx context.Context, dir string) error {
	_, err := r.run(ctx, dir, "add", "-A")
	return err
}

func (r *Runner) Commit(ctx context.Context, dir string, message string) (string, error) {
	if _, err := r.run(ctx, dir, "commit", "-m", message); err != nil {
		return "", err
	}
	return r.run(ctx, dir, "rev-parse", "HEAD")
}

func (r *Runner) Push(ctx context.Context, dir string, branch string) error {
	_, err := r.run(ctx, dir, "push", "origin", branch)
	return err
}

func (r *Runner) PushSetUpstream(ctx context.Context, dir string, branch string) error {
	_, err := r.run(ctx, dir, "push", "--set-upstream", "origin", branch)
	return err
}

func (r *Runner) LocalBranchExists(ctx context.Context, dir string, branch string) (bool, error) {
	code, err := r.runExitCode(ctx, dir, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	if err != nil {
		return false, err
	}
	return code == 0, nil
}

func (r *Runner) RemoteBranchExists(ctx context.Context, dir string, branch string) (bool, error) {
	out, err := r.run(ctx, dir, "ls-remote", "--heads", "origin", branch)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) != "", nil
}

func (r *Runner) Checkout(ctx context.Context, dir string, branch string) error {
	_, err := r.run(ctx, dir, "checkout", branch)
	return err
}

func (r *Runner) CreateBranch(ctx context.Context, dir string, branch string) error {
	_, err := r.run(ctx, dir, "checkout", "-b", branch)
	return err
}

// CreateTrackingBranch creates branch tracking origin/<branch>. Used when the
// remote ref already exists, so the new local branch does not diverge from it.
func (r *Runner) CreateTrackingBranch(ctx context.Context, dir string, branch string) error {
	_, err := r.run(ctx, dir, "checkout", "-b", branch, "--track", "origin/"+branch)
	return err
}

func (r *Runner) RemoteURL(ctx context.Context, dir string) (string, error) {
	return r.run(ctx, dir, "remote", "get-url", "origin")
}

func (r *Runner) ConfigValue(ctx context.Context, dir string, key string) (string, error) {
	out, err := r.run(ctx, dir, "config", "--get", key)
	if err != nil {
		return "", nil
	}
	return out, nil
}

func (r *Runner) CreateAnnotatedTag(ctx context.Context, dir string, name string, message string) error {
	_, err := r.run(ctx, dir, "tag", "-a", name, "-m", message)
	return err
}

func (r *Runner) PushTag(ctx context.Context, dir string, name string) error {
	_, err := r.run(ctx, dir, "push", "origin", name)
	return err
}

// ConfigList returns key=value lines of a config file, in file order.
func (r *Runner) ConfigList(ctx context.Context, dir string, file string) ([]string, error) {
	out, err := r.run(ctx, dir, "config", "-f", file, "--list")
	if err != nil {
		return nil, err
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}
