package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/rs/zerolog"

	"wsm/internal/forge"
	"wsm/internal/gitx"
	"wsm/internal/model"
	"wsm/internal/orchestrator"
	"wsm/internal/policy"
	"wsm/internal/workspace"
)

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func commonFlags() []*parameters.ParameterDefinition {
	return []*parameters.ParameterDefinition{
		parameters.NewParameterDefinition(
			"policy",
			parameters.ParameterTypeString,
			parameters.WithHelp("Path to policy file (defaults to .wsm/policy.json in the workspace root)"),
			parameters.WithDefault(""),
		),
		parameters.NewParameterDefinition(
			"verbose",
			parameters.ParameterTypeBool,
			parameters.WithHelp("Enable debug logging"),
			parameters.WithDefault(false),
		),
		parameters.NewParameterDefinition(
			"yes",
			parameters.ParameterTypeBool,
			parameters.WithHelp("Assume yes on confirmation prompts"),
			parameters.WithDefault(false),
		),
	}
}

type commonSettings struct {
	PolicyPath string `glazed.parameter:"policy"`
	Verbose    bool   `glazed.parameter:"verbose"`
	Yes        bool   `glazed.parameter:"yes"`
}

// runtime bundles everything a workspace command needs after setup.
type runtime struct {
	service *orchestrator.Service
	ws      workspace.Workspace
	cfg     policy.Config
	git     *gitx.Runner
	log     zerolog.Logger
}

// buildRuntime locates the workspace, loads policy, and wires the service.
// A missing workspace marker is a fatal error, surfaced to main as exit 1.
func buildRuntime(ctx context.Context, common commonSettings) (*runtime, error) {
	log := newLogger(common.Verbose)
	git := gitx.NewRunner(log)

	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := workspace.FindRoot(cwd)
	if err != nil {
		return nil, err
	}

	policyPath := strings.TrimSpace(common.PolicyPath)
	if policyPath == "" {
		policyPath = filepath.Join(root, policy.DefaultPolicyPath)
	}
	cfg, _, err := policy.Load(policyPath)
	if err != nil {
		return nil, err
	}

	ws, err := workspace.NewScanner(git).Scan(ctx, root, cfg.DefaultPlatform())
	if err != nil {
		return nil, err
	}

	var confirm orchestrator.Confirmer
	if common.Yes || cfg.Confirm.NonInteractive || !cfg.Confirm.ConfirmBranchCreate {
		confirm = orchestrator.AutoConfirm()
	} else {
		confirm = stdinConfirmer{}
	}

	service := orchestrator.NewService(orchestrator.Params{
		Git:       git,
		Workspace: ws,
		Policy:    cfg,
		Clients:   newClientFactory(cfg, log),
		Confirm:   confirm,
		Log:       log,
	})
	return &runtime{service: service, ws: ws, cfg: cfg, git: git, log: log}, nil
}

// newClientFactory builds platform clients from environment tokens. A platform
// without a token gets no client; the orchestrator skips its repos.
func newClientFactory(cfg policy.Config, log zerolog.Logger) orchestrator.ClientFactory {
	httpClient := &http.Client{
		Timeout: time.Duration(cfg.Execution.RequestTimeoutSec) * time.Second,
	}
	var github forge.Client
	var gitlab forge.Client
	if token := strings.TrimSpace(os.Getenv("GITHUB_TOKEN")); token != "" {
		github = forge.NewGitHub(token, httpClient, log)
	}
	if token := strings.TrimSpace(os.Getenv("GITLAB_TOKEN")); token != "" {
		gitlab = forge.NewGitLab(token, httpClient, log)
	}
	return func(platform model.Platform) forge.Client {
		switch platform {
		case model.PlatformGitHub:
			return github
		case model.PlatformGitLab:
			return gitlab
		default:
			return nil
		}
	}
}

type stdinConfirmer struct{}

func (stdinConfirmer) Confirm(prompt string) bool {
	fmt.Printf("%s [y/N] ", prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func formatBranchState(state model.BranchState) string {
	if state.Detached {
		return "detached"
	}
	parts := []string{state.Branch}
	if state.Ahead > 0 || state.Behind > 0 {
		parts = append(parts, fmt.Sprintf("ahead=%d behind=%d", state.Ahead, state.Behind))
	}
	if state.Dirty() {
		parts = append(parts, formatChangeSummary(state.Summary))
	} else {
		parts = append(parts, "clean")
	}
	return strings.Join(parts, " ")
}

func formatChangeSummary(summary model.ChangeSummary) string {
	parts := []string{}
	add := func(label string, count int) {
		if count > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", label, count))
		}
	}
	add("modified", summary.Modified)
	add("added", summary.Added)
	add("deleted", summary.Deleted)
	add("renamed", summary.Renamed)
	add("copied", summary.Copied)
	add("untracked", summary.Untracked)
	add("other", summary.Other)
	return strings.Join(parts, " ")
}

func printRepoOpResults(results []orchestrator.RepoOpResult) {
	for _, result := range results {
		switch {
		case result.ErrorText != "":
			fmt.Printf("  - %s error=%s\n", result.Repo, result.ErrorText)
		case result.Branch != "":
			fmt.Printf("  - %s branch=%s %s\n", result.Repo, result.Branch, result.Detail)
		default:
			fmt.Printf("  - %s %s\n", result.Repo, result.Detail)
		}
	}
}

func printCommitResults(results []orchestrator.CommitRepoResult) {
	for _, result := range results {
		switch {
		case result.ErrorText != "":
			fmt.Printf("  - %s error=%s\n", result.Repo, result.ErrorText)
		case result.SkippedReason != "":
			fmt.Printf("  - %s skipped (%s)\n", result.Repo, result.SkippedReason)
		default:
			fmt.Printf("  - %s branch=%s commit=%s pushed=%t\n",
				result.Repo, result.Branch, shortSHA(result.CommitSHA), result.Pushed)
		}
	}
}

func shortSHA(sha string) string {
	if len(sha) > 8 {
		return sha[:8]
	}
	return sha
}
