package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"
	"github.com/rs/zerolog"

	"wsm/internal/forge"
	"wsm/internal/gitx"
	"wsm/internal/model"
	"wsm/internal/unified"
	"wsm/internal/workspace"
)

type unifiedSettings struct {
	SettingsPath string `glazed.parameter:"settings"`
	Task         string `glazed.parameter:"task"`
	Verbose      bool   `glazed.parameter:"verbose"`
}

func unifiedFlags() []*parameters.ParameterDefinition {
	return []*parameters.ParameterDefinition{
		parameters.NewParameterDefinition(
			"settings",
			parameters.ParameterTypeString,
			parameters.WithHelp("Path to client settings file (defaults to ~/.wsm/client.yaml)"),
			parameters.WithDefault(""),
		),
		parameters.NewParameterDefinition(
			"task",
			parameters.ParameterTypeString,
			parameters.WithHelp("Task name (defaults to the task of the workspace's current branch)"),
			parameters.WithDefault(""),
		),
		parameters.NewParameterDefinition(
			"verbose",
			parameters.ParameterTypeBool,
			parameters.WithHelp("Enable debug logging"),
			parameters.WithDefault(false),
		),
	}
}

// aggregatorRuntime wires the backend client, platform checker, and poller
// from the client settings file.
type aggregatorRuntime struct {
	settings unified.Settings
	backend  *unified.Backend
	poller   *unified.Poller
	log      zerolog.Logger
}

func buildAggregatorRuntime(common unifiedSettings, interval time.Duration) (*aggregatorRuntime, error) {
	log := newLogger(common.Verbose)
	settings, err := unified.LoadSettings(common.SettingsPath)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}
	backend := unified.NewBackend(settings.BackendURL, httpClient, log)
	checker := unified.NewChecker(
		newAggregatorClientFactory(settings, httpClient, log),
		settings.Username,
		4,
		log,
	)
	poller := unified.NewPoller(backend, checker, settings.RepoURLs(), interval, log)
	return &aggregatorRuntime{settings: settings, backend: backend, poller: poller, log: log}, nil
}

// newAggregatorClientFactory prefers per-platform environment tokens and
// falls back to the settings token for both platforms.
func newAggregatorClientFactory(settings unified.Settings, httpClient forge.HTTPClient, log zerolog.Logger) unified.ClientFactory {
	githubToken := strings.TrimSpace(os.Getenv("GITHUB_TOKEN"))
	if githubToken == "" {
		githubToken = settings.Token
	}
	gitlabToken := strings.TrimSpace(os.Getenv("GITLAB_TOKEN"))
	if gitlabToken == "" {
		gitlabToken = settings.Token
	}

	var github forge.Client
	var gitlab forge.Client
	if githubToken != "" {
		github = forge.NewGitHub(githubToken, httpClient, log)
	}
	if gitlabToken != "" {
		gitlab = forge.NewGitLab(gitlabToken, httpClient, log)
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

// resolveTaskName returns the explicit task, or derives one from the current
// branch of the enclosing workspace's parent repository.
func resolveTaskName(ctx context.Context, explicit string, log zerolog.Logger) (string, error) {
	task := strings.TrimSpace(explicit)
	if task != "" {
		return task, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	root, err := workspace.FindRoot(cwd)
	if err != nil {
		return "", fmt.Errorf("--task is required outside a workspace")
	}
	branch, detached, err := gitx.NewRunner(log).CurrentBranch(ctx, root)
	if err != nil || detached {
		return "", fmt.Errorf("--task is required when the workspace branch cannot be read")
	}
	task = unified.ExtractTaskName(branch)
	if task == "" {
		return "", fmt.Errorf("no task name in branch %q; pass --task", branch)
	}
	return task, nil
}

type watchGlazedCommand struct {
	*cmds.CommandDescription
}

type watchSettings struct {
	SettingsPath    string `glazed.parameter:"settings"`
	Task            string `glazed.parameter:"task"`
	Verbose         bool   `glazed.parameter:"verbose"`
	IntervalSeconds int    `glazed.parameter:"interval"`
}

func newWatchGlazedCommand() (cmds.Command, error) {
	return &watchGlazedCommand{
		CommandDescription: cmds.NewCommandDescription(
			"watch",
			cmds.WithShort("Watch approval and pipeline state of a task's requests"),
			cmds.WithLong("Poll the unified backend for the task's pull/merge requests, check approvals against the platforms, and re-render until interrupted."),
			cmds.WithFlags(append(unifiedFlags(),
				parameters.NewParameterDefinition(
					"interval",
					parameters.ParameterTypeInteger,
					parameters.WithHelp("Refresh interval in seconds"),
					parameters.WithDefault(30),
				),
			)...),
		),
	}, nil
}

func (c *watchGlazedCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	settings := &watchSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, settings); err != nil {
		return err
	}
	if settings.IntervalSeconds <= 0 {
		return fmt.Errorf("--interval must be > 0")
	}

	rt, err := buildAggregatorRuntime(unifiedSettings{
		SettingsPath: settings.SettingsPath,
		Task:         settings.Task,
		Verbose:      settings.Verbose,
	}, time.Duration(settings.IntervalSeconds)*time.Second)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	task, err := resolveTaskName(ctx, settings.Task, rt.log)
	if err != nil {
		return err
	}

	for snap := range rt.poller.Watch(ctx, task) {
		printSnapshot(task, snap)
	}
	fmt.Println("\nWatch stopped.")
	return nil
}

var _ cmds.BareCommand = &watchGlazedCommand{}

func printSnapshot(task string, snap unified.Snapshot) {
	fmt.Printf("[%s] task=%s", snap.ObservedAt.Format(time.RFC3339), task)
	if snap.Err != nil {
		fmt.Printf(" error=%v\n", snap.Err)
		return
	}
	fmt.Printf(" state=%s fully_approved=%t\n", snap.State, snap.FullyApproved)
	for _, status := range snap.Statuses {
		fmt.Printf("  - %s #%d approved=%t pipeline=%s %s\n",
			status.Record.Repo, status.Record.Number,
			status.Approved, status.Pipeline, status.Record.URL)
	}
}

type approveGlazedCommand struct {
	*cmds.CommandDescription
}

type approveSettings struct {
	SettingsPath string `glazed.parameter:"settings"`
	Task         string `glazed.parameter:"task"`
	Verbose      bool   `glazed.parameter:"verbose"`
}

func newApproveGlazedCommand() (cmds.Command, error) {
	return &approveGlazedCommand{
		CommandDescription: cmds.NewCommandDescription(
			"approve",
			cmds.WithShort("Approve every request of a task"),
			cmds.WithLong("Submit a bulk approval through the unified backend, then re-poll the platforms until every member request shows approved or the retry budget runs out."),
			cmds.WithFlags(unifiedFlags()...),
		),
	}, nil
}

func (c *approveGlazedCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	settings := &approveSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, settings); err != nil {
		return err
	}

	rt, err := buildAggregatorRuntime(unifiedSettings{
		SettingsPath: settings.SettingsPath,
		Task:         settings.Task,
		Verbose:      settings.Verbose,
	}, unified.DefaultPollInterval)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	task, err := resolveTaskName(ctx, settings.Task, rt.log)
	if err != nil {
		return err
	}

	approver := unified.NewApprover(rt.backend, rt.poller, rt.log)
	outcome, err := approver.BulkApprove(ctx, task, rt.settings.RepoURLs())
	if err != nil {
		return err
	}

	if len(outcome.Statuses) > 0 {
		printSnapshot(task, outcome.Statuses[len(outcome.Statuses)-1])
	}
	if outcome.Converged {
		fmt.Printf("Task %s fully approved.\n", task)
	} else {
		fmt.Printf("Approval submitted for task %s; platforms have not yet reported full approval.\n", task)
	}
	return nil
}

var _ cmds.BareCommand = &approveGlazedCommand{}
