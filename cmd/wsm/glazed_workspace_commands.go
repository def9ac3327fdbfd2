package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"

	"wsm/internal/orchestrator"
	"wsm/internal/policy"
)

type initGlazedCommand struct {
	*cmds.CommandDescription
}

type initSettings struct {
	PolicyPath string `glazed.parameter:"policy"`
	Verbose    bool   `glazed.parameter:"verbose"`
	Yes        bool   `glazed.parameter:"yes"`
}

func newInitGlazedCommand() (cmds.Command, error) {
	return &initGlazedCommand{
		CommandDescription: cmds.NewCommandDescription(
			"init",
			cmds.WithShort("Verify workspace markers and write a default policy"),
			cmds.WithLong("Check that the current directory is inside a parent repository with submodule members, then write a default policy file if none exists."),
			cmds.WithFlags(commonFlags()...),
		),
	}, nil
}

func (c *initGlazedCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	settings := &initSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, settings); err != nil {
		return err
	}

	rt, err := buildRuntime(ctx, commonSettings{
		PolicyPath: settings.PolicyPath,
		Verbose:    settings.Verbose,
		Yes:        settings.Yes,
	})
	if err != nil {
		return err
	}

	policyPath := strings.TrimSpace(settings.PolicyPath)
	if policyPath == "" {
		policyPath = filepath.Join(rt.ws.Root, policy.DefaultPolicyPath)
	}
	if _, err := os.Stat(policyPath); err == nil {
		fmt.Printf("Workspace at %s (%d members); policy already present at %s\n",
			rt.ws.Root, len(rt.ws.Members), policyPath)
		return nil
	}
	if err := policy.SaveDefault(policyPath); err != nil {
		return err
	}
	fmt.Printf("Workspace at %s (%d members); wrote default policy to %s\n",
		rt.ws.Root, len(rt.ws.Members), policyPath)
	return nil
}

var _ cmds.BareCommand = &initGlazedCommand{}

type statusGlazedCommand struct {
	*cmds.CommandDescription
}

type statusSettings struct {
	PolicyPath string `glazed.parameter:"policy"`
	Verbose    bool   `glazed.parameter:"verbose"`
	Yes        bool   `glazed.parameter:"yes"`
}

func newStatusGlazedCommand() (cmds.Command, error) {
	return &statusGlazedCommand{
		CommandDescription: cmds.NewCommandDescription(
			"status",
			cmds.WithShort("Show branch and change state of every member repository"),
			cmds.WithFlags(commonFlags()...),
		),
	}, nil
}

func (c *statusGlazedCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	settings := &statusSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, settings); err != nil {
		return err
	}

	rt, err := buildRuntime(ctx, commonSettings{
		PolicyPath: settings.PolicyPath,
		Verbose:    settings.Verbose,
		Yes:        settings.Yes,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Workspace: %s\n", rt.ws.Root)
	for _, result := range rt.service.Status(ctx) {
		if result.ErrorText != "" {
			fmt.Printf("  - %s error=%s\n", result.Repo, result.ErrorText)
			continue
		}
		fmt.Printf("  - %s %s\n", result.Repo, formatBranchState(result.State))
	}
	return nil
}

var _ cmds.BareCommand = &statusGlazedCommand{}

type commitGlazedCommand struct {
	*cmds.CommandDescription
}

type commitSettings struct {
	PolicyPath string `glazed.parameter:"policy"`
	Verbose    bool   `glazed.parameter:"verbose"`
	Yes        bool   `glazed.parameter:"yes"`
	Message    string `glazed.parameter:"message"`
	Actor      string `glazed.parameter:"actor"`
	DryRun     bool   `glazed.parameter:"dry-run"`
}

func newCommitGlazedCommand() (cmds.Command, error) {
	return &commitGlazedCommand{
		CommandDescription: cmds.NewCommandDescription(
			"commit",
			cmds.WithShort("Commit and push every member repository with changes"),
			cmds.WithLong("Stage, commit, and push each dirty member repository. The commit message doubles as the branch-name source when a repository sits on a detached head."),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"message",
					parameters.ParameterTypeString,
					parameters.WithHelp("Commit message"),
					parameters.WithRequired(true),
				),
			),
			cmds.WithFlags(append(commonFlags(),
				parameters.NewParameterDefinition(
					"actor",
					parameters.ParameterTypeString,
					parameters.WithHelp("Acting user (defaults to git user.name)"),
					parameters.WithDefault(""),
				),
				parameters.NewParameterDefinition(
					"dry-run",
					parameters.ParameterTypeBool,
					parameters.WithHelp("Plan only; do not commit or push"),
					parameters.WithDefault(false),
				),
			)...),
		),
	}, nil
}

func (c *commitGlazedCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	settings := &commitSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, settings); err != nil {
		return err
	}
	if strings.TrimSpace(settings.Message) == "" {
		return fmt.Errorf("commit message cannot be empty")
	}

	rt, err := buildRuntime(ctx, commonSettings{
		PolicyPath: settings.PolicyPath,
		Verbose:    settings.Verbose,
		Yes:        settings.Yes,
	})
	if err != nil {
		return err
	}

	results := rt.service.Commit(ctx, orchestrator.CommitOptions{
		Message: settings.Message,
		Actor:   settings.Actor,
		DryRun:  settings.DryRun,
	})
	fmt.Println("Commit:")
	printCommitResults(results)
	if settings.DryRun {
		fmt.Println("Commit planned in dry-run mode.")
	}
	return nil
}

var _ cmds.BareCommand = &commitGlazedCommand{}

type pushGlazedCommand struct {
	*cmds.CommandDescription
}

func newPushGlazedCommand() (cmds.Command, error) {
	return &pushGlazedCommand{
		CommandDescription: cmds.NewCommandDescription(
			"push",
			cmds.WithShort("Push the current branch of every member repository"),
			cmds.WithFlags(commonFlags()...),
		),
	}, nil
}

func (c *pushGlazedCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	settings := &commonSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, settings); err != nil {
		return err
	}

	rt, err := buildRuntime(ctx, *settings)
	if err != nil {
		return err
	}
	fmt.Println("Push:")
	printRepoOpResults(rt.service.Push(ctx))
	return nil
}

var _ cmds.BareCommand = &pushGlazedCommand{}

type pullGlazedCommand struct {
	*cmds.CommandDescription
}

func newPullGlazedCommand() (cmds.Command, error) {
	return &pullGlazedCommand{
		CommandDescription: cmds.NewCommandDescription(
			"pull",
			cmds.WithShort("Pull every member repository"),
			cmds.WithFlags(commonFlags()...),
		),
	}, nil
}

func (c *pullGlazedCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	settings := &commonSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, settings); err != nil {
		return err
	}

	rt, err := buildRuntime(ctx, *settings)
	if err != nil {
		return err
	}
	fmt.Println("Pull:")
	printRepoOpResults(rt.service.Pull(ctx))
	return nil
}

var _ cmds.BareCommand = &pullGlazedCommand{}

type branchSwitchSettings struct {
	PolicyPath string `glazed.parameter:"policy"`
	Verbose    bool   `glazed.parameter:"verbose"`
	Yes        bool   `glazed.parameter:"yes"`
	Branch     string `glazed.parameter:"branch"`
}

func (s branchSwitchSettings) common() commonSettings {
	return commonSettings{
		PolicyPath: s.PolicyPath,
		Verbose:    s.Verbose,
		Yes:        s.Yes,
	}
}

func branchArgument() *parameters.ParameterDefinition {
	return parameters.NewParameterDefinition(
		"branch",
		parameters.ParameterTypeString,
		parameters.WithHelp("Branch name"),
		parameters.WithRequired(true),
	)
}

type checkoutGlazedCommand struct {
	*cmds.CommandDescription
}

func newCheckoutGlazedCommand() (cmds.Command, error) {
	return &checkoutGlazedCommand{
		CommandDescription: cmds.NewCommandDescription(
			"checkout",
			cmds.WithShort("Switch every member repository to a branch"),
			cmds.WithLong("Check out the branch in each member repository, creating a tracking branch when only the remote ref exists. Repositories without the branch report an error and are left untouched."),
			cmds.WithArguments(branchArgument()),
			cmds.WithFlags(commonFlags()...),
		),
	}, nil
}

func (c *checkoutGlazedCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	settings := &branchSwitchSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, settings); err != nil {
		return err
	}
	if strings.TrimSpace(settings.Branch) == "" {
		return fmt.Errorf("branch name cannot be empty")
	}

	rt, err := buildRuntime(ctx, settings.common())
	if err != nil {
		return err
	}
	fmt.Printf("Checkout %s:\n", settings.Branch)
	printRepoOpResults(rt.service.Checkout(ctx, settings.Branch))
	return nil
}

var _ cmds.BareCommand = &checkoutGlazedCommand{}

type branchGlazedCommand struct {
	*cmds.CommandDescription
}

func newBranchGlazedCommand() (cmds.Command, error) {
	return &branchGlazedCommand{
		CommandDescription: cmds.NewCommandDescription(
			"branch",
			cmds.WithShort("Create a branch in every member repository and switch to it"),
			cmds.WithArguments(branchArgument()),
			cmds.WithFlags(commonFlags()...),
		),
	}, nil
}

func (c *branchGlazedCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	settings := &branchSwitchSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, settings); err != nil {
		return err
	}
	if strings.TrimSpace(settings.Branch) == "" {
		return fmt.Errorf("branch name cannot be empty")
	}

	rt, err := buildRuntime(ctx, settings.common())
	if err != nil {
		return err
	}
	fmt.Printf("Branch %s:\n", settings.Branch)
	printRepoOpResults(rt.service.Branch(ctx, settings.Branch))
	return nil
}

var _ cmds.BareCommand = &branchGlazedCommand{}

type policyInitGlazedCommand struct {
	*cmds.CommandDescription
}

type policyInitSettings struct {
	Path string `glazed.parameter:"path"`
}

func newPolicyInitGlazedCommand() (cmds.Command, error) {
	return &policyInitGlazedCommand{
		CommandDescription: cmds.NewCommandDescription(
			"policy-init",
			cmds.WithShort("Write a default policy file"),
			cmds.WithFlags(
				parameters.NewParameterDefinition(
					"path",
					parameters.ParameterTypeString,
					parameters.WithHelp("Path to policy file"),
					parameters.WithDefault(policy.DefaultPolicyPath),
				),
			),
		),
	}, nil
}

func (c *policyInitGlazedCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	_ = ctx
	settings := &policyInitSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, settings); err != nil {
		return err
	}
	if err := policy.SaveDefault(settings.Path); err != nil {
		return err
	}
	fmt.Printf("Wrote default policy to %s\n", settings.Path)
	return nil
}

var _ cmds.BareCommand = &policyInitGlazedCommand{}
