package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-go-golems/glazed/pkg/cmds"
	"github.com/go-go-golems/glazed/pkg/cmds/layers"
	"github.com/go-go-golems/glazed/pkg/cmds/parameters"

	"wsm/internal/orchestrator"
)

type prGlazedCommand struct {
	*cmds.CommandDescription
}

type prSettings struct {
	PolicyPath  string `glazed.parameter:"policy"`
	Verbose     bool   `glazed.parameter:"verbose"`
	Yes         bool   `glazed.parameter:"yes"`
	Title       string `glazed.parameter:"title"`
	Description string `glazed.parameter:"description"`
	Actor       string `glazed.parameter:"actor"`
	DryRun      bool   `glazed.parameter:"dry-run"`
}

func newPRGlazedCommand() (cmds.Command, error) {
	return &prGlazedCommand{
		CommandDescription: cmds.NewCommandDescription(
			"pr",
			cmds.WithShort("Open pull/merge requests for every member repository with changes"),
			cmds.WithLong("Commit and push dirty member repositories, open a request per repository whose branch differs from the target, then cross-link the created requests through description updates and a shared annotated tag."),
			cmds.WithArguments(
				parameters.NewParameterDefinition(
					"title",
					parameters.ParameterTypeString,
					parameters.WithHelp("Request title (also used as the commit message)"),
					parameters.WithRequired(true),
				),
			),
			cmds.WithFlags(append(commonFlags(),
				parameters.NewParameterDefinition(
					"description",
					parameters.ParameterTypeString,
					parameters.WithHelp("Request description"),
					parameters.WithDefault(""),
				),
				parameters.NewParameterDefinition(
					"actor",
					parameters.ParameterTypeString,
					parameters.WithHelp("Acting user (defaults to git user.name)"),
					parameters.WithDefault(""),
				),
				parameters.NewParameterDefinition(
					"dry-run",
					parameters.ParameterTypeBool,
					parameters.WithHelp("Plan only; do not commit, push, or publish"),
					parameters.WithDefault(false),
				),
			)...),
		),
	}, nil
}

func (c *prGlazedCommand) Run(ctx context.Context, parsedLayers *layers.ParsedLayers) error {
	settings := &prSettings{}
	if err := parsedLayers.InitializeStruct(layers.DefaultSlug, settings); err != nil {
		return err
	}
	if strings.TrimSpace(settings.Title) == "" {
		return fmt.Errorf("request title cannot be empty")
	}

	rt, err := buildRuntime(ctx, commonSettings{
		PolicyPath: settings.PolicyPath,
		Verbose:    settings.Verbose,
		Yes:        settings.Yes,
	})
	if err != nil {
		return err
	}

	result := rt.service.OpenPullRequests(ctx, orchestrator.PublishOptions{
		Title:       settings.Title,
		Description: settings.Description,
		Actor:       settings.Actor,
		DryRun:      settings.DryRun,
	})

	fmt.Println("Commit:")
	printCommitResults(result.Commits)
	fmt.Println("Requests:")
	for _, repo := range result.Repos {
		switch {
		case repo.ErrorText != "":
			fmt.Printf("  - %s error=%s\n", repo.Repo, repo.ErrorText)
		case repo.SkippedReason != "":
			fmt.Printf("  - %s skipped (%s)\n", repo.Repo, repo.SkippedReason)
		default:
			fmt.Printf("  - %s %s -> %s %s cross-linked=%t tagged=%t\n",
				repo.Repo, repo.SourceBranch, repo.TargetBranch, repo.URL,
				repo.DescriptionUpdated, repo.TagCreated)
		}
	}
	if result.TaskName != "" {
		fmt.Printf("Task: %s\n", result.TaskName)
	}
	if result.Tag != "" {
		fmt.Printf("Cross-link tag: %s\n", result.Tag)
	}
	if settings.DryRun {
		fmt.Println("Publish planned in dry-run mode.")
	}
	return nil
}

var _ cmds.BareCommand = &prGlazedCommand{}
