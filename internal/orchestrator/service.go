package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wsm/internal/forge"
	"wsm/internal/gitx"
	"wsm/internal/model"
	"wsm/internal/policy"
	"wsm/internal/workspace"
)

// Confirmer answers yes/no prompts. Non-interactive runs inject AutoConfirm.
type Confirmer interface {
	Confirm(prompt string) bool
}

type autoConfirm struct{}

func (autoConfirm) Confirm(string) bool { return true }

// AutoConfirm accepts every prompt.
func AutoConfirm() Confirmer { return autoConfirm{} }

// ClientFactory returns the forge client for a platform, or nil when the
// platform is not usable.
type ClientFactory func(platform model.Platform) forge.Client

type Params struct {
	Git       *gitx.Runner
	Workspace workspace.Workspace
	Policy    policy.Config
	Clients   ClientFactory
	Confirm   Confirmer
	Log       zerolog.Logger
}

// Service orchestrates per-repository operations across the workspace. It
// holds no state across invocations; branch and diff state is recomputed on
// every call.
type Service struct {
	git          *gitx.Runner
	ws           workspace.Workspace
	cfg          policy.Config
	clients      ClientFactory
	confirm      Confirmer
	log          zerolog.Logger
	invocationID string
	now          func() time.Time
}

func NewService(params Params) *Service {
	confirm := params.Confirm
	if confirm == nil {
		confirm = AutoConfirm()
	}
	clients := params.Clients
	if clients == nil {
		clients = func(model.Platform) forge.Client { return nil }
	}
	return &Service{
		git:          params.Git,
		ws:           params.Workspace,
		cfg:          params.Policy,
		clients:      clients,
		confirm:      confirm,
		log:          params.Log,
		invocationID: uuid.NewString(),
		now:          time.Now,
	}
}

// InvocationID identifies one CLI run in logs and cross-link tag messages.
func (s *Service) InvocationID() string { return s.invocationID }

// forEachRepo fans one worker out per member repository, capped by the
// policy's max_parallel. Workers write results by index, so no two touch the
// same slot. Fan-in completes before any result is read.
func (s *Service) forEachRepo(fn func(index int, member model.MemberRepo)) {
	limit := s.cfg.Execution.MaxParallel
	if limit <= 0 {
		limit = 1
	}
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i, member := range s.ws.Members {
		wg.Add(1)
		go func(index int, member model.MemberRepo) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			fn(index, member)
		}(i, member)
	}
	wg.Wait()
}

// resolveActor picks the acting user: explicit override first, then the
// repository's configured git identity.
func (s *Service) resolveActor(ctx context.Context, override string, repoPath string) string {
	if override != "" {
		return override
	}
	name, _ := s.git.ConfigValue(ctx, repoPath, "user.name")
	if name == "" {
		return "unknown"
	}
	return name
}
