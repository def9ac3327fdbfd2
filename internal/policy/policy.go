package policy

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wsm/internal/model"
)

const DefaultPolicyPath = ".wsm/policy.json"

type Config struct {
	Version  int `json:"version"`
	Platform struct {
		Default string `json:"default"`
	} `json:"platform"`
	Git struct {
		BaseBranch   string `json:"base_branch"`
		BranchPrefix string `json:"branch_prefix"`
		TagPrefix    string `json:"tag_prefix"`
	} `json:"git"`
	Execution struct {
		MaxParallel       int `json:"max_parallel"`
		RequestTimeoutSec int `json:"request_timeout_sec"`
	} `json:"execution"`
	Confirm struct {
		NonInteractive      bool `json:"non_interactive"`
		ConfirmBranchCreate bool `json:"confirm_branch_create"`
	} `json:"confirm"`
}

func Default() Config {
	cfg := Config{
		Version: 1,
	}
	cfg.Platform.Default = string(model.PlatformGitHub)
	cfg.Git.BaseBranch = "main"
	cfg.Git.BranchPrefix = "feature"
	cfg.Git.TagPrefix = "wsm"
	cfg.Execution.MaxParallel = 4
	cfg.Execution.RequestTimeoutSec = 30
	cfg.Confirm.NonInteractive = false
	cfg.Confirm.ConfirmBranchCreate = true
	return cfg
}

func Load(path string) (Config, string, error) {
	cfg := Default()
	finalPath := path
	if strings.TrimSpace(finalPath) == "" {
		finalPath = DefaultPolicyPath
	}
	if _, err := os.Stat(finalPath); os.IsNotExist(err) {
		return cfg, finalPath, nil
	}

	b, err := os.ReadFile(finalPath)
	if err != nil {
		return cfg, finalPath, fmt.Errorf("read policy %s: %w", finalPath, err)
	}
	if err := json.Unmarshal(b, &cfg); err != nil {
		return cfg, finalPath, fmt.Errorf("parse policy %s: %w", finalPath, err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, finalPath, fmt.Errorf("validate policy %s: %w", finalPath, err)
	}
	return cfg, finalPath, nil
}

func SaveDefault(path string) error {
	cfg := Default()
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func Validate(cfg Config) error {
	if cfg.Version <= 0 {
		return fmt.Errorf("version must be positive")
	}
	platform := model.Platform(cfg.Platform.Default)
	switch platform {
	case model.PlatformGitHub, model.PlatformGitLab, model.PlatformUnknown:
	default:
		return fmt.Errorf("platform.default must be github|gitlab|unknown")
	}
	if strings.TrimSpace(cfg.Git.BaseBranch) == "" {
		return fmt.Errorf("git.base_branch cannot be empty")
	}
	if strings.TrimSpace(cfg.Git.BranchPrefix) == "" {
		return fmt.Errorf("git.branch_prefix cannot be empty")
	}
	if cfg.Execution.MaxParallel <= 0 {
		return fmt.Errorf("execution.max_parallel must be > 0")
	}
	if cfg.Execution.RequestTimeoutSec <= 0 {
		return fmt.Errorf("execution.request_timeout_sec must be > 0")
	}
	return nil
}

func (c Config) DefaultPlatform() model.Platform {
	return model.Platform(c.Platform.Default)
}
