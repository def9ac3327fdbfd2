package workspace

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"wsm/internal/forge"
	"wsm/internal/gitx"
	"wsm/internal/model"
)

const ModulesFile = ".gitmodules"

var (
	// ErrNotAWorkspace means the directory is not a git repository at all.
	ErrNotAWorkspace = errors.New("not inside a git repository")
	// ErrNoConfig means the parent repository declares no members. Fatal,
	// never retried.
	ErrNoConfig = errors.New("workspace configuration (.gitmodules) not found")
)

// Workspace is read once per invocation and never mutated.
type Workspace struct {
	Root    string
	Members []model.MemberRepo
}

type Scanner struct {
	git *gitx.Runner
}

func NewScanner(git *gitx.Runner) *Scanner {
	return &Scanner{git: git}
}

// FindRoot walks up from start until it finds a directory that carries both a
// .git entry and a .gitmodules file.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			if _, err := os.Stat(filepath.Join(dir, ModulesFile)); err == nil {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrNoConfig
		}
		dir = parent
	}
}

// Scan enumerates the member repositories in declaration order and resolves
// each remote URL and platform.
func (s *Scanner) Scan(ctx context.Context, root string, defaultPlatform model.Platform) (Workspace, error) {
	ws := Workspace{Root: root}
	if _, err := os.Stat(filepath.Join(root, ".git")); err != nil {
		return ws, ErrNotAWorkspace
	}
	modulesPath := filepath.Join(root, ModulesFile)
	if _, err := os.Stat(modulesPath); err != nil {
		return ws, ErrNoConfig
	}

	lines, err := s.git.ConfigList(ctx, root, modulesPath)
	if err != nil {
		return ws, fmt.Errorf("read %s: %w", ModulesFile, err)
	}
	for _, line := range lines {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name, field, ok := splitModuleKey(key)
		if !ok || field != "path" {
			continue
		}
		member := model.MemberRepo{
			Name: name,
			Path: filepath.Join(root, value),
		}
		remote, err := s.git.RemoteURL(ctx, member.Path)
		if err == nil {
			member.RemoteURL = remote
		}
		member.Platform = forge.Resolve(member.RemoteURL, defaultPlatform)
		ws.Members = append(ws.Members, member)
	}
	if len(ws.Members) == 0 {
		return ws, ErrNoConfig
	}
	return ws, nil
}

// splitModuleKey breaks "submodule.<name>.path" into name and trailing field.
func splitModuleKey(key string) (name string, field string, ok bool) {
	rest, found := strings.CutPrefix(key, "submodule.")
	if !found {
		return "", "", false
	}
	idx := strings.LastIndex(rest, ".")
	if idx <= 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}
