package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestSplitModuleKey(t *testing.T) {
	cases := []struct {
		key   string
		name  string
		field string
		ok    bool
	}{
		{"submodule.api.path", "api", "path", true},
		{"submodule.api.url", "api", "url", true},
		{"submodule.libs/common.path", "libs/common", "path", true},
		{"core.bare", "", "", false},
		{"submodule.", "", "", false},
	}
	for _, tc := range cases {
		name, field, ok := splitModuleKey(tc.key)
		if ok != tc.ok || name != tc.name || field != tc.field {
			t.Errorf("splitModuleKey(%q) = (%q, %q, %t), want (%q, %q, %t)",
				tc.key, name, field, ok, tc.name, tc.field, tc.ok)
		}
	}
}

func TestFindRootWalksUp(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, ".git"), 0o755); err != nil {
		t.Fatalf("mkdir .git: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, ModulesFile), []byte(""), 0o644); err != nil {
		t.Fatalf("write modules file: %v", err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}

	found, err := FindRoot(nested)
	if err != nil {
		t.Fatalf("find root: %v", err)
	}
	resolvedRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}
	resolvedFound, err := filepath.EvalSymlinks(found)
	if err != nil {
		t.Fatalf("eval symlinks: %v", err)
	}
	if resolvedFound != resolvedRoot {
		t.Fatalf("expected root %s, got %s", resolvedRoot, resolvedFound)
	}
}

func TestFindRootFailsOutsideWorkspace(t *testing.T) {
	dir := t.TempDir()
	if _, err := FindRoot(dir); !errors.Is(err, ErrNoConfig) {
		t.Fatalf("expected ErrNoConfig, got %v", err)
	}
}
