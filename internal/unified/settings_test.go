package unified

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSettingsParsesRepoList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	content := "backend_url: http://localhost:8000\ntoken: glpat-xyz\nusername: reviewer\nrepos: |\n  https://github.com/acme/api\n\n  https://gitlab.example.com/acme/web\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", settings.BackendURL)
	assert.Equal(t, []string{
		"https://github.com/acme/api",
		"https://gitlab.example.com/acme/web",
	}, settings.RepoURLs())
}

func TestLoadSettingsRejectsMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend_url: http://localhost:8000\n"), 0o644))

	_, err := LoadSettings(path)
	require.Error(t, err)
}

func TestLoadSettingsMissingFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
