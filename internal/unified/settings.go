package unified

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Settings is the persisted client configuration for the aggregator.
// Repos holds one repository URL per line.
type Settings struct {
	BackendURL string `yaml:"backend_url"`
	Token      string `yaml:"token"`
	Username   string `yaml:"username"`
	Repos      string `yaml:"repos"`
}

func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".wsm", "client.yaml")
	}
	return filepath.Join(home, ".wsm", "client.yaml")
}

func LoadSettings(path string) (Settings, error) {
	settings := Settings{}
	if strings.TrimSpace(path) == "" {
		path = DefaultSettingsPath()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("read client settings %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &settings); err != nil {
		return settings, fmt.Errorf("parse client settings %s: %w", path, err)
	}
	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("validate client settings %s: %w", path, err)
	}
	return settings, nil
}

func (s Settings) Validate() error {
	if strings.TrimSpace(s.BackendURL) == "" {
		return fmt.Errorf("backend_url cannot be empty")
	}
	if strings.TrimSpace(s.Username) == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if len(s.RepoURLs()) == 0 {
		return fmt.Errorf("repos cannot be empty")
	}
	return nil
}

// RepoURLs splits the newline-separated repository list, dropping blanks.
func (s Settings) RepoURLs() []string {
	lines := strings.Split(s.Repos, "\n")
	urls := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		urls = append(urls, line)
	}
	return urls
}
