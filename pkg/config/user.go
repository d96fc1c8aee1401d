package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// UserConfig is the per-user file at $XDG_CONFIG_HOME/jig/config.yaml:
//
//	base: origin/main
//	repos:
//	  /home/me/src/app:
//	    base: origin/develop
//	    on_create: make setup
type UserConfig struct {
	Base  string               `yaml:"base"`
	Repos map[string]RepoEntry `yaml:"repos"`
}

// RepoEntry holds per-repository overrides in the user config.
type RepoEntry struct {
	Base     string `yaml:"base"`
	OnCreate string `yaml:"on_create"`
}

// UserConfigDir returns the directory holding config.yaml. JIG_CONFIG_HOME
// wins, then XDG_CONFIG_HOME/jig, then ~/.config/jig.
func UserConfigDir() (string, error) {
	if v := os.Getenv("JIG_CONFIG_HOME"); v != "" {
		return v, nil
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "jig"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".config", "jig"), nil
}

// LoadUserConfig reads config.yaml from dir. A missing file yields an empty config.
func LoadUserConfig(dir string) (*UserConfig, error) {
	path := filepath.Join(dir, "config.yaml")
	data, err := os.ReadFile(path) //nolint:gosec // user-owned config path
	if errors.Is(err, fs.ErrNotExist) {
		return &UserConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var uc UserConfig
	if err := yaml.Unmarshal(data, &uc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &uc, nil
}

// repo returns the entry for repoRoot, if any.
func (u *UserConfig) repo(repoRoot string) (RepoEntry, bool) {
	if u == nil || u.Repos == nil {
		return RepoEntry{}, false
	}
	e, ok := u.Repos[filepath.Clean(repoRoot)]
	return e, ok
}
