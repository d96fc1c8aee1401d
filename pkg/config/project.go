package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"jig/pkg/protocol"
)

// ProjectFile mirrors jig.toml at the repository root.
type ProjectFile struct {
	Worktree WorktreeSection `toml:"worktree"`
	Spawn    SpawnSection    `toml:"spawn"`
	Agent    AgentSection    `toml:"agent"`
	Review   ReviewSection   `toml:"review"`
	Health   HealthConfig    `toml:"health"`
}

// WorktreeSection configures working-copy creation.
type WorktreeSection struct {
	Base     string   `toml:"base"`
	OnCreate string   `toml:"on_create"`
	Copy     []string `toml:"copy"`
	Dir      string   `toml:"dir"`
}

// SpawnSection configures agent startup.
type SpawnSection struct {
	Auto bool `toml:"auto"`
}

// AgentSection selects the agent adapter.
type AgentSection struct {
	Type string `toml:"type"`
}

// ReviewSection configures the automatic Running -> WaitingReview transition.
// Auto is a pointer so an absent key keeps the default of true.
type ReviewSection struct {
	Auto *bool `toml:"auto"`
}

// LoadProjectFile reads jig.toml from repoRoot. A missing file yields the
// zero ProjectFile.
func LoadProjectFile(repoRoot string) (*ProjectFile, error) {
	path := filepath.Join(repoRoot, protocol.ProjectConfigFile)
	data, err := os.ReadFile(path) //nolint:gosec // path is repoRoot + fixed name
	if errors.Is(err, fs.ErrNotExist) {
		return &ProjectFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var pf ProjectFile
	if err := toml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &pf, nil
}
