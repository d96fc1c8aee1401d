// Package config resolves jig's per-repository settings from jig.toml, the
// user config file and built-in defaults.
package config

import "jig/pkg/protocol"

// RepoConfig is the configuration snapshot stored in the orchestrator
// document when it is first created.
type RepoConfig struct {
	BaseBranch   string `json:"base_branch"`
	WorktreeDir  string `json:"worktree_dir"`
	OnCreateHook string `json:"on_create_hook,omitempty"`
	AutoReview   bool   `json:"auto_review"`
}

// DefaultRepoConfig returns the built-in snapshot.
func DefaultRepoConfig() RepoConfig {
	return RepoConfig{
		BaseBranch:  protocol.DefaultBaseBranch,
		WorktreeDir: protocol.JigDir,
		AutoReview:  true,
	}
}

// HealthConfig holds the detector patterns and escalation threshold.
// Empty pattern lists select the built-in defaults.
type HealthConfig struct {
	PromptPatterns []string `toml:"prompt_patterns"`
	StuckPatterns  []string `toml:"stuck_patterns"`
	MaxNudges      int      `toml:"max_nudges"`
	CaptureLines   int      `toml:"capture_lines"`
}

// Defaults applied when a value is left unset.
const (
	DefaultMaxNudges    = 3
	DefaultCaptureLines = 20
	DefaultAgent        = "claude"
)

// Effective is the fully resolved configuration for one repository.
type Effective struct {
	Repo      RepoConfig
	CopyFiles []string
	AutoSpawn bool
	Agent     string
	Health    HealthConfig
}
