// Package protocol holds the on-disk layout, error kinds and naming rules
// shared by every jig package.
package protocol

import "path/filepath"

// Directory and path constants used throughout jig.
const (
	// JigDir is the per-repository directory holding working copies and
	// jig's own hidden state directories.
	JigDir = ".jig"

	// StateDir holds the orchestrator document, its lock and the event journal.
	StateDir = ".state"

	// StateFile is the orchestrator document name inside StateDir.
	StateFile = "orchestrator.json"

	// LockFile guards read-modify-write cycles on StateFile.
	LockFile = "orchestrator.lock"

	// EventsFile is the SQLite lifecycle journal inside StateDir.
	EventsFile = "events.db"

	// HealthDir holds the health telemetry document.
	HealthDir = ".health"

	// HealthFile is the health telemetry document name inside HealthDir.
	HealthFile = "state.json"

	// LegacyWorktreesDir is the pre-.jig location of working copies.
	LegacyWorktreesDir = ".worktrees"

	// LegacyStateFile is the orchestrator document name inside LegacyWorktreesDir.
	LegacyStateFile = ".jig-state.json"

	// ProjectConfigFile is the per-repository configuration file at the repo root.
	ProjectConfigFile = "jig.toml"

	// SessionPrefix prefixes the terminal-multiplexer session of a repository.
	SessionPrefix = "jig-"

	// DefaultBaseBranch is used when no configuration names a base branch.
	DefaultBaseBranch = "origin/main"
)

// StatePath returns the orchestrator document path for repoRoot.
func StatePath(repoRoot string) string {
	return filepath.Join(repoRoot, JigDir, StateDir, StateFile)
}

// LockPath returns the orchestrator lock file path for repoRoot.
func LockPath(repoRoot string) string {
	return filepath.Join(repoRoot, JigDir, StateDir, LockFile)
}

// EventsPath returns the event journal path for repoRoot.
func EventsPath(repoRoot string) string {
	return filepath.Join(repoRoot, JigDir, StateDir, EventsFile)
}

// HealthPath returns the health telemetry document path for repoRoot.
func HealthPath(repoRoot string) string {
	return filepath.Join(repoRoot, JigDir, HealthDir, HealthFile)
}

// LegacyStatePath returns the pre-migration orchestrator document path.
func LegacyStatePath(repoRoot string) string {
	return filepath.Join(repoRoot, LegacyWorktreesDir, LegacyStateFile)
}

// SessionName derives the session name for a repository: "jig-" followed by
// the repository's directory name, or "jig-unknown" when it has none.
func SessionName(repoRoot string) string {
	base := filepath.Base(filepath.Clean(repoRoot))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "unknown"
	}
	return SessionPrefix + base
}
