package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"jig/pkg/atomicfile"
	"jig/pkg/config"
	"jig/pkg/protocol"
	"jig/pkg/worker"
)

// Load reads the orchestrator document for repoRoot, first migrating a
// legacy .worktrees layout if one is present. It returns (nil, nil) when no
// document exists and a *protocol.CorruptStateError when one exists but
// cannot be parsed.
func Load(repoRoot string) (*OrchestratorState, error) {
	if _, err := Migrate(repoRoot); err != nil {
		return nil, fmt.Errorf("migrate legacy layout: %w", err)
	}
	return loadFile(protocol.StatePath(repoRoot))
}

func loadFile(path string) (*OrchestratorState, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path derived from repo root
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	return decode(path, data)
}

func decode(path string, data []byte) (*OrchestratorState, error) {
	var s OrchestratorState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &protocol.CorruptStateError{Path: path, Err: err}
	}
	switch {
	case s.Version == 0:
		// Documents written before versioning carry no field.
		s.Version = CurrentVersion
	case s.Version > CurrentVersion:
		return nil, &protocol.CorruptStateError{
			Path: path,
			Err:  fmt.Errorf("schema version %d is newer than supported version %d", s.Version, CurrentVersion),
		}
	}
	if s.Workers == nil {
		s.Workers = make(map[worker.ID]*worker.Worker)
	}
	for id, w := range s.Workers {
		if w == nil || w.ID != id {
			return nil, &protocol.CorruptStateError{Path: path, Err: fmt.Errorf("worker entry %q does not match its key", id)}
		}
	}
	return &s, nil
}

// LoadOrCreate returns the existing document or a fresh one built from cfg.
// The fresh document is not saved.
func LoadOrCreate(repoRoot string, cfg config.RepoConfig) (*OrchestratorState, error) {
	s, err := Load(repoRoot)
	if err != nil {
		return nil, err
	}
	if s == nil {
		s = New(repoRoot, cfg)
	}
	return s, nil
}

// Save writes the document atomically to its path under RepoRoot.
func (s *OrchestratorState) Save() error {
	if err := atomicfile.WriteJSON(protocol.StatePath(s.RepoRoot), s); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}
