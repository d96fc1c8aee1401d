// Package state persists the orchestrator document: the repository's
// configuration snapshot and the registry of workers.
package state

import (
	"sort"

	"jig/pkg/config"
	"jig/pkg/protocol"
	"jig/pkg/worker"
)

// CurrentVersion is the schema version written by this build.
const CurrentVersion = 1

// OrchestratorState is the whole persisted document for one repository.
type OrchestratorState struct {
	Version  int                          `json:"version"`
	RepoRoot string                       `json:"repo_root"`
	Workers  map[worker.ID]*worker.Worker `json:"workers"`
	Session  string                       `json:"tmux_session"`
	Config   config.RepoConfig            `json:"config"`
}

// New returns an empty document for repoRoot with the given snapshot.
func New(repoRoot string, cfg config.RepoConfig) *OrchestratorState {
	return &OrchestratorState{
		Version:  CurrentVersion,
		RepoRoot: repoRoot,
		Workers:  make(map[worker.ID]*worker.Worker),
		Session:  protocol.SessionName(repoRoot),
		Config:   cfg,
	}
}

// AddWorker registers w. It fails if the id is taken or an active worker
// already uses the name.
func (s *OrchestratorState) AddWorker(w *worker.Worker) error {
	if _, ok := s.Workers[w.ID]; ok {
		return &protocol.AlreadyExistsError{Kind: "worker id", Name: string(w.ID)}
	}
	if existing := s.activeByName(w.Name); existing != nil {
		return &protocol.AlreadyExistsError{Kind: "worker", Name: w.Name}
	}
	s.Workers[w.ID] = w
	return nil
}

// RemoveWorker drops the worker with id and returns it.
func (s *OrchestratorState) RemoveWorker(id worker.ID) (*worker.Worker, bool) {
	w, ok := s.Workers[id]
	if ok {
		delete(s.Workers, id)
	}
	return w, ok
}

// GetWorker looks a worker up by id.
func (s *OrchestratorState) GetWorker(id worker.ID) (*worker.Worker, bool) {
	w, ok := s.Workers[id]
	return w, ok
}

// GetWorkerByName returns the active worker with name, or else the most
// recently updated terminal one.
func (s *OrchestratorState) GetWorkerByName(name string) (*worker.Worker, bool) {
	if w := s.activeByName(name); w != nil {
		return w, true
	}
	var latest *worker.Worker
	for _, w := range s.Workers {
		if w.Name == name && (latest == nil || w.UpdatedAt.After(latest.UpdatedAt)) {
			latest = w
		}
	}
	return latest, latest != nil
}

// ActiveWorkers returns the non-terminal workers sorted by name.
func (s *OrchestratorState) ActiveWorkers() []*worker.Worker {
	var out []*worker.Worker
	for _, w := range s.Workers {
		if w.IsActive() {
			out = append(out, w)
		}
	}
	sortByName(out)
	return out
}

// AllWorkers returns every worker sorted by name, then creation time.
func (s *OrchestratorState) AllWorkers() []*worker.Worker {
	out := make([]*worker.Worker, 0, len(s.Workers))
	for _, w := range s.Workers {
		out = append(out, w)
	}
	sortByName(out)
	return out
}

func (s *OrchestratorState) activeByName(name string) *worker.Worker {
	for _, w := range s.Workers {
		if w.Name == name && w.IsActive() {
			return w
		}
	}
	return nil
}

func sortByName(ws []*worker.Worker) {
	sort.Slice(ws, func(i, j int) bool {
		if ws[i].Name != ws[j].Name {
			return ws[i].Name < ws[j].Name
		}
		return ws[i].CreatedAt.Before(ws[j].CreatedAt)
	})
}
