package health

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"jig/pkg/atomicfile"
	"jig/pkg/config"
)

// schemaVersion is the health document version.
const schemaVersion = "1"

// Nudge types used by the coordinator. Any string is accepted.
const (
	NudgeIdle  = "idle"
	NudgeStuck = "stuck"
)

// WorkerHealth is the telemetry for one worker. Times are unix seconds; zero
// means "never".
type WorkerHealth struct {
	StartedAt     int64          `json:"started_at"`
	LastCommitAt  int64          `json:"last_commit_at"`
	CommitCount   int            `json:"commit_count"`
	LastFileModAt int64          `json:"last_file_mod_at"`
	Nudges        map[string]int `json:"nudges"`
}

// State is the health document for one repository, keyed by worker name.
type State struct {
	Version   string                   `json:"version"`
	MaxNudges int                      `json:"max_nudges"`
	Workers   map[string]*WorkerHealth `json:"workers"`
}

// NewState returns an empty document.
func NewState() *State {
	return &State{
		Version:   schemaVersion,
		MaxNudges: config.DefaultMaxNudges,
		Workers:   make(map[string]*WorkerHealth),
	}
}

// Load reads the health document at path. A missing or unreadable document
// yields an empty one; telemetry loss is logged, never fatal.
func Load(path string, logger *slog.Logger) *State {
	data, err := os.ReadFile(path) //nolint:gosec // path derived from repo root
	if errors.Is(err, fs.ErrNotExist) {
		return NewState()
	}
	if err != nil {
		logger.Warn("health state unreadable, starting empty", "path", path, "error", err)
		return NewState()
	}
	s := NewState()
	if err := json.Unmarshal(data, s); err != nil {
		logger.Warn("health state corrupt, starting empty", "path", path, "error", err)
		return NewState()
	}
	if s.Workers == nil {
		s.Workers = make(map[string]*WorkerHealth)
	}
	if s.MaxNudges <= 0 {
		s.MaxNudges = config.DefaultMaxNudges
	}
	for _, w := range s.Workers {
		if w.Nudges == nil {
			w.Nudges = make(map[string]int)
		}
	}
	return s
}

// Save writes the document atomically to path.
func (s *State) Save(path string) error {
	return atomicfile.WriteJSON(path, s)
}

// AddWorker starts tracking name. Re-adding resets its telemetry.
func (s *State) AddWorker(name string, startedAt time.Time) *WorkerHealth {
	w := &WorkerHealth{StartedAt: startedAt.Unix(), Nudges: make(map[string]int)}
	s.Workers[name] = w
	return w
}

// RemoveWorker stops tracking name.
func (s *State) RemoveWorker(name string) {
	delete(s.Workers, name)
}

// Worker returns the telemetry for name.
func (s *State) Worker(name string) (*WorkerHealth, bool) {
	w, ok := s.Workers[name]
	return w, ok
}

// IncrementNudge bumps the counter for nudgeType and returns the new value.
func (w *WorkerHealth) IncrementNudge(nudgeType string) int {
	if w.Nudges == nil {
		w.Nudges = make(map[string]int)
	}
	w.Nudges[nudgeType]++
	return w.Nudges[nudgeType]
}

// ResetNudge clears the counter for nudgeType.
func (w *WorkerHealth) ResetNudge(nudgeType string) {
	delete(w.Nudges, nudgeType)
}

// NudgeCount returns the counter for nudgeType, zero when absent.
func (w *WorkerHealth) NudgeCount(nudgeType string) int {
	return w.Nudges[nudgeType]
}

// RecordCommits stores the latest commit time and count.
func (w *WorkerHealth) RecordCommits(lastCommit time.Time, count int) {
	if !lastCommit.IsZero() {
		w.LastCommitAt = lastCommit.Unix()
	}
	w.CommitCount = count
}

// RecordFileMod stores t when it is newer than the recorded file activity.
func (w *WorkerHealth) RecordFileMod(t time.Time) {
	if u := t.Unix(); !t.IsZero() && u > w.LastFileModAt {
		w.LastFileModAt = u
	}
}

// SinceFileMod is the time since a file in the working copy last changed, or
// Age when no change has been seen.
func (w *WorkerHealth) SinceFileMod(now time.Time) time.Duration {
	if w.LastFileModAt == 0 {
		return w.Age(now)
	}
	return since(now, w.LastFileModAt)
}

// Age is the time since tracking started, never negative.
func (w *WorkerHealth) Age(now time.Time) time.Duration {
	return since(now, w.StartedAt)
}

// SinceCommit is the time since the last commit, or Age when there has been none.
func (w *WorkerHealth) SinceCommit(now time.Time) time.Duration {
	if w.LastCommitAt == 0 {
		return w.Age(now)
	}
	return since(now, w.LastCommitAt)
}

// AgeHours is Age in whole hours.
func (w *WorkerHealth) AgeHours(now time.Time) int {
	return int(w.Age(now) / time.Hour)
}

// HoursSinceCommit is SinceCommit in whole hours.
func (w *WorkerHealth) HoursSinceCommit(now time.Time) int {
	return int(w.SinceCommit(now) / time.Hour)
}

func since(now time.Time, unix int64) time.Duration {
	d := now.Sub(time.Unix(unix, 0))
	if d < 0 {
		return 0
	}
	return d
}
