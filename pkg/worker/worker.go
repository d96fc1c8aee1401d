// Package worker defines a single agent worker: its identity, its working
// copy and window, its optional task context and its lifecycle status.
package worker

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ID uniquely identifies a worker for the lifetime of the orchestrator document.
type ID string

// NewID returns a fresh random worker id.
func NewID() ID {
	return ID(uuid.NewString())
}

// TaskContext is the free-form assignment handed to the agent at spawn.
type TaskContext struct {
	Description string   `json:"description"`
	IssueRef    string   `json:"issue_ref,omitempty"`
	FilesHint   []string `json:"files_hint,omitempty"`
}

// FileDiff is the per-file part of DiffStats.
type FileDiff struct {
	Path       string `json:"path"`
	Insertions int    `json:"insertions"`
	Deletions  int    `json:"deletions"`
}

// DiffStats summarizes pending changes relative to the base branch.
type DiffStats struct {
	FilesChanged int        `json:"files_changed"`
	Insertions   int        `json:"insertions"`
	Deletions    int        `json:"deletions"`
	Files        []FileDiff `json:"files,omitempty"`
}

// Empty reports whether there are no pending changes.
func (d DiffStats) Empty() bool {
	return d.FilesChanged == 0 && d.Insertions == 0 && d.Deletions == 0
}

func (d DiffStats) String() string {
	return fmt.Sprintf("%d files, +%d -%d", d.FilesChanged, d.Insertions, d.Deletions)
}

// Worker is one agent working on one branch in one working copy.
type Worker struct {
	ID           ID           `json:"id"`
	Name         string       `json:"name"`
	WorktreePath string       `json:"worktree_path"`
	Branch       string       `json:"branch"`
	BaseBranch   string       `json:"base_branch"`
	Session      string       `json:"tmux_session"`
	Window       string       `json:"tmux_window"`
	Status       Status       `json:"status"`
	Task         *TaskContext `json:"task_context,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// New returns a Spawned worker whose window is named after the worker.
func New(name, worktreePath, branch, baseBranch, session string, now time.Time) *Worker {
	return &Worker{
		ID:           NewID(),
		Name:         name,
		WorktreePath: worktreePath,
		Branch:       branch,
		BaseBranch:   baseBranch,
		Session:      session,
		Window:       name,
		Status:       StatusSpawned(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsActive reports whether the worker is in a non-terminal state.
func (w *Worker) IsActive() bool {
	return !w.Status.IsTerminal()
}

// SetStatus moves the worker along a lifecycle edge. WaitingReview may be
// re-entered to refresh its diff stats.
func (w *Worker) SetStatus(s Status, now time.Time) error {
	from, to := w.Status.Kind(), s.Kind()
	if !(from == KindWaitingReview && to == KindWaitingReview) && !CanTransition(from, to) {
		return &IllegalTransitionError{From: from, To: to}
	}
	w.Status = s
	w.touch(now)
	return nil
}

// SetTask attaches or replaces the task context.
func (w *Worker) SetTask(task *TaskContext, now time.Time) {
	w.Task = task
	w.touch(now)
}

// touch advances UpdatedAt; it never moves backwards on clock skew.
func (w *Worker) touch(now time.Time) {
	if now.After(w.UpdatedAt) {
		w.UpdatedAt = now
	}
}
