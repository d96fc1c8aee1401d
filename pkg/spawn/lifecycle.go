package spawn

import (
	"context"
	"errors"
	"fmt"

	"jig/pkg/eventlog"
	"jig/pkg/protocol"
	"jig/pkg/state"
	"jig/pkg/worker"
)

// ErrDirtyWorkingCopy is returned by Merge when the worker has uncommitted changes.
var ErrDirtyWorkingCopy = errors.New("working copy has uncommitted changes")

// ErrNotMerged is returned by MarkMerged when the branch is not in HEAD.
var ErrNotMerged = errors.New("branch is not merged")

// Get returns the active worker called name, or the latest terminal one.
func (c *Coordinator) Get(_ context.Context, name string) (*worker.Worker, error) {
	s, err := c.load()
	if err != nil {
		return nil, err
	}
	w, ok := s.GetWorkerByName(name)
	if !ok {
		return nil, &protocol.NotFoundError{Kind: "worker", Name: name}
	}
	return w, nil
}

// Unregister removes the worker called name from the document and stops
// tracking its health. Its window and working copy are left alone.
func (c *Coordinator) Unregister(ctx context.Context, name string) error {
	return c.unregister(ctx, name, false)
}

func (c *Coordinator) unregister(ctx context.Context, name string, windowKilled bool) error {
	var removed *worker.Worker
	err := c.update(ctx, func(s *state.OrchestratorState) (bool, error) {
		w, ok := s.GetWorkerByName(name)
		if !ok {
			return false, &protocol.NotFoundError{Kind: "worker", Name: name}
		}
		removed, _ = s.RemoveWorker(w.ID)
		return true, nil
	})
	if err != nil {
		return err
	}
	hs := c.loadHealth()
	hs.RemoveWorker(name)
	c.saveHealth(hs)
	c.logger.Info("unregistered worker", "worker", name)
	c.record(ctx, eventlog.TypeKill, removed, map[string]bool{"window_killed": windowKilled})
	return nil
}

// Kill destroys the worker's window and unregisters it. A window with that
// name in the repository session is killed even when no worker is registered.
func (c *Coordinator) Kill(ctx context.Context, name string) error {
	s, err := c.load()
	if err != nil {
		return err
	}
	sessionName, window := c.SessionName(), name
	w, registered := s.GetWorkerByName(name)
	if registered {
		sessionName, window = w.Session, w.Window
	}

	windowLive := c.sessions.WindowExists(ctx, sessionName, window)
	if !registered && !windowLive {
		return &protocol.NotFoundError{Kind: "worker", Name: name}
	}
	if windowLive {
		if err := c.sessions.KillWindow(ctx, sessionName, window); err != nil {
			return err
		}
		c.logger.Info("killed window", "worker", name, "session", sessionName)
	}
	if !registered {
		return nil
	}
	return c.unregister(ctx, name, windowLive)
}

// Attach selects the worker's window and attaches the terminal to its session.
func (c *Coordinator) Attach(ctx context.Context, name string) error {
	sessionName, window := c.SessionName(), name
	if w, err := c.Get(ctx, name); err == nil {
		sessionName, window = w.Session, w.Window
	}
	if !c.sessions.WindowExists(ctx, sessionName, window) {
		return &protocol.NotFoundError{Kind: "window", Name: window}
	}
	if err := c.sessions.SelectWindow(ctx, sessionName, window); err != nil {
		return err
	}
	return c.sessions.Attach(ctx, sessionName)
}

// SetStatus moves the active worker called name to status, enforcing the
// lifecycle graph.
func (c *Coordinator) SetStatus(ctx context.Context, name string, status worker.Status) (*worker.Worker, error) {
	var out *worker.Worker
	var from worker.Kind
	err := c.update(ctx, func(s *state.OrchestratorState) (bool, error) {
		w, err := activeWorker(s, name)
		if err != nil {
			return false, err
		}
		from = w.Status.Kind()
		if err := w.SetStatus(status, c.now()); err != nil {
			return false, err
		}
		out = w
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("status changed", "worker", name, "from", from, "to", status.Kind())
	c.record(ctx, eventlog.TypeStatus, out, statusPayload(from, status))
	return out, nil
}

func statusPayload(from worker.Kind, to worker.Status) map[string]any {
	p := map[string]any{"from": from, "to": to.Kind()}
	if d, ok := to.DiffStats(); ok {
		p["diff_stats"] = d
	}
	if r, ok := to.Reason(); ok {
		p["reason"] = r
	}
	return p
}

// Approve marks a worker under review as approved for merge.
func (c *Coordinator) Approve(ctx context.Context, name string) (*worker.Worker, error) {
	return c.SetStatus(ctx, name, worker.StatusApproved())
}

// Fail marks a worker failed with reason.
func (c *Coordinator) Fail(ctx context.Context, name, reason string) (*worker.Worker, error) {
	return c.SetStatus(ctx, name, worker.StatusFailed(reason))
}

// Archive retires a worker without merging.
func (c *Coordinator) Archive(ctx context.Context, name string) (*worker.Worker, error) {
	w, err := c.SetStatus(ctx, name, worker.StatusArchived())
	if err != nil {
		return nil, err
	}
	c.forgetHealth(name)
	return w, nil
}

// Review summarizes a worker's pending changes.
type Review struct {
	Worker  *worker.Worker
	Commits []string
	Dirty   bool
	Stats   worker.DiffStats
	Diff    string // --stat summary, or the full patch when requested
}

// Review collects commits ahead of base, the dirty flag, diff stats and a
// diff for the worker called name.
func (c *Coordinator) Review(ctx context.Context, name string, full bool) (*Review, error) {
	w, err := c.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	r := &Review{Worker: w}
	if r.Commits, err = c.git.CommitsAhead(ctx, w.WorktreePath, w.BaseBranch); err != nil {
		return nil, err
	}
	if r.Dirty, err = c.git.IsDirty(ctx, w.WorktreePath); err != nil {
		return nil, err
	}
	if r.Stats, err = c.git.DiffStats(ctx, w.WorktreePath, w.BaseBranch); err != nil {
		return nil, err
	}
	if r.Diff, err = c.git.DiffSummary(ctx, w.WorktreePath, w.BaseBranch, full); err != nil {
		return nil, err
	}
	return r, nil
}

// Merge merges an approved worker's branch into the repository's current
// branch, then records it Merged and closes its window.
func (c *Coordinator) Merge(ctx context.Context, name string) (*worker.Worker, error) {
	w, err := c.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if !worker.CanTransition(w.Status.Kind(), worker.KindMerged) {
		return nil, &worker.IllegalTransitionError{From: w.Status.Kind(), To: worker.KindMerged}
	}
	dirty, err := c.git.IsDirty(ctx, w.WorktreePath)
	if err != nil {
		return nil, err
	}
	if dirty {
		return nil, fmt.Errorf("merge %s: %w", name, ErrDirtyWorkingCopy)
	}
	if err := c.git.Merge(ctx, w.Branch); err != nil {
		return nil, err
	}
	c.record(ctx, eventlog.TypeMerge, w, map[string]string{"branch": w.Branch})
	return c.MarkMerged(ctx, name)
}

// MarkMerged confirms an approved worker's branch is an ancestor of HEAD and
// records it Merged, closing its window.
func (c *Coordinator) MarkMerged(ctx context.Context, name string) (*worker.Worker, error) {
	w, err := c.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	merged, err := c.git.IsMerged(ctx, w.Branch, "HEAD")
	if err != nil {
		return nil, err
	}
	if !merged {
		return nil, fmt.Errorf("%s: %w into HEAD", w.Branch, ErrNotMerged)
	}
	w, err = c.SetStatus(ctx, name, worker.StatusMerged())
	if err != nil {
		return nil, err
	}
	if c.sessions.WindowExists(ctx, w.Session, w.Window) {
		if err := c.sessions.KillWindow(ctx, w.Session, w.Window); err != nil {
			c.logger.Warn("close merged worker window", "worker", name, "error", err)
		}
	}
	c.forgetHealth(name)
	return w, nil
}

func (c *Coordinator) forgetHealth(name string) {
	hs := c.loadHealth()
	hs.RemoveWorker(name)
	c.saveHealth(hs)
}
