package spawn

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"jig/pkg/eventlog"
	"jig/pkg/protocol"
	"jig/pkg/session"
	"jig/pkg/state"
	"jig/pkg/worker"
)

// SpawnRequest describes a new worker.
type SpawnRequest struct {
	Name      string
	Context   string   // task description handed to the agent; may be empty
	IssueRef  string   // optional tracker reference stored with the task
	FilesHint []string // optional files the task is expected to touch
	Auto      bool     // launch the agent in auto mode
	NoHooks   bool     // skip the on-create hook for a fresh working copy
}

// RegisterRequest adds an existing working copy to the document.
type RegisterRequest struct {
	Name         string
	WorktreePath string
	Branch       string
	Task         *worker.TaskContext
}

// Spawn creates (or reuses) the working copy, registers the worker, opens
// its window and starts the agent. Steps run in that order. A failure after
// registration leaves the worker recorded as Failed with the reason; the
// working copy is never rolled back.
func (c *Coordinator) Spawn(ctx context.Context, req SpawnRequest) (*worker.Worker, error) {
	if err := protocol.ValidateWorkerName(req.Name); err != nil {
		return nil, err
	}
	if err := c.CheckDependencies(); err != nil {
		return nil, err
	}
	sessionName := c.SessionName()
	if err := c.ensureNameFree(ctx, sessionName, req.Name); err != nil {
		return nil, err
	}

	path := c.WorktreePath(req.Name)
	log := c.logger.With("worker", req.Name, "session", sessionName, "path", path)

	created, err := c.ensureWorktree(ctx, path, req.Name)
	if err != nil {
		log.Error("create working copy", "error", err)
		return nil, err
	}
	if created {
		c.copyFiles(path)
		if !req.NoHooks {
			c.runOnCreate(ctx, path)
		}
	}

	branch, err := c.git.CurrentBranch(ctx, path)
	if err != nil {
		log.Warn("read branch, assuming worker name", "error", err)
		branch = req.Name
	}

	var task *worker.TaskContext
	if req.Context != "" || req.IssueRef != "" || len(req.FilesHint) > 0 {
		task = &worker.TaskContext{Description: req.Context, IssueRef: req.IssueRef, FilesHint: req.FilesHint}
	}
	w, err := c.Register(ctx, RegisterRequest{Name: req.Name, WorktreePath: path, Branch: branch, Task: task})
	if err != nil {
		return nil, err
	}

	if err := c.sessions.CreateWindow(ctx, w.Session, w.Window, path); err != nil {
		log.Error("create window", "error", err)
		c.markFailed(ctx, w, "window creation failed: "+err.Error())
		return w, fmt.Errorf("create window for %s: %w", w.Name, err)
	}

	command := c.agent.SpawnCommand(req.Context, req.Auto || c.cfg.AutoSpawn)
	if err := c.sessions.SendKeys(ctx, w.Session, w.Window, command); err != nil {
		log.Error("start agent", "error", err)
		c.markFailed(ctx, w, "agent start failed: "+err.Error())
		return w, fmt.Errorf("start agent for %s: %w", w.Name, err)
	}

	log.Info("spawned worker", "branch", w.Branch, "id", w.ID)
	return w, nil
}

// ensureNameFree rejects a name held by an active worker or an existing window.
func (c *Coordinator) ensureNameFree(ctx context.Context, sessionName, name string) error {
	s, err := c.load()
	if err != nil {
		return err
	}
	if w, ok := s.GetWorkerByName(name); ok && w.IsActive() {
		return &protocol.AlreadyExistsError{Kind: "worker", Name: name}
	}
	if c.sessions.WindowExists(ctx, sessionName, name) {
		return &protocol.AlreadyExistsError{Kind: "window", Name: session.Target(sessionName, name)}
	}
	return nil
}

// ensureWorktree creates the working copy unless path already exists.
func (c *Coordinator) ensureWorktree(ctx context.Context, path, name string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		c.logger.Info("reusing existing working copy", "worker", name, "path", path)
		return false, nil
	}
	if err := c.git.EnsureExcluded(ctx, "/"+c.cfg.Repo.WorktreeDir+"/"); err != nil {
		c.logger.Warn("add working-copy dir to git exclude", "error", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create working-copy parent: %w", err)
	}
	if err := c.git.CreateWorktree(ctx, path, name, c.cfg.Repo.BaseBranch); err != nil {
		return false, err
	}
	return true, nil
}

// Register adds a worker for an existing working copy and starts tracking
// its health. The worker starts Spawned.
func (c *Coordinator) Register(ctx context.Context, req RegisterRequest) (*worker.Worker, error) {
	if err := protocol.ValidateWorkerName(req.Name); err != nil {
		return nil, err
	}
	now := c.now()
	var w *worker.Worker
	err := c.update(ctx, func(s *state.OrchestratorState) (bool, error) {
		w = worker.New(req.Name, req.WorktreePath, req.Branch, c.cfg.Repo.BaseBranch, s.Session, now)
		if req.Task != nil {
			w.SetTask(req.Task, now)
		}
		if err := s.AddWorker(w); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	hs := c.loadHealth()
	hs.AddWorker(w.Name, now)
	c.saveHealth(hs)
	c.record(ctx, eventlog.TypeSpawn, w, map[string]string{"branch": w.Branch, "path": w.WorktreePath})
	return w, nil
}

// markFailed records a post-registration failure. It is best-effort: the
// original error is what the caller sees.
func (c *Coordinator) markFailed(ctx context.Context, w *worker.Worker, reason string) {
	err := c.update(ctx, func(s *state.OrchestratorState) (bool, error) {
		stored, ok := s.GetWorker(w.ID)
		if !ok {
			return false, nil
		}
		if err := stored.SetStatus(worker.StatusFailed(reason), c.now()); err != nil {
			return false, err
		}
		*w = *stored
		return true, nil
	})
	if err != nil {
		c.logger.Error("record failure", "worker", w.Name, "error", err)
		return
	}
	c.record(ctx, eventlog.TypeStatus, w, map[string]string{"to": string(worker.KindFailed), "reason": reason})
}

// runOnCreate runs the configured hook in a fresh working copy. A failing
// hook is logged and does not fail the spawn.
func (c *Coordinator) runOnCreate(ctx context.Context, path string) {
	hook := c.cfg.Repo.OnCreateHook
	if hook == "" {
		return
	}
	c.logger.Info("running on-create hook", "path", path, "hook", hook)
	if out, err := c.runHook(ctx, path, hook); err != nil {
		c.logger.Warn("on-create hook failed", "path", path, "error", err, "output", string(out))
	}
}

// copyFiles copies configured (typically gitignored) files from the
// repository root into a fresh working copy. Missing sources are skipped.
func (c *Coordinator) copyFiles(dst string) {
	for _, rel := range c.cfg.CopyFiles {
		if err := copyFile(filepath.Join(c.root, rel), filepath.Join(dst, rel)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				c.logger.Debug("copy source missing", "file", rel)
				continue
			}
			c.logger.Warn("copy file into working copy", "file", rel, "error", err)
		}
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // configured relative path under repo root
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm()) //nolint:gosec // see above
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
