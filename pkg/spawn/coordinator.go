// Package spawn coordinates workers end to end: working copy, orchestrator
// document, multiplexer window and agent process, plus the reconciliation,
// review, merge and health operations built on them.
package spawn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"

	"jig/pkg/adapter"
	"jig/pkg/config"
	"jig/pkg/eventlog"
	"jig/pkg/health"
	"jig/pkg/protocol"
	"jig/pkg/runner"
	"jig/pkg/session"
	"jig/pkg/state"
	"jig/pkg/worker"
)

// lockTimeout bounds how long a mutation waits for another jig process.
const lockTimeout = 10 * time.Second

// WorkingCopies is the version-control capability the coordinator uses.
// *git.Repo implements it.
type WorkingCopies interface {
	CreateWorktree(ctx context.Context, path, branch, base string) error
	CurrentBranch(ctx context.Context, dir string) (string, error)
	CommitsAhead(ctx context.Context, dir, base string) ([]string, error)
	IsDirty(ctx context.Context, dir string) (bool, error)
	DiffStats(ctx context.Context, dir, base string) (worker.DiffStats, error)
	DiffSummary(ctx context.Context, dir, base string, full bool) (string, error)
	LastCommitTime(ctx context.Context, dir, base string) (time.Time, error)
	IsMerged(ctx context.Context, branch, into string) (bool, error)
	Merge(ctx context.Context, branch string) error
	EnsureExcluded(ctx context.Context, pattern string) error
	RepairWorktrees(ctx context.Context, paths ...string) error
}

// Recorder journals lifecycle events. *eventlog.Log implements it.
type Recorder interface {
	Record(ctx context.Context, typ, worker, workerID string, payload any) error
}

// Options configures a Coordinator. RepoRoot, Git and Sessions are required.
type Options struct {
	RepoRoot string
	Config   config.Effective
	Git      WorkingCopies
	Sessions session.Backend
	Events   Recorder     // optional
	Logger   *slog.Logger // optional
	LookPath func(string) (string, error)
	Now      func() time.Time
	RunHook  func(ctx context.Context, dir, script string) ([]byte, error)
}

// Coordinator implements every caller-facing worker operation for one repository.
type Coordinator struct {
	root     string
	cfg      config.Effective
	git      WorkingCopies
	sessions session.Backend
	events   Recorder
	logger   *slog.Logger
	agent    adapter.Adapter
	detector *health.Detector
	lookPath func(string) (string, error)
	now      func() time.Time
	runHook  func(ctx context.Context, dir, script string) ([]byte, error)
}

// New validates opts and builds a Coordinator. It fails on an unknown agent
// type or a detector pattern that does not compile.
func New(opts Options) (*Coordinator, error) {
	if opts.RepoRoot == "" || opts.Git == nil || opts.Sessions == nil {
		return nil, errors.New("spawn: RepoRoot, Git and Sessions are required")
	}
	agentName := opts.Config.Agent
	if agentName == "" {
		agentName = config.DefaultAgent
	}
	agent, err := adapter.Lookup(agentName)
	if err != nil {
		return nil, err
	}
	det, err := health.NewDetectorFromPatterns(opts.Config.Health.PromptPatterns, opts.Config.Health.StuckPatterns)
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		root:     opts.RepoRoot,
		cfg:      opts.Config,
		git:      opts.Git,
		sessions: opts.Sessions,
		events:   opts.Events,
		logger:   opts.Logger,
		agent:    agent,
		detector: det,
		lookPath: opts.LookPath,
		now:      opts.Now,
		runHook:  opts.RunHook,
	}
	if c.cfg.Repo.BaseBranch == "" {
		c.cfg.Repo = config.DefaultRepoConfig()
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.lookPath == nil {
		c.lookPath = exec.LookPath
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.runHook == nil {
		c.runHook = runner.Shell
	}
	return c, nil
}

// RepoRoot returns the repository this coordinator manages.
func (c *Coordinator) RepoRoot() string { return c.root }

// SessionName returns the multiplexer session for this repository.
func (c *Coordinator) SessionName() string { return protocol.SessionName(c.root) }

// WorktreePath returns where the working copy for name lives.
func (c *Coordinator) WorktreePath(name string) string {
	dir := c.cfg.Repo.WorktreeDir
	if dir == "" {
		dir = protocol.JigDir
	}
	return filepath.Join(c.root, dir, name)
}

// CheckDependencies verifies the multiplexer, git and the agent CLI are on PATH.
func (c *Coordinator) CheckDependencies() error {
	for _, tool := range []string{"tmux", "git", c.agent.Command} {
		if _, err := c.lookPath(tool); err != nil {
			return &protocol.MissingToolError{Tool: tool}
		}
	}
	return nil
}

// load reads the orchestrator document without locking. A missing document
// yields an unsaved empty one.
func (c *Coordinator) load() (*state.OrchestratorState, error) {
	return state.LoadOrCreate(c.root, c.cfg.Repo)
}

// update runs fn on the document under the cross-process lock and saves it
// when fn reports a change.
func (c *Coordinator) update(ctx context.Context, fn func(s *state.OrchestratorState) (bool, error)) error {
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	lock := state.NewFileLock(c.root)
	if err := lock.Acquire(lockCtx); err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			c.logger.Warn("release state lock", "error", err)
		}
	}()

	s, err := c.load()
	if err != nil {
		return err
	}
	changed, err := fn(s)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return s.Save()
}

// loadHealth reads the health document, applying the configured threshold.
func (c *Coordinator) loadHealth() *health.State {
	hs := health.Load(protocol.HealthPath(c.root), c.logger)
	if c.cfg.Health.MaxNudges > 0 {
		hs.MaxNudges = c.cfg.Health.MaxNudges
	}
	return hs
}

func (c *Coordinator) saveHealth(hs *health.State) {
	if err := hs.Save(protocol.HealthPath(c.root)); err != nil {
		c.logger.Warn("save health state", "error", err)
	}
}

// record journals an event; journal failures are logged and never fail the
// operation.
func (c *Coordinator) record(ctx context.Context, typ string, w *worker.Worker, payload any) {
	if c.events == nil {
		return
	}
	if err := c.events.Record(ctx, typ, w.Name, string(w.ID), payload); err != nil {
		c.logger.Warn("journal event", "type", typ, "worker", w.Name, "error", err)
	}
}

// activeWorker returns the active worker called name.
func activeWorker(s *state.OrchestratorState, name string) (*worker.Worker, error) {
	w, ok := s.GetWorkerByName(name)
	if !ok || !w.IsActive() {
		return nil, &protocol.NotFoundError{Kind: "worker", Name: name}
	}
	return w, nil
}

// Migrate moves a legacy .worktrees layout into .jig under the state lock.
func (c *Coordinator) Migrate(ctx context.Context) (state.MigrationResult, error) {
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	lock := state.NewFileLock(c.root)
	if err := lock.Acquire(lockCtx); err != nil {
		return state.MigrationResult{}, err
	}
	defer func() { _ = lock.Release() }()

	res, err := state.Migrate(c.root)
	if err != nil {
		return res, fmt.Errorf("migrate legacy layout: %w", err)
	}
	if res.Migrated {
		c.logger.Info("migrated legacy layout", "moved", res.Moved, "skipped", res.Skipped)
		if len(res.Paths) > 0 {
			if err := c.git.RepairWorktrees(ctx, res.Paths...); err != nil {
				c.logger.Warn("repair moved working copies", "error", err)
			}
		}
		if c.events != nil {
			if err := c.events.Record(ctx, eventlog.TypeMigrate, "", "", res); err != nil {
				c.logger.Warn("journal event", "type", eventlog.TypeMigrate, "error", err)
			}
		}
	}
	return res, nil
}
