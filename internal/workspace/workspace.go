// Package workspace opens the coordinator for the repository containing a
// directory, wired to the real git, tmux and journal backends.
package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"jig/pkg/config"
	"jig/pkg/eventlog"
	"jig/pkg/git"
	"jig/pkg/protocol"
	"jig/pkg/runner"
	"jig/pkg/session"
	"jig/pkg/spawn"
)

// Workspace is an opened repository.
type Workspace struct {
	Root        string
	Config      config.Effective
	Coordinator *spawn.Coordinator
	Events      *eventlog.Log // nil when the journal could not be opened
}

// Open resolves the repository root of dir (the working directory when
// empty), loads its configuration and builds the coordinator. A journal that
// cannot be opened is logged and left nil.
func Open(ctx context.Context, dir string, logger *slog.Logger) (*Workspace, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("working directory: %w", err)
		}
		dir = wd
	}
	r := runner.ExecRunner{}
	root, err := git.FindRoot(ctx, r, dir)
	if err != nil {
		return nil, err
	}
	userDir, err := config.UserConfigDir()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(root, userDir)
	if err != nil {
		return nil, err
	}

	opts := spawn.Options{
		RepoRoot: root,
		Config:   cfg,
		Git:      git.New(root, r),
		Sessions: session.NewTmux(r),
		Logger:   logger,
		RunHook:  runner.Shell,
	}
	events, err := eventlog.Open(protocol.EventsPath(root))
	if err != nil {
		logger.Warn("event journal unavailable", "path", protocol.EventsPath(root), "error", err)
		events = nil
	} else {
		opts.Events = events
	}

	coord, err := spawn.New(opts)
	if err != nil {
		_ = events.Close()
		return nil, err
	}
	return &Workspace{Root: root, Config: cfg, Coordinator: coord, Events: events}, nil
}

// Close releases the journal.
func (w *Workspace) Close() error {
	if w == nil {
		return nil
	}
	return w.Events.Close()
}
