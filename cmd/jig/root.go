package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"jig/internal/version"
	"jig/internal/workspace"
	"jig/pkg/eventlog"
	"jig/pkg/protocol"
	"jig/pkg/spawn"

	"github.com/spf13/cobra"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	dir     string
	verbose bool
	logJSON bool
}

// env is what a subcommand needs: the coordinator for the repository and the
// event journal behind it.
type env struct {
	coord  *spawn.Coordinator
	events *eventlog.Log
	logger *slog.Logger
}

// builder constructs the env for a repository directory. Tests swap it for
// one backed by in-memory fakes.
type builder func(ctx context.Context, dir string, logger *slog.Logger) (*env, error)

// app carries the lazily built env through the command tree.
type app struct {
	flags globalFlags
	build builder
	env   *env
}

// environment builds the env on first use and migrates legacy state.
func (a *app) environment(cmd *cobra.Command) (*env, error) {
	if a.env != nil {
		return a.env, nil
	}
	logger := newLogger(cmd.ErrOrStderr(), a.flags.verbose, a.flags.logJSON)
	e, err := a.build(cmd.Context(), a.flags.dir, logger)
	if err != nil {
		return nil, err
	}
	res, err := e.coord.Migrate(cmd.Context())
	if err != nil {
		_ = e.close()
		return nil, fmt.Errorf("migrate legacy state: %w", err)
	}
	if res.Migrated {
		fmt.Fprintf(cmd.ErrOrStderr(), "migrated %d working copies from %s to %s\n",
			len(res.Moved), protocol.LegacyWorktreesDir, protocol.JigDir)
	}
	a.env = e
	return e, nil
}

func (e *env) close() error {
	if e == nil {
		return nil
	}
	return e.events.Close()
}

// buildEnv wires the real tmux, git and SQLite backends.
func buildEnv(ctx context.Context, dir string, logger *slog.Logger) (*env, error) {
	ws, err := workspace.Open(ctx, dir, logger)
	if err != nil {
		return nil, err
	}
	return &env{coord: ws.Coordinator, events: ws.Events, logger: logger}, nil
}

// newApp returns an app using build, or the real backends when build is nil.
func newApp(build builder) *app {
	if build == nil {
		build = buildEnv
	}
	return &app{build: build}
}

// run executes cmd and releases the env whatever the outcome.
func (a *app) run(ctx context.Context, cmd *cobra.Command) error {
	err := cmd.ExecuteContext(ctx)
	if cerr := a.env.close(); err == nil {
		err = cerr
	}
	return err
}

// newRootCmd creates the root jig command with all subcommands attached.
func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jig",
		Short: "Run coding agents side by side in tmux and git worktrees",
		Long: "jig gives every agent task its own git working copy, branch and tmux window,\n" +
			"tracks each worker through review and merge, and watches panes for idle or\n" +
			"stuck agents.",
		Version:       fmt.Sprintf("jig %s", version.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVarP(&a.flags.dir, "repo", "C", "", "run as if started in this directory")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "show info and debug logs")
	pf.BoolVar(&a.flags.logJSON, "log-json", false, "always log JSON lines")

	cmd.AddCommand(
		newSpawnCmd(a),
		newRegisterCmd(a),
		newPsCmd(a),
		newStatusCmd(a),
		newKillCmd(a),
		newUnregisterCmd(a),
		newAttachCmd(a),
		newReviewCmd(a),
		newApproveCmd(a),
		newMergeCmd(a),
		newFailCmd(a),
		newArchiveCmd(a),
		newHealthCmd(a),
		newNudgeCmd(a),
		newEventsCmd(a),
		newDashCmd(),
		newVersionCmd(),
	)
	return cmd
}

func printf(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
