package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"jig/pkg/health"
	"jig/pkg/protocol"
	"jig/pkg/spawn"
	"jig/pkg/watch"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// healthConfig holds the flags of the health command.
type healthConfig struct {
	watch    bool
	interval time.Duration
	nudge    bool
}

// newHealthCmd creates the "jig health" subcommand.
func newHealthCmd(a *app) *cobra.Command {
	var cfg healthConfig

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Classify every active worker as working, idle or stuck",
		Long: `Captures each active worker's pane, classifies it, refreshes commit
telemetry and applies the automatic status moves (spawned -> running,
running -> waiting_review when idle with changes, waiting_review -> running
when work resumes).

With --nudge, idle and stuck workers are sent the default nudge until their
counter reaches health.max_nudges. With --watch, polls every --interval and
whenever the state document changes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := a.environment(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cfg.watch {
				return pollHealth(cmd.Context(), out, e, cfg.nudge)
			}
			return watchHealth(cmd.Context(), out, e, cfg)
		},
	}

	f := cmd.Flags()
	f.BoolVarP(&cfg.watch, "watch", "w", false, "keep polling until interrupted")
	f.DurationVar(&cfg.interval, "interval", 30*time.Second, "poll interval for --watch")
	f.BoolVar(&cfg.nudge, "nudge", false, "nudge idle and stuck workers")
	return cmd
}

func pollHealth(ctx context.Context, out io.Writer, e *env, nudge bool) error {
	reports, err := e.coord.CheckHealth(ctx)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		printf(out, "no active workers\n")
		return nil
	}
	for _, r := range reports {
		printf(out, "%s\n", formatReport(r))
		if nudge {
			escalate(ctx, out, e, r)
		}
	}
	return nil
}

// escalate nudges a worker whose pane is idle or stuck while the counter for
// that condition is below the threshold.
func escalate(ctx context.Context, out io.Writer, e *env, r spawn.HealthReport) {
	var typ string
	switch {
	case r.Err != nil:
		return
	case r.Liveness == health.Idle && r.Transition == nil:
		typ = health.NudgeIdle
	case r.Liveness == health.Stuck:
		typ = health.NudgeStuck
	default:
		return
	}
	if r.Exhausted(typ) {
		printf(out, "  %s: %s nudges exhausted (%d/%d), needs attention\n", r.Name, typ, r.Nudges[typ], r.MaxNudges)
		return
	}
	n, err := e.coord.Nudge(ctx, r.Name, typ, "")
	if err != nil {
		e.logger.Warn("nudge", "worker", r.Name, "error", err)
		return
	}
	printf(out, "  nudged %s (%s %d/%d)\n", r.Name, typ, n, r.MaxNudges)
}

func formatReport(r spawn.HealthReport) string {
	if r.Err != nil {
		return fmt.Sprintf("%-20s %-15s check failed: %v", r.Name, r.Status, r.Err)
	}
	now := time.Now()
	line := fmt.Sprintf("%-20s %-15s %-8s age %s, %d commit(s), last commit %s, last edit %s",
		r.Name, r.Status.Kind(), r.Liveness, r.Age.Round(time.Second), r.CommitCount,
		humanize.RelTime(now.Add(-r.SinceCommit), now, "ago", "from now"),
		humanize.RelTime(now.Add(-r.SinceEdit), now, "ago", "from now"))
	if r.Transition != nil {
		line += fmt.Sprintf(" [%s -> %s]", *r.Transition, r.Status.Kind())
	}
	return line
}

// watchHealth polls on a ticker and on state-document changes until ctx ends.
func watchHealth(ctx context.Context, out io.Writer, e *env, cfg healthConfig) error {
	stateDir := filepath.Dir(protocol.StatePath(e.coord.RepoRoot()))
	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	var changes <-chan struct{}
	if w, err := watch.New(stateDir, 0, e.logger, protocol.StateFile); err != nil {
		e.logger.Warn("state watch unavailable, polling only", "error", err)
	} else {
		defer func() { _ = w.Close() }()
		changes = w.Changes()
	}

	ticker := time.NewTicker(cfg.interval)
	defer ticker.Stop()
	for {
		printf(out, "-- %s\n", time.Now().Format(time.TimeOnly))
		if err := pollHealth(ctx, out, e, cfg.nudge); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-changes:
		}
	}
}

// newNudgeCmd creates the "jig nudge" subcommand.
func newNudgeCmd(a *app) *cobra.Command {
	var typ, message string

	cmd := &cobra.Command{
		Use:   "nudge <name>",
		Short: "Type a message into a worker's pane and count the nudge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.environment(cmd)
			if err != nil {
				return err
			}
			n, err := e.coord.Nudge(cmd.Context(), args[0], typ, message)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "nudged %s (%s #%d)\n", args[0], typ, n)
			return nil
		},
	}

	cmd.Flags().StringVarP(&typ, "type", "t", health.NudgeIdle, "nudge counter: idle or stuck")
	cmd.Flags().StringVarP(&message, "message", "m", "", "text to send (default depends on --type)")
	return cmd
}
