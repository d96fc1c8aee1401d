package main

import (
	"context"
	"errors"
	"io"
	"time"

	"jig/pkg/eventlog"

	"github.com/spf13/cobra"
)

// eventsConfig holds the flags of the events command.
type eventsConfig struct {
	typ    string
	since  time.Duration
	tail   int
	follow bool
}

// newEventsCmd creates the "jig events" subcommand.
func newEventsCmd(a *app) *cobra.Command {
	var cfg eventsConfig

	cmd := &cobra.Command{
		Use:   "events [name]",
		Short: "Show the worker lifecycle journal",
		Long:  "Lists spawn, status, kill, prune, nudge, merge and migrate events from\n.jig/.state/events.db, oldest first.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.environment(cmd)
			if err != nil {
				return err
			}
			if e.events == nil {
				return errors.New("event journal is unavailable")
			}
			opts := eventlog.QueryOpts{Type: cfg.typ, Limit: cfg.tail}
			if len(args) == 1 {
				opts.Worker = args[0]
			}
			if cfg.since > 0 {
				after := time.Now().Add(-cfg.since)
				opts.After = &after
			}
			return printEvents(cmd.Context(), cmd.OutOrStdout(), e.events, opts, cfg.follow)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.typ, "type", "", "only events of this type")
	f.DurationVar(&cfg.since, "since", 0, "only events newer than this, e.g. 2h")
	f.IntVarP(&cfg.tail, "tail", "n", 50, "number of most recent events")
	f.BoolVarP(&cfg.follow, "follow", "f", false, "keep printing new events")
	return cmd
}

// followInterval is how often --follow polls the journal.
const followInterval = time.Second

func printEvents(ctx context.Context, out io.Writer, log *eventlog.Log, opts eventlog.QueryOpts, follow bool) error {
	var lastID int64
	for {
		events, err := log.Query(ctx, opts)
		if err != nil {
			return err
		}
		for _, ev := range events {
			if ev.ID <= lastID {
				continue
			}
			printf(out, "%s  %-8s %-20s %s\n", ev.CreatedAt.Local().Format(time.DateTime), ev.Type, ev.Worker, ev.Payload)
			lastID = ev.ID
		}
		if !follow {
			return nil
		}
		if n := len(events); n > 0 {
			after := events[n-1].CreatedAt
			opts.After = &after
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(followInterval):
		}
	}
}
