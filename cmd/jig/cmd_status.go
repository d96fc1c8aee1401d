package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"jig/pkg/worker"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// newStatusCmd creates the "jig status" subcommand.
func newStatusCmd(a *app) *cobra.Command {
	var (
		set    string
		reason string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "status <name>",
		Short: "Show or change one worker's status",
		Long: `Prints a worker's record. With --set, moves it along the lifecycle:

  spawned -> running -> waiting_review -> approved -> merged
  waiting_review -> running
  any active status -> failed | archived

Illegal moves are rejected. Use "jig merge" to reach merged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.environment(cmd)
			if err != nil {
				return err
			}
			name := args[0]
			var w *worker.Worker
			if set == "" {
				w, err = e.coord.Get(cmd.Context(), name)
			} else {
				var s worker.Status
				if s, err = parseStatus(cmd, e, name, set, reason); err != nil {
					return err
				}
				w, err = e.coord.SetStatus(cmd.Context(), name, s)
			}
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), w)
			}
			describeWorker(cmd.OutOrStdout(), w, time.Now())
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&set, "set", "", "new status: running, waiting_review, approved, failed, archived")
	f.StringVar(&reason, "reason", "", "failure reason for --set failed")
	f.BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

// parseStatus maps a --set value to a Status. waiting_review computes the
// diff stats from the working copy.
func parseStatus(cmd *cobra.Command, e *env, name, kind, reason string) (worker.Status, error) {
	switch worker.Kind(kind) {
	case worker.KindSpawned:
		return worker.StatusSpawned(), nil
	case worker.KindRunning:
		return worker.StatusRunning(), nil
	case worker.KindWaitingReview:
		r, err := e.coord.Review(cmd.Context(), name, false)
		if err != nil {
			return worker.Status{}, err
		}
		return worker.StatusWaitingReview(r.Stats), nil
	case worker.KindApproved:
		return worker.StatusApproved(), nil
	case worker.KindFailed:
		if reason == "" {
			return worker.Status{}, errors.New("--set failed requires --reason")
		}
		return worker.StatusFailed(reason), nil
	case worker.KindArchived:
		return worker.StatusArchived(), nil
	case worker.KindMerged:
		return worker.Status{}, fmt.Errorf("use \"jig merge %s\" to mark a worker merged", name)
	default:
		return worker.Status{}, fmt.Errorf("unknown status %q", kind)
	}
}

func describeWorker(out io.Writer, w *worker.Worker, now time.Time) {
	printf(out, "name:     %s\n", w.Name)
	printf(out, "id:       %s\n", w.ID)
	printf(out, "status:   %s\n", w.Status)
	printf(out, "branch:   %s (base %s)\n", w.Branch, w.BaseBranch)
	printf(out, "path:     %s\n", w.WorktreePath)
	printf(out, "window:   %s:%s\n", w.Session, w.Window)
	printf(out, "created:  %s\n", humanize.RelTime(w.CreatedAt, now, "ago", "from now"))
	printf(out, "updated:  %s\n", humanize.RelTime(w.UpdatedAt, now, "ago", "from now"))
	if d, ok := w.Status.DiffStats(); ok && len(d.Files) > 0 {
		for _, f := range d.Files {
			printf(out, "          %s +%d -%d\n", f.Path, f.Insertions, f.Deletions)
		}
	}
	if w.Task == nil {
		return
	}
	if w.Task.IssueRef != "" {
		printf(out, "issue:    %s\n", w.Task.IssueRef)
	}
	if len(w.Task.FilesHint) > 0 {
		printf(out, "files:    %s\n", strings.Join(w.Task.FilesHint, ", "))
	}
	if w.Task.Description != "" {
		printf(out, "task:     %s\n", w.Task.Description)
	}
}
