package main

import (
	"errors"

	"jig/pkg/spawn"

	"github.com/spf13/cobra"
)

// newReviewCmd creates the "jig review" subcommand.
func newReviewCmd(a *app) *cobra.Command {
	var full bool

	cmd := &cobra.Command{
		Use:   "review <name>",
		Short: "Show a worker's commits and diff against its base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.environment(cmd)
			if err != nil {
				return err
			}
			r, err := e.coord.Review(cmd.Context(), args[0], full)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			w := r.Worker
			printf(out, "%s  %s  %s..%s\n", w.Name, w.Status, w.BaseBranch, w.Branch)
			printf(out, "%d commit(s) ahead, %s\n", len(r.Commits), r.Stats)
			if r.Dirty {
				printf(out, "working copy has uncommitted changes\n")
			}
			for _, c := range r.Commits {
				printf(out, "  %s\n", c)
			}
			if r.Diff != "" {
				printf(out, "\n%s\n", r.Diff)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "print the full patch instead of --stat")
	return cmd
}

// newMergeCmd creates the "jig merge" subcommand.
func newMergeCmd(a *app) *cobra.Command {
	var markOnly bool

	cmd := &cobra.Command{
		Use:   "merge <name>",
		Short: "Merge an approved worker's branch into the current branch",
		Long: `Merges the branch of an approved worker with a clean working copy into the
branch checked out in the main repository, then marks it merged and closes its
window. With --mark, only checks that the branch is already merged.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.environment(cmd)
			if err != nil {
				return err
			}
			merge := e.coord.Merge
			if markOnly {
				merge = e.coord.MarkMerged
			}
			w, err := merge(cmd.Context(), args[0])
			if errors.Is(err, spawn.ErrDirtyWorkingCopy) {
				printf(cmd.ErrOrStderr(), "commit or discard the changes in the working copy first\n")
			}
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "merged %s (%s)\n", w.Name, w.Branch)
			return nil
		},
	}

	cmd.Flags().BoolVar(&markOnly, "mark", false, "record a branch merged elsewhere")
	return cmd
}
