package main

import (
	"jig/pkg/worker"

	"github.com/spf13/cobra"
)

// newKillCmd creates the "jig kill" subcommand.
func newKillCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "kill <name>...",
		Short: "Close workers' tmux windows and stop tracking them",
		Long: `Kills each worker's window and removes it from the state document.
The working copy and branch are kept so the work can be reviewed or resumed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.environment(cmd)
			if err != nil {
				return err
			}
			for _, name := range args {
				if err := e.coord.Kill(cmd.Context(), name); err != nil {
					return err
				}
				printf(cmd.OutOrStdout(), "killed %s\n", name)
			}
			return nil
		},
	}
}

// newUnregisterCmd creates the "jig unregister" subcommand.
func newUnregisterCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unregister <name>",
		Short: "Stop tracking a worker, leaving its window running",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.environment(cmd)
			if err != nil {
				return err
			}
			if err := e.coord.Unregister(cmd.Context(), args[0]); err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "unregistered %s\n", args[0])
			return nil
		},
	}
}

// newAttachCmd creates the "jig attach" subcommand.
func newAttachCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <name>",
		Short: "Switch the terminal to a worker's tmux window",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.environment(cmd)
			if err != nil {
				return err
			}
			return e.coord.Attach(cmd.Context(), args[0])
		},
	}
}

// transitionCmd builds the one-argument status shortcuts.
func transitionCmd(a *app, use, short string, apply func(cmd *cobra.Command, e *env, name string) (*worker.Worker, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.environment(cmd)
			if err != nil {
				return err
			}
			w, err := apply(cmd, e, args[0])
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "%s: %s\n", w.Name, w.Status)
			return nil
		},
	}
}

// newApproveCmd creates the "jig approve" subcommand.
func newApproveCmd(a *app) *cobra.Command {
	return transitionCmd(a, "approve", "Approve a worker under review for merge",
		func(cmd *cobra.Command, e *env, name string) (*worker.Worker, error) {
			return e.coord.Approve(cmd.Context(), name)
		})
}

// newArchiveCmd creates the "jig archive" subcommand.
func newArchiveCmd(a *app) *cobra.Command {
	return transitionCmd(a, "archive", "Retire a worker without merging",
		func(cmd *cobra.Command, e *env, name string) (*worker.Worker, error) {
			return e.coord.Archive(cmd.Context(), name)
		})
}

// newFailCmd creates the "jig fail" subcommand.
func newFailCmd(a *app) *cobra.Command {
	var reason string
	cmd := transitionCmd(a, "fail", "Mark a worker failed",
		func(cmd *cobra.Command, e *env, name string) (*worker.Worker, error) {
			return e.coord.Fail(cmd.Context(), name, reason)
		})
	cmd.Flags().StringVarP(&reason, "reason", "r", "marked failed by operator", "why the worker failed")
	return cmd
}
