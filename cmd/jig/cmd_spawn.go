package main

import (
	"fmt"
	"os"

	"jig/pkg/spawn"
	"jig/pkg/worker"

	"github.com/spf13/cobra"
)

// newSpawnCmd creates the "jig spawn" subcommand.
func newSpawnCmd(a *app) *cobra.Command {
	var (
		req    spawn.SpawnRequest
		attach bool
	)

	cmd := &cobra.Command{
		Use:   "spawn <name>",
		Short: "Start an agent in its own working copy and tmux window",
		Long: `Creates .jig/<name> on a new branch from the configured base (or reuses it),
registers the worker, opens a window named <name> in the repository's tmux
session and starts the agent with the task description.

Names may contain "/" to group workers, e.g. "auth/login".`,
		Example: `  jig spawn login-form -m "Add a login form with email validation"
  jig spawn auth/tokens --issue GH-42 --files pkg/auth/token.go --auto`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.environment(cmd)
			if err != nil {
				return err
			}
			req.Name = args[0]
			w, err := e.coord.Spawn(cmd.Context(), req)
			if err != nil {
				if w != nil {
					printf(cmd.ErrOrStderr(), "worker %s recorded as %s\n", w.Name, w.Status)
				}
				return err
			}
			printf(cmd.OutOrStdout(), "spawned %s on %s (%s)\n", w.Name, w.Branch, w.WorktreePath)
			if attach {
				return e.coord.Attach(cmd.Context(), w.Name)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&req.Context, "message", "m", "", "task description handed to the agent")
	f.StringVar(&req.IssueRef, "issue", "", "tracker reference stored with the task")
	f.StringSliceVar(&req.FilesHint, "files", nil, "files the task is expected to touch")
	f.BoolVar(&req.Auto, "auto", false, "start the agent in auto mode")
	f.BoolVar(&req.NoHooks, "no-hooks", false, "skip the on_create hook")
	f.BoolVarP(&attach, "attach", "a", false, "attach to the window after spawning")
	return cmd
}

// newRegisterCmd creates the "jig register" subcommand.
func newRegisterCmd(a *app) *cobra.Command {
	var (
		path, branch, message string
	)

	cmd := &cobra.Command{
		Use:   "register <name>",
		Short: "Track an existing working copy without starting an agent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.environment(cmd)
			if err != nil {
				return err
			}
			name := args[0]
			if path == "" {
				path = e.coord.WorktreePath(name)
			}
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("working copy: %w", err)
			}
			if branch == "" {
				branch = name
			}
			req := spawn.RegisterRequest{Name: name, WorktreePath: path, Branch: branch}
			if message != "" {
				req.Task = &worker.TaskContext{Description: message}
			}
			w, err := e.coord.Register(cmd.Context(), req)
			if err != nil {
				return err
			}
			printf(cmd.OutOrStdout(), "registered %s (%s)\n", w.Name, w.ID)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&path, "path", "", "working copy path (default .jig/<name>)")
	f.StringVar(&branch, "branch", "", "branch checked out in the working copy (default <name>)")
	f.StringVarP(&message, "message", "m", "", "task description")
	return cmd
}
