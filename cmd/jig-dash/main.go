// Package main implements jig-dash, the interactive worker dashboard.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"jig/internal/version"
	"jig/internal/workspace"
	"jig/pkg/protocol"
	"jig/pkg/watch"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "jig-dash: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dir, logFile string

	cmd := &cobra.Command{
		Use:           "jig-dash",
		Short:         "Live table of this repository's jig workers",
		Version:       version.String(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, closeLog, err := openLog(logFile)
			if err != nil {
				return err
			}
			defer closeLog()

			ws, err := workspace.Open(cmd.Context(), dir, logger)
			if err != nil {
				return err
			}
			defer func() { _ = ws.Close() }()
			if _, err := ws.Coordinator.Migrate(cmd.Context()); err != nil {
				return fmt.Errorf("migrate legacy state: %w", err)
			}

			var changes <-chan struct{}
			stateDir := filepath.Dir(protocol.StatePath(ws.Root))
			if err := os.MkdirAll(stateDir, 0o755); err == nil {
				if w, err := watch.New(stateDir, 0, logger, protocol.StateFile); err == nil {
					defer func() { _ = w.Close() }()
					changes = w.Changes()
				} else {
					logger.Warn("state watch unavailable, polling only", "error", err)
				}
			}

			m := newModel(ws.Coordinator, filepath.Base(ws.Root), changes)
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("run dashboard: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "repo", "C", "", "repository directory")
	cmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file")
	return cmd
}

// openLog returns a logger that writes to path, or discards when path is
// empty; the terminal belongs to the dashboard.
func openLog(path string) (*slog.Logger, func(), error) {
	if path == "" {
		return slog.New(slog.DiscardHandler), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec // operator-chosen path
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, nil)), func() { _ = f.Close() }, nil
}
