package session

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"jig/pkg/runner"
)

// Tmux implements Backend with the tmux CLI.
type Tmux struct {
	runner      runner.CommandRunner
	interactive func(ctx context.Context, name string, args ...string) error
	getenv      func(string) string
}

// NewTmux returns a Tmux backend. A nil r uses runner.ExecRunner.
func NewTmux(r runner.CommandRunner) *Tmux {
	if r == nil {
		r = runner.ExecRunner{}
	}
	return &Tmux{runner: r, interactive: runner.Interactive, getenv: os.Getenv}
}

// exactSession and exactWindow build targets that tmux matches by exact
// name. A bare "session:name" is tried as a window index first and then as a
// name prefix, so "0" or "alpha" can resolve to some other window.
func exactSession(session string) string {
	return "=" + session
}

func exactWindow(session, window string) string {
	return "=" + session + ":=" + window
}

func (t *Tmux) run(ctx context.Context, args ...string) (string, error) {
	out, err := t.runner.Run(ctx, "tmux", args...)
	return strings.TrimRight(string(out), "\n"), err
}

// SessionExists checks for the session with an exact-match target.
func (t *Tmux) SessionExists(ctx context.Context, session string) bool {
	_, err := t.run(ctx, "has-session", "-t", exactSession(session))
	return err == nil
}

// WindowExists lists the session's windows and looks for window by name.
func (t *Tmux) WindowExists(ctx context.Context, session, window string) bool {
	windows, err := t.ListWindows(ctx, session)
	if err != nil {
		return false
	}
	for _, w := range windows {
		if w == window {
			return true
		}
	}
	return false
}

// CreateWindow creates the window, or the session with the window as its
// first one when the session does not exist yet.
func (t *Tmux) CreateWindow(ctx context.Context, session, window, dir string) error {
	if !t.SessionExists(ctx, session) {
		if _, err := t.run(ctx, "new-session", "-d", "-s", session, "-n", window, "-c", dir); err != nil {
			return fmt.Errorf("tmux new-session %s: %w", session, err)
		}
		return nil
	}
	if _, err := t.run(ctx, "new-window", "-t", exactSession(session)+":", "-n", window, "-c", dir); err != nil {
		return fmt.Errorf("tmux new-window %s: %w", Target(session, window), err)
	}
	return nil
}

// KillWindow destroys the window.
func (t *Tmux) KillWindow(ctx context.Context, session, window string) error {
	if _, err := t.run(ctx, "kill-window", "-t", exactWindow(session, window)); err != nil {
		return fmt.Errorf("tmux kill-window %s: %w", Target(session, window), err)
	}
	return nil
}

// SelectWindow makes window current.
func (t *Tmux) SelectWindow(ctx context.Context, session, window string) error {
	if _, err := t.run(ctx, "select-window", "-t", exactWindow(session, window)); err != nil {
		return fmt.Errorf("tmux select-window %s: %w", Target(session, window), err)
	}
	return nil
}

// SendKeys sends text in literal mode (-l) so tmux does not interpret key
// names inside it, then sends Enter.
func (t *Tmux) SendKeys(ctx context.Context, session, window, text string) error {
	target := exactWindow(session, window)
	if _, err := t.run(ctx, "send-keys", "-t", target, "-l", text); err != nil {
		return fmt.Errorf("tmux send-keys -l to %s: %w", target, err)
	}
	if _, err := t.run(ctx, "send-keys", "-t", target, "Enter"); err != nil {
		return fmt.Errorf("tmux send-keys Enter to %s: %w", target, err)
	}
	return nil
}

// PaneIsRunning reports false when the pane is dead or has fallen back to a
// shell (the launched agent exited).
func (t *Tmux) PaneIsRunning(ctx context.Context, session, window string) bool {
	out, err := t.run(ctx, "display-message", "-p", "-t", exactWindow(session, window), "#{pane_dead} #{pane_current_command}")
	if err != nil {
		return false
	}
	dead, command, _ := strings.Cut(strings.TrimSpace(out), " ")
	if dead == "1" {
		return false
	}
	return !isShell(command)
}

// CapturePane returns the last lines of the pane. A tmux failure is an
// error, never empty text.
func (t *Tmux) CapturePane(ctx context.Context, session, window string, lines int) (string, error) {
	target := exactWindow(session, window)
	out, err := t.run(ctx, "capture-pane", "-p", "-J", "-t", target, "-S", "-"+strconv.Itoa(lines))
	if err != nil {
		return "", fmt.Errorf("tmux capture-pane %s: %w", target, err)
	}
	return out, nil
}

// ListWindows returns window names in index order.
func (t *Tmux) ListWindows(ctx context.Context, session string) ([]string, error) {
	out, err := t.run(ctx, "list-windows", "-t", exactSession(session), "-F", "#{window_name}")
	if err != nil {
		return nil, fmt.Errorf("tmux list-windows %s: %w", session, err)
	}
	var windows []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			windows = append(windows, line)
		}
	}
	return windows, nil
}

// Attach switches the current client when already inside tmux, otherwise
// attaches this terminal to the session.
func (t *Tmux) Attach(ctx context.Context, session string) error {
	if t.getenv("TMUX") != "" {
		if _, err := t.run(ctx, "switch-client", "-t", exactSession(session)); err != nil {
			return fmt.Errorf("tmux switch-client %s: %w", session, err)
		}
		return nil
	}
	if err := t.interactive(ctx, "tmux", "attach-session", "-t", exactSession(session)); err != nil {
		return fmt.Errorf("tmux attach-session %s: %w", session, err)
	}
	return nil
}

// isShell returns true if cmd matches a known shell process name.
func isShell(cmd string) bool {
	switch cmd {
	case "zsh", "bash", "sh", "fish", "dash", "ksh", "":
		return true
	}
	return false
}
