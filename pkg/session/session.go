// Package session drives the terminal multiplexer that hosts worker agents:
// one session per repository, one window per worker.
package session

import "context"

// Backend is the session capability the coordinator depends on.
type Backend interface {
	// SessionExists reports whether session is live.
	SessionExists(ctx context.Context, session string) bool
	// WindowExists reports whether session has a window named window.
	WindowExists(ctx context.Context, session, window string) bool
	// CreateWindow opens window with working directory dir, creating the
	// session first if it is missing.
	CreateWindow(ctx context.Context, session, window, dir string) error
	// KillWindow destroys window.
	KillWindow(ctx context.Context, session, window string) error
	// SelectWindow makes window the session's current window.
	SelectWindow(ctx context.Context, session, window string) error
	// SendKeys types text literally into window and presses Enter.
	SendKeys(ctx context.Context, session, window, text string) error
	// PaneIsRunning reports whether the window's foreground process is still
	// the launched program rather than the login shell.
	PaneIsRunning(ctx context.Context, session, window string) bool
	// CapturePane returns the last lines of the window's pane.
	CapturePane(ctx context.Context, session, window string, lines int) (string, error)
	// ListWindows returns the window names of session.
	ListWindows(ctx context.Context, session string) ([]string, error)
	// Attach connects the current terminal to session.
	Attach(ctx context.Context, session string) error
}

// Target formats a window as "session:window" for messages and logs.
// Tmux itself is always addressed with exact-match targets.
func Target(session, window string) string {
	return session + ":" + window
}
