package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jig/pkg/config"
	"jig/pkg/eventlog"
	"jig/pkg/protocol"
	"jig/pkg/session"
	"jig/pkg/spawn"
	"jig/pkg/worker"
)

// memSessions is a tmux stand-in shared across command invocations.
type memSessions struct {
	windows map[string][]string
	panes   map[string]string
	sent    []string
}

func (m *memSessions) SessionExists(_ context.Context, s string) bool {
	_, ok := m.windows[s]
	return ok
}

func (m *memSessions) WindowExists(_ context.Context, s, w string) bool {
	for _, name := range m.windows[s] {
		if name == w {
			return true
		}
	}
	return false
}

func (m *memSessions) CreateWindow(_ context.Context, s, w, _ string) error {
	m.windows[s] = append(m.windows[s], w)
	return nil
}

func (m *memSessions) KillWindow(_ context.Context, s, w string) error {
	var keep []string
	for _, name := range m.windows[s] {
		if name != w {
			keep = append(keep, name)
		}
	}
	m.windows[s] = keep
	return nil
}

func (m *memSessions) SelectWindow(context.Context, string, string) error { return nil }

func (m *memSessions) SendKeys(_ context.Context, s, w, text string) error {
	m.sent = append(m.sent, session.Target(s, w)+"|"+text)
	return nil
}

func (m *memSessions) PaneIsRunning(context.Context, string, string) bool { return true }

func (m *memSessions) CapturePane(_ context.Context, s, w string, _ int) (string, error) {
	return m.panes[session.Target(s, w)], nil
}

func (m *memSessions) ListWindows(_ context.Context, s string) ([]string, error) {
	return m.windows[s], nil
}

func (m *memSessions) Attach(context.Context, string) error { return nil }

// memGit creates working copies as directories and reports fixed diffs.
type memGit struct {
	stats map[string]worker.DiffStats
}

func (g *memGit) CreateWorktree(_ context.Context, path, _, _ string) error {
	return os.MkdirAll(path, 0o755)
}

func (g *memGit) CurrentBranch(_ context.Context, dir string) (string, error) {
	return filepath.Base(dir), nil
}

func (g *memGit) CommitsAhead(context.Context, string, string) ([]string, error) {
	return []string{"abc123 first change"}, nil
}

func (g *memGit) IsDirty(context.Context, string) (bool, error) { return false, nil }

func (g *memGit) DiffStats(_ context.Context, dir, _ string) (worker.DiffStats, error) {
	return g.stats[dir], nil
}

func (g *memGit) DiffSummary(context.Context, string, string, bool) (string, error) {
	return " a.go | 2 +-", nil
}

func (g *memGit) LastCommitTime(context.Context, string, string) (time.Time, error) {
	return time.Time{}, nil
}

func (g *memGit) IsMerged(context.Context, string, string) (bool, error) { return true, nil }
func (g *memGit) Merge(context.Context, string) error                   { return nil }
func (g *memGit) EnsureExcluded(context.Context, string) error          { return nil }
func (g *memGit) RepairWorktrees(context.Context, ...string) error       { return nil }

// cli drives the command tree against one temporary repository.
type cli struct {
	root string
	ses  *memSessions
	git  *memGit
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	root := filepath.Join(t.TempDir(), "proj")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}
	return &cli{
		root: root,
		ses:  &memSessions{windows: map[string][]string{}, panes: map[string]string{}},
		git:  &memGit{stats: map[string]worker.DiffStats{}},
	}
}

func (c *cli) build(_ context.Context, _ string, logger *slog.Logger) (*env, error) {
	events, err := eventlog.Open(protocol.EventsPath(c.root))
	if err != nil {
		return nil, err
	}
	coord, err := spawn.New(spawn.Options{
		RepoRoot: c.root,
		Config: config.Effective{
			Repo:   config.DefaultRepoConfig(),
			Agent:  config.DefaultAgent,
			Health: config.HealthConfig{MaxNudges: 2},
		},
		Git:      c.git,
		Sessions: c.ses,
		Events:   events,
		Logger:   logger,
		LookPath: func(tool string) (string, error) { return "/bin/" + tool, nil },
		RunHook:  func(context.Context, string, string) ([]byte, error) { return nil, nil },
	})
	if err != nil {
		_ = events.Close()
		return nil, err
	}
	return &env{coord: coord, events: events, logger: logger}, nil
}

// run executes one jig invocation and returns its combined output.
func (c *cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := newApp(c.build)
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := a.run(context.Background(), cmd)
	return out.String(), err
}

func (c *cli) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := c.run(t, args...)
	if err != nil {
		t.Fatalf("jig %v: %v\n%s", args, err, out)
	}
	return out
}
