package spawn

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jig/pkg/config"
	"jig/pkg/protocol"
	"jig/pkg/session"
	"jig/pkg/worker"
)

// fakeSessions is an in-memory multiplexer.
type fakeSessions struct {
	windows    map[string][]string // session -> window names
	running    map[string]bool     // target -> agent alive
	panes      map[string]string   // target -> captured text
	captureErr error
	createErr  error
	sendErr    error
	sent       []string // target + "|" + text
	killed     []string
	selected   string
	attached   string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		windows: map[string][]string{},
		running: map[string]bool{},
		panes:   map[string]string{},
	}
}

func (f *fakeSessions) SessionExists(_ context.Context, s string) bool {
	_, ok := f.windows[s]
	return ok
}

func (f *fakeSessions) WindowExists(_ context.Context, s, w string) bool {
	for _, name := range f.windows[s] {
		if name == w {
			return true
		}
	}
	return false
}

func (f *fakeSessions) CreateWindow(_ context.Context, s, w, _ string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.windows[s] = append(f.windows[s], w)
	f.running[session.Target(s, w)] = true
	return nil
}

func (f *fakeSessions) KillWindow(_ context.Context, s, w string) error {
	var keep []string
	for _, name := range f.windows[s] {
		if name != w {
			keep = append(keep, name)
		}
	}
	f.windows[s] = keep
	f.killed = append(f.killed, session.Target(s, w))
	return nil
}

func (f *fakeSessions) SelectWindow(_ context.Context, s, w string) error {
	f.selected = session.Target(s, w)
	return nil
}

func (f *fakeSessions) SendKeys(_ context.Context, s, w, text string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, session.Target(s, w)+"|"+text)
	return nil
}

func (f *fakeSessions) PaneIsRunning(_ context.Context, s, w string) bool {
	return f.running[session.Target(s, w)]
}

func (f *fakeSessions) CapturePane(_ context.Context, s, w string, _ int) (string, error) {
	if f.captureErr != nil {
		return "", f.captureErr
	}
	return f.panes[session.Target(s, w)], nil
}

func (f *fakeSessions) ListWindows(_ context.Context, s string) ([]string, error) {
	ws, ok := f.windows[s]
	if !ok {
		return nil, &protocol.NotFoundError{Kind: "session", Name: s}
	}
	return ws, nil
}

func (f *fakeSessions) Attach(_ context.Context, s string) error {
	f.attached = s
	return nil
}

// fakeGit keeps working copies as plain directories.
type fakeGit struct {
	created    []string // "path branch base"
	createErr  error
	commits    map[string][]string
	dirty      map[string]bool
	stats      map[string]worker.DiffStats
	merged     map[string]bool
	mergedReqs []string
	repaired   []string
	lastCommit time.Time
}

func newFakeGit() *fakeGit {
	return &fakeGit{
		commits: map[string][]string{},
		dirty:   map[string]bool{},
		stats:   map[string]worker.DiffStats{},
		merged:  map[string]bool{},
	}
}

func (g *fakeGit) CreateWorktree(_ context.Context, path, branch, base string) error {
	if g.createErr != nil {
		return g.createErr
	}
	g.created = append(g.created, path+" "+branch+" "+base)
	return os.MkdirAll(path, 0o755)
}

func (g *fakeGit) CurrentBranch(_ context.Context, dir string) (string, error) {
	return filepath.Base(dir), nil
}

func (g *fakeGit) CommitsAhead(_ context.Context, dir, _ string) ([]string, error) {
	return g.commits[dir], nil
}

func (g *fakeGit) IsDirty(_ context.Context, dir string) (bool, error) {
	return g.dirty[dir], nil
}

func (g *fakeGit) DiffStats(_ context.Context, dir, _ string) (worker.DiffStats, error) {
	return g.stats[dir], nil
}

func (g *fakeGit) DiffSummary(_ context.Context, dir, _ string, full bool) (string, error) {
	if full {
		return "diff --git a/" + dir, nil
	}
	return " 1 file changed", nil
}

func (g *fakeGit) LastCommitTime(context.Context, string, string) (time.Time, error) {
	return g.lastCommit, nil
}

func (g *fakeGit) IsMerged(_ context.Context, branch, _ string) (bool, error) {
	return g.merged[branch], nil
}

func (g *fakeGit) Merge(_ context.Context, branch string) error {
	g.mergedReqs = append(g.mergedReqs, branch)
	g.merged[branch] = true
	return nil
}

func (g *fakeGit) EnsureExcluded(context.Context, string) error { return nil }

func (g *fakeGit) RepairWorktrees(_ context.Context, paths ...string) error {
	g.repaired = append(g.repaired, paths...)
	return nil
}

// fakeRecorder collects journal events.
type fakeRecorder struct {
	events []string // type + ":" + worker
}

func (r *fakeRecorder) Record(_ context.Context, typ, name, _ string, _ any) error {
	r.events = append(r.events, typ+":"+name)
	return nil
}

type harness struct {
	c      *Coordinator
	root   string
	ses    *fakeSessions
	git    *fakeGit
	events *fakeRecorder
	hooks  []string // dir + "|" + script
}

func defaultEffective() config.Effective {
	return config.Effective{
		Repo:   config.DefaultRepoConfig(),
		Agent:  "claude",
		Health: config.HealthConfig{MaxNudges: 3, CaptureLines: 20},
	}
}

func newHarness(t *testing.T, mutate ...func(*config.Effective)) *harness {
	t.Helper()

	cfg := defaultEffective()
	for _, m := range mutate {
		m(&cfg)
	}
	h := &harness{
		root:   filepath.Join(t.TempDir(), "myrepo"),
		ses:    newFakeSessions(),
		git:    newFakeGit(),
		events: &fakeRecorder{},
	}
	if err := os.MkdirAll(h.root, 0o755); err != nil {
		t.Fatal(err)
	}
	clock := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	c, err := New(Options{
		RepoRoot: h.root,
		Config:   cfg,
		Git:      h.git,
		Sessions: h.ses,
		Events:   h.events,
		LookPath: func(tool string) (string, error) { return "/usr/bin/" + tool, nil },
		Now: func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		},
		RunHook: func(_ context.Context, dir, script string) ([]byte, error) {
			h.hooks = append(h.hooks, dir+"|"+script)
			return nil, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	h.c = c
	return h
}

func (h *harness) spawn(t *testing.T, name, task string) *worker.Worker {
	t.Helper()
	w, err := h.c.Spawn(context.Background(), SpawnRequest{Name: name, Context: task})
	if err != nil {
		t.Fatalf("Spawn(%s): %v", name, err)
	}
	return w
}

var errTmux = errors.New("tmux: server exited unexpectedly")
