package main

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jig/pkg/protocol"
	"jig/pkg/spawn"
	"jig/pkg/worker"
)

func TestSpawnThenPs(t *testing.T) {
	t.Parallel()

	c := newCLI(t)
	out := c.mustRun(t, "spawn", "alpha", "-m", "fix the login bug")
	if !strings.Contains(out, "spawned alpha") {
		t.Errorf("spawn output = %q", out)
	}
	if len(c.ses.sent) != 1 || !strings.Contains(c.ses.sent[0], "'fix the login bug'") {
		t.Errorf("sent = %v", c.ses.sent)
	}

	out = c.mustRun(t, "ps")
	for _, want := range []string{"NAME", "alpha", "spawned", "running", "1 ahead"} {
		if !strings.Contains(out, want) {
			t.Errorf("ps output missing %q:\n%s", want, out)
		}
	}
}

func TestPsJSON(t *testing.T) {
	t.Parallel()

	c := newCLI(t)
	c.mustRun(t, "spawn", "alpha")
	c.mustRun(t, "spawn", "beta")

	var rows []psRow
	if err := json.Unmarshal([]byte(c.mustRun(t, "ps", "--json")), &rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].Name != "alpha" || rows[1].Name != "beta" {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Status.Kind() != worker.KindSpawned || rows[0].UpdatedAt == nil {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestPsEmpty(t *testing.T) {
	t.Parallel()

	c := newCLI(t)
	if out := c.mustRun(t, "ps"); !strings.Contains(out, "no workers") {
		t.Errorf("output = %q", out)
	}
}

func TestStatusSetFollowsLifecycle(t *testing.T) {
	t.Parallel()

	c := newCLI(t)
	c.mustRun(t, "spawn", "alpha")

	_, err := c.run(t, "approve", "alpha")
	var ite *worker.IllegalTransitionError
	if !errors.As(err, &ite) {
		t.Fatalf("approve from spawned: err = %v", err)
	}

	c.mustRun(t, "status", "alpha", "--set", "running")
	alpha := filepath.Join(c.root, protocol.JigDir, "alpha")
	c.git.stats[alpha] = worker.DiffStats{FilesChanged: 1, Insertions: 2, Deletions: 1,
		Files: []worker.FileDiff{{Path: "a.go", Insertions: 2, Deletions: 1}}}
	out := c.mustRun(t, "status", "alpha", "--set", "waiting_review")
	if !strings.Contains(out, "a.go +2 -1") {
		t.Errorf("status output = %q", out)
	}
	if out := c.mustRun(t, "approve", "alpha"); !strings.Contains(out, "alpha: approved") {
		t.Errorf("approve output = %q", out)
	}
	if out := c.mustRun(t, "merge", "alpha"); !strings.Contains(out, "merged alpha") {
		t.Errorf("merge output = %q", out)
	}
	if c.ses.WindowExists(t.Context(), "jig-proj", "alpha") {
		t.Error("merged worker's window still open")
	}
}

func TestStatusSetRejectsBadValues(t *testing.T) {
	t.Parallel()

	c := newCLI(t)
	c.mustRun(t, "spawn", "alpha")
	for _, args := range [][]string{
		{"status", "alpha", "--set", "bogus"},
		{"status", "alpha", "--set", "failed"},
		{"status", "alpha", "--set", "merged"},
	} {
		if _, err := c.run(t, args...); err == nil {
			t.Errorf("jig %v: expected error", args)
		}
	}
}

func TestFailRecordsReason(t *testing.T) {
	t.Parallel()

	c := newCLI(t)
	c.mustRun(t, "spawn", "alpha")
	c.mustRun(t, "fail", "alpha", "--reason", "tests never pass")

	out := c.mustRun(t, "status", "alpha", "--json")
	if !strings.Contains(out, `"reason": "tests never pass"`) {
		t.Errorf("status json = %s", out)
	}
	if out := c.mustRun(t, "ps"); !strings.Contains(out, "no workers") {
		t.Errorf("failed worker listed without --all:\n%s", out)
	}
	if out := c.mustRun(t, "ps", "--all"); !strings.Contains(out, "alpha") {
		t.Errorf("--all listing missing alpha:\n%s", out)
	}
}

func TestKillAndNotFound(t *testing.T) {
	t.Parallel()

	c := newCLI(t)
	c.mustRun(t, "spawn", "alpha")
	c.mustRun(t, "kill", "alpha")

	_, err := c.run(t, "kill", "alpha")
	var nf *protocol.NotFoundError
	if !errors.As(err, &nf) {
		t.Errorf("second kill: err = %v", err)
	}
}

func TestHealthAndNudge(t *testing.T) {
	t.Parallel()

	c := newCLI(t)
	c.mustRun(t, "spawn", "alpha")
	c.ses.panes["jig-proj:alpha"] = "All done.\n❯ "

	out := c.mustRun(t, "health", "--nudge")
	if !strings.Contains(out, "idle") || !strings.Contains(out, "nudged alpha (idle 1/2)") {
		t.Errorf("health output:\n%s", out)
	}
	c.mustRun(t, "nudge", "alpha")
	out = c.mustRun(t, "health", "--nudge")
	if !strings.Contains(out, "idle nudges exhausted (2/2)") {
		t.Errorf("health output:\n%s", out)
	}
}

func TestEventsListsLifecycle(t *testing.T) {
	t.Parallel()

	c := newCLI(t)
	c.mustRun(t, "spawn", "alpha")
	c.mustRun(t, "spawn", "beta")
	c.mustRun(t, "kill", "beta")

	out := c.mustRun(t, "events")
	if strings.Count(out, "spawn") != 2 || !strings.Contains(out, "kill") {
		t.Errorf("events output:\n%s", out)
	}
	out = c.mustRun(t, "events", "beta", "--type", "kill")
	if strings.Contains(out, "alpha") || !strings.Contains(out, "window_killed") {
		t.Errorf("filtered events:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	c := newCLI(t)
	if out := c.mustRun(t, "version"); !strings.HasPrefix(out, "jig ") {
		t.Errorf("version output = %q", out)
	}
}

func TestRenderTableCells(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	infos := []spawn.TaskInfo{
		{Name: "alpha", Registered: true, Status: worker.StatusRunning(), Live: spawn.LiveRunning,
			CommitsAhead: 3, Dirty: true, UpdatedAt: now.Add(-2 * time.Hour)},
		{Name: "stray", Live: spawn.LiveExited},
	}
	out := renderTable(infos, now)
	for _, want := range []string{"3 ahead, dirty", "2 hours ago", "unregistered", "exited"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}
