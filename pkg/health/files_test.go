package health

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewestModTime(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := old.Add(2 * time.Hour)
	touch := func(rel string, at time.Time) {
		t.Helper()
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(p, at, at); err != nil {
			t.Fatal(err)
		}
	}
	touch("main.go", old)
	touch("pkg/auth/auth.go", newer)
	// Git internals change on every command and must not count.
	touch(".git/index", newer.Add(time.Hour))

	got, err := NewestModTime(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(newer) {
		t.Errorf("NewestModTime = %v, want %v", got, newer)
	}

	if _, err := NewestModTime(filepath.Join(dir, "absent")); err == nil {
		t.Error("missing directory should be an error")
	}
}

func TestRecordFileModKeepsNewest(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := &WorkerHealth{StartedAt: start.Unix()}
	now := start.Add(3 * time.Hour)
	if got := w.SinceFileMod(now); got != 3*time.Hour {
		t.Errorf("SinceFileMod without edits = %v, want age", got)
	}

	w.RecordFileMod(start.Add(2 * time.Hour))
	w.RecordFileMod(start.Add(time.Hour))
	w.RecordFileMod(time.Time{})
	if got := w.SinceFileMod(now); got != time.Hour {
		t.Errorf("SinceFileMod = %v, want 1h", got)
	}
}
