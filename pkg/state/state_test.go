package state

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"jig/pkg/config"
	"jig/pkg/protocol"
	"jig/pkg/worker"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newWorker(repo, name string) *worker.Worker {
	return worker.New(name, filepath.Join(repo, ".jig", name), name, "origin/main", protocol.SessionName(repo), t0)
}

func TestLoadMissingReturnsNil(t *testing.T) {
	t.Parallel()

	s, err := Load(t.TempDir())
	if err != nil || s != nil {
		t.Fatalf("Load() = %v, %v; want nil, nil", s, err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	s := New(repo, config.DefaultRepoConfig())
	a := newWorker(repo, "alpha")
	a.SetTask(&worker.TaskContext{Description: "fix login", IssueRef: "#12", FilesHint: []string{"auth.go"}}, t0)
	b := newWorker(repo, "beta")
	if err := b.SetStatus(worker.StatusFailed("window creation failed"), t0.Add(time.Second)); err != nil {
		t.Fatal(err)
	}
	for _, w := range []*worker.Worker{a, b} {
		if err := s.AddWorker(w); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(repo)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := json.Marshal(s)
	got, _ := json.Marshal(loaded)
	if !bytes.Equal(got, want) {
		t.Errorf("round trip mismatch\n got: %s\nwant: %s", got, want)
	}
	if loaded.Session != "jig-"+filepath.Base(repo) {
		t.Errorf("Session = %q", loaded.Session)
	}
}

func TestLoadCorruptIsFatal(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	path := protocol.StatePath(repo)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(repo)
	var corrupt *protocol.CorruptStateError
	if !errors.As(err, &corrupt) {
		t.Fatalf("Load() err = %v, want CorruptStateError", err)
	}
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	path := protocol.StatePath(repo)
	_ = os.MkdirAll(filepath.Dir(path), 0o755)
	_ = os.WriteFile(path, []byte(`{"version": 99, "workers": {}}`), 0o644)
	var corrupt *protocol.CorruptStateError
	if _, err := Load(repo); !errors.As(err, &corrupt) {
		t.Fatalf("err = %v", err)
	}
}

func TestAddWorkerNameUniqueAmongActive(t *testing.T) {
	t.Parallel()

	repo := "/r"
	s := New(repo, config.DefaultRepoConfig())
	first := newWorker(repo, "alpha")
	if err := s.AddWorker(first); err != nil {
		t.Fatal(err)
	}
	var exists *protocol.AlreadyExistsError
	if err := s.AddWorker(newWorker(repo, "alpha")); !errors.As(err, &exists) {
		t.Fatalf("duplicate active name: err = %v", err)
	}

	// A terminal worker frees its name.
	if err := first.SetStatus(worker.StatusArchived(), t0); err != nil {
		t.Fatal(err)
	}
	second := newWorker(repo, "alpha")
	if err := s.AddWorker(second); err != nil {
		t.Fatalf("name reuse after archive: %v", err)
	}
	if got, _ := s.GetWorkerByName("alpha"); got.ID != second.ID {
		t.Error("GetWorkerByName should prefer the active worker")
	}
	if n := len(s.ActiveWorkers()); n != 1 {
		t.Errorf("ActiveWorkers() = %d, want 1", n)
	}
	if n := len(s.AllWorkers()); n != 2 {
		t.Errorf("AllWorkers() = %d, want 2", n)
	}
}

func TestRemoveWorker(t *testing.T) {
	t.Parallel()

	s := New("/r", config.DefaultRepoConfig())
	w := newWorker("/r", "alpha")
	_ = s.AddWorker(w)
	if got, ok := s.RemoveWorker(w.ID); !ok || got != w {
		t.Fatal("RemoveWorker did not return the worker")
	}
	if _, ok := s.GetWorker(w.ID); ok {
		t.Error("worker still present")
	}
	if _, ok := s.RemoveWorker(w.ID); ok {
		t.Error("second remove should report absence")
	}
}

func TestActiveWorkersSorted(t *testing.T) {
	t.Parallel()

	s := New("/r", config.DefaultRepoConfig())
	for _, n := range []string{"gamma", "alpha", "beta"} {
		_ = s.AddWorker(newWorker("/r", n))
	}
	var names []string
	for _, w := range s.ActiveWorkers() {
		names = append(names, w.Name)
	}
	if len(names) != 3 || names[0] != "alpha" || names[2] != "gamma" {
		t.Errorf("order = %v", names)
	}
}
