package state

import (
	"os"
	"path/filepath"
	"testing"

	"jig/pkg/atomicfile"
	"jig/pkg/config"
	"jig/pkg/protocol"
	"jig/pkg/worker"
)

// seedLegacy writes a legacy document with one worker "alpha" whose working
// copy lives in .worktrees/alpha.
func seedLegacy(t *testing.T, repo string) *OrchestratorState {
	t.Helper()

	legacyDir := filepath.Join(repo, ".worktrees")
	if err := os.MkdirAll(filepath.Join(legacyDir, "alpha"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(legacyDir, "alpha", "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.DefaultRepoConfig()
	cfg.WorktreeDir = ".worktrees"
	s := New(repo, cfg)
	w := worker.New("alpha", filepath.Join(legacyDir, "alpha"), "alpha", "origin/main", s.Session, t0)
	if err := s.AddWorker(w); err != nil {
		t.Fatal(err)
	}
	if err := atomicfile.WriteJSON(protocol.LegacyStatePath(repo), s); err != nil {
		t.Fatal(err)
	}
	return s
}

func TestMigrateLegacyLayout(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	seedLegacy(t, repo)

	res, err := Migrate(repo)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Migrated || len(res.Moved) != 1 || res.Moved[0] != "alpha" {
		t.Fatalf("result = %+v", res)
	}

	s, err := Load(repo)
	if err != nil || s == nil {
		t.Fatalf("Load after migrate: %v, %v", s, err)
	}
	w, ok := s.GetWorkerByName("alpha")
	if !ok {
		t.Fatal("alpha missing after migration")
	}
	if want := filepath.Join(repo, ".jig", "alpha"); w.WorktreePath != want {
		t.Errorf("WorktreePath = %s, want %s", w.WorktreePath, want)
	}
	if s.Config.WorktreeDir != ".jig" {
		t.Errorf("WorktreeDir = %q", s.Config.WorktreeDir)
	}
	if _, err := os.Stat(filepath.Join(repo, ".jig", "alpha", "main.go")); err != nil {
		t.Errorf("working copy not relocated: %v", err)
	}
	if _, err := os.Stat(protocol.LegacyStatePath(repo)); !os.IsNotExist(err) {
		t.Error("legacy document still present")
	}
	if _, err := os.Stat(filepath.Join(repo, ".worktrees")); !os.IsNotExist(err) {
		t.Error("empty legacy directory not removed")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	seedLegacy(t, repo)
	if _, err := Migrate(repo); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(protocol.StatePath(repo))

	res, err := Migrate(repo)
	if err != nil {
		t.Fatal(err)
	}
	if res.Migrated {
		t.Error("second run should be a no-op")
	}
	after, _ := os.ReadFile(protocol.StatePath(repo))
	if string(before) != string(after) {
		t.Error("second run changed the document")
	}
}

func TestMigrateSkippedWhenCurrentExists(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	seedLegacy(t, repo)
	current := New(repo, config.DefaultRepoConfig())
	if err := current.Save(); err != nil {
		t.Fatal(err)
	}

	res, err := Migrate(repo)
	if err != nil || res.Migrated {
		t.Fatalf("Migrate() = %+v, %v; want no-op", res, err)
	}
	if _, err := os.Stat(protocol.LegacyStatePath(repo)); err != nil {
		t.Error("legacy document must be left alone when the gate fails")
	}
}

func TestMigrateResumesAfterInterruption(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	seedLegacy(t, repo)
	// Simulate a run that moved the directories and then died.
	if _, _, err := relocateDirs(filepath.Join(repo, ".worktrees"), filepath.Join(repo, ".jig")); err != nil {
		t.Fatal(err)
	}

	res, err := Migrate(repo)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Migrated || len(res.Moved) != 0 {
		t.Errorf("result = %+v", res)
	}
	s, _ := Load(repo)
	w, _ := s.GetWorkerByName("alpha")
	if w.WorktreePath != filepath.Join(repo, ".jig", "alpha") {
		t.Errorf("path not rewritten: %s", w.WorktreePath)
	}
}

func TestMigrateSkipsExistingDestination(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	seedLegacy(t, repo)
	if err := os.MkdirAll(filepath.Join(repo, ".jig", "alpha"), 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Migrate(repo)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != "alpha" {
		t.Errorf("Skipped = %v", res.Skipped)
	}
	legacy := filepath.Join(repo, ".worktrees", "alpha")
	if _, err := os.Stat(filepath.Join(legacy, "main.go")); err != nil {
		t.Error("skipped directory should stay in the legacy location")
	}
	s, err := Load(repo)
	if err != nil || s == nil {
		t.Fatalf("Load: %v, %v", s, err)
	}
	if w, _ := s.GetWorkerByName("alpha"); w.WorktreePath != legacy {
		t.Errorf("WorktreePath = %s, want %s", w.WorktreePath, legacy)
	}
	if len(res.Paths) != 0 {
		t.Errorf("Paths = %v, want none", res.Paths)
	}
}

func TestLoadMigratesLegacyLayout(t *testing.T) {
	t.Parallel()

	repo := t.TempDir()
	seedLegacy(t, repo)

	s, err := Load(repo)
	if err != nil {
		t.Fatal(err)
	}
	if s == nil {
		t.Fatal("Load returned no document for a legacy repository")
	}
	w, ok := s.GetWorkerByName("alpha")
	if !ok || w.WorktreePath != filepath.Join(repo, ".jig", "alpha") {
		t.Errorf("alpha = %+v", w)
	}
	if _, err := os.Stat(protocol.LegacyStatePath(repo)); !os.IsNotExist(err) {
		t.Error("legacy document should be gone after Load")
	}
}

func TestRewritePrefix(t *testing.T) {
	t.Parallel()

	tests := []struct{ in, want string }{
		{"/r/.worktrees/alpha", "/r/.jig/alpha"},
		{"/r/.worktrees", "/r/.jig"},
		{"/r/.worktrees-old/alpha", "/r/.worktrees-old/alpha"},
		{"/elsewhere/alpha", "/elsewhere/alpha"},
	}
	for _, tt := range tests {
		if got := rewritePrefix(tt.in, "/r/.worktrees", "/r/.jig"); got != tt.want {
			t.Errorf("rewritePrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
