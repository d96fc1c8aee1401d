package state

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"jig/pkg/atomicfile"
	"jig/pkg/protocol"
)

// MigrationResult reports what Migrate did.
type MigrationResult struct {
	Migrated bool
	Moved    []string // working-copy directory names relocated into .jig
	Skipped  []string // names left behind because .jig already had them
	Paths    []string // rewritten working-copy paths, for git worktree repair
}

// Migrate moves a repository from the legacy .worktrees layout to .jig.
// It runs only when the legacy document exists and the current one does not,
// so it is safe to call on every start and safe to re-run after an
// interruption. The legacy document is removed only once the rewritten
// document has been durably written.
func Migrate(repoRoot string) (MigrationResult, error) {
	var res MigrationResult

	legacyPath := protocol.LegacyStatePath(repoRoot)
	newPath := protocol.StatePath(repoRoot)
	if !exists(legacyPath) || exists(newPath) {
		return res, nil
	}

	data, err := os.ReadFile(legacyPath) //nolint:gosec // path derived from repo root
	if err != nil {
		return res, fmt.Errorf("read legacy state: %w", err)
	}
	s, err := decode(legacyPath, data)
	if err != nil {
		return res, err
	}

	oldDir := filepath.Join(repoRoot, protocol.LegacyWorktreesDir)
	newDir := filepath.Join(repoRoot, protocol.JigDir)

	// Directories first: if we stop after this, the gate still holds and the
	// next run finishes the document half.
	res.Moved, res.Skipped, err = relocateDirs(oldDir, newDir)
	if err != nil {
		return res, err
	}

	left := make(map[string]bool, len(res.Skipped))
	for _, name := range res.Skipped {
		left[name] = true
	}
	for _, w := range s.Workers {
		if left[topDir(w.WorktreePath, oldDir)] {
			continue
		}
		if p := rewritePrefix(w.WorktreePath, oldDir, newDir); p != w.WorktreePath {
			w.WorktreePath = p
			res.Paths = append(res.Paths, p)
		}
	}
	s.RepoRoot = repoRoot
	if s.Config.WorktreeDir == "" || s.Config.WorktreeDir == protocol.LegacyWorktreesDir {
		s.Config.WorktreeDir = protocol.JigDir
	}

	if err := atomicfile.WriteJSON(newPath, s); err != nil {
		return res, fmt.Errorf("write migrated state: %w", err)
	}
	if err := os.Remove(legacyPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return res, fmt.Errorf("remove legacy state: %w", err)
	}
	removeIfEmpty(oldDir)

	res.Migrated = true
	return res, nil
}

// relocateDirs moves every non-hidden directory of oldDir into newDir,
// leaving any whose destination already exists.
func relocateDirs(oldDir, newDir string) (moved, skipped []string, err error) {
	entries, err := os.ReadDir(oldDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read legacy dir: %w", err)
	}
	if err := os.MkdirAll(newDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", newDir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		dst := filepath.Join(newDir, name)
		if exists(dst) {
			skipped = append(skipped, name)
			continue
		}
		if err := os.Rename(filepath.Join(oldDir, name), dst); err != nil {
			return moved, skipped, fmt.Errorf("move %s: %w", name, err)
		}
		moved = append(moved, name)
	}
	return moved, skipped, nil
}

// rewritePrefix replaces oldDir with newDir when it is a whole-segment
// prefix of p.
func rewritePrefix(p, oldDir, newDir string) string {
	if p == oldDir {
		return newDir
	}
	if rest, ok := strings.CutPrefix(p, oldDir+string(filepath.Separator)); ok {
		return filepath.Join(newDir, rest)
	}
	return p
}

// topDir returns the first path segment of p below dir, or "" when p is not
// inside dir.
func topDir(p, dir string) string {
	rest, ok := strings.CutPrefix(p, dir+string(filepath.Separator))
	if !ok {
		return ""
	}
	first, _, _ := strings.Cut(rest, string(filepath.Separator))
	return first
}

func removeIfEmpty(dir string) {
	entries, err := os.ReadDir(dir)
	if err == nil && len(entries) == 0 {
		_ = os.Remove(dir)
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
