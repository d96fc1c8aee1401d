// Package git wraps the git CLI operations jig needs: working-copy
// lifecycle, branch inspection, diff summaries and merge confirmation.
package git

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"jig/pkg/runner"
)

// Repo runs git against one repository.
type Repo struct {
	root   string
	runner runner.CommandRunner
}

// New returns a Repo rooted at root. A nil r uses runner.ExecRunner.
func New(root string, r runner.CommandRunner) *Repo {
	if r == nil {
		r = runner.ExecRunner{}
	}
	return &Repo{root: root, runner: r}
}

// Root returns the repository root.
func (g *Repo) Root() string { return g.root }

func (g *Repo) git(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := g.runner.Run(ctx, "git", append([]string{"-C", dir}, args...)...)
	return strings.TrimSpace(string(out)), err
}

// FindRoot resolves the main repository root for dir, also when dir is
// inside one of its working copies.
func FindRoot(ctx context.Context, r runner.CommandRunner, dir string) (string, error) {
	if r == nil {
		r = runner.ExecRunner{}
	}
	out, err := r.Run(ctx, "git", "-C", dir, "rev-parse", "--path-format=absolute", "--git-common-dir")
	if err != nil {
		return "", fmt.Errorf("not a git repository (%s): %w", dir, err)
	}
	common := strings.TrimSpace(string(out))
	return filepath.Dir(common), nil
}

// BranchExists reports whether a local branch named branch exists.
func (g *Repo) BranchExists(ctx context.Context, branch string) bool {
	_, err := g.git(ctx, g.root, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// CreateWorktree adds a working copy at path on a new branch from base, or
// on the existing branch when one with that name is already present.
func (g *Repo) CreateWorktree(ctx context.Context, path, branch, base string) error {
	args := []string{"worktree", "add", path, "-b", branch, base}
	if g.BranchExists(ctx, branch) {
		args = []string{"worktree", "add", path, branch}
	}
	if _, err := g.git(ctx, g.root, args...); err != nil {
		return fmt.Errorf("worktree add %s: %w", path, err)
	}
	return nil
}

// RemoveWorktree removes the working copy at path.
func (g *Repo) RemoveWorktree(ctx context.Context, path string, force bool) error {
	args := []string{"worktree", "remove", path}
	if force {
		args = append(args, "--force")
	}
	if _, err := g.git(ctx, g.root, args...); err != nil {
		return fmt.Errorf("worktree remove %s: %w", path, err)
	}
	return nil
}

// RepairWorktrees refreshes git's administrative links after working copies
// were moved on disk.
func (g *Repo) RepairWorktrees(ctx context.Context, paths ...string) error {
	args := append([]string{"worktree", "repair"}, paths...)
	if _, err := g.git(ctx, g.root, args...); err != nil {
		return fmt.Errorf("worktree repair: %w", err)
	}
	return nil
}

// CurrentBranch returns the branch checked out in dir.
func (g *Repo) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, err := g.git(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("current branch of %s: %w", dir, err)
	}
	return out, nil
}

// CommitsAhead returns the one-line summaries of commits in dir not on base.
func (g *Repo) CommitsAhead(ctx context.Context, dir, base string) ([]string, error) {
	out, err := g.git(ctx, dir, "log", "--oneline", base+"..HEAD")
	if err != nil {
		return nil, fmt.Errorf("log %s..HEAD: %w", base, err)
	}
	if out == "" {
		return nil, nil
	}
	return strings.Split(out, "\n"), nil
}

// LastCommitTime returns the time of the newest commit in dir not on base,
// or the zero time when there is none.
func (g *Repo) LastCommitTime(ctx context.Context, dir, base string) (time.Time, error) {
	out, err := g.git(ctx, dir, "log", "-1", "--format=%ct", base+"..HEAD")
	if err != nil {
		return time.Time{}, fmt.Errorf("last commit time: %w", err)
	}
	if out == "" {
		return time.Time{}, nil
	}
	secs, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse commit time %q: %w", out, err)
	}
	return time.Unix(secs, 0), nil
}

// IsDirty reports whether dir has uncommitted changes.
func (g *Repo) IsDirty(ctx context.Context, dir string) (bool, error) {
	out, err := g.git(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("status %s: %w", dir, err)
	}
	return out != "", nil
}

// IsMerged reports whether branch is an ancestor of into. git exits 1 for
// "not an ancestor"; any other failure is an error.
func (g *Repo) IsMerged(ctx context.Context, branch, into string) (bool, error) {
	_, err := g.git(ctx, g.root, "merge-base", "--is-ancestor", branch, into)
	if err == nil {
		return true, nil
	}
	if runner.ExitCode(err) == 1 {
		return false, nil
	}
	return false, fmt.Errorf("merge-base --is-ancestor %s %s: %w", branch, into, err)
}

// Merge merges branch into the branch checked out at the repository root.
func (g *Repo) Merge(ctx context.Context, branch string) error {
	if _, err := g.git(ctx, g.root, "merge", "--no-edit", branch); err != nil {
		return fmt.Errorf("merge %s: %w", branch, err)
	}
	return nil
}
