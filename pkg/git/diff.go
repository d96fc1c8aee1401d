package git

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"jig/pkg/worker"
)

// mergeBase returns the fork point of HEAD in dir from base.
func (g *Repo) mergeBase(ctx context.Context, dir, base string) (string, error) {
	out, err := g.git(ctx, dir, "merge-base", base, "HEAD")
	if err != nil {
		return "", fmt.Errorf("merge-base %s HEAD: %w", base, err)
	}
	return out, nil
}

// DiffStats summarizes committed and uncommitted changes in dir since it
// forked from base.
func (g *Repo) DiffStats(ctx context.Context, dir, base string) (worker.DiffStats, error) {
	mb, err := g.mergeBase(ctx, dir, base)
	if err != nil {
		return worker.DiffStats{}, err
	}
	out, err := g.git(ctx, dir, "diff", "--numstat", mb)
	if err != nil {
		return worker.DiffStats{}, fmt.Errorf("diff --numstat: %w", err)
	}
	return parseNumstat(out), nil
}

// DiffSummary returns `git diff --stat` output since the fork point, or the
// full patch when full is set.
func (g *Repo) DiffSummary(ctx context.Context, dir, base string, full bool) (string, error) {
	mb, err := g.mergeBase(ctx, dir, base)
	if err != nil {
		return "", err
	}
	args := []string{"diff", "--stat", mb}
	if full {
		args = []string{"diff", mb}
	}
	out, err := g.git(ctx, dir, args...)
	if err != nil {
		return "", fmt.Errorf("diff: %w", err)
	}
	return out, nil
}

// parseNumstat parses `git diff --numstat`. Binary files report "-" counts
// and contribute a file but no line counts.
func parseNumstat(out string) worker.DiffStats {
	var stats worker.DiffStats
	for _, line := range strings.Split(out, "\n") {
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			continue
		}
		ins, _ := strconv.Atoi(fields[0])
		del, _ := strconv.Atoi(fields[1])
		stats.Files = append(stats.Files, worker.FileDiff{Path: fields[2], Insertions: ins, Deletions: del})
		stats.FilesChanged++
		stats.Insertions += ins
		stats.Deletions += del
	}
	return stats
}
