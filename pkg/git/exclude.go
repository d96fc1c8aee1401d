package git

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureExcluded appends pattern to the repository's info/exclude unless an
// identical line is already present, so working copies under .jig never
// show up as untracked files.
func (g *Repo) EnsureExcluded(ctx context.Context, pattern string) error {
	common, err := g.git(ctx, g.root, "rev-parse", "--path-format=absolute", "--git-common-dir")
	if err != nil {
		return fmt.Errorf("locate git dir: %w", err)
	}
	path := filepath.Join(common, "info", "exclude")

	data, err := os.ReadFile(path) //nolint:gosec // inside the repository's git dir
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read %s: %w", path, err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == pattern {
			return nil
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create info dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // see above
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	prefix := ""
	if len(data) > 0 && !strings.HasSuffix(string(data), "\n") {
		prefix = "\n"
	}
	if _, err := fmt.Fprintf(f, "%s%s\n", prefix, pattern); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
