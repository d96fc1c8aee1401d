package health

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"time"
)

// NewestModTime returns the latest modification time of any regular file
// under dir, ignoring .git. It returns the zero time for an empty tree.
func NewestModTime(dir string) (time.Time, error) {
	var newest time.Time
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == ".git" || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // removed while walking
		}
		if mt := info.ModTime(); mt.After(newest) {
			newest = mt
		}
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("scan %s: %w", dir, err)
	}
	return newest, nil
}
