package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"

	"jig/pkg/protocol"
)

// lockPollInterval is how often Acquire retries a held lock.
const lockPollInterval = 50 * time.Millisecond

// FileLock is an advisory exclusive lock serializing read-modify-write
// cycles on the orchestrator document across processes.
type FileLock struct {
	path string
	file *os.File
}

// NewFileLock returns the lock for repoRoot's orchestrator document.
func NewFileLock(repoRoot string) *FileLock {
	return &FileLock{path: protocol.LockPath(repoRoot)}
}

// Acquire takes the lock, polling until ctx is done.
func (fl *FileLock) Acquire(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(fl.path), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0o600) //nolint:gosec // fixed path under repo
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			fl.file = f
			return nil
		}
		if !errors.Is(err, unix.EWOULDBLOCK) {
			_ = f.Close()
			return fmt.Errorf("acquire state lock: %w", err)
		}
		select {
		case <-ctx.Done():
			_ = f.Close()
			return fmt.Errorf("acquire state lock (held by another jig process): %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Release drops the lock. The lock file stays in place so that every
// process always locks the same inode.
func (fl *FileLock) Release() error {
	if fl.file == nil {
		return nil
	}
	err := unix.Flock(int(fl.file.Fd()), unix.LOCK_UN)
	closeErr := fl.file.Close()
	fl.file = nil
	if err != nil {
		return fmt.Errorf("release state lock: %w", err)
	}
	return closeErr
}
