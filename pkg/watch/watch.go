// Package watch turns filesystem activity in a directory into debounced
// change notifications.
package watch

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the burst of events an atomic rename produces.
const DefaultDebounce = 100 * time.Millisecond

// Watcher delivers one notification per quiet period after activity in a
// directory. Notifications are dropped, not queued, while one is pending.
type Watcher struct {
	fs       *fsnotify.Watcher
	changes  chan struct{}
	done     chan struct{}
	debounce time.Duration
	logger   *slog.Logger
	names    map[string]bool // nil means every entry
}

// New starts watching dir. The directory must exist. When names are given,
// only activity on entries with those base names counts.
func New(dir string, debounce time.Duration, logger *slog.Logger, names ...string) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}
	w := &Watcher{
		fs:       fw,
		changes:  make(chan struct{}, 1),
		done:     make(chan struct{}),
		debounce: debounce,
		logger:   logger,
	}
	if len(names) > 0 {
		w.names = make(map[string]bool, len(names))
		for _, n := range names {
			w.names[n] = true
		}
	}
	go w.loop()
	return w, nil
}

// Changes receives a value after each debounced burst of activity.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Close stops the watcher. Changes is not closed.
func (w *Watcher) Close() error {
	err := w.fs.Close()
	<-w.done
	return err
}

func (w *Watcher) loop() {
	defer close(w.done)

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if w.names != nil && !w.names[filepath.Base(ev.Name)] {
				continue
			}
			resetTimer(timer, w.debounce)
		case <-timer.C:
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("fsnotify error", "error", err)
		}
	}
}

func resetTimer(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}
