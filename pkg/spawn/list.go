package spawn

import (
	"context"
	"os"
	"sort"
	"time"

	"jig/pkg/eventlog"
	"jig/pkg/state"
	"jig/pkg/worker"
)

// LiveStatus is what the multiplexer says about a worker right now.
type LiveStatus string

// Live statuses reported by List.
const (
	LiveRunning   LiveStatus = "running"    // window present, agent process alive
	LiveExited    LiveStatus = "exited"     // window present, agent back at the shell
	LiveNoWindow  LiveStatus = "no-window"  // session present, window gone
	LiveNoSession LiveStatus = "no-session" // session gone
	LiveInactive  LiveStatus = "inactive"   // terminal worker, not checked
)

// TaskInfo is one row of the reconciled listing.
type TaskInfo struct {
	Name         string
	ID           worker.ID
	Registered   bool // false for windows found without a document entry
	Live         LiveStatus
	Status       worker.Status
	Branch       string
	BaseBranch   string
	WorktreePath string
	CommitsAhead int
	Dirty        bool
	Pruned       bool // removed from the document by this listing
	UpdatedAt    time.Time
}

// ListOptions controls List.
type ListOptions struct {
	All bool // include terminal workers
}

// List reconciles the document against the multiplexer and returns one row
// per worker, sorted by name. Active workers whose window or session is gone
// are removed from the document and saved, but still appear in this result
// with Pruned set. When no document exists, List falls back to the
// repository session's windows that have a working copy.
func (c *Coordinator) List(ctx context.Context, opts ListOptions) ([]TaskInfo, error) {
	existing, err := state.Load(c.root)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return c.listUnregistered(ctx)
	}

	var infos []TaskInfo
	var pruned []*worker.Worker
	err = c.update(ctx, func(s *state.OrchestratorState) (bool, error) {
		sessionLive := map[string]bool{}
		for _, w := range s.AllWorkers() {
			info := TaskInfo{
				Name: w.Name, ID: w.ID, Registered: true, Status: w.Status,
				Branch: w.Branch, BaseBranch: w.BaseBranch, WorktreePath: w.WorktreePath, Live: LiveInactive,
				UpdatedAt: w.UpdatedAt,
			}
			if !w.IsActive() {
				if opts.All {
					infos = append(infos, info)
				}
				continue
			}
			live, ok := sessionLive[w.Session]
			if !ok {
				live = c.sessions.SessionExists(ctx, w.Session)
				sessionLive[w.Session] = live
			}
			info.Live = c.liveStatus(ctx, w, live)
			if info.Live == LiveNoSession || info.Live == LiveNoWindow {
				s.RemoveWorker(w.ID)
				pruned = append(pruned, w)
				info.Pruned = true
			}
			infos = append(infos, info)
		}
		return len(pruned) > 0, nil
	})
	if err != nil {
		return nil, err
	}

	if len(pruned) > 0 {
		hs := c.loadHealth()
		for _, w := range pruned {
			hs.RemoveWorker(w.Name)
			c.logger.Info("pruned stale worker", "worker", w.Name, "session", w.Session)
			c.record(ctx, eventlog.TypePrune, w, nil)
		}
		c.saveHealth(hs)
	}

	for i := range infos {
		c.fillVCS(ctx, &infos[i])
	}
	return infos, nil
}

func (c *Coordinator) liveStatus(ctx context.Context, w *worker.Worker, sessionLive bool) LiveStatus {
	switch {
	case !sessionLive:
		return LiveNoSession
	case !c.sessions.WindowExists(ctx, w.Session, w.Window):
		return LiveNoWindow
	case c.sessions.PaneIsRunning(ctx, w.Session, w.Window):
		return LiveRunning
	default:
		return LiveExited
	}
}

// fillVCS adds commit and dirty information; failures leave zero values.
func (c *Coordinator) fillVCS(ctx context.Context, info *TaskInfo) {
	if info.WorktreePath == "" {
		return
	}
	base := info.BaseBranch
	if base == "" {
		base = c.cfg.Repo.BaseBranch
	}
	if _, err := os.Stat(info.WorktreePath); err != nil {
		return
	}
	if commits, err := c.git.CommitsAhead(ctx, info.WorktreePath, base); err == nil {
		info.CommitsAhead = len(commits)
	} else {
		c.logger.Debug("commits ahead", "worker", info.Name, "error", err)
	}
	if dirty, err := c.git.IsDirty(ctx, info.WorktreePath); err == nil {
		info.Dirty = dirty
	}
}

// listUnregistered reports live windows that map to a working copy when no
// orchestrator document exists yet.
func (c *Coordinator) listUnregistered(ctx context.Context) ([]TaskInfo, error) {
	sessionName := c.SessionName()
	if !c.sessions.SessionExists(ctx, sessionName) {
		return nil, nil
	}
	windows, err := c.sessions.ListWindows(ctx, sessionName)
	if err != nil {
		return nil, err
	}
	var infos []TaskInfo
	for _, name := range windows {
		path := c.WorktreePath(name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		info := TaskInfo{Name: name, WorktreePath: path, Live: LiveExited}
		if c.sessions.PaneIsRunning(ctx, sessionName, name) {
			info.Live = LiveRunning
		}
		if branch, err := c.git.CurrentBranch(ctx, path); err == nil {
			info.Branch = branch
		}
		c.fillVCS(ctx, &info)
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

