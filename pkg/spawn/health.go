package spawn

import (
	"context"
	"time"

	"jig/pkg/eventlog"
	"jig/pkg/health"
	"jig/pkg/protocol"
	"jig/pkg/state"
	"jig/pkg/worker"
)

// Default nudge messages by type.
var defaultNudges = map[string]string{ //nolint:gochecknoglobals // read-only table
	health.NudgeIdle:  "You seem to be idle. If the task is done, commit your work and summarize it; otherwise continue.",
	health.NudgeStuck: "You appear to be waiting on a confirmation prompt. Choose an option to continue.",
}

// HealthReport is the per-worker outcome of one health poll.
type HealthReport struct {
	Name        string
	Liveness    health.Liveness
	Status      worker.Status
	Transition  *worker.Kind // set when the poll moved the worker
	Nudges      map[string]int
	MaxNudges   int
	Age         time.Duration
	SinceCommit time.Duration
	SinceEdit   time.Duration // since the newest file change in the working copy
	CommitCount int
	Err         error // window gone or capture failure; Liveness is meaningless when set
}

// Exhausted reports whether the nudge counter for typ reached the threshold.
func (r HealthReport) Exhausted(typ string) bool {
	return r.Nudges[typ] >= r.MaxNudges
}

// CheckHealth captures each active worker's pane, classifies it, refreshes
// commit telemetry and applies the automatic transitions:
//
//	Spawned       -> Running        on Working or Stuck
//	WaitingReview -> Running        on Working
//	Running       -> WaitingReview  on Idle with pending changes, when auto-review is on
//
// Nudge counters whose condition cleared are reset. Escalation itself is
// left to the caller.
func (c *Coordinator) CheckHealth(ctx context.Context) ([]HealthReport, error) {
	var reports []HealthReport
	var moved []statusChange
	hs := c.loadHealth()
	now := c.now()

	err := c.update(ctx, func(s *state.OrchestratorState) (bool, error) {
		changed := false
		for _, w := range s.ActiveWorkers() {
			r := c.checkOne(ctx, w, hs, now)
			if r.Transition != nil {
				changed = true
				moved = append(moved, statusChange{w: w, from: *r.Transition, to: w.Status})
			}
			reports = append(reports, r)
		}
		return changed, nil
	})
	if err != nil {
		return nil, err
	}
	c.saveHealth(hs)

	for _, m := range moved {
		c.logger.Info("status changed", "worker", m.w.Name, "from", m.from, "to", m.to.Kind())
		c.record(ctx, eventlog.TypeStatus, m.w, statusPayload(m.from, m.to))
	}
	return reports, nil
}

type statusChange struct {
	w    *worker.Worker
	from worker.Kind
	to   worker.Status
}

func (c *Coordinator) checkOne(ctx context.Context, w *worker.Worker, hs *health.State, now time.Time) HealthReport {
	r := HealthReport{Name: w.Name, Status: w.Status, MaxNudges: hs.MaxNudges}

	wh, ok := hs.Worker(w.Name)
	if !ok {
		wh = hs.AddWorker(w.Name, w.CreatedAt)
	}
	if last, err := c.git.LastCommitTime(ctx, w.WorktreePath, w.BaseBranch); err == nil {
		count := wh.CommitCount
		if commits, err := c.git.CommitsAhead(ctx, w.WorktreePath, w.BaseBranch); err == nil {
			count = len(commits)
		}
		wh.RecordCommits(last, count)
	}
	if mod, err := health.NewestModTime(w.WorktreePath); err == nil {
		wh.RecordFileMod(mod)
	} else {
		c.logger.Debug("scan working copy", "worker", w.Name, "error", err)
	}
	r.Age = wh.Age(now)
	r.SinceCommit = wh.SinceCommit(now)
	r.SinceEdit = wh.SinceFileMod(now)
	r.CommitCount = wh.CommitCount

	if !c.sessions.WindowExists(ctx, w.Session, w.Window) {
		r.Err = &protocol.NotFoundError{Kind: "window", Name: w.Window}
		r.Nudges = copyCounts(wh.Nudges)
		return r
	}
	text, err := c.sessions.CapturePane(ctx, w.Session, w.Window, c.captureLines())
	if err != nil {
		c.logger.Warn("capture pane", "worker", w.Name, "error", err)
		r.Err = err
		r.Nudges = copyCounts(wh.Nudges)
		return r
	}
	r.Liveness = c.detector.Detect(text)

	if r.Liveness != health.Idle {
		wh.ResetNudge(health.NudgeIdle)
	}
	if r.Liveness != health.Stuck {
		wh.ResetNudge(health.NudgeStuck)
	}
	r.Nudges = copyCounts(wh.Nudges)

	if next, ok := c.nextStatus(ctx, w, r.Liveness); ok {
		from := w.Status.Kind()
		if err := w.SetStatus(next, now); err != nil {
			c.logger.Warn("automatic transition", "worker", w.Name, "error", err)
		} else {
			r.Transition = &from
			r.Status = w.Status
		}
	}
	return r
}

// nextStatus decides the automatic transition for a classified pane.
func (c *Coordinator) nextStatus(ctx context.Context, w *worker.Worker, l health.Liveness) (worker.Status, bool) {
	switch w.Status.Kind() {
	case worker.KindSpawned:
		if l == health.Working || l == health.Stuck {
			return worker.StatusRunning(), true
		}
	case worker.KindWaitingReview:
		if l == health.Working {
			return worker.StatusRunning(), true
		}
	case worker.KindRunning:
		if l != health.Idle || !c.cfg.Repo.AutoReview {
			return worker.Status{}, false
		}
		stats, err := c.git.DiffStats(ctx, w.WorktreePath, w.BaseBranch)
		if err != nil {
			c.logger.Warn("diff stats", "worker", w.Name, "error", err)
			return worker.Status{}, false
		}
		if !stats.Empty() {
			return worker.StatusWaitingReview(stats), true
		}
	}
	return worker.Status{}, false
}

func (c *Coordinator) captureLines() int {
	if c.cfg.Health.CaptureLines > 0 {
		return c.cfg.Health.CaptureLines
	}
	return 20
}

func copyCounts(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Nudge types message into the worker's window and bumps its nudge counter
// for nudgeType. An empty message uses the default text for the type.
// It returns the new count.
func (c *Coordinator) Nudge(ctx context.Context, name, nudgeType, message string) (int, error) {
	w, err := c.Get(ctx, name)
	if err != nil {
		return 0, err
	}
	if !w.IsActive() {
		return 0, &protocol.NotFoundError{Kind: "worker", Name: name}
	}
	if !c.sessions.WindowExists(ctx, w.Session, w.Window) {
		return 0, &protocol.NotFoundError{Kind: "window", Name: w.Window}
	}
	if message == "" {
		message = defaultNudges[nudgeType]
	}
	if message == "" {
		message = "Status check: please report your progress."
	}
	if err := c.sessions.SendKeys(ctx, w.Session, w.Window, message); err != nil {
		return 0, err
	}

	hs := c.loadHealth()
	wh, ok := hs.Worker(name)
	if !ok {
		wh = hs.AddWorker(name, w.CreatedAt)
	}
	count := wh.IncrementNudge(nudgeType)
	c.saveHealth(hs)

	c.logger.Info("nudged worker", "worker", name, "type", nudgeType, "count", count, "max", hs.MaxNudges)
	c.record(ctx, eventlog.TypeNudge, w, map[string]any{"type": nudgeType, "count": count})
	return count, nil
}
