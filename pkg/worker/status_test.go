package worker

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to Kind
		want     bool
	}{
		{KindSpawned, KindRunning, true},
		{KindSpawned, KindWaitingReview, false},
		{KindSpawned, KindFailed, true},
		{KindRunning, KindWaitingReview, true},
		{KindRunning, KindApproved, false},
		{KindWaitingReview, KindApproved, true},
		{KindWaitingReview, KindRunning, true},
		{KindApproved, KindMerged, true},
		{KindApproved, KindRunning, false},
		{KindApproved, KindArchived, true},
		{KindMerged, KindFailed, false},
		{KindFailed, KindRunning, false},
		{KindArchived, KindFailed, false},
		{Kind("bogus"), KindFailed, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestStatusPayloadAccessors(t *testing.T) {
	t.Parallel()

	d := DiffStats{FilesChanged: 2, Insertions: 10, Deletions: 3}
	wr := StatusWaitingReview(d)
	if got, ok := wr.DiffStats(); !ok || got.FilesChanged != 2 {
		t.Errorf("DiffStats() = %v, %v", got, ok)
	}
	if _, ok := wr.Reason(); ok {
		t.Error("WaitingReview must not carry a reason")
	}

	f := StatusFailed("window creation failed")
	if r, ok := f.Reason(); !ok || r != "window creation failed" {
		t.Errorf("Reason() = %q, %v", r, ok)
	}
	if _, ok := f.DiffStats(); ok {
		t.Error("Failed must not carry diff stats")
	}
	if !f.IsTerminal() || StatusRunning().IsTerminal() {
		t.Error("terminal classification wrong")
	}
}

func TestStatusJSONShape(t *testing.T) {
	t.Parallel()

	data, err := json.Marshal(StatusFailed("boom"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"kind":"failed","reason":"boom"}` {
		t.Errorf("failed encoded as %s", data)
	}

	data, err = json.Marshal(StatusWaitingReview(DiffStats{FilesChanged: 1, Insertions: 4}))
	if err != nil {
		t.Fatal(err)
	}
	var back Status
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if d, ok := back.DiffStats(); !ok || d.Insertions != 4 {
		t.Errorf("diff stats lost: %s", data)
	}
}

func TestStatusRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	var s Status
	err := json.Unmarshal([]byte(`{"kind":"paused"}`), &s)
	if err == nil || !strings.Contains(err.Error(), "paused") {
		t.Fatalf("Unmarshal unknown kind: err = %v", err)
	}
	if _, err := json.Marshal(Status{}); err == nil {
		t.Error("zero Status must not marshal")
	}
}

func TestWorkerSetStatus(t *testing.T) {
	t.Parallel()

	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	w := New("alpha", "/r/.jig/alpha", "alpha", "origin/main", "jig-r", t0)
	if w.Window != "alpha" || w.Status.Kind() != KindSpawned || !w.CreatedAt.Equal(w.UpdatedAt) {
		t.Fatalf("unexpected new worker %+v", w)
	}

	t1 := t0.Add(time.Minute)
	if err := w.SetStatus(StatusRunning(), t1); err != nil {
		t.Fatal(err)
	}
	if !w.UpdatedAt.Equal(t1) {
		t.Errorf("UpdatedAt = %v, want %v", w.UpdatedAt, t1)
	}

	err := w.SetStatus(StatusMerged(), t1.Add(time.Minute))
	var ite *IllegalTransitionError
	if !errors.As(err, &ite) || ite.From != KindRunning || ite.To != KindMerged {
		t.Fatalf("SetStatus(Merged) from Running: err = %v", err)
	}
	if w.Status.Kind() != KindRunning {
		t.Error("status changed despite illegal transition")
	}

	// Clock skew never moves UpdatedAt backwards.
	if err := w.SetStatus(StatusWaitingReview(DiffStats{FilesChanged: 1}), t0); err != nil {
		t.Fatal(err)
	}
	if !w.UpdatedAt.Equal(t1) {
		t.Errorf("UpdatedAt moved backwards to %v", w.UpdatedAt)
	}
	if err := w.SetStatus(StatusWaitingReview(DiffStats{FilesChanged: 3}), t1); err != nil {
		t.Errorf("refreshing WaitingReview: %v", err)
	}
}

func TestNewIDUnique(t *testing.T) {
	t.Parallel()

	seen := map[ID]bool{}
	for range 100 {
		id := NewID()
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
	}
}
