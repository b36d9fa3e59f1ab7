package domain

import (
	"testing"
	"time"
)

func ts(day int) time.Time {
	return time.Date(2026, 2, day, 0, 0, 0, 0, time.UTC)
}

func TestJob_ObserveFold(t *testing.T) {
	job := NewJob("j1", Window{Since: ts(1)}, time.Hour, ts(1))

	job.Observe(Session{MemberID: "m1", CoachID: "c1", Channel: "chat", Timestamp: ts(10)})
	job.Observe(Session{MemberID: "m1", CoachID: "c2", Channel: "email", Timestamp: ts(5)})
	job.Observe(Session{MemberID: "m1", Channel: "chat", Timestamp: ts(8)})
	job.Observe(Session{MemberID: "m2", Channel: "phone", Timestamp: ts(3)})

	agg := job.Aggregates["m1"]
	if agg == nil {
		t.Fatal("expected aggregate for m1")
	}
	if !agg.LastSeen.Equal(ts(10)) {
		t.Errorf("last seen must be the max timestamp, got %s", agg.LastSeen)
	}
	if agg.Sessions != 3 {
		t.Errorf("expected 3 sessions folded, got %d", agg.Sessions)
	}
	if got := agg.ChannelList(); len(got) != 2 || got[0] != "chat" || got[1] != "email" {
		t.Errorf("expected channel union [chat email], got %v", got)
	}
	if got := agg.CoachList(); len(got) != 2 || got[0] != "c1" || got[1] != "c2" {
		t.Errorf("expected coach union [c1 c2], got %v", got)
	}
	if len(job.Sessions) != 4 {
		t.Errorf("expected 4 raw sessions, got %d", len(job.Sessions))
	}
}

func TestJob_SeenIDsMatchAggregates(t *testing.T) {
	job := NewJob("j1", Window{Since: ts(1)}, time.Hour, ts(1))
	for _, id := range []string{"a", "b", "c", "a", "b"} {
		job.Observe(Session{MemberID: id, Channel: "chat", Timestamp: ts(2)})
	}

	if len(job.SeenIDs) != len(job.Aggregates) {
		t.Fatalf("seen ids (%d) and aggregates (%d) out of sync", len(job.SeenIDs), len(job.Aggregates))
	}
	for id := range job.Aggregates {
		if _, ok := job.SeenIDs[id]; !ok {
			t.Errorf("aggregate id %q missing from seen set", id)
		}
	}
	for id := range job.SeenIDs {
		if _, ok := job.Aggregates[id]; !ok {
			t.Errorf("seen id %q missing from aggregates", id)
		}
	}
}

func TestJob_TerminalTransitions(t *testing.T) {
	now := ts(1)

	job := NewJob("j1", Window{Since: ts(1)}, time.Hour, now)
	if job.Terminal() {
		t.Error("queued job must not be terminal")
	}

	job.Fail("boom", now)
	if !job.Terminal() || job.Status != JobStatusError || job.Phase != PhaseComplete {
		t.Errorf("unexpected failed state: status=%s phase=%s", job.Status, job.Phase)
	}
	if job.ErrorMessage != "boom" {
		t.Errorf("expected error message retained, got %q", job.ErrorMessage)
	}

	job2 := NewJob("j2", Window{Since: ts(1)}, time.Hour, now)
	job2.Cancel(now)
	if !job2.Terminal() || job2.Status != JobStatusCancelled || job2.Phase != PhaseComplete {
		t.Errorf("unexpected cancelled state: status=%s phase=%s", job2.Status, job2.Phase)
	}
}
