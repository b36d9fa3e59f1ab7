package report

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tessa/caseload/internal/domain"
)

func completedJob(members, sessions int) *domain.Job {
	now := time.Now()
	job := domain.NewJob("done-1", domain.Window{Since: now.AddDate(0, 0, -30)}, time.Hour, now)
	for i := 0; i < members; i++ {
		job.Rows = append(job.Rows, domain.MemberRow{MemberID: fmt.Sprintf("m%d", i), Bucket: domain.BucketActive})
	}
	for i := 0; i < sessions; i++ {
		job.Sessions = append(job.Sessions, domain.Session{MemberID: "m0", Channel: "chat", Timestamp: now})
	}
	job.Summary = domain.Summary{Active: members, TotalMembers: members, TotalSessions: sessions}
	job.Status = domain.JobStatusComplete
	job.Phase = domain.PhaseComplete
	return job
}

func TestPageResults_MemberPaging(t *testing.T) {
	job := completedJob(5, 0)

	page, err := PageResults(job, ViewMembers, 0, 2, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Members) != 2 || page.Total != 5 {
		t.Fatalf("unexpected first page: len=%d total=%d", len(page.Members), page.Total)
	}
	if page.NextOffset == nil || *page.NextOffset != 2 {
		t.Fatal("expected next offset 2")
	}

	page, err = PageResults(job, ViewMembers, 4, 2, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Members) != 1 {
		t.Errorf("expected final partial page of 1, got %d", len(page.Members))
	}
	if page.NextOffset != nil {
		t.Error("expected no next offset on the last page")
	}

	// Offset past the end returns an empty page, not an error.
	page, err = PageResults(job, ViewMembers, 50, 2, 200)
	if err != nil || len(page.Members) != 0 || page.NextOffset != nil {
		t.Errorf("expected empty page past the end, got %+v err=%v", page, err)
	}
}

func TestPageResults_LimitClamped(t *testing.T) {
	job := completedJob(10, 0)

	page, err := PageResults(job, "", 0, 9999, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Members) != 3 {
		t.Errorf("expected limit clamped to max page size 3, got %d", len(page.Members))
	}
	if page.View != ViewMembers {
		t.Errorf("empty view must default to members, got %q", page.View)
	}

	// limit <= 0 falls back to the cap too.
	page, _ = PageResults(job, ViewMembers, 0, 0, 4)
	if len(page.Members) != 4 {
		t.Errorf("expected default limit of 4, got %d", len(page.Members))
	}
}

func TestPageResults_Views(t *testing.T) {
	job := completedJob(2, 7)

	sessions, err := PageResults(job, ViewSessions, 0, 5, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sessions.Sessions) != 5 || sessions.Total != 7 {
		t.Errorf("unexpected sessions page: len=%d total=%d", len(sessions.Sessions), sessions.Total)
	}

	summary, err := PageResults(job, ViewSummary, 0, 0, 200)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Summary == nil || summary.Summary.TotalMembers != 2 {
		t.Errorf("unexpected summary view: %+v", summary.Summary)
	}

	if _, err := PageResults(job, "bogus", 0, 0, 200); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for unknown view, got %v", err)
	}
}

func TestPageResults_ConflictBeforeComplete(t *testing.T) {
	job := domain.NewJob("j1", domain.Window{Since: time.Now()}, time.Hour, time.Now())
	job.Status = domain.JobStatusRunning

	if _, err := PageResults(job, ViewMembers, 0, 10, 200); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for running job, got %v", err)
	}
}

func TestPageResults_NegativeOffset(t *testing.T) {
	job := completedJob(1, 0)
	if _, err := PageResults(job, ViewMembers, -1, 10, 200); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for negative offset, got %v", err)
	}
}
