package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tessa/caseload/internal/domain"
	"github.com/tessa/caseload/internal/logger"
	"github.com/tessa/caseload/internal/report"
)

func newTestService() *CaseloadService {
	registry := report.NewRegistry(10*time.Minute, time.Hour)
	engine := report.NewEngine(nil, nil, nil)
	return NewCaseloadService(registry, engine, logger.GetDefault(), nil)
}

func TestCaseloadService_CreateValidation(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	tests := []struct {
		name     string
		lookback int
		until    int
		wantErr  bool
	}{
		{name: "valid simple window", lookback: 30, wantErr: false},
		{name: "valid delta window", lookback: 60, until: 30, wantErr: false},
		{name: "zero lookback", lookback: 0, wantErr: true},
		{name: "negative lookback", lookback: -5, wantErr: true},
		{name: "negative until", lookback: 30, until: -1, wantErr: true},
		{name: "until outside lookback", lookback: 30, until: 30, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Create(ctx, tt.lookback, tt.until)
			if tt.wantErr {
				if !errors.Is(err, report.ErrInvalidArgument) {
					t.Fatalf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.JobID == "" || resp.Status != domain.JobStatusQueued || resp.Phase != domain.PhaseConversations {
				t.Errorf("unexpected create response: %+v", resp)
			}
		})
	}
}

func TestCaseloadService_DeltaWindowBounds(t *testing.T) {
	svc := newTestService()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return base })

	resp, err := svc.Create(context.Background(), 60, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Window.Since.Equal(base.AddDate(0, 0, -60)) {
		t.Errorf("unexpected since: %s", resp.Window.Since)
	}
	if resp.Window.Until == nil || !resp.Window.Until.Equal(base.AddDate(0, 0, -30)) {
		t.Errorf("unexpected until: %v", resp.Window.Until)
	}

	// Plain lookback leaves the window open-ended.
	resp, err = svc.Create(context.Background(), 30, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Window.Until != nil {
		t.Error("expected open-ended window without until_days")
	}
}

func TestCaseloadService_UnknownJob(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Step(ctx, "nope"); !errors.Is(err, report.ErrNotFound) {
		t.Errorf("step: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Status(ctx, "nope"); !errors.Is(err, report.ErrNotFound) {
		t.Errorf("status: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Cancel(ctx, "nope"); !errors.Is(err, report.ErrNotFound) {
		t.Errorf("cancel: expected ErrNotFound, got %v", err)
	}
	if _, err := svc.Results(ctx, "nope", "", 0, 10); !errors.Is(err, report.ErrNotFound) {
		t.Errorf("results: expected ErrNotFound, got %v", err)
	}
	if resp := svc.Cleanup(ctx, "nope"); resp.Deleted {
		t.Error("cleanup of unknown id must report deleted=false")
	}
}

func TestCaseloadService_CancelAndCleanup(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	created, err := svc.Create(ctx, 30, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancelled, err := svc.Cancel(ctx, created.JobID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != domain.JobStatusCancelled || !cancelled.Done {
		t.Errorf("unexpected cancel response: %+v", cancelled)
	}

	// Cancelling again keeps the terminal status.
	cancelled, err = svc.Cancel(ctx, created.JobID)
	if err != nil || cancelled.Status != domain.JobStatusCancelled {
		t.Errorf("repeat cancel must be stable, got %+v err=%v", cancelled, err)
	}

	// Results on a cancelled job conflict rather than return partial data.
	if _, err := svc.Results(ctx, created.JobID, "", 0, 10); !errors.Is(err, report.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	if resp := svc.Cleanup(ctx, created.JobID); !resp.Deleted {
		t.Error("expected cleanup to delete the job")
	}
	if _, err := svc.Status(ctx, created.JobID); !errors.Is(err, report.ErrNotFound) {
		t.Error("expected job gone after cleanup")
	}
}

func TestCaseloadService_SweepOnRequest(t *testing.T) {
	registry := report.NewRegistry(10*time.Minute, time.Hour)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	now := base
	registry.SetClock(func() time.Time { return now })

	svc := NewCaseloadService(registry, report.NewEngine(nil, nil, nil), logger.GetDefault(), nil)
	svc.SetClock(func() time.Time { return now })

	created, err := svc.Create(context.Background(), 30, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Any inbound operation after the TTL evicts the abandoned job.
	now = base.Add(11 * time.Minute)
	if _, err := svc.Status(context.Background(), created.JobID); !errors.Is(err, report.ErrNotFound) {
		t.Errorf("expected swept job to be NotFound, got %v", err)
	}
}
