package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tessa/caseload/internal/domain"
	"github.com/tessa/caseload/internal/logger"
	"github.com/tessa/caseload/internal/report"
)

// CaseloadConfig holds control-plane settings.
type CaseloadConfig struct {
	MaxPageSize int
}

// CaseloadService is the control plane over the job registry and step
// engine: create, step, status, cancel, cleanup, results. Every operation
// starts with a registry sweep so abandoned jobs cost at most one TTL.
type CaseloadService struct {
	registry    *report.Registry
	engine      *report.Engine
	maxPageSize int
	logger      *logger.Logger
	now         func() time.Time
}

// NewCaseloadService creates the caseload control-plane service.
// Parameters:
//   - registry: job registry.
//   - engine: step engine.
//   - log: logger instance.
//   - cfg: control-plane configuration; nil uses a 200-row page cap.
//
// Returns:
//   - *CaseloadService: initialized service.
func NewCaseloadService(registry *report.Registry, engine *report.Engine, log *logger.Logger, cfg *CaseloadConfig) *CaseloadService {
	maxPageSize := 200
	if cfg != nil && cfg.MaxPageSize > 0 {
		maxPageSize = cfg.MaxPageSize
	}
	return &CaseloadService{
		registry:    registry,
		engine:      engine,
		maxPageSize: maxPageSize,
		logger:      log,
		now:         time.Now,
	}
}

// SetClock overrides the service clock. Test hook.
func (s *CaseloadService) SetClock(now func() time.Time) {
	s.now = now
}

// CreateResponse is returned when a job is allocated.
type CreateResponse struct {
	JobID  string           `json:"job_id"`
	Status domain.JobStatus `json:"status"`
	Phase  domain.JobPhase  `json:"phase"`
	Window domain.Window    `json:"window"`
}

// Create validates the window parameters and allocates a queued job.
// lookbackDays bounds the window's lower edge; a positive untilDays bounds
// the upper edge too, producing the delta window used to widen a previously
// loaded report. Validation runs before any job state is touched.
func (s *CaseloadService) Create(ctx context.Context, lookbackDays, untilDays int) (*CreateResponse, error) {
	s.sweep()

	if lookbackDays <= 0 {
		return nil, fmt.Errorf("%w: lookback_days must be positive, got %d", report.ErrInvalidArgument, lookbackDays)
	}
	if untilDays < 0 {
		return nil, fmt.Errorf("%w: until_days must not be negative, got %d", report.ErrInvalidArgument, untilDays)
	}
	if untilDays > 0 && untilDays >= lookbackDays {
		return nil, fmt.Errorf("%w: until_days (%d) must be inside lookback_days (%d)", report.ErrInvalidArgument, untilDays, lookbackDays)
	}

	now := s.now()
	window := domain.Window{Since: now.AddDate(0, 0, -lookbackDays)}
	if untilDays > 0 {
		until := now.AddDate(0, 0, -untilDays)
		window.Until = &until
	}

	job := s.registry.Create(window)
	logger.CtxInfo(ctx, "Created caseload job %s: lookback=%dd until=%dd", job.ID, lookbackDays, untilDays)

	return &CreateResponse{
		JobID:  job.ID,
		Status: job.Status,
		Phase:  job.Phase,
		Window: job.Window,
	}, nil
}

// Step advances the job one bounded slice of work and returns its progress.
// Stepping a terminal job returns the same terminal snapshot.
func (s *CaseloadService) Step(ctx context.Context, id string) (domain.Snapshot, error) {
	s.sweep()

	job, ok := s.registry.Get(id)
	if !ok {
		return domain.Snapshot{}, fmt.Errorf("%w: %s", report.ErrNotFound, id)
	}
	return s.engine.Step(ctx, job), nil
}

// Status returns the job's progress without advancing any work.
func (s *CaseloadService) Status(ctx context.Context, id string) (domain.Snapshot, error) {
	s.sweep()

	job, ok := s.registry.Get(id)
	if !ok {
		return domain.Snapshot{}, fmt.Errorf("%w: %s", report.ErrNotFound, id)
	}
	return job.Snapshot(), nil
}

// CancelResponse is returned when a job is cancelled.
type CancelResponse struct {
	Status domain.JobStatus `json:"status"`
	Done   bool             `json:"done"`
}

// Cancel terminates a non-terminal job. Cancelling an already terminal job
// leaves its status untouched.
func (s *CaseloadService) Cancel(ctx context.Context, id string) (*CancelResponse, error) {
	s.sweep()

	job, ok := s.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", report.ErrNotFound, id)
	}
	if !job.Terminal() {
		job.Cancel(s.now())
		logger.CtxInfo(ctx, "Cancelled caseload job %s", id)
	}
	return &CancelResponse{Status: job.Status, Done: job.Terminal()}, nil
}

// CleanupResponse is returned when a job is released.
type CleanupResponse struct {
	Deleted bool `json:"deleted"`
}

// Cleanup releases a job. Always succeeds; Deleted is false when the id was
// already absent.
func (s *CaseloadService) Cleanup(ctx context.Context, id string) *CleanupResponse {
	s.sweep()
	return &CleanupResponse{Deleted: s.registry.Delete(id)}
}

// Results pages through a completed job's frozen result set.
func (s *CaseloadService) Results(ctx context.Context, id, view string, offset, limit int) (*report.ResultsPage, error) {
	s.sweep()

	job, ok := s.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", report.ErrNotFound, id)
	}
	return report.PageResults(job, view, offset, limit, s.maxPageSize)
}

func (s *CaseloadService) sweep() {
	if n := s.registry.SweepExpired(s.now()); n > 0 {
		s.logger.WithField(logger.FieldCount, n).Info("Swept expired caseload jobs")
	}
}
