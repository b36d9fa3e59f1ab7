package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tessa/caseload/internal/cache"
	"github.com/tessa/caseload/internal/domain"
	"github.com/tessa/caseload/internal/helpdesk"
	"github.com/tessa/caseload/internal/logger"
)

// EngineConfig holds the step scheduler knobs.
type EngineConfig struct {
	// StepBudget is the wall-clock ceiling for one step; StepSafetyMargin is
	// shaved off so the caller can still serialize a response in time.
	StepBudget       time.Duration
	StepSafetyMargin time.Duration

	// MinCallWindow is the least remaining time under which no further
	// outbound call is started. This is what keeps a step bounded.
	MinCallWindow time.Duration

	// PageSize is the conversation search page size. ContactBatchSize is the
	// id batch for contact hydration, kept conservatively below the API's
	// hard cap of helpdesk.MaxContactBatch.
	PageSize         int
	ContactBatchSize int

	// DirectoryTTL bounds the coach/admin directory cache.
	DirectoryTTL time.Duration

	// MaxTimeoutStreak is the number of consecutive transient timeouts a job
	// survives before it fails permanently.
	MaxTimeoutStreak int
}

// DefaultEngineConfig returns the production step scheduler defaults.
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		StepBudget:       20 * time.Second,
		StepSafetyMargin: 1250 * time.Millisecond,
		MinCallWindow:    3 * time.Second,
		PageSize:         50,
		ContactBatchSize: 25,
		DirectoryTTL:     10 * time.Minute,
		MaxTimeoutStreak: 3,
	}
}

// Engine advances jobs one bounded step at a time. All remote traffic goes
// through the helpdesk client, which inherits the step deadline.
type Engine struct {
	client *helpdesk.Client
	cfg    EngineConfig
	logger *logger.Logger
	now    func() time.Time
}

// NewEngine creates a step scheduler.
// Parameters:
//   - client: helpdesk API client.
//   - cfg: engine configuration; nil uses DefaultEngineConfig.
//   - log: logger instance.
//
// Returns:
//   - *Engine: initialized engine.
func NewEngine(client *helpdesk.Client, cfg *EngineConfig, log *logger.Logger) *Engine {
	if cfg == nil {
		cfg = DefaultEngineConfig()
	}
	return &Engine{
		client: client,
		cfg:    *cfg,
		logger: log,
		now:    time.Now,
	}
}

// SetClock overrides the engine clock. Test hook.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Step runs the job's state machine until its work is exhausted or the step
// deadline approaches, then returns a progress snapshot. Stepping a terminal
// job is a no-op that returns the same terminal snapshot.
func (e *Engine) Step(ctx context.Context, job *domain.Job) domain.Snapshot {
	if job.Terminal() {
		return job.Snapshot()
	}

	start := e.now()
	job.Status = domain.JobStatusRunning
	deadline := start.Add(e.cfg.StepBudget - e.cfg.StepSafetyMargin)

	ctx = logger.WithFields(ctx, logger.Fields{
		logger.FieldJobID: job.ID,
		logger.FieldPhase: string(job.Phase),
	})

	err := e.advance(ctx, job, deadline)
	job.Touch(e.now())

	if err != nil {
		if helpdesk.IsTransientTimeout(err) {
			job.TimeoutStreak++
			if job.TimeoutStreak >= e.cfg.MaxTimeoutStreak {
				job.Fail(fmt.Sprintf("aborted after %d consecutive timeouts: %v", job.TimeoutStreak, err), e.now())
			} else {
				logger.CtxWarn(ctx, "Transient timeout, job will retry on next step: streak=%d err=%v", job.TimeoutStreak, err)
			}
		} else {
			job.Fail(err.Error(), e.now())
			logger.CtxError(ctx, "Job failed: %v", err)
		}
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: e.now().Sub(start).Milliseconds(),
		logger.FieldPhase:      string(job.Phase),
		logger.FieldStatus:     string(job.Status),
	}).Info(ctx, "Step finished: job=%s pages=%d conversations=%d", job.ID, job.PagesFetched, job.ConversationsFetched)

	return job.Snapshot()
}

// advance runs the current phase until its exit condition holds or the
// deadline approaches, moving to the next phase at most once per step.
// Phases never regress; a soft retry re-enters the same phase.
func (e *Engine) advance(ctx context.Context, job *domain.Job, deadline time.Time) error {
	if err := e.refreshDirectory(ctx, job, deadline); err != nil {
		return err
	}

	switch job.Phase {
	case domain.PhaseConversations:
		done, err := e.stepConversations(ctx, job, deadline)
		if err != nil || !done {
			return err
		}
		job.Phase = domain.PhaseContacts

	case domain.PhaseContacts:
		done, err := e.stepContacts(ctx, job, deadline)
		if err != nil || !done {
			return err
		}
		job.Phase = domain.PhaseFinalize

	case domain.PhaseFinalize:
		e.finalize(job)
	}
	return nil
}

// stepConversations pages through the conversation search, folding each
// parsed record into the per-member aggregates. Returns done=true once the
// cursor is exhausted; done=false means time ran out and the cursor resumes
// on the next step.
func (e *Engine) stepConversations(ctx context.Context, job *domain.Job, deadline time.Time) (bool, error) {
	for {
		if time.Until(deadline) < e.cfg.MinCallWindow {
			return false, nil
		}

		page, err := e.client.SearchConversations(ctx, job.Window.Since, job.Window.Until, job.Cursor, e.cfg.PageSize, deadline)
		if err != nil {
			return false, err
		}
		job.TimeoutStreak = 0

		job.PagesFetched++
		job.ConversationsFetched += len(page.Conversations)
		for _, conv := range page.Conversations {
			job.Observe(domain.Session{
				MemberID:  conv.MemberID,
				CoachID:   conv.CoachID,
				Channel:   conv.Channel,
				Timestamp: conv.Timestamp,
			})
		}

		job.Cursor = page.NextCursor
		if page.NextCursor == "" {
			return true, nil
		}
		if len(page.Conversations) == 0 {
			// Empty page with a live cursor: keep the cursor but yield the
			// step instead of spinning.
			return false, nil
		}
	}
}

// stepContacts hydrates every seen member id not yet resolved in the record
// cache, in fixed-size batches. Ids absent from a batch response are
// negative-cached so they are not re-fetched every step.
func (e *Engine) stepContacts(ctx context.Context, job *domain.Job, deadline time.Time) (bool, error) {
	for {
		pending := job.PendingContacts()
		if len(pending) == 0 {
			return true, nil
		}
		if time.Until(deadline) < e.cfg.MinCallWindow {
			return false, nil
		}

		batch := pending
		if len(batch) > e.cfg.ContactBatchSize {
			batch = batch[:e.cfg.ContactBatchSize]
		}

		contacts, err := e.client.SearchContacts(ctx, batch, deadline)
		if err != nil {
			return false, err
		}
		job.TimeoutStreak = 0

		returned := make(map[string]bool, len(contacts))
		for _, ct := range contacts {
			job.Contacts.Put(ct)
			returned[ct.ID] = true
			job.ContactsFetched++
		}
		for _, id := range batch {
			if !returned[id] {
				job.Contacts.PutNotFound(id)
			}
		}
	}
}

// finalize builds the frozen result rows and summary histogram, then moves
// the job to its terminal complete state. No remote calls happen here.
func (e *Engine) finalize(job *domain.Job) {
	now := e.now()
	job.GeneratedAt = now

	var summary domain.Summary
	summary.TotalSessions = len(job.Sessions)

	rows := make([]domain.MemberRow, 0, len(job.Aggregates))
	for id, agg := range job.Aggregates {
		days := domain.DaysSince(agg.LastSeen, now)
		row := domain.MemberRow{
			MemberID:      id,
			LastSeen:      agg.LastSeen,
			DaysSinceSeen: days,
			Sessions:      agg.Sessions,
			Channels:      agg.ChannelList(),
			Coaches:       e.coachNames(job, agg),
			Bucket:        domain.BucketFor(days),
		}
		if ct, res := job.Contacts.Get(id); res == cache.Hit {
			row.Name = ct.Name
			row.Email = ct.Email
		}
		summary.Count(row.Bucket)
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].LastSeen.Equal(rows[j].LastSeen) {
			return rows[i].MemberID < rows[j].MemberID
		}
		return rows[i].LastSeen.After(rows[j].LastSeen)
	})

	job.Rows = rows
	job.Summary = summary
	job.Status = domain.JobStatusComplete
	job.Phase = domain.PhaseComplete
}

// coachNames resolves coach ids against the admin directory, falling back to
// the raw id when the directory has no entry.
func (e *Engine) coachNames(job *domain.Job, agg *domain.MemberAggregate) []string {
	names := make([]string, 0, len(agg.Coaches))
	for _, id := range agg.CoachList() {
		if admin, ok := job.Directory[id]; ok && admin.Name != "" {
			names = append(names, admin.Name)
			continue
		}
		names = append(names, id)
	}
	sort.Strings(names)
	return names
}

// refreshDirectory lazily refreshes the coach/admin directory when its TTL
// lapsed and the step still has room for a call. A stale directory is kept
// over skipping work; only an actual failed call is surfaced.
func (e *Engine) refreshDirectory(ctx context.Context, job *domain.Job, deadline time.Time) error {
	if job.Directory != nil && e.now().Sub(job.DirectoryFetchedAt) < e.cfg.DirectoryTTL {
		return nil
	}
	if time.Until(deadline) < e.cfg.MinCallWindow {
		return nil
	}

	admins, err := e.client.ListAdmins(ctx, deadline)
	if err != nil {
		return err
	}
	job.TimeoutStreak = 0

	dir := make(map[string]helpdesk.Admin, len(admins))
	for _, a := range admins {
		dir[a.ID] = a
	}
	job.Directory = dir
	job.DirectoryFetchedAt = e.now()
	return nil
}
