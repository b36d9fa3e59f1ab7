package report

import (
	"fmt"

	"github.com/tessa/caseload/internal/domain"
)

// Result views selectable via the results endpoint.
const (
	ViewMembers  = "members"
	ViewSessions = "sessions"
	ViewSummary  = "summary"
)

// ResultsPage is one slice of a completed job's frozen result set.
type ResultsPage struct {
	View       string             `json:"view"`
	Members    []domain.MemberRow `json:"members,omitempty"`
	Sessions   []domain.Session   `json:"sessions,omitempty"`
	Summary    *domain.Summary    `json:"summary,omitempty"`
	Offset     int                `json:"offset"`
	NextOffset *int               `json:"next_offset,omitempty"`
	Total      int                `json:"total"`
}

// PageResults slices a finalized job's results by offset/limit. The limit is
// clamped to maxPageSize; NextOffset is set only while more rows remain.
// Parameters:
//   - job: the job to read; must be complete.
//   - view: ViewMembers, ViewSessions, or ViewSummary ("" means members).
//   - offset, limit: page window; limit <= 0 uses maxPageSize.
//   - maxPageSize: hard page size cap.
//
// Returns:
//   - *ResultsPage: the requested slice.
//   - error: ErrConflict when the job is not complete, ErrInvalidArgument on
//     a bad view or negative offset.
func PageResults(job *domain.Job, view string, offset, limit, maxPageSize int) (*ResultsPage, error) {
	if job.Status != domain.JobStatusComplete {
		return nil, fmt.Errorf("%w: status=%s", ErrConflict, job.Status)
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: negative offset", ErrInvalidArgument)
	}
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}

	page := &ResultsPage{Offset: offset}
	switch view {
	case ViewSummary:
		page.View = ViewSummary
		summary := job.Summary
		page.Summary = &summary
		page.Total = job.Summary.TotalMembers
		return page, nil

	case ViewSessions:
		page.View = ViewSessions
		page.Total = len(job.Sessions)
		lo, hi := sliceBounds(offset, limit, len(job.Sessions))
		page.Sessions = job.Sessions[lo:hi]
		if hi < len(job.Sessions) {
			next := hi
			page.NextOffset = &next
		}
		return page, nil

	case ViewMembers, "":
		page.View = ViewMembers
		page.Total = len(job.Rows)
		lo, hi := sliceBounds(offset, limit, len(job.Rows))
		page.Members = job.Rows[lo:hi]
		if hi < len(job.Rows) {
			next := hi
			page.NextOffset = &next
		}
		return page, nil

	default:
		return nil, fmt.Errorf("%w: unknown view %q", ErrInvalidArgument, view)
	}
}

func sliceBounds(offset, limit, total int) (int, int) {
	if offset > total {
		return total, total
	}
	hi := offset + limit
	if hi > total {
		hi = total
	}
	return offset, hi
}
