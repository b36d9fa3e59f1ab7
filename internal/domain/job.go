package domain

import (
	"time"

	"github.com/tessa/caseload/internal/cache"
	"github.com/tessa/caseload/internal/helpdesk"
)

// JobStatus represents the lifecycle status of a caseload report job.
// It is monotonic except that running recurs across steps.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusComplete  JobStatus = "complete"
	JobStatusError     JobStatus = "error"
	JobStatusCancelled JobStatus = "cancelled"
)

// JobPhase is the current stage of the job's state machine. Phases only move
// forward; a soft retry repeats the current phase but never regresses it.
type JobPhase string

const (
	PhaseConversations JobPhase = "conversations"
	PhaseContacts      JobPhase = "contacts"
	PhaseFinalize      JobPhase = "finalize"
	PhaseComplete      JobPhase = "complete"
)

// Window is the absolute time window a job covers, derived from
// caller-supplied lookback day counts. A non-nil Until bounds a delta window
// used to widen a previously loaded report.
type Window struct {
	Since time.Time  `json:"since"`
	Until *time.Time `json:"until,omitempty"`
}

// Job is one caseload report computation. All of its state is owned
// exclusively by the job and mutated only inside a single step at a time.
type Job struct {
	ID     string
	Window Window
	Status JobStatus
	Phase  JobPhase

	// Cursor is the opaque resume token for the conversation search.
	Cursor string

	// Accumulators. SeenIDs and Aggregates are kept in lockstep: every key
	// in one is present in the other.
	Sessions   []Session
	Aggregates map[string]*MemberAggregate
	SeenIDs    map[string]struct{}

	// Per-job caches.
	Contacts           *cache.Records
	Directory          map[string]helpdesk.Admin
	DirectoryFetchedAt time.Time

	// Bookkeeping.
	CreatedAt     time.Time
	UpdatedAt     time.Time
	TimeoutStreak int
	ErrorMessage  string

	// Progress counters.
	PagesFetched         int
	ConversationsFetched int
	ContactsFetched      int

	// Frozen results, populated during finalize.
	GeneratedAt time.Time
	Summary     Summary
	Rows        []MemberRow
}

// NewJob creates a queued job for the given window.
func NewJob(id string, window Window, contactTTL time.Duration, now time.Time) *Job {
	return &Job{
		ID:         id,
		Window:     window,
		Status:     JobStatusQueued,
		Phase:      PhaseConversations,
		Aggregates: make(map[string]*MemberAggregate),
		SeenIDs:    make(map[string]struct{}),
		Contacts:   cache.NewRecords(contactTTL),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Terminal reports whether the job can no longer be stepped forward.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusComplete || j.Status == JobStatusError || j.Status == JobStatusCancelled
}

// Touch records activity for TTL-based eviction.
func (j *Job) Touch(now time.Time) {
	j.UpdatedAt = now
}

// Fail moves the job to its terminal error state. The phase is forced to
// complete so no further stepping occurs.
func (j *Job) Fail(msg string, now time.Time) {
	j.Status = JobStatusError
	j.Phase = PhaseComplete
	j.ErrorMessage = msg
	j.Touch(now)
}

// Cancel terminates the job without touching its accumulators.
func (j *Job) Cancel(now time.Time) {
	j.Status = JobStatusCancelled
	j.Phase = PhaseComplete
	j.Touch(now)
}

// Observe folds one normalized session into the accumulators: max timestamp
// wins for last-seen, channel and coach sets are unions.
func (j *Job) Observe(s Session) {
	j.Sessions = append(j.Sessions, s)

	agg, ok := j.Aggregates[s.MemberID]
	if !ok {
		agg = NewMemberAggregate(s.MemberID)
		j.Aggregates[s.MemberID] = agg
		j.SeenIDs[s.MemberID] = struct{}{}
	}
	agg.Fold(s)
}

// PendingContacts returns the seen member ids that still need hydration,
// i.e. ids with neither a live cache record nor a live not-found marker.
func (j *Job) PendingContacts() []string {
	var pending []string
	for id := range j.SeenIDs {
		if !j.Contacts.Resolved(id) {
			pending = append(pending, id)
		}
	}
	return pending
}

// Snapshot is the progress view returned by step and status calls.
type Snapshot struct {
	JobID                string    `json:"job_id"`
	Status               JobStatus `json:"status"`
	Phase                JobPhase  `json:"phase"`
	Done                 bool      `json:"done"`
	PagesFetched         int       `json:"pages_fetched"`
	ConversationsFetched int       `json:"conversations_fetched"`
	MembersSeen          int       `json:"members_seen"`
	ContactsPending      int       `json:"contacts_pending"`
	Error                string    `json:"error,omitempty"`
}

// Snapshot builds the current progress view of the job.
func (j *Job) Snapshot() Snapshot {
	return Snapshot{
		JobID:                j.ID,
		Status:               j.Status,
		Phase:                j.Phase,
		Done:                 j.Terminal(),
		PagesFetched:         j.PagesFetched,
		ConversationsFetched: j.ConversationsFetched,
		MembersSeen:          len(j.SeenIDs),
		ContactsPending:      len(j.PendingContacts()),
		Error:                j.ErrorMessage,
	}
}
