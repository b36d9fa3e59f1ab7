// Package cache holds the per-job, TTL-bounded record cache used while
// hydrating contacts. It is owned by exactly one job and is never shared,
// so it carries no locking.
package cache

import (
	"time"

	"github.com/tessa/caseload/internal/helpdesk"
)

// Result classifies a cache lookup.
type Result int

const (
	// Miss means the id has never been cached, or its entry expired.
	Miss Result = iota
	// Hit means a live record was found.
	Hit
	// NegativeHit means the id was previously marked not-found and the
	// marker is still live. Callers must not re-fetch it.
	NegativeHit
)

type entry struct {
	contact   *helpdesk.Contact // nil for not-found markers
	expiresAt time.Time
}

// Records is a TTL cache of hydrated contacts. Not-found markers share the
// same TTL as real records so ids the API cannot return are fetched at most
// once per TTL window instead of once per step.
type Records struct {
	ttl     time.Duration
	entries map[string]entry
	now     func() time.Time
}

// NewRecords creates a record cache with the given entry TTL.
func NewRecords(ttl time.Duration) *Records {
	return &Records{
		ttl:     ttl,
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// Get looks up a contact by id. Expired entries count as misses and are
// evicted in place.
// Parameters:
//   - id: contact id.
//
// Returns:
//   - *helpdesk.Contact: the record on Hit, nil otherwise.
//   - Result: Hit, NegativeHit, or Miss.
func (r *Records) Get(id string) (*helpdesk.Contact, Result) {
	e, ok := r.entries[id]
	if !ok {
		return nil, Miss
	}
	if !r.now().Before(e.expiresAt) {
		delete(r.entries, id)
		return nil, Miss
	}
	if e.contact == nil {
		return nil, NegativeHit
	}
	return e.contact, Hit
}

// Put stores a hydrated contact.
func (r *Records) Put(contact helpdesk.Contact) {
	r.entries[contact.ID] = entry{
		contact:   &contact,
		expiresAt: r.now().Add(r.ttl),
	}
}

// PutNotFound marks an id the API failed to return, stopping repeated
// re-fetch attempts until the marker expires.
func (r *Records) PutNotFound(id string) {
	r.entries[id] = entry{expiresAt: r.now().Add(r.ttl)}
}

// Resolved reports whether the id needs no further hydration attempt, i.e.
// the lookup is anything other than a Miss.
func (r *Records) Resolved(id string) bool {
	_, res := r.Get(id)
	return res != Miss
}

// SetClock overrides the cache clock. Test hook.
func (r *Records) SetClock(now func() time.Time) {
	r.now = now
}
