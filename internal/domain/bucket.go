package domain

import "time"

// Bucket classifies a member by how long ago they were last seen.
type Bucket string

const (
	BucketActive  Bucket = "active"  // seen within 7 days
	BucketWaning  Bucket = "waning"  // 7 to 28 days
	BucketDormant Bucket = "dormant" // 28 to 56 days
	BucketLapsed  Bucket = "lapsed"  // over 56 days
)

// Day-count breakpoints between buckets. Each boundary belongs to the
// fresher bucket: exactly 7 days is still active.
const (
	activeMaxDays  = 7
	waningMaxDays  = 28
	dormantMaxDays = 56
)

// BucketFor returns the engagement bucket for a days-since-last-seen value.
// Every member lands in exactly one bucket.
func BucketFor(days float64) Bucket {
	switch {
	case days <= activeMaxDays:
		return BucketActive
	case days <= waningMaxDays:
		return BucketWaning
	case days <= dormantMaxDays:
		return BucketDormant
	default:
		return BucketLapsed
	}
}

// DaysSince converts an elapsed duration into fractional days.
func DaysSince(lastSeen, now time.Time) float64 {
	return now.Sub(lastSeen).Hours() / 24
}

// MemberRow is one frozen result row for a member, hydrated from the
// contact cache and bucketed at finalize time.
type MemberRow struct {
	MemberID      string    `json:"member_id"`
	Name          string    `json:"name,omitempty"`
	Email         string    `json:"email,omitempty"`
	LastSeen      time.Time `json:"last_seen"`
	DaysSinceSeen float64   `json:"days_since_seen"`
	Sessions      int       `json:"sessions"`
	Channels      []string  `json:"channels"`
	Coaches       []string  `json:"coaches"`
	Bucket        Bucket    `json:"bucket"`
}

// Summary is the per-bucket histogram over all finalized members.
type Summary struct {
	Active        int `json:"active"`
	Waning        int `json:"waning"`
	Dormant       int `json:"dormant"`
	Lapsed        int `json:"lapsed"`
	TotalMembers  int `json:"total_members"`
	TotalSessions int `json:"total_sessions"`
}

// Count adds one member in the given bucket to the histogram.
func (s *Summary) Count(b Bucket) {
	s.TotalMembers++
	switch b {
	case BucketActive:
		s.Active++
	case BucketWaning:
		s.Waning++
	case BucketDormant:
		s.Dormant++
	case BucketLapsed:
		s.Lapsed++
	}
}
