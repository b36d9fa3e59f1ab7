package domain

import (
	"sort"
	"time"
)

// Session is one normalized engagement event: a member interacting on a
// channel, optionally assigned to a coach.
type Session struct {
	MemberID  string    `json:"member_id"`
	CoachID   string    `json:"coach_id,omitempty"`
	Channel   string    `json:"channel"`
	Timestamp time.Time `json:"timestamp"`
}

// MemberAggregate is the running per-member summary built while paging
// through conversation events.
type MemberAggregate struct {
	MemberID string
	LastSeen time.Time
	Sessions int
	Channels map[string]struct{}
	Coaches  map[string]struct{}
}

// NewMemberAggregate creates an empty aggregate for a member.
func NewMemberAggregate(memberID string) *MemberAggregate {
	return &MemberAggregate{
		MemberID: memberID,
		Channels: make(map[string]struct{}),
		Coaches:  make(map[string]struct{}),
	}
}

// Fold merges one session into the aggregate. The fold is commutative, so
// the order pages arrive in (including widened delta windows merged later)
// cannot change the final aggregate.
func (a *MemberAggregate) Fold(s Session) {
	a.Sessions++
	if s.Timestamp.After(a.LastSeen) {
		a.LastSeen = s.Timestamp
	}
	if s.Channel != "" {
		a.Channels[s.Channel] = struct{}{}
	}
	if s.CoachID != "" {
		a.Coaches[s.CoachID] = struct{}{}
	}
}

// ChannelList returns the channel set as a sorted slice.
func (a *MemberAggregate) ChannelList() []string {
	return sortedKeys(a.Channels)
}

// CoachList returns the coach id set as a sorted slice.
func (a *MemberAggregate) CoachList() []string {
	return sortedKeys(a.Coaches)
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
