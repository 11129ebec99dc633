package scheduler

import (
	"maps"
	"slices"
)

// Session is one rehearsal-scheduling effort (one piece to rehearse) within a group.
type Session struct {
	ID           string
	CreatorID    string
	GroupCode    string
	Title        string
	StartDate    Date
	EndDate      Date
	Participants []string
	Availability map[string][]SlotKey
	Finalized    []FinalizedEntry
}

// FinalizedEntry records a confirmed booking of one or more periods on a single date.
type FinalizedEntry struct {
	Date         Date
	Periods      []Period
	Room         string
	Equipment    []string
	Participants []string
	Warnings     []Warning
}

// Contains reports whether date lies within the session's inclusive date range.
func (s Session) Contains(date Date) bool {
	return !date.Before(s.StartDate) && !s.EndDate.Before(date)
}

// IsFinalized reports whether key is already covered by a finalized entry.
func (s Session) IsFinalized(key SlotKey) bool {
	for _, entry := range s.Finalized {
		if entry.Date == key.Date && slices.Contains(entry.Periods, key.Period) {
			return true
		}
	}
	return false
}

// AvailableAt lists the identities that marked key as free, sorted.
func (s Session) AvailableAt(key SlotKey) []string {
	return Participants(s, []SlotKey{key})
}

// HasParticipant reports whether identity already engaged with the session.
func (s Session) HasParticipant(identity string) bool {
	return identity == s.CreatorID || slices.Contains(s.Participants, identity)
}

// Clone returns a deep copy of the session.
func (s Session) Clone() Session {
	out := s
	out.Participants = slices.Clone(s.Participants)
	if s.Availability != nil {
		out.Availability = make(map[string][]SlotKey, len(s.Availability))
		for identity, keys := range s.Availability {
			out.Availability[identity] = slices.Clone(keys)
		}
	}
	if s.Finalized != nil {
		out.Finalized = make([]FinalizedEntry, len(s.Finalized))
		for i, entry := range s.Finalized {
			out.Finalized[i] = entry.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the entry.
func (e FinalizedEntry) Clone() FinalizedEntry {
	out := e
	out.Periods = slices.Clone(e.Periods)
	out.Equipment = slices.Clone(e.Equipment)
	out.Participants = slices.Clone(e.Participants)
	out.Warnings = slices.Clone(e.Warnings)
	return out
}

// Overlaps reports whether the entry shares date and at least one period with the given slot group.
func (e FinalizedEntry) Overlaps(date Date, periods []Period) bool {
	return e.Date == date && periodsIntersect(e.Periods, periods)
}

// Slots expands the entry into its slot keys.
func (e FinalizedEntry) Slots() []SlotKey {
	keys := make([]SlotKey, 0, len(e.Periods))
	for _, p := range e.Periods {
		keys = append(keys, SlotKey{Date: e.Date, Period: p})
	}
	return keys
}

// Participants returns the identities whose availability contains at least one of keys.
// The result is sorted and de-duplicated; an identity free for any one period counts
// for the whole group.
func Participants(session Session, keys []SlotKey) []string {
	if len(keys) == 0 || len(session.Availability) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(session.Availability))
	for _, identity := range slices.Sorted(maps.Keys(session.Availability)) {
		free := session.Availability[identity]
		for _, key := range keys {
			if slices.Contains(free, key) {
				out = append(out, identity)
				break
			}
		}
	}
	return out
}
