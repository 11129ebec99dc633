package scheduler

import (
	"errors"
	"slices"
	"strings"
)

var (
	// ErrEmptySelection is returned when a confirmation selects no slots.
	ErrEmptySelection = errors.New("scheduler: no slots selected")
	// ErrEmptyRoom is returned when a confirmation names no room.
	ErrEmptyRoom = errors.New("scheduler: room is required")
)

// FinalizeRequest is one confirmation batch chosen by the coordinator.
type FinalizeRequest struct {
	Slots     []SlotKey
	Room      string
	Equipment []string
}

// FinalizeResult carries the updated session and the entries the batch produced.
type FinalizeResult struct {
	Session Session
	Entries []FinalizedEntry
}

// Warnings flattens the warnings of every new entry.
func (r FinalizeResult) Warnings() []Warning {
	var out []Warning
	for _, entry := range r.Entries {
		out = append(out, entry.Warnings...)
	}
	return out
}

type finalizeOptions struct {
	formatter WarningFormatter
}

// FinalizeOption customises Finalize.
type FinalizeOption func(*finalizeOptions)

// WithWarningFormatter replaces the default Japanese warning texts.
func WithWarningFormatter(f WarningFormatter) FinalizeOption {
	return func(o *finalizeOptions) {
		if f != nil {
			o.formatter = f
		}
	}
}

// Finalize confirms the selected slots of session into finalized entries, one per date.
//
// corpus is the caller's snapshot of sessions; only those sharing the session's group code
// are consulted, and the stored copy of session itself is replaced by the supplied value.
// Warnings are attached to the new entries and never prevent the confirmation. The input
// session is left untouched.
func Finalize(session Session, corpus []Session, req FinalizeRequest, inv Inventory, opts ...FinalizeOption) (FinalizeResult, error) {
	options := finalizeOptions{formatter: DefaultWarningFormatter{}}
	for _, opt := range opts {
		opt(&options)
	}

	if len(req.Slots) == 0 {
		return FinalizeResult{}, ErrEmptySelection
	}
	room := strings.TrimSpace(req.Room)
	if room == "" {
		return FinalizeResult{}, ErrEmptyRoom
	}
	equipment := uniqueStrings(req.Equipment)

	groups := groupByDate(req.Slots)

	ix := NewIndex(session.GroupCode, groupCorpus(session, corpus))

	entries := make([]FinalizedEntry, 0, len(groups))
	for _, g := range groups {
		entry := FinalizedEntry{
			Date:         g.date,
			Periods:      g.periods,
			Room:         room,
			Equipment:    slices.Clone(equipment),
			Participants: Participants(session, g.keys()),
		}
		ix.add(session, entry, pending)
		entries = append(entries, entry)
	}

	for i := range entries {
		c := CandidateFromEntry(session.ID, entries[i])
		c.batch = pending
		var warnings []Warning
		for _, o := range DetectOverlaps(ix, c) {
			warnings = append(warnings, overlapWarning(o, options.formatter))
		}
		for _, s := range CheckEquipment(ix, c, inv) {
			warnings = append(warnings, shortageWarning(s, options.formatter))
		}
		entries[i].Warnings = warnings
	}

	updated := session.Clone()
	for _, entry := range entries {
		updated.Finalized = append(updated.Finalized, entry.Clone())
	}
	return FinalizeResult{Session: updated, Entries: entries}, nil
}

type dateGroup struct {
	date    Date
	periods []Period
}

func (g dateGroup) keys() []SlotKey {
	keys := make([]SlotKey, 0, len(g.periods))
	for _, p := range g.periods {
		keys = append(keys, SlotKey{Date: g.date, Period: p})
	}
	return keys
}

func groupByDate(slots []SlotKey) []dateGroup {
	keys := UniqueSlotKeys(slots)
	var groups []dateGroup
	for _, key := range keys {
		if n := len(groups); n > 0 && groups[n-1].date == key.Date {
			groups[n-1].periods = append(groups[n-1].periods, key.Period)
			continue
		}
		groups = append(groups, dateGroup{date: key.Date, periods: []Period{key.Period}})
	}
	for i := range groups {
		groups[i].periods = sortPeriods(groups[i].periods)
	}
	return groups
}

// groupCorpus swaps the stored copy of session for the supplied snapshot, appending it
// if the corpus did not contain it.
func groupCorpus(session Session, corpus []Session) []Session {
	out := make([]Session, 0, len(corpus)+1)
	found := false
	for _, s := range corpus {
		if s.ID == session.ID {
			if !found {
				out = append(out, session)
				found = true
			}
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, session)
	}
	return out
}

func uniqueStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" || slices.Contains(out, v) {
			continue
		}
		out = append(out, v)
	}
	return out
}
