package scheduler

import "slices"

// batchTag marks entries pending in one confirmation call. Zero means committed history.
type batchTag uint8

const (
	committed batchTag = iota
	pending
)

type indexedEntry struct {
	sessionID    string
	sessionTitle string
	batch        batchTag
	entry        FinalizedEntry
}

// Index is a read-only view of a group's finalized entries keyed by date.
// Detectors only read from it.
type Index struct {
	groupCode string
	byDate    map[Date][]indexedEntry
}

// NewIndex snapshots the finalized entries of every session in corpus that belongs to
// groupCode. Sessions from other groups never conflict and are skipped.
func NewIndex(groupCode string, corpus []Session) *Index {
	ix := &Index{groupCode: groupCode, byDate: make(map[Date][]indexedEntry)}
	for _, session := range corpus {
		if session.GroupCode != groupCode {
			continue
		}
		for _, entry := range session.Finalized {
			ix.add(session, entry, committed)
		}
	}
	return ix
}

func (ix *Index) add(session Session, entry FinalizedEntry, batch batchTag) {
	ix.byDate[entry.Date] = append(ix.byDate[entry.Date], indexedEntry{
		sessionID:    session.ID,
		sessionTitle: session.Title,
		batch:        batch,
		entry:        entry.Clone(),
	})
}

// Len returns the number of indexed entries.
func (ix *Index) Len() int {
	if ix == nil {
		return 0
	}
	n := 0
	for _, entries := range ix.byDate {
		n += len(entries)
	}
	return n
}

// overlapping returns the entries sharing date and at least one period, minus those in
// the excluded batch.
func (ix *Index) overlapping(date Date, periods []Period, exclude batchTag) []indexedEntry {
	if ix == nil {
		return nil
	}
	var hits []indexedEntry
	for _, candidate := range ix.byDate[date] {
		if exclude != committed && candidate.batch == exclude {
			continue
		}
		if candidate.entry.Overlaps(date, periods) {
			hits = append(hits, candidate)
		}
	}
	return hits
}

// Candidate is a proposed entry checked against an Index.
type Candidate struct {
	SessionID    string
	Date         Date
	Periods      []Period
	Participants []string
	Equipment    []string

	batch batchTag
}

// CandidateFromEntry builds a candidate for a hypothetical new entry of sessionID.
func CandidateFromEntry(sessionID string, entry FinalizedEntry) Candidate {
	return Candidate{
		SessionID:    sessionID,
		Date:         entry.Date,
		Periods:      slices.Clone(entry.Periods),
		Participants: slices.Clone(entry.Participants),
		Equipment:    slices.Clone(entry.Equipment),
	}
}

// DetectOverlaps reports, for each candidate participant, every indexed entry on the same
// date with an intersecting period that also lists the participant. Entries in the
// candidate's own confirmation batch are ignored. Duplicates across different
// conflicting entries are kept.
func DetectOverlaps(ix *Index, c Candidate) []Overlap {
	hits := ix.overlapping(c.Date, c.Periods, c.batch)
	if len(hits) == 0 {
		return nil
	}
	var out []Overlap
	for _, participant := range c.Participants {
		for _, hit := range hits {
			if !slices.Contains(hit.entry.Participants, participant) {
				continue
			}
			out = append(out, Overlap{
				Participant:  participant,
				SessionID:    hit.sessionID,
				SessionTitle: hit.sessionTitle,
			})
		}
	}
	return out
}

// CheckEquipment counts concurrent demand for each requested item: one for the candidate
// itself plus every overlapping indexed entry requesting it. Items whose demand exceeds
// the inventory stock are reported, in request order.
func CheckEquipment(ix *Index, c Candidate, inv Inventory) []Shortage {
	if len(c.Equipment) == 0 {
		return nil
	}
	hits := ix.overlapping(c.Date, c.Periods, c.batch)
	var out []Shortage
	for _, item := range c.Equipment {
		used := 1
		for _, hit := range hits {
			if slices.Contains(hit.entry.Equipment, item) {
				used++
			}
		}
		if stock := inv.Stock(item); used > stock {
			out = append(out, Shortage{Item: item, Count: used, Stock: stock})
		}
	}
	return out
}
