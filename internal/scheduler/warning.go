package scheduler

import "fmt"

// WarningKind classifies an advisory note attached to a finalized entry.
type WarningKind string

const (
	// WarningOverlap indicates a participant is double-booked.
	WarningOverlap WarningKind = "overlap"
	// WarningShortage indicates concurrent equipment demand exceeds stock.
	WarningShortage WarningKind = "shortage"
)

// Warning is an advisory note. It never blocks a confirmation.
type Warning struct {
	Kind         WarningKind
	Participant  string
	SessionID    string
	SessionTitle string
	Item         string
	Count        int
	Stock        int
	Message      string
}

// Overlap reports that Participant is already booked into an overlapping entry of another
// (or an earlier confirmation of the same) session.
type Overlap struct {
	Participant  string
	SessionID    string
	SessionTitle string
}

// Shortage reports that Count concurrent requests for Item exceed Stock.
type Shortage struct {
	Item  string
	Count int
	Stock int
}

// WarningFormatter renders human-readable warning messages.
type WarningFormatter interface {
	FormatOverlap(o Overlap) string
	FormatShortage(s Shortage) string
}

// DefaultWarningFormatter renders the stock Japanese messages.
type DefaultWarningFormatter struct{}

func (DefaultWarningFormatter) FormatOverlap(o Overlap) string {
	return fmt.Sprintf("⚠️ %sさんは「%s」と練習がかぶっています。", o.Participant, o.SessionTitle)
}

func (DefaultWarningFormatter) FormatShortage(s Shortage) string {
	return fmt.Sprintf("⚠️ 機材「%s」の在庫が不足しています (他曲と重複)。", s.Item)
}

func overlapWarning(o Overlap, f WarningFormatter) Warning {
	return Warning{
		Kind:         WarningOverlap,
		Participant:  o.Participant,
		SessionID:    o.SessionID,
		SessionTitle: o.SessionTitle,
		Message:      f.FormatOverlap(o),
	}
}

func shortageWarning(s Shortage, f WarningFormatter) Warning {
	return Warning{
		Kind:    WarningShortage,
		Item:    s.Item,
		Count:   s.Count,
		Stock:   s.Stock,
		Message: f.FormatShortage(s),
	}
}
