package scheduler

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

var (
	// ErrUnknownPeriod is returned when a period label is not one of the fixed periods.
	ErrUnknownPeriod = errors.New("scheduler: unknown period")
	// ErrInvalidDate is returned when a date is not in ISO (YYYY-MM-DD) form.
	ErrInvalidDate = errors.New("scheduler: invalid date")
	// ErrInvalidSlotKey is returned when a slot key is not "<date>_<period>".
	ErrInvalidSlotKey = errors.New("scheduler: invalid slot key")
)

const dateLayout = "2006-01-02"

// Period is a time-of-day bucket within a single calendar date.
type Period int

const (
	Period1 Period = iota
	PeriodLunch
	Period2
	Period3
	Period4
	Period5
	Period6
	Period7
)

var periodLabels = [...]string{"1限", "昼", "2限", "3限", "4限", "5限", "6限", "7限"}

// Periods returns every period in enumeration order.
func Periods() []Period {
	out := make([]Period, len(periodLabels))
	for i := range periodLabels {
		out[i] = Period(i)
	}
	return out
}

// ParsePeriod resolves a period label such as "1限" or "昼". Labels must match exactly.
func ParsePeriod(label string) (Period, error) {
	for i, candidate := range periodLabels {
		if candidate == label {
			return Period(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownPeriod, label)
}

// Valid reports whether p is one of the enumerated periods.
func (p Period) Valid() bool {
	return p >= 0 && int(p) < len(periodLabels)
}

func (p Period) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Period(%d)", int(p))
	}
	return periodLabels[p]
}

// MarshalText encodes the period as its label.
func (p Period) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPeriod, int(p))
	}
	return []byte(periodLabels[p]), nil
}

// UnmarshalText decodes a period label.
func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Date is a calendar date without time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses an ISO date such as "2024-05-01".
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return DateOf(t), nil
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after other.
func (d Date) Compare(other Date) int {
	if c := cmp.Compare(d.Year, other.Year); c != 0 {
		return c
	}
	if c := cmp.Compare(d.Month, other.Month); c != 0 {
		return c
	}
	return cmp.Compare(d.Day, other.Day)
}

// Before reports whether d is strictly before other.
func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText encodes the date in ISO form.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes an ISO date.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// SlotKey identifies one bookable (date, period) unit.
type SlotKey struct {
	Date   Date
	Period Period
}

// ParseSlotKey decodes the "<ISO-date>_<period-label>" form used by shared links.
// Only the canonical encoding is accepted.
func ParseSlotKey(value string) (SlotKey, error) {
	datePart, periodPart, ok := strings.Cut(value, "_")
	if !ok {
		return SlotKey{}, fmt.Errorf("%w: %q", ErrInvalidSlotKey, value)
	}
	date, err := ParseDate(datePart)
	if err != nil {
		return SlotKey{}, fmt.Errorf("%w: %q", ErrInvalidSlotKey, value)
	}
	period, err := ParsePeriod(periodPart)
	if err != nil {
		return SlotKey{}, fmt.Errorf("%w: %q", ErrInvalidSlotKey, value)
	}
	return SlotKey{Date: date, Period: period}, nil
}

// String renders the key as "<ISO-date>_<period-label>".
func (k SlotKey) String() string {
	return k.Date.String() + "_" + k.Period.String()
}

// Compare orders keys by date, then by period.
func (k SlotKey) Compare(other SlotKey) int {
	if c := k.Date.Compare(other.Date); c != 0 {
		return c
	}
	return cmp.Compare(k.Period, other.Period)
}

// MarshalText encodes the key in its shared-link form.
func (k SlotKey) MarshalText() ([]byte, error) {
	if !k.Period.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPeriod, int(k.Period))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a key from its shared-link form.
func (k *SlotKey) UnmarshalText(text []byte) error {
	parsed, err := ParseSlotKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// SortSlotKeys sorts keys in place by date then period.
func SortSlotKeys(keys []SlotKey) {
	slices.SortFunc(keys, SlotKey.Compare)
}

// UniqueSlotKeys returns the sorted, de-duplicated keys.
func UniqueSlotKeys(keys []SlotKey) []SlotKey {
	out := slices.Clone(keys)
	SortSlotKeys(out)
	return slices.Compact(out)
}

func sortPeriods(periods []Period) []Period {
	out := slices.Clone(periods)
	slices.Sort(out)
	return slices.Compact(out)
}

func periodsIntersect(a, b []Period) bool {
	for _, p := range a {
		if slices.Contains(b, p) {
			return true
		}
	}
	return false
}
