package calendar

import (
	"errors"
	"fmt"
	"time"

	"github.com/example/rehearsal-scheduler/internal/scheduler"
)

var jst = time.FixedZone("JST", 9*60*60)

// MaxRangeDays bounds the number of dates a session grid may span.
const MaxRangeDays = 366

// ErrInvalidWindow indicates the end date precedes the start date.
var ErrInvalidWindow = errors.New("calendar: end date precedes start date")

// ErrWindowTooLarge indicates the range exceeds MaxRangeDays.
var ErrWindowTooLarge = errors.New("calendar: date range too large")

var weekdayLabels = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// Location returns the zone used to decide "today" for a circle (Asia/Tokyo).
func Location() *time.Location {
	return jst
}

// Today returns the calendar date of now in JST.
func Today(now time.Time) scheduler.Date {
	return scheduler.DateOf(now.In(jst))
}

// DatesInRange lists every date from start through end inclusive.
func DatesInRange(start, end scheduler.Date) ([]scheduler.Date, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidWindow, start, end)
	}
	days := int(end.Time().Sub(start.Time()).Hours()/24) + 1
	if days > MaxRangeDays {
		return nil, fmt.Errorf("%w: %d days", ErrWindowTooLarge, days)
	}
	out := make([]scheduler.Date, 0, days)
	for d := start; !end.Before(d); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out, nil
}

// FormatDay renders d as "M/D(曜)", e.g. "5/1(水)".
func FormatDay(d scheduler.Date) string {
	return fmt.Sprintf("%d/%d(%s)", int(d.Month), d.Day, weekdayLabels[d.Time().Weekday()])
}
