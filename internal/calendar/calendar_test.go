package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/example/rehearsal-scheduler/internal/scheduler"
)

func TestDatesInRange(t *testing.T) {
	t.Parallel()

	t.Run("includes both bounds across month end", func(t *testing.T) {
		t.Parallel()

		start := scheduler.Date{Year: 2024, Month: time.April, Day: 29}
		end := scheduler.Date{Year: 2024, Month: time.May, Day: 2}
		dates, err := DatesInRange(start, end)
		if err != nil {
			t.Fatalf("DatesInRange failed: %v", err)
		}
		want := []string{"2024-04-29", "2024-04-30", "2024-05-01", "2024-05-02"}
		if len(dates) != len(want) {
			t.Fatalf("expected %d dates, got %v", len(want), dates)
		}
		for i, d := range dates {
			if d.String() != want[i] {
				t.Fatalf("position %d: expected %s, got %s", i, want[i], d)
			}
		}
	})

	t.Run("single day", func(t *testing.T) {
		t.Parallel()

		d := scheduler.Date{Year: 2024, Month: time.May, Day: 1}
		dates, err := DatesInRange(d, d)
		if err != nil || len(dates) != 1 {
			t.Fatalf("expected one date, got %v (%v)", dates, err)
		}
	})

	t.Run("rejects reversed window", func(t *testing.T) {
		t.Parallel()

		start := scheduler.Date{Year: 2024, Month: time.May, Day: 2}
		end := scheduler.Date{Year: 2024, Month: time.May, Day: 1}
		if _, err := DatesInRange(start, end); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("expected ErrInvalidWindow, got %v", err)
		}
	})

	t.Run("rejects oversized window", func(t *testing.T) {
		t.Parallel()

		start := scheduler.Date{Year: 2024, Month: time.January, Day: 1}
		end := scheduler.Date{Year: 2025, Month: time.January, Day: 1}
		if _, err := DatesInRange(start, end); !errors.Is(err, ErrWindowTooLarge) {
			t.Fatalf("expected ErrWindowTooLarge, got %v", err)
		}
	})
}

func TestFormatDay(t *testing.T) {
	t.Parallel()

	tests := map[string]scheduler.Date{
		"5/1(水)":   {Year: 2024, Month: time.May, Day: 1},
		"12/29(日)": {Year: 2024, Month: time.December, Day: 29},
		"1/6(土)":   {Year: 2024, Month: time.January, Day: 6},
	}
	for want, d := range tests {
		if got := FormatDay(d); got != want {
			t.Fatalf("FormatDay(%s) = %q, want %q", d, got, want)
		}
	}
}

func TestToday(t *testing.T) {
	t.Parallel()

	late := time.Date(2024, time.April, 30, 16, 30, 0, 0, time.UTC)
	if got := Today(late); got != (scheduler.Date{Year: 2024, Month: time.May, Day: 1}) {
		t.Fatalf("expected JST rollover to May 1st, got %s", got)
	}
}
