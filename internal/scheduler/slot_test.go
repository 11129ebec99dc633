package scheduler

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	t.Parallel()

	for i, label := range []string{"1限", "昼", "2限", "3限", "4限", "5限", "6限", "7限"} {
		p, err := ParsePeriod(label)
		require.NoError(t, err, label)
		assert.Equal(t, i, int(p))
		assert.Equal(t, label, p.String())
	}

	for _, label := range []string{"8限", " 昼", "1限 ", ""} {
		_, err := ParsePeriod(label)
		assert.ErrorIs(t, err, ErrUnknownPeriod, "%q", label)
	}
}

func TestParseSlotKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    SlotKey
		wantErr bool
	}{
		{name: "first period", input: "2024-05-01_1限", want: SlotKey{Date: Date{2024, time.May, 1}, Period: Period1}},
		{name: "lunch", input: "2024-12-31_昼", want: SlotKey{Date: Date{2024, time.December, 31}, Period: PeriodLunch}},
		{name: "missing separator", input: "2024-05-01", wantErr: true},
		{name: "bad date", input: "2024-13-01_1限", wantErr: true},
		{name: "bad period", input: "2024-05-01_朝", wantErr: true},
		{name: "surrounding spaces", input: " 2024-05-01_1限 ", wantErr: true},
		{name: "spaces around separator", input: "2024-05-01 _ 1限", wantErr: true},
		{name: "unpadded date", input: "2024-5-1_1限", wantErr: true},
		{name: "trailing segment", input: "2024-05-01_1限_x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseSlotKey(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSlotKey)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestSortSlotKeys(t *testing.T) {
	t.Parallel()

	keys := []SlotKey{
		{Date: Date{2024, time.May, 2}, Period: Period1},
		{Date: Date{2024, time.May, 1}, Period: Period3},
		{Date: Date{2024, time.May, 1}, Period: PeriodLunch},
		{Date: Date{2024, time.May, 1}, Period: PeriodLunch},
	}

	unique := UniqueSlotKeys(keys)
	got := make([]string, 0, len(unique))
	for _, key := range unique {
		got = append(got, key.String())
	}
	assert.Equal(t, []string{"2024-05-01_昼", "2024-05-01_3限", "2024-05-02_1限"}, got)
	assert.Equal(t, 2, keys[0].Date.Day, "UniqueSlotKeys must not reorder its input")
}

func TestSlotKeyJSON(t *testing.T) {
	t.Parallel()

	availability := map[string][]SlotKey{
		"alice": {{Date: Date{2024, time.May, 1}, Period: Period1}},
	}
	raw, err := json.Marshal(availability)
	require.NoError(t, err)
	assert.JSONEq(t, `{"alice":["2024-05-01_1限"]}`, string(raw))

	var decoded map[string][]SlotKey
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, availability, decoded)

	var bad []SlotKey
	assert.Error(t, json.Unmarshal([]byte(`[" 2024-05-01_1限"]`), &bad))
}

func TestDateArithmetic(t *testing.T) {
	t.Parallel()

	d := Date{2024, time.February, 28}
	assert.Equal(t, Date{2024, time.February, 29}, d.AddDays(1))
	assert.Equal(t, Date{2024, time.March, 1}, d.AddDays(2))
	assert.True(t, d.Before(d.AddDays(1)))
	assert.False(t, d.AddDays(1).Before(d))

	_, err := ParseDate("05/01/2024")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = ParseDate(" 2024-05-01")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
