package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(t *testing.T, value string) SlotKey {
	t.Helper()
	k, err := ParseSlotKey(value)
	require.NoError(t, err)
	return k
}

func keys(t *testing.T, values ...string) []SlotKey {
	t.Helper()
	out := make([]SlotKey, 0, len(values))
	for _, v := range values {
		out = append(out, key(t, v))
	}
	return out
}

func newSession(id, title string) Session {
	return Session{
		ID:           id,
		CreatorID:    "alice",
		GroupCode:    "circle",
		Title:        title,
		StartDate:    Date{2024, time.May, 1},
		EndDate:      Date{2024, time.May, 7},
		Availability: map[string][]SlotKey{},
	}
}

type upperFormatter struct{}

func (upperFormatter) FormatOverlap(o Overlap) string   { return "overlap:" + o.Participant + "@" + o.SessionTitle }
func (upperFormatter) FormatShortage(s Shortage) string { return "shortage:" + s.Item }

func TestParticipants(t *testing.T) {
	t.Parallel()

	s := newSession("s1", "Song")
	s.Availability["alice"] = keys(t, "2024-05-01_1限")
	s.Availability["bob"] = keys(t, "2024-05-01_昼")
	s.Availability["carol"] = keys(t, "2024-05-02_1限")

	t.Run("union across periods", func(t *testing.T) {
		t.Parallel()
		got := Participants(s, keys(t, "2024-05-01_1限", "2024-05-01_昼"))
		assert.Equal(t, []string{"alice", "bob"}, got)
	})

	t.Run("empty selection", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, Participants(s, nil))
	})

	t.Run("nobody free", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, Participants(s, keys(t, "2024-05-03_7限")))
	})
}

func TestFinalize(t *testing.T) {
	t.Parallel()

	t.Run("alice and bob across first period and lunch", func(t *testing.T) {
		t.Parallel()

		s := newSession("s1", "Song")
		s.Availability["Alice"] = keys(t, "2024-05-01_1限")
		s.Availability["Bob"] = keys(t, "2024-05-01_1限", "2024-05-01_昼")

		result, err := Finalize(s, nil, FinalizeRequest{
			Slots: keys(t, "2024-05-01_1限", "2024-05-01_昼"),
			Room:  "A",
		}, DefaultInventory())
		require.NoError(t, err)
		require.Len(t, result.Entries, 1)

		entry := result.Entries[0]
		assert.Equal(t, Date{2024, time.May, 1}, entry.Date)
		assert.Equal(t, []Period{Period1, PeriodLunch}, entry.Periods)
		assert.Equal(t, "A", entry.Room)
		assert.Empty(t, entry.Equipment)
		assert.Equal(t, []string{"Alice", "Bob"}, entry.Participants)
		assert.Empty(t, entry.Warnings)
	})

	t.Run("end to end without conflicts", func(t *testing.T) {
		t.Parallel()

		s := newSession("s1", "Song")
		s.Availability["Alice"] = keys(t, "2024-05-01_1限", "2024-05-01_2限")
		s.Availability["Bob"] = keys(t, "2024-05-01_2限")

		result, err := Finalize(s, nil, FinalizeRequest{
			Slots: keys(t, "2024-05-01_1限", "2024-05-01_2限"),
			Room:  "Studio A",
		}, DefaultInventory())
		require.NoError(t, err)
		require.Len(t, result.Entries, 1)

		entry := result.Entries[0]
		assert.Equal(t, Date{2024, time.May, 1}, entry.Date)
		assert.Equal(t, []Period{Period1, Period2}, entry.Periods)
		assert.Equal(t, "Studio A", entry.Room)
		assert.Equal(t, []string{"Alice", "Bob"}, entry.Participants)
		assert.Empty(t, entry.Warnings)
		require.Len(t, result.Session.Finalized, 1)
		assert.Empty(t, s.Finalized, "input session must not be mutated")
	})

	t.Run("one entry per date in date order", func(t *testing.T) {
		t.Parallel()

		s := newSession("s1", "Song")
		result, err := Finalize(s, nil, FinalizeRequest{
			Slots: keys(t, "2024-05-03_3限", "2024-05-01_昼", "2024-05-03_1限", "2024-05-01_昼"),
			Room:  "Hall",
		}, DefaultInventory())
		require.NoError(t, err)
		require.Len(t, result.Entries, 2)

		assert.Equal(t, Date{2024, time.May, 1}, result.Entries[0].Date)
		assert.Equal(t, []Period{PeriodLunch}, result.Entries[0].Periods)
		assert.Equal(t, Date{2024, time.May, 3}, result.Entries[1].Date)
		assert.Equal(t, []Period{Period1, Period3}, result.Entries[1].Periods)
	})

	t.Run("rejects empty selection and room", func(t *testing.T) {
		t.Parallel()

		s := newSession("s1", "Song")
		_, err := Finalize(s, nil, FinalizeRequest{Room: "Hall"}, DefaultInventory())
		require.ErrorIs(t, err, ErrEmptySelection)

		_, err = Finalize(s, nil, FinalizeRequest{Slots: keys(t, "2024-05-01_1限"), Room: "  "}, DefaultInventory())
		require.ErrorIs(t, err, ErrEmptyRoom)
	})

	t.Run("entries in the same batch do not conflict", func(t *testing.T) {
		t.Parallel()

		s := newSession("s1", "Song")
		s.Availability["alice"] = keys(t, "2024-05-01_1限", "2024-05-02_1限")
		equipment := []string{"ベーアン", "ベーアン"}
		result, err := Finalize(s, nil, FinalizeRequest{
			Slots:     keys(t, "2024-05-01_1限", "2024-05-02_1限"),
			Room:      "Hall",
			Equipment: equipment,
		}, NewInventory(map[string]int{"ベーアン": 1}))
		require.NoError(t, err)
		for _, entry := range result.Entries {
			assert.Equal(t, []string{"ベーアン"}, entry.Equipment)
			assert.Empty(t, entry.Warnings)
		}
	})

	t.Run("overlap with another session of the group", func(t *testing.T) {
		t.Parallel()

		other := newSession("s2", "Other Song")
		other.Finalized = []FinalizedEntry{{
			Date:         Date{2024, time.May, 1},
			Periods:      []Period{Period1, PeriodLunch},
			Room:         "Hall",
			Participants: []string{"alice"},
		}}
		foreign := other.Clone()
		foreign.ID = "x1"
		foreign.GroupCode = "elsewhere"

		s := newSession("s1", "Song")
		s.Availability["alice"] = keys(t, "2024-05-01_昼")
		s.Availability["bob"] = keys(t, "2024-05-01_昼")

		result, err := Finalize(s, []Session{other, foreign}, FinalizeRequest{
			Slots: keys(t, "2024-05-01_昼"),
			Room:  "Studio",
		}, DefaultInventory())
		require.NoError(t, err)
		require.Len(t, result.Entries, 1)
		require.Len(t, result.Entries[0].Warnings, 1)

		w := result.Entries[0].Warnings[0]
		assert.Equal(t, WarningOverlap, w.Kind)
		assert.Equal(t, "alice", w.Participant)
		assert.Equal(t, "s2", w.SessionID)
		assert.Equal(t, "⚠️ aliceさんは「Other Song」と練習がかぶっています。", w.Message)
	})

	t.Run("previous confirmations of the same session still conflict", func(t *testing.T) {
		t.Parallel()

		s := newSession("s1", "Song")
		s.Availability["alice"] = keys(t, "2024-05-01_1限")
		first, err := Finalize(s, nil, FinalizeRequest{Slots: keys(t, "2024-05-01_1限"), Room: "Hall"}, DefaultInventory())
		require.NoError(t, err)

		second, err := Finalize(first.Session, []Session{s}, FinalizeRequest{
			Slots: keys(t, "2024-05-01_1限"),
			Room:  "Studio",
		}, DefaultInventory(), WithWarningFormatter(upperFormatter{}))
		require.NoError(t, err)
		require.Len(t, second.Entries[0].Warnings, 1)
		assert.Equal(t, "overlap:alice@Song", second.Entries[0].Warnings[0].Message)
		assert.Len(t, second.Session.Finalized, 2)
	})

	t.Run("shortage threshold follows stock", func(t *testing.T) {
		t.Parallel()

		busy := func(id string) Session {
			s := newSession(id, "Busy "+id)
			s.Finalized = []FinalizedEntry{{
				Date:      Date{2024, time.May, 1},
				Periods:   []Period{Period2},
				Room:      "R-" + id,
				Equipment: []string{"ベーアン"},
			}}
			return s
		}

		s := newSession("s1", "Song")
		req := FinalizeRequest{Slots: keys(t, "2024-05-01_2限"), Room: "Hall", Equipment: []string{"ベーアン"}}

		result, err := Finalize(s, []Session{busy("a"), busy("b")}, req, DefaultInventory())
		require.NoError(t, err)
		assert.Empty(t, result.Entries[0].Warnings, "three concurrent uses fit a stock of three")

		result, err = Finalize(s, []Session{busy("a"), busy("b"), busy("c")}, req, DefaultInventory())
		require.NoError(t, err)
		require.Len(t, result.Entries[0].Warnings, 1)
		w := result.Entries[0].Warnings[0]
		assert.Equal(t, WarningShortage, w.Kind)
		assert.Equal(t, 4, w.Count)
		assert.Equal(t, 3, w.Stock)
		assert.Equal(t, "⚠️ 機材「ベーアン」の在庫が不足しています (他曲と重複)。", w.Message)
	})

	t.Run("unknown equipment has no stock", func(t *testing.T) {
		t.Parallel()

		s := newSession("s1", "Song")
		result, err := Finalize(s, nil, FinalizeRequest{
			Slots:     keys(t, "2024-05-01_1限"),
			Room:      "Hall",
			Equipment: []string{"ドラム"},
		}, DefaultInventory())
		require.NoError(t, err)
		require.Len(t, result.Warnings(), 1)
		assert.Equal(t, 0, result.Warnings()[0].Stock)
	})
}

func TestDetectOverlaps(t *testing.T) {
	t.Parallel()

	entryA := FinalizedEntry{Date: Date{2024, time.May, 1}, Periods: []Period{Period1}, Participants: []string{"alice", "bob"}}
	entryB := FinalizedEntry{Date: Date{2024, time.May, 1}, Periods: []Period{Period1, PeriodLunch}, Participants: []string{"alice"}}

	a := newSession("a", "A")
	a.Finalized = []FinalizedEntry{entryA}
	b := newSession("b", "B")
	b.Finalized = []FinalizedEntry{entryB}

	t.Run("conflicts are symmetric", func(t *testing.T) {
		t.Parallel()

		fromA := DetectOverlaps(NewIndex("circle", []Session{b}), CandidateFromEntry("a", entryA))
		fromB := DetectOverlaps(NewIndex("circle", []Session{a}), CandidateFromEntry("b", entryB))
		require.NotEmpty(t, fromA)
		require.NotEmpty(t, fromB)
		assert.Equal(t, "b", fromA[0].SessionID)
		assert.Equal(t, "a", fromB[0].SessionID)
	})

	t.Run("duplicates across entries are kept", func(t *testing.T) {
		t.Parallel()

		c := Candidate{SessionID: "c", Date: Date{2024, time.May, 1}, Periods: []Period{Period1}, Participants: []string{"bob", "alice"}}
		got := DetectOverlaps(NewIndex("circle", []Session{a, b}), c)
		assert.Equal(t, []Overlap{
			{Participant: "bob", SessionID: "a", SessionTitle: "A"},
			{Participant: "alice", SessionID: "a", SessionTitle: "A"},
			{Participant: "alice", SessionID: "b", SessionTitle: "B"},
		}, got)
	})

	t.Run("checks are idempotent", func(t *testing.T) {
		t.Parallel()

		ix := NewIndex("circle", []Session{a, b})
		c := Candidate{SessionID: "c", Date: Date{2024, time.May, 1}, Periods: []Period{PeriodLunch}, Participants: []string{"alice"}, Equipment: []string{"キーボード"}}
		assert.Equal(t, DetectOverlaps(ix, c), DetectOverlaps(ix, c))
		assert.Equal(t, CheckEquipment(ix, c, DefaultInventory()), CheckEquipment(ix, c, DefaultInventory()))
		assert.Equal(t, 2, ix.Len())
	})

	t.Run("different periods do not conflict", func(t *testing.T) {
		t.Parallel()

		c := Candidate{SessionID: "c", Date: Date{2024, time.May, 1}, Periods: []Period{Period7}, Participants: []string{"alice"}}
		assert.Empty(t, DetectOverlaps(NewIndex("circle", []Session{a, b}), c))
	})
}
