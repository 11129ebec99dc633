package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/rehearsal-scheduler/internal/scheduler"
)

func TestTranslator_WarningFormatter(t *testing.T) {
	t.Parallel()

	tr := NewTranslator("ja", nil)

	t.Run("japanese texts match the stock formatter", func(t *testing.T) {
		t.Parallel()

		f := tr.WarningFormatter("ja")
		o := scheduler.Overlap{Participant: "アリス", SessionTitle: "春の曲"}
		s := scheduler.Shortage{Item: "ベーアン", Count: 4, Stock: 3}

		assert.Equal(t, scheduler.DefaultWarningFormatter{}.FormatOverlap(o), f.FormatOverlap(o))
		assert.Equal(t, scheduler.DefaultWarningFormatter{}.FormatShortage(s), f.FormatShortage(s))
	})

	t.Run("english texts include counts", func(t *testing.T) {
		t.Parallel()

		msg := tr.WarningFormatter("en").FormatShortage(scheduler.Shortage{Item: "Keyboard", Count: 4, Stock: 3})
		assert.Contains(t, msg, "Keyboard")
		assert.Contains(t, msg, "4 requested")
	})

	t.Run("unknown locale falls back to default", func(t *testing.T) {
		t.Parallel()

		msg := tr.WarningFormatter("fr").FormatOverlap(scheduler.Overlap{Participant: "bob", SessionTitle: "X"})
		assert.Equal(t, "⚠️ bobさんは「X」と練習がかぶっています。", msg)
	})
}

func TestTranslator_T(t *testing.T) {
	t.Parallel()

	tr := NewTranslator("ja", nil)
	assert.Equal(t, "missing_key", tr.T("ja", "missing_key", nil))
	assert.Equal(t, "", tr.T("ja", "", nil))

	_, ok := tr.TryT("en", "error_not_found", nil)
	require.True(t, ok)
}

func TestTranslator_Validation(t *testing.T) {
	t.Parallel()

	tr := NewTranslator("ja", nil)
	assert.Equal(t, "部屋は必須です。", tr.Validation("ja", "room", "required"))
	assert.Equal(t, "Room is required.", tr.Validation("en", "room", "required"))
	assert.Equal(t, "weird_code", tr.Validation("ja", "room", "weird_code"))
	assert.Equal(t, "colorは必須です。", tr.Validation("ja", "color", "required"))
}

func TestTranslator_MatchLocale(t *testing.T) {
	t.Parallel()

	tr := NewTranslator("ja", nil)
	assert.Equal(t, "ja", tr.MatchLocale(""))
	assert.Equal(t, "en", tr.MatchLocale("en-US,en;q=0.9"))
	assert.Equal(t, "ja", tr.MatchLocale("ja-JP"))
	assert.Equal(t, "ja", tr.MatchLocale("fr"), "unsupported languages fall back to the default")
	assert.Equal(t, "ja", tr.MatchLocale("fr-FR,de;q=0.8"))
	assert.Equal(t, "ja", tr.DefaultLocale())
}
