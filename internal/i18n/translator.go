package i18n

import (
	"embed"
	"log/slog"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"

	"github.com/example/rehearsal-scheduler/internal/scheduler"
)

//go:embed active.*.toml
var localeFS embed.FS

var messageFiles = []string{"active.ja.toml", "active.en.toml"}

// Translator is a thin wrapper around go-i18n's Bundle/Localizer.
type Translator struct {
	bundle          *i18n.Bundle
	defaultLanguage language.Tag
	logger          *slog.Logger
}

// NewTranslator builds a Translator from the embedded message files using the given
// default locale (e.g. "ja"). Unparseable locales fall back to Japanese.
func NewTranslator(defaultLocale string, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	tag, err := language.Parse(defaultLocale)
	if err != nil {
		tag = language.Japanese
	}
	bundle := i18n.NewBundle(tag)
	bundle.RegisterUnmarshalFunc("toml", toml.Unmarshal)

	for _, file := range messageFiles {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			logger.Error("i18n: failed to load message file", "file", file, "error", err)
		}
	}

	return &Translator{bundle: bundle, defaultLanguage: tag, logger: logger}
}

// DefaultLocale returns the fallback locale.
func (t *Translator) DefaultLocale() string {
	return t.defaultLanguage.String()
}

// T renders the message identified by key for locale. Missing keys fall back to the
// default locale, then to the key itself.
func (t *Translator) T(locale, key string, data map[string]any) string {
	if key == "" {
		return ""
	}
	msg, ok := t.lookup(locale, key, data)
	if !ok {
		return key
	}
	return msg
}

// TryT is like T but reports whether the key exists.
func (t *Translator) TryT(locale, key string, data map[string]any) (string, bool) {
	if key == "" {
		return "", false
	}
	return t.lookup(locale, key, data)
}

func (t *Translator) lookup(locale, key string, data map[string]any) (string, bool) {
	languages := make([]string, 0, 2)
	if locale != "" {
		languages = append(languages, locale)
	}
	languages = append(languages, t.defaultLanguage.String())

	localizer := i18n.NewLocalizer(t.bundle, languages...)
	msg, err := localizer.Localize(&i18n.LocalizeConfig{
		MessageID:    key,
		TemplateData: data,
	})
	if err != nil {
		t.logger.Debug("i18n: localize failed", "key", key, "locales", languages, "error", err)
		return "", false
	}
	return msg, true
}

// MatchLocale picks the best supported locale for an Accept-Language header value.
func (t *Translator) MatchLocale(acceptLanguage string) string {
	if acceptLanguage == "" {
		return t.defaultLanguage.String()
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t.defaultLanguage.String()
	}
	matcher := language.NewMatcher(t.bundle.LanguageTags())
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return t.defaultLanguage.String()
	}
	return t.bundle.LanguageTags()[idx].String()
}

// WarningFormatter renders confirmation warnings in locale.
func (t *Translator) WarningFormatter(locale string) scheduler.WarningFormatter {
	return warningFormatter{t: t, locale: locale}
}

type warningFormatter struct {
	t      *Translator
	locale string
}

func (f warningFormatter) FormatOverlap(o scheduler.Overlap) string {
	return f.t.T(f.locale, "warning_overlap", map[string]any{
		"Participant":  o.Participant,
		"SessionTitle": o.SessionTitle,
	})
}

func (f warningFormatter) FormatShortage(s scheduler.Shortage) string {
	return f.t.T(f.locale, "warning_shortage", map[string]any{
		"Item":  s.Item,
		"Count": s.Count,
		"Stock": s.Stock,
	})
}

// Validation renders a field error code such as "required" for field.
func (t *Translator) Validation(locale, field, code string) string {
	label, ok := t.TryT(locale, "field_"+field, nil)
	if !ok {
		label = field
	}
	msg, ok := t.TryT(locale, "validation_"+code, map[string]any{"Field": label})
	if !ok {
		return code
	}
	return msg
}
