package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/example/rehearsal-scheduler/internal/application"
	"github.com/example/rehearsal-scheduler/internal/i18n"
	"github.com/example/rehearsal-scheduler/internal/logging"
)

type responder struct {
	logger     *slog.Logger
	translator *i18n.Translator
}

func newResponder(logger *slog.Logger, translator *i18n.Translator) responder {
	if logger == nil {
		logger = slog.Default()
	}
	if translator == nil {
		translator = i18n.NewTranslator("ja", logger)
	}
	return responder{logger: logger, translator: translator}
}

func (r responder) locale(ctx context.Context) string {
	if locale := LocaleFromContext(ctx); locale != "" {
		return locale
	}
	return r.translator.DefaultLocale()
}

func (r responder) message(ctx context.Context, key string) string {
	return r.translator.T(r.locale(ctx), key, nil)
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

// writeError responds with the localized text of key.
func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, code, key string) {
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: r.message(ctx, key)})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, "", "error_internal")
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeError(ctx, w, http.StatusForbidden, "AUTH_FORBIDDEN", "error_forbidden")
	case errors.Is(err, application.ErrNotFound):
		r.writeError(ctx, w, http.StatusNotFound, "", "error_not_found")
	case errors.Is(err, application.ErrAlreadyExists):
		r.writeError(ctx, w, http.StatusConflict, "ALREADY_EXISTS", "error_already_exists")
	case errors.Is(err, application.ErrInvalidCredentials):
		r.writeError(ctx, w, http.StatusUnauthorized, "AUTH_INVALID_CREDENTIALS", "error_invalid_credentials")
	case errors.Is(err, application.ErrSessionExpired), errors.Is(err, application.ErrSessionRevoked):
		r.writeError(ctx, w, http.StatusUnauthorized, "AUTH_SESSION_EXPIRED", "error_session_invalid")
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: r.message(ctx, "error_validation"),
				Errors:  r.localizeValidationErrors(ctx, vErr),
			})
			return
		}

		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeError(ctx, w, http.StatusInternalServerError, "", "error_internal")
	}
}

func (r responder) localizeValidationErrors(ctx context.Context, vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	locale := r.locale(ctx)
	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, code := range vErr.FieldErrors {
		translated[field] = r.translator.Validation(locale, field, code)
	}
	return translated
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
