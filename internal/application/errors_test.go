package application

import (
	"fmt"
	"testing"
)

func TestValidationError(t *testing.T) {
	t.Parallel()

	var nilErr *ValidationError
	if nilErr.Error() != "" || nilErr.HasErrors() {
		t.Fatalf("expected nil validation error to be empty")
	}

	empty := &ValidationError{}
	if empty.HasErrors() {
		t.Fatalf("expected HasErrors to report false for empty error")
	}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message, got %q", got)
	}

	base := fieldError("end_date", CodeBeforeStart)
	base.add("end_date", CodeInvalid)
	if got := base.FieldErrors["end_date"]; got != CodeBeforeStart {
		t.Fatalf("expected first code to win, got %q", got)
	}

	base.merge(&ValidationError{FieldErrors: map[string]string{"title": CodeRequired}})
	base.merge(nil)
	if len(base.FieldErrors) != 2 || base.FieldErrors["title"] != CodeRequired {
		t.Fatalf("unexpected merged fields: %v", base.FieldErrors)
	}
}

func TestErrorKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrUnauthorized, "unauthorized"},
		{fmt.Errorf("wrapped: %w", ErrNotFound), "not_found"},
		{ErrAlreadyExists, "already_exists"},
		{ErrInvalidCredentials, "invalid_credentials"},
		{ErrSessionExpired, "session_expired"},
		{ErrSessionRevoked, "session_revoked"},
		{fieldError("room", CodeRequired), "validation"},
		{fmt.Errorf("boom"), "unexpected"},
	}

	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Fatalf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
