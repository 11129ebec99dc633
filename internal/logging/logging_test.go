package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWithWriter(t *testing.T) {
	t.Parallel()

	t.Run("production logs JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		NewWithWriter(&buf, "production", slog.LevelInfo).Info("hello", "k", "v")

		var record map[string]any
		if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
		}
		if record["msg"] != "hello" || record["k"] != "v" {
			t.Fatalf("unexpected record: %v", record)
		}
	})

	t.Run("development logs text and honors level", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		logger := NewWithWriter(&buf, "development", slog.LevelWarn)
		logger.Info("hidden")
		logger.Warn("shown")

		if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "msg=shown") {
			t.Fatalf("unexpected output %q", buf.String())
		}
	})
}

func TestContextLogger(t *testing.T) {
	t.Parallel()

	if FromContext(context.Background()) != nil {
		t.Fatalf("expected no logger on a bare context")
	}
	logger := slog.Default()
	ctx := ContextWithLogger(context.Background(), logger)
	if FromContext(ctx) != logger {
		t.Fatalf("expected the attached logger")
	}
	if ContextWithLogger(ctx, nil) != ctx {
		t.Fatalf("nil logger must leave the context unchanged")
	}
}
