package logging_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	context_ "github.com/mkrupp/storefront/internal/infra/context"
	"github.com/mkrupp/storefront/internal/infra/logging"
)

func newJSONHandler(buf *bytes.Buffer, level slog.Level) slog.Handler {
	//nolint:exhaustruct
	return slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level})
}

func TestFilterHandler(t *testing.T) {
	t.Parallel()

	levels := map[string]slog.Level{
		"svc":         logging.LevelWarn,
		"svc.cartsvc": logging.LevelDebug,
	}

	tests := []struct {
		name    string
		logger  string
		level   slog.Level
		wantLog bool
	}{
		{"most specific prefix lowers level", "svc.cartsvc.cart_service", logging.LevelDebug, true},
		{"parent prefix raises level", "svc.sessionsvc.session_service", logging.LevelInfo, false},
		{"parent prefix passes warnings", "svc.sessionsvc.session_service", logging.LevelWarn, true},
		{"unmatched logger uses base level", "repo.kv", logging.LevelInfo, true},
		{"unmatched logger below base level", "repo.kv", logging.LevelDebug, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer

			handler := logging.NewFilterHandler(newJSONHandler(&buf, logging.LevelInfo), tt.logger, levels)
			slog.New(handler).Log(context.Background(), tt.level, "message")

			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("logged = %v, want %v (%s)", got, tt.wantLog, buf.String())
			}
		})
	}
}

func TestTracingHandler(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(logging.NewTracingHandler(newJSONHandler(&buf, logging.LevelDebug)))

	ctx := context_.WithTraceID(context.Background(), "trace-1")
	ctx = context_.WithUserEmail(ctx, "ana@duocuc.cl")

	logger.InfoContext(ctx, "login successful")

	out := buf.String()
	if !strings.Contains(out, `"trace":{"id":"trace-1"}`) {
		t.Errorf("missing trace id in %s", out)
	}

	if !strings.Contains(out, `"session":{"email":"ana@duocuc.cl"}`) {
		t.Errorf("missing session email in %s", out)
	}
}
