package logging

import (
	"context"
	"log/slog"
	"strings"
)

// FilterHandler overrides the minimum level for a named logger. The most
// specific dotted prefix of the logger name found in Levels wins, so
// "svc.cartsvc:debug" applies to "svc.cartsvc.cart_service".
type FilterHandler struct {
	h     slog.Handler
	level slog.Level
	ok    bool
}

var _ slog.Handler = (*FilterHandler)(nil)

// NewFilterHandler wraps h with the level override matching name, if any.
func NewFilterHandler(h slog.Handler, name string, levels map[string]slog.Level) *FilterHandler {
	level, ok := lookupLevel(name, levels)

	return &FilterHandler{h: h, level: level, ok: ok}
}

func lookupLevel(name string, levels map[string]slog.Level) (slog.Level, bool) {
	parts := strings.Split(name, ".")

	for i := len(parts); i > 0; i-- {
		if level, ok := levels[strings.Join(parts[:i], ".")]; ok {
			return level, true
		}
	}

	level, ok := levels["*"]

	return level, ok
}

// Enabled implements slog.Handler.Enabled.
func (h *FilterHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.ok {
		return level >= h.level
	}

	return h.h.Enabled(ctx, level)
}

// Handle implements slog.Handler.Handle.
func (h *FilterHandler) Handle(ctx context.Context, r slog.Record) error {
	//nolint:wrapcheck
	return h.h.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.WithAttrs.
func (h *FilterHandler) WithAttrs(attrs []slog.Attr) Handler {
	return &FilterHandler{h: h.h.WithAttrs(attrs), level: h.level, ok: h.ok}
}

// WithGroup implements slog.Handler.WithGroup.
func (h *FilterHandler) WithGroup(name string) Handler {
	return &FilterHandler{h: h.h.WithGroup(name), level: h.level, ok: h.ok}
}
