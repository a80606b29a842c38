package logging

import (
	"context"
	"log/slog"
)

// ContextProvider returns the attributes of the current editing scope.
type ContextProvider func() []slog.Attr

// ScopeGroup is the group that ContextHandler nests scope attributes under.
const ScopeGroup = "edit"

// ContextHandler adds the editing scope to every record. The scope is read when the
// record is handled, so a record logged from a completion carries the session that is
// live at that moment.
type ContextHandler struct {
	next  slog.Handler
	scope ContextProvider
}

// NewContextHandler wraps next. A nil scope passes records through unchanged.
func NewContextHandler(next slog.Handler, scope ContextProvider) *ContextHandler {
	return &ContextHandler{next: next, scope: scope}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.scope != nil {
		if attrs := h.scope(); len(attrs) > 0 {
			r.AddAttrs(slog.Attr{Key: ScopeGroup, Value: slog.GroupValue(attrs...)})
		}
	}
	return h.next.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.wrap(h.next.WithAttrs(attrs))
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.wrap(h.next.WithGroup(name))
}

func (h *ContextHandler) wrap(next slog.Handler) *ContextHandler {
	return &ContextHandler{next: next, scope: h.scope}
}
