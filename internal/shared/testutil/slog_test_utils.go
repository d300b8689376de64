package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log line with its attributes flattened.
// Attributes added through Logger.With are included; groups are dot-joined.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// logSink is shared by a handler and every handler derived from it
type logSink struct {
	mu      sync.Mutex
	records []LogRecord
}

// BufferedSlogHandler captures log records for assertions
type BufferedSlogHandler struct {
	sink   *logSink
	attrs  []slog.Attr
	prefix string
	t      testing.TB
}

// NewBufferedSlogHandler creates a capturing handler. t may be nil; when set,
// every record is echoed to the test log.
func NewBufferedSlogHandler(t testing.TB) *BufferedSlogHandler {
	return &BufferedSlogHandler{sink: &logSink{}, t: t}
}

// NewTestLogger returns a logger writing into a fresh handler
func NewTestLogger(t testing.TB) (*slog.Logger, *BufferedSlogHandler) {
	h := NewBufferedSlogHandler(t)
	return slog.New(h), h
}

// Enabled implements slog.Handler. Every level is captured.
func (h *BufferedSlogHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler
func (h *BufferedSlogHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		flatten(attrs, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		flatten(attrs, h.prefix, a)
		return true
	})

	h.sink.mu.Lock()
	h.sink.records = append(h.sink.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.sink.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

// WithAttrs implements slog.Handler
func (h *BufferedSlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), prefixed(h.prefix, attrs)...)
	return &next
}

// WithGroup implements slog.Handler
func (h *BufferedSlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func prefixed(prefix string, attrs []slog.Attr) []slog.Attr {
	if prefix == "" {
		return attrs
	}
	out := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		out[i] = slog.Attr{Key: prefix + a.Key, Value: a.Value}
	}
	return out
}

func flatten(dst map[string]any, prefix string, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, ga := range v.Group() {
			flatten(dst, prefix+a.Key+".", ga)
		}
		return
	}
	dst[prefix+a.Key] = v.Any()
}

// Records returns a copy of every captured record
func (h *BufferedSlogHandler) Records() []LogRecord {
	h.sink.mu.Lock()
	defer h.sink.mu.Unlock()
	return append([]LogRecord(nil), h.sink.records...)
}

// Find returns the records at level whose message contains message
func (h *BufferedSlogHandler) Find(level slog.Level, message string) []LogRecord {
	var found []LogRecord
	for _, r := range h.Records() {
		if r.Level == level && strings.Contains(r.Message, message) {
			found = append(found, r)
		}
	}
	return found
}

// Reset drops every captured record
func (h *BufferedSlogHandler) Reset() {
	h.sink.mu.Lock()
	h.sink.records = nil
	h.sink.mu.Unlock()
}

// AssertLogContains fails t unless a record at level contains message.
// It returns the first match for further checks.
func AssertLogContains(t testing.TB, h *BufferedSlogHandler, level slog.Level, message string) LogRecord {
	t.Helper()
	found := h.Find(level, message)
	if len(found) == 0 {
		t.Errorf("no %s log containing %q; captured: %s", level, message, h.dump())
		return LogRecord{}
	}
	return found[0]
}

// AssertNoLogsAbove fails t if anything was logged above level
func AssertNoLogsAbove(t testing.TB, h *BufferedSlogHandler, level slog.Level) {
	t.Helper()
	for _, r := range h.Records() {
		if r.Level > level {
			t.Errorf("unexpected %s log %q %v", r.Level, r.Message, r.Attrs)
		}
	}
}

// AssertNotLogged fails t if secret appears in any message or attribute value
func AssertNotLogged(t testing.TB, h *BufferedSlogHandler, secret string) {
	t.Helper()
	if secret == "" {
		return
	}
	for _, r := range h.Records() {
		if strings.Contains(r.Message, secret) {
			t.Errorf("secret leaked in message %q", r.Message)
		}
		for k, v := range r.Attrs {
			if strings.Contains(fmt.Sprint(v), secret) {
				t.Errorf("secret leaked in attribute %s of %q", k, r.Message)
			}
		}
	}
}

func (h *BufferedSlogHandler) dump() string {
	var b strings.Builder
	for _, r := range h.Records() {
		fmt.Fprintf(&b, "\n  [%s] %s %v", r.Level, r.Message, r.Attrs)
	}
	return b.String()
}
