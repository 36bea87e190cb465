// Package testutil provides test utilities for structured logging.
package testutil

import (
	"bytes"
	"log/slog"
	"sync"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t: t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// LogBuffer collects log output so tests can assert on it.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// String returns everything logged so far.
func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// NewCapturingLogger is NewTestLogger that also keeps a copy of every line.
func NewCapturingLogger(t testing.TB) (*slog.Logger, *LogBuffer) {
	t.Helper()
	lb := &LogBuffer{}
	return slog.New(slog.NewTextHandler(testWriter{t: t, copyTo: lb}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})), lb
}

type testWriter struct {
	t      testing.TB
	copyTo *LogBuffer
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	if w.copyTo != nil {
		w.copyTo.mu.Lock()
		w.copyTo.buf.Write(p)
		w.copyTo.mu.Unlock()
	}
	return len(p), nil
}
