package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// TestLogBuffer captures JSON log output in tests. It is safe for concurrent
// writers.
type TestLogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewTestLogger returns a debug-level JSON logger writing into a fresh buffer.
func NewTestLogger(t *testing.T) (*slog.Logger, *TestLogBuffer) {
	t.Helper()
	buf := &TestLogBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// Write implements io.Writer.
func (b *TestLogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *TestLogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Entries decodes the captured records, failing the test on malformed output.
func (b *TestLogBuffer) Entries(t *testing.T) []map[string]any {
	t.Helper()
	var entries []map[string]any
	for _, line := range strings.Split(b.String(), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("malformed log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

// Find returns the first captured record with the given message.
func (b *TestLogBuffer) Find(t *testing.T, msg string) (map[string]any, bool) {
	t.Helper()
	for _, e := range b.Entries(t) {
		if e["msg"] == msg {
			return e, true
		}
	}
	return nil, false
}

// Count returns how many captured records have the given message.
func (b *TestLogBuffer) Count(t *testing.T, msg string) int {
	t.Helper()
	n := 0
	for _, e := range b.Entries(t) {
		if e["msg"] == msg {
			n++
		}
	}
	return n
}
