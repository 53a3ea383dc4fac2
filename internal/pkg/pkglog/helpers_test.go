package pkglog

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) entries(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(b.String(), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func (b *syncBuffer) single(t *testing.T) map[string]any {
	t.Helper()
	entries := b.entries(t)
	if len(entries) != 1 {
		t.Fatalf("expected 1 log line, got %d: %s", len(entries), b.String())
	}
	return entries[0]
}

func setup(t *testing.T, opts Options) *syncBuffer {
	t.Helper()
	buf := &syncBuffer{}
	opts.Output = buf
	InitLogging(opts)
	return buf
}
