package tui

import (
	"os"
	"strings"
	"sync"

	"enginesound/internal/log"
)

// LogTail keeps the last few log lines for display while the TUI owns the
// terminal.
type LogTail struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func NewLogTail(n int) *LogTail {
	return &LogTail{max: max(1, n)}
}

// Write splits p into lines and keeps the most recent ones.
func (t *LogTail) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for line := range strings.SplitSeq(strings.TrimRight(string(p), "\n"), "\n") {
		t.lines = append(t.lines, line)
	}
	if over := len(t.lines) - t.max; over > 0 {
		t.lines = append(t.lines[:0], t.lines[over:]...)
	}
	return len(p), nil
}

// Lines returns a copy of the retained lines, oldest first.
func (t *LogTail) Lines() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.lines...)
}

// Capture routes the global logger into t and returns a func restoring
// stderr.
func (t *LogTail) Capture() (restore func()) {
	log.SetOutput(t)
	return func() { log.SetOutput(os.Stderr) }
}
