package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Record is one NDJSON line in the run trace. Fields are omitted when empty so
// lines stay short enough to eyeball with grep.
type Record struct {
	RunID     string `json:"run_id"`
	Timestamp string `json:"ts"`
	Type      string `json:"type"`
	Backend   string `json:"backend,omitempty"`
	Batch     int    `json:"batch,omitempty"`
	Count     int    `json:"count,omitempty"`
	State     string `json:"state,omitempty"`
	Command   string `json:"command,omitempty"`
	Mod       string `json:"mod,omitempty"`
	Message   string `json:"message,omitempty"`
}

type Logger struct {
	mu sync.Mutex
	f  *os.File
	w  *bufio.Writer
}

func New(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &Logger{
		f: f,
		w: bufio.NewWriterSize(f, 64*1024),
	}, nil
}

func NowTS() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.w != nil {
		_ = l.w.Flush()
	}
	if l.f != nil {
		return l.f.Close()
	}
	return nil
}

// Log is safe on a nil receiver so callers can carry an optional trace without
// guarding every call site.
func (l *Logger) Log(rec Record) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.w == nil {
		return
	}
	if rec.Timestamp == "" {
		rec.Timestamp = NowTS()
	}
	line, err := json.Marshal(rec)
	if err != nil {
		return
	}
	_, _ = l.w.Write(append(line, '\n'))
	_ = l.w.Flush()
}
