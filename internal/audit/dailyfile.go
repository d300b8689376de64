// Package audit records license issuances for bookkeeping.
//
// Every issuance is appended to a dated JSON file and, when configured, to a
// spreadsheet. Sinks are best effort: callers log their errors and move on.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// DailyFile appends JSON documents to <dir>/YYYY-MM-DD.json
type DailyFile struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// NewDailyFile creates an appender rooted at dir
func NewDailyFile(dir string) *DailyFile {
	return &DailyFile{dir: dir, now: time.Now}
}

// WithClock replaces the time source, for tests
func (f *DailyFile) WithClock(now func() time.Time) *DailyFile {
	f.now = now
	return f
}

// Path returns the file used for entries written at t
func (f *DailyFile) Path(t time.Time) string {
	return filepath.Join(f.dir, t.UTC().Format("2006-01-02")+".json")
}

// Append writes v as an indented JSON document followed by a newline
func (f *DailyFile) Append(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(f.Path(f.now()), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write log entry: %w", err)
	}
	return nil
}
