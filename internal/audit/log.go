package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Event names recorded in the audit trail
const (
	EventLocalArchiveFound = "local_archive_found"
	EventFetchSuccess      = "fetch_success"
	EventFetchError        = "fetch_error"
	EventVerdict           = "verdict"
	EventScorerError       = "scorer_error"
	EventRecordSkipped     = "record_skipped"
)

// Entry is one line of the JSONL audit log
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	RecordID  string         `json:"record_id"`
	Event     string         `json:"event"`
	Details   map[string]any `json:"details,omitempty"`
}

// Logger appends entries to a JSONL file. The file is opened with O_APPEND
// and all writes go through a single mutex, so concurrent appenders cannot
// interleave lines. Prior entries are never touched.
type Logger struct {
	path string
	mu   sync.Mutex
	file *os.File
}

// Open creates or opens the audit log for appending
func Open(path string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create audit dir: %w", err)
		}
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &Logger{path: path, file: file}, nil
}

// Append writes one entry. Each append is flushed before returning so an
// interrupted run leaves a complete trail for every finished record.
func (l *Logger) Append(recordID, event string, details map[string]any) error {
	entry := Entry{
		Timestamp: time.Now().UTC(),
		RecordID:  recordID,
		Event:     event,
		Details:   details,
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return l.file.Sync()
}

// Close releases the underlying file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Read loads every entry from an audit log. Lines that fail to parse are
// skipped: the log may end mid-line after a hard kill, and history must
// stay readable.
func Read(path string) ([]Entry, error) {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []Entry
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var entry Entry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}
	return entries, nil
}

// LatestVerdicts reduces the log to the most recent verdict entry per
// record, preserving the append-only history on disk.
func LatestVerdicts(entries []Entry) map[string]Entry {
	latest := make(map[string]Entry)
	for _, entry := range entries {
		if entry.Event != EventVerdict {
			continue
		}
		prev, seen := latest[entry.RecordID]
		if !seen || !entry.Timestamp.Before(prev.Timestamp) {
			latest[entry.RecordID] = entry
		}
	}
	return latest
}
