package audit

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestLogger_AppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	log, err := Open(path)
	if err != nil {
		t.Fatalf("Expected open to succeed, got %v", err)
	}
	if err := log.Append("T1-D-001", EventVerdict, map[string]any{"verdict": "verified", "score": 85}); err != nil {
		t.Fatalf("Expected append to succeed, got %v", err)
	}
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}

	firstRun, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// A second run must extend the file, never rewrite it
	log, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := log.Append("T1-D-001", EventVerdict, map[string]any{"verdict": "no_match", "score": 10}); err != nil {
		t.Fatal(err)
	}
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}

	secondRun, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(secondRun), string(firstRun)) {
		t.Error("Expected prior entries preserved byte-for-byte")
	}
	if len(secondRun) <= len(firstRun) {
		t.Error("Expected second run to add entries")
	}
}

func TestLogger_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = log.Append("T2-S-014", EventFetchSuccess, map[string]any{"source_index": n})
		}(i)
	}
	wg.Wait()
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := Read(path)
	if err != nil {
		t.Fatalf("Expected readable log, got %v", err)
	}
	if len(entries) != 20 {
		t.Fatalf("Expected 20 intact entries, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.RecordID != "T2-S-014" || entry.Event != EventFetchSuccess {
			t.Errorf("Corrupted entry: %+v", entry)
		}
	}
}

func TestRead_SkipsTruncatedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	content := `{"timestamp":"2025-07-01T10:00:00Z","record_id":"A","event":"verdict","details":{"verdict":"verified"}}
{"timestamp":"2025-07-01T10:01:00Z","record_id":"B","event":"verd`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := Read(path)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("Expected truncated line skipped, got %d entries", len(entries))
	}
	if entries[0].RecordID != "A" {
		t.Errorf("Expected record A, got %s", entries[0].RecordID)
	}
}

func TestRead_MissingFile(t *testing.T) {
	entries, err := Read(filepath.Join(t.TempDir(), "absent.jsonl"))
	if err != nil {
		t.Fatalf("Expected missing log tolerated, got %v", err)
	}
	if entries != nil {
		t.Errorf("Expected nil entries, got %d", len(entries))
	}
}

func TestLatestVerdicts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	log, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	mustAppend := func(id, event string, details map[string]any) {
		t.Helper()
		if err := log.Append(id, event, details); err != nil {
			t.Fatal(err)
		}
	}
	mustAppend("A", EventVerdict, map[string]any{"verdict": "weak_match", "score": 40})
	mustAppend("A", EventFetchSuccess, map[string]any{"source_index": 0})
	mustAppend("B", EventVerdict, map[string]any{"verdict": "verified", "score": 90})
	mustAppend("A", EventVerdict, map[string]any{"verdict": "verified", "score": 75})
	if err := log.Close(); err != nil {
		t.Fatal(err)
	}

	entries, err := Read(path)
	if err != nil {
		t.Fatal(err)
	}

	latest := LatestVerdicts(entries)
	if len(latest) != 2 {
		t.Fatalf("Expected 2 records with verdicts, got %d", len(latest))
	}
	if got := latest["A"].Details["verdict"]; got != "verified" {
		t.Errorf("Expected latest verdict for A to win, got %v", got)
	}
	if got := latest["B"].Details["score"]; got != float64(90) {
		t.Errorf("Expected score 90 for B, got %v", got)
	}
}
