package verify

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckpoint_ResumeAcrossRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")

	cp, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatalf("Expected fresh checkpoint, got %v", err)
	}
	if cp.Processed("A") {
		t.Error("Fresh checkpoint should have nothing processed")
	}

	if err := cp.MarkProcessed("A"); err != nil {
		t.Fatal(err)
	}
	if err := cp.MarkProcessed("B"); err != nil {
		t.Fatal(err)
	}

	// A second load must see the same progress
	resumed, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatal(err)
	}
	if !resumed.Processed("A") || !resumed.Processed("B") {
		t.Error("Expected processed ids to survive reload")
	}
	if resumed.Processed("C") {
		t.Error("Unprocessed id reported as processed")
	}
}

func TestCheckpoint_MarkProcessedIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	cp, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cp.MarkProcessed("A"); err != nil {
		t.Fatal(err)
	}
	if err := cp.MarkProcessed("A"); err != nil {
		t.Fatal(err)
	}
	if len(cp.ProcessedIDs) != 1 {
		t.Errorf("Expected single entry, got %v", cp.ProcessedIDs)
	}
}

func TestCheckpoint_ResetRemovesFileOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")
	auditPath := filepath.Join(dir, "audit.jsonl")
	if err := os.WriteFile(auditPath, []byte(`{"event":"verdict"}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cp, err := LoadCheckpoint(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cp.MarkProcessed("A"); err != nil {
		t.Fatal(err)
	}

	if err := cp.Reset(); err != nil {
		t.Fatal(err)
	}
	if cp.Processed("A") {
		t.Error("Expected reset to clear progress")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected checkpoint file removed")
	}
	// Reset must never touch the audit trail
	if data, err := os.ReadFile(auditPath); err != nil || len(data) == 0 {
		t.Error("Expected audit log untouched after reset")
	}
}

func TestCheckpoint_ResetWithoutFile(t *testing.T) {
	cp, err := LoadCheckpoint(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatal(err)
	}
	if err := cp.Reset(); err != nil {
		t.Errorf("Expected reset of missing file tolerated, got %v", err)
	}
}
