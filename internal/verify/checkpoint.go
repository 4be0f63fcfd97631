package verify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Checkpoint tracks which records a previous run already processed so an
// interrupted run resumes where it stopped. Resetting a checkpoint never
// touches the audit log: history is append-only.
type Checkpoint struct {
	ProcessedIDs []string  `json:"processed_ids"`
	StartedAt    time.Time `json:"started_at"`
	LastUpdated  time.Time `json:"last_updated,omitempty"`

	path string
	seen map[string]bool
}

// LoadCheckpoint reads the checkpoint file, or starts a fresh one
func LoadCheckpoint(path string) (*Checkpoint, error) {
	cp := &Checkpoint{path: path, seen: make(map[string]bool)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cp.StartedAt = time.Now().UTC()
		return cp, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	if err := json.Unmarshal(data, cp); err != nil {
		return nil, fmt.Errorf("parse checkpoint: %w", err)
	}
	for _, id := range cp.ProcessedIDs {
		cp.seen[id] = true
	}
	if cp.StartedAt.IsZero() {
		cp.StartedAt = time.Now().UTC()
	}
	return cp, nil
}

// Reset discards run state and removes the checkpoint file
func (c *Checkpoint) Reset() error {
	c.ProcessedIDs = nil
	c.seen = make(map[string]bool)
	c.StartedAt = time.Now().UTC()
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove checkpoint: %w", err)
	}
	return nil
}

// Processed reports whether a record was completed in a previous run
func (c *Checkpoint) Processed(id string) bool {
	return c.seen[id]
}

// MarkProcessed records a completed record and persists the checkpoint
func (c *Checkpoint) MarkProcessed(id string) error {
	if c.seen[id] {
		return nil
	}
	c.seen[id] = true
	c.ProcessedIDs = append(c.ProcessedIDs, id)
	return c.save()
}

func (c *Checkpoint) save() error {
	c.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}
	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}
