package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/civicdata/corroborate/internal/model"
)

// Store loads incident records from the flat tier files
type Store struct {
	dataDir   string
	tierFiles []string
}

// New creates a store over the given data directory and tier file list
func New(dataDir string, tierFiles []string) *Store {
	return &Store{
		dataDir:   dataDir,
		tierFiles: tierFiles,
	}
}

// tierFile is the on-disk shape: either a bare array or {"entries": [...]}
type tierFile struct {
	Entries []model.Record `json:"entries"`
}

// LoadResult reports what loading produced, including skipped records
type LoadResult struct {
	Records []model.Record
	Skipped []SkippedRecord
	PerFile map[string]int
}

// SkippedRecord identifies a malformed record that was left out of the run
type SkippedRecord struct {
	ID     string
	File   string
	Reason string
}

// Load reads all tier files, normalizes legacy records, and validates.
// A missing tier file is tolerated; an unreadable data directory is not.
func (s *Store) Load() (*LoadResult, error) {
	if _, err := os.Stat(s.dataDir); err != nil {
		return nil, fmt.Errorf("record store unreadable: %w", err)
	}

	result := &LoadResult{PerFile: make(map[string]int)}

	for _, name := range s.tierFiles {
		path := filepath.Join(s.dataDir, name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}

		records, err := parseTierFile(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}

		for _, rec := range records {
			rec.TierFile = name
			normalize(&rec)
			if reason := validate(&rec); reason != "" {
				result.Skipped = append(result.Skipped, SkippedRecord{
					ID:     rec.ID,
					File:   name,
					Reason: reason,
				})
				continue
			}
			result.Records = append(result.Records, rec)
			result.PerFile[name]++
		}
	}

	return result, nil
}

// parseTierFile accepts both historical shapes of a tier file
func parseTierFile(data []byte) ([]model.Record, error) {
	var records []model.Record
	if err := json.Unmarshal(data, &records); err == nil {
		return records, nil
	}

	var wrapped tierFile
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, err
	}
	return wrapped.Entries, nil
}

// normalize migrates legacy flat-source records into the sources array shape
func normalize(rec *model.Record) {
	if len(rec.Sources) == 0 && rec.LegacySourceURL != "" {
		rec.Sources = []model.Source{{
			URL:     rec.LegacySourceURL,
			Name:    rec.LegacySourceName,
			Tier:    rec.LegacySourceTier,
			Primary: true,
		}}
	}
	rec.LegacySourceURL = ""
	rec.LegacySourceName = ""
	rec.LegacySourceTier = 0

	if rec.AffectedCount < 1 {
		rec.AffectedCount = 1
	}
}

// validate returns a non-empty reason when a record must be skipped
func validate(rec *model.Record) string {
	if rec.ID == "" {
		return "missing id"
	}
	if rec.Date == "" {
		return "missing date"
	}
	if len(rec.Sources) == 0 {
		return "no sources"
	}
	for i, src := range rec.Sources {
		if src.URL == "" {
			return fmt.Sprintf("source %d has no URL", i)
		}
	}
	return ""
}

// FilterIDs returns only the records whose ID is in the given set.
// An empty set means no filtering.
func FilterIDs(records []model.Record, ids []string) []model.Record {
	if len(ids) == 0 {
		return records
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []model.Record
	for _, rec := range records {
		if want[rec.ID] {
			out = append(out, rec)
		}
	}
	return out
}
