package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/civicdata/corroborate/internal/model"
)

// Store persists archived article texts, one file per (record, source) pair.
// Layout: <dir>/<record-id>/source_<i>_article.txt. A legacy single-file
// layout (<dir>/<record-id>/article.txt) is honored on read for source 0.
type Store struct {
	dir       string
	minLength int
	memory    *gocache.Cache // Avoids re-reading disk within a run
}

// NewStore creates an archive store rooted at dir. Texts shorter than
// minLength are treated as absent.
func NewStore(dir string, minLength int) *Store {
	if minLength <= 0 {
		minLength = 200
	}
	return &Store{
		dir:       dir,
		minLength: minLength,
		memory:    gocache.New(30*time.Minute, 10*time.Minute),
	}
}

// Path returns the canonical archive path for a (record, source) pair
func (s *Store) Path(recordID string, sourceIdx int) string {
	return filepath.Join(s.dir, recordID, fmt.Sprintf("source_%d_article.txt", sourceIdx))
}

func (s *Store) legacyPath(recordID string) string {
	return filepath.Join(s.dir, recordID, "article.txt")
}

func cacheKey(recordID string, sourceIdx int) string {
	return fmt.Sprintf("%s/%d", recordID, sourceIdx)
}

// Has reports whether a viable archived text exists for the pair
func (s *Store) Has(recordID string, sourceIdx int) bool {
	_, _, ok := s.Read(recordID, sourceIdx)
	return ok
}

// Read returns the archived text and the path it came from.
// Returns ok=false when nothing viable is archived.
func (s *Store) Read(recordID string, sourceIdx int) (string, string, bool) {
	key := cacheKey(recordID, sourceIdx)
	if v, found := s.memory.Get(key); found {
		cached := v.(cachedText)
		return cached.text, cached.path, true
	}

	paths := []string{s.Path(recordID, sourceIdx)}
	if sourceIdx == 0 {
		paths = append(paths, s.legacyPath(recordID))
	}

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if len(data) < s.minLength {
			continue
		}
		text := string(data)
		s.memory.Set(key, cachedText{text: text, path: path}, gocache.DefaultExpiration)
		return text, path, true
	}
	return "", "", false
}

type cachedText struct {
	text string
	path string
}

// Write persists an article text for the pair. Texts below the viability
// threshold are rejected so a bad fetch cannot shadow a later good one.
func (s *Store) Write(recordID string, sourceIdx int, text string) (string, error) {
	if len(text) < s.minLength {
		return "", fmt.Errorf("text too short to archive: %d bytes", len(text))
	}

	dir := filepath.Join(s.dir, recordID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}

	path := s.Path(recordID, sourceIdx)
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return "", fmt.Errorf("write archive: %w", err)
	}

	s.memory.Set(cacheKey(recordID, sourceIdx), cachedText{text: text, path: path}, gocache.DefaultExpiration)
	return path, nil
}

// ReadAll returns every archived text for a record, in source order.
func (s *Store) ReadAll(rec *model.Record, maxSources int) []model.SourceText {
	var out []model.SourceText
	n := len(rec.Sources)
	if maxSources > 0 && n > maxSources {
		n = maxSources
	}
	for i := 0; i < n; i++ {
		text, path, ok := s.Read(rec.ID, i)
		if !ok {
			continue
		}
		out = append(out, model.SourceText{
			Index:  i,
			Source: rec.Sources[i],
			Text:   text,
			Origin: model.OriginLocalArchive,
			Path:   path,
		})
	}
	return out
}
