package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/civicdata/corroborate/internal/model"
)

func TestStore_WriteRead(t *testing.T) {
	s := NewStore(t.TempDir(), 10)

	text := strings.Repeat("evidence ", 20)
	path, err := s.Write("T1-D-001", 0, text)
	if err != nil {
		t.Fatalf("Expected write to succeed, got %v", err)
	}
	if !strings.HasSuffix(path, filepath.Join("T1-D-001", "source_0_article.txt")) {
		t.Errorf("Unexpected archive path: %s", path)
	}

	got, gotPath, ok := s.Read("T1-D-001", 0)
	if !ok {
		t.Fatal("Expected archived text to be readable")
	}
	if got != text {
		t.Error("Read returned different text than written")
	}
	if gotPath != path {
		t.Errorf("Expected path %s, got %s", path, gotPath)
	}
	if !s.Has("T1-D-001", 0) {
		t.Error("Expected Has to report true")
	}
	if s.Has("T1-D-001", 1) {
		t.Error("Expected Has false for unarchived source")
	}
}

func TestStore_RejectsShortText(t *testing.T) {
	s := NewStore(t.TempDir(), 200)

	if _, err := s.Write("T1-D-001", 0, "too short"); err == nil {
		t.Fatal("Expected short text to be rejected")
	}
	if s.Has("T1-D-001", 0) {
		t.Error("Expected nothing archived after rejected write")
	}
}

func TestStore_ShortFileOnDiskIgnored(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 200)

	recDir := filepath.Join(dir, "T3-056")
	if err := os.MkdirAll(recDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(recDir, "source_0_article.txt"), []byte("404 not found"), 0o644); err != nil {
		t.Fatal(err)
	}

	if s.Has("T3-056", 0) {
		t.Error("Expected sub-threshold file treated as absent")
	}
}

func TestStore_LegacyLayout(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 10)

	recDir := filepath.Join(dir, "T4-010")
	if err := os.MkdirAll(recDir, 0o755); err != nil {
		t.Fatal(err)
	}
	text := strings.Repeat("legacy article text ", 5)
	if err := os.WriteFile(filepath.Join(recDir, "article.txt"), []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}

	got, path, ok := s.Read("T4-010", 0)
	if !ok {
		t.Fatal("Expected legacy article.txt honored for source 0")
	}
	if got != text {
		t.Error("Legacy read returned wrong text")
	}
	if !strings.HasSuffix(path, "article.txt") {
		t.Errorf("Expected legacy path, got %s", path)
	}

	// Legacy layout applies to source 0 only
	if _, _, ok := s.Read("T4-010", 1); ok {
		t.Error("Expected legacy layout not to serve source 1")
	}
}

func TestStore_CanonicalPathWinsOverLegacy(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(dir, 10)

	recDir := filepath.Join(dir, "T2-S-014")
	if err := os.MkdirAll(recDir, 0o755); err != nil {
		t.Fatal(err)
	}
	canonical := strings.Repeat("canonical text ", 5)
	legacy := strings.Repeat("legacy text ", 5)
	if err := os.WriteFile(filepath.Join(recDir, "source_0_article.txt"), []byte(canonical), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(recDir, "article.txt"), []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	got, _, ok := s.Read("T2-S-014", 0)
	if !ok || got != canonical {
		t.Error("Expected canonical layout preferred over legacy")
	}
}

func TestStore_ReadAll(t *testing.T) {
	s := NewStore(t.TempDir(), 10)

	rec := &model.Record{
		ID: "T1-D-002",
		Sources: []model.Source{
			{URL: "https://example.com/a"},
			{URL: "https://example.com/b"},
			{URL: "https://example.com/c"},
		},
	}

	textA := strings.Repeat("first source ", 5)
	textC := strings.Repeat("third source ", 5)
	if _, err := s.Write(rec.ID, 0, textA); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Write(rec.ID, 2, textC); err != nil {
		t.Fatal(err)
	}

	texts := s.ReadAll(rec, 5)
	if len(texts) != 2 {
		t.Fatalf("Expected 2 archived texts, got %d", len(texts))
	}
	if texts[0].Index != 0 || texts[1].Index != 2 {
		t.Errorf("Expected source order preserved, got indices %d, %d", texts[0].Index, texts[1].Index)
	}
	if texts[0].Origin != model.OriginLocalArchive {
		t.Errorf("Expected local_archive origin, got %s", texts[0].Origin)
	}
	if texts[1].Source.URL != "https://example.com/c" {
		t.Errorf("Expected source metadata attached, got %s", texts[1].Source.URL)
	}

	// maxSources caps how many sources are considered
	capped := s.ReadAll(rec, 2)
	if len(capped) != 1 || capped[0].Index != 0 {
		t.Errorf("Expected maxSources=2 to exclude source 2, got %d texts", len(capped))
	}
}
