package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/civicdata/corroborate/internal/archive"
	"github.com/civicdata/corroborate/internal/model"
)

func TestArchiver_EnsureRecordIdempotent(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	store := archive.NewStore(t.TempDir(), 50)
	archiver := NewArchiver(testFetcher(t, false, false), store, false, 5)

	rec := &model.Record{
		ID: "T1-D-001",
		Sources: []model.Source{
			{URL: server.URL + "/a"},
			{URL: server.URL + "/b"},
		},
	}

	statuses := archiver.EnsureRecord(context.Background(), rec)
	if len(statuses) != 2 {
		t.Fatalf("Expected 2 statuses, got %d", len(statuses))
	}
	for _, st := range statuses {
		if !st.OK || st.Skipped {
			t.Errorf("Expected fresh fetch for %s, got %+v", st.URL, st)
		}
		if st.Origin != model.OriginWebDirect {
			t.Errorf("Expected web_direct origin, got %s", st.Origin)
		}
	}
	if n := requests.Load(); n != 2 {
		t.Fatalf("Expected 2 requests on first run, got %d", n)
	}

	// Second run must not hit the network at all
	statuses = archiver.EnsureRecord(context.Background(), rec)
	for _, st := range statuses {
		if !st.OK || !st.Skipped {
			t.Errorf("Expected archived source skipped, got %+v", st)
		}
		if st.Origin != model.OriginLocalArchive {
			t.Errorf("Expected local_archive origin on skip, got %s", st.Origin)
		}
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("Expected no additional requests, got %d total", n)
	}
}

func TestArchiver_ForceRefetches(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	store := archive.NewStore(t.TempDir(), 50)
	rec := &model.Record{
		ID:      "T2-S-014",
		Sources: []model.Source{{URL: server.URL + "/a"}},
	}

	archiver := NewArchiver(testFetcher(t, false, false), store, false, 5)
	archiver.EnsureRecord(context.Background(), rec)

	forced := NewArchiver(testFetcher(t, false, false), store, true, 5)
	statuses := forced.EnsureRecord(context.Background(), rec)
	if statuses[0].Skipped {
		t.Error("Expected force to bypass the archive")
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("Expected 2 requests with force, got %d", n)
	}
}

func TestArchiver_PerSourceFailureIsolated(t *testing.T) {
	oldSleep := fetchSleepFunc
	fetchSleepFunc = func(time.Duration) {}
	defer func() { fetchSleepFunc = oldSleep }()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/dead" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	store := archive.NewStore(t.TempDir(), 50)
	archiver := NewArchiver(testFetcher(t, false, false), store, false, 5)

	rec := &model.Record{
		ID: "T3-056",
		Sources: []model.Source{
			{URL: server.URL + "/dead"},
			{URL: server.URL + "/alive"},
		},
	}

	statuses := archiver.EnsureRecord(context.Background(), rec)
	if len(statuses) != 2 {
		t.Fatalf("Expected 2 statuses, got %d", len(statuses))
	}

	byIdx := map[int]model.FetchStatus{}
	for _, st := range statuses {
		byIdx[st.SourceIdx] = st
	}
	if byIdx[0].OK {
		t.Error("Expected dead source to fail")
	}
	if byIdx[0].Reason != model.ReasonUnreachable {
		t.Errorf("Expected unreachable reason, got %s", byIdx[0].Reason)
	}
	if !byIdx[1].OK {
		t.Errorf("Expected live source archived despite sibling failure, got %+v", byIdx[1])
	}
	if !store.Has("T3-056", 1) {
		t.Error("Expected live source text on disk")
	}
}

func TestArchiver_MaxSourcesCapped(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	store := archive.NewStore(t.TempDir(), 50)
	archiver := NewArchiver(testFetcher(t, false, false), store, false, 2)

	rec := &model.Record{
		ID: "T4-010",
		Sources: []model.Source{
			{URL: server.URL + "/a"},
			{URL: server.URL + "/b"},
			{URL: server.URL + "/c"},
		},
	}

	statuses := archiver.EnsureRecord(context.Background(), rec)
	if len(statuses) != 2 {
		t.Errorf("Expected 2 statuses under cap, got %d", len(statuses))
	}
	if n := requests.Load(); n != 2 {
		t.Errorf("Expected 2 requests under cap, got %d", n)
	}
}

func TestArchiver_WriteFailureReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(articleHTML))
	}))
	defer server.Close()

	// Store threshold far above the article length, so the fetch succeeds
	// but the archive write is rejected.
	store := archive.NewStore(t.TempDir(), 1<<20)
	archiver := NewArchiver(testFetcher(t, false, false), store, false, 5)

	rec := &model.Record{
		ID:      "T4-011",
		Sources: []model.Source{{URL: server.URL + "/a"}},
	}

	statuses := archiver.EnsureRecord(context.Background(), rec)
	if len(statuses) != 1 {
		t.Fatalf("Expected 1 status, got %d", len(statuses))
	}
	st := statuses[0]
	if st.OK {
		t.Fatalf("Expected failure, got %+v", st)
	}
	if st.Reason != model.ReasonArchiveWriteFailed {
		t.Errorf("Expected archive_write_failed, got %q", st.Reason)
	}
}
