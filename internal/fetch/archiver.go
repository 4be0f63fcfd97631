package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/civicdata/corroborate/internal/archive"
	"github.com/civicdata/corroborate/internal/model"
)

// Archiver ensures a record's sources are archived locally. Already
// archived, viable texts are skipped unless force is set. Failures are
// per-source and never abort the record, let alone the batch.
type Archiver struct {
	fetcher    *Fetcher
	store      *archive.Store
	force      bool
	maxSources int
}

// NewArchiver wires a fetcher and an archive store together
func NewArchiver(fetcher *Fetcher, store *archive.Store, force bool, maxSources int) *Archiver {
	if maxSources <= 0 {
		maxSources = 5
	}
	return &Archiver{
		fetcher:    fetcher,
		store:      store,
		force:      force,
		maxSources: maxSources,
	}
}

// EnsureRecord fetches every missing source text for a record. Sources
// fan out concurrently; the domain gate keeps same-host requests spaced.
func (a *Archiver) EnsureRecord(ctx context.Context, rec *model.Record) []model.FetchStatus {
	n := len(rec.Sources)
	if n > a.maxSources {
		n = a.maxSources
	}

	statuses := make([]model.FetchStatus, 0, n)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			status := a.ensureSource(gctx, rec, i)
			mu.Lock()
			statuses = append(statuses, status)
			mu.Unlock()
			return nil // Per-source failures are recorded, not propagated
		})
	}
	_ = g.Wait()

	return statuses
}

func (a *Archiver) ensureSource(ctx context.Context, rec *model.Record, idx int) model.FetchStatus {
	src := rec.Sources[idx]
	status := model.FetchStatus{
		RecordID:  rec.ID,
		SourceIdx: idx,
		URL:       src.URL,
		FetchedAt: time.Now().UTC(),
	}

	if !a.force {
		if _, _, ok := a.store.Read(rec.ID, idx); ok {
			status.OK = true
			status.Skipped = true
			status.Origin = model.OriginLocalArchive
			return status
		}
	}

	text, origin, err := a.fetcher.SourceText(ctx, src.URL)
	if err != nil {
		status.Reason = FailureReason(err)
		return status
	}

	if _, err := a.store.Write(rec.ID, idx, text); err != nil {
		status.Reason = model.ReasonArchiveWriteFailed
		return status
	}

	status.OK = true
	status.Origin = origin
	status.Bytes = len(text)
	return status
}
