package verify

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/civicdata/corroborate/internal/archive"
	"github.com/civicdata/corroborate/internal/audit"
	"github.com/civicdata/corroborate/internal/fetch"
	"github.com/civicdata/corroborate/internal/model"
	"github.com/civicdata/corroborate/internal/worker"
)

// scorerSleepFunc is the sleep between scorer retries (injectable for tests)
var scorerSleepFunc = time.Sleep

// Runner drives the per-record verification sequence: assemble source
// texts (local archive first), score, threshold, and append the audit
// trail. Each record commits independently, so an interrupted run leaves
// processed records intact and the rest untouched.
type Runner struct {
	archives   *archive.Store
	archiver   *fetch.Archiver // nil disables live-fetch fallback
	scorer     Scorer
	auditLog   *audit.Logger
	localOnly  bool
	maxSources int
	retries    int
	verbose    bool
}

// RunnerOptions configures a Runner
type RunnerOptions struct {
	Archives   *archive.Store
	Archiver   *fetch.Archiver // Leave nil for local-archive-only verification
	Scorer     Scorer
	AuditLog   *audit.Logger
	LocalOnly  bool
	MaxSources int
	Retries    int
	Verbose    bool
}

// NewRunner creates a runner
func NewRunner(opts RunnerOptions) *Runner {
	retries := opts.Retries
	if retries <= 0 {
		retries = 3
	}
	maxSources := opts.MaxSources
	if maxSources <= 0 {
		maxSources = 5
	}
	return &Runner{
		archives:   opts.Archives,
		archiver:   opts.Archiver,
		scorer:     opts.Scorer,
		auditLog:   opts.AuditLog,
		localOnly:  opts.LocalOnly,
		maxSources: maxSources,
		retries:    retries,
		verbose:    opts.Verbose,
	}
}

// VerifyRecord runs the full sequence for one record
func (r *Runner) VerifyRecord(ctx context.Context, rec *model.Record) model.Result {
	result := model.Result{
		RecordID:   rec.ID,
		TierFile:   rec.TierFile,
		VerifiedAt: time.Now().UTC(),
	}

	texts := r.archives.ReadAll(rec, r.maxSources)
	for _, st := range texts {
		r.logAudit(rec.ID, audit.EventLocalArchiveFound, map[string]any{
			"source_index": st.Index,
			"path":         st.Path,
			"length":       len(st.Text),
		})
	}

	if len(texts) < minSources(rec, r.maxSources) && r.archiver != nil {
		statuses := r.archiver.EnsureRecord(ctx, rec)
		for _, st := range statuses {
			if st.OK && !st.Skipped {
				r.logAudit(rec.ID, audit.EventFetchSuccess, map[string]any{
					"source_index": st.SourceIdx,
					"url":          st.URL,
					"origin":       string(st.Origin),
					"length":       st.Bytes,
				})
			} else if !st.OK {
				r.logAudit(rec.ID, audit.EventFetchError, map[string]any{
					"source_index": st.SourceIdx,
					"url":          st.URL,
					"reason":       st.Reason,
				})
			}
		}
		texts = r.archives.ReadAll(rec, r.maxSources)
		overlayOrigins(texts, statuses)
	}

	if len(texts) == 0 {
		if r.localOnly {
			result.Verdict = model.VerdictNoLocalArchive
			result.Reasoning = "no local archive and live fetching disabled"
		} else {
			result.Verdict = model.VerdictURLInaccessible
			result.Reasoning = "no source text could be obtained"
		}
		r.logVerdict(&result, "none")
		return result
	}

	result.SourcesUsed = len(texts)
	result.FetchMethod = fetchMethod(texts)

	judgment, err := r.scoreWithRetry(ctx, rec, texts)
	if err != nil {
		result.Verdict = model.VerdictNeedsReverify
		result.Reasoning = fmt.Sprintf("scorer failed after %d attempts: %v", r.retries, err)
		r.logAudit(rec.ID, audit.EventScorerError, map[string]any{
			"scorer": r.scorer.Name(),
			"error":  err.Error(),
		})
		r.logVerdict(&result, result.FetchMethod)
		return result
	}

	result.Score = judgment.Score
	result.Verdict = model.VerdictFromScore(judgment.Score)
	result.Reasoning = judgment.Reasoning
	result.Sources = judgment.Sources
	result.Corrections = judgment.Corrections
	r.logVerdict(&result, result.FetchMethod)
	return result
}

// scoreWithRetry retries scorer failures with exponential backoff. A record
// is never given a score-based verdict from a failed scorer call.
func (r *Runner) scoreWithRetry(ctx context.Context, rec *model.Record, texts []model.SourceText) (*model.Judgment, error) {
	var lastErr error
	for attempt := 0; attempt < r.retries; attempt++ {
		judgment, err := r.scorer.Score(ctx, rec, texts)
		if err == nil {
			return judgment, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt < r.retries-1 {
			scorerSleepFunc(time.Duration(1<<uint(attempt)) * time.Second)
		}
	}
	return nil, lastErr
}

func (r *Runner) logVerdict(result *model.Result, fetchMethod string) {
	relevant := 0
	for _, sj := range result.Sources {
		if sj.Relevant {
			relevant++
		}
	}
	r.logAudit(result.RecordID, audit.EventVerdict, map[string]any{
		"verdict":          string(result.Verdict),
		"score":            result.Score,
		"tier_file":        result.TierFile,
		"fetch_method":     fetchMethod,
		"sources_used":     result.SourcesUsed,
		"sources_relevant": relevant,
		"scorer":           r.scorer.Name(),
	})
}

func (r *Runner) logAudit(recordID, event string, details map[string]any) {
	if r.auditLog == nil {
		return
	}
	if err := r.auditLog.Append(recordID, event, details); err != nil && r.verbose {
		fmt.Fprintf(os.Stderr, "warning: audit append failed: %v\n", err)
	}
}

// minSources is how many texts a record could have, capped
func minSources(rec *model.Record, maxSources int) int {
	n := len(rec.Sources)
	if n > maxSources {
		n = maxSources
	}
	return n
}

// overlayOrigins stamps texts fetched this run with the origin the fetcher
// reported. The archive re-read labels everything local_archive; only
// sources that were already on disk before the run should keep that label.
func overlayOrigins(texts []model.SourceText, statuses []model.FetchStatus) {
	fetched := make(map[int]model.TextOrigin, len(statuses))
	for _, st := range statuses {
		if st.OK && !st.Skipped {
			fetched[st.SourceIdx] = st.Origin
		}
	}
	for i := range texts {
		if origin, ok := fetched[texts[i].Index]; ok {
			texts[i].Origin = origin
		}
	}
}

// fetchMethod summarizes where the texts came from
func fetchMethod(texts []model.SourceText) string {
	origins := make(map[model.TextOrigin]bool)
	for _, st := range texts {
		origins[st.Origin] = true
	}
	if len(origins) == 1 {
		for origin := range origins {
			return string(origin)
		}
	}
	return "mixed"
}

// recordJob adapts a record verification to the worker pool
type recordJob struct {
	runner *Runner
	record model.Record
}

func (j *recordJob) Execute(ctx context.Context) worker.Result {
	result := j.runner.VerifyRecord(ctx, &j.record)
	return &recordResult{result: result}
}

type recordResult struct {
	result model.Result
}

func (r *recordResult) GetError() error { return nil }

// VerifyAll runs records through a bounded worker pool and returns results
// in completion order. onResult, when non-nil, fires as each record
// finishes, which is where the checkpoint marks progress. Progress lines
// go to stderr per record.
func (r *Runner) VerifyAll(ctx context.Context, records []model.Record, workers int, onResult func(model.Result)) []model.Result {
	pool := worker.NewPool(ctx, workers)
	pool.Start()

	go func() {
		for _, rec := range records {
			pool.Submit(&recordJob{runner: r, record: rec})
		}
		pool.Finish()
	}()

	results := make([]model.Result, 0, len(records))
	for res := range pool.Results() {
		rr := res.(*recordResult)
		results = append(results, rr.result)
		printProgress(len(results), len(records), &rr.result)
		if onResult != nil {
			onResult(rr.result)
		}
	}
	return results
}

func printProgress(done, total int, result *model.Result) {
	icon := "[XX]"
	switch result.Verdict {
	case model.VerdictVerified, model.VerdictLikelyValid:
		icon = "[OK]"
	case model.VerdictWeakMatch:
		icon = "[??]"
	}
	fmt.Fprintf(os.Stderr, "[%d/%d] %s: %s %s (%d) via %s\n",
		done, total, result.RecordID, icon, result.Verdict, result.Score, result.FetchMethod)
}
