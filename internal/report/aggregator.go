package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/civicdata/corroborate/internal/audit"
	"github.com/civicdata/corroborate/internal/model"
)

// Report is the corpus-wide verification summary. Only the latest run per
// record contributes; the audit log keeps the full history.
type Report struct {
	GeneratedAt  time.Time                `json:"generated_at"`
	Config       RunConfig                `json:"config"`
	Total        int                      `json:"total"`
	Verdicts     []VerdictCount           `json:"verdicts"`
	TierFiles    map[string]TierBreakdown `json:"tier_files,omitempty"`
	FetchMethods map[string]int           `json:"fetch_methods,omitempty"`
	NeedsReview  []string                 `json:"needs_review,omitempty"` // no_match / weak_match record ids
	Entries      []model.Result           `json:"entries"`
}

// RunConfig echoes the run's effective settings into the report
type RunConfig struct {
	LocalOnly       bool     `json:"local_only"`
	DownloadMissing bool     `json:"download_missing"`
	Scorer          string   `json:"scorer,omitempty"`
	IDs             []string `json:"ids,omitempty"`
}

// VerdictCount is one row of the per-verdict rollup
type VerdictCount struct {
	Verdict model.Verdict `json:"verdict"`
	Count   int           `json:"count"`
	Percent float64       `json:"percent"`
}

// TierBreakdown counts verdicts within one tier file
type TierBreakdown struct {
	Total    int                   `json:"total"`
	Verdicts map[model.Verdict]int `json:"verdicts"`
}

// Build aggregates per-record results into a report. Pure: no network, no
// mutation of inputs.
func Build(results []model.Result, cfg RunConfig) *Report {
	rpt := &Report{
		GeneratedAt:  time.Now().UTC(),
		Config:       cfg,
		Total:        len(results),
		TierFiles:    make(map[string]TierBreakdown),
		FetchMethods: make(map[string]int),
		Entries:      results,
	}

	counts := make(map[model.Verdict]int)
	for _, res := range results {
		counts[res.Verdict]++

		tb, ok := rpt.TierFiles[res.TierFile]
		if !ok {
			tb = TierBreakdown{Verdicts: make(map[model.Verdict]int)}
		}
		tb.Total++
		tb.Verdicts[res.Verdict]++
		rpt.TierFiles[res.TierFile] = tb

		if res.FetchMethod != "" {
			rpt.FetchMethods[res.FetchMethod]++
		}
		if res.Verdict == model.VerdictNoMatch || res.Verdict == model.VerdictWeakMatch {
			rpt.NeedsReview = append(rpt.NeedsReview, res.RecordID)
		}
	}
	sort.Strings(rpt.NeedsReview)

	for _, verdict := range model.AllVerdicts {
		count := counts[verdict]
		if count == 0 {
			continue
		}
		rpt.Verdicts = append(rpt.Verdicts, VerdictCount{
			Verdict: verdict,
			Count:   count,
			Percent: percent(count, len(results)),
		})
	}
	return rpt
}

func percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}

// FromAudit reconstructs per-record latest results from the audit trail,
// so `report` works without re-running verification.
func FromAudit(entries []audit.Entry) []model.Result {
	latest := audit.LatestVerdicts(entries)

	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make([]model.Result, 0, len(ids))
	for _, id := range ids {
		entry := latest[id]
		res := model.Result{
			RecordID:   id,
			VerifiedAt: entry.Timestamp,
		}
		if v, ok := entry.Details["verdict"].(string); ok {
			res.Verdict = model.Verdict(v)
		}
		if s, ok := entry.Details["score"].(float64); ok {
			res.Score = int(s)
		}
		if tf, ok := entry.Details["tier_file"].(string); ok {
			res.TierFile = tf
		}
		if fm, ok := entry.Details["fetch_method"].(string); ok {
			res.FetchMethod = fm
		}
		if su, ok := entry.Details["sources_used"].(float64); ok {
			res.SourcesUsed = int(su)
		}
		results = append(results, res)
	}
	return results
}

// WriteJSON renders the report to a file
func (r *Report) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// PrintSummary writes the console rollup. Informational only: a corpus
// full of no_match verdicts still exits zero.
func (r *Report) PrintSummary(w io.Writer) {
	fmt.Fprintf(w, "\nVerification summary (%d records)\n", r.Total)
	for _, vc := range r.Verdicts {
		fmt.Fprintf(w, "  %-22s %4d  (%.1f%%)\n", vc.Verdict, vc.Count, vc.Percent)
	}

	if len(r.TierFiles) > 0 {
		fmt.Fprintln(w, "\nBy tier file:")
		names := make([]string, 0, len(r.TierFiles))
		for name := range r.TierFiles {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			tb := r.TierFiles[name]
			verified := tb.Verdicts[model.VerdictVerified] + tb.Verdicts[model.VerdictLikelyValid]
			fmt.Fprintf(w, "  %-32s %4d records, %d verified/likely\n", name, tb.Total, verified)
		}
	}

	if len(r.NeedsReview) > 0 {
		fmt.Fprintf(w, "\nEntries needing review (%d):\n", len(r.NeedsReview))
		for i, id := range r.NeedsReview {
			if i >= 15 {
				fmt.Fprintf(w, "  ... and %d more\n", len(r.NeedsReview)-15)
				break
			}
			fmt.Fprintf(w, "  %s\n", id)
		}
	}
}
