package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/civicdata/corroborate/internal/archive"
	"github.com/civicdata/corroborate/internal/audit"
	"github.com/civicdata/corroborate/internal/fetch"
	"github.com/civicdata/corroborate/internal/model"
	"github.com/civicdata/corroborate/internal/report"
	"github.com/civicdata/corroborate/internal/store"
	"github.com/civicdata/corroborate/internal/verify"
	"github.com/civicdata/corroborate/internal/worker"
)

var (
	idsFlag         string
	localOnly       bool
	downloadMissing bool
	forceRefresh    bool
	resetRun        bool
	verifyWorkers   int
	fetchWorkers    int
	domainDelay     time.Duration
	dataDir         string
	sourcesDir      string
	llmEnabled      bool
	llmModel        string
	llmBaseURL      string
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify records against their archived source articles",
	Long: `Verify runs the full pipeline: for each record, assemble archived
source texts (fetching missing ones unless disabled), score how well the
sources corroborate the record, and append the outcome to the audit log.

Each record commits independently. Interrupting a run loses nothing:
processed records are checkpointed and the next run resumes after them.

Example:
  corroborate verify
  corroborate verify --ids T1-D-001,T3-056 --local-only
  corroborate verify --download-missing --force
  corroborate verify --llm --llm-model deepseek-chat`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVar(&idsFlag, "ids", "", "comma-separated record IDs to verify (default: all)")
	verifyCmd.Flags().BoolVar(&localOnly, "local-only", false, "use local archives only, never fetch")
	verifyCmd.Flags().BoolVar(&downloadMissing, "download-missing", false, "download missing archives first, then verify")
	verifyCmd.Flags().BoolVar(&forceRefresh, "force", false, "re-fetch sources even when archived")
	verifyCmd.Flags().BoolVar(&resetRun, "reset", false, "discard the previous run's checkpoint (audit history is kept)")
	verifyCmd.Flags().IntVar(&verifyWorkers, "workers", 4, "concurrent verification workers")
	verifyCmd.Flags().IntVar(&fetchWorkers, "fetch-workers", 8, "concurrent fetch workers for the download phase")
	verifyCmd.Flags().DurationVar(&domainDelay, "domain-delay", time.Second, "minimum spacing between requests to the same host")
	verifyCmd.Flags().StringVar(&dataDir, "data-dir", "", "incident tier files directory (overrides config)")
	verifyCmd.Flags().StringVar(&sourcesDir, "sources-dir", "", "archived article directory (overrides config)")

	verifyCmd.Flags().BoolVar(&llmEnabled, "llm", false, "score with an LLM instead of the keyword heuristic")
	verifyCmd.Flags().StringVar(&llmModel, "llm-model", "deepseek-chat", "LLM model name")
	verifyCmd.Flags().StringVar(&llmBaseURL, "llm-base-url", "", "openai-compatible API base URL")
}

func runVerify(cmd *cobra.Command, args []string) error {
	if localOnly && downloadMissing {
		return fmt.Errorf("--local-only and --download-missing are mutually exclusive")
	}

	cfg := buildConfig()
	cfg.Verify.LocalOnly = localOnly
	cfg.Verify.DownloadMissing = downloadMissing
	cfg.Fetch.Force = forceRefresh
	cfg.Fetch.DomainDelay = domainDelay
	cfg.Fetch.Workers = fetchWorkers
	cfg.Verify.Workers = verifyWorkers

	ids := splitIDs(idsFlag)
	ctx := cmd.Context()

	records, skipped, err := loadRecords(cfg, ids)
	if err != nil {
		return err
	}

	checkpoint, err := verify.LoadCheckpoint(cfg.Paths.Checkpoint)
	if err != nil {
		return err
	}
	if resetRun {
		if err := checkpoint.Reset(); err != nil {
			return err
		}
	}

	// An explicit id subset always re-verifies, matching review workflows
	if len(ids) == 0 {
		var pending []model.Record
		for _, rec := range records {
			if !checkpoint.Processed(rec.ID) {
				pending = append(pending, rec)
			}
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Already processed: %d\n", len(records)-len(pending))
		}
		records = pending
	}

	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "Nothing to verify. Use --reset to start over.")
		return nil
	}

	auditLog, err := audit.Open(cfg.Paths.AuditLog)
	if err != nil {
		return err
	}
	defer func() { _ = auditLog.Close() }()

	for _, sk := range skipped {
		_ = auditLog.Append(sk.ID, audit.EventRecordSkipped, map[string]any{
			"tier_file": sk.File,
			"reason":    sk.Reason,
		})
	}

	archives := archive.NewStore(cfg.Paths.SourcesDir, cfg.Fetch.MinTextLength)

	var archiver *fetch.Archiver
	if !localOnly {
		gate := worker.NewDomainGate(cfg.Fetch.DomainDelay)
		fetcher := fetch.New(cfg.HTTP, cfg.Fetch, gate)
		archiver = fetch.NewArchiver(fetcher, archives, forceRefresh, cfg.Verify.MaxSources)
	}

	if downloadMissing && archiver != nil {
		if err := downloadPhase(ctx, records, archiver, auditLog, cfg.Fetch.Workers); err != nil {
			return err
		}
	}

	scorer, err := buildScorer(cfg)
	if err != nil {
		return err
	}

	runner := verify.NewRunner(verify.RunnerOptions{
		Archives:   archives,
		Archiver:   archiver,
		Scorer:     scorer,
		AuditLog:   auditLog,
		LocalOnly:  localOnly,
		MaxSources: cfg.Verify.MaxSources,
		Retries:    cfg.Verify.ScorerRetries,
		Verbose:    verbose,
	})

	results := runner.VerifyAll(ctx, records, cfg.Verify.Workers, func(res model.Result) {
		if len(ids) == 0 {
			if err := checkpoint.MarkProcessed(res.RecordID); err != nil && verbose {
				fmt.Fprintf(os.Stderr, "warning: checkpoint save failed: %v\n", err)
			}
		}
	})

	rpt := report.Build(results, report.RunConfig{
		LocalOnly:       localOnly,
		DownloadMissing: downloadMissing,
		Scorer:          scorer.Name(),
		IDs:             ids,
	})
	if err := rpt.WriteJSON(cfg.Paths.Report); err != nil {
		return err
	}
	rpt.PrintSummary(os.Stdout)
	fmt.Printf("\nReport saved: %s\n", cfg.Paths.Report)
	return nil
}

// downloadPhase fetches all missing archives up front with high cross-domain
// concurrency, so the verification phase runs against local text.
func downloadPhase(ctx context.Context, records []model.Record, archiver *fetch.Archiver, auditLog *audit.Logger, workers int) error {
	fmt.Fprintf(os.Stderr, "Download phase: %d records, %d workers\n", len(records), workers)

	pool := worker.NewPool(ctx, workers)
	pool.Start()

	go func() {
		for _, rec := range records {
			pool.Submit(&downloadJob{archiver: archiver, record: rec})
		}
		pool.Finish()
	}()

	done := 0
	fetched, failed := 0, 0
	for res := range pool.Results() {
		dr := res.(*downloadResult)
		done++
		for _, st := range dr.statuses {
			switch {
			case st.OK && !st.Skipped:
				fetched++
				_ = auditLog.Append(st.RecordID, audit.EventFetchSuccess, map[string]any{
					"source_index": st.SourceIdx,
					"url":          st.URL,
					"origin":       string(st.Origin),
					"length":       st.Bytes,
				})
			case !st.OK:
				failed++
				_ = auditLog.Append(st.RecordID, audit.EventFetchError, map[string]any{
					"source_index": st.SourceIdx,
					"url":          st.URL,
					"reason":       st.Reason,
				})
			}
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "  [%d/%d] %s\n", done, len(records), dr.recordID)
		}
	}

	fmt.Fprintf(os.Stderr, "Download phase complete: %d fetched, %d failed\n", fetched, failed)
	return ctx.Err()
}

type downloadJob struct {
	archiver *fetch.Archiver
	record   model.Record
}

func (j *downloadJob) Execute(ctx context.Context) worker.Result {
	statuses := j.archiver.EnsureRecord(ctx, &j.record)
	return &downloadResult{recordID: j.record.ID, statuses: statuses}
}

type downloadResult struct {
	recordID string
	statuses []model.FetchStatus
}

func (r *downloadResult) GetError() error { return nil }

// loadRecords loads, filters, joins jurisdictions, and reports skips
func loadRecords(cfg *model.Config, ids []string) ([]model.Record, []store.SkippedRecord, error) {
	recordStore := store.New(cfg.Paths.DataDir, cfg.Paths.TierFiles)
	loaded, err := recordStore.Load()
	if err != nil {
		return nil, nil, err
	}

	for _, skipped := range loaded.Skipped {
		fmt.Fprintf(os.Stderr, "warning: skipping %s (%s): %s\n", skipped.ID, skipped.File, skipped.Reason)
	}
	if verbose {
		for file, count := range loaded.PerFile {
			fmt.Fprintf(os.Stderr, "Loaded %d from %s\n", count, file)
		}
	}

	jurisdictions, err := store.LoadJurisdictions(cfg.Paths.Jurisdiction)
	if err != nil {
		return nil, nil, err
	}
	store.JoinJurisdictions(loaded.Records, jurisdictions)

	return store.FilterIDs(loaded.Records, ids), loaded.Skipped, nil
}

// buildScorer picks the scoring strategy. The LLM key comes from the
// environment, never from flags or config files.
func buildScorer(cfg *model.Config) (verify.Scorer, error) {
	if !llmEnabled {
		return verify.NewHeuristicScorer(), nil
	}

	llmCfg := cfg.LLM
	llmCfg.Enabled = true
	llmCfg.Model = llmModel
	if llmBaseURL != "" {
		llmCfg.BaseURL = llmBaseURL
	}
	for _, envVar := range []string{"DEEPSEEK_API_KEY", "OPENAI_API_KEY"} {
		if key := os.Getenv(envVar); key != "" {
			llmCfg.APIKey = key
			break
		}
	}
	if llmCfg.APIKey == "" {
		return nil, fmt.Errorf("set DEEPSEEK_API_KEY or OPENAI_API_KEY to use --llm")
	}
	return verify.NewLLMScorer(llmCfg)
}

func splitIDs(flag string) []string {
	if flag == "" {
		return nil
	}
	var out []string
	for _, id := range strings.Split(flag, ",") {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
