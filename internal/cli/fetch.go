package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/civicdata/corroborate/internal/archive"
	"github.com/civicdata/corroborate/internal/audit"
	"github.com/civicdata/corroborate/internal/fetch"
	"github.com/civicdata/corroborate/internal/worker"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download missing source archives without verifying",
	Long: `Fetch archives the cited article text for each record without scoring
anything. Sources already archived are skipped unless --force is given.

Requests to the same host are spaced at least --domain-delay apart;
different hosts proceed in parallel.`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&idsFlag, "ids", "", "comma-separated record IDs to fetch (default: all)")
	fetchCmd.Flags().BoolVar(&forceRefresh, "force", false, "re-fetch sources even when archived")
	fetchCmd.Flags().IntVar(&fetchWorkers, "workers", 8, "concurrent fetch workers")
	fetchCmd.Flags().DurationVar(&domainDelay, "domain-delay", time.Second, "minimum spacing between requests to the same host")
	fetchCmd.Flags().StringVar(&dataDir, "data-dir", "", "incident tier files directory (overrides config)")
	fetchCmd.Flags().StringVar(&sourcesDir, "sources-dir", "", "archived article directory (overrides config)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()
	cfg.Fetch.Force = forceRefresh
	cfg.Fetch.DomainDelay = domainDelay
	cfg.Fetch.Workers = fetchWorkers

	records, _, err := loadRecords(cfg, splitIDs(idsFlag))
	if err != nil {
		return err
	}

	auditLog, err := audit.Open(cfg.Paths.AuditLog)
	if err != nil {
		return err
	}
	defer func() { _ = auditLog.Close() }()

	archives := archive.NewStore(cfg.Paths.SourcesDir, cfg.Fetch.MinTextLength)
	gate := worker.NewDomainGate(cfg.Fetch.DomainDelay)
	fetcher := fetch.New(cfg.HTTP, cfg.Fetch, gate)
	archiver := fetch.NewArchiver(fetcher, archives, forceRefresh, cfg.Verify.MaxSources)

	return downloadPhase(cmd.Context(), records, archiver, auditLog, cfg.Fetch.Workers)
}
