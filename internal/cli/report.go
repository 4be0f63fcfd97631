package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/civicdata/corroborate/internal/audit"
	"github.com/civicdata/corroborate/internal/report"
)

var reportOut string

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rebuild the verification report from the audit log",
	Long: `Report reads the audit trail and aggregates the latest verdict per
record into a summary: verdict percentages, per-tier-file breakdowns, and
the records flagged for human review. No sources are fetched and no
records are re-scored.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportOut, "out", "", "write the report JSON here as well (default: report path from config)")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg := buildConfig()

	entries, err := audit.Read(cfg.Paths.AuditLog)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no audit entries in %s; run verify first", cfg.Paths.AuditLog)
	}

	results := report.FromAudit(entries)
	rpt := report.Build(results, report.RunConfig{Scorer: "audit"})

	out := cfg.Paths.Report
	if reportOut != "" {
		out = reportOut
	}
	if err := rpt.WriteJSON(out); err != nil {
		return err
	}
	rpt.PrintSummary(os.Stdout)
	fmt.Printf("\nReport saved: %s\n", out)
	return nil
}
