package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync [configuration-id]",
	Short: "Run a sync cycle",
	Long: `Runs one sync cycle and waits for it to finish.
If a configuration ID is provided, only that configuration is synchronised.
Otherwise every enabled configuration is synchronised in turn.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	ctx := commandContext(cmd)

	if len(args) > 0 {
		id := args[0]
		cmd.Printf("Synchronising configuration: %s...\n", id)

		report, err := syncOrchestrator.Run(ctx, id)
		if err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		printReport(cmd, *report)
		if report.Error != "" {
			return fmt.Errorf("sync failed: %s", report.Error)
		}
		return nil
	}

	cmd.Println("Synchronising all configurations...")

	reports, err := syncOrchestrator.RunAll(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	failed := 0
	for _, r := range reports {
		printReport(cmd, r)
		if r.Error != "" {
			failed++
		}
	}
	if len(reports) == 0 {
		cmd.Println("No enabled configurations.")
		return nil
	}
	if failed > 0 {
		return fmt.Errorf("sync failed for %d of %d configurations", failed, len(reports))
	}
	cmd.Println("All configurations synchronised successfully.")
	return nil
}

func printReport(cmd *cobra.Command, r domain.CycleReport) {
	switch {
	case r.Skipped:
		cmd.Printf("  %s: skipped\n", r.ConfigurationID)
	case r.Error != "":
		cmd.Printf("  %s: %s (%d of %d items delivered)\n", r.ConfigurationID, r.Error, r.SuccessCount, r.Total)
	default:
		cmd.Printf("  %s: %d of %d items delivered, %d deleted\n",
			r.ConfigurationID, r.SuccessCount, r.Total, len(r.Deleted))
	}
}
