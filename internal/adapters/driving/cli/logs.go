package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show the activity log",
	Long: `Show what the agent recorded: cycles, uploads, deletions and failures.

--since accepts a duration such as 2h or an RFC 3339 timestamp.`,
	RunE: runLogs,
}

var (
	logsSince string
	logsClear bool
	logsLevel string
)

func init() {
	logsCmd.Flags().StringVar(&logsSince, "since", "", "only show entries newer than this")
	logsCmd.Flags().BoolVar(&logsClear, "clear", false, "delete every entry")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "only show entries of this level (low, medium, high)")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, _ []string) error {
	if logService == nil {
		return errors.New("log service not configured")
	}
	ctx := commandContext(cmd)

	if logsClear {
		if err := logService.Clear(ctx); err != nil {
			return fmt.Errorf("failed to clear logs: %w", err)
		}
		cmd.Println("Activity log cleared.")
		return nil
	}

	var entries []domain.LogEntry
	var err error
	if logsSince != "" {
		since, perr := parseSince(logsSince, time.Now())
		if perr != nil {
			return perr
		}
		entries, err = logService.ListSince(ctx, since)
	} else {
		entries, err = logService.List(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to read logs: %w", err)
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		if logsLevel != "" && !strings.EqualFold(string(e.Level), logsLevel) {
			continue
		}
		rows = append(rows, []string{
			humanize.Time(e.CreatedAt),
			string(e.Level),
			e.Action,
			truncate(e.Message, 80),
		})
	}
	if len(rows) == 0 {
		cmd.Println("No log entries.")
		return nil
	}
	renderTable(cmd.OutOrStdout(), []string{"Time", "Level", "Action", "Message"}, rows)
	return nil
}

// parseSince accepts a duration back from now or an absolute timestamp.
func parseSince(value string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(value); err == nil {
		return now.Add(-d), nil
	}
	if t, ok := domain.ParseTimestamp(value); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: --since %q is neither a duration nor a timestamp", domain.ErrInvalidInput, value)
}
