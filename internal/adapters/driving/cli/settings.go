package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage agent settings",
	Long: `View and change the agent settings stored in config.toml.

Settings control the recurring sync cycle, the HTML extraction service and
the log file written by 'serve'.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting",
	Long: `Change one setting, for example:

  sercha-sync settings set sync.interval 30m
  sercha-sync settings set extractor.endpoint http://localhost:8091/extract

Run 'sercha-sync settings keys' for the full list.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the settable keys",
	RunE:  runSettingsKeys,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Sync]")
	cmd.Printf("  Enabled: %s\n", yesNo(settings.Sync.Enabled))
	cmd.Printf("  Interval: %s\n", settings.Sync.Interval)
	cmd.Printf("  Item delay: %s\n", settings.Sync.ItemDelay)
	cmd.Println()

	cmd.Println("[Extractor]")
	cmd.Printf("  Endpoint: %s\n", settings.Extractor.Endpoint)
	cmd.Println()

	cmd.Println("[Log]")
	if settings.Log.File != "" {
		cmd.Printf("  File: %s\n", settings.Log.File)
	} else {
		cmd.Printf("  File: (standard error)\n")
	}
	cmd.Printf("  Max size: %d MB\n", settings.Log.MaxSizeMB)
	cmd.Printf("  Max backups: %d\n", settings.Log.MaxBackups)
	cmd.Println()

	if err := settings.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'sercha-sync settings set' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	cmd.Printf("Set %s to %s\n", key, value)
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// prompter reads answers from the command input. Terminal input is read
// without echo.
type prompter struct {
	in  io.Reader
	buf *bufio.Reader
}

func newPrompter(in io.Reader) *prompter {
	return &prompter{in: in, buf: bufio.NewReader(in)}
}

func (p *prompter) secret() string {
	if f, ok := p.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	return readLine(p.buf)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
