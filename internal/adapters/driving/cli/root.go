// Package cli implements the sercha-sync command line.
package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// Watcher reacts to source change notifications until ctx ends.
type Watcher interface {
	Start(ctx context.Context) error
}

// Services holds what the commands operate on.
type Services struct {
	Configurations driving.ConfigurationService
	Sync           driving.SyncOrchestrator
	Settings       driving.SettingsService
	Logs           driving.LogService
	Scheduler      driving.Scheduler
	Watcher        Watcher
}

// Bootstrap builds the services rooted at dataDir. The returned function
// releases them.
type Bootstrap func(dataDir string) (*Services, func() error, error)

// skipBootstrap marks commands that run without services.
const skipBootstrap = "skip-bootstrap"

var (
	version = "dev"

	dataDir string
	verbose bool

	bootstrap Bootstrap
	release   func() error
)

var (
	configurationService driving.ConfigurationService
	syncOrchestrator     driving.SyncOrchestrator
	settingsService      driving.SettingsService
	logService           driving.LogService
	scheduler            driving.Scheduler
	watcher              Watcher
)

var errConfigurationsMissing = errors.New("configuration service not configured")

var rootCmd = &cobra.Command{
	Use:   "sercha-sync",
	Short: "Synchronise document sources into knowledge boxes",
	Long: `sercha-sync copies documents from local folders, cloud drives, wikis,
feeds and sitemaps into Nuclia knowledge boxes.

Configure sources with 'sercha-sync source add', then run a cycle with
'sercha-sync sync' or keep the agent running with 'sercha-sync serve'.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(*cobra.Command, []string) error {
		return teardown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir(),
		"directory holding config.toml and the sync database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")
}

// Execute runs the command line with the given version string. boot is
// called once flags are parsed.
func Execute(ctx context.Context, v string, boot Bootstrap) error {
	version = v
	bootstrap = boot
	defer func() { _ = teardown() }()
	return rootCmd.ExecuteContext(ctx)
}

// SetServices installs services directly, bypassing the bootstrap.
func SetServices(s *Services) {
	configurationService = s.Configurations
	syncOrchestrator = s.Sync
	settingsService = s.Settings
	logService = s.Logs
	scheduler = s.Scheduler
	watcher = s.Watcher
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if bootstrap == nil || cmd.Annotations[skipBootstrap] == "true" {
		return nil
	}

	services, done, err := bootstrap(dataDir)
	if err != nil {
		return err
	}
	SetServices(services)
	release = done
	return nil
}

func teardown() error {
	if release == nil {
		return nil
	}
	done := release
	release = nil
	return done()
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sercha-sync"
	}
	return filepath.Join(home, ".sercha-sync")
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
