package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent in the foreground",
	Long: `Runs the recurring sync cycle and watches local folders for changes
until interrupted. Output goes to the log file from the settings, or to
--log-file when given.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveLogFile string

func init() {
	serveCmd.Flags().StringVar(&serveLogFile, "log-file", "", "write logs to this rotating file")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if scheduler == nil {
		return errors.New("scheduler not configured")
	}

	logSettings := domain.DefaultAppSettings().Log
	if settingsService != nil {
		if s, err := settingsService.Get(); err == nil {
			logSettings = s.Log
		}
	}
	if serveLogFile != "" {
		logSettings.File = serveLogFile
	}
	if out := logOutput(logSettings); out != nil {
		logger.SetOutput(out)
		logger.SetTimestamps(true)
		defer func() {
			logger.SetOutput(os.Stderr)
			logger.SetTimestamps(false)
			_ = out.Close()
		}()
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Start(ctx) })
	if watcher != nil {
		g.Go(func() error { return watcher.Start(ctx) })
	}

	cmd.Println("sercha-sync is running. Press Ctrl+C to stop.")
	logger.Info("agent started, version %s", version)

	err := g.Wait()
	_ = scheduler.Stop()
	logger.Info("agent stopped")

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// logOutput returns the rotating log writer, or nil when no file is set.
func logOutput(s domain.LogSettings) io.WriteCloser {
	if s.File == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   s.File,
		MaxSize:    s.MaxSizeMB,
		MaxBackups: s.MaxBackups,
	}
}
