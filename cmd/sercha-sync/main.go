// Command sercha-sync synchronises document sources into Nuclia knowledge
// boxes.
package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/destination/nuclia"
	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/web"
	"github.com/custodia-labs/sercha-sync/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-sync/internal/connectors"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/services"
	"github.com/custodia-labs/sercha-sync/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := cli.Execute(context.Background(), version, bootstrap); err != nil {
		os.Exit(1)
	}
}

// bootstrap opens the settings file and the database under dataDir and
// wires the services.
func bootstrap(dataDir string) (*cli.Services, func() error, error) {
	configStore, err := file.NewConfigStore(dataDir)
	if err != nil {
		return nil, nil, err
	}
	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, err
	}

	store, err := sqlite.NewStore(filepath.Join(dataDir, "data"))
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("database: %s", store.Path())

	bus := services.NewEventBus(0)
	recorder := services.NewLogRecorder(store.LogStore())
	bus.Subscribe(recorder.Handle)

	factory := connectors.NewRegistry()
	uploader := services.NewUploader(
		nuclia.New(nuclia.Config{}),
		web.NewClient(nil),
		services.WithExtractor(web.NewExtractor(settings.Extractor.Endpoint, nil)),
	)
	syncOrch := services.NewSyncOrchestrator(
		store.ConfigurationStore(),
		factory,
		uploader,
		bus,
		services.WithItemDelay(settings.Sync.ItemDelay),
	)

	schedulerConfig := domain.DefaultSchedulerConfig()
	schedulerConfig.TaskConfigs[domain.TaskIDSyncAll] = domain.TaskConfig{
		Enabled:  settings.Sync.Enabled,
		Interval: settings.Sync.Interval,
	}

	s := &cli.Services{
		Configurations: services.NewConfigurationService(store.ConfigurationStore(), factory, bus),
		Sync:           syncOrch,
		Settings:       settingsService,
		Logs:           recorder,
		Scheduler:      services.NewScheduler(schedulerConfig, store.SchedulerStore(), syncOrch, recorder),
		Watcher:        services.NewWatchService(store.ConfigurationStore(), factory, syncOrch, 0),
	}

	release := func() error {
		bus.Close()
		return store.Close()
	}
	return s, release, nil
}
