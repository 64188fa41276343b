package domain

import "time"

// Defaults for agent settings.
const (
	DefaultSyncInterval      = time.Hour
	DefaultItemDelay         = 500 * time.Millisecond
	DefaultExtractorEndpoint = "http://localhost:8091/extract"
	DefaultLogMaxSizeMB      = 10
	DefaultLogMaxBackups     = 3
)

// AppSettings holds the agent-wide settings read from config.toml.
type AppSettings struct {
	Sync      SyncSettings
	Extractor ExtractorSettings
	Log       LogSettings
}

// SyncSettings controls the recurring driver.
type SyncSettings struct {
	Enabled   bool
	Interval  time.Duration
	ItemDelay time.Duration
}

// ExtractorSettings locates the local HTML extraction service.
type ExtractorSettings struct {
	Endpoint string
}

// LogSettings controls the rotating log file used by serve.
type LogSettings struct {
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// DefaultAppSettings returns settings with sensible defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Sync: SyncSettings{
			Enabled:   true,
			Interval:  DefaultSyncInterval,
			ItemDelay: DefaultItemDelay,
		},
		Extractor: ExtractorSettings{Endpoint: DefaultExtractorEndpoint},
		Log: LogSettings{
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
		},
	}
}

// Validate checks settings are usable.
func (s AppSettings) Validate() error {
	if s.Sync.Interval < time.Minute {
		return ErrInvalidInput
	}
	if s.Sync.ItemDelay < 0 {
		return ErrInvalidInput
	}
	if s.Log.MaxSizeMB < 0 || s.Log.MaxBackups < 0 {
		return ErrInvalidInput
	}
	return nil
}
