package driving

import "github.com/custodia-labs/sercha-sync/internal/core/domain"

// SettingsService manages agent settings.
type SettingsService interface {
	// Get retrieves current settings, with defaults filled in.
	Get() (*domain.AppSettings, error)

	// Save persists settings.
	Save(settings *domain.AppSettings) error

	// Set updates one dotted key (e.g. "sync.interval").
	Set(key, value string) error

	// Keys lists the settable keys.
	Keys() []string

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
