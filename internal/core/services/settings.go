package services

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-sync/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keySyncEnabled       = "sync.enabled"
	keySyncInterval      = "sync.interval"
	keySyncItemDelay     = "sync.item_delay"
	keyExtractorEndpoint = "extractor.endpoint"
	keyLogFile           = "log.file"
	keyLogMaxSizeMB      = "log.max_size_mb"
	keyLogMaxBackups     = "log.max_backups"
)

type settingKind int

const (
	kindString settingKind = iota
	kindBool
	kindInt
	kindDuration
)

var settingKinds = map[string]settingKind{
	keySyncEnabled:       kindBool,
	keySyncInterval:      kindDuration,
	keySyncItemDelay:     kindDuration,
	keyExtractorEndpoint: kindString,
	keyLogFile:           kindString,
	keyLogMaxSizeMB:      kindInt,
	keyLogMaxBackups:     kindInt,
}

// SettingsService manages agent settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current settings. Absent or malformed values fall back to
// their defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Sync: domain.SyncSettings{
			Enabled:   s.getBool(keySyncEnabled, defaults.Sync.Enabled),
			Interval:  s.getDuration(keySyncInterval, defaults.Sync.Interval),
			ItemDelay: s.getDuration(keySyncItemDelay, defaults.Sync.ItemDelay),
		},
		Extractor: domain.ExtractorSettings{
			Endpoint: s.getString(keyExtractorEndpoint, defaults.Extractor.Endpoint),
		},
		Log: domain.LogSettings{
			File:       s.configStore.GetString(keyLogFile), // empty means no log file
			MaxSizeMB:  s.getInt(keyLogMaxSizeMB, defaults.Log.MaxSizeMB),
			MaxBackups: s.getInt(keyLogMaxBackups, defaults.Log.MaxBackups),
		},
	}
	return settings, nil
}

// Save validates and persists settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings == nil {
		return domain.ErrInvalidInput
	}
	if err := settings.Validate(); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keySyncEnabled, settings.Sync.Enabled},
		{keySyncInterval, settings.Sync.Interval.String()},
		{keySyncItemDelay, settings.Sync.ItemDelay.String()},
		{keyExtractorEndpoint, settings.Extractor.Endpoint},
		{keyLogFile, settings.Log.File},
		{keyLogMaxSizeMB, settings.Log.MaxSizeMB},
		{keyLogMaxBackups, settings.Log.MaxBackups},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("set %s: %w", v.key, err)
		}
	}
	return s.configStore.Save()
}

// Set parses value for key and persists it. The resulting settings must
// still validate.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKinds[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	var parsed any
	switch kind {
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects true or false", domain.ErrInvalidInput, key)
		}
		parsed = b
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects a number", domain.ErrInvalidInput, key)
		}
		parsed = n
	case kindDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%w: %s expects a duration such as 30m", domain.ErrInvalidInput, key)
		}
		parsed = d.String()
	default:
		parsed = value
	}

	previous, had := s.configStore.Get(key)
	if err := s.configStore.Set(key, parsed); err != nil {
		return err
	}
	settings, _ := s.Get()
	if err := settings.Validate(); err != nil {
		s.restore(key, previous, had)
		return fmt.Errorf("%w: %s=%s", err, key, value)
	}
	return s.configStore.Save()
}

// restore puts back the value a rejected Set replaced. An absent key is
// reset to its default.
func (s *SettingsService) restore(key string, previous any, had bool) {
	if had {
		_ = s.configStore.Set(key, previous)
		return
	}
	defaults := domain.DefaultAppSettings()
	switch key {
	case keySyncInterval:
		_ = s.configStore.Set(key, defaults.Sync.Interval.String())
	case keySyncItemDelay:
		_ = s.configStore.Set(key, defaults.Sync.ItemDelay.String())
	case keyLogMaxSizeMB:
		_ = s.configStore.Set(key, defaults.Log.MaxSizeMB)
	case keyLogMaxBackups:
		_ = s.configStore.Set(key, defaults.Log.MaxBackups)
	}
}

// Keys lists the settable keys in order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, 0, len(settingKinds))
	for k := range settingKinds {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// Helper methods

func (s *SettingsService) getString(key, defaultVal string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return defaultVal
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, ok := s.configStore.Get(key); !ok {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if d, ok := s.configStore.GetDuration(key); ok {
		return d
	}
	return defaultVal
}
