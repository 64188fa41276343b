package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

func TestNewSettingsService(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore())

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAppSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("sync.enabled", false)
	_ = store.Set("sync.interval", "15m")
	_ = store.Set("sync.item_delay", "0s")
	_ = store.Set("extractor.endpoint", "http://extract:9000")
	_ = store.Set("log.file", "/var/log/sync.log")
	_ = store.Set("log.max_backups", 0)

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	assert.False(t, settings.Sync.Enabled)
	assert.Equal(t, 15*time.Minute, settings.Sync.Interval)
	assert.Equal(t, time.Duration(0), settings.Sync.ItemDelay)
	assert.Equal(t, "http://extract:9000", settings.Extractor.Endpoint)
	assert.Equal(t, "/var/log/sync.log", settings.Log.File)
	assert.Equal(t, 0, settings.Log.MaxBackups)
	assert.Equal(t, domain.DefaultLogMaxSizeMB, settings.Log.MaxSizeMB)
}

func TestSettingsService_Get_InvalidDurationReturnsDefault(t *testing.T) {
	store := memory.NewConfigStore()
	_ = store.Set("sync.interval", "often")

	settings, err := NewSettingsService(store).Get()

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultSyncInterval, settings.Sync.Interval)
}

func TestSettingsService_Save(t *testing.T) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store)

	settings := domain.DefaultAppSettings()
	settings.Sync.Interval = 2 * time.Hour
	settings.Log.File = "sync.log"
	require.NoError(t, service.Save(&settings))

	assert.Equal(t, "2h0m0s", store.GetString("sync.interval"))
	assert.Equal(t, "sync.log", store.GetString("log.file"))
	assert.Equal(t, 1, store.Saves())

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *got)
}

func TestSettingsService_Save_RejectsInvalid(t *testing.T) {
	store := memory.NewConfigStore()
	settings := domain.DefaultAppSettings()
	settings.Sync.Interval = time.Second

	err := NewSettingsService(store).Save(&settings)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 0, store.Saves())
	assert.ErrorIs(t, NewSettingsService(store).Save(nil), domain.ErrInvalidInput)
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		key, value string
		check      func(t *testing.T, s *domain.AppSettings)
	}{
		{"sync.enabled", "false", func(t *testing.T, s *domain.AppSettings) { assert.False(t, s.Sync.Enabled) }},
		{"sync.interval", "90m", func(t *testing.T, s *domain.AppSettings) { assert.Equal(t, 90*time.Minute, s.Sync.Interval) }},
		{"sync.item_delay", "1s", func(t *testing.T, s *domain.AppSettings) { assert.Equal(t, time.Second, s.Sync.ItemDelay) }},
		{"extractor.endpoint", "http://x", func(t *testing.T, s *domain.AppSettings) { assert.Equal(t, "http://x", s.Extractor.Endpoint) }},
		{"log.max_size_mb", "50", func(t *testing.T, s *domain.AppSettings) { assert.Equal(t, 50, s.Log.MaxSizeMB) }},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store)

			require.NoError(t, service.Set(tt.key, tt.value))

			settings, err := service.Get()
			require.NoError(t, err)
			tt.check(t, settings)
			assert.Equal(t, 1, store.Saves())
		})
	}
}

func TestSettingsService_Set_Rejects(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"unknown key", "search.mode", "hybrid"},
		{"bad bool", "sync.enabled", "maybe"},
		{"bad number", "log.max_backups", "many"},
		{"bad duration", "sync.interval", "soon"},
		{"interval too short", "sync.interval", "10s"},
		{"negative delay", "sync.item_delay", "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.NewConfigStore()
			service := NewSettingsService(store)

			err := service.Set(tt.key, tt.value)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Equal(t, 0, store.Saves())

			settings, err := service.Get()
			require.NoError(t, err)
			assert.Equal(t, domain.DefaultAppSettings(), *settings)
		})
	}
}

func TestSettingsService_Keys(t *testing.T) {
	keys := NewSettingsService(memory.NewConfigStore()).Keys()

	assert.Equal(t, []string{
		"extractor.endpoint",
		"log.file",
		"log.max_backups",
		"log.max_size_mb",
		"sync.enabled",
		"sync.interval",
		"sync.item_delay",
	}, keys)
}

func TestSettingsService_GetDefaults(t *testing.T) {
	assert.Equal(t, domain.DefaultAppSettings(), NewSettingsService(memory.NewConfigStore()).GetDefaults())
}
