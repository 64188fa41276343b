package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-sync/internal/core/domain"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestPrompter_ReadsLines(t *testing.T) {
	p := newPrompter(strings.NewReader("  s3cret \nsecond\n"))
	assert.Equal(t, "s3cret", p.secret())
	assert.Equal(t, "second", p.secret())
	assert.Equal(t, "", p.secret())
}

func TestSettingsCmd_ServiceNotConfigured(t *testing.T) {
	withServices(t, &Services{})

	_, err := execute(t, nil, "settings")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "settings service not configured")
}

func TestSettingsShow(t *testing.T) {
	svc := newMockSettingsService()
	svc.settings.Sync.Interval = 30 * time.Minute
	svc.settings.Log.File = "/var/log/sercha-sync.log"
	withServices(t, &Services{Settings: svc})

	out, err := execute(t, nil, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "[Sync]")
	assert.Contains(t, out, "Interval: 30m0s")
	assert.Contains(t, out, "Item delay: 500ms")
	assert.Contains(t, out, "Endpoint: "+domain.DefaultExtractorEndpoint)
	assert.Contains(t, out, "File: /var/log/sercha-sync.log")
	assert.Contains(t, out, "Configuration is valid.")
}

func TestSettingsShow_InvalidWarns(t *testing.T) {
	svc := newMockSettingsService()
	svc.settings.Sync.Interval = time.Second
	withServices(t, &Services{Settings: svc})

	out, err := execute(t, nil, "settings")
	require.NoError(t, err)
	assert.Contains(t, out, "File: (standard error)")
	assert.Contains(t, out, "Warning:")
}

func TestSettingsSet(t *testing.T) {
	svc := newMockSettingsService()
	withServices(t, &Services{Settings: svc})

	out, err := execute(t, nil, "settings", "set", "sync.interval", "45m")
	require.NoError(t, err)
	assert.Equal(t, "45m", svc.set["sync.interval"])
	assert.Contains(t, out, "Set sync.interval to 45m")
}

func TestSettingsSet_Rejected(t *testing.T) {
	svc := newMockSettingsService()
	svc.setErr = domain.ErrInvalidInput
	withServices(t, &Services{Settings: svc})

	_, err := execute(t, nil, "settings", "set", "sync.interval", "1s")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsSet_RequiresTwoArgs(t *testing.T) {
	withServices(t, &Services{Settings: newMockSettingsService()})

	_, err := execute(t, nil, "settings", "set", "sync.interval")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 2 arg(s)")
}

func TestSettingsKeys(t *testing.T) {
	withServices(t, &Services{Settings: newMockSettingsService()})

	out, err := execute(t, nil, "settings", "keys")
	require.NoError(t, err)
	assert.Equal(t, "log.file\nsync.enabled\nsync.interval\n", out)
}
