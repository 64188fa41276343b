package driven

import "time"

// ConfigStore provides access to the agent settings file.
// Implementations handle persistence (e.g., TOML files) and type conversion.
// Keys use dot notation ("sync.interval").
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string value, "" if absent.
	GetString(key string) string

	// GetInt retrieves an integer value, 0 if absent or not numeric.
	GetInt(key string) int

	// GetBool retrieves a boolean value, false if absent.
	GetBool(key string) bool

	// GetDuration parses a duration string such as "1h" or "500ms".
	// The boolean is false when the key is absent or does not parse.
	GetDuration(key string) (time.Duration, bool)

	// Set stores a configuration value.
	// The value is persisted immediately.
	Set(key string, value any) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
