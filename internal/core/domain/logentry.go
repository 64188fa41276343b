package domain

import "time"

// LogLevel grades a recorded log entry.
type LogLevel string

// Log levels.
const (
	LogLow    LogLevel = "low"
	LogMedium LogLevel = "medium"
	LogHigh   LogLevel = "high"
)

// LogEntry is one persisted record of agent activity.
type LogEntry struct {
	ID        int64          `json:"id,omitempty"`
	Level     LogLevel       `json:"level"`
	Action    string         `json:"action"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
