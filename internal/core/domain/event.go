package domain

import "time"

// EventName identifies a notification published on the event bus.
type EventName string

// Events published by the agent.
const (
	EventCycleStarted  EventName = "start-synchronization-sync-object"
	EventCycleFinished EventName = "finish-synchronization-sync-object"
	EventItemFinished  EventName = "finish-synchronization-single-file"
	EventSyncCreated   EventName = "sync-created"
	EventSyncUpdated   EventName = "sync-updated"
	EventSyncDeleted   EventName = "sync-deleted"
)

// Event is a fire-and-forget notification. Fields not relevant to Name are
// left zero.
type Event struct {
	Name EventName
	Time time.Time

	// From is the configuration id.
	From string
	// To is the destination knowledge box id.
	To string
	// ItemID is the source id of the item (item events only).
	ItemID string

	Total        int
	Processed    []string
	SuccessCount int
	Success      bool
	Message      string
	Error        string
}

// CycleReport summarises one finished cycle.
type CycleReport struct {
	ConfigurationID string
	Total           int
	Processed       []string
	Deleted         []string
	SuccessCount    int
	Error           string
	Skipped         bool
}
