// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Connector: Lists and fetches content from a source
//   - ConnectorFactory: Creates connectors by name
//   - ConfigurationStore: Sync configuration persistence
//   - Destination: Knowledge box client
//   - EventPublisher: Fire-and-forget notifications
//   - LogStore: Activity log persistence
//   - SchedulerStore: Scheduler state persistence
//   - ConfigStore: Agent settings file
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Extractor: Local HTML extraction. Without it, localExtract links fail per item.
//   - GroupLister, Watcher: optional connector capabilities.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or connector package
package driven
