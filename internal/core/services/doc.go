// Package services holds the agent's behaviour: configuration management,
// the sync cycle and its upload pipeline, token refresh, the local folder
// watcher, the task scheduler and the activity log.
//
// Services depend only on ports. Adapters are injected by cmd/sercha-sync.
package services
