// Package driving declares what the CLI may ask of the agent: managing
// configurations, running sync cycles, reading the activity log, editing
// settings and driving the scheduler.
//
// internal/core/services implements every interface here.
package driving
