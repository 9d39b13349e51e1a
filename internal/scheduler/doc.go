// Package scheduler triggers periodic sync runs. Scheduled runs share the
// engine's run guard with manual triggers; when a run is already in flight
// the tick is skipped rather than queued.
package scheduler
