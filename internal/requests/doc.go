// Package requests manages persistence for audiobook requests and sync run
// logs, backed by SQLite.
//
// The store owns the request status state machine: open statuses (pending,
// in_progress, possible_match) are eligible for automatic resolution by the
// sync engine, fulfilled is terminal for the engine, and rejected/cancelled
// are reachable only through manual manager edits. Sync logs are append-only
// audit records and are never mutated after insertion. One sync run's request
// mutations and its log commit together in a single transaction.
package requests
