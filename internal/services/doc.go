// Package services provides shared error classification and context plumbing
// for requestarr components.
//
// The sentinel errors defined here let HTTP clients, the sync engine, and the
// daemon API agree on failure semantics without inspecting error strings:
// configuration problems fail fast, transient catalog failures are recorded
// and retried on the next scheduled run, and the run-level concurrency guard
// is surfaced as its own condition.
package services
