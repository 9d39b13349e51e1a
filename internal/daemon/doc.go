// Package daemon hosts the long-running requestarr process: it enforces
// single-instance execution with a lock file, runs the sync scheduler, and
// serves the HTTP API the CLI talks to.
package daemon
