// Package api defines the transport DTOs and read/write services shared by
// the daemon HTTP surface and the CLI client.
package api
