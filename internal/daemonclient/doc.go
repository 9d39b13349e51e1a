// Package daemonclient is the HTTP client the CLI uses to talk to a running
// requestarr daemon.
package daemonclient
