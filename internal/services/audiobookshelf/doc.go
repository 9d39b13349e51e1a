// Package audiobookshelf provides an HTTP client for the Audiobookshelf
// REST API. The sync engine uses it to fetch the full book catalog across
// all libraries; the daemon and CLI use it for reachability status and
// catalog search.
package audiobookshelf
