// Package syncer reconciles open audiobook requests against the
// Audiobookshelf catalog. A run fetches the full catalog, scores every
// eligible request against every item, applies the resulting status
// transitions, and records an immutable sync log, all inside a single
// store transaction. Only one run may be in flight at a time.
package syncer
