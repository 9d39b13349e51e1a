// Package matching classifies audiobook requests against library catalog
// candidates using fuzzy text comparison.
//
// Titles are compared with a token-set ratio so subtitle and series suffixes
// do not defeat a match; authors use a plain ratio. A candidate is a certain
// match when both title and author clear the configured threshold, a possible
// match when only the title does, and no match otherwise. Requests without an
// author are matched on title alone. All functions are pure and deterministic:
// ties between equally scored candidates are broken by catalog item ID
// ascending so repeated runs over identical inputs pick the same winner.
package matching
