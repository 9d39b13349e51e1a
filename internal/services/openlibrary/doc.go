// Package openlibrary queries the Open Library search API as a fallback
// metadata provider when Audible is disabled or returns nothing.
package openlibrary
