// Package audible searches the Audible catalog API and enriches results
// with full metadata from the community audnex.us API, mirroring the lookup
// flow Audiobookshelf itself uses.
package audible
