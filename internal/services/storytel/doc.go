// Package storytel queries Storytel's public search API as an additional
// metadata provider for regions Audible does not cover.
package storytel
