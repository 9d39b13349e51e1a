// Package textutil provides text normalization and similarity scoring
// primitives for fuzzy matching.
//
// Normalization lowercases text, strips diacritics, replaces punctuation with
// spaces, and collapses whitespace so that minor formatting differences
// ("J.R.R. Tolkien" vs "J. R. R. Tolkien") do not affect comparison. Scoring
// offers a plain indel ratio plus a token-set ratio that handles subtitle and
// series suffixes gracefully: "The Hard Line: A Gray Man Novel" scores 1.0
// against "The Hard Line" where a plain ratio gives roughly half that.
package textutil
