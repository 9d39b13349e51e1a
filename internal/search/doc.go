// Package search aggregates external audiobook metadata providers. Providers
// are consulted in configuration order and the first one returning results
// wins; provider failures fall through to the next provider.
package search
