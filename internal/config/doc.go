// Package config loads, normalizes, and validates requestarr configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and validates everything eagerly so startup
// fails fast on bad input. The Config type centralizes every knob the daemon
// and CLI need: Audiobookshelf credentials, sync threshold and cadence, search
// provider selection, and data/log locations.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
