package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Threshold < 0 || c.Sync.Threshold > 1 {
		return errors.New("sync.threshold must be between 0 and 1")
	}
	if c.Sync.IntervalHours < 1 {
		return errors.New("sync.interval_hours must be at least 1")
	}
	return nil
}

func (c *Config) validateSearch() error {
	if !c.Search.AudibleEnabled && !c.Search.StorytelEnabled && !c.Search.OpenLibraryEnabled {
		return errors.New("at least one search provider must be enabled")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.APIBind == "" {
		return errors.New("paths.api_bind must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind is not a valid host:port: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
