package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeABS()
	c.normalizeSearch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeABS() {
	c.ABS.URL = strings.TrimRight(strings.TrimSpace(c.ABS.URL), "/")
	c.ABS.APIToken = strings.TrimSpace(c.ABS.APIToken)
	if c.ABS.RequestTimeout <= 0 {
		c.ABS.RequestTimeout = defaultABSTimeout
	}
}

func (c *Config) normalizeSearch() {
	regions := make([]string, 0, len(c.Search.AudibleRegions))
	for _, region := range c.Search.AudibleRegions {
		region = strings.ToLower(strings.TrimSpace(region))
		if region != "" {
			regions = append(regions, region)
		}
	}
	if len(regions) == 0 {
		regions = []string{"us"}
	}
	c.Search.AudibleRegions = regions
	c.Search.AudibleLanguage = strings.ToLower(strings.TrimSpace(c.Search.AudibleLanguage))
	c.Search.StorytelLocale = strings.ToLower(strings.TrimSpace(c.Search.StorytelLocale))
	if c.Search.StorytelLocale == "" {
		c.Search.StorytelLocale = defaultStorytelLocale
	}
	if c.Search.RequestTimeout <= 0 {
		c.Search.RequestTimeout = defaultSearchTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
