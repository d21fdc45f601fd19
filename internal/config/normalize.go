package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeRender()
	c.normalizeExtraction()
	c.normalizeQuality()
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
	return nil
}

func (c *Config) normalizeRender() {
	c.Render.BaseURL = strings.TrimRight(strings.TrimSpace(c.Render.BaseURL), "/")
	if c.Render.BaseURL == "" {
		c.Render.BaseURL = defaultRenderBaseURL
	}
	if c.Render.TimeoutSeconds <= 0 {
		c.Render.TimeoutSeconds = defaultRenderTimeoutSeconds
	}
	if strings.TrimSpace(c.Render.UserAgent) == "" {
		c.Render.UserAgent = defaultRenderUserAgent
	}
}

func (c *Config) normalizeExtraction() {
	if c.Extraction.APIKey == "" {
		if value, ok := os.LookupEnv("CURATOR_EXTRACTION_API_KEY"); ok {
			c.Extraction.APIKey = value
		}
	}
	c.Extraction.BaseURL = strings.TrimSpace(c.Extraction.BaseURL)
	if c.Extraction.BaseURL == "" {
		c.Extraction.BaseURL = defaultExtractionBaseURL
	}
	c.Extraction.Model = strings.TrimSpace(c.Extraction.Model)
	if c.Extraction.Model == "" {
		c.Extraction.Model = defaultExtractionModel
	}
	if c.Extraction.TimeoutSeconds <= 0 {
		c.Extraction.TimeoutSeconds = defaultExtractionTimeout
	}
	if c.Extraction.MaxTextChars <= 0 {
		c.Extraction.MaxTextChars = defaultExtractionMaxChars
	}
}

func (c *Config) normalizeQuality() {
	if c.Quality.MaxPrice <= 0 {
		c.Quality.MaxPrice = defaultMaxPrice
	}
	if c.Quality.MaxFutureDays <= 0 {
		c.Quality.MaxFutureDays = defaultMaxFutureDays
	}
	if c.Quality.DateCoverageThreshold <= 0 || c.Quality.DateCoverageThreshold > 1 {
		c.Quality.DateCoverageThreshold = defaultDateCoverage
	}
	if len(c.Quality.Currencies) == 0 {
		c.Quality.Currencies = defaultCurrencies()
	}
	normalized := make([]string, 0, len(c.Quality.Currencies))
	for _, currency := range c.Quality.Currencies {
		currency = strings.ToUpper(strings.TrimSpace(currency))
		if currency != "" {
			normalized = append(normalized, currency)
		}
	}
	c.Quality.Currencies = normalized
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
