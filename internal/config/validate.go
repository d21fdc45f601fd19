package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateExtraction(); err != nil {
		return err
	}
	if err := c.validateQuality(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRender() error {
	if strings.TrimSpace(c.Render.BaseURL) == "" {
		return errors.New("render.base_url must be set")
	}
	if !strings.HasPrefix(c.Render.BaseURL, "http://") && !strings.HasPrefix(c.Render.BaseURL, "https://") {
		return fmt.Errorf("render.base_url must be an http(s) URL, got %q", c.Render.BaseURL)
	}
	return nil
}

func (c *Config) validateExtraction() error {
	if strings.TrimSpace(c.Extraction.APIKey) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/curator/config.toml"
		}
		return fmt.Errorf("extraction.api_key is required. Set CURATOR_EXTRACTION_API_KEY env var or edit %s (create with 'curator config init')", defaultPath)
	}
	if strings.TrimSpace(c.Extraction.Model) == "" {
		return errors.New("extraction.model must be set")
	}
	return nil
}

func (c *Config) validateQuality() error {
	if len(c.Quality.Currencies) == 0 {
		return errors.New("quality.currencies must list at least one currency code")
	}
	if c.Quality.DateCoverageThreshold <= 0 || c.Quality.DateCoverageThreshold > 1 {
		return errors.New("quality.date_coverage_threshold must be in (0, 1]")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"render.timeout_seconds":         c.Render.TimeoutSeconds,
		"extraction.timeout_seconds":     c.Extraction.TimeoutSeconds,
		"workflow.worker_count":          c.Workflow.WorkerCount,
		"workflow.retry_max_attempts":    c.Workflow.RetryMaxAttempts,
		"workflow.retry_backoff_minutes": c.Workflow.RetryBackoffMinutes,
	}); err != nil {
		return err
	}
	if c.Workflow.WeeklySpreadMinutes < 0 || c.Workflow.YearlySpreadMinutes < 0 {
		return errors.New("workflow spread minutes must not be negative")
	}
	if strings.TrimSpace(c.Workflow.WeeklyCron) == "" {
		return errors.New("workflow.weekly_cron must be set")
	}
	if strings.TrimSpace(c.Workflow.YearlyCron) == "" {
		return errors.New("workflow.yearly_cron must be set")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
