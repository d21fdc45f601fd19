package config

const (
	defaultDataDir               = "~/.local/share/curator/data"
	defaultLogDir                = "~/.local/share/curator/logs"
	defaultRenderBaseURL         = "http://localhost:3000"
	defaultRenderTimeoutSeconds  = 30
	defaultRenderUserAgent       = "Mozilla/5.0 (compatible; CuratorScraper/1.0)"
	defaultExtractionBaseURL     = "https://openrouter.ai/api/v1"
	defaultExtractionModel       = "qwen/qwen-2.5-72b-instruct"
	defaultExtractionTitle       = "Curator Event Extraction"
	defaultExtractionTimeout     = 120
	defaultExtractionMaxChars    = 60000
	defaultMaxPrice              = 500
	defaultMaxFutureDays         = 365
	defaultDateCoverage          = 0.95
	defaultWorkerCount           = 2
	defaultWeeklyCron            = "0 2 * * MON"
	defaultYearlyCron            = "0 3 1 1 *"
	defaultWeeklySpreadMinutes   = 2
	defaultYearlySpreadMinutes   = 5
	defaultRetryMaxAttempts      = 3
	defaultRetryBackoffMinutes   = 5
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

func defaultCurrencies() []string {
	return []string{"EUR", "USD", "CAD", "CHF", "GBP"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Render: Render{
			BaseURL:        defaultRenderBaseURL,
			TimeoutSeconds: defaultRenderTimeoutSeconds,
			UserAgent:      defaultRenderUserAgent,
		},
		Extraction: Extraction{
			BaseURL:        defaultExtractionBaseURL,
			Model:          defaultExtractionModel,
			Title:          defaultExtractionTitle,
			TimeoutSeconds: defaultExtractionTimeout,
			MaxTextChars:   defaultExtractionMaxChars,
		},
		Quality: Quality{
			MaxPrice:              defaultMaxPrice,
			Currencies:            defaultCurrencies(),
			MaxFutureDays:         defaultMaxFutureDays,
			DateCoverageThreshold: defaultDateCoverage,
		},
		Workflow: Workflow{
			WorkerCount:         defaultWorkerCount,
			WeeklyCron:          defaultWeeklyCron,
			YearlyCron:          defaultYearlyCron,
			WeeklySpreadMinutes: defaultWeeklySpreadMinutes,
			YearlySpreadMinutes: defaultYearlySpreadMinutes,
			RetryMaxAttempts:    defaultRetryMaxAttempts,
			RetryBackoffMinutes: defaultRetryBackoffMinutes,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
