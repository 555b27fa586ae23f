// -----------------------------------------------------------------------
// Configuration - TOML file loading with environment variable overrides
// -----------------------------------------------------------------------

package common

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config is the root configuration structure for the Censeo service
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Logging     LoggingConfig `toml:"logging"`
	Storage     StorageConfig `toml:"storage"`
	Crawler     CrawlerConfig `toml:"crawler"`
	Scoring     ScoringConfig `toml:"scoring"`
	Jobs        JobsConfig    `toml:"jobs"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level"`       // Log level: debug, info, warn, error
	Format     string   `toml:"format"`      // Log format: json, text
	Output     []string `toml:"output"`      // Output destinations: console, file
	TimeFormat string   `toml:"time_format"` // Timestamp format for console output
}

// StorageConfig contains BadgerDB storage configuration
type StorageConfig struct {
	Dir            string `toml:"dir"`              // Directory for the badger database
	ResetOnStartup bool   `toml:"reset_on_startup"` // Wipe the database on startup (development)
}

// CrawlerConfig contains crawl engine configuration.
// These are service-level defaults; individual crawl requests may
// override depth, page count and rate within their allowed ranges.
type CrawlerConfig struct {
	MaxConcurrent   int           `toml:"max_concurrent"`    // Hard cap on per-job concurrent fetches
	MaxDepth        int           `toml:"max_depth"`         // Default maximum crawl depth
	RequestTimeout  time.Duration `toml:"request_timeout"`   // HTTP fetch timeout
	MaxRetries      int           `toml:"max_retries"`       // Retry attempts on transport errors
	RetryDelay      time.Duration `toml:"retry_delay"`       // Base delay for retry backoff
	UserAgent       string        `toml:"user_agent"`        // User-Agent header sent with every request
	RateLimitRPS    float64       `toml:"rate_limit_rps"`    // Default per-host requests per second
	JSRenderTimeout time.Duration `toml:"js_render_timeout"` // Browser navigation timeout for JS rendering
	RobotsTimeout   time.Duration `toml:"robots_timeout"`    // Timeout for robots.txt fetches
}

// ScoringConfig contains the five dimension weights used to combine
// per-dimension scores into the overall score. Weights must sum to 1.0.
type ScoringConfig struct {
	TechnicalWeight    float64 `toml:"technical_weight"`
	ContentWeight      float64 `toml:"content_weight"`
	AuthorityWeight    float64 `toml:"authority_weight"`
	LinkingWeight      float64 `toml:"linking_weight"`
	AIVisibilityWeight float64 `toml:"ai_visibility_weight"`
}

// JobsConfig contains background job execution configuration
type JobsConfig struct {
	MaxConcurrent     int           `toml:"max_concurrent"`     // Maximum crawl jobs running simultaneously
	WatchdogSchedule  string        `toml:"watchdog_schedule"`  // Cron schedule for the stuck-job watchdog
	SoftTimeLimit     time.Duration `toml:"soft_time_limit"`    // Running jobs older than this are cancelled
	HardTimeLimit     time.Duration `toml:"hard_time_limit"`    // Running jobs older than this are failed
	PendingRecheck    time.Duration `toml:"pending_recheck"`    // Interval for re-dispatching pending jobs
	ShutdownGracetime time.Duration `toml:"shutdown_gracetime"` // Time allowed for jobs to stop on shutdown
}

// NewDefaultConfig returns a config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8000,
			Host: "0.0.0.0",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"console", "file"},
			TimeFormat: "15:04:05",
		},
		Storage: StorageConfig{
			Dir:            "./data",
			ResetOnStartup: false,
		},
		Crawler: CrawlerConfig{
			MaxConcurrent:   100,
			MaxDepth:        10,
			RequestTimeout:  30 * time.Second,
			MaxRetries:      3,
			RetryDelay:      1 * time.Second,
			UserAgent:       "SEOBot/1.0 (+https://yourdomain.com/bot)",
			RateLimitRPS:    10,
			JSRenderTimeout: 15 * time.Second,
			RobotsTimeout:   10 * time.Second,
		},
		Scoring: ScoringConfig{
			TechnicalWeight:    0.35,
			ContentWeight:      0.30,
			AuthorityWeight:    0.20,
			LinkingWeight:      0.10,
			AIVisibilityWeight: 0.05,
		},
		Jobs: JobsConfig{
			MaxConcurrent:     4,
			WatchdogSchedule:  "* * * * *",
			SoftTimeLimit:     2 * time.Hour,
			HardTimeLimit:     2*time.Hour + 5*time.Minute,
			PendingRecheck:    5 * time.Second,
			ShutdownGracetime: 30 * time.Second,
		},
	}
}

// LoadFromFile loads configuration from a single TOML file merged over defaults
func LoadFromFile(path string) (*Config, error) {
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple TOML files merged over
// defaults. Later files override earlier files, environment variables
// override everything.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment (highest priority: CENSEO_ENV, fallback: GO_ENV)
	if env := os.Getenv("CENSEO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Logging configuration
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = strings.ToLower(level)
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	// Storage configuration
	if dir := os.Getenv("BADGER_DIR"); dir != "" {
		config.Storage.Dir = dir
	}

	// Crawler configuration. Timeout variables carry bare numbers for
	// compatibility with existing deployments: CRAWLER_REQUEST_TIMEOUT
	// is seconds, CRAWLER_JS_RENDER_TIMEOUT is milliseconds.
	if v := os.Getenv("CRAWLER_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Crawler.MaxConcurrent = n
		}
	}
	if v := os.Getenv("CRAWLER_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			config.Crawler.MaxDepth = n
		}
	}
	if v := os.Getenv("CRAWLER_REQUEST_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Crawler.RequestTimeout = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("CRAWLER_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			config.Crawler.MaxRetries = n
		}
	}
	if v := os.Getenv("CRAWLER_RETRY_DELAY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Crawler.RetryDelay = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("CRAWLER_USER_AGENT"); v != "" {
		config.Crawler.UserAgent = v
	}
	if v := os.Getenv("CRAWLER_RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			config.Crawler.RateLimitRPS = f
		}
	}
	if v := os.Getenv("CRAWLER_JS_RENDER_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Crawler.JSRenderTimeout = time.Duration(n) * time.Millisecond
		}
	}

	// Scoring weights
	if v := os.Getenv("SCORE_TECHNICAL_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Scoring.TechnicalWeight = f
		}
	}
	if v := os.Getenv("SCORE_CONTENT_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Scoring.ContentWeight = f
		}
	}
	if v := os.Getenv("SCORE_AUTHORITY_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Scoring.AuthorityWeight = f
		}
	}
	if v := os.Getenv("SCORE_LINKING_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Scoring.LinkingWeight = f
		}
	}
	if v := os.Getenv("SCORE_AI_VISIBILITY_WEIGHT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Scoring.AIVisibilityWeight = f
		}
	}

	// Jobs configuration
	if v := os.Getenv("JOBS_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.Jobs.MaxConcurrent = n
		}
	}
	if v := os.Getenv("JOBS_SOFT_TIME_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.Jobs.SoftTimeLimit = d
		}
	}
	if v := os.Getenv("JOBS_HARD_TIME_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			config.Jobs.HardTimeLimit = d
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
// Flags take precedence over both config file and environment variables.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate checks the configuration for internal consistency
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Crawler.MaxConcurrent < 1 {
		return fmt.Errorf("crawler max_concurrent must be at least 1, got %d", c.Crawler.MaxConcurrent)
	}
	if c.Crawler.RateLimitRPS <= 0 {
		return fmt.Errorf("crawler rate_limit_rps must be positive, got %v", c.Crawler.RateLimitRPS)
	}
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if err := ValidateJobSchedule(c.Jobs.WatchdogSchedule); err != nil {
		return fmt.Errorf("invalid watchdog schedule: %w", err)
	}
	if c.Jobs.HardTimeLimit < c.Jobs.SoftTimeLimit {
		return fmt.Errorf("jobs hard_time_limit %v is shorter than soft_time_limit %v", c.Jobs.HardTimeLimit, c.Jobs.SoftTimeLimit)
	}
	return nil
}

// Validate checks that the five dimension weights are each within [0,1]
// and sum to 1.0 within a tolerance of 0.001
func (s *ScoringConfig) Validate() error {
	weights := map[string]float64{
		"technical_weight":     s.TechnicalWeight,
		"content_weight":       s.ContentWeight,
		"authority_weight":     s.AuthorityWeight,
		"linking_weight":       s.LinkingWeight,
		"ai_visibility_weight": s.AIVisibilityWeight,
	}
	sum := 0.0
	for name, w := range weights {
		if w < 0 || w > 1 {
			return fmt.Errorf("scoring %s must be within [0,1], got %v", name, w)
		}
		sum += w
	}
	if math.Abs(sum-1.0) > 0.001 {
		return fmt.Errorf("scoring weights must sum to 1.0, got %v", sum)
	}
	return nil
}

// ValidateJobSchedule validates a standard 5-field cron expression
func ValidateJobSchedule(schedule string) error {
	if strings.TrimSpace(schedule) == "" {
		return fmt.Errorf("schedule is empty")
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}
	return nil
}

// IsProduction returns true when running in a production environment
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "production" || env == "prod"
}
