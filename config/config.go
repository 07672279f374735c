package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"sjsage522/retroconsolas/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// Search API (primary strategy)
	APIBaseURL      string
	Latitude        float64
	Longitude       float64
	DistanceKm      int
	PageSize        int
	MaxPagesPerQry  int
	RequestTimeout  time.Duration
	RequestDelayMin time.Duration
	RequestDelayMax time.Duration
	APICacheTTL     time.Duration

	// Rendered search page (fallback strategy)
	SearchPageURL   string
	ChromeBin       string
	MaxScrolls      int
	ScrollPauseMin  time.Duration
	ScrollPauseMax  time.Duration
	RenderWaitMin   time.Duration
	RenderWaitMax   time.Duration
	ConsentTimeout  time.Duration
	BrowserDisabled bool

	// Output
	DataDir      string
	ErrorLogFile string
	ConsolesFile string

	// Optional SQL mirror of the history
	StatsDBDriver string
	StatsDBDSN    string

	// Memcache configuration
	MemcacheAddr string

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamCount     int
	RedisStreamMaxLength int

	// Cron spec; empty means a single run
	Schedule string

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		APIBaseURL:      getEnv("WALLAPOP_API_BASE", "https://api.wallapop.com/api/v3"),
		Latitude:        getEnvFloat("SEARCH_LATITUDE", 40.4168),
		Longitude:       getEnvFloat("SEARCH_LONGITUDE", -3.7038),
		DistanceKm:      getEnvInt("SEARCH_DISTANCE_KM", 200),
		PageSize:        getEnvInt("API_PAGE_SIZE", 20),
		MaxPagesPerQry:  getEnvInt("MAX_PAGES_PER_QUERY", 5),
		RequestTimeout:  getEnvSeconds("REQUEST_TIMEOUT_SECONDS", 30),
		RequestDelayMin: getEnvSeconds("REQUEST_DELAY_MIN_SECONDS", 2),
		RequestDelayMax: getEnvSeconds("REQUEST_DELAY_MAX_SECONDS", 5),
		APICacheTTL:     getEnvSeconds("API_CACHE_TTL_SECONDS", 3600),

		SearchPageURL:   getEnv("WALLAPOP_SEARCH_URL", "https://es.wallapop.com/app/search"),
		ChromeBin:       getEnv("CHROME_BIN", ""),
		MaxScrolls:      getEnvInt("MAX_SCROLLS", 8),
		ScrollPauseMin:  getEnvSeconds("SCROLL_PAUSE_MIN_SECONDS", 1.5),
		ScrollPauseMax:  getEnvSeconds("SCROLL_PAUSE_MAX_SECONDS", 3),
		RenderWaitMin:   getEnvSeconds("RENDER_WAIT_MIN_SECONDS", 3),
		RenderWaitMax:   getEnvSeconds("RENDER_WAIT_MAX_SECONDS", 5),
		ConsentTimeout:  getEnvSeconds("CONSENT_TIMEOUT_SECONDS", 5),
		BrowserDisabled: getEnv("BROWSER_DISABLED", "false") == "true",

		DataDir:      getEnv("DATA_DIR", "consolas-retro/data"),
		ErrorLogFile: getEnv("ERROR_LOG_FILE", "error.log"),
		ConsolesFile: getEnv("CONSOLES_FILE", ""),

		StatsDBDriver: getEnv("STATS_DB_DRIVER", ""),
		StatsDBDSN:    getEnv("STATS_DB_DSN", ""),

		MemcacheAddr: getEnv("MEMCACHE_ADDR", ""),

		RedisAddr:            getEnv("REDIS_ADDR", ""),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "retro_snapshots"),
		RedisStreamCount:     getEnvInt("REDIS_STREAM_COUNT", 1),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 500),

		Schedule: getEnv("SCHEDULE", ""),

		Environment: getEnv("RETRO_ENVIRONMENT", "development"),
	}
}

// Validate checks the settings that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.NewConfiguration("WALLAPOP_API_BASE must not be empty", nil)
	}
	if c.SearchPageURL == "" {
		return errors.NewConfiguration("WALLAPOP_SEARCH_URL must not be empty", nil)
	}
	if c.PageSize <= 0 || c.MaxPagesPerQry <= 0 {
		return errors.NewConfiguration(
			fmt.Sprintf("page size (%d) and max pages (%d) must be positive", c.PageSize, c.MaxPagesPerQry), nil)
	}
	if c.RequestTimeout <= 0 {
		return errors.NewConfiguration("REQUEST_TIMEOUT_SECONDS must be positive", nil)
	}
	if c.RequestDelayMin < 0 || c.RequestDelayMax < c.RequestDelayMin {
		return errors.NewConfiguration("request delay bounds are inverted or negative", nil)
	}
	if c.ScrollPauseMin < 0 || c.ScrollPauseMax < c.ScrollPauseMin {
		return errors.NewConfiguration("scroll pause bounds are inverted or negative", nil)
	}
	if c.RenderWaitMin < 0 || c.RenderWaitMax < c.RenderWaitMin {
		return errors.NewConfiguration("render wait bounds are inverted or negative", nil)
	}
	if c.DataDir == "" {
		return errors.NewConfiguration("DATA_DIR must not be empty", nil)
	}
	switch c.StatsDBDriver {
	case "":
	case "postgres", "sqlite":
		if c.StatsDBDSN == "" {
			return errors.NewConfiguration("STATS_DB_DSN is required when STATS_DB_DRIVER is set", nil)
		}
	default:
		return errors.NewConfiguration(fmt.Sprintf("unsupported STATS_DB_DRIVER %q", c.StatsDBDriver), nil)
	}
	if c.RedisAddr != "" && c.RedisStreamCount <= 0 {
		return errors.NewConfiguration("REDIS_STREAM_COUNT must be positive", nil)
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return errors.NewConfiguration(fmt.Sprintf("invalid SCHEDULE %q", c.Schedule), err)
		}
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil {
		return defaultValue
	}
	return f
}

// getEnvSeconds reads a possibly fractional number of seconds
func getEnvSeconds(key string, defaultSeconds float64) time.Duration {
	return time.Duration(getEnvFloat(key, defaultSeconds) * float64(time.Second))
}
