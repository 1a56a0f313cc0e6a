package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var ErrMissingAPIKey = errors.New("FMP_API_KEY is not set")

// Config is read once at startup and not modified afterwards.
type Config struct {
	FMPAPIKey  string `yaml:"-"`
	FMPBaseURL string `yaml:"fmp_base_url"`

	PriceProvider string `yaml:"price_provider"`

	PriceDropThreshold  float64 `yaml:"price_drop_threshold"`
	PriceLookbackDays   int     `yaml:"price_lookback_days"`
	InsiderLookbackDays int     `yaml:"insider_lookback_days"`
	TopN                int     `yaml:"top_n"`

	CacheEnabled bool          `yaml:"cache_enabled"`
	CacheBackend string        `yaml:"cache_backend"`
	CacheDir     string        `yaml:"cache_dir"`
	CacheMaxAge  time.Duration `yaml:"cache_max_age"`
	ResultsDir   string        `yaml:"results_dir"`
	PlotsDir     string        `yaml:"plots_dir"`

	Workers           int           `yaml:"workers"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
	LogFile   string `yaml:"log_file"`

	TraceEnabled bool `yaml:"trace_enabled"`
}

func Default() Config {
	return Config{
		FMPBaseURL:          "https://financialmodelingprep.com/stable",
		PriceProvider:       "fmp",
		PriceDropThreshold:  -10,
		PriceLookbackDays:   120,
		InsiderLookbackDays: 20,
		TopN:                10,
		CacheEnabled:        true,
		CacheBackend:        "file",
		CacheDir:            "cache",
		ResultsDir:          "results",
		PlotsDir:            "plots",
		Workers:             4,
		RequestsPerSecond:   5,
		HTTPTimeout:         30 * time.Second,
		LogLevel:            "info",
		LogFormat:           "pretty",
	}
}

// Load reads .env, then the YAML file named by SCREENER_CONFIG if any, then
// environment variables. A missing API key is an error.
func Load() (*Config, error) {
	godotenv.Load(".env")

	cfg := Default()
	if path := Get("SCREENER_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.FMPAPIKey = Get("FMP_API_KEY")
	setString(&c.FMPBaseURL, "FMP_BASE_URL")
	setString(&c.PriceProvider, "PRICE_PROVIDER")
	setString(&c.CacheBackend, "CACHE_BACKEND")
	setString(&c.CacheDir, "CACHE_DIR")
	setString(&c.ResultsDir, "RESULTS_DIR")
	setString(&c.PlotsDir, "PLOTS_DIR")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.LogFile, "LOG_FILE")

	if v := Get("CACHE_ENABLED"); v != "" {
		c.CacheEnabled = GetBool("CACHE_ENABLED", "true")
	}
	if v := Get("TRACE_ENABLED"); v != "" {
		c.TraceEnabled = GetBool("TRACE_ENABLED", "false")
	}

	var err error
	if c.PriceDropThreshold, err = getFloat("PRICE_DROP_PERCENT", c.PriceDropThreshold); err != nil {
		return err
	}
	if c.RequestsPerSecond, err = getFloat("FMP_REQUESTS_PER_SECOND", c.RequestsPerSecond); err != nil {
		return err
	}
	if c.PriceLookbackDays, err = getInt("PRICE_LOOKBACK_DAYS", c.PriceLookbackDays); err != nil {
		return err
	}
	if c.InsiderLookbackDays, err = getInt("INSIDER_LOOKBACK_DAYS", c.InsiderLookbackDays); err != nil {
		return err
	}
	if c.TopN, err = getInt("TOP_N", c.TopN); err != nil {
		return err
	}
	if c.Workers, err = getInt("WORKERS", c.Workers); err != nil {
		return err
	}
	if c.HTTPTimeout, err = getDuration("HTTP_TIMEOUT", c.HTTPTimeout); err != nil {
		return err
	}
	if c.CacheMaxAge, err = getDuration("CACHE_MAX_AGE", c.CacheMaxAge); err != nil {
		return err
	}
	return nil
}

func (c *Config) Validate() error {
	if c.FMPAPIKey == "" {
		return ErrMissingAPIKey
	}
	if c.PriceDropThreshold > 0 {
		return fmt.Errorf("price drop threshold must be <= 0, got %g", c.PriceDropThreshold)
	}
	if c.PriceLookbackDays <= 0 || c.InsiderLookbackDays <= 0 {
		return fmt.Errorf("lookback windows must be positive")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	switch c.CacheBackend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	switch c.PriceProvider {
	case "fmp", "yahoo":
	default:
		return fmt.Errorf("unknown price provider %q", c.PriceProvider)
	}
	return nil
}

func Get(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func GetBool(key, defaultVal string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		v = defaultVal
	}
	return v == "1" || v == "true" || v == "yes"
}

func setString(dst *string, key string) {
	if v := Get(key); v != "" {
		*dst = v
	}
}

func getFloat(key string, def float64) (float64, error) {
	v := Get(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func getInt(key string, def int) (int, error) {
	v := Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := Get(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
