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

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Blob      BlobConfig      `yaml:"blob"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Sync      SyncConfig      `yaml:"sync"`
	Ratings   RatingsConfig   `yaml:"ratings"`
	Insights  InsightsConfig  `yaml:"insights"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
	AllowedOrigin   string   `yaml:"allowed_origin"`
}

// StorageConfig locates the local SQLite key/value database.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// BlobConfig contains S3-compatible document storage settings.
// When Bucket is empty the server keeps documents in its local database.
type BlobConfig struct {
	Bucket    string `yaml:"bucket"`
	Endpoint  string `yaml:"endpoint"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	AccessKey string `yaml:"-"` // env-only
	SecretKey string `yaml:"-"` // env-only
	UseSSL    *bool  `yaml:"use_ssl"`
}

// RateLimitConfig controls the per-client fixed window.
// A non-empty RedisURL shares the window across server instances.
type RateLimitConfig struct {
	Limit    int      `yaml:"limit"`
	Window   Duration `yaml:"window"`
	RedisURL string   `yaml:"redis_url"`
}

// SyncConfig contains client-side sync settings.
type SyncConfig struct {
	RemoteURL string   `yaml:"remote_url"`
	Token     string   `yaml:"-"` // env-only
	Timeout   Duration `yaml:"timeout"`
	Debounce  Duration `yaml:"debounce"`
	Interval  Duration `yaml:"interval"`
}

// RatingsConfig controls week boundaries and the accepted metric ids.
type RatingsConfig struct {
	WeekStart string   `yaml:"week_start"`
	Location  string   `yaml:"location"`
	Metrics   []string `yaml:"metrics"`
}

// InsightsConfig contains AI insight generation settings.
type InsightsConfig struct {
	APIKey  string `yaml:"-"` // env-only, never in YAML
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// AuthConfig contains the shared secret guarding the remote endpoints.
type AuthConfig struct {
	Password string `yaml:"-"` // env-only, never in YAML
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// WeekStartDay parses Ratings.WeekStart. Validation guarantees it is known.
func (c *Config) WeekStartDay() time.Weekday {
	d, _ := parseWeekday(c.Ratings.WeekStart)
	return d
}

// DevMode reports whether LQT_DEV_MODE is enabled.
func DevMode() bool {
	return os.Getenv("LQT_DEV_MODE") == "true"
}

// Load loads configuration with precedence: defaults → YAML file → .env → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("LQT_CONFIG_PATH", "config/lqt.yaml")

	// Missing file is not an error
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	if err := loadDotEnv(getEnv("LQT_ENV_FILE", ".env")); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used by tests and callers with an explicit config path.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
			AllowedOrigin:   "*",
		},
		Storage: StorageConfig{
			Path: "data/lqt.db",
		},
		Blob: BlobConfig{
			Prefix: "lqt/",
		},
		RateLimit: RateLimitConfig{
			Limit:  60,
			Window: Duration(60 * time.Second),
		},
		Sync: SyncConfig{
			Timeout:  Duration(30 * time.Second),
			Debounce: Duration(2 * time.Second),
			Interval: Duration(5 * time.Minute),
		},
		Ratings: RatingsConfig{
			WeekStart: "monday",
			Location:  "Local",
		},
		Insights: InsightsConfig{
			Model: "gpt-4o-mini",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// loadDotEnv populates the process environment from a dotenv file.
// Variables already set in the environment win over the file.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading env file: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	// Server
	if v := os.Getenv("LQT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LQT_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ShutdownTimeout = Duration(d)
		}
	}
	if v := os.Getenv("LQT_ALLOWED_ORIGIN"); v != "" {
		cfg.Server.AllowedOrigin = v
	}

	// Storage
	if v := os.Getenv("LQT_DB_PATH"); v != "" {
		cfg.Storage.Path = v
	}

	// Blob
	if v := os.Getenv("LQT_BLOB_BUCKET"); v != "" {
		cfg.Blob.Bucket = v
	}
	if v := os.Getenv("LQT_S3_ENDPOINT"); v != "" {
		cfg.Blob.Endpoint = v
	}
	if v := os.Getenv("LQT_S3_REGION"); v != "" {
		cfg.Blob.Region = v
	}
	if v := os.Getenv("LQT_S3_ACCESS_KEY"); v != "" {
		cfg.Blob.AccessKey = v
	}
	if v := os.Getenv("LQT_S3_SECRET_KEY"); v != "" {
		cfg.Blob.SecretKey = v
	}
	if v := os.Getenv("LQT_S3_USE_SSL"); v != "" {
		b := v == "true" || v == "1"
		cfg.Blob.UseSSL = &b
	}

	// Rate limit
	if v := os.Getenv("LQT_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimit.Limit = n
		}
	}
	if v := os.Getenv("LQT_RATE_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.RateLimit.Window = Duration(d)
		}
	}
	if v := os.Getenv("LQT_REDIS_URL"); v != "" {
		cfg.RateLimit.RedisURL = v
	}

	// Sync
	if v := os.Getenv("LQT_REMOTE_URL"); v != "" {
		cfg.Sync.RemoteURL = v
	}
	if v := os.Getenv("LQT_SYNC_TOKEN"); v != "" {
		cfg.Sync.Token = v
	}
	if v := os.Getenv("LQT_SYNC_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sync.Interval = Duration(d)
		}
	}

	// Ratings
	if v := os.Getenv("LQT_WEEK_START"); v != "" {
		cfg.Ratings.WeekStart = v
	}
	if v := os.Getenv("LQT_TIMEZONE"); v != "" {
		cfg.Ratings.Location = v
	}

	// Insights (OPENAI_API_KEY is industry convention)
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Insights.APIKey = v
	}
	if v := os.Getenv("LQT_INSIGHTS_MODEL"); v != "" {
		cfg.Insights.Model = v
	}

	// Auth
	if v := os.Getenv("APP_PASSWORD"); v != "" {
		cfg.Auth.Password = v
	}

	// Log
	if v := os.Getenv("LQT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LQT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// validate checks value ranges. Secrets are checked by RequireServer,
// since most CLI commands never need them.
func (c *Config) validate() error {
	if _, ok := parseWeekday(c.Ratings.WeekStart); !ok {
		return fmt.Errorf("ratings.week_start %q is not a weekday", c.Ratings.WeekStart)
	}
	if _, err := time.LoadLocation(c.Ratings.Location); err != nil {
		return fmt.Errorf("ratings.location %q: %w", c.Ratings.Location, err)
	}
	if c.RateLimit.Limit <= 0 {
		return errors.New("rate_limit.limit must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("rate_limit.window must be positive")
	}
	if c.Blob.Bucket != "" && c.Blob.Endpoint == "" {
		return errors.New("blob.endpoint is required when blob.bucket is set")
	}
	return nil
}

// RequireServer checks the settings `serve` cannot run without.
// In dev mode (LQT_DEV_MODE=true), the password check is skipped.
func (c *Config) RequireServer() error {
	if DevMode() {
		return nil
	}
	if c.Auth.Password == "" {
		return errors.New("APP_PASSWORD is required")
	}
	return nil
}

func parseWeekday(s string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(s, d.String()) {
			return d, true
		}
	}
	return time.Monday, false
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
