package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for TourForge Core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Database   DatabaseConfig   `yaml:"database"`
	Cache      CacheConfig      `yaml:"cache"`
	GenService GenServiceConfig `yaml:"genservice"`
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	API        APIConfig        `yaml:"api"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServiceConfig contains deployment-specific identification.
type ServiceConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// CacheConfig contains settings for the generation-result cache.
//
// The cache is a key→URL store: keys are deterministic digests of the
// generation inputs, values are image URLs already produced for those inputs.
// There is no invalidation beyond TTL expiry; key equality is the only
// freshness guarantee.
type CacheConfig struct {
	// Backend selects the store implementation: "redis" or "memory".
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
	// TTL is the cache entry lifetime in hours. 0 means no expiry.
	TTLHours int `yaml:"ttl_hours"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// GenServiceConfig contains settings for the external generative-image service.
type GenServiceConfig struct {
	// BaseURL is the root URL of the generation service API.
	BaseURL string `yaml:"base_url"`

	// Token authenticates requests. Always set via TOURFORGE_GENSERVICE_TOKEN
	// in production; never commit it to config files.
	Token string `yaml:"token"`

	// Model identifiers for each job kind.
	AnalyzeModel   string `yaml:"analyze_model"`
	DollhouseModel string `yaml:"dollhouse_model"`
	ViewpointModel string `yaml:"viewpoint_model"`

	// SubmitTimeout is the HTTP timeout for the submission call (seconds).
	SubmitTimeout int `yaml:"submit_timeout"`

	// PollInterval is the delay between job status polls (seconds).
	PollInterval int `yaml:"poll_interval"`

	// MaxPollAttempts bounds the polling loop. A job still queued or running
	// after this many polls is reported as timed out on our side; the remote
	// job is not cancelled.
	MaxPollAttempts int `yaml:"max_poll_attempts"`

	// Retry settings applied around each full submit+poll cycle.
	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig contains bounded-retry settings for generation calls.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	// PerAttemptTimeout is the deadline for a single attempt (seconds).
	PerAttemptTimeout int `yaml:"per_attempt_timeout"`
	// BaseDelay seeds the linear backoff between attempts (milliseconds).
	BaseDelay int `yaml:"base_delay_ms"`
}

// PipelineConfig contains tour pipeline settings.
type PipelineConfig struct {
	// MaxConcurrentViewpoints bounds the viewpoint fan-out. 0 means unbounded.
	MaxConcurrentViewpoints int `yaml:"max_concurrent_viewpoints"`

	// DollhouseEnabled toggles the cosmetic dollhouse stage.
	DollhouseEnabled bool `yaml:"dollhouse_enabled"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// TelemetryConfig contains InfluxDB connection settings for stage telemetry.
type TelemetryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: TOURFORGE_SECTION_KEY
// For example: TOURFORGE_DATABASE_PATH, TOURFORGE_GENSERVICE_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Service: ServiceConfig{
			ID:   "tourforge-001",
			Name: "TourForge",
		},
		Database: DatabaseConfig{
			Path:        "./data/tourforge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Cache: CacheConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
			TTLHours: 24,
		},
		GenService: GenServiceConfig{
			AnalyzeModel:    "floorplan-analyze-v2",
			DollhouseModel:  "dollhouse-render-v1",
			ViewpointModel:  "panorama-360-v1",
			SubmitTimeout:   30,
			PollInterval:    5,
			MaxPollAttempts: 60,
			Retry: RetryConfig{
				MaxAttempts:       3,
				PerAttemptTimeout: 360,
				BaseDelay:         2000,
			},
		},
		Pipeline: PipelineConfig{
			MaxConcurrentViewpoints: 4,
			DollhouseEnabled:        true,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: TOURFORGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Database
	if v := os.Getenv("TOURFORGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// Cache
	if v := os.Getenv("TOURFORGE_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("TOURFORGE_REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("TOURFORGE_REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}

	// Generation service (IMPORTANT: always set the token via env in production)
	if v := os.Getenv("TOURFORGE_GENSERVICE_URL"); v != "" {
		cfg.GenService.BaseURL = v
	}
	if v := os.Getenv("TOURFORGE_GENSERVICE_TOKEN"); v != "" {
		cfg.GenService.Token = v
	}

	// API
	if v := os.Getenv("TOURFORGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("TOURFORGE_API_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = port
		}
	}

	// Telemetry
	if v := os.Getenv("TOURFORGE_TELEMETRY_TOKEN"); v != "" {
		cfg.Telemetry.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Service validation
	if c.Service.ID == "" {
		errs = append(errs, "service.id is required")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// Cache validation
	switch c.Cache.Backend {
	case "redis", "memory":
	default:
		errs = append(errs, "cache.backend must be \"redis\" or \"memory\"")
	}

	// Generation service validation
	if c.GenService.BaseURL == "" {
		errs = append(errs, "genservice.base_url is required (set TOURFORGE_GENSERVICE_URL environment variable)")
	}
	if c.GenService.PollInterval < 1 {
		errs = append(errs, "genservice.poll_interval must be at least 1 second")
	}
	if c.GenService.MaxPollAttempts < 1 {
		errs = append(errs, "genservice.max_poll_attempts must be at least 1")
	}
	if c.GenService.Retry.MaxAttempts < 1 {
		errs = append(errs, "genservice.retry.max_attempts must be at least 1")
	}

	// Pipeline validation
	if c.Pipeline.MaxConcurrentViewpoints < 0 {
		errs = append(errs, "pipeline.max_concurrent_viewpoints cannot be negative")
	}

	// API validation
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetPollInterval returns the generation service poll interval as a Duration.
func (c *Config) GetPollInterval() time.Duration {
	return time.Duration(c.GenService.PollInterval) * time.Second
}

// GetCacheTTL returns the cache entry lifetime as a Duration.
func (c *Config) GetCacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
