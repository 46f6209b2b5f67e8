package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for homed-cloud.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	API       APIConfig       `yaml:"api"`
	Database  DatabaseConfig  `yaml:"database"`
	HomeGraph HomeGraphConfig `yaml:"homegraph"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// GatewayConfig contains the gateway-facing TCP listener settings.
type GatewayConfig struct {
	// Host and Port the TCP listener binds to.
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// AuthTimeout is the combined handshake+authorization deadline in
	// milliseconds. A connection that has not reached the authorized state
	// when it expires is closed.
	AuthTimeout int `yaml:"auth_timeout"`

	// MaxBufferSize bounds the per-connection receive buffer in bytes.
	// Exceeding it closes the connection.
	MaxBufferSize int `yaml:"max_buffer_size"`
}

// APIConfig contains HTTP API server settings for the fulfillment edge.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// DatabaseConfig contains SQLite database settings for the user store.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// HomeGraphConfig contains Google Home Graph settings.
type HomeGraphConfig struct {
	// Enabled toggles outbound Home Graph calls. When disabled the router
	// still serves intents but proactive reporting is a no-op.
	Enabled bool `yaml:"enabled"`

	// CredentialsFile is the path to the service-account JSON used to
	// authenticate against the Home Graph API. Opaque to the core.
	CredentialsFile string `yaml:"credentials_file"`

	// SyncDebounce is the trailing debounce applied to REQUEST_SYNC
	// triggers, in milliseconds.
	SyncDebounce int `yaml:"sync_debounce"`
}

// InfluxDBConfig contains InfluxDB connection settings for the optional
// device-reading history sink.
type InfluxDBConfig struct {
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

// SecurityConfig contains security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings for the fulfillment edge.
type JWTConfig struct {
	Secret         string `yaml:"secret"`
	AccessTokenTTL int    `yaml:"access_token_ttl"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: HOMEDCLOUD_SECTION_KEY
// For example: HOMEDCLOUD_DATABASE_PATH, HOMEDCLOUD_GATEWAY_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default gateway protocol parameters. These are compatibility values:
// deployed gateways expect a 10 s authorization window, and the receive
// buffer bound matches the largest expose batch observed in the field.
const (
	defaultAuthTimeoutMS   = 10000
	defaultMaxBufferBytes  = 102400
	defaultSyncDebounceMS  = 300
	defaultAccessTokenTTL  = 15
	minJWTSecretLength     = 32
	defaultInfluxBatchSize = 100
)

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host:          "0.0.0.0",
			Port:          8042,
			AuthTimeout:   defaultAuthTimeoutMS,
			MaxBufferSize: defaultMaxBufferBytes,
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
		Database: DatabaseConfig{
			Path:        "./data/homedcloud.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		HomeGraph: HomeGraphConfig{
			Enabled:      true,
			SyncDebounce: defaultSyncDebounceMS,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     defaultInfluxBatchSize,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: defaultAccessTokenTTL,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: HOMEDCLOUD_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HOMEDCLOUD_GATEWAY_HOST"); v != "" {
		cfg.Gateway.Host = v
	}
	if v := os.Getenv("HOMEDCLOUD_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("HOMEDCLOUD_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("HOMEDCLOUD_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HOMEDCLOUD_HOMEGRAPH_CREDENTIALS"); v != "" {
		cfg.HomeGraph.CredentialsFile = v
	}
	if v := os.Getenv("HOMEDCLOUD_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	// JWT secret must always come from the environment in production.
	if v := os.Getenv("HOMEDCLOUD_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.Port < 1 || c.Gateway.Port > 65535 {
		errs = append(errs, "gateway.port must be between 1 and 65535")
	}
	if c.Gateway.AuthTimeout <= 0 {
		errs = append(errs, "gateway.auth_timeout must be positive")
	}
	if c.Gateway.MaxBufferSize <= 0 {
		errs = append(errs, "gateway.max_buffer_size must be positive")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.HomeGraph.Enabled && c.HomeGraph.CredentialsFile == "" {
		errs = append(errs, "homegraph.credentials_file is required when homegraph is enabled")
	}
	if c.HomeGraph.SyncDebounce < 0 {
		errs = append(errs, "homegraph.sync_debounce must not be negative")
	}

	// Empty or weak secrets would allow forged bearer tokens on the
	// fulfillment edge, which controls physical devices.
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set HOMEDCLOUD_JWT_SECRET environment variable)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters for adequate security")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GatewayAuthTimeout returns the handshake+authorization deadline as a Duration.
func (c *Config) GatewayAuthTimeout() time.Duration {
	return time.Duration(c.Gateway.AuthTimeout) * time.Millisecond
}

// SyncDebounce returns the REQUEST_SYNC debounce window as a Duration.
func (c *Config) SyncDebounce() time.Duration {
	return time.Duration(c.HomeGraph.SyncDebounce) * time.Millisecond
}

// ReadTimeout returns the API read timeout as a Duration.
func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// WriteTimeout returns the API write timeout as a Duration.
func (c *Config) WriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// IdleTimeout returns the API idle timeout as a Duration.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
