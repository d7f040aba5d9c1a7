package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for blinksync.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Account   AccountConfig   `yaml:"account"`
	Cloud     CloudConfig     `yaml:"cloud"`
	Sync      SyncConfig      `yaml:"sync"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// AccountConfig holds the cloud account credentials.
//
// Credentials should be supplied through BLINKSYNC_* environment variables
// rather than committed to the config file.
type AccountConfig struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	PIN      string `yaml:"pin"`

	// ClientUUID identifies this installation to the cloud service. A random
	// one is generated when empty, which triggers a PIN challenge on first login.
	ClientUUID string `yaml:"client_uuid"`
	DeviceName string `yaml:"device_name"`
}

// CloudConfig contains remote API settings.
type CloudConfig struct {
	// BaseURL may contain a {region} placeholder, filled from the session.
	BaseURL        string        `yaml:"base_url"`
	DefaultRegion  string        `yaml:"default_region"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	UserAgent      string        `yaml:"user_agent"`
	AppVersion     string        `yaml:"app_version"`
	Retry          RetryConfig   `yaml:"retry"`
	Cache          CacheConfig   `yaml:"cache"`
}

// RetryConfig bounds the transient-failure retry loops.
type RetryConfig struct {
	MaxAttempts      int           `yaml:"max_attempts"`
	ServerErrorDelay time.Duration `yaml:"server_error_delay"`
	RateLimitDelay   time.Duration `yaml:"rate_limit_delay"`
	BusyDelay        time.Duration `yaml:"busy_delay"`
	MaxDelay         time.Duration `yaml:"max_delay"`
}

// CacheConfig contains transport cache settings.
type CacheConfig struct {
	Grace time.Duration `yaml:"grace"`
}

// SyncConfig contains refresh and derived-state timing.
type SyncConfig struct {
	PollInterval        time.Duration `yaml:"poll_interval"`
	SnapshotTTL         time.Duration `yaml:"snapshot_ttl"`
	CameraInfoTTL       time.Duration `yaml:"camera_info_ttl"`
	MediaTTL            time.Duration `yaml:"media_ttl"`
	ThumbnailTTL        time.Duration `yaml:"thumbnail_ttl"`
	ArmedDelay          time.Duration `yaml:"armed_delay"`
	MotionTriggerDecay  time.Duration `yaml:"motion_trigger_decay"`
	CommandPollInterval time.Duration `yaml:"command_poll_interval"`
	CommandTimeout      time.Duration `yaml:"command_timeout"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
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
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
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
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path string `yaml:"path"`
}

// SecurityConfig contains API security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains JWT token settings. An empty secret disables API auth.
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
// Environment variables follow the pattern: BLINKSYNC_SECTION_KEY
// For example: BLINKSYNC_ACCOUNT_EMAIL, BLINKSYNC_DATABASE_PATH
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

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Account: AccountConfig{
			DeviceName: "blinksync",
		},
		Cloud: CloudConfig{
			BaseURL:        "https://rest-{region}.immedia-semi.com",
			DefaultRegion:  "prod",
			RequestTimeout: 30 * time.Second,
			UserAgent:      "Blink/2511191620 CFNetwork/3860.200.71 Darwin/25.1.0",
			AppVersion:     "49.2",
			Retry: RetryConfig{
				MaxAttempts:      10,
				ServerErrorDelay: time.Second,
				RateLimitDelay:   500 * time.Millisecond,
				BusyDelay:        5 * time.Second,
				MaxDelay:         time.Minute,
			},
			Cache: CacheConfig{
				Grace: 5 * time.Second,
			},
		},
		Sync: SyncConfig{
			PollInterval:        30 * time.Second,
			SnapshotTTL:         30 * time.Second,
			CameraInfoTTL:       time.Hour,
			MediaTTL:            10 * time.Second,
			ThumbnailTTL:        time.Hour,
			ArmedDelay:          60 * time.Second,
			MotionTriggerDecay:  90 * time.Second,
			CommandPollInterval: 400 * time.Millisecond,
			CommandTimeout:      2 * time.Minute,
		},
		Database: DatabaseConfig{
			Path:        "./data/blinksync.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "blinksync",
			},
			QoS:         1,
			TopicPrefix: "blinksync",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
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
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				AccessTokenTTL: 1440,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: BLINKSYNC_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Account
	if v := os.Getenv("BLINKSYNC_ACCOUNT_EMAIL"); v != "" {
		cfg.Account.Email = v
	}
	if v := os.Getenv("BLINKSYNC_ACCOUNT_PASSWORD"); v != "" {
		cfg.Account.Password = v
	}
	if v := os.Getenv("BLINKSYNC_ACCOUNT_PIN"); v != "" {
		cfg.Account.PIN = v
	}
	if v := os.Getenv("BLINKSYNC_ACCOUNT_CLIENT_UUID"); v != "" {
		cfg.Account.ClientUUID = v
	}

	// Cloud
	if v := os.Getenv("BLINKSYNC_CLOUD_BASE_URL"); v != "" {
		cfg.Cloud.BaseURL = v
	}
	if v := os.Getenv("BLINKSYNC_CLOUD_RETRY_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cloud.Retry.MaxAttempts = n
		}
	}

	// Sync
	if v := os.Getenv("BLINKSYNC_SYNC_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Sync.PollInterval = d
		}
	}

	// Database
	if v := os.Getenv("BLINKSYNC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("BLINKSYNC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("BLINKSYNC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("BLINKSYNC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("BLINKSYNC_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("BLINKSYNC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	if v := os.Getenv("BLINKSYNC_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}
}

// Validate checks the configuration for errors and security issues.
func (c *Config) Validate() error {
	var errs []string

	if c.Account.Email == "" || c.Account.Password == "" {
		errs = append(errs, "account.email and account.password are required (set BLINKSYNC_ACCOUNT_EMAIL / BLINKSYNC_ACCOUNT_PASSWORD)")
	}

	if c.Cloud.BaseURL == "" {
		errs = append(errs, "cloud.base_url is required")
	}
	if c.Cloud.Retry.MaxAttempts < 1 {
		errs = append(errs, "cloud.retry.max_attempts must be at least 1")
	}

	if c.Sync.PollInterval <= 0 {
		errs = append(errs, "sync.poll_interval must be positive")
	}
	if c.Sync.CommandPollInterval <= 0 {
		errs = append(errs, "sync.command_poll_interval must be positive")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// The local API can arm and disarm the system, so a configured secret
	// must be long enough to resist brute force.
	const minJWTSecretLength = 32
	if c.Security.JWT.Secret != "" && len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
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
