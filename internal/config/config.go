package config

import "time"

// DefaultJWTSecret is only suitable for local development.
const DefaultJWTSecret = "change-me"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	LogFormat         string        `mapstructure:"log_format" yaml:"log_format"`

	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	JWT      JWTConfig      `mapstructure:"jwt" yaml:"jwt"`
	WS       WSConfig       `mapstructure:"ws" yaml:"ws"`
	Presence PresenceConfig `mapstructure:"presence" yaml:"presence"`
	Relay    RelayConfig    `mapstructure:"relay" yaml:"relay"`
}

// DatabaseConfig selects the durable store.
type DatabaseConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string `mapstructure:"driver" yaml:"driver"`
	Path   string `mapstructure:"path" yaml:"path"`
	DSN    string `mapstructure:"dsn" yaml:"dsn"`
}

// JWTConfig describes how connection tokens are signed.
type JWTConfig struct {
	Secret    string        `mapstructure:"secret" yaml:"secret"`
	Algorithm string        `mapstructure:"algorithm" yaml:"algorithm"`
	Issuer    string        `mapstructure:"issuer" yaml:"issuer"`
	Audience  string        `mapstructure:"audience" yaml:"audience"`
	TTL       time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// WSConfig tunes per-connection behaviour.
type WSConfig struct {
	MaxMessageBytes int64 `mapstructure:"max_message_bytes" yaml:"max_message_bytes"`
	SendBuffer      int   `mapstructure:"send_buffer" yaml:"send_buffer"`
	// RateLimit is inbound frames per second; zero disables limiting.
	RateLimit      float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	RateBurst      int           `mapstructure:"rate_burst" yaml:"rate_burst"`
	PingInterval   time.Duration `mapstructure:"ping_interval" yaml:"ping_interval"`
	AllowedOrigins []string      `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// PresenceConfig selects where online users are tracked.
type PresenceConfig struct {
	// Backend is "memory" or "redis".
	Backend       string `mapstructure:"backend" yaml:"backend"`
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
	KeyPrefix     string `mapstructure:"key_prefix" yaml:"key_prefix"`
}

// RelayConfig enables fan-out across several server nodes. Empty NATSURL keeps delivery local.
type RelayConfig struct {
	NATSURL       string `mapstructure:"nats_url" yaml:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix" yaml:"subject_prefix"`
	Name          string `mapstructure:"name" yaml:"name"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		LogFormat:         "console",
		Database: DatabaseConfig{
			Driver: "sqlite",
			Path:   "wirechat.db",
		},
		JWT: JWTConfig{
			Secret:    DefaultJWTSecret,
			Algorithm: "HS256",
			TTL:       24 * time.Hour,
		},
		WS: WSConfig{
			MaxMessageBytes: 64 << 10,
			SendBuffer:      64,
			RateLimit:       20,
			RateBurst:       40,
		},
		Presence: PresenceConfig{
			Backend:   "memory",
			RedisAddr: "127.0.0.1:6379",
			KeyPrefix: "wirechat:presence",
		},
		Relay: RelayConfig{
			SubjectPrefix: "wirechat.rooms",
			Name:          "wirechat-live",
		},
	}
}

// UpdateFrom overwrites non-zero top-level values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		c.LogFormat = other.LogFormat
	}
}
