package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	envConfigDefaultPath = "WIRECHAT_CONFIG_DEFAULT_PATH"
	defaultConfigName    = "config.yaml"
)

// Load builds configuration from defaults, optional config file, env vars, and returns the resolved path.
// Precedence: defaults < config file < env vars < caller overrides.
func Load(logger *zerolog.Logger, explicitPath string) (Config, string, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, cfg)

	v.SetEnvPrefix("WIRECHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	configPath := resolveConfigPath(explicitPath)
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if writeErr := writeDefaultConfig(configPath, cfg); writeErr != nil && logger != nil {
				logger.Warn().Err(writeErr).Str("path", configPath).Msg("failed to write default config")
			} else if logger != nil {
				logger.Info().Str("path", configPath).Msg("created default config")
			}
			// try reading again in case it was just written
			if readErr := v.ReadInConfig(); readErr != nil && logger != nil {
				logger.Warn().Err(readErr).Str("path", configPath).Msg("failed to read config after writing default")
			}
		} else {
			return cfg, configPath, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, configPath, fmt.Errorf("unmarshal config: %w", err)
	}

	return cfg, configPath, nil
}

// Every key needs a default, otherwise AutomaticEnv cannot see nested env overrides during Unmarshal.
func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("addr", cfg.Addr)
	v.SetDefault("read_header_timeout", cfg.ReadHeaderTimeout)
	v.SetDefault("shutdown_timeout", cfg.ShutdownTimeout)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)

	v.SetDefault("database.driver", cfg.Database.Driver)
	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.dsn", cfg.Database.DSN)

	v.SetDefault("jwt.secret", cfg.JWT.Secret)
	v.SetDefault("jwt.algorithm", cfg.JWT.Algorithm)
	v.SetDefault("jwt.issuer", cfg.JWT.Issuer)
	v.SetDefault("jwt.audience", cfg.JWT.Audience)
	v.SetDefault("jwt.ttl", cfg.JWT.TTL)

	v.SetDefault("ws.max_message_bytes", cfg.WS.MaxMessageBytes)
	v.SetDefault("ws.send_buffer", cfg.WS.SendBuffer)
	v.SetDefault("ws.rate_limit", cfg.WS.RateLimit)
	v.SetDefault("ws.rate_burst", cfg.WS.RateBurst)
	v.SetDefault("ws.ping_interval", cfg.WS.PingInterval)
	v.SetDefault("ws.allowed_origins", cfg.WS.AllowedOrigins)

	v.SetDefault("presence.backend", cfg.Presence.Backend)
	v.SetDefault("presence.redis_addr", cfg.Presence.RedisAddr)
	v.SetDefault("presence.redis_password", cfg.Presence.RedisPassword)
	v.SetDefault("presence.redis_db", cfg.Presence.RedisDB)
	v.SetDefault("presence.key_prefix", cfg.Presence.KeyPrefix)

	v.SetDefault("relay.nats_url", cfg.Relay.NATSURL)
	v.SetDefault("relay.subject_prefix", cfg.Relay.SubjectPrefix)
	v.SetDefault("relay.name", cfg.Relay.Name)
}

func resolveConfigPath(explicitPath string) string {
	if explicitPath != "" {
		return explicitPath
	}

	if base := os.Getenv(envConfigDefaultPath); base != "" {
		if err := os.MkdirAll(base, 0o755); err == nil {
			return filepath.Join(base, defaultConfigName)
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return defaultConfigName
	}
	return filepath.Join(cwd, defaultConfigName)
}

func writeDefaultConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
