package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load,
// e.g. FLASHLET_AUTH_JWT_SECRET for auth.jwt_secret.
const EnvPrefix = "FLASHLET"

// keys without a default still need an explicit binding so that
// Unmarshal sees their environment values.
var boundKeys = []string{
	"database.url",
	"auth.jwt_secret",
	"auth.reset_secret",
	"cache.redis_password",
	"storage.endpoint",
	"storage.access_key",
	"storage.secret_key",
	"storage.bucket",
	"storage.public_url",
	"mail.smtp_host",
	"mail.username",
	"mail.password",
	"sentry.dsn",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("server.cors_allowed_origins", []string{"*"})

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("auth.bcrypt_cost", 10)
	v.SetDefault("auth.reset_token_lifetime_minutes", 30)
	v.SetDefault("auth.enforce_token_presence", true)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.driver", "redis")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl_seconds", 300)
	v.SetDefault("cache.timeout_millis", 250)

	v.SetDefault("storage.use_ssl", false)

	v.SetDefault("mail.smtp_port", 587)
	v.SetDefault("mail.from", "no-reply@flashlet.app")
	v.SetDefault("mail.timeout_seconds", 10)

	v.SetDefault("oauth.google_userinfo_url", "https://www.googleapis.com/oauth2/v3/userinfo")
	v.SetDefault(
		"oauth.facebook_userinfo_url",
		"https://graph.facebook.com/me?fields=id,name,email,picture.type(large)",
	)

	v.SetDefault("sentry.environment", "development")
}

// Load configuration from environment variables and optionally a config.yaml
// in the working directory. Environment variables take precedence over values
// from the config file. Returns a populated Config struct or an error if
// loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range boundKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
