package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Mail     MailConfig     `mapstructure:"mail"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port               int      `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel           string   `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	PublicURL          string   `mapstructure:"public_url" validate:"required,url"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL          string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gt=0"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// AuthConfig contains all authentication and authorization settings.
// Auth and reset tokens are signed with distinct secrets so that one
// leaking cannot be used to forge the other.
type AuthConfig struct {
	JWTSecret                 string `mapstructure:"jwt_secret" validate:"required,min=32"`
	ResetSecret               string `mapstructure:"reset_secret" validate:"required,min=32,nefield=JWTSecret"`
	BcryptCost                int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
	ResetTokenLifetimeMinutes int    `mapstructure:"reset_token_lifetime_minutes" validate:"gt=0"`
	// EnforceTokenPresence makes authentication reject signed tokens that are
	// no longer in the user's active token list (i.e. signed out).
	EnforceTokenPresence bool `mapstructure:"enforce_token_presence"`
}

// CacheConfig configures the Redis-backed read-through cache.
type CacheConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Driver selects the backing store: "redis", or "memory" for a single
	// process without Redis.
	Driver        string `mapstructure:"driver" validate:"oneof=redis memory"`
	RedisAddr     string `mapstructure:"redis_addr" validate:"required_if=Driver redis"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"gte=0"`
	TTLSeconds    int    `mapstructure:"ttl_seconds" validate:"gte=0"`
	TimeoutMillis int    `mapstructure:"timeout_millis" validate:"gt=0"`
}

// StorageConfig configures the object store used for profile images.
// An empty Endpoint disables uploads.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key" validate:"required_with=Endpoint"`
	SecretKey string `mapstructure:"secret_key" validate:"required_with=Endpoint"`
	Bucket    string `mapstructure:"bucket" validate:"required_with=Endpoint"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	PublicURL string `mapstructure:"public_url" validate:"omitempty,url"`
}

// MailConfig configures outbound email. An empty SMTPHost logs messages instead of sending them.
type MailConfig struct {
	SMTPHost string `mapstructure:"smtp_host"`
	SMTPPort int    `mapstructure:"smtp_port" validate:"gt=0,lt=65536"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from" validate:"required,email"`
	// TimeoutSeconds bounds dialing the relay and each SMTP command.
	TimeoutSeconds int `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// OAuthConfig holds the profile endpoints queried with a provider access token.
type OAuthConfig struct {
	GoogleUserInfoURL   string `mapstructure:"google_userinfo_url" validate:"required,url"`
	FacebookUserInfoURL string `mapstructure:"facebook_userinfo_url" validate:"required,url"`
}

// SentryConfig configures error reporting. An empty DSN disables it.
type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}
