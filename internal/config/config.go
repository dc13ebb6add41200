package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`
	GinMode    string `mapstructure:"GIN_MODE"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBSSLMode  string `mapstructure:"DB_SSLMODE"`

	RedisHost     string `mapstructure:"REDIS_HOST"`
	RedisPort     string `mapstructure:"REDIS_PORT"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	SessionSecret string `mapstructure:"SESSION_SECRET"`

	AdminUsername string `mapstructure:"DASHBOARD_ADMIN_USER"`
	AdminPassword string `mapstructure:"DASHBOARD_ADMIN_PASS"`
	AuthJWTSecret string `mapstructure:"AUTH_JWT_SECRET"`

	AdminLoginRateLimit     int `mapstructure:"ADMIN_LOGIN_RATE_LIMIT"`
	AdminLoginWindowSeconds int `mapstructure:"ADMIN_LOGIN_WINDOW_SECONDS"`

	ReportingTimezone     string `mapstructure:"REPORTING_TIMEZONE"`
	RequestTimeoutSeconds int    `mapstructure:"REQUEST_TIMEOUT_SECONDS"`
	ReconcileSchedule     string `mapstructure:"RECONCILE_SCHEDULE"`
	ReconcileBatchSize    int    `mapstructure:"RECONCILE_BATCH_SIZE"`

	RabbitMQURL    string `mapstructure:"RABBITMQ_URL"`
	EventsExchange string `mapstructure:"EVENTS_EXCHANGE"`

	KycBucket           string `mapstructure:"KYC_BUCKET"`
	S3Region            string `mapstructure:"S3_REGION"`
	S3Endpoint          string `mapstructure:"S3_ENDPOINT"`
	S3AccessKeyID       string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey   string `mapstructure:"S3_SECRET_ACCESS_KEY"`
	UploadURLTTLSeconds int    `mapstructure:"UPLOAD_URL_TTL_SECONDS"`

	PaymentBaseURL       string `mapstructure:"PAYMENT_BASE_URL"`
	PaymentKeyID         string `mapstructure:"PAYMENT_KEY_ID"`
	PaymentKeySecret     string `mapstructure:"PAYMENT_KEY_SECRET"`
	MembershipPricePaise int64  `mapstructure:"MEMBERSHIP_PRICE_PAISE"`
}

var envKeys = []string{
	"SERVER_PORT", "GIN_MODE",
	"DB_DRIVER", "DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE",
	"REDIS_HOST", "REDIS_PORT", "REDIS_PASSWORD", "SESSION_SECRET",
	"DASHBOARD_ADMIN_USER", "DASHBOARD_ADMIN_PASS", "AUTH_JWT_SECRET",
	"ADMIN_LOGIN_RATE_LIMIT", "ADMIN_LOGIN_WINDOW_SECONDS",
	"REPORTING_TIMEZONE", "REQUEST_TIMEOUT_SECONDS", "RECONCILE_SCHEDULE", "RECONCILE_BATCH_SIZE",
	"RABBITMQ_URL", "EVENTS_EXCHANGE",
	"KYC_BUCKET", "S3_REGION", "S3_ENDPOINT", "S3_ACCESS_KEY_ID", "S3_SECRET_ACCESS_KEY", "UPLOAD_URL_TTL_SECONDS",
	"PAYMENT_BASE_URL", "PAYMENT_KEY_ID", "PAYMENT_KEY_SECRET", "MEMBERSHIP_PRICE_PAISE",
}

// Load reads configuration from the environment and an optional .env file in path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "mudralaya")
	v.SetDefault("DB_PASSWORD", "mudralaya")
	v.SetDefault("DB_NAME", "mudralaya")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("SESSION_SECRET", "default-secret-key-change-me")
	v.SetDefault("ADMIN_LOGIN_RATE_LIMIT", 10)
	v.SetDefault("ADMIN_LOGIN_WINDOW_SECONDS", 300)
	v.SetDefault("REPORTING_TIMEZONE", "Asia/Kolkata")
	v.SetDefault("REQUEST_TIMEOUT_SECONDS", 15)
	v.SetDefault("RECONCILE_SCHEDULE", "@every 1h")
	v.SetDefault("RECONCILE_BATCH_SIZE", 100)
	v.SetDefault("EVENTS_EXCHANGE", "mudralaya.events")
	v.SetDefault("S3_REGION", "auto")
	v.SetDefault("UPLOAD_URL_TTL_SECONDS", 900)
	v.SetDefault("MEMBERSHIP_PRICE_PAISE", 2500000)

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.RequestTimeoutSeconds <= 0 {
		cfg.RequestTimeoutSeconds = 15
	}
	if cfg.ReconcileBatchSize <= 0 {
		cfg.ReconcileBatchSize = 100
	}

	return &cfg, nil
}

// IsProduction reports whether the server runs in gin release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}

// RequestTimeout bounds every request context.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ReportingLocation resolves the timezone used for today/monthly wallet windows.
func (c *Config) ReportingLocation() (*time.Location, error) {
	if c.ReportingTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.ReportingTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORTING_TIMEZONE %q: %w", c.ReportingTimezone, err)
	}
	return loc, nil
}
