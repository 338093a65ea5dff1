package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every setting the server reads at startup
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RabbitMQ  RabbitMQConfig  `mapstructure:"rabbitmq"`
	MinIO     MinIOConfig     `mapstructure:"minio"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

type ServerConfig struct {
	Port           string `mapstructure:"port"`
	BasePath       string `mapstructure:"base_path"`
	Mode           string `mapstructure:"mode"`
	LogLevel       string `mapstructure:"log_level"`
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// Origins splits the comma separated CORS origin list
func (c ServerConfig) Origins() []string {
	var origins []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN builds the postgres connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type AuthConfig struct {
	JWTSecret            string        `mapstructure:"jwt_secret"`
	Issuer               string        `mapstructure:"issuer"`
	AccessTokenTTL       time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL      time.Duration `mapstructure:"refresh_token_ttl"`
	TokenCleanupInterval time.Duration `mapstructure:"token_cleanup_interval"`
	AdminEmail           string        `mapstructure:"admin_email"`
	AdminPassword        string        `mapstructure:"admin_password"`
}

type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PaymentConfig configures the hosted checkout gateway (Flutterwave v3 API)
type PaymentConfig struct {
	SecretKey   string        `mapstructure:"secret_key"`
	BaseURL     string        `mapstructure:"base_url"`
	WebhookHash string        `mapstructure:"webhook_hash"`
	RedirectURL string        `mapstructure:"redirect_url"`
	FrontendURL string        `mapstructure:"frontend_url"`
	Currency    string        `mapstructure:"currency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RabbitMQConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	User string `mapstructure:"user"`
	Pass string `mapstructure:"pass"`
}

// URL returns the amqp connection url, empty when no host is configured
func (c RabbitMQConfig) URL() string {
	if c.Host == "" {
		return ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", c.User, c.Pass, c.Host, c.Port)
}

type MinIOConfig struct {
	Endpoint   string        `mapstructure:"endpoint"`
	AccessKey  string        `mapstructure:"access_key"`
	SecretKey  string        `mapstructure:"secret_key"`
	Bucket     string        `mapstructure:"bucket"`
	UseSSL     bool          `mapstructure:"use_ssl"`
	PresignTTL time.Duration `mapstructure:"presign_ttl"`
}

type SentryConfig struct {
	DSN         string `mapstructure:"dsn"`
	Environment string `mapstructure:"environment"`
}

type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type RateLimitConfig struct {
	GenerationPerMinute int `mapstructure:"generation_per_minute"`
	Burst               int `mapstructure:"burst"`
}

type binding struct {
	key string
	env string
	def interface{}
}

// bindings keeps the environment variable names the deployment already uses
var bindings = []binding{
	{"server.port", "PORT", "8080"},
	{"server.base_path", "BASE_PATH", "/bizdoc-services-api"},
	{"server.mode", "GIN_MODE", "release"},
	{"server.log_level", "LOG_LEVEL", "info"},
	{"server.allowed_origins", "CORS_ALLOWED_ORIGINS", "*"},

	{"database.host", "DB_HOST", ""},
	{"database.port", "DB_PORT", "5432"},
	{"database.user", "DB_USER", ""},
	{"database.password", "DB_PASSWORD", ""},
	{"database.name", "DB_NAME", ""},
	{"database.sslmode", "DB_SSLMODE", "disable"},

	{"auth.jwt_secret", "JWT_SECRET", "default-secret-key-change-in-production"},
	{"auth.issuer", "JWT_ISSUER", "bizdoc-services-backend"},
	{"auth.access_token_ttl", "ACCESS_TOKEN_TTL", "15m"},
	{"auth.refresh_token_ttl", "REFRESH_TOKEN_TTL", "168h"},
	{"auth.token_cleanup_interval", "TOKEN_CLEANUP_INTERVAL", "24h"},
	{"auth.admin_email", "ADMIN_EMAIL", "admin@bizdoc.local"},
	{"auth.admin_password", "ADMIN_PASSWORD", ""},

	{"llm.api_key", "LLM_API_KEY", ""},
	{"llm.base_url", "LLM_BASE_URL", "https://api.openai.com/v1"},
	{"llm.model", "LLM_MODEL", "gpt-4o-mini"},
	{"llm.temperature", "LLM_TEMPERATURE", 0.7},
	{"llm.timeout", "LLM_TIMEOUT", "90s"},

	{"payment.secret_key", "FLW_SECRET_KEY", ""},
	{"payment.base_url", "FLW_BASE_URL", "https://api.flutterwave.com"},
	{"payment.webhook_hash", "FLW_WEBHOOK_HASH", ""},
	{"payment.redirect_url", "PAYMENT_REDIRECT_URL", "http://localhost:8080/api/v1/payments/callback"},
	{"payment.frontend_url", "PAYMENT_FRONTEND_URL", ""},
	{"payment.currency", "PAYMENT_CURRENCY", "NGN"},
	{"payment.timeout", "PAYMENT_TIMEOUT", "30s"},

	{"redis.addr", "REDIS_ADDR", ""},
	{"redis.password", "REDIS_PASSWORD", ""},
	{"redis.db", "REDIS_DB", 0},

	{"rabbitmq.host", "RABBITMQ_HOST", ""},
	{"rabbitmq.port", "RABBITMQ_PORT", "5672"},
	{"rabbitmq.user", "RABBITMQ_USER", "guest"},
	{"rabbitmq.pass", "RABBITMQ_PASS", "guest"},

	{"minio.endpoint", "MINIO_ENDPOINT", ""},
	{"minio.access_key", "MINIO_ACCESS_KEY", ""},
	{"minio.secret_key", "MINIO_SECRET_KEY", ""},
	{"minio.bucket", "MINIO_BUCKET", "bizdoc-exports"},
	{"minio.use_ssl", "MINIO_USE_SSL", false},
	{"minio.presign_ttl", "MINIO_PRESIGN_TTL", "24h"},

	{"sentry.dsn", "SENTRY_DSN", ""},
	{"sentry.environment", "SENTRY_ENVIRONMENT", "development"},

	{"tracing.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT", ""},
	{"tracing.service_name", "OTEL_SERVICE_NAME", "bizdoc-services-backend"},
	{"tracing.sample_rate", "OTEL_SAMPLE_RATE", 1.0},

	{"rate_limit.generation_per_minute", "RATE_LIMIT_GENERATION_PER_MINUTE", 10},
	{"rate_limit.burst", "RATE_LIMIT_BURST", 2},
}

// Load reads configuration from the environment. Call godotenv.Load first
// when a .env file should be honoured.
func Load() (*Config, error) {
	v := viper.New()
	for _, b := range bindings {
		v.SetDefault(b.key, b.def)
		if err := v.BindEnv(b.key, b.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", b.env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that would otherwise fail late at request time
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("PORT must not be empty")
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("GIN_MODE must be debug, release or test, got %q", c.Server.Mode)
	}
	if c.Auth.AccessTokenTTL <= 0 {
		return errors.New("ACCESS_TOKEN_TTL must be positive")
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		return errors.New("REFRESH_TOKEN_TTL must be longer than ACCESS_TOKEN_TTL")
	}
	if c.Payment.Currency == "" {
		return errors.New("PAYMENT_CURRENCY must not be empty")
	}
	if c.RateLimit.GenerationPerMinute < 0 {
		return errors.New("RATE_LIMIT_GENERATION_PER_MINUTE must not be negative")
	}
	return nil
}
