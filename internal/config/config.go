package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the API service
type Config struct {
	// Server
	Port         string        `mapstructure:"port"`
	Environment  string        `mapstructure:"environment"`
	WriteTimeout time.Duration `mapstructure:"http_write_timeout"`

	// Upstream LLM provider
	LLM LLMConfig `mapstructure:"llm"`

	// Rate limiting
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// Circuit breaker around the provider
	Breaker BreakerConfig `mapstructure:"breaker"`

	// Optional backing services, disabled when empty
	DatabaseURL string     `mapstructure:"database_url"`
	RedisURL    string     `mapstructure:"redis_url"`
	NATS        NATSConfig `mapstructure:"nats"`

	// Observability
	ServiceName     string `mapstructure:"service_name"`
	TracingEndpoint string `mapstructure:"tracing_endpoint"`
	MetricsEnabled  bool   `mapstructure:"metrics_enabled"`
	MetricsPath     string `mapstructure:"metrics_path"`

	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// LLMConfig configures the OpenAI-compatible upstream
type LLMConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig configures the per-client request counter
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Backend  string        `mapstructure:"backend"` // "memory" or "redis"
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// BreakerConfig configures the upstream circuit breaker
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold"`
	SuccessThreshold int           `mapstructure:"success_threshold"`
	Timeout          time.Duration `mapstructure:"timeout"`
}

// NATSConfig configures generation event publishing
type NATSConfig struct {
	URL       string `mapstructure:"url"`
	Subject   string `mapstructure:"subject"`
	JetStream bool   `mapstructure:"jetstream"`
	Stream    string `mapstructure:"stream"`
}

// HasCredential reports whether an upstream API key is configured
func (c *Config) HasCredential() bool {
	return strings.TrimSpace(c.LLM.APIKey) != ""
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// envBindings maps config keys to the environment variables that set them
var envBindings = map[string][]string{
	"port":                      {"PORT"},
	"environment":               {"GO_ENV"},
	"http_write_timeout":        {"HTTP_WRITE_TIMEOUT"},
	"llm.api_key":               {"GROQ_API_KEY", "LLM_API_KEY"},
	"llm.base_url":              {"LLM_BASE_URL"},
	"llm.model":                 {"LLM_MODEL"},
	"llm.timeout":               {"LLM_TIMEOUT"},
	"rate_limit.enabled":        {"RATE_LIMIT_ENABLED"},
	"rate_limit.backend":        {"RATE_LIMIT_BACKEND"},
	"rate_limit.requests":       {"RATE_LIMIT_REQUESTS"},
	"rate_limit.window":         {"RATE_LIMIT_WINDOW"},
	"breaker.failure_threshold": {"BREAKER_FAILURE_THRESHOLD"},
	"breaker.success_threshold": {"BREAKER_SUCCESS_THRESHOLD"},
	"breaker.timeout":           {"BREAKER_TIMEOUT"},
	"database_url":              {"DATABASE_URL"},
	"redis_url":                 {"REDIS_URL"},
	"nats.url":                  {"NATS_URL"},
	"nats.subject":              {"NATS_SUBJECT"},
	"nats.jetstream":            {"NATS_JETSTREAM"},
	"nats.stream":               {"NATS_STREAM"},
	"service_name":              {"OTEL_SERVICE_NAME"},
	"tracing_endpoint":          {"OTEL_EXPORTER_OTLP_ENDPOINT"},
	"metrics_enabled":           {"METRICS_ENABLED"},
	"metrics_path":              {"METRICS_PATH"},
	"cors_allowed_origins":      {"CORS_ALLOWED_ORIGINS"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("http_write_timeout", "5m")

	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "llama-3.2-1b-preview")
	v.SetDefault("llm.timeout", "0s")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.backend", "memory")
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1h")

	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.success_threshold", 2)
	v.SetDefault("breaker.timeout", "30s")

	v.SetDefault("database_url", "")
	v.SetDefault("redis_url", "")
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject", "quintet.generation")
	v.SetDefault("nats.jetstream", false)
	v.SetDefault("nats.stream", "QUINTET_GENERATION")

	v.SetDefault("service_name", "quintet-api")
	v.SetDefault("tracing_endpoint", "")
	v.SetDefault("metrics_enabled", true)
	v.SetDefault("metrics_path", "/metrics")
	v.SetDefault("cors_allowed_origins", []string{"*"})
}

// Load reads configuration from defaults, an optional quintet.yaml and environment variables
func Load(configPaths ...string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("quintet")
	v.SetConfigType("yaml")
	for _, p := range configPaths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.RateLimit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown rate limit backend %q", c.RateLimit.Backend)
	}
	if c.RateLimit.Enabled && c.RateLimit.Backend == "redis" && c.RedisURL == "" {
		return errors.New("rate limit backend redis requires REDIS_URL")
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return errors.New("rate limit requests and window must be positive")
	}
	return nil
}
