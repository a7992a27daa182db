package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "DRINKS"

var ErrInvalidConfig = errors.New("invalid config")

//nolint:gochecknoglobals // Fixed allow-list of asymmetric algorithms usable with a JWKS
var supportedAlgorithms = map[string]struct{}{
	"RS256": {}, "RS384": {}, "RS512": {},
	"PS256": {}, "PS384": {}, "PS512": {},
	"ES256": {}, "ES384": {}, "ES512": {},
	"EdDSA": {},
}

type Config struct {
	Server struct {
		Addr         string        `mapstructure:"addr"`
		Mode         string        `mapstructure:"mode"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"server"`

	Database struct {
		DSN         string `mapstructure:"dsn"`
		AutoMigrate bool   `mapstructure:"auto_migrate"`
	} `mapstructure:"database"`

	Redis struct {
		URL      string `mapstructure:"url"`
		PoolSize int    `mapstructure:"pool_size"`
	} `mapstructure:"redis"`

	Auth struct {
		// Domain is an Auth0-style tenant domain. When set it fills in
		// Issuer and JWKSURL if those are empty.
		Domain       string        `mapstructure:"domain"`
		Issuer       string        `mapstructure:"issuer"`
		Audience     string        `mapstructure:"audience"`
		Algorithms   []string      `mapstructure:"algorithms"`
		JWKSURL      string        `mapstructure:"jwks_url"`
		FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
		FetchRetries int           `mapstructure:"fetch_retries"`
		KeyCacheTTL  time.Duration `mapstructure:"key_cache_ttl"`
		Leeway       time.Duration `mapstructure:"leeway"`
	} `mapstructure:"auth"`

	Observability struct {
		MetricsEnabled     bool   `mapstructure:"metrics_enabled"`
		TraceEnabled       bool   `mapstructure:"trace_enabled"`
		TracingEndpointURL string `mapstructure:"tracing_endpoint_url"`
		LogLevel           string `mapstructure:"log_level"`
		Format             string `mapstructure:"log_format"`
		LogSource          bool   `mapstructure:"log_source"`
	} `mapstructure:"observability"`

	CORS struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
	} `mapstructure:"cors"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.pool_size", 10)

	// keys without a default are invisible to AutomaticEnv during Unmarshal
	v.SetDefault("auth.domain", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("auth.audience", "")
	v.SetDefault("auth.jwks_url", "")
	v.SetDefault("auth.algorithms", []string{"RS256"})
	v.SetDefault("auth.fetch_timeout", 5*time.Second)
	v.SetDefault("auth.fetch_retries", 2)
	v.SetDefault("auth.key_cache_ttl", 10*time.Minute)
	v.SetDefault("auth.leeway", time.Duration(0))

	v.SetDefault("observability.metrics_enabled", false)
	v.SetDefault("observability.trace_enabled", false)
	v.SetDefault("observability.tracing_endpoint_url", "")
	v.SetDefault("observability.log_source", false)
	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "json")

	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Load reads config/config.yaml (optional), an APP_ENV overlay, and DRINKS_*
// environment overrides.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	logger := slog.Default()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.Info("No config file found, using defaults and environment")
	}

	if env := os.Getenv("APP_ENV"); env != "" {
		v.SetConfigName(fmt.Sprintf("config.%s", env))
		if err := v.MergeInConfig(); err != nil {
			logger.Info("No environment-specific config (optional)", slog.String("env", env))
		} else {
			logger.Info("Environment-specific config loaded", slog.String("env", env))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDomain()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		slog.Default().Error("Failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	return cfg
}

func (c *Config) applyDomain() {
	domain := strings.TrimSuffix(strings.TrimPrefix(c.Auth.Domain, "https://"), "/")
	if domain == "" {
		return
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "https://" + domain + "/"
	}
	if c.Auth.JWKSURL == "" {
		c.Auth.JWKSURL = "https://" + domain + "/.well-known/jwks.json"
	}
}

// Validate checks the settings the authorizer cannot run without.
func (c *Config) Validate() error {
	var errs []error

	if c.Auth.Issuer == "" {
		errs = append(errs, errors.New("auth.issuer is required"))
	}
	if c.Auth.Audience == "" {
		errs = append(errs, errors.New("auth.audience is required"))
	}
	if c.Auth.JWKSURL == "" {
		errs = append(errs, errors.New("auth.jwks_url is required"))
	}
	if len(c.Auth.Algorithms) == 0 {
		errs = append(errs, errors.New("auth.algorithms must not be empty"))
	}
	for _, alg := range c.Auth.Algorithms {
		if _, ok := supportedAlgorithms[alg]; !ok {
			errs = append(errs, fmt.Errorf("auth.algorithms: unsupported algorithm %q", alg))
		}
	}
	if c.Auth.FetchTimeout <= 0 {
		errs = append(errs, errors.New("auth.fetch_timeout must be positive"))
	}
	if c.Auth.FetchRetries < 0 {
		errs = append(errs, errors.New("auth.fetch_retries must not be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
