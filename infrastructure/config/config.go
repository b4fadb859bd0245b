package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const envPrefix = "DEPLOYBOARD_"

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"serverAddress" validate:"required"`
	Environment   string `yaml:"environment" validate:"oneof=development staging production"`

	// Logging
	LogLevel string `yaml:"logLevel" validate:"oneof=debug info warn error"`

	// Storage
	Store StoreConfig `yaml:"store"`

	// Authentication
	Auth AuthConfig `yaml:"auth"`

	// Catalog replaces the built-in module catalog when set.
	CatalogFile string `yaml:"catalogFile"`

	CORSOrigins []string `yaml:"corsOrigins"`

	// AWS / EventBridge. Events are only forwarded when EventBusName is set.
	AWSRegion    string `yaml:"awsRegion"`
	EventBusName string `yaml:"eventBusName"`
	EventSource  string `yaml:"eventSource"`

	// Tracing endpoint for OTLP/gRPC; empty disables export.
	TracingEndpoint string `yaml:"tracingEndpoint"`

	EnableMetrics bool `yaml:"enableMetrics"`
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	Driver     string        `yaml:"driver" validate:"oneof=memory badger"`
	BadgerPath string        `yaml:"badgerPath" validate:"required_if=Driver badger"`
	DefaultTTL time.Duration `yaml:"defaultTTL" validate:"gt=0"`
}

// AuthConfig holds the static login account and token settings.
type AuthConfig struct {
	Username  string        `yaml:"username" validate:"required"`
	Password  string        `yaml:"password" validate:"required"`
	JWTSecret string        `yaml:"jwtSecret"`
	JWTIssuer string        `yaml:"jwtIssuer" validate:"required"`
	TokenTTL  time.Duration `yaml:"tokenTTL" validate:"gt=0"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		ServerAddress: ":8080",
		Environment:   "development",
		LogLevel:      "info",
		Store: StoreConfig{
			Driver:     "memory",
			BadgerPath: "data/deployboard",
			DefaultTTL: 7 * 24 * time.Hour,
		},
		Auth: AuthConfig{
			Username:  "admin",
			Password:  "admin",
			JWTSecret: "deployboard-dev-secret",
			JWTIssuer: "deployboard",
			TokenTTL:  24 * time.Hour,
		},
		CORSOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AWSRegion:     "us-east-1",
		EventSource:   "deployboard",
		EnableMetrics: true,
	}
}

// Load builds the configuration from defaults, then the YAML file at path
// (if non-empty), then DEPLOYBOARD_* environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(envPrefix + key); ok {
			if d, err := time.ParseDuration(v); err == nil {
				*dst = d
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(envPrefix + key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("SERVER_ADDRESS", &c.ServerAddress)
	str("ENVIRONMENT", &c.Environment)
	str("LOG_LEVEL", &c.LogLevel)
	str("STORE_DRIVER", &c.Store.Driver)
	str("BADGER_PATH", &c.Store.BadgerPath)
	dur("DEFAULT_TTL", &c.Store.DefaultTTL)
	str("AUTH_USERNAME", &c.Auth.Username)
	str("AUTH_PASSWORD", &c.Auth.Password)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("JWT_ISSUER", &c.Auth.JWTIssuer)
	dur("TOKEN_TTL", &c.Auth.TokenTTL)
	str("CATALOG_FILE", &c.CatalogFile)
	str("AWS_REGION", &c.AWSRegion)
	str("EVENT_BUS_NAME", &c.EventBusName)
	str("EVENT_SOURCE", &c.EventSource)
	str("TRACING_ENDPOINT", &c.TracingEndpoint)
	boolean("ENABLE_METRICS", &c.EnableMetrics)

	if v, ok := lookup(envPrefix + "CORS_ORIGINS"); ok && v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORSOrigins = origins
	}
}

var validate = validator.New()

// Validate checks field constraints and production requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if c.IsProduction() && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == Default().Auth.JWTSecret) {
		return fmt.Errorf("DEPLOYBOARD_JWT_SECRET is required in production")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret must not be empty")
	}
	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
