// Package config handles loading and validation of service configuration.
// Supports both development (env vars or a config file) and production
// (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"gopkg.in/yaml.v3"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/shopify"
	"storefront/internal/storage"
	"storefront/internal/storefront"
)

// Config holds all service configuration.
// Environment determines whether secrets load from env vars (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	StoreID    string // Secret name holding the store credentials

	Shopify ShopifyConfig
	Storage StorageConfig

	CacheTTL                 time.Duration
	SessionIdleTTL           time.Duration
	CartOrdering             cart.Ordering
	ClearTokenOnFetchFailure bool
}

// ShopifyConfig locates the Storefront API.
type ShopifyConfig struct {
	StoreDomain     string `json:"store_domain" yaml:"store_domain"`
	StorefrontToken string `json:"storefront_token" yaml:"storefront_token"`
	APIVersion      string `json:"api_version,omitempty" yaml:"api_version,omitempty"`
	ChromeTLS       bool   `json:"chrome_tls,omitempty" yaml:"chrome_tls,omitempty"`
}

// StorageConfig selects the visitor state backend.
type StorageConfig struct {
	Backend       string `json:"backend" yaml:"backend"`
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	DatabaseURL   string `json:"database_url,omitempty" yaml:"database_url,omitempty"`
	SQLitePath    string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`
}

// Options converts to storage.Open options.
func (s StorageConfig) Options() storage.Options {
	return storage.Options{
		Backend:       s.Backend,
		RedisAddr:     s.RedisAddr,
		RedisPassword: s.RedisPassword,
		DatabaseURL:   s.DatabaseURL,
		SQLitePath:    s.SQLitePath,
	}
}

// secretPayload is the JSON stored in Secret Manager.
// Only credentials live there; everything else comes from env vars.
type secretPayload struct {
	StorefrontToken string `json:"storefront_token"`
	RedisPassword   string `json:"redis_password,omitempty"`
	DatabaseURL     string `json:"database_url,omitempty"`
}

// fileConfig matches the CONFIG_FILE layout. Durations are Go duration
// strings ("5m").
type fileConfig struct {
	Port                     string        `json:"port" yaml:"port"`
	Environment              string        `json:"environment" yaml:"environment"`
	LogLevel                 string        `json:"log_level" yaml:"log_level"`
	Shopify                  ShopifyConfig `json:"shopify" yaml:"shopify"`
	Storage                  StorageConfig `json:"storage" yaml:"storage"`
	CacheTTL                 string        `json:"cache_ttl" yaml:"cache_ttl"`
	SessionIdleTTL           string        `json:"session_idle_ttl" yaml:"session_idle_ttl"`
	CartOrdering             string        `json:"cart_ordering" yaml:"cart_ordering"`
	ClearTokenOnFetchFailure bool          `json:"clear_token_on_fetch_failure" yaml:"clear_token_on_fetch_failure"`
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	// If CONFIG_FILE is set, load everything from the file
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		StoreID:     os.Getenv("STORE_ID"),
		Shopify: ShopifyConfig{
			StoreDomain: os.Getenv("SHOPIFY_STORE_DOMAIN"),
			APIVersion:  envOrDefault("SHOPIFY_API_VERSION", shopify.DefaultAPIVersion),
		},
		Storage: StorageConfig{
			Backend:     envOrDefault("STORAGE_BACKEND", storage.BackendMemory),
			RedisAddr:   os.Getenv("REDIS_ADDR"),
			SQLitePath:  os.Getenv("SQLITE_PATH"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
	}

	var err error
	if cfg.Shopify.ChromeTLS, err = envBool("SHOPIFY_CHROME_TLS"); err != nil {
		return nil, err
	}
	if cfg.ClearTokenOnFetchFailure, err = envBool("CLEAR_TOKEN_ON_FETCH_FAILURE"); err != nil {
		return nil, err
	}
	if err := cfg.applyTuning(os.Getenv("CACHE_TTL"), os.Getenv("SESSION_IDLE_TTL"), os.Getenv("CART_ORDERING")); err != nil {
		return nil, err
	}

	// Load credentials based on environment
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if cfg.StoreID == "" {
			return nil, fmt.Errorf("STORE_ID required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading store credentials: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromFile reads all configuration from a JSON or YAML file, chosen by
// extension. Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &fc)
	default:
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:                     withDefault(fc.Port, "8080"),
		Environment:              withDefault(fc.Environment, "development"),
		LogLevel:                 withDefault(fc.LogLevel, "info"),
		Shopify:                  fc.Shopify,
		Storage:                  fc.Storage,
		ClearTokenOnFetchFailure: fc.ClearTokenOnFetchFailure,
	}
	cfg.Shopify.APIVersion = withDefault(cfg.Shopify.APIVersion, shopify.DefaultAPIVersion)
	cfg.Storage.Backend = withDefault(cfg.Storage.Backend, storage.BackendMemory)

	if err := cfg.applyTuning(fc.CacheTTL, fc.SessionIdleTTL, fc.CartOrdering); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyTuning parses the optional cache, session and ordering settings.
// Empty values keep the package defaults.
func (c *Config) applyTuning(cacheTTL, idleTTL, ordering string) error {
	c.CacheTTL = catalog.DefaultTTL
	c.SessionIdleTTL = storefront.DefaultIdleTTL

	if cacheTTL != "" {
		d, err := time.ParseDuration(cacheTTL)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid cache_ttl %q: must be a positive duration", cacheTTL)
		}
		c.CacheTTL = d
	}
	if idleTTL != "" {
		d, err := time.ParseDuration(idleTTL)
		if err != nil || d <= 0 {
			return fmt.Errorf("invalid session_idle_ttl %q: must be a positive duration", idleTTL)
		}
		c.SessionIdleTTL = d
	}

	o, err := cart.ParseOrdering(ordering)
	if err != nil {
		return fmt.Errorf("invalid cart_ordering: %w", err)
	}
	c.CartOrdering = o
	return nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// loadFromSecretManager fetches store credentials from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{store_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.StoreID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	return c.applySecret(result.Payload.Data)
}

// applySecret merges the secret JSON into the configuration.
// Env-provided storage credentials win over the secret.
func (c *Config) applySecret(data []byte) error {
	var s secretPayload
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	c.Shopify.StorefrontToken = s.StorefrontToken
	c.Storage.RedisPassword = withDefault(c.Storage.RedisPassword, s.RedisPassword)
	c.Storage.DatabaseURL = withDefault(c.Storage.DatabaseURL, s.DatabaseURL)
	return nil
}

// loadFromEnv reads credentials from individual environment variables.
// Used in development mode for local testing.
func (c *Config) loadFromEnv() {
	c.Shopify.StorefrontToken = os.Getenv("SHOPIFY_STOREFRONT_TOKEN")
	c.Storage.RedisPassword = os.Getenv("REDIS_PASSWORD")
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Shopify.StoreDomain == "" {
		return fmt.Errorf("store_domain is required")
	}
	if strings.Contains(strings.TrimPrefix(c.Shopify.StoreDomain, "https://"), "/") {
		return fmt.Errorf("invalid store_domain %q: want a host such as shop.myshopify.com", c.Shopify.StoreDomain)
	}
	if c.Shopify.StorefrontToken == "" {
		return fmt.Errorf("storefront_token is required")
	}

	switch c.Storage.Backend {
	case storage.BackendMemory:
	case storage.BackendRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("redis_addr is required for the redis backend")
		}
	case storage.BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for the postgres backend")
		}
	case storage.BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// envBool parses a boolean environment variable; unset means false.
func envBool(key string) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, val, err)
	}
	return b, nil
}
