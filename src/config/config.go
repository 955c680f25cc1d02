package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"portfolio-dashboard/src/helpers"
	"portfolio-dashboard/src/models"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the YAML file.
const (
	EnvAPIBaseURL         = "DASHBOARD_API_BASE_URL"
	EnvRefreshInterval    = "DASHBOARD_REFRESH_INTERVAL_SECONDS"
	EnvDBConnectionString = "DASHBOARD_DB_CONNECTION_STRING"
	EnvRedisAddr          = "DASHBOARD_REDIS_ADDR"
	EnvLogLevel           = "DASHBOARD_LOG_LEVEL"
)

// DefaultRefreshIntervalSeconds is the dashboard polling period (5 minutes).
const DefaultRefreshIntervalSeconds = 300

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config from a YAML file, a sibling .env file and the
// process environment, in increasing order of precedence.
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. .env is optional, a missing file is not an error
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	return Parse(data, os.LookupEnv)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from YAML bytes and an environment lookup.
func Parse(data []byte, lookupEnv func(string) (string, bool)) (*Config, error) {
	modelConfig := Defaults()
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}

	if err := config.applyEnv(lookupEnv); err != nil {
		return nil, err
	}

	// Validate the loaded configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

// Defaults returns the configuration used for every key the YAML omits.
func Defaults() models.MConfig {
	return models.MConfig{
		Name:     "portfolio-dashboard",
		Host:     "127.0.0.1",
		Port:     8000,
		LogLevel: "INFO",
		GrpcPort: 50051,
		API: models.MAPIConfig{
			BaseURL:              "http://127.0.0.1:5000",
			PortfolioValuePath:   "/api/portfolio/value",
			StockPerformancePath: "/api/stocks/performance",
			PortfolioStatsPath:   "/api/portfolio/stats",
			HistoryDays:          30,
		},
		Refresh: models.MRefreshConfig{
			IntervalSeconds: DefaultRefreshIntervalSeconds,
		},
		Network: models.MNetworkConfig{
			UserAgent: "portfolio-dashboard/1.0",
		},
		Display: models.MDisplayConfig{
			Currency: money.USD,
			Locale:   "en-US",
		},
		Storage: models.MStorageConfig{
			DBType:        "none",
			RetentionDays: 30,
		},
		Publish: models.MPublishConfig{
			Channel: "portfolio-dashboard",
		},
		Market: models.MMarketConfig{
			MIC: "xnys",
		},
	}
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) error {
	if v, ok := lookupEnv(EnvAPIBaseURL); ok && v != "" {
		c.API.BaseURL = v
	}
	if v, ok := lookupEnv(EnvRefreshInterval); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s '%s': %w", EnvRefreshInterval, v, err)
		}
		c.Refresh.IntervalSeconds = n
	}
	if v, ok := lookupEnv(EnvDBConnectionString); ok && v != "" {
		c.Storage.DBConnectionString = v
	}
	if v, ok := lookupEnv(EnvRedisAddr); ok && v != "" {
		c.Publish.RedisAddr = v
	}
	if v, ok := lookupEnv(EnvLogLevel); ok && v != "" {
		c.LogLevel = v
	}
	return nil
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Server
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort < 0 || c.GrpcPort > 65535 {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	// API
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api base url '%s' must be an absolute http(s) url", c.API.BaseURL)
	}
	for name, p := range map[string]string{
		"portfolio_value_path":   c.API.PortfolioValuePath,
		"stock_performance_path": c.API.StockPerformancePath,
		"portfolio_stats_path":   c.API.PortfolioStatsPath,
	} {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("api %s '%s' must start with '/'", name, p)
		}
	}
	if c.API.HistoryDays < 0 {
		return fmt.Errorf("history days cannot be negative")
	}

	// Refresh
	if c.Refresh.IntervalSeconds <= 0 {
		return fmt.Errorf("refresh interval must be greater than 0")
	}

	// Network
	if c.Network.RequestTimeout < 0 {
		return fmt.Errorf("request timeout cannot be negative")
	}
	if c.Network.Proxy != "" {
		if !helpers.ValidateProxy(c.Network.Proxy) {
			return fmt.Errorf("invalid proxy url '%s'", c.Network.Proxy)
		}
	}

	// Display
	if money.GetCurrency(c.Display.Currency) == nil {
		return fmt.Errorf("unknown display currency '%s'", c.Display.Currency)
	}

	// Storage
	switch c.Storage.DBType {
	case "none":
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres", "mysql":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("database connection string cannot be empty for %s", c.Storage.DBType)
		}
	default:
		return fmt.Errorf("unsupported database type '%s'", c.Storage.DBType)
	}
	if c.Storage.RetentionDays <= 0 {
		return fmt.Errorf("data retention days must be greater than 0")
	}

	// Publish
	if c.Publish.RedisAddr != "" && c.Publish.Channel == "" {
		return fmt.Errorf("publish channel cannot be empty when redis is enabled")
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	data, err := c.YAML()
	if err != nil {
		return err
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

// YAML returns the effective configuration as YAML
func (c *Config) YAML() ([]byte, error) {
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config to YAML: %w", err)
	}
	return data, nil
}
