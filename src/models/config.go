package models

// MConfig Structure
type MConfig struct {
	Name     string         `yaml:"name"`
	Host     string         `yaml:"host"`
	Port     int            `yaml:"port"`
	LogLevel string         `yaml:"log_level"`
	GrpcHost string         `yaml:"grpc_host"`
	GrpcPort int            `yaml:"grpc_port"`
	API      MAPIConfig     `yaml:"api"`
	Refresh  MRefreshConfig `yaml:"refresh"`
	Network  MNetworkConfig `yaml:"network"`
	Display  MDisplayConfig `yaml:"display"`
	Storage  MStorageConfig `yaml:"storage"`
	Publish  MPublishConfig `yaml:"publish"`
	Market   MMarketConfig  `yaml:"market"`
}

type MAPIConfig struct {
	BaseURL              string `yaml:"base_url"`
	PortfolioValuePath   string `yaml:"portfolio_value_path"`
	StockPerformancePath string `yaml:"stock_performance_path"`
	PortfolioStatsPath   string `yaml:"portfolio_stats_path"`
	HistoryDays          int    `yaml:"history_days"` // sent as ?days= when > 0
}

type MRefreshConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"` // seconds, 0 means no timeout
	UserAgent      string `yaml:"user_agent"`
	Proxy          string `yaml:"proxy"`
}

type MDisplayConfig struct {
	Currency string `yaml:"currency"`
	Locale   string `yaml:"locale"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	RetentionDays      int    `yaml:"retention_days"`
}

type MPublishConfig struct {
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	Channel       string `yaml:"channel"`
}

type MMarketConfig struct {
	MIC string `yaml:"mic"`
}
