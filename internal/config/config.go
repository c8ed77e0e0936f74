package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Dexscreener Dexscreener `mapstructure:"dexscreener"`
	Journal     Journal     `mapstructure:"journal"`
	Logger      Logger      `mapstructure:"logger"`
	Server      Server      `mapstructure:"server"`
	Database    Database    `mapstructure:"database"`
}

// Dexscreener holds the configuration for the market-data API client.
type Dexscreener struct {
	BaseURL        string  `mapstructure:"base_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	BulkCacheTTLMs int     `mapstructure:"bulk_cache_ttl_ms"`
	ScanCacheTTLMs int     `mapstructure:"scan_cache_ttl_ms"`
}

// Journal holds the configuration for the price-sync engine.
type Journal struct {
	SyncIntervalSec int `mapstructure:"sync_interval_sec"`
}

// Server holds the configuration for the HTTP API.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Defaults mirror the constants of the public Dexscreener API and
	// the journal's stock refresh cadence.
	viper.SetDefault("dexscreener.base_url", "https://api.dexscreener.com/latest/dex")
	viper.SetDefault("dexscreener.rate_limit", 5) // requests per second
	viper.SetDefault("dexscreener.rate_limit_burst", 2)
	viper.SetDefault("dexscreener.bulk_cache_ttl_ms", 15000)
	viper.SetDefault("dexscreener.scan_cache_ttl_ms", 30000)
	viper.SetDefault("journal.sync_interval_sec", 30)
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("database.dsn", "journal.db")
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
