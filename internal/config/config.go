package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Broker   Broker   `mapstructure:"broker"`
	Engine   Engine   `mapstructure:"engine"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
}

// Broker holds the configuration for the broker gateway.
type Broker struct {
	BaseURL        string  `mapstructure:"base_url"`
	ApiKey         string  `mapstructure:"apiKey"`
	SecretKey      string  `mapstructure:"secretKey"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Server holds the configuration for the monitoring HTTP server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Engine holds the configuration for the order state engine.
type Engine struct {
	// ScanTimeout bounds the order-id resolution fallback that polls the
	// broker order book after a placement response without an id.
	ScanTimeout      time.Duration `mapstructure:"scan_timeout"`
	ScanPollInterval time.Duration `mapstructure:"scan_poll_interval"`
	// SyncInterval is how often the scheduler reconciles local state
	// against the broker order book.
	SyncInterval time.Duration `mapstructure:"sync_interval"`
	// PendingStaleness marks reloaded pending orders that must be
	// reconciled before any new order is placed.
	PendingStaleness time.Duration `mapstructure:"pending_staleness"`
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

	// Set default values
	viper.SetDefault("broker.rate_limit", 10) // requests per second
	viper.SetDefault("broker.rate_limit_burst", 5)
	viper.SetDefault("engine.scan_timeout", "60s")
	viper.SetDefault("engine.scan_poll_interval", "3s")
	viper.SetDefault("engine.sync_interval", "60s")
	viper.SetDefault("engine.pending_staleness", "10m")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
