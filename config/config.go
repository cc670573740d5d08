package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"adaptive-trading-bot/internal/api"
	"adaptive-trading-bot/internal/cache"
	"adaptive-trading-bot/internal/controller"
	"adaptive-trading-bot/internal/optimizer"
	"adaptive-trading-bot/internal/store"
)

type Config struct {
	LoggingConfig   LoggingConfig    `json:"logging"`
	AdaptiveConfig  AdaptiveConfig   `json:"adaptive"`
	OptimizerConfig OptimizerConfig  `json:"optimizer"`
	DatabaseConfig  store.Config     `json:"database"`
	RedisConfig     cache.Config     `json:"redis"`
	ServerConfig    api.ServerConfig `json:"server"`
}

type LoggingConfig struct {
	Level      string `json:"level"`       // DEBUG, INFO, WARN, ERROR
	Output     string `json:"output"`      // stdout or stderr
	JSONFormat bool   `json:"json_format"` // Output as JSON instead of console writer
}

// AdaptiveConfig tunes the adaptive control loop.
type AdaptiveConfig struct {
	Symbols               []string          `json:"symbols"`
	Strategies            []string          `json:"strategies"`
	TickIntervalSeconds   int               `json:"tick_interval_seconds"`
	PerformanceWindowSize int               `json:"performance_window_size"`
	Controller            controller.Config `json:"controller"`
	CandleFixturePath     string            `json:"candle_fixture_path"`
	TradeHistoryLimit     int               `json:"trade_history_limit"`
}

// TickInterval returns the loop interval as a duration.
func (c AdaptiveConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// OptimizerConfig wraps the genetic search tuning plus the parameter
// ranges to search, keyed by parameter name.
type OptimizerConfig struct {
	Enabled  bool                       `json:"enabled"`
	Strategy string                     `json:"strategy"`
	Search   optimizer.Config           `json:"search"`
	Ranges   map[string]optimizer.Range `json:"ranges"`
}

func Load(path string) (*Config, error) {
	cfg, err := loadFromFile(path)
	if err != nil {
		// No config file is fine; environment and defaults carry it
		cfg = &Config{}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(file, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides; these take
// precedence over the file.
func applyEnvOverrides(cfg *Config) {
	// Logging
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	if v := os.Getenv("LOG_JSON"); v != "" {
		cfg.LoggingConfig.JSONFormat = v == "true"
	}

	// Database
	if v := os.Getenv("DATABASE_ENABLED"); v != "" {
		cfg.DatabaseConfig.Enabled = v == "true"
	}
	cfg.DatabaseConfig.Host = getEnvOrDefault("DATABASE_HOST", cfg.DatabaseConfig.Host)
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DATABASE_PORT", cfg.DatabaseConfig.Port)
	cfg.DatabaseConfig.User = getEnvOrDefault("DATABASE_USER", cfg.DatabaseConfig.User)
	cfg.DatabaseConfig.Password = getEnvOrDefault("DATABASE_PASSWORD", cfg.DatabaseConfig.Password)
	cfg.DatabaseConfig.Database = getEnvOrDefault("DATABASE_NAME", cfg.DatabaseConfig.Database)
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DATABASE_SSL_MODE", cfg.DatabaseConfig.SSLMode)

	// Redis
	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		cfg.RedisConfig.Enabled = v == "true"
	}
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)

	// API server
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	if v := os.Getenv("PRODUCTION_MODE"); v != "" {
		cfg.ServerConfig.ProductionMode = v == "true"
	}
}

func applyDefaults(cfg *Config) {
	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "INFO"
	}
	if cfg.LoggingConfig.Output == "" {
		cfg.LoggingConfig.Output = "stdout"
	}

	if len(cfg.AdaptiveConfig.Symbols) == 0 {
		cfg.AdaptiveConfig.Symbols = []string{"BTCUSDT"}
	}
	if len(cfg.AdaptiveConfig.Strategies) == 0 {
		cfg.AdaptiveConfig.Strategies = []string{"atr_breakout", "rsi_reversion", "macd_momentum"}
	}
	if cfg.AdaptiveConfig.TickIntervalSeconds <= 0 {
		cfg.AdaptiveConfig.TickIntervalSeconds = 60
	}
	if cfg.AdaptiveConfig.TradeHistoryLimit <= 0 {
		cfg.AdaptiveConfig.TradeHistoryLimit = 200
	}

	if cfg.ServerConfig.Host == "" {
		cfg.ServerConfig.Host = "0.0.0.0"
	}
	if cfg.ServerConfig.Port == 0 {
		cfg.ServerConfig.Port = 8088
	}

	if cfg.DatabaseConfig.SSLMode == "" {
		cfg.DatabaseConfig.SSLMode = "disable"
	}

	if cfg.OptimizerConfig.Search.PopulationSize == 0 {
		cfg.OptimizerConfig.Search = optimizer.DefaultConfig()
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
