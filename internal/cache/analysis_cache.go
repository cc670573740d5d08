// Package cache provides a Redis-backed shared cache for trade-analysis
// results, keyed by the analyzer's content hash. It degrades gracefully:
// when Redis is unavailable every lookup is a miss and the controller
// falls back to recomputing, which is always correct.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"adaptive-trading-bot/internal/analyzer"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	analysisKeyFormat  = "adaptive:analysis:%016x"
	defaultAnalysisTTL = 6 * time.Hour
)

// Config holds Redis connection settings.
type Config struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	PoolSize int    `json:"pool_size"`
}

// AnalysisCache is the shared L2 behind the controller's local memo slot.
type AnalysisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewAnalysisCache connects to Redis. A failed initial ping is logged but
// not fatal; the cache simply starts in a degraded state.
func NewAnalysisCache(cfg Config, logger zerolog.Logger) (*AnalysisCache, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	c := &AnalysisCache{
		client: client,
		ttl:    defaultAnalysisTTL,
		logger: logger.With().Str("component", "analysis_cache").Logger(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("Initial Redis connection failed, cache degraded")
	}

	return c, nil
}

// Get looks up a cached analysis result. Any Redis error is a miss.
func (c *AnalysisCache) Get(ctx context.Context, hash uint64) (*analyzer.Result, bool) {
	data, err := c.client.Get(ctx, fmt.Sprintf(analysisKeyFormat, hash)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug().Err(err).Msg("Cache lookup failed")
		}
		return nil, false
	}

	var result analyzer.Result
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn().Err(err).Msg("Corrupt cache entry, treating as miss")
		return nil, false
	}
	return &result, true
}

// Set stores an analysis result with the default TTL. Failures are logged
// and swallowed; the local memo slot still covers the hot path.
func (c *AnalysisCache) Set(ctx context.Context, hash uint64, result *analyzer.Result) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Failed to marshal analysis result")
		return
	}

	if err := c.client.Set(ctx, fmt.Sprintf(analysisKeyFormat, hash), data, c.ttl).Err(); err != nil {
		c.logger.Debug().Err(err).Msg("Cache write failed")
	}
}

// Close releases the Redis connection.
func (c *AnalysisCache) Close() error {
	return c.client.Close()
}
