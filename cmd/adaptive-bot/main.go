package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"adaptive-trading-bot/config"
	"adaptive-trading-bot/internal/analyzer"
	"adaptive-trading-bot/internal/api"
	"adaptive-trading-bot/internal/bot"
	"adaptive-trading-bot/internal/cache"
	"adaptive-trading-bot/internal/controller"
	"adaptive-trading-bot/internal/ensemble"
	"adaptive-trading-bot/internal/optimizer"
	"adaptive-trading-bot/internal/performance"
	"adaptive-trading-bot/internal/regime"
	"adaptive-trading-bot/internal/store"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger := newLogger(cfg.LoggingConfig)
	logger.Info().Str("config", *configPath).Msg("Adaptive bot starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Strategy registry
	registry := ensemble.NewRegistry()
	builtins := ensemble.BuiltinStrategies()
	for _, name := range cfg.AdaptiveConfig.Strategies {
		build, ok := builtins[name]
		if !ok {
			logger.Fatal().Str("strategy", name).Msg("Unknown strategy in configuration")
		}
		if err := registry.Register(build()); err != nil {
			logger.Fatal().Err(err).Msg("Failed to register strategy")
		}
	}
	logger.Info().Strs("strategies", registry.Names()).Msg("Strategies registered")

	// Core components
	detector := regime.NewDetector(logger)
	tracker := performance.NewTracker(cfg.AdaptiveConfig.PerformanceWindowSize, logger)
	tradeAnalyzer := analyzer.NewTradeAnalyzer(cfg.AdaptiveConfig.Controller.MinTradesForAnalysis, logger)
	dynamicEnsemble := ensemble.NewDynamicEnsemble(registry, detector, logger)

	// Optional shared Redis analysis cache
	var sharedCache controller.AnalysisCache
	if cfg.RedisConfig.Enabled {
		analysisCache, err := cache.NewAnalysisCache(cfg.RedisConfig, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis cache unavailable, running without shared cache")
		} else {
			sharedCache = analysisCache
			defer analysisCache.Close()
		}
	}

	ctrl, err := controller.New(
		cfg.AdaptiveConfig.Controller,
		detector, tracker, tradeAnalyzer, dynamicEnsemble,
		sharedCache, logger,
	)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create adaptive controller")
	}

	// Optional PostgreSQL persistence
	var repo *store.Repository
	if cfg.DatabaseConfig.Enabled {
		db, err := store.NewDB(cfg.DatabaseConfig, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()

		repo = store.NewRepository(db, logger)
		if err := repo.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("Failed to ensure database schema")
		}
	}

	// Candle feed
	fixturePath := cfg.AdaptiveConfig.CandleFixturePath
	if fixturePath == "" {
		fixturePath = "candles.json"
	}
	feed, err := bot.NewFixtureFeed(fixturePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load candle feed")
	}

	// Optional background optimization run
	var job *bot.OptimizerJob
	if cfg.OptimizerConfig.Enabled {
		opt, err := optimizer.New(cfg.OptimizerConfig.Search, cfg.OptimizerConfig.Ranges, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to create optimizer")
		}

		scorer := bot.NewReplayScorer(feed.All(cfg.AdaptiveConfig.Symbols[0]))
		var eliteSink bot.EliteSink
		if repo != nil {
			eliteSink = repo
		}
		job = bot.NewOptimizerJob(cfg.OptimizerConfig.Strategy, opt, scorer, eliteSink, logger)
		go job.Run(ctx)
	}

	// Read-only HTTP API
	if cfg.ServerConfig.Enabled {
		var optStatus api.OptimizerStatus
		if job != nil {
			optStatus = job
		}
		server := api.NewServer(cfg.ServerConfig, ctrl, optStatus, logger)
		go func() {
			if err := server.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("API server stopped")
			}
		}()
	}

	// Adaptive loop
	var tradeSource bot.TradeSource
	var decisionSink bot.DecisionSink
	if repo != nil {
		tradeSource = repo
		decisionSink = repo
	}
	runner := bot.NewRunner(bot.RunnerConfig{
		Symbols:           cfg.AdaptiveConfig.Symbols,
		TickInterval:      cfg.AdaptiveConfig.TickInterval(),
		TradeHistoryLimit: cfg.AdaptiveConfig.TradeHistoryLimit,
	}, ctrl, tracker, feed, tradeSource, decisionSink, logger)

	go func() {
		if err := runner.Run(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("Runner stopped")
		}
	}()

	// Block until shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	cancel()
}

// newLogger builds the process logger from the logging configuration.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out *os.File
	switch cfg.Output {
	case "stderr":
		out = os.Stderr
	default:
		out = os.Stdout
	}

	if cfg.JSONFormat {
		return zerolog.New(out).Level(level).With().Timestamp().Logger()
	}
	writer := zerolog.ConsoleWriter{Out: out}
	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
