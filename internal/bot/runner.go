// Package bot wires the adaptive core into a running loop: a candle
// feed in, decisions out, with optional persistence and a background
// optimization job.
package bot

import (
	"context"
	"time"

	"adaptive-trading-bot/internal/controller"
	"adaptive-trading-bot/internal/market"
	"adaptive-trading-bot/internal/performance"

	"github.com/rs/zerolog"
)

const initialEquity = 10000.0

// TradeSource loads recently closed trades, oldest first.
type TradeSource interface {
	RecentTrades(ctx context.Context, limit int) ([]market.TradeRecord, error)
}

// DecisionSink persists decisions.
type DecisionSink interface {
	SaveDecision(ctx context.Context, d *controller.Decision) error
}

// RunnerConfig tunes the adaptive loop.
type RunnerConfig struct {
	Symbols           []string
	TickInterval      time.Duration
	TradeHistoryLimit int
}

// Runner drives the controller on a fixed tick. Trades flow from the
// trade source into the performance tracker exactly once each; the
// equity curve is rebuilt from the full trade list every cycle.
type Runner struct {
	cfg        RunnerConfig
	controller *controller.Controller
	tracker    *performance.Tracker
	feed       CandleFeed
	trades     TradeSource  // optional
	sink       DecisionSink // optional
	lastExit   time.Time
	logger     zerolog.Logger
}

// NewRunner creates the adaptive loop runner. trades and sink may be nil
// when no database is configured.
func NewRunner(
	cfg RunnerConfig,
	ctrl *controller.Controller,
	tracker *performance.Tracker,
	feed CandleFeed,
	trades TradeSource,
	sink DecisionSink,
	logger zerolog.Logger,
) *Runner {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = time.Minute
	}
	if cfg.TradeHistoryLimit <= 0 {
		cfg.TradeHistoryLimit = 200
	}
	return &Runner{
		cfg:        cfg,
		controller: ctrl,
		tracker:    tracker,
		feed:       feed,
		trades:     trades,
		sink:       sink,
		logger:     logger.With().Str("component", "runner").Logger(),
	}
}

// Run ticks until the context is cancelled. The first cycle runs
// immediately rather than waiting a full interval.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.TickInterval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Runner) tick(ctx context.Context) {
	candles := make(map[string][]market.Candle, len(r.cfg.Symbols))
	for _, symbol := range r.cfg.Symbols {
		candles[symbol] = r.feed.Candles(symbol)
	}

	trades := r.loadTrades(ctx)

	decision := r.controller.Step(ctx, controller.Input{
		Symbols: r.cfg.Symbols,
		Candles: candles,
		Trades:  trades,
		Equity:  equityCurve(trades),
	})

	if r.sink != nil {
		if err := r.sink.SaveDecision(ctx, decision); err != nil {
			r.logger.Error().Err(err).Str("decision_id", decision.ID).Msg("Failed to persist decision")
		}
	}

	r.feed.Advance()
}

// loadTrades fetches the trade history and feeds any trades not yet seen
// into the per-strategy tracker. The source returns a sliding window of
// the newest rows ordered oldest first, so new trades are identified by
// an exit-time high-water mark rather than a position in the slice.
func (r *Runner) loadTrades(ctx context.Context) []market.TradeRecord {
	if r.trades == nil {
		return nil
	}

	trades, err := r.trades.RecentTrades(ctx, r.cfg.TradeHistoryLimit)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to load trades")
		return nil
	}

	for _, trade := range trades {
		if !trade.ExitTime.After(r.lastExit) {
			continue
		}
		r.tracker.RecordTrade(trade.Strategy, trade.EntryPrice, trade.ExitPrice, trade.Quantity)
		r.lastExit = trade.ExitTime
	}

	return trades
}

// equityCurve rebuilds the account equity series from realized PnL.
func equityCurve(trades []market.TradeRecord) []float64 {
	if len(trades) == 0 {
		return nil
	}

	equity := make([]float64, 0, len(trades)+1)
	equity = append(equity, initialEquity)
	running := initialEquity
	for _, trade := range trades {
		running += trade.PnL
		equity = append(equity, running)
	}
	return equity
}
