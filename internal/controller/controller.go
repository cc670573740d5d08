package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"adaptive-trading-bot/internal/analyzer"
	"adaptive-trading-bot/internal/ensemble"
	"adaptive-trading-bot/internal/market"
	"adaptive-trading-bot/internal/performance"
	"adaptive-trading-bot/internal/regime"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Input carries everything one controller cycle consumes. Symbols fixes
// the iteration order; the first symbol's regime becomes the primary one.
type Input struct {
	Symbols []string
	Candles map[string][]market.Candle
	Trades  []market.TradeRecord
	Equity  []float64
}

// AnalysisCache is an optional shared second-level cache for analyzer
// results keyed by content hash. Misses and errors are equivalent; the
// controller always has its local memo slot.
type AnalysisCache interface {
	Get(ctx context.Context, hash uint64) (*analyzer.Result, bool)
	Set(ctx context.Context, hash uint64, result *analyzer.Result)
}

// Config holds controller tuning knobs.
type Config struct {
	MinTradesForAnalysis int `json:"min_trades_for_analysis"`
	RegimeHistoryCap     int `json:"regime_history_cap"`
}

// memoSlot is the explicit (hash, result) cache for trade analysis. The
// invalidation rule is visible here: identical recent-trade content hash
// means the prior result is reused verbatim.
type memoSlot struct {
	hash   uint64
	result *analyzer.Result
}

// Controller orchestrates one adaptive cycle: regime detection per symbol,
// cached trade analysis, regime-adjusted ensemble weights, and an audit
// explanation. It owns its sub-components; nothing is shared by reference
// across controller instances, so multiple sessions can run isolated
// adaptive loops.
type Controller struct {
	cfg      Config
	detector *regime.Detector
	tracker  *performance.Tracker
	analyzer *analyzer.TradeAnalyzer
	ensemble *ensemble.DynamicEnsemble
	shared   AnalysisCache

	mu            sync.RWMutex
	memo          memoSlot
	regimeHistory []regime.State
	latest        *Decision

	logger zerolog.Logger
}

// New creates a controller. Construction is the only place the controller
// fails fast; per-cycle data problems degrade to neutral defaults instead.
func New(
	cfg Config,
	detector *regime.Detector,
	tracker *performance.Tracker,
	tradeAnalyzer *analyzer.TradeAnalyzer,
	dynamicEnsemble *ensemble.DynamicEnsemble,
	shared AnalysisCache,
	logger zerolog.Logger,
) (*Controller, error) {
	if detector == nil || tracker == nil || tradeAnalyzer == nil || dynamicEnsemble == nil {
		return nil, fmt.Errorf("controller requires detector, tracker, analyzer and ensemble")
	}
	if cfg.MinTradesForAnalysis <= 0 {
		cfg.MinTradesForAnalysis = analyzer.DefaultMinTrades
	}
	if cfg.RegimeHistoryCap <= 0 {
		cfg.RegimeHistoryCap = 100
	}

	return &Controller{
		cfg:      cfg,
		detector: detector,
		tracker:  tracker,
		analyzer: tradeAnalyzer,
		ensemble: dynamicEnsemble,
		shared:   shared,
		logger:   logger.With().Str("component", "adaptive_controller").Logger(),
	}, nil
}

// Step runs one adaptive cycle and returns an immutable decision.
func (c *Controller) Step(ctx context.Context, in Input) *Decision {
	started := time.Now()

	// 1. Regime per symbol; the first symbol's regime is primary. This is
	// a documented simplification, not a cross-symbol aggregate.
	symbolRegimes := make(map[string]regime.State, len(in.Symbols))
	primary := regime.State{Regime: regime.RegimeInsufficientData}
	primarySymbol := ""
	for i, symbol := range in.Symbols {
		state := c.detector.Detect(in.Candles[symbol])
		symbolRegimes[symbol] = state
		if i == 0 {
			primary = state
			primarySymbol = symbol
		}
	}
	c.appendRegimeHistory(primary)

	// 2. Trade analysis, short-circuited by content hash
	analysis := c.analyzeTrades(ctx, in.Trades)

	// 3. Per-strategy performance snapshot
	perf := make(map[string]performance.Summary)
	for _, name := range c.tracker.Strategies() {
		perf[name] = c.tracker.Performance(name)
	}

	// 4. Snapshot the previously learned weights, then fold this cycle's
	// regime and performance into the stored ensemble weights. The primary
	// symbol's candles drive the update, consistent with the primary
	// regime above.
	learned := c.ensemble.Weights()
	adjusted := c.ensemble.UpdateWeights(in.Candles[primarySymbol], perf)

	// 5. Optional equity summary
	var equitySummary *performance.EquitySummary
	if len(in.Equity) > 0 {
		summary := performance.SummarizeEquity(in.Equity)
		equitySummary = &summary
	}

	decision := &Decision{
		ID:               uuid.NewString(),
		Regime:           primary.Regime,
		RegimeConfidence: primary.Confidence,
		SymbolRegimes:    symbolRegimes,
		AdjustedWeights:  adjusted,
		Recommendations:  analysis.Recommendations,
		Anomalies:        analysis.Anomalies,
		Performance:      equitySummary,
		CreatedAt:        started,
	}
	decision.Explanation = c.explain(in, primary, symbolRegimes, perf, learned, adjusted, equitySummary)

	c.mu.Lock()
	c.latest = decision
	c.mu.Unlock()

	c.logger.Info().
		Str("decision_id", decision.ID).
		Str("regime", string(decision.Regime)).
		Float64("confidence", decision.RegimeConfidence).
		Int("anomalies", len(decision.Anomalies)).
		Dur("took", time.Since(started)).
		Msg("Adaptive cycle complete")

	return decision
}

// analyzeTrades runs the trade analyzer behind the content-hash memo. The
// hash covers exactly the fields the analysis reads, so a hit can never be
// stale; recomputation is deterministic for identical inputs.
func (c *Controller) analyzeTrades(ctx context.Context, trades []market.TradeRecord) analyzer.Result {
	if len(trades) < c.cfg.MinTradesForAnalysis {
		return analyzer.Result{
			Anomalies:       []string{},
			Recommendations: map[string]float64{},
		}
	}

	hash := c.analyzer.ContentHash(trades)

	c.mu.RLock()
	memo := c.memo
	c.mu.RUnlock()

	if memo.result != nil && memo.hash == hash {
		c.logger.Debug().Uint64("hash", hash).Msg("Trade analysis memo hit")
		return *memo.result
	}

	if c.shared != nil {
		if cached, ok := c.shared.Get(ctx, hash); ok {
			c.storeMemo(hash, cached)
			return *cached
		}
	}

	result := c.analyzer.Analyze(trades)
	c.storeMemo(hash, &result)
	if c.shared != nil {
		c.shared.Set(ctx, hash, &result)
	}
	return result
}

func (c *Controller) storeMemo(hash uint64, result *analyzer.Result) {
	c.mu.Lock()
	c.memo = memoSlot{hash: hash, result: result}
	c.mu.Unlock()
}

// appendRegimeHistory appends and hard-trims once the history exceeds
// 1.5x the configured cap.
func (c *Controller) appendRegimeHistory(state regime.State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.regimeHistory = append(c.regimeHistory, state)
	if limit := c.cfg.RegimeHistoryCap + c.cfg.RegimeHistoryCap/2; len(c.regimeHistory) > limit {
		c.regimeHistory = c.regimeHistory[len(c.regimeHistory)-c.cfg.RegimeHistoryCap:]
	}
}

// RegimeHistory returns a copy of the bounded regime history.
func (c *Controller) RegimeHistory() []regime.State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	history := make([]regime.State, len(c.regimeHistory))
	copy(history, c.regimeHistory)
	return history
}

// LatestDecision returns the most recent decision, nil before the first
// cycle.
func (c *Controller) LatestDecision() *Decision {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// CurrentWeights exposes the ensemble's learned weights.
func (c *Controller) CurrentWeights() ensemble.Weights {
	return c.ensemble.Weights()
}

// explain assembles the JSON-serializable audit trail for one cycle.
func (c *Controller) explain(
	in Input,
	primary regime.State,
	symbolRegimes map[string]regime.State,
	perf map[string]performance.Summary,
	learned, adjusted ensemble.Weights,
	equity *performance.EquitySummary,
) map[string]interface{} {
	regimes := make(map[string]interface{}, len(symbolRegimes))
	for symbol, state := range symbolRegimes {
		regimes[symbol] = map[string]interface{}{
			"regime":     string(state.Regime),
			"confidence": state.Confidence,
			"atr_ratio":  state.ATRRatio,
			"volatility": state.Volatility,
		}
	}

	strategies := make(map[string]interface{}, len(perf))
	for name, summary := range perf {
		strategies[name] = map[string]interface{}{
			"win_rate":           summary.WinRate,
			"profit_factor":      summary.ProfitFactor,
			"sharpe_ratio":       summary.SharpeRatio,
			"max_drawdown_pct":   summary.MaxDrawdownPct,
			"consecutive_losses": summary.ConsecutiveLosses,
			"total_trades":       summary.TotalTrades,
		}
	}

	explanation := map[string]interface{}{
		"primary_regime": map[string]interface{}{
			"regime":     string(primary.Regime),
			"confidence": primary.Confidence,
		},
		"symbol_regimes":   regimes,
		"strategies":       strategies,
		"learned_weights":  learned,
		"adjusted_weights": adjusted,
		"trades_supplied":  len(in.Trades),
	}
	if equity != nil {
		explanation["performance"] = map[string]interface{}{
			"total_return":     equity.TotalReturn,
			"sharpe_ratio":     equity.SharpeRatio,
			"max_drawdown_pct": equity.MaxDrawdownPct,
		}
	}
	return explanation
}
