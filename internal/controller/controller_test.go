package controller

import (
	"context"
	"math"
	"reflect"
	"testing"

	"adaptive-trading-bot/internal/analyzer"
	"adaptive-trading-bot/internal/ensemble"
	"adaptive-trading-bot/internal/market"
	"adaptive-trading-bot/internal/performance"
	"adaptive-trading-bot/internal/regime"

	"github.com/rs/zerolog"
)

// countingCache records Set calls so tests can tell a memo hit from a
// recomputation.
type countingCache struct {
	entries map[uint64]*analyzer.Result
	sets    int
}

func newCountingCache() *countingCache {
	return &countingCache{entries: make(map[uint64]*analyzer.Result)}
}

func (c *countingCache) Get(_ context.Context, hash uint64) (*analyzer.Result, bool) {
	result, ok := c.entries[hash]
	return result, ok
}

func (c *countingCache) Set(_ context.Context, hash uint64, result *analyzer.Result) {
	c.entries[hash] = result
	c.sets++
}

func newTestController(t *testing.T, cfg Config, shared AnalysisCache) *Controller {
	t.Helper()

	detector := regime.NewDetector(zerolog.Nop())
	registry := ensemble.NewRegistry()
	for _, name := range []string{ensemble.StrategyATRBreakout, ensemble.StrategyRSIReversion} {
		if err := registry.Register(ensemble.StrategyFunc{StrategyName: name}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	c, err := New(
		cfg,
		detector,
		performance.NewTracker(20, zerolog.Nop()),
		analyzer.NewTradeAnalyzer(10, zerolog.Nop()),
		ensemble.NewDynamicEnsemble(registry, detector, zerolog.Nop()),
		shared,
		zerolog.Nop(),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func flatCandles(bars int) []market.Candle {
	candles := make([]market.Candle, bars)
	for i := range candles {
		c := 100.0 + 0.05*float64(i)
		candles[i] = market.Candle{Open: c, High: c + 0.5, Low: c - 0.5, Close: c}
	}
	return candles
}

func losingTrades(n int) []market.TradeRecord {
	trades := make([]market.TradeRecord, n)
	for i := range trades {
		trades[i] = market.TradeRecord{EntryPrice: 100, ExitPrice: 99}
	}
	return trades
}

func TestNewRejectsMissingDependencies(t *testing.T) {
	if _, err := New(Config{}, nil, nil, nil, nil, nil, zerolog.Nop()); err == nil {
		t.Error("Expected constructor to fail fast without dependencies")
	}
}

func TestStepIdempotentOnIdenticalTrades(t *testing.T) {
	cache := newCountingCache()
	c := newTestController(t, Config{MinTradesForAnalysis: 10, RegimeHistoryCap: 50}, cache)

	in := Input{
		Symbols: []string{"BTCUSDT"},
		Candles: map[string][]market.Candle{"BTCUSDT": flatCandles(30)},
		Trades:  losingTrades(12),
	}

	first := c.Step(context.Background(), in)
	second := c.Step(context.Background(), in)

	if !reflect.DeepEqual(first.Anomalies, second.Anomalies) {
		t.Error("Identical trade content must yield identical anomalies")
	}
	if !reflect.DeepEqual(first.Recommendations, second.Recommendations) {
		t.Error("Identical trade content must yield identical recommendations")
	}
	if cache.sets != 1 {
		t.Errorf("Expected one analysis computation (memo hit on repeat), got %d sets", cache.sets)
	}
}

func TestStepSkipsAnalysisBelowMinimum(t *testing.T) {
	cache := newCountingCache()
	c := newTestController(t, Config{MinTradesForAnalysis: 10}, cache)

	in := Input{
		Symbols: []string{"BTCUSDT"},
		Candles: map[string][]market.Candle{"BTCUSDT": flatCandles(30)},
		Trades:  losingTrades(5),
	}

	decision := c.Step(context.Background(), in)

	if len(decision.Anomalies) != 0 || len(decision.Recommendations) != 0 {
		t.Error("Analysis should be skipped below the trade minimum")
	}
	if cache.sets != 0 {
		t.Error("Skipped analysis should not touch the shared cache")
	}
}

func TestPrimaryRegimeIsFirstSymbol(t *testing.T) {
	c := newTestController(t, Config{}, nil)

	in := Input{
		Symbols: []string{"ETHUSDT", "BTCUSDT"},
		Candles: map[string][]market.Candle{
			"ETHUSDT": flatCandles(5),  // insufficient
			"BTCUSDT": flatCandles(30), // ranging
		},
	}

	decision := c.Step(context.Background(), in)

	if decision.Regime != regime.RegimeInsufficientData {
		t.Errorf("Expected first symbol's regime as primary, got %s", decision.Regime)
	}
	if decision.SymbolRegimes["BTCUSDT"].Regime != regime.RegimeRanging {
		t.Errorf("Expected BTCUSDT RANGING, got %s", decision.SymbolRegimes["BTCUSDT"].Regime)
	}
}

func TestRegimeHistoryHardTrim(t *testing.T) {
	c := newTestController(t, Config{RegimeHistoryCap: 10}, nil)

	in := Input{
		Symbols: []string{"BTCUSDT"},
		Candles: map[string][]market.Candle{"BTCUSDT": flatCandles(30)},
	}

	// 16 cycles overflow the 1.5x cap (15) once, trimming back to 10
	for i := 0; i < 16; i++ {
		c.Step(context.Background(), in)
	}

	history := c.RegimeHistory()
	if len(history) != 10 {
		t.Errorf("Expected history trimmed to cap 10, got %d", len(history))
	}
}

func TestStepIncludesEquitySummary(t *testing.T) {
	c := newTestController(t, Config{}, nil)

	in := Input{
		Symbols: []string{"BTCUSDT"},
		Candles: map[string][]market.Candle{"BTCUSDT": flatCandles(30)},
		Equity:  []float64{100, 110, 99, 105},
	}

	decision := c.Step(context.Background(), in)

	if decision.Performance == nil {
		t.Fatal("Expected equity summary when an equity series is supplied")
	}
	if decision.Performance.MaxDrawdownPct <= 9.9 {
		t.Errorf("Expected running-peak drawdown ~10%%, got %f", decision.Performance.MaxDrawdownPct)
	}
	if _, ok := decision.Explanation["performance"]; !ok {
		t.Error("Explanation should include the performance block")
	}
}

func TestStepFoldsWeightsIntoEnsemble(t *testing.T) {
	c := newTestController(t, Config{}, nil)

	in := Input{
		Symbols: []string{"BTCUSDT"},
		Candles: map[string][]market.Candle{"BTCUSDT": flatCandles(30)},
	}

	first := c.Step(context.Background(), in)

	weights := c.CurrentWeights()
	if len(weights) == 0 {
		t.Fatal("Step must store learned weights on the ensemble")
	}
	if sum := weights.Sum(); math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("Stored weights must sum to 1, got %f", sum)
	}
	if !reflect.DeepEqual(weights, first.AdjustedWeights) {
		t.Errorf("Stored weights %v should match the decision's adjusted weights %v",
			weights, first.AdjustedWeights)
	}

	// The next cycle's learned weights are the prior cycle's adjustment
	second := c.Step(context.Background(), in)
	if !reflect.DeepEqual(second.Explanation["learned_weights"], first.AdjustedWeights) {
		t.Errorf("Expected learned weights %v, got %v",
			first.AdjustedWeights, second.Explanation["learned_weights"])
	}
}

func TestExplanationIsJSONSerializable(t *testing.T) {
	c := newTestController(t, Config{}, nil)

	in := Input{
		Symbols: []string{"BTCUSDT"},
		Candles: map[string][]market.Candle{"BTCUSDT": flatCandles(30)},
		Trades:  losingTrades(12),
	}

	decision := c.Step(context.Background(), in)

	if decision.Explanation["trades_supplied"] != 12 {
		t.Errorf("Expected trades_supplied 12, got %v", decision.Explanation["trades_supplied"])
	}
	if _, ok := decision.Explanation["adjusted_weights"]; !ok {
		t.Error("Explanation should record adjusted weights")
	}
	if _, ok := decision.Explanation["learned_weights"]; !ok {
		t.Error("Explanation should record learned weights")
	}
}
