package bot

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"adaptive-trading-bot/internal/market"
	"adaptive-trading-bot/internal/optimizer"
	"adaptive-trading-bot/internal/performance"

	"github.com/rs/zerolog"
)

func writeFixture(t *testing.T, candles map[string][]market.Candle) string {
	t.Helper()

	data, err := json.Marshal(candles)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	path := filepath.Join(t.TempDir(), "candles.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func trendCandles(n int, start, step float64) []market.Candle {
	candles := make([]market.Candle, n)
	price := start
	for i := range candles {
		candles[i] = market.Candle{
			OpenTime: int64(i),
			Open:     price,
			High:     price + 1,
			Low:      price - 1,
			Close:    price,
		}
		price += step
	}
	return candles
}

func TestFixtureFeedWindowGrowsPerAdvance(t *testing.T) {
	path := writeFixture(t, map[string][]market.Candle{
		"BTCUSDT": trendCandles(100, 100, 1),
	})

	feed, err := NewFixtureFeed(path)
	if err != nil {
		t.Fatalf("NewFixtureFeed: %v", err)
	}

	first := len(feed.Candles("BTCUSDT"))
	if first != minReplayWindow {
		t.Errorf("First window should hold %d bars, got %d", minReplayWindow, first)
	}

	feed.Advance()
	if got := len(feed.Candles("BTCUSDT")); got != first+1 {
		t.Errorf("Advance should expose one more bar: %d -> %d", first, got)
	}

	if feed.Candles("UNKNOWN") != nil {
		t.Error("Unknown symbol should return nil")
	}
	if got := len(feed.All("BTCUSDT")); got != 100 {
		t.Errorf("All should ignore the cursor, got %d bars", got)
	}
}

func TestFixtureFeedWindowCapsAtSeriesEnd(t *testing.T) {
	path := writeFixture(t, map[string][]market.Candle{
		"BTCUSDT": trendCandles(65, 100, 1),
	})

	feed, err := NewFixtureFeed(path)
	if err != nil {
		t.Fatalf("NewFixtureFeed: %v", err)
	}

	for i := 0; i < 20; i++ {
		feed.Advance()
	}
	if got := len(feed.Candles("BTCUSDT")); got != 65 {
		t.Errorf("Window must cap at series length 65, got %d", got)
	}
}

func TestFixtureFeedRejectsEmptyFile(t *testing.T) {
	path := writeFixture(t, map[string][]market.Candle{})

	if _, err := NewFixtureFeed(path); err == nil {
		t.Error("Empty fixture should be rejected")
	}
	if _, err := NewFixtureFeed(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Error("Missing fixture should be rejected")
	}
}

func TestEquityCurveFromRealizedPnL(t *testing.T) {
	trades := []market.TradeRecord{
		{Strategy: "atr_breakout", PnL: 100},
		{Strategy: "rsi_reversion", PnL: -50},
	}

	equity := equityCurve(trades)
	want := []float64{10000, 10100, 10050}
	if len(equity) != len(want) {
		t.Fatalf("Expected %d equity points, got %d", len(want), len(equity))
	}
	for i, w := range want {
		if math.Abs(equity[i]-w) > 1e-9 {
			t.Errorf("equity[%d] = %f, want %f", i, equity[i], w)
		}
	}

	if equityCurve(nil) != nil {
		t.Error("No trades should give no equity curve")
	}
}

// slidingLedger serves only the newest limit trades, oldest first, the
// way the database repository does.
type slidingLedger struct {
	trades []market.TradeRecord
}

func (s *slidingLedger) RecentTrades(_ context.Context, limit int) ([]market.TradeRecord, error) {
	if len(s.trades) <= limit {
		return s.trades, nil
	}
	return s.trades[len(s.trades)-limit:], nil
}

func (s *slidingLedger) close(strategy string, pnl float64, at time.Time) {
	s.trades = append(s.trades, market.TradeRecord{
		Strategy:   strategy,
		EntryPrice: 100,
		ExitPrice:  100 + pnl,
		Quantity:   1,
		PnL:        pnl,
		ExitTime:   at,
	})
}

func TestRunnerKeepsIngestingOnceLedgerOutgrowsLimit(t *testing.T) {
	tracker := performance.NewTracker(20, zerolog.Nop())
	ledger := &slidingLedger{}
	r := NewRunner(RunnerConfig{
		Symbols:           []string{"BTCUSDT"},
		TradeHistoryLimit: 3,
	}, nil, tracker, nil, ledger, nil, zerolog.Nop())

	base := time.Now()
	for i := 0; i < 3; i++ {
		ledger.close("atr_breakout", 1, base.Add(time.Duration(i)*time.Minute))
	}
	r.loadTrades(context.Background())

	// Two more closes push the window past the limit; the oldest rows
	// fall out of the query result entirely
	for i := 3; i < 5; i++ {
		ledger.close("atr_breakout", -1, base.Add(time.Duration(i)*time.Minute))
	}
	r.loadTrades(context.Background())

	if got := tracker.Performance("atr_breakout").TotalTrades; got != 5 {
		t.Errorf("Tracker should hold all 5 closed trades, got %d", got)
	}

	// Re-reading an unchanged window must not double-count
	r.loadTrades(context.Background())
	if got := tracker.Performance("atr_breakout").TotalTrades; got != 5 {
		t.Errorf("Unchanged window re-read should record nothing, got %d trades", got)
	}
}

func TestReplayScorerIsDeterministic(t *testing.T) {
	scorer := NewReplayScorer(trendCandles(200, 100, 0.5))

	pop := optimizer.Population{
		{ID: "a", Parameters: map[string]float64{"atr_period": 14, "lookback": 20, "atr_multiplier": 0.5, "stop_loss_pct": 2}},
		{ID: "b", Parameters: map[string]float64{"atr_period": 7, "lookback": 10, "atr_multiplier": 1.5, "stop_loss_pct": 5}},
	}

	first, err := scorer.Score(context.Background(), pop)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	second, err := scorer.Score(context.Background(), pop)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("Expected 2 scored candidates, got %d and %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Outperformance != second[i].Outperformance {
			t.Errorf("Candidate %s scored %f then %f", first[i].ID, first[i].Outperformance, second[i].Outperformance)
		}
		if _, ok := first[i].Stats["strategy_return"]; !ok {
			t.Errorf("Candidate %s missing strategy_return stat", first[i].ID)
		}
	}
}

func TestReplayScorerHonorsCancellation(t *testing.T) {
	scorer := NewReplayScorer(trendCandles(200, 100, 0.5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pop := optimizer.Population{{ID: "a", Parameters: map[string]float64{}}}
	if _, err := scorer.Score(ctx, pop); err == nil {
		t.Error("Cancelled context should abort scoring")
	}
}
