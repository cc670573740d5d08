package performance

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
)

func TestNeutralDefaultsForColdStrategy(t *testing.T) {
	tracker := NewTracker(20, zerolog.Nop())

	summary := tracker.Performance("untested")

	if summary.WinRate != 0.5 {
		t.Errorf("Expected neutral win rate 0.5, got %f", summary.WinRate)
	}
	if summary.ProfitFactor != 1.0 {
		t.Errorf("Expected neutral profit factor 1.0, got %f", summary.ProfitFactor)
	}
	if summary.SharpeRatio != 0 || summary.MaxDrawdownPct != 0 {
		t.Errorf("Expected zero sharpe/drawdown, got %f / %f",
			summary.SharpeRatio, summary.MaxDrawdownPct)
	}
	if summary.ConsecutiveLosses != 0 {
		t.Errorf("Expected zero loss streak, got %d", summary.ConsecutiveLosses)
	}
}

func TestAlternatingTradesProfitFactor(t *testing.T) {
	tracker := NewTracker(20, zerolog.Nop())

	// Ten alternating trades: +100, -50, +100, -50, ...
	for i := 0; i < 5; i++ {
		tracker.RecordTrade("breakout", 100, 110, 10) // +100
		tracker.RecordTrade("breakout", 100, 95, 10)  // -50
	}

	summary := tracker.Performance("breakout")

	if summary.TotalTrades != 10 {
		t.Fatalf("Expected 10 trades in window, got %d", summary.TotalTrades)
	}
	if summary.WinRate != 0.5 {
		t.Errorf("Expected win rate 0.5, got %f", summary.WinRate)
	}
	if math.Abs(summary.ProfitFactor-2.0) > 1e-9 {
		t.Errorf("Expected profit factor 500/250=2.0, got %f", summary.ProfitFactor)
	}
	if summary.ConsecutiveLosses != 1 {
		t.Errorf("Expected trailing loss streak 1, got %d", summary.ConsecutiveLosses)
	}
}

func TestLedgerEvictionAtTwiceWindow(t *testing.T) {
	tracker := NewTracker(5, zerolog.Nop())

	for i := 0; i < 30; i++ {
		tracker.RecordTrade("scalper", 100, 101, 1)
	}

	tracker.mu.RLock()
	ledgerSize := len(tracker.ledgers["scalper"])
	tracker.mu.RUnlock()

	if ledgerSize != 10 {
		t.Errorf("Expected ledger truncated to 2x window (10), got %d", ledgerSize)
	}

	summary := tracker.Performance("scalper")
	if summary.TotalTrades != 5 {
		t.Errorf("Expected metrics over window of 5, got %d", summary.TotalTrades)
	}
}

func TestTrailingLossStreak(t *testing.T) {
	tracker := NewTracker(20, zerolog.Nop())

	tracker.RecordTrade("momentum", 100, 105, 1)
	tracker.RecordTrade("momentum", 100, 99, 1)
	tracker.RecordTrade("momentum", 100, 98, 1)
	tracker.RecordTrade("momentum", 100, 97, 1)

	summary := tracker.Performance("momentum")

	if summary.ConsecutiveLosses != 3 {
		t.Errorf("Expected loss streak 3, got %d", summary.ConsecutiveLosses)
	}
}

func TestSharpeRequiresTwoSamples(t *testing.T) {
	tracker := NewTracker(20, zerolog.Nop())

	tracker.RecordTrade("single", 100, 110, 1)

	if got := tracker.Performance("single").SharpeRatio; got != 0 {
		t.Errorf("Expected sharpe 0 with one trade, got %f", got)
	}
}

func TestSummarizeEquity(t *testing.T) {
	// Rises to 110, falls to 99, recovers: running-peak drawdown is 10%
	equity := []float64{100, 110, 99, 105}

	summary := SummarizeEquity(equity)

	if math.Abs(summary.TotalReturn-0.05) > 1e-9 {
		t.Errorf("Expected total return 0.05, got %f", summary.TotalReturn)
	}
	if math.Abs(summary.MaxDrawdownPct-10.0) > 1e-9 {
		t.Errorf("Expected max drawdown 10%%, got %f", summary.MaxDrawdownPct)
	}
	if summary.Samples != 4 {
		t.Errorf("Expected 4 samples, got %d", summary.Samples)
	}
}

func TestSummarizeEquityDegenerate(t *testing.T) {
	if got := SummarizeEquity(nil); got.TotalReturn != 0 || got.MaxDrawdownPct != 0 {
		t.Error("Empty equity series should produce a zero summary")
	}
	if got := SummarizeEquity([]float64{100}); got.TotalReturn != 0 {
		t.Error("Single-point equity series should produce a zero summary")
	}
}
