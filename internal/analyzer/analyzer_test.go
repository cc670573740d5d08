package analyzer

import (
	"reflect"
	"testing"

	"adaptive-trading-bot/internal/market"

	"github.com/rs/zerolog"
)

func trade(entry, exit float64) market.TradeRecord {
	return market.TradeRecord{EntryPrice: entry, ExitPrice: exit}
}

func TestContentHashCoversLastThirtyPairs(t *testing.T) {
	a := NewTradeAnalyzer(10, zerolog.Nop())

	var older, newer []market.TradeRecord
	// 40 trades; the first ten differ between the two ledgers
	for i := 0; i < 40; i++ {
		older = append(older, trade(100+float64(i), 101+float64(i)))
		newer = append(newer, trade(100+float64(i), 101+float64(i)))
	}
	for i := 0; i < 10; i++ {
		newer[i] = trade(1, 2)
	}

	if a.ContentHash(older) != a.ContentHash(newer) {
		t.Error("Hash should ignore trades older than the 30-trade window")
	}

	// Changing a trade inside the window must change the hash
	changed := append([]market.TradeRecord(nil), older...)
	changed[35] = trade(999, 1000)
	if a.ContentHash(older) == a.ContentHash(changed) {
		t.Error("Hash should cover entry/exit pairs inside the window")
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	a := NewTradeAnalyzer(10, zerolog.Nop())

	var trades []market.TradeRecord
	for i := 0; i < 12; i++ {
		if i%3 == 0 {
			trades = append(trades, trade(100, 104))
		} else {
			trades = append(trades, trade(100, 98))
		}
	}

	first := a.Analyze(trades)
	second := a.Analyze(trades)

	if !reflect.DeepEqual(first, second) {
		t.Error("Identical ledgers must produce identical results")
	}
}

func TestAnalyzeFlagsLowWinRate(t *testing.T) {
	a := NewTradeAnalyzer(10, zerolog.Nop())

	var trades []market.TradeRecord
	for i := 0; i < 10; i++ {
		trades = append(trades, trade(100, 99)) // every trade loses 1%
	}

	result := a.Analyze(trades)

	if len(result.Anomalies) == 0 {
		t.Fatal("Expected anomalies for an all-losing ledger")
	}
	if result.Recommendations["min_confidence"] != 0.05 {
		t.Errorf("Expected min_confidence delta 0.05, got %f",
			result.Recommendations["min_confidence"])
	}
	if result.Recommendations["position_size_pct"] != -0.25 {
		t.Errorf("Expected position size cut for the loss streak, got %f",
			result.Recommendations["position_size_pct"])
	}
}

func TestAnalyzeFlagsAsymmetricExits(t *testing.T) {
	a := NewTradeAnalyzer(10, zerolog.Nop())

	// Alternating small wins and large losses, never four losses in a row
	var trades []market.TradeRecord
	for i := 0; i < 6; i++ {
		trades = append(trades, trade(100, 100.5)) // +0.5%
		trades = append(trades, trade(100, 97))    // -3%
	}

	result := a.Analyze(trades)

	if result.Recommendations["stop_loss_atr_mult"] != -0.5 {
		t.Errorf("Expected tighter stop recommendation, got %f",
			result.Recommendations["stop_loss_atr_mult"])
	}
	if result.Recommendations["take_profit_atr_mult"] != 0.5 {
		t.Errorf("Expected wider take-profit recommendation, got %f",
			result.Recommendations["take_profit_atr_mult"])
	}
}

func TestAnalyzeEmptyLedger(t *testing.T) {
	a := NewTradeAnalyzer(10, zerolog.Nop())

	result := a.Analyze(nil)

	if result.TradesAnalyzed != 0 || len(result.Anomalies) != 0 {
		t.Error("Empty ledger should yield an empty result, not an error")
	}
}
