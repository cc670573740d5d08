package indicators

import (
	"math"
	"testing"

	"adaptive-trading-bot/internal/market"
)

// closesToCandles builds candles with a fixed high/low band around each
// close so ATR inputs stay predictable.
func closesToCandles(closes []float64, band float64) []market.Candle {
	candles := make([]market.Candle, len(closes))
	for i, c := range closes {
		candles[i] = market.Candle{
			OpenTime:  int64(i),
			Open:      c,
			High:      c + band/2,
			Low:       c - band/2,
			Close:     c,
			CloseTime: int64(i + 1),
		}
	}
	return candles
}

func TestSMAOverTrailingWindow(t *testing.T) {
	candles := closesToCandles([]float64{1, 2, 3, 4, 5}, 0)

	if got := SMA(candles, 3); got != 4 {
		t.Errorf("SMA(3) = %f, want 4", got)
	}
	if got := SMA(candles, 10); got != 0 {
		t.Errorf("SMA with short input = %f, want 0", got)
	}
}

func TestATRConstantRange(t *testing.T) {
	// Flat closes with a constant 1.0 high-low band: every true range is 1
	closes := make([]float64, 20)
	for i := range closes {
		closes[i] = 100
	}
	candles := closesToCandles(closes, 1.0)

	if got := ATR(candles, 14); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("ATR = %f, want 1.0", got)
	}
}

func TestRSIBounds(t *testing.T) {
	rising := closesToCandles([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0)
	if got := RSI(rising, 5); got != 100 {
		t.Errorf("RSI of all gains = %f, want 100", got)
	}

	// Alternating equal up and down moves balance gains and losses
	balanced := closesToCandles([]float64{10, 11, 10, 11, 10, 11, 10, 11, 10}, 0)
	if got := RSI(balanced, 4); math.Abs(got-50) > 1e-9 {
		t.Errorf("RSI of balanced moves = %f, want 50", got)
	}

	short := closesToCandles([]float64{1, 2}, 0)
	if got := RSI(short, 14); got != 50 {
		t.Errorf("RSI with short input = %f, want neutral 50", got)
	}
}

func TestMACDDirection(t *testing.T) {
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}
	rising := closesToCandles(closes, 0)

	result := MACD(rising, 12, 26, 9)
	if result.MACD <= 0 {
		t.Errorf("Rising series should give positive MACD line, got %f", result.MACD)
	}
	if result.Histogram <= 0 {
		t.Errorf("Rising series should give positive histogram, got %f", result.Histogram)
	}

	short := closesToCandles(closes[:10], 0)
	if got := MACD(short, 12, 26, 9); got != (MACDResult{}) {
		t.Errorf("Short input should give zero MACD result, got %+v", got)
	}
}

func TestReturnsZeroGuard(t *testing.T) {
	candles := closesToCandles([]float64{0, 10, 11}, 0)

	returns := Returns(candles)
	if len(returns) != 2 {
		t.Fatalf("Expected 2 returns, got %d", len(returns))
	}
	if returns[0] != 0 {
		t.Errorf("Zero previous close must yield a zero return, got %f", returns[0])
	}
	if math.Abs(returns[1]-0.1) > 1e-9 {
		t.Errorf("Expected return 0.1, got %f", returns[1])
	}
}

func TestStdDevFewSamples(t *testing.T) {
	if got := StdDev([]float64{1.5}); got != 0 {
		t.Errorf("StdDev of one sample = %f, want 0", got)
	}
	if got := StdDev([]float64{2, 2, 2, 2}); got != 0 {
		t.Errorf("StdDev of constant series = %f, want 0", got)
	}
}
