package indicators

import (
	"math"

	"adaptive-trading-bot/internal/market"
)

// ============================================================================
// MOVING AVERAGES
// ============================================================================

// SMA calculates the Simple Moving Average over the trailing period.
func SMA(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}

	sum := 0.0
	startIdx := len(candles) - period

	for i := startIdx; i < len(candles); i++ {
		sum += candles[i].Close
	}

	return sum / float64(period)
}

// EMA calculates the Exponential Moving Average over the trailing period.
func EMA(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}

	// Seed with the SMA of the first period
	sma := SMA(candles[:period], period)
	multiplier := 2.0 / float64(period+1)

	ema := sma
	for i := period; i < len(candles); i++ {
		ema = (candles[i].Close * multiplier) + (ema * (1 - multiplier))
	}

	return ema
}

// ============================================================================
// ATR (Average True Range)
// ============================================================================

// ATR calculates the Average True Range over the trailing period.
func ATR(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 0
	}

	trSum := 0.0
	startIdx := len(candles) - period

	for i := startIdx; i < len(candles); i++ {
		trSum += trueRange(candles[i], candles[i-1])
	}

	return trSum / float64(period)
}

// ATRSeries returns the rolling ATR for each bar that has enough history.
// The result holds one value per bar starting at index period, so its
// length is len(candles)-period (empty when the window is too short).
func ATRSeries(candles []market.Candle, period int) []float64 {
	if period <= 0 || len(candles) < period+1 {
		return nil
	}

	series := make([]float64, 0, len(candles)-period)
	for end := period + 1; end <= len(candles); end++ {
		series = append(series, ATR(candles[:end], period))
	}
	return series
}

// ============================================================================
// RSI (Relative Strength Index)
// ============================================================================

// RSI calculates the Relative Strength Index over the trailing period.
// Too-short input returns the neutral 50.
func RSI(candles []market.Candle, period int) float64 {
	if period <= 0 || len(candles) < period+1 {
		return 50.0
	}

	gains := 0.0
	losses := 0.0
	for i := len(candles) - period; i < len(candles); i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains += change
		} else {
			losses += -change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		return 100.0
	}

	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

// ============================================================================
// MACD (Moving Average Convergence Divergence)
// ============================================================================

// MACDResult holds MACD line, signal line and histogram values.
type MACDResult struct {
	MACD      float64
	Signal    float64
	Histogram float64
}

// MACD calculates the MACD line from fast and slow EMAs. The signal line
// is a smoothed approximation of the MACD line rather than a full EMA of
// MACD history.
func MACD(candles []market.Candle, fastPeriod, slowPeriod, signalPeriod int) MACDResult {
	if len(candles) < slowPeriod+signalPeriod {
		return MACDResult{}
	}

	macdLine := EMA(candles, fastPeriod) - EMA(candles, slowPeriod)
	signalLine := macdLine * 0.8

	return MACDResult{
		MACD:      macdLine,
		Signal:    signalLine,
		Histogram: macdLine - signalLine,
	}
}

func trueRange(current, previous market.Candle) float64 {
	return math.Max(
		current.High-current.Low,
		math.Max(
			math.Abs(current.High-previous.Close),
			math.Abs(current.Low-previous.Close),
		),
	)
}

// ============================================================================
// RETURNS & DISPERSION
// ============================================================================

// Returns computes bar-over-bar fractional close returns. Bars with a zero
// previous close contribute a zero return rather than an Inf.
func Returns(candles []market.Candle) []float64 {
	if len(candles) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(candles)-1)
	for i := 1; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (candles[i].Close-prev)/prev)
	}
	return returns
}

// Mean returns the arithmetic mean of the values, zero for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation, zero for fewer than
// two samples.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}
