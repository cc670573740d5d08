package ensemble

import (
	"math"

	"adaptive-trading-bot/internal/indicators"
	"adaptive-trading-bot/internal/market"
)

// Built-in rule strategies. Each is a thin indicator wrapper; the
// interesting behavior lives in how the ensemble weights them, not in
// the rules themselves.

// ATRBreakout votes long when the latest close clears the prior 20-bar
// high by at least half an ATR, short on the mirror condition.
func ATRBreakout() StrategyFunc {
	const lookback = 20
	const atrPeriod = 14

	return StrategyFunc{
		StrategyName: StrategyATRBreakout,
		Fn: func(candles []market.Candle) Signal {
			if len(candles) < lookback+atrPeriod+1 {
				return Signal{Direction: SignalHold}
			}

			atr := indicators.ATR(candles, atrPeriod)
			if atr == 0 {
				return Signal{Direction: SignalHold}
			}

			window := candles[len(candles)-1-lookback : len(candles)-1]
			high, low := window[0].High, window[0].Low
			for _, c := range window[1:] {
				high = math.Max(high, c.High)
				low = math.Min(low, c.Low)
			}

			last := candles[len(candles)-1].Close
			diag := map[string]interface{}{"atr": atr, "range_high": high, "range_low": low}

			switch {
			case last > high+0.5*atr:
				conf := math.Min((last-high)/atr, 1.0)
				return Signal{Direction: SignalLong, Confidence: conf, Diagnostics: diag}
			case last < low-0.5*atr:
				conf := math.Min((low-last)/atr, 1.0)
				return Signal{Direction: SignalShort, Confidence: conf, Diagnostics: diag}
			default:
				return Signal{Direction: SignalHold, Diagnostics: diag}
			}
		},
	}
}

// RSIReversion fades extremes: long below 30, short above 70, with
// confidence growing toward the extreme.
func RSIReversion() StrategyFunc {
	const period = 14

	return StrategyFunc{
		StrategyName: StrategyRSIReversion,
		Fn: func(candles []market.Candle) Signal {
			if len(candles) < period+1 {
				return Signal{Direction: SignalHold}
			}

			rsi := indicators.RSI(candles, period)
			diag := map[string]interface{}{"rsi": rsi}

			switch {
			case rsi < 30:
				return Signal{Direction: SignalLong, Confidence: (30 - rsi) / 30, Diagnostics: diag}
			case rsi > 70:
				return Signal{Direction: SignalShort, Confidence: (rsi - 70) / 30, Diagnostics: diag}
			default:
				return Signal{Direction: SignalHold, Diagnostics: diag}
			}
		},
	}
}

// MACDMomentum follows the histogram sign, scaling confidence by the
// histogram relative to price.
func MACDMomentum() StrategyFunc {
	const (
		fastPeriod   = 12
		slowPeriod   = 26
		signalPeriod = 9
	)

	return StrategyFunc{
		StrategyName: StrategyMACDMomentum,
		Fn: func(candles []market.Candle) Signal {
			if len(candles) < slowPeriod+signalPeriod {
				return Signal{Direction: SignalHold}
			}

			macd := indicators.MACD(candles, fastPeriod, slowPeriod, signalPeriod)
			last := candles[len(candles)-1].Close
			diag := map[string]interface{}{"macd": macd.MACD, "histogram": macd.Histogram}

			if last == 0 || macd.Histogram == 0 {
				return Signal{Direction: SignalHold, Diagnostics: diag}
			}

			conf := math.Min(math.Abs(macd.Histogram)/last*1000, 1.0)
			if macd.Histogram > 0 {
				return Signal{Direction: SignalLong, Confidence: conf, Diagnostics: diag}
			}
			return Signal{Direction: SignalShort, Confidence: conf, Diagnostics: diag}
		},
	}
}

// BuiltinStrategies maps configured strategy names to constructors.
func BuiltinStrategies() map[string]func() StrategyFunc {
	return map[string]func() StrategyFunc{
		StrategyATRBreakout:  ATRBreakout,
		StrategyRSIReversion: RSIReversion,
		StrategyMACDMomentum: MACDMomentum,
	}
}
