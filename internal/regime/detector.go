package regime

import (
	"math"
	"time"

	"adaptive-trading-bot/internal/indicators"
	"adaptive-trading-bot/internal/market"

	"github.com/rs/zerolog"
)

// Regime labels the current price-action character of a market.
type Regime string

const (
	RegimeTrending         Regime = "TRENDING"
	RegimeRanging          Regime = "RANGING"
	RegimeVolatile         Regime = "VOLATILE"
	RegimeChoppy           Regime = "CHOPPY"
	RegimeInsufficientData Regime = "INSUFFICIENT_DATA"
)

// State is the immutable result of a single regime detection. A new value
// is produced per Detect call; callers must not mutate it.
type State struct {
	Regime        Regime                 `json:"regime"`
	Confidence    float64                `json:"confidence"`
	ATRRatio      float64                `json:"atr_ratio"`
	Volatility    float64                `json:"volatility"`
	TrendStrength float64                `json:"trend_strength"`
	Explanation   map[string]interface{} `json:"explanation"`
	DetectedAt    time.Time              `json:"detected_at"`
}

// Detection thresholds. The classification order is deliberate: extreme
// volatility dominates, then ATR expansion/contraction, then range default.
const (
	minBars             = 20
	atrPeriod           = 14
	atrMeanWindow       = 20
	fastSMAPeriod       = 10
	slowSMAPeriod       = 50
	volatilityThreshold = 0.05
	trendingATRRatio    = 1.2
	choppyATRRatio      = 0.8
)

// Detector classifies an OHLCV window into a market regime. Detection is a
// pure computation; the detector holds no state between calls.
type Detector struct {
	logger zerolog.Logger
}

// NewDetector creates a regime detector.
func NewDetector(logger zerolog.Logger) *Detector {
	return &Detector{
		logger: logger.With().Str("component", "regime_detector").Logger(),
	}
}

// Detect classifies the given candle window. Windows shorter than 20 bars
// yield RegimeInsufficientData with confidence 0 - never an error, the
// caller keeps trading on neutral defaults.
func (d *Detector) Detect(candles []market.Candle) State {
	now := time.Now()

	if len(candles) < minBars {
		return State{
			Regime:     RegimeInsufficientData,
			Confidence: 0.0,
			Explanation: map[string]interface{}{
				"reason":   "window shorter than minimum",
				"bars":     len(candles),
				"min_bars": minBars,
			},
			DetectedAt: now,
		}
	}

	atrRatio := d.atrRatio(candles)
	volatility := indicators.StdDev(indicators.Returns(candles))
	trendStrength := d.trendStrength(candles)

	state := State{
		ATRRatio:      atrRatio,
		Volatility:    volatility,
		TrendStrength: trendStrength,
		DetectedAt:    now,
	}

	switch {
	case volatility > volatilityThreshold:
		state.Regime = RegimeVolatile
		state.Confidence = 0.8
	case atrRatio > trendingATRRatio:
		state.Regime = RegimeTrending
		state.Confidence = math.Min(0.9, math.Abs(trendStrength)*0.9)
	case atrRatio < choppyATRRatio:
		state.Regime = RegimeChoppy
		state.Confidence = 0.7
	default:
		state.Regime = RegimeRanging
		state.Confidence = 0.6
	}

	state.Explanation = map[string]interface{}{
		"atr_ratio":      atrRatio,
		"volatility":     volatility,
		"trend_strength": trendStrength,
		"bars":           len(candles),
	}

	d.logger.Debug().
		Str("regime", string(state.Regime)).
		Float64("confidence", state.Confidence).
		Float64("atr_ratio", atrRatio).
		Float64("volatility", volatility).
		Msg("Regime detected")

	return state
}

// atrRatio compares the latest 14-bar ATR against the mean ATR over the
// last 20 readings. A ratio above 1 means range expansion.
func (d *Detector) atrRatio(candles []market.Candle) float64 {
	series := indicators.ATRSeries(candles, atrPeriod)
	if len(series) == 0 {
		return 1.0
	}

	window := series
	if len(window) > atrMeanWindow {
		window = window[len(window)-atrMeanWindow:]
	}

	meanATR := indicators.Mean(window)
	if meanATR == 0 {
		return 1.0
	}
	return series[len(series)-1] / meanATR
}

// trendStrength is the sign of the 10-bar vs 50-bar SMA crossover. Windows
// shorter than the slow period fall back to the full-window mean.
func (d *Detector) trendStrength(candles []market.Candle) float64 {
	fast := indicators.SMA(candles, fastSMAPeriod)

	slowPeriod := slowSMAPeriod
	if len(candles) < slowPeriod {
		slowPeriod = len(candles)
	}
	slow := indicators.SMA(candles, slowPeriod)

	if fast >= slow {
		return 1.0
	}
	return -1.0
}
