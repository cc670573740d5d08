package ensemble

import (
	"math"
	"sync"

	"adaptive-trading-bot/internal/market"
	"adaptive-trading-bot/internal/performance"
	"adaptive-trading-bot/internal/regime"

	"github.com/rs/zerolog"
)

// Weights maps strategy name to its share of the combined decision.
// A valid map has non-negative entries summing to 1.
type Weights map[string]float64

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	total := 0.0
	for _, v := range w {
		total += v
	}
	return total
}

func (w Weights) clone() Weights {
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Well-known strategy families used by the regime prior table. Strategies
// registered under other names fall back to an equal split.
const (
	StrategyATRBreakout  = "atr_breakout"
	StrategyRSIReversion = "rsi_reversion"
	StrategyMACDMomentum = "macd_momentum"
)

// regimePriors is the fixed regime -> base-weight table. Trending markets
// favor breakout-style entries, ranging and choppy markets favor mean
// reversion.
var regimePriors = map[regime.Regime]map[string]float64{
	regime.RegimeTrending: {
		StrategyATRBreakout:  0.45,
		StrategyMACDMomentum: 0.35,
		StrategyRSIReversion: 0.20,
	},
	regime.RegimeRanging: {
		StrategyRSIReversion: 0.50,
		StrategyMACDMomentum: 0.25,
		StrategyATRBreakout:  0.25,
	},
	regime.RegimeChoppy: {
		StrategyRSIReversion: 0.50,
		StrategyATRBreakout:  0.30,
		StrategyMACDMomentum: 0.20,
	},
	regime.RegimeVolatile: {
		StrategyATRBreakout:  0.40,
		StrategyRSIReversion: 0.30,
		StrategyMACDMomentum: 0.30,
	},
}

// Consensus vote threshold: weighted scores inside (-0.3, 0.3) mean hold.
const signalThreshold = 0.3

// DynamicEnsemble converts regime plus per-strategy performance into a
// normalized weight map and renders one consensus signal. The weight map
// is replaced wholesale on every update, never patched.
type DynamicEnsemble struct {
	mu       sync.RWMutex
	registry *Registry
	detector *regime.Detector
	weights  Weights
	logger   zerolog.Logger
}

// NewDynamicEnsemble creates an ensemble over the given strategy registry.
func NewDynamicEnsemble(registry *Registry, detector *regime.Detector, logger zerolog.Logger) *DynamicEnsemble {
	return &DynamicEnsemble{
		registry: registry,
		detector: detector,
		weights:  make(Weights),
		logger:   logger.With().Str("component", "dynamic_ensemble").Logger(),
	}
}

// UpdateWeights recomputes strategy weights from the detected regime and
// each strategy's recent performance, then swaps them in atomically. The
// returned map is the caller's copy.
func (e *DynamicEnsemble) UpdateWeights(candles []market.Candle, perf map[string]performance.Summary) Weights {
	state := e.detector.Detect(candles)
	weights := e.weightsForRegime(state, perf)

	e.mu.Lock()
	e.weights = weights
	e.mu.Unlock()

	e.logger.Debug().
		Str("regime", string(state.Regime)).
		Interface("weights", weights).
		Msg("Ensemble weights updated")

	return weights.clone()
}

// WeightsForRegime computes the weight map for an already-detected regime
// without touching the stored weights. Callers holding a per-symbol
// detection can preview the adjustment before committing it.
func (e *DynamicEnsemble) WeightsForRegime(state regime.State, perf map[string]performance.Summary) Weights {
	return e.weightsForRegime(state, perf)
}

func (e *DynamicEnsemble) weightsForRegime(state regime.State, perf map[string]performance.Summary) Weights {
	names := e.registry.Names()
	if len(names) == 0 {
		return make(Weights)
	}

	priors := regimePriors[state.Regime]
	equal := 1.0 / float64(len(names))

	weights := make(Weights, len(names))
	for _, name := range names {
		base, listed := priors[name]
		if !listed {
			base = equal
		}

		summary, tracked := perf[name]
		if !tracked {
			// Cold start: neutral multipliers, keep the prior as-is
			weights[name] = base
			continue
		}

		drawdownPenalty := 1.0 - (math.Min(summary.MaxDrawdownPct, 30.0)/30.0)*0.3
		winRateBoost := 1.0 + (summary.WinRate-0.5)*0.4
		lossPenalty := 1.0 - math.Min(float64(summary.ConsecutiveLosses)/5.0, 0.5)

		weights[name] = base * drawdownPenalty * winRateBoost * lossPenalty
	}

	// Renormalize; a zero total keeps the raw weights rather than emit NaN
	total := weights.Sum()
	if total > 0 {
		for name := range weights {
			weights[name] /= total
		}
	}

	return weights
}

// Weights returns a copy of the current weight map.
func (e *DynamicEnsemble) Weights() Weights {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.weights.clone()
}

// WeightedSignal folds per-strategy signals and confidences into one
// consensus direction using the current weights. The vote is thresholded
// at +/-0.3; the returned confidence is the weighted-average confidence
// of only the strategies that contributed weight.
func (e *DynamicEnsemble) WeightedSignal(signals map[string]int, confidences map[string]float64) (int, float64) {
	e.mu.RLock()
	weights := e.weights
	e.mu.RUnlock()

	score := 0.0
	confidenceSum := 0.0
	weightSum := 0.0

	for name, direction := range signals {
		weight := weights[name]
		if weight <= 0 {
			continue
		}
		confidence := confidences[name]
		score += weight * float64(direction) * confidence
		confidenceSum += weight * confidence
		weightSum += weight
	}

	if weightSum == 0 {
		return SignalHold, 0
	}

	score /= weightSum
	avgConfidence := confidenceSum / weightSum

	switch {
	case score > signalThreshold:
		return SignalLong, avgConfidence
	case score < -signalThreshold:
		return SignalShort, avgConfidence
	default:
		return SignalHold, avgConfidence
	}
}
