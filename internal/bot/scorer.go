package bot

import (
	"context"
	"math"

	"adaptive-trading-bot/internal/indicators"
	"adaptive-trading-bot/internal/market"
	"adaptive-trading-bot/internal/optimizer"
)

// ReplayScorer scores candidate breakout parameter sets by replaying the
// full candle history for one symbol. Outperformance is the strategy's
// total return minus buy-and-hold over the same window, in percent.
type ReplayScorer struct {
	candles []market.Candle
}

// NewReplayScorer builds a scorer over a fixed candle series.
func NewReplayScorer(candles []market.Candle) *ReplayScorer {
	return &ReplayScorer{candles: candles}
}

// Score replays every candidate. Scoring is CPU-bound and deterministic;
// the context is only consulted between candidates.
func (s *ReplayScorer) Score(ctx context.Context, pop optimizer.Population) ([]optimizer.ScoredCandidate, error) {
	scored := make([]optimizer.ScoredCandidate, 0, len(pop))
	for _, candidate := range pop {
		if err := ctx.Err(); err != nil {
			return scored, err
		}

		strategyReturn := s.replay(candidate.Parameters)
		scored = append(scored, optimizer.ScoredCandidate{
			Candidate:      candidate,
			Outperformance: strategyReturn - s.buyAndHoldReturn(),
			Stats: map[string]float64{
				"strategy_return": strategyReturn,
			},
		})
	}
	return scored, nil
}

func (s *ReplayScorer) buyAndHoldReturn() float64 {
	if len(s.candles) < 2 || s.candles[0].Close == 0 {
		return 0
	}
	first := s.candles[0].Close
	last := s.candles[len(s.candles)-1].Close
	return (last - first) / first * 100
}

// replay runs a long-only breakout simulation: enter when the close
// clears the lookback high by atr_multiplier ATRs, exit on a stop or a
// close back under the lookback midpoint.
func (s *ReplayScorer) replay(params map[string]float64) float64 {
	atrPeriod := intParam(params, "atr_period", 14)
	lookback := intParam(params, "lookback", 20)
	atrMult := floatParam(params, "atr_multiplier", 0.5)
	stopPct := floatParam(params, "stop_loss_pct", 2.0)

	warmup := lookback + atrPeriod + 1
	if len(s.candles) <= warmup {
		return 0
	}

	totalReturn := 0.0
	entryPrice := 0.0
	inPosition := false

	for i := warmup; i < len(s.candles); i++ {
		window := s.candles[:i]
		close := s.candles[i].Close

		if inPosition {
			stop := entryPrice * (1 - stopPct/100)
			mid := windowMid(window, lookback)
			if close <= stop || close < mid {
				totalReturn += (close - entryPrice) / entryPrice * 100
				inPosition = false
			}
			continue
		}

		atr := indicators.ATR(window, atrPeriod)
		if atr == 0 {
			continue
		}
		if close > windowHigh(window, lookback)+atrMult*atr {
			entryPrice = close
			inPosition = true
		}
	}

	if inPosition && entryPrice != 0 {
		last := s.candles[len(s.candles)-1].Close
		totalReturn += (last - entryPrice) / entryPrice * 100
	}
	return totalReturn
}

func windowHigh(candles []market.Candle, lookback int) float64 {
	start := len(candles) - lookback
	if start < 0 {
		start = 0
	}
	high := candles[start].High
	for _, c := range candles[start:] {
		high = math.Max(high, c.High)
	}
	return high
}

func windowMid(candles []market.Candle, lookback int) float64 {
	start := len(candles) - lookback
	if start < 0 {
		start = 0
	}
	high := candles[start].High
	low := candles[start].Low
	for _, c := range candles[start:] {
		high = math.Max(high, c.High)
		low = math.Min(low, c.Low)
	}
	return (high + low) / 2
}

func intParam(params map[string]float64, name string, fallback int) int {
	if v, ok := params[name]; ok && v > 0 {
		return int(math.Round(v))
	}
	return fallback
}

func floatParam(params map[string]float64, name string, fallback float64) float64 {
	if v, ok := params[name]; ok {
		return v
	}
	return fallback
}
