package analyzer

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"adaptive-trading-bot/internal/market"

	"github.com/rs/zerolog"
)

const (
	// DefaultMinTrades is the minimum ledger size before analysis runs.
	DefaultMinTrades = 10

	// analysisWindow bounds both the analysis and its cache key to the
	// most recent trades.
	analysisWindow = 30
)

// Result is the outcome of one trade-history scan: human-readable anomaly
// descriptions plus parameter-delta suggestions keyed by parameter name.
// Results are deterministic for identical inputs, which is what makes the
// content-hash cache safe.
type Result struct {
	Anomalies       []string           `json:"anomalies"`
	Recommendations map[string]float64 `json:"parameter_recommendations"`
	TradesAnalyzed  int                `json:"trades_analyzed"`
}

// TradeAnalyzer scans recent trades for systematic win/loss patterns.
type TradeAnalyzer struct {
	minTrades int
	logger    zerolog.Logger
}

// NewTradeAnalyzer creates an analyzer. A non-positive minimum falls back
// to the default of 10 trades.
func NewTradeAnalyzer(minTrades int, logger zerolog.Logger) *TradeAnalyzer {
	if minTrades <= 0 {
		minTrades = DefaultMinTrades
	}
	return &TradeAnalyzer{
		minTrades: minTrades,
		logger:    logger.With().Str("component", "trade_analyzer").Logger(),
	}
}

// MinTrades returns the analysis threshold.
func (a *TradeAnalyzer) MinTrades() int { return a.minTrades }

// ContentHash fingerprints the (entry_price, exit_price) pairs of the last
// 30 trades. Two ledgers with identical recent pairs hash identically, so
// a cached Result can be reused verbatim.
func (a *TradeAnalyzer) ContentHash(trades []market.TradeRecord) uint64 {
	recent := lastN(trades, analysisWindow)

	h := fnv.New64a()
	var buf [8]byte
	for _, trade := range recent {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(trade.EntryPrice))
		h.Write(buf[:])
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(trade.ExitPrice))
		h.Write(buf[:])
	}
	return h.Sum64()
}

// Analyze scans the last 30 trades and emits anomalies plus parameter
// deltas. It never fails; a quiet ledger simply produces an empty result.
func (a *TradeAnalyzer) Analyze(trades []market.TradeRecord) Result {
	recent := lastN(trades, analysisWindow)

	result := Result{
		Anomalies:       []string{},
		Recommendations: make(map[string]float64),
		TradesAnalyzed:  len(recent),
	}
	if len(recent) == 0 {
		return result
	}

	wins := 0
	winSum := 0.0
	lossSum := 0.0
	lossCount := 0
	maxLossStreak := 0
	streak := 0

	for _, trade := range recent {
		r := trade.Return()
		if r > 0 {
			wins++
			winSum += r
			streak = 0
		} else {
			lossSum += math.Abs(r)
			lossCount++
			streak++
			if streak > maxLossStreak {
				maxLossStreak = streak
			}
		}
	}

	winRate := float64(wins) / float64(len(recent))
	avgWin := 0.0
	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	avgLoss := 0.0
	if lossCount > 0 {
		avgLoss = lossSum / float64(lossCount)
	}

	// Systematic losers: entries fire on weak setups
	if winRate < 0.4 {
		result.Anomalies = append(result.Anomalies,
			fmt.Sprintf("low win rate: %.0f%% over last %d trades", winRate*100, len(recent)))
		result.Recommendations["min_confidence"] += 0.05
	}

	// Deep loss streak: position sizing is outrunning the edge
	if maxLossStreak >= 4 {
		result.Anomalies = append(result.Anomalies,
			fmt.Sprintf("loss streak of %d consecutive trades", maxLossStreak))
		result.Recommendations["position_size_pct"] -= 0.25
	}

	// Losses larger than wins: exits are asymmetric in the wrong direction
	if avgLoss > avgWin && avgLoss > 0 && avgWin > 0 {
		result.Anomalies = append(result.Anomalies,
			fmt.Sprintf("average loss %.2f%% exceeds average win %.2f%%", avgLoss*100, avgWin*100))
		result.Recommendations["stop_loss_atr_mult"] -= 0.5
		result.Recommendations["take_profit_atr_mult"] += 0.5
	}

	// Healthy edge: lean into it modestly
	if winRate > 0.6 && avgWin >= avgLoss {
		result.Recommendations["position_size_pct"] += 0.10
	}

	a.logger.Debug().
		Int("trades", len(recent)).
		Float64("win_rate", winRate).
		Int("anomalies", len(result.Anomalies)).
		Msg("Trade analysis complete")

	return result
}

func lastN(trades []market.TradeRecord, n int) []market.TradeRecord {
	if len(trades) <= n {
		return trades
	}
	return trades[len(trades)-n:]
}
