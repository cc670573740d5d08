package performance

import (
	"math"
	"sync"
	"time"

	"adaptive-trading-bot/internal/indicators"

	"github.com/rs/zerolog"
)

const (
	// DefaultWindowSize is the number of recent trades metrics are
	// recomputed over.
	DefaultWindowSize = 20

	// grossLossEpsilon guards the profit factor division when a strategy
	// has no losing trades yet.
	grossLossEpsilon = 1e-9
)

// Trade is one realized trade in a strategy's ledger.
type Trade struct {
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	PnL        float64   `json:"pnl"`
	Return     float64   `json:"return"`
	ClosedAt   time.Time `json:"closed_at"`
}

// Summary holds the derived performance metrics for one strategy over its
// recent trade window.
type Summary struct {
	Strategy          string  `json:"strategy"`
	TotalTrades       int     `json:"total_trades"`
	WinRate           float64 `json:"win_rate"`
	ProfitFactor      float64 `json:"profit_factor"`
	SharpeRatio       float64 `json:"sharpe_ratio"`
	MaxDrawdownPct    float64 `json:"max_drawdown_pct"`
	ConsecutiveLosses int     `json:"consecutive_losses"`
	RecentTrades      []Trade `json:"recent_trades,omitempty"`
}

// Tracker maintains per-strategy rolling trade ledgers and recomputes
// metrics on demand. The ledger is append-only with oldest-first eviction
// at twice the window size.
type Tracker struct {
	mu         sync.RWMutex
	windowSize int
	ledgers    map[string][]Trade
	logger     zerolog.Logger
}

// NewTracker creates a performance tracker. A non-positive window size
// falls back to the default of 20 trades.
func NewTracker(windowSize int, logger zerolog.Logger) *Tracker {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Tracker{
		windowSize: windowSize,
		ledgers:    make(map[string][]Trade),
		logger:     logger.With().Str("component", "performance_tracker").Logger(),
	}
}

// RecordTrade appends a realized trade to the strategy's ledger and evicts
// the oldest entries once the ledger exceeds 2x the window size.
func (t *Tracker) RecordTrade(strategy string, entryPrice, exitPrice, quantity float64) {
	trade := Trade{
		EntryPrice: entryPrice,
		ExitPrice:  exitPrice,
		Quantity:   quantity,
		PnL:        (exitPrice - entryPrice) * quantity,
		ClosedAt:   time.Now(),
	}
	if entryPrice != 0 {
		trade.Return = (exitPrice - entryPrice) / entryPrice
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ledger := append(t.ledgers[strategy], trade)
	if limit := t.windowSize * 2; len(ledger) > limit {
		ledger = ledger[len(ledger)-limit:]
	}
	t.ledgers[strategy] = ledger

	t.logger.Debug().
		Str("strategy", strategy).
		Float64("pnl", trade.PnL).
		Int("ledger_size", len(ledger)).
		Msg("Trade recorded")
}

// Performance recomputes metrics for the strategy over its last windowSize
// trades. Strategies with no recorded trades get neutral defaults so
// weighting never divides by zero or punishes a cold start.
func (t *Tracker) Performance(strategy string) Summary {
	t.mu.RLock()
	ledger := t.ledgers[strategy]
	if len(ledger) > t.windowSize {
		ledger = ledger[len(ledger)-t.windowSize:]
	}
	recent := make([]Trade, len(ledger))
	copy(recent, ledger)
	t.mu.RUnlock()

	if len(recent) == 0 {
		return Summary{
			Strategy:     strategy,
			WinRate:      0.5,
			ProfitFactor: 1.0,
		}
	}

	wins := 0
	grossProfit := 0.0
	grossLoss := 0.0
	returns := make([]float64, len(recent))

	for i, trade := range recent {
		returns[i] = trade.Return
		if trade.PnL > 0 {
			wins++
			grossProfit += trade.PnL
		} else {
			grossLoss += math.Abs(trade.PnL)
		}
	}

	summary := Summary{
		Strategy:          strategy,
		TotalTrades:       len(recent),
		WinRate:           float64(wins) / float64(len(recent)),
		ProfitFactor:      grossProfit / math.Max(grossLoss, grossLossEpsilon),
		SharpeRatio:       sharpe(returns),
		MaxDrawdownPct:    drawdownProxy(returns),
		ConsecutiveLosses: trailingLossStreak(returns),
		RecentTrades:      recent,
	}
	return summary
}

// Strategies returns the names of all strategies with at least one
// recorded trade.
func (t *Tracker) Strategies() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.ledgers))
	for name := range t.ledgers {
		names = append(names, name)
	}
	return names
}

// sharpe is the per-trade Sharpe ratio: mean over std-dev of returns,
// zero when there are fewer than two samples or no dispersion.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	std := indicators.StdDev(returns)
	if std == 0 {
		return 0
	}
	return indicators.Mean(returns) / std
}

// drawdownProxy is the documented cumulative-sum approximation:
// |min(cumsum) - max(cumsum[:half])| in percent. It is deliberately not
// the running-peak drawdown the equity metrics use.
func drawdownProxy(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	cum := make([]float64, len(returns))
	running := 0.0
	for i, r := range returns {
		running += r
		cum[i] = running
	}

	minCum := cum[0]
	for _, v := range cum {
		if v < minCum {
			minCum = v
		}
	}

	half := len(cum) / 2
	if half == 0 {
		return 0
	}
	maxFirstHalf := cum[0]
	for _, v := range cum[:half] {
		if v > maxFirstHalf {
			maxFirstHalf = v
		}
	}

	return math.Abs(minCum-maxFirstHalf) * 100
}

// trailingLossStreak counts the run of negative returns at the end of the
// window.
func trailingLossStreak(returns []float64) int {
	streak := 0
	for i := len(returns) - 1; i >= 0; i-- {
		if returns[i] >= 0 {
			break
		}
		streak++
	}
	return streak
}
