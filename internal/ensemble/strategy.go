package ensemble

import (
	"fmt"
	"sync"

	"adaptive-trading-bot/internal/market"
)

// Signal directions.
const (
	SignalShort = -1
	SignalHold  = 0
	SignalLong  = 1
)

// Signal is one strategy's vote on the current window.
type Signal struct {
	Direction   int                    `json:"direction"` // -1, 0, 1
	Confidence  float64                `json:"confidence"`
	Diagnostics map[string]interface{} `json:"diagnostics,omitempty"`
}

// Strategy is the contract every signal generator implements. Concrete
// rule logic (ATR breakout, RSI reversion, MACD momentum, ...) lives
// outside this module; the ensemble only needs the stable interface.
type Strategy interface {
	Name() string
	Evaluate(candles []market.Candle) Signal
}

// StrategyFunc adapts a plain function into a Strategy.
type StrategyFunc struct {
	StrategyName string
	Fn           func(candles []market.Candle) Signal
}

func (s StrategyFunc) Name() string { return s.StrategyName }

func (s StrategyFunc) Evaluate(candles []market.Candle) Signal {
	if s.Fn == nil {
		return Signal{Direction: SignalHold}
	}
	return s.Fn(candles)
}

// Registry is a closed set of strategies registered at startup. Lookup
// order is registration order, which keeps weight maps and consensus
// iteration deterministic.
type Registry struct {
	mu      sync.RWMutex
	ordered []Strategy
	byName  map[string]Strategy
}

// NewRegistry creates an empty strategy registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Strategy)}
}

// Register adds a strategy. Duplicate names are a configuration error.
func (r *Registry) Register(s Strategy) error {
	if s == nil || s.Name() == "" {
		return fmt.Errorf("strategy must have a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byName[s.Name()]; exists {
		return fmt.Errorf("strategy %q already registered", s.Name())
	}
	r.byName[s.Name()] = s
	r.ordered = append(r.ordered, s)
	return nil
}

// Names returns strategy names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.ordered))
	for i, s := range r.ordered {
		names[i] = s.Name()
	}
	return names
}

// Evaluate collects one signal per registered strategy.
func (r *Registry) Evaluate(candles []market.Candle) map[string]Signal {
	r.mu.RLock()
	strategies := make([]Strategy, len(r.ordered))
	copy(strategies, r.ordered)
	r.mu.RUnlock()

	signals := make(map[string]Signal, len(strategies))
	for _, s := range strategies {
		signals[s.Name()] = s.Evaluate(candles)
	}
	return signals
}

// Len returns the number of registered strategies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}
