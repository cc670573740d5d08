package controller

import (
	"time"

	"adaptive-trading-bot/internal/ensemble"
	"adaptive-trading-bot/internal/performance"
	"adaptive-trading-bot/internal/regime"
)

// Decision is the immutable output of one controller cycle. It is fully
// assembled before being returned and never mutated afterwards; the
// Explanation map is the JSON-serializable audit trail, reproducible from
// identical inputs.
type Decision struct {
	ID               string                     `json:"id"`
	Regime           regime.Regime              `json:"regime"`
	RegimeConfidence float64                    `json:"regime_confidence"`
	SymbolRegimes    map[string]regime.State    `json:"symbol_regimes"`
	AdjustedWeights  ensemble.Weights           `json:"adjusted_weights"`
	Recommendations  map[string]float64         `json:"parameter_recommendations"`
	Anomalies        []string                   `json:"anomalies"`
	Performance      *performance.EquitySummary `json:"performance,omitempty"`
	Explanation      map[string]interface{}     `json:"explanation"`
	CreatedAt        time.Time                  `json:"created_at"`
}
