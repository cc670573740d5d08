package store

import (
	"context"
	"encoding/json"
	"fmt"

	"adaptive-trading-bot/internal/controller"
	"adaptive-trading-bot/internal/market"
	"adaptive-trading-bot/internal/optimizer"

	"github.com/rs/zerolog"
)

// Repository exposes the adaptive core's persistence operations.
type Repository struct {
	db     *DB
	logger zerolog.Logger
}

// NewRepository creates a repository over an open database.
func NewRepository(db *DB, logger zerolog.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// EnsureSchema creates the tables this repository writes to.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS adaptive_decisions (
			id UUID PRIMARY KEY,
			regime TEXT NOT NULL,
			regime_confidence DOUBLE PRECISION NOT NULL,
			adjusted_weights JSONB NOT NULL,
			recommendations JSONB NOT NULL,
			anomalies JSONB NOT NULL,
			explanation JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS elite_candidates (
			id UUID NOT NULL,
			strategy TEXT NOT NULL,
			generation INT NOT NULL,
			parameters JSONB NOT NULL,
			outperformance DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (id, generation)
		)`,
	}

	for _, stmt := range statements {
		if _, err := r.db.Pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveDecision writes one adaptive decision as the audit record.
func (r *Repository) SaveDecision(ctx context.Context, d *controller.Decision) error {
	weights, err := json.Marshal(d.AdjustedWeights)
	if err != nil {
		return fmt.Errorf("marshal weights: %w", err)
	}
	recommendations, err := json.Marshal(d.Recommendations)
	if err != nil {
		return fmt.Errorf("marshal recommendations: %w", err)
	}
	anomalies, err := json.Marshal(d.Anomalies)
	if err != nil {
		return fmt.Errorf("marshal anomalies: %w", err)
	}
	explanation, err := json.Marshal(d.Explanation)
	if err != nil {
		return fmt.Errorf("marshal explanation: %w", err)
	}

	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO adaptive_decisions
			(id, regime, regime_confidence, adjusted_weights, recommendations, anomalies, explanation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		d.ID, string(d.Regime), d.RegimeConfidence,
		weights, recommendations, anomalies, explanation, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}

	r.logger.Debug().Str("decision_id", d.ID).Msg("Decision persisted")
	return nil
}

// RecentTrades loads the latest closed trades, oldest first, for the
// analyzer's ledger.
func (r *Repository) RecentTrades(ctx context.Context, limit int) ([]market.TradeRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT symbol, strategy, side, entry_price, exit_price, quantity, realized_pnl, exit_time
		FROM trades
		WHERE status = 'CLOSED' AND realized_pnl IS NOT NULL
		ORDER BY exit_time DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query trades: %w", err)
	}
	defer rows.Close()

	var trades []market.TradeRecord
	for rows.Next() {
		var trade market.TradeRecord
		if err := rows.Scan(
			&trade.Symbol, &trade.Strategy, &trade.Side,
			&trade.EntryPrice, &trade.ExitPrice, &trade.Quantity,
			&trade.PnL, &trade.ExitTime,
		); err != nil {
			r.logger.Error().Err(err).Msg("Failed to scan trade row")
			continue
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trades: %w", err)
	}

	// Reverse into chronological order
	for i, j := 0, len(trades)-1; i < j; i, j = i+1, j-1 {
		trades[i], trades[j] = trades[j], trades[i]
	}
	return trades, nil
}

// SaveEliteCandidates records a generation's elite parameter sets.
func (r *Repository) SaveEliteCandidates(ctx context.Context, strategy string, generation int, elites []optimizer.ScoredCandidate) error {
	for _, elite := range elites {
		params, err := json.Marshal(elite.Parameters)
		if err != nil {
			return fmt.Errorf("marshal parameters: %w", err)
		}

		_, err = r.db.Pool.Exec(ctx, `
			INSERT INTO elite_candidates (id, strategy, generation, parameters, outperformance)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id, generation) DO NOTHING`,
			elite.ID, strategy, generation, params, elite.Outperformance,
		)
		if err != nil {
			return fmt.Errorf("insert elite candidate: %w", err)
		}
	}
	return nil
}
