package bot

import (
	"context"
	"sync"

	"adaptive-trading-bot/internal/optimizer"

	"github.com/rs/zerolog"
)

// EliteSink persists a generation's elite parameter sets.
type EliteSink interface {
	SaveEliteCandidates(ctx context.Context, strategy string, generation int, elites []optimizer.ScoredCandidate) error
}

// OptimizerJob runs one genetic search in the background and exposes its
// progress to the API.
type OptimizerJob struct {
	strategy string
	opt      *optimizer.Optimizer
	scorer   optimizer.Scorer
	sink     EliteSink // optional

	mu      sync.RWMutex
	running bool
	done    bool
	best    *optimizer.ScoredCandidate
	err     error

	logger zerolog.Logger
}

// NewOptimizerJob wires an optimizer to a scorer for one strategy.
func NewOptimizerJob(strategy string, opt *optimizer.Optimizer, scorer optimizer.Scorer, sink EliteSink, logger zerolog.Logger) *OptimizerJob {
	return &OptimizerJob{
		strategy: strategy,
		opt:      opt,
		scorer:   scorer,
		sink:     sink,
		logger:   logger.With().Str("component", "optimizer_job").Str("strategy", strategy).Logger(),
	}
}

// Run executes the search to completion and records the elite survivors.
func (j *OptimizerJob) Run(ctx context.Context) {
	j.mu.Lock()
	j.running = true
	j.mu.Unlock()

	best, err := j.opt.Run(ctx, j.scorer)

	j.mu.Lock()
	j.running = false
	j.done = true
	j.err = err
	if err == nil {
		j.best = &best
	}
	j.mu.Unlock()

	if err != nil {
		j.logger.Error().Err(err).Msg("Optimization run failed")
		return
	}

	j.logger.Info().
		Int("generations", j.opt.Generation()).
		Float64("best_outperformance", best.Outperformance).
		Msg("Optimization run complete")

	if j.sink != nil {
		if err := j.sink.SaveEliteCandidates(ctx, j.strategy, j.opt.Generation(), j.opt.EliteCandidates()); err != nil {
			j.logger.Error().Err(err).Msg("Failed to persist elite candidates")
		}
	}
}

// Status reports progress for the read-only API.
func (j *OptimizerJob) Status() map[string]interface{} {
	j.mu.RLock()
	defer j.mu.RUnlock()

	status := map[string]interface{}{
		"strategy":     j.strategy,
		"running":      j.running,
		"done":         j.done,
		"generation":   j.opt.Generation(),
		"converged":    j.opt.Converged(),
		"best_history": j.opt.BestHistory(),
	}
	if j.best != nil {
		status["best"] = map[string]interface{}{
			"parameters":     j.best.Parameters,
			"outperformance": j.best.Outperformance,
		}
	}
	if j.err != nil {
		status["error"] = j.err.Error()
	}
	return status
}
