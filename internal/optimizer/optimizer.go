package optimizer

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// Scorer is the external backtester contract: given a generation, it
// returns the scored candidates. Scoring may fan out to worker pools, but
// only the aggregated results come back here. The optimizer never
// backtests itself.
type Scorer interface {
	Score(ctx context.Context, pop Population) ([]ScoredCandidate, error)
}

// Config tunes one optimizer run.
type Config struct {
	PopulationSize       int     `json:"population_size"`
	MaxGenerations       int     `json:"max_generations"`
	EliteCount           int     `json:"elite_count"`
	TournamentSize       int     `json:"tournament_size"`
	ConvergenceWindow    int     `json:"convergence_window"`
	ConvergenceThreshold float64 `json:"convergence_threshold"`
	MinDiversity         float64 `json:"min_diversity"`
	Rates                AdaptiveGeneticParams
	Seed                 int64 `json:"seed,omitempty"`
}

// DefaultConfig returns the standard optimizer tuning.
func DefaultConfig() Config {
	return Config{
		PopulationSize:       60,
		MaxGenerations:       35,
		EliteCount:           DefaultEliteCount,
		TournamentSize:       3,
		ConvergenceWindow:    DefaultConvergenceWindow,
		ConvergenceThreshold: 0.5,
		MinDiversity:         DefaultMinDiversity,
		Rates:                DefaultGeneticParams(),
	}
}

// Optimizer evolves a parameter-set population for one strategy. It
// composes the adaptive rates, convergence tracker, elitism manager and
// diversity manager; each sub-manager owns its own collections and the
// optimizer owns the sub-managers.
type Optimizer struct {
	cfg         Config
	ranges      Ranges
	rng         *rand.Rand
	convergence *ConvergenceTracker
	elites      *ElitismManager
	diversity   *DiversityManager
	generation  int
	logger      zerolog.Logger
}

// New creates an optimizer for the given parameter ranges. Bad ranges are
// a configuration error and fail fast.
func New(cfg Config, ranges Ranges, logger zerolog.Logger) (*Optimizer, error) {
	if len(ranges) == 0 {
		return nil, fmt.Errorf("optimizer requires at least one parameter range")
	}
	for name, r := range ranges {
		if r.Max < r.Min {
			return nil, fmt.Errorf("parameter %q has inverted range [%f, %f]", name, r.Min, r.Max)
		}
	}
	if cfg.PopulationSize <= 0 {
		cfg.PopulationSize = DefaultConfig().PopulationSize
	}
	if cfg.MaxGenerations <= 0 {
		cfg.MaxGenerations = DefaultConfig().MaxGenerations
	}
	if cfg.TournamentSize <= 0 {
		cfg.TournamentSize = 3
	}
	if cfg.ConvergenceThreshold <= 0 {
		cfg.ConvergenceThreshold = 0.5
	}
	if cfg.Rates == (AdaptiveGeneticParams{}) {
		cfg.Rates = DefaultGeneticParams()
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Optimizer{
		cfg:         cfg,
		ranges:      ranges,
		rng:         rand.New(rand.NewSource(seed)),
		convergence: NewConvergenceTracker(cfg.ConvergenceWindow),
		elites:      NewElitismManager(cfg.EliteCount),
		diversity:   NewDiversityManager(cfg.MinDiversity),
		logger:      logger.With().Str("component", "genetic_optimizer").Logger(),
	}, nil
}

// InitialPopulation draws a fresh random population from the ranges.
func (o *Optimizer) InitialPopulation() Population {
	pop := make(Population, o.cfg.PopulationSize)
	for i := range pop {
		pop[i] = randomCandidate(o.ranges, o.rng)
	}
	return pop
}

// Generation returns the number of completed (scored) generations.
func (o *Optimizer) Generation() int { return o.generation }

// EliteCandidates exposes the current elite set.
func (o *Optimizer) EliteCandidates() []ScoredCandidate { return o.elites.EliteCandidates() }

// Converged reports whether the best-score history has flattened.
func (o *Optimizer) Converged() bool {
	return o.convergence.IsConverged(o.cfg.ConvergenceThreshold)
}

// BestHistory returns the recorded best outperformance per generation.
func (o *Optimizer) BestHistory() []float64 { return o.convergence.History() }

// NextGeneration breeds the following population from this generation's
// scored candidates. A generation with zero scored candidates skips the
// elite and convergence updates for this cycle only and re-randomizes.
func (o *Optimizer) NextGeneration(scored []ScoredCandidate) Population {
	if len(scored) == 0 {
		o.logger.Warn().Msg("No scored candidates this generation, re-randomizing population")
		return o.InitialPopulation()
	}

	ranked := make([]ScoredCandidate, len(scored))
	copy(ranked, scored)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Outperformance > ranked[j].Outperformance
	})

	o.elites.Update(scored)
	o.convergence.Record(ranked[0].Outperformance)

	successRate := o.successRate(scored)
	mutationRate := o.cfg.Rates.MutationRate(o.generation, successRate)
	crossoverRate := o.cfg.Rates.CrossoverRate(successRate)
	o.generation++

	next := make(Population, 0, o.cfg.PopulationSize)

	// Elites carry over unchanged
	for _, elite := range o.elites.EliteCandidates() {
		if len(next) == o.cfg.PopulationSize {
			break
		}
		next = append(next, elite.Candidate.clone())
	}

	// Breed the remainder
	for len(next) < o.cfg.PopulationSize {
		parent1 := o.tournament(ranked)
		parent2 := o.tournament(ranked)

		child := o.crossover(parent1.Candidate, parent2.Candidate, crossoverRate)
		o.mutate(&child, mutationRate)
		next = append(next, child)
	}

	// A collapsed population gets fresh blood: replace the non-elite tail
	if o.diversity.NeedsInjection(next) {
		eliteKeep := len(o.elites.EliteCandidates())
		injected := 0
		for i := len(next) - 1; i >= eliteKeep && injected < len(next)/4; i-- {
			next[i] = randomCandidate(o.ranges, o.rng)
			injected++
		}
		o.logger.Debug().Int("injected", injected).Msg("Diversity floor hit, injected random candidates")
	}

	o.logger.Info().
		Int("generation", o.generation).
		Float64("best", ranked[0].Outperformance).
		Float64("mutation_rate", mutationRate).
		Float64("crossover_rate", crossoverRate).
		Float64("success_rate", successRate).
		Msg("Generation bred")

	return next
}

// Run evolves until convergence or the generation budget is exhausted and
// returns the best candidate seen.
func (o *Optimizer) Run(ctx context.Context, scorer Scorer) (ScoredCandidate, error) {
	var best ScoredCandidate
	haveBest := false

	pop := o.InitialPopulation()
	for gen := 0; gen < o.cfg.MaxGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return best, err
		}

		scored, err := scorer.Score(ctx, pop)
		if err != nil {
			return best, fmt.Errorf("scoring generation %d: %w", gen, err)
		}

		for _, candidate := range scored {
			if !haveBest || candidate.Outperformance > best.Outperformance {
				best = candidate
				haveBest = true
			}
		}

		pop = o.NextGeneration(scored)

		if o.Converged() {
			o.logger.Info().Int("generation", o.generation).Msg("Search converged")
			break
		}
	}

	if !haveBest {
		return best, fmt.Errorf("no candidate was ever scored")
	}
	return best, nil
}

// successRate is the fraction of scored candidates that beat the
// benchmark.
func (o *Optimizer) successRate(scored []ScoredCandidate) float64 {
	if len(scored) == 0 {
		return 0
	}
	positive := 0
	for _, c := range scored {
		if c.Outperformance > 0 {
			positive++
		}
	}
	return float64(positive) / float64(len(scored))
}

// tournament picks the best of k random contestants.
func (o *Optimizer) tournament(ranked []ScoredCandidate) ScoredCandidate {
	best := ranked[o.rng.Intn(len(ranked))]
	for i := 1; i < o.cfg.TournamentSize; i++ {
		contender := ranked[o.rng.Intn(len(ranked))]
		if contender.Outperformance > best.Outperformance {
			best = contender
		}
	}
	return best
}

// crossover mixes parameters uniformly from both parents at the given
// rate; otherwise the child is a straight copy of parent1.
func (o *Optimizer) crossover(parent1, parent2 Candidate, rate float64) Candidate {
	child := parent1.clone()
	if o.rng.Float64() >= rate {
		return child
	}
	for name := range child.Parameters {
		if o.rng.Float64() < 0.5 {
			if v, ok := parent2.Parameters[name]; ok {
				child.Parameters[name] = v
			}
		}
	}
	return child
}

// mutate perturbs each parameter with probability rate by up to 10% of
// its range, clamped to the admissible interval.
func (o *Optimizer) mutate(c *Candidate, rate float64) {
	for name, r := range o.ranges {
		if o.rng.Float64() >= rate {
			continue
		}
		delta := (o.rng.Float64()*2 - 1) * 0.1 * (r.Max - r.Min)
		c.Parameters[name] = r.clamp(c.Parameters[name] + delta)
	}
}
