package optimizer

// AdaptiveGeneticParams derives mutation and crossover rates from the
// search's own progress instead of holding them fixed.
type AdaptiveGeneticParams struct {
	BaseMutationRate  float64 `json:"base_mutation_rate"`
	MinMutationRate   float64 `json:"min_mutation_rate"`
	MaxMutationRate   float64 `json:"max_mutation_rate"`
	BaseCrossoverRate float64 `json:"base_crossover_rate"`
}

// DefaultGeneticParams mirrors the tuning the search starts from.
func DefaultGeneticParams() AdaptiveGeneticParams {
	return AdaptiveGeneticParams{
		BaseMutationRate:  0.1,
		MinMutationRate:   0.01,
		MaxMutationRate:   0.5,
		BaseCrossoverRate: 0.8,
	}
}

// MutationRate decays exploration as generations pass but rebounds when
// the success rate drops: base * (1/(1+0.1*gen)) * (1+(1-successRate)),
// clamped to [min, max].
func (p AdaptiveGeneticParams) MutationRate(generation int, successRate float64) float64 {
	if generation < 0 {
		generation = 0
	}
	successRate = clamp01(successRate)

	decay := 1.0 / (1.0 + 0.1*float64(generation))
	rebound := 1.0 + (1.0 - successRate)
	rate := p.BaseMutationRate * decay * rebound

	if rate < p.MinMutationRate {
		return p.MinMutationRate
	}
	if rate > p.MaxMutationRate {
		return p.MaxMutationRate
	}
	return rate
}

// CrossoverRate rises when the population performs well:
// base * (0.5+successRate), clamped to [0.1, 0.5].
func (p AdaptiveGeneticParams) CrossoverRate(successRate float64) float64 {
	successRate = clamp01(successRate)

	rate := p.BaseCrossoverRate * (0.5 + successRate)
	if rate < 0.1 {
		return 0.1
	}
	if rate > 0.5 {
		return 0.5
	}
	return rate
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
