package optimizer

import "adaptive-trading-bot/internal/indicators"

// DefaultMinDiversity is the floor below which injection is signalled.
const DefaultMinDiversity = 0.3

// DiversityManager measures how spread out a population's parameters are.
// It only signals the need for random-candidate injection; performing the
// injection is the evolution loop's job.
type DiversityManager struct {
	minDiversity float64
}

// NewDiversityManager creates a manager. An unset (zero) threshold falls
// back to the default of 0.3; a negative threshold disables injection
// entirely, since every score is non-negative.
func NewDiversityManager(minDiversity float64) *DiversityManager {
	if minDiversity == 0 {
		minDiversity = DefaultMinDiversity
	}
	return &DiversityManager{minDiversity: minDiversity}
}

// Score returns the mean per-parameter standard deviation normalized by
// that parameter's observed range, clamped to [0,1]. Fewer than two
// candidates are maximally diverse (1.0) by definition, which avoids
// spurious injection loops on a collapsed population.
func (m *DiversityManager) Score(pop Population) float64 {
	if len(pop) < 2 {
		return 1.0
	}

	// Collect each parameter's value column
	columns := make(map[string][]float64)
	for _, candidate := range pop {
		for name, value := range candidate.Parameters {
			columns[name] = append(columns[name], value)
		}
	}
	if len(columns) == 0 {
		return 1.0
	}

	total := 0.0
	for _, values := range columns {
		minV, maxV := values[0], values[0]
		for _, v := range values[1:] {
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}

		spread := maxV - minV
		if spread == 0 {
			// Identical values contribute zero diversity
			continue
		}
		total += indicators.StdDev(values) / spread
	}

	score := total / float64(len(columns))
	if score > 1.0 {
		return 1.0
	}
	return score
}

// NeedsInjection reports whether the population fell below the minimum
// diversity floor.
func (m *DiversityManager) NeedsInjection(pop Population) bool {
	return m.Score(pop) < m.minDiversity
}
