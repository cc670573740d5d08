package optimizer

import (
	"math/rand"

	"github.com/google/uuid"
)

// Candidate is one parameter set under evaluation. Parameters are numeric
// only; the strategy interprets them.
type Candidate struct {
	ID         string             `json:"id"`
	Parameters map[string]float64 `json:"parameters"`
}

// clone copies a candidate with a fresh ID.
func (c Candidate) clone() Candidate {
	params := make(map[string]float64, len(c.Parameters))
	for k, v := range c.Parameters {
		params[k] = v
	}
	return Candidate{ID: uuid.NewString(), Parameters: params}
}

// ScoredCandidate is a candidate plus the outperformance the external
// backtester reported for it (strategy return minus benchmark return).
type ScoredCandidate struct {
	Candidate
	Outperformance float64            `json:"outperformance"`
	Stats          map[string]float64 `json:"stats,omitempty"`
}

// Population is one generation's ordered candidate list; it is replaced
// wholesale each generation.
type Population []Candidate

// Range bounds one parameter during random generation and mutation.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Ranges maps parameter name to its admissible interval.
type Ranges map[string]Range

// random draws a uniform value inside the range.
func (r Range) random(rng *rand.Rand) float64 {
	return r.Min + rng.Float64()*(r.Max-r.Min)
}

// clamp pins a value into the range.
func (r Range) clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// randomCandidate draws a candidate uniformly from the ranges.
func randomCandidate(ranges Ranges, rng *rand.Rand) Candidate {
	params := make(map[string]float64, len(ranges))
	for name, r := range ranges {
		params[name] = r.random(rng)
	}
	return Candidate{ID: uuid.NewString(), Parameters: params}
}
