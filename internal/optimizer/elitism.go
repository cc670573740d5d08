package optimizer

import "sort"

// DefaultEliteCount is how many top candidates survive unchanged.
const DefaultEliteCount = 3

// ElitismManager keeps the current generation's top candidates. The elite
// list is fully replaced from each generation's ranking - it is not a
// running top-k across history.
type ElitismManager struct {
	eliteCount int
	elites     []ScoredCandidate
}

// NewElitismManager creates a manager; a non-positive count falls back to
// the default of 3 elites.
func NewElitismManager(eliteCount int) *ElitismManager {
	if eliteCount <= 0 {
		eliteCount = DefaultEliteCount
	}
	return &ElitismManager{eliteCount: eliteCount}
}

// Update replaces the elite set with the top candidates of this
// generation, ranked by outperformance descending with ties broken by
// input order.
func (m *ElitismManager) Update(scored []ScoredCandidate) {
	ranked := make([]ScoredCandidate, len(scored))
	copy(ranked, scored)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Outperformance > ranked[j].Outperformance
	})

	if len(ranked) > m.eliteCount {
		ranked = ranked[:m.eliteCount]
	}
	m.elites = ranked
}

// EliteCandidates returns a copy of the current elite set, best first.
func (m *ElitismManager) EliteCandidates() []ScoredCandidate {
	out := make([]ScoredCandidate, len(m.elites))
	copy(out, m.elites)
	return out
}
