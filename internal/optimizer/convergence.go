package optimizer

// ConvergenceTracker records the best outperformance per generation and
// decides when the search has flattened out. Its history is append-only
// and its generation counter is monotonic.
type ConvergenceTracker struct {
	windowSize int
	best       []float64
}

// DefaultConvergenceWindow is the trailing generation window examined by
// IsConverged.
const DefaultConvergenceWindow = 5

// NewConvergenceTracker creates a tracker. An unset (zero) window falls
// back to the default of 5 generations; a negative window disables
// convergence so the search always runs to its generation budget.
func NewConvergenceTracker(windowSize int) *ConvergenceTracker {
	if windowSize == 0 {
		windowSize = DefaultConvergenceWindow
	}
	return &ConvergenceTracker{windowSize: windowSize}
}

// Record appends one generation's best outperformance.
func (t *ConvergenceTracker) Record(best float64) {
	t.best = append(t.best, best)
}

// Generation returns how many generations have been recorded.
func (t *ConvergenceTracker) Generation() int {
	return len(t.best)
}

// History returns a copy of the best-score sequence.
func (t *ConvergenceTracker) History() []float64 {
	out := make([]float64, len(t.best))
	copy(out, t.best)
	return out
}

// IsConverged reports whether the max-min spread over the trailing window
// fell below the threshold. It is always false until window+1 generations
// are recorded, so evolution never stops prematurely.
func (t *ConvergenceTracker) IsConverged(threshold float64) bool {
	if t.windowSize < 0 {
		return false
	}
	if len(t.best) < t.windowSize+1 {
		return false
	}

	window := t.best[len(t.best)-t.windowSize:]
	minScore, maxScore := window[0], window[0]
	for _, score := range window[1:] {
		if score < minScore {
			minScore = score
		}
		if score > maxScore {
			maxScore = score
		}
	}
	return maxScore-minScore < threshold
}
