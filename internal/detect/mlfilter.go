package detect

import "math"

// Scorer is an optional external false-positive scorer (e.g. an on-device
// NN runtime). When absent the filter falls back to its built-in
// pattern-similarity estimate. Inference mechanics are out of scope here.
type Scorer interface {
	// Score returns a confidence in [0,1] that the pattern is a genuine
	// detection.
	Score(pattern float64) (float64, error)
}

// MLFilter estimates whether a flagged motion cycle is a false positive.
// It keeps bounded true/false exemplar pools keyed by the scalar pattern
// motionLevel * backgroundSimilarity and smooths an adaptive threshold from
// each cycle's confidence.
type MLFilter struct {
	truePatterns  []float64
	falsePatterns []float64
	maxPatterns   int

	threshold float64 // adaptive, smoothed each cycle
	scorer    Scorer

	evaluations  uint64
	flaggedFalse uint64
}

// NewMLFilter creates a filter with the given pool capacity (default 50).
func NewMLFilter(maxPatterns int) *MLFilter {
	if maxPatterns <= 0 {
		maxPatterns = 50
	}
	return &MLFilter{
		maxPatterns: maxPatterns,
		threshold:   0.5,
	}
}

// SetScorer injects an external scorer. Passing nil restores the built-in
// similarity path.
func (m *MLFilter) SetScorer(s Scorer) { m.scorer = s }

// Pattern computes the scalar exemplar key for a cycle.
func Pattern(motionLevel, backgroundSimilarity float64) float64 {
	return clamp01(motionLevel) * clamp01(backgroundSimilarity)
}

// Evaluate classifies the cycle's pattern. A similarity above 0.7 to the
// false-positive pool mean flags a false positive with confidence
// 1-similarity; otherwise confidence defaults to 0.8. The adaptive
// threshold smooths toward each cycle's confidence.
func (m *MLFilter) Evaluate(motionLevel, backgroundSimilarity float64) (confidence float64, falsePositive bool) {
	pattern := Pattern(motionLevel, backgroundSimilarity)
	m.evaluations++

	confidence = 0.8
	if m.scorer != nil {
		if score, err := m.scorer.Score(pattern); err == nil {
			confidence = clamp01(score)
			falsePositive = confidence < m.threshold
		}
	} else if len(m.falsePatterns) > 0 {
		sim := 1 - math.Abs(pattern-mean(m.falsePatterns))
		if sim > 0.7 {
			falsePositive = true
			confidence = clamp01(1 - sim)
		}
	}

	if falsePositive {
		m.flaggedFalse++
	}
	m.threshold = m.threshold*0.95 + confidence*0.05
	return confidence, falsePositive
}

// RecordTruePositive appends a confirmed-genuine exemplar.
func (m *MLFilter) RecordTruePositive(pattern float64) {
	m.truePatterns = appendBounded(m.truePatterns, clamp01(pattern), m.maxPatterns)
}

// RecordFalsePositive appends a confirmed-spurious exemplar.
func (m *MLFilter) RecordFalsePositive(pattern float64) {
	m.falsePatterns = appendBounded(m.falsePatterns, clamp01(pattern), m.maxPatterns)
}

// Threshold returns the current adaptive threshold.
func (m *MLFilter) Threshold() float64 { return m.threshold }

// FalsePositiveRate returns the fraction of evaluations flagged false.
func (m *MLFilter) FalsePositiveRate() float64 {
	if m.evaluations == 0 {
		return 0
	}
	return float64(m.flaggedFalse) / float64(m.evaluations)
}

// PoolSizes returns the current exemplar pool sizes.
func (m *MLFilter) PoolSizes() (truePositives, falsePositives int) {
	return len(m.truePatterns), len(m.falsePatterns)
}

func appendBounded(pool []float64, v float64, max int) []float64 {
	pool = append(pool, v)
	if len(pool) > max {
		pool = pool[len(pool)-max:]
	}
	return pool
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
