package wildlife

import "log"

// Config configures the pattern analyzer.
type Config struct {
	MaxSamples    int     // bounded sample buffer (default 30)
	MaxExemplars  int     // per-category learned exemplar cap (default 20)
	MinConfidence float64 // floor for supervised learning (default 0.5)
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() Config {
	return Config{
		MaxSamples:    30,
		MaxExemplars:  20,
		MinConfidence: 0.5,
	}
}

// Classification is one analysis outcome.
type Classification struct {
	Category        Category
	Confidence      float64 // classification confidence
	Likelihood      float64 // wildlife likelihood in [0,1]
	Interest        float64 // likelihood weighted by time of day
	Characteristics MovementCharacteristics
	ShouldCapture   bool
	ShouldAlert     bool
}

// LearnedPattern is the per-category learned state: a bounded exemplar
// pool plus an estimate of how often the category appears.
type LearnedPattern struct {
	Category  Category
	Exemplars []MovementCharacteristics
	Observed  uint64
}

// Stats exposes the analyzer's counters.
type Stats struct {
	Analyses        uint64
	WildlifeMatches uint64
	Learned         uint64
}

// Analyzer converts a window of positional motion samples into movement
// characteristics and classifies them into behavior categories. Samples,
// learned patterns and hourly activity are owned by the analyzer and
// mutated only on the polling goroutine.
type Analyzer struct {
	cfg     Config
	samples []MotionSample

	patterns map[Category]*LearnedPattern
	hourly   [24]float64 // per-hour wildlife activity estimate in [0,1]

	stats Stats
}

// NewAnalyzer builds an analyzer, defaulting zero-value config fields.
func NewAnalyzer(cfg Config) *Analyzer {
	def := DefaultConfig()
	if cfg.MaxSamples < 3 {
		cfg.MaxSamples = def.MaxSamples
	}
	if cfg.MaxExemplars <= 0 {
		cfg.MaxExemplars = def.MaxExemplars
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	return &Analyzer{
		cfg:      cfg,
		patterns: make(map[Category]*LearnedPattern),
	}
}

// AddSample appends one observation, evicting the oldest past capacity.
func (a *Analyzer) AddSample(s MotionSample) {
	a.samples = append(a.samples, s)
	if len(a.samples) > a.cfg.MaxSamples {
		a.samples = a.samples[len(a.samples)-a.cfg.MaxSamples:]
	}
}

// SampleCount returns the current buffer size.
func (a *Analyzer) SampleCount() int { return len(a.samples) }

// Reset clears the sample buffer. Learned patterns survive.
func (a *Analyzer) Reset() { a.samples = a.samples[:0] }

// Analyze classifies the current sample window. It returns false until at
// least three samples have accumulated.
func (a *Analyzer) Analyze(hour int) (Classification, bool) {
	if len(a.samples) < 3 {
		return Classification{}, false
	}
	a.stats.Analyses++

	ch := characterize(a.samples)
	cat, conf := classify(ch)
	lk := likelihood(cat, ch)

	cls := Classification{
		Category:        cat,
		Confidence:      conf,
		Likelihood:      lk,
		Interest:        clamp01(lk * timeOfDayFactor(hour)),
		Characteristics: ch,
	}
	cls.ShouldCapture = cat.IsWildlife() && lk >= 0.4
	cls.ShouldAlert = cls.Interest >= 0.75

	if cat.IsWildlife() {
		a.stats.WildlifeMatches++
		a.observeHour(hour, lk)
	}
	return cls, true
}

// LearnPattern records supervised feedback: a confirmed category with its
// observed characteristics. Feedback below the confidence floor is
// discarded. Hourly activity rises only for animal categories.
func (a *Analyzer) LearnPattern(cat Category, ch MovementCharacteristics, confidence float64, hour int) {
	if confidence < a.cfg.MinConfidence {
		log.Printf("[Wildlife] ignoring low-confidence feedback for %s (%.2f)", cat, confidence)
		return
	}

	p, ok := a.patterns[cat]
	if !ok {
		p = &LearnedPattern{Category: cat}
		a.patterns[cat] = p
	}
	p.Exemplars = append(p.Exemplars, ch)
	if len(p.Exemplars) > a.cfg.MaxExemplars {
		p.Exemplars = p.Exemplars[len(p.Exemplars)-a.cfg.MaxExemplars:]
	}
	p.Observed++
	a.stats.Learned++

	if cat.IsWildlife() {
		a.observeHour(hour, confidence)
	}
}

// observeHour raises the hour's activity estimate proportionally to the
// observation's confidence.
func (a *Analyzer) observeHour(hour int, confidence float64) {
	if hour < 0 || hour > 23 {
		return
	}
	a.hourly[hour] = clamp01(a.hourly[hour]*0.9 + confidence*0.1)
}

// HourlyActivity returns the activity estimate for an hour.
func (a *Analyzer) HourlyActivity(hour int) float64 {
	if hour < 0 || hour > 23 {
		return 0
	}
	return a.hourly[hour]
}

// Patterns returns a snapshot of the learned categories ordered by how
// often they were observed.
func (a *Analyzer) Patterns() []LearnedPattern {
	out := make([]LearnedPattern, 0, len(a.patterns))
	for _, p := range a.patterns {
		out = append(out, *p)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Observed > out[j-1].Observed; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// Stats returns the analyzer's counters.
func (a *Analyzer) Stats() Stats { return a.stats }
