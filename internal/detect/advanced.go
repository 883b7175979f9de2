package detect

import (
	"log"
	"time"

	"github.com/thewriterben/wildcam/internal/frame"
)

// AdvancedConfig configures the advanced frame analyzer. Each stage is
// independently toggleable; a stage that fails to allocate degrades to a
// zero contribution instead of aborting the cycle.
type AdvancedConfig struct {
	Frame FrameConfig

	EnableBackground bool
	EnableVectors    bool
	EnableSizeFilter bool
	EnableMLFilter   bool

	// ContinuousBackground keeps the background model tracking even on
	// motion-free cycles.
	ContinuousBackground bool

	BlockSize           int           // motion-vector block size
	BackgroundAlpha     float64       // EMA factor
	BackgroundInterval  time.Duration // min interval between background updates
	BackgroundMaxFrames int           // force update after this many frames

	MinObjectSize         float64 // normalized fraction of frame area
	MaxObjectSize         float64
	SizeConfidenceWeight  float64 // motion-level reduction per dropped fraction
	MLConfidenceThreshold float64 // FP flags below this suppress motion
	MLPoolSize            int
}

// DefaultAdvancedConfig returns the analyzer defaults with all stages on.
func DefaultAdvancedConfig() AdvancedConfig {
	return AdvancedConfig{
		Frame:                 DefaultFrameConfig(),
		EnableBackground:      true,
		EnableVectors:         true,
		EnableSizeFilter:      true,
		EnableMLFilter:        true,
		ContinuousBackground:  true,
		BlockSize:             16,
		BackgroundAlpha:       0.05,
		BackgroundInterval:    10 * time.Second,
		BackgroundMaxFrames:   30,
		MinObjectSize:         0.001,
		MaxObjectSize:         0.8,
		SizeConfidenceWeight:  0.3,
		MLConfidenceThreshold: 0.6,
		MLPoolSize:            50,
	}
}

// AdvancedResult extends the basic frame result with the enhanced-analysis
// outputs.
type AdvancedResult struct {
	FrameResult
	BackgroundSimilarity float64
	Vectors              VectorField
	ObjectSize           float64 // normalized estimate of the largest object
	MLConfidence         float64
	FalsePositive        bool
	DwellTime            time.Duration // last completed dwell
	Dwelling             bool
}

// AdvancedDetector layers background modeling, motion-vector extraction,
// size filtering and ML false-positive filtering on top of the basic frame
// detector. All state is owned by this struct and mutated only on the
// polling goroutine.
type AdvancedDetector struct {
	cfg  AdvancedConfig
	fd   *FrameDetector
	bg   *BackgroundModel
	ml   *MLFilter
	size sizeFilter

	bgDisabled bool
	dwellStart time.Time
	lastDwell  time.Duration

	stats DetectorStats
	now   func() time.Time
}

// NewAdvancedDetector builds the analyzer, defaulting zero-value fields.
func NewAdvancedDetector(cfg AdvancedConfig) *AdvancedDetector {
	def := DefaultAdvancedConfig()
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = def.BlockSize
	}
	if cfg.BackgroundAlpha <= 0 {
		cfg.BackgroundAlpha = def.BackgroundAlpha
	}
	if cfg.BackgroundInterval <= 0 {
		cfg.BackgroundInterval = def.BackgroundInterval
	}
	if cfg.BackgroundMaxFrames <= 0 {
		cfg.BackgroundMaxFrames = def.BackgroundMaxFrames
	}
	if cfg.SizeConfidenceWeight <= 0 {
		cfg.SizeConfidenceWeight = def.SizeConfidenceWeight
	}
	if cfg.MLConfidenceThreshold <= 0 {
		cfg.MLConfidenceThreshold = def.MLConfidenceThreshold
	}

	return &AdvancedDetector{
		cfg:  cfg,
		fd:   NewFrameDetector(cfg.Frame),
		bg:   NewBackgroundModel(cfg.BackgroundAlpha, cfg.BackgroundInterval, cfg.BackgroundMaxFrames),
		ml:   NewMLFilter(cfg.MLPoolSize),
		size: newSizeFilter(cfg.MinObjectSize, cfg.MaxObjectSize),
		now:  time.Now,
	}
}

// SetScorer injects an external false-positive scorer into the ML filter.
func (a *AdvancedDetector) SetScorer(s Scorer) { a.ml.SetScorer(s) }

// MLFilter exposes the filter for supervised feedback.
func (a *AdvancedDetector) MLFilter() *MLFilter { return a.ml }

// Detect runs the basic differencing pass followed by the enabled enhanced
// stages. Stages run when motion is already flagged or, for background
// tracking, when continuous tracking is configured.
func (a *AdvancedDetector) Detect(f *frame.Frame) (AdvancedResult, error) {
	start := a.now()
	w, h := a.fd.AnalysisSize()

	luma, err := frame.Luma(f, w, h)
	if err != nil {
		return AdvancedResult{}, err
	}

	res := AdvancedResult{
		FrameResult:  a.fd.DetectBuffer(luma, len(f.Data), f.Width, f.Height),
		MLConfidence: 0.8,
	}

	runStages := res.Motion || a.cfg.ContinuousBackground
	if a.cfg.EnableBackground && !a.bgDisabled && runStages {
		sim, err := a.bg.Similarity(luma, w, h)
		if err != nil {
			// Degrade: the stage contributes nothing from here on.
			log.Printf("[Advanced] background model disabled: %v", err)
			a.bgDisabled = true
		} else {
			res.BackgroundSimilarity = sim
			a.bg.MaybeUpdate(luma, start)
		}
	}

	if a.cfg.EnableVectors && res.Motion && a.bg.Allocated() {
		res.Vectors = extractVectors(luma, w, h, a.bg.Mean(), a.cfg.BlockSize)
	}

	if a.cfg.EnableSizeFilter && len(res.Vectors.Vectors) > 0 {
		kept, droppedRatio := a.size.apply(res.Vectors.Vectors, w*h)
		res.Vectors.Vectors = kept
		res.ObjectSize = a.size.estimateObjectSize(kept, w*h)
		if droppedRatio > 0 {
			res.Level = clamp01(res.Level * (1 - a.cfg.SizeConfidenceWeight*droppedRatio))
			res.Motion = res.Level > a.cfg.Frame.Threshold/255.0
		}
	}

	if a.cfg.EnableMLFilter && res.Motion {
		conf, fp := a.ml.Evaluate(res.Level, res.BackgroundSimilarity)
		res.MLConfidence = conf
		res.FalsePositive = fp
		pattern := Pattern(res.Level, res.BackgroundSimilarity)
		if fp {
			a.ml.RecordFalsePositive(pattern)
			if conf < a.cfg.MLConfidenceThreshold {
				res.Motion = false
				a.stats.FalsePositives++
			}
		} else {
			a.ml.RecordTruePositive(pattern)
		}
	}

	a.updateDwell(&res, start)
	a.stats.record(a.now().Sub(start), res.Motion)
	return res, nil
}

// updateDwell latches a timer on the first motion-true frame and records
// the dwell time on the transition back to motion-false.
func (a *AdvancedDetector) updateDwell(res *AdvancedResult, now time.Time) {
	switch {
	case res.Motion && a.dwellStart.IsZero():
		a.dwellStart = now
	case !res.Motion && !a.dwellStart.IsZero():
		a.lastDwell = now.Sub(a.dwellStart)
		a.dwellStart = time.Time{}
	}
	res.DwellTime = a.lastDwell
	res.Dwelling = !a.dwellStart.IsZero()
	if res.Dwelling {
		res.DwellTime = now.Sub(a.dwellStart)
	}
}

// Reset clears the frame reference and dwell latch. The background model
// and exemplar pools survive a reset.
func (a *AdvancedDetector) Reset() {
	a.fd.Reset()
	a.dwellStart = time.Time{}
}

// Stats returns the analyzer's counters.
func (a *AdvancedDetector) Stats() DetectorStats { return a.stats }
