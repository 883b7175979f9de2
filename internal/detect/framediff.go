package detect

import (
	"image"
	"time"

	"github.com/thewriterben/wildcam/internal/frame"
)

// FrameConfig configures the basic frame-differencing detector.
type FrameConfig struct {
	AnalysisWidth  int     // reference buffer width, independent of capture resolution
	AnalysisHeight int     // reference buffer height
	Threshold      float64 // 0-255 scale; motion flags when level exceeds Threshold/255
	SampleStride   int     // sample every Nth byte of the luma buffer
	RefreshLevel   float64 // reference refreshes after calm frames below this level
	RefreshFrames  int     // consecutive calm frames before refresh
	BoxFraction    float64 // size of the centered coarse-localization box
}

// DefaultFrameConfig returns the defaults applied to zero-value fields.
func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		AnalysisWidth:  160,
		AnalysisHeight: 120,
		Threshold:      25,
		SampleStride:   2,
		RefreshLevel:   0.05,
		RefreshFrames:  10,
		BoxFraction:    0.5,
	}
}

// FrameResult is the outcome of one frame-differencing pass.
type FrameResult struct {
	Motion     bool
	Level      float64 // [0,1]
	Bounds     image.Rectangle
	FirstFrame bool
}

// FrameDetector maintains one reference luma buffer at a fixed analysis
// resolution and estimates motion from frame deltas. The first frame seeds
// the reference and never reports motion.
type FrameDetector struct {
	cfg        FrameConfig
	reference  []byte
	refRawSize int
	calmFrames int
	stats      DetectorStats
}

// NewFrameDetector builds a detector, defaulting zero-value config fields.
func NewFrameDetector(cfg FrameConfig) *FrameDetector {
	def := DefaultFrameConfig()
	if cfg.AnalysisWidth <= 0 {
		cfg.AnalysisWidth = def.AnalysisWidth
	}
	if cfg.AnalysisHeight <= 0 {
		cfg.AnalysisHeight = def.AnalysisHeight
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Threshold > 255 {
		cfg.Threshold = 255
	}
	if cfg.SampleStride <= 0 {
		cfg.SampleStride = def.SampleStride
	}
	if cfg.RefreshLevel <= 0 {
		cfg.RefreshLevel = def.RefreshLevel
	}
	if cfg.RefreshFrames <= 0 {
		cfg.RefreshFrames = def.RefreshFrames
	}
	if cfg.BoxFraction <= 0 || cfg.BoxFraction > 1 {
		cfg.BoxFraction = def.BoxFraction
	}
	return &FrameDetector{cfg: cfg}
}

// Detect decodes the frame to the analysis resolution and runs one
// differencing pass. Decode failures are transient sensing errors: the
// caller treats them as no motion this cycle.
func (d *FrameDetector) Detect(f *frame.Frame) (FrameResult, error) {
	start := time.Now()
	luma, err := frame.Luma(f, d.cfg.AnalysisWidth, d.cfg.AnalysisHeight)
	if err != nil {
		return FrameResult{}, err
	}
	res := d.DetectBuffer(luma, len(f.Data), f.Width, f.Height)
	d.stats.record(time.Since(start), res.Motion)
	return res, nil
}

// DetectBuffer runs the differencing pass on an already-prepared luma
// buffer. Used by the advanced analyzer to avoid decoding twice.
func (d *FrameDetector) DetectBuffer(luma []byte, rawSize, captureW, captureH int) FrameResult {
	if len(luma) == 0 {
		return FrameResult{}
	}

	// Cold start: seed the reference, report no motion.
	if d.reference == nil || len(d.reference) != len(luma) {
		d.reference = append([]byte(nil), luma...)
		d.refRawSize = rawSize
		d.calmFrames = 0
		return FrameResult{FirstFrame: true}
	}

	var diffSum, samples int
	for i := 0; i < len(luma); i += d.cfg.SampleStride {
		delta := int(luma[i]) - int(d.reference[i])
		if delta < 0 {
			delta = -delta
		}
		diffSum += delta
		samples++
	}
	pixelDelta := float64(diffSum) / float64(samples) / 255.0

	sizeDelta := 0.0
	if d.refRawSize > 0 && rawSize > 0 {
		diff := rawSize - d.refRawSize
		if diff < 0 {
			diff = -diff
		}
		base := d.refRawSize
		if rawSize > base {
			base = rawSize
		}
		sizeDelta = float64(diff) / float64(base)
	}

	level := clamp01(0.7*pixelDelta + 0.3*sizeDelta)
	res := FrameResult{
		Level:  level,
		Motion: level > d.cfg.Threshold/255.0,
	}
	if res.Motion {
		res.Bounds = d.centeredBox(captureW, captureH)
	}

	// Reference auto-refresh after a calm stretch.
	if level < d.cfg.RefreshLevel {
		d.calmFrames++
		if d.calmFrames >= d.cfg.RefreshFrames {
			copy(d.reference, luma)
			d.refRawSize = rawSize
			d.calmFrames = 0
		}
	} else {
		d.calmFrames = 0
	}

	return res
}

// Reset drops the reference buffer; the next frame becomes a cold start.
func (d *FrameDetector) Reset() {
	d.reference = nil
	d.refRawSize = 0
	d.calmFrames = 0
}

// Stats returns the detector's counters.
func (d *FrameDetector) Stats() DetectorStats { return d.stats }

// AnalysisSize returns the fixed analysis resolution.
func (d *FrameDetector) AnalysisSize() (int, int) {
	return d.cfg.AnalysisWidth, d.cfg.AnalysisHeight
}

func (d *FrameDetector) centeredBox(captureW, captureH int) image.Rectangle {
	if captureW <= 0 || captureH <= 0 {
		captureW, captureH = d.cfg.AnalysisWidth, d.cfg.AnalysisHeight
	}
	bw := int(float64(captureW) * d.cfg.BoxFraction)
	bh := int(float64(captureH) * d.cfg.BoxFraction)
	x0 := (captureW - bw) / 2
	y0 := (captureH - bh) / 2
	return image.Rect(x0, y0, x0+bw, y0+bh)
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
