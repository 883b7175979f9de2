package adaptive

import (
	"fmt"
	"image"
	"time"

	"github.com/thewriterben/wildcam/internal/telemetry"
)

// ProcessingLevel is the recommended per-cycle processing intensity.
type ProcessingLevel int

const (
	ProcessingMinimal ProcessingLevel = iota
	ProcessingReduced
	ProcessingStandard
	ProcessingEnhanced
	ProcessingMaximum
)

func (l ProcessingLevel) String() string {
	switch l {
	case ProcessingMinimal:
		return "minimal"
	case ProcessingReduced:
		return "reduced"
	case ProcessingStandard:
		return "standard"
	case ProcessingEnhanced:
		return "enhanced"
	case ProcessingMaximum:
		return "maximum"
	default:
		return fmt.Sprintf("processing(%d)", int(l))
	}
}

// TimeBudget is the soft processing-time budget for a level. Budgets are
// advisory to method selection, never hard preemption.
func (l ProcessingLevel) TimeBudget() time.Duration {
	switch l {
	case ProcessingMinimal:
		return 50 * time.Millisecond
	case ProcessingReduced:
		return 100 * time.Millisecond
	case ProcessingStandard:
		return 200 * time.Millisecond
	case ProcessingEnhanced:
		return 350 * time.Millisecond
	default:
		return 500 * time.Millisecond
	}
}

// QualityFactor scales capture quality for a level.
func (l ProcessingLevel) QualityFactor() float64 {
	switch l {
	case ProcessingMinimal:
		return 0.5
	case ProcessingReduced:
		return 0.65
	case ProcessingStandard:
		return 0.8
	case ProcessingEnhanced:
		return 0.9
	default:
		return 1.0
	}
}

// Config configures the adaptive controller.
type Config struct {
	ActivityWindow time.Duration // rolling window for activity classification
	MaxHistory     int           // hard cap on retained detection entries
	MaxSkips       int           // consecutive frame-skip cap
	ROIGain        float64       // confidence multiplier for ROI blending
	Thresholds     telemetry.Thresholds
}

// DefaultConfig returns the controller defaults.
func DefaultConfig() Config {
	return Config{
		ActivityWindow: 10 * time.Minute,
		MaxHistory:     100,
		MaxSkips:       3,
		ROIGain:        0.6,
		Thresholds:     telemetry.DefaultThresholds(),
	}
}

// Recommendation is the controller's per-cycle output.
type Recommendation struct {
	Activity   ActivityLevel
	Level      ProcessingLevel
	TimeBudget time.Duration
	Quality    float64
	SkipFrame  bool
	ROI        ROI
}

// Stats exposes the controller's read-only counters.
type Stats struct {
	Recommendations uint64
	FramesSkipped   uint64
	AvgConfidence   float64
}

// Controller tracks rolling activity and recommends processing intensity,
// a region of interest and frame skipping from telemetry. All state is
// mutated only on the polling goroutine.
type Controller struct {
	cfg      Config
	activity *activityTracker
	roi      ROI

	consecutiveSkips int
	stats            Stats
	now              func() time.Time
}

// NewController builds a controller, defaulting zero-value config fields.
func NewController(cfg Config) *Controller {
	def := DefaultConfig()
	if cfg.ActivityWindow <= 0 {
		cfg.ActivityWindow = def.ActivityWindow
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = def.MaxHistory
	}
	if cfg.MaxSkips <= 0 {
		cfg.MaxSkips = def.MaxSkips
	}
	if cfg.ROIGain <= 0 {
		cfg.ROIGain = def.ROIGain
	}
	if cfg.Thresholds == (telemetry.Thresholds{}) {
		cfg.Thresholds = def.Thresholds
	}
	return &Controller{
		cfg:      cfg,
		activity: newActivityTracker(cfg.ActivityWindow, cfg.MaxHistory),
		now:      time.Now,
	}
}

// RecordDetection feeds a motion-positive cycle back into the activity
// history and drifts the ROI toward its bounding box.
func (c *Controller) RecordDetection(confidence float64, bounds image.Rectangle, duration time.Duration, frameW, frameH int) {
	at := c.now()
	c.activity.record(at, confidence, duration)
	c.roi.update(bounds, confidence, frameW, frameH, c.cfg.ROIGain, at)
}

// Recommend classifies current activity, maps it with telemetry to a
// processing level and decides whether this cycle's frame should be
// skipped entirely.
func (c *Controller) Recommend(env telemetry.Environment) Recommendation {
	now := c.now()
	activity := c.activity.classify(now)
	level := baseLevel(activity)

	// Environmental ceilings. Battery dominates; the rest shave a level.
	if env.BatteryLow(c.cfg.Thresholds) {
		if level > ProcessingReduced {
			level = ProcessingReduced
		}
		if activity == ActivityDormant {
			level = ProcessingMinimal
		}
	}
	if env.TemperatureExtreme(c.cfg.Thresholds) && level > ProcessingMinimal {
		level--
	}
	if env.LightLow(c.cfg.Thresholds) && level > ProcessingMinimal {
		level--
	}

	rec := Recommendation{
		Activity:   activity,
		Level:      level,
		TimeBudget: level.TimeBudget(),
		Quality:    level.QualityFactor(),
		ROI:        c.roi,
	}

	if level <= ProcessingReduced && c.consecutiveSkips < c.cfg.MaxSkips {
		rec.SkipFrame = true
		c.consecutiveSkips++
		c.stats.FramesSkipped++
	} else {
		c.consecutiveSkips = 0
	}

	c.stats.Recommendations++
	c.stats.AvgConfidence = c.activity.averageConfidence()
	return rec
}

// ROI returns the current region-of-interest state.
func (c *Controller) ROI() ROI { return c.roi }

// Activity returns the activity level as of now.
func (c *Controller) Activity() ActivityLevel {
	return c.activity.classify(c.now())
}

// Stats returns the controller's counters.
func (c *Controller) Stats() Stats { return c.stats }

func baseLevel(activity ActivityLevel) ProcessingLevel {
	switch activity {
	case ActivityDormant:
		return ProcessingMinimal
	case ActivityLow:
		return ProcessingReduced
	case ActivityModerate:
		return ProcessingStandard
	case ActivityHigh:
		return ProcessingEnhanced
	default:
		return ProcessingMaximum
	}
}
