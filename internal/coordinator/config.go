package coordinator

import (
	"time"

	"github.com/thewriterben/wildcam/internal/detect"
	"github.com/thewriterben/wildcam/internal/telemetry"
)

// Config configures the motion coordinator. The wildlife-confirmation
// fusion weight is fixed; the detector weights are configurable.
type Config struct {
	Method detect.Method // explicit method, or MethodAdaptive

	PresenceWeight float64 // default 0.3
	FrameWeight    float64 // default 0.4
	AIWeight       float64 // default 0.3

	CaptureThreshold  float64 // default 0.7
	TransmitThreshold float64 // default 0.8
	AlertThreshold    float64 // default 0.9

	MaxFailures   int           // consecutive faults before fallback (default 5)
	RecoveryDelay time.Duration // presence-only hold after fallback (default 30s)

	FrameWidth  int // capture dimensions for ROI bounds
	FrameHeight int

	Thresholds telemetry.Thresholds
}

// Fixed fusion weight for wildlife confirmation.
const wildlifeWeight = 0.2

// DefaultConfig returns the coordinator defaults.
func DefaultConfig() Config {
	return Config{
		Method:            detect.MethodAdaptive,
		PresenceWeight:    0.3,
		FrameWeight:       0.4,
		AIWeight:          0.3,
		CaptureThreshold:  0.7,
		TransmitThreshold: 0.8,
		AlertThreshold:    0.9,
		MaxFailures:       5,
		RecoveryDelay:     30 * time.Second,
		FrameWidth:        1600,
		FrameHeight:       1200,
		Thresholds:        telemetry.DefaultThresholds(),
	}
}

// Overrides carries optional per-deployment settings. Nil fields keep the
// defaults; set fields replace them.
type Overrides struct {
	Method            *detect.Method
	PresenceWeight    *float64
	FrameWeight       *float64
	AIWeight          *float64
	CaptureThreshold  *float64
	TransmitThreshold *float64
	AlertThreshold    *float64
	MaxFailures       *int
	RecoveryDelay     *time.Duration
	FrameWidth        *int
	FrameHeight       *int
}

// MergeWithDefaults applies the overrides on top of the defaults.
func (o Overrides) MergeWithDefaults() Config {
	cfg := DefaultConfig()
	if o.Method != nil {
		cfg.Method = *o.Method
	}
	if o.PresenceWeight != nil {
		cfg.PresenceWeight = *o.PresenceWeight
	}
	if o.FrameWeight != nil {
		cfg.FrameWeight = *o.FrameWeight
	}
	if o.AIWeight != nil {
		cfg.AIWeight = *o.AIWeight
	}
	if o.CaptureThreshold != nil {
		cfg.CaptureThreshold = *o.CaptureThreshold
	}
	if o.TransmitThreshold != nil {
		cfg.TransmitThreshold = *o.TransmitThreshold
	}
	if o.AlertThreshold != nil {
		cfg.AlertThreshold = *o.AlertThreshold
	}
	if o.MaxFailures != nil {
		cfg.MaxFailures = *o.MaxFailures
	}
	if o.RecoveryDelay != nil {
		cfg.RecoveryDelay = *o.RecoveryDelay
	}
	if o.FrameWidth != nil {
		cfg.FrameWidth = *o.FrameWidth
	}
	if o.FrameHeight != nil {
		cfg.FrameHeight = *o.FrameHeight
	}
	return cfg
}
