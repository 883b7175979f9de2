package coordinator

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/thewriterben/wildcam/internal/adaptive"
	"github.com/thewriterben/wildcam/internal/detect"
	"github.com/thewriterben/wildcam/internal/telemetry"
	"github.com/thewriterben/wildcam/internal/wildlife"
)

// Result is one cycle's aggregate decision. Built fresh per cycle and
// immutable after construction.
type Result struct {
	EventID         string
	Timestamp       time.Time
	Skipped         bool
	MotionDetected  bool
	FusedConfidence float64
	Adjustment      float64 // environmental multiplier applied, in [0.5,1.2]
	Method          detect.Method
	Rationale       string

	ShouldCapture  bool
	ShouldSave     bool
	ShouldTransmit bool
	ShouldAlert    bool

	Detection detect.Result
	Wildlife  *wildlife.Classification

	ProcessTime time.Duration
}

// Stats exposes the coordinator's read-only counters.
type Stats struct {
	Cycles     uint64
	Skipped    uint64
	Detections uint64
	Captures   uint64
	Faults     uint64
	Fallbacks  uint64
}

// Detector is the detection facade surface the coordinator drives.
// Satisfied by *detect.Facade.
type Detector interface {
	Detect(m detect.Method) (detect.Result, error)
	Composer() *detect.Composer
}

// Coordinator sequences the adaptive controller, detection facade and
// wildlife analyzer, fuses their confidences and emits capture, save,
// transmit and alert decisions. Single-in-flight: callers must not run
// cycles concurrently.
type Coordinator struct {
	cfg        Config
	facade     Detector
	controller *adaptive.Controller
	analyzer   *wildlife.Analyzer

	onDetection func(Result)

	consecutiveFailures int
	fallbackUntil       time.Time

	stats Stats
	now   func() time.Time
}

// New wires the coordinator. Controller and analyzer may be nil; the
// corresponding steps then contribute nothing.
func New(cfg Config, facade Detector, controller *adaptive.Controller, analyzer *wildlife.Analyzer) *Coordinator {
	def := DefaultConfig()
	if cfg.PresenceWeight <= 0 {
		cfg.PresenceWeight = def.PresenceWeight
	}
	if cfg.FrameWeight <= 0 {
		cfg.FrameWeight = def.FrameWeight
	}
	if cfg.AIWeight <= 0 {
		cfg.AIWeight = def.AIWeight
	}
	if cfg.CaptureThreshold <= 0 {
		cfg.CaptureThreshold = def.CaptureThreshold
	}
	if cfg.TransmitThreshold <= 0 {
		cfg.TransmitThreshold = def.TransmitThreshold
	}
	if cfg.AlertThreshold <= 0 {
		cfg.AlertThreshold = def.AlertThreshold
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = def.MaxFailures
	}
	if cfg.RecoveryDelay <= 0 {
		cfg.RecoveryDelay = def.RecoveryDelay
	}
	if cfg.FrameWidth <= 0 {
		cfg.FrameWidth = def.FrameWidth
	}
	if cfg.FrameHeight <= 0 {
		cfg.FrameHeight = def.FrameHeight
	}
	if cfg.Thresholds == (telemetry.Thresholds{}) {
		cfg.Thresholds = def.Thresholds
	}
	return &Coordinator{
		cfg:        cfg,
		facade:     facade,
		controller: controller,
		analyzer:   analyzer,
		now:        time.Now,
	}
}

// OnDetection registers the single detection callback, invoked
// synchronously after every motion-positive cycle.
func (c *Coordinator) OnDetection(fn func(Result)) { c.onDetection = fn }

// Stats returns the coordinator's counters.
func (c *Coordinator) Stats() Stats { return c.stats }

// Analyzer exposes the wildlife analyzer for supervised feedback.
func (c *Coordinator) Analyzer() *wildlife.Analyzer { return c.analyzer }

// ProcessCycle runs one full decision cycle against the supplied
// telemetry. Pipeline faults are absorbed into the fallback policy; the
// returned error reports them for logging but never leaves the
// coordinator in an inconsistent state.
func (c *Coordinator) ProcessCycle(env telemetry.Environment) (Result, error) {
	start := c.now()
	c.stats.Cycles++

	res := Result{
		EventID:    uuid.NewString(),
		Timestamp:  start,
		Adjustment: 1,
	}

	// 1. Adaptive recommendation; honor a frame-skip.
	var rec adaptive.Recommendation
	if c.controller != nil {
		rec = c.controller.Recommend(env)
		if rec.SkipFrame {
			c.stats.Skipped++
			res.Skipped = true
			res.Rationale = fmt.Sprintf("frame skipped at %s activity", rec.Activity)
			res.ProcessTime = c.now().Sub(start)
			return res, nil
		}
	}

	// 2. Resolve the effective method. A tripped failure fallback pins
	// presence-only until the recovery delay elapses.
	method := c.resolveMethod(rec, start)
	res.Method = method

	// 3. Detection.
	if comp := c.facade.Composer(); comp != nil {
		comp.SetTelemetry(env)
	}
	det, err := c.facade.Detect(method)
	if err != nil {
		c.recordFault(start)
		res.Rationale = "pipeline fault, falling back"
		res.ProcessTime = c.now().Sub(start)
		return res, fmt.Errorf("detection cycle: %w", err)
	}
	res.Detection = det
	res.MotionDetected = det.Motion

	// 4. Feed the wildlife analyzer on motion.
	var (
		cls        wildlife.Classification
		classified bool
	)
	if det.Motion && c.analyzer != nil {
		c.analyzer.AddSample(wildlife.MotionSample{
			Timestamp: det.Timestamp,
			Level:     det.Components.Frame,
			Bounds:    det.Bounds,
			Area:      boundsArea(det, c.cfg.FrameWidth, c.cfg.FrameHeight),
		})
		cls, classified = c.analyzer.Analyze(env.Hour)
		if classified {
			w := cls
			res.Wildlife = &w
		}
	}

	// 5-6. Fuse and adjust.
	fused := c.fuse(det, cls, classified)
	adj := c.adjustment(env)
	res.Adjustment = adj
	res.FusedConfidence = clamp01(fused * adj)

	// 7. Derive the decisions.
	isWildlife := classified && cls.Category.IsWildlife()
	res.ShouldCapture = res.FusedConfidence >= c.cfg.CaptureThreshold &&
		det.Motion && (!isWildlife || cls.ShouldCapture)
	res.ShouldSave = res.ShouldCapture
	res.ShouldTransmit = res.ShouldSave && res.FusedConfidence >= c.cfg.TransmitThreshold
	res.ShouldAlert = res.FusedConfidence >= c.cfg.AlertThreshold ||
		(isWildlife && cls.ShouldAlert)
	res.Rationale = c.rationale(det, cls, classified, res)

	if det.Motion {
		c.stats.Detections++
		c.consecutiveFailures = 0
		if c.controller != nil {
			dwell := time.Duration(0)
			if det.Enhanced != nil {
				dwell = det.Enhanced.DwellTime
			}
			c.controller.RecordDetection(res.FusedConfidence, det.Bounds, dwell,
				c.cfg.FrameWidth, c.cfg.FrameHeight)
		}
	}
	if res.ShouldCapture {
		c.stats.Captures++
	}

	res.ProcessTime = c.now().Sub(start)
	if det.Motion && c.onDetection != nil {
		c.onDetection(res)
	}
	return res, nil
}

// resolveMethod maps the processing level to a detection method unless an
// explicit method or the failure fallback overrides it.
func (c *Coordinator) resolveMethod(rec adaptive.Recommendation, now time.Time) detect.Method {
	if c.consecutiveFailures >= c.cfg.MaxFailures && now.Before(c.fallbackUntil) {
		return detect.MethodPresenceOnly
	}
	if c.cfg.Method != detect.MethodAdaptive {
		return c.cfg.Method
	}
	if c.controller == nil {
		return detect.MethodAIHybrid
	}
	switch rec.Level {
	case adaptive.ProcessingMinimal:
		return detect.MethodPresenceOnly
	case adaptive.ProcessingReduced:
		return detect.MethodBasicHybrid
	case adaptive.ProcessingStandard:
		return detect.MethodAIHybrid
	default:
		return detect.MethodFullFusion
	}
}

// fuse combines the active detector confidences with the configured
// weights plus the fixed wildlife-confirmation weight, normalized by the
// weight of the contributors that ran.
func (c *Coordinator) fuse(det detect.Result, cls wildlife.Classification, classified bool) float64 {
	var weightSum, weighted float64
	if det.Components.PresenceActive {
		weightSum += c.cfg.PresenceWeight
		weighted += c.cfg.PresenceWeight * det.Components.Presence
	}
	if det.Components.FrameActive {
		weightSum += c.cfg.FrameWeight
		weighted += c.cfg.FrameWeight * det.Components.Frame
	}
	if det.Components.AIActive {
		weightSum += c.cfg.AIWeight
		weighted += c.cfg.AIWeight * det.Components.AI
	}
	if classified && cls.Category.IsWildlife() {
		weightSum += wildlifeWeight
		weighted += wildlifeWeight * cls.Likelihood
	}
	if weightSum == 0 {
		return 0
	}
	return clamp01(weighted / weightSum)
}

// adjustment computes the environmental multiplier, clamped to [0.5,1.2].
func (c *Coordinator) adjustment(env telemetry.Environment) float64 {
	adj := 1.0
	if env.BatteryLow(c.cfg.Thresholds) {
		adj *= 0.9
	}
	if env.TemperatureExtreme(c.cfg.Thresholds) {
		adj *= 0.95
	}
	if env.LightLow(c.cfg.Thresholds) {
		adj *= 0.9
	}
	if env.WeatherActive {
		adj *= 0.85
	}
	adj *= timeOfDayAdjustment(env.Hour)
	if adj < 0.5 {
		adj = 0.5
	}
	if adj > 1.2 {
		adj = 1.2
	}
	return adj
}

// timeOfDayAdjustment boosts crepuscular hours and discounts midday,
// within [0.9,1.15].
func timeOfDayAdjustment(hour int) float64 {
	switch {
	case hour >= 5 && hour <= 8:
		return 1.15
	case hour >= 17 && hour <= 20:
		return 1.15
	case hour >= 11 && hour <= 14:
		return 0.9
	default:
		return 1.0
	}
}

func (c *Coordinator) recordFault(now time.Time) {
	c.stats.Faults++
	c.consecutiveFailures++
	// Re-arm on every fault at or past the cap, so a fault during the
	// post-hold retry opens a fresh presence-only window.
	if c.consecutiveFailures >= c.cfg.MaxFailures {
		c.fallbackUntil = now.Add(c.cfg.RecoveryDelay)
		c.stats.Fallbacks++
		log.Printf("[Coordinator] %d consecutive faults, presence-only until %s",
			c.consecutiveFailures, c.fallbackUntil.Format(time.RFC3339))
	}
}

func (c *Coordinator) rationale(det detect.Result, cls wildlife.Classification, classified bool, res Result) string {
	if !det.Motion {
		return det.Description
	}
	s := fmt.Sprintf("%s via %s, fused %.2f", det.Description, res.Method, res.FusedConfidence)
	if classified {
		s += fmt.Sprintf(", classified %s (likelihood %.2f)", cls.Category, cls.Likelihood)
	}
	return s
}

// boundsArea normalizes the detection's object footprint. The advanced
// analyzer's size estimate wins when present.
func boundsArea(det detect.Result, frameW, frameH int) float64 {
	if det.Enhanced != nil && det.Enhanced.ObjectSize > 0 {
		return det.Enhanced.ObjectSize
	}
	if frameW <= 0 || frameH <= 0 || det.Bounds.Empty() {
		return 0
	}
	return clamp01(float64(det.Bounds.Dx()*det.Bounds.Dy()) / float64(frameW*frameH))
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
