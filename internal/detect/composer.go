package detect

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/thewriterben/wildcam/internal/frame"
	"github.com/thewriterben/wildcam/internal/sensor"
	"github.com/thewriterben/wildcam/internal/telemetry"
)

// Blend weights for the enhanced composer states. The presence and frame
// shares are fixed; the legacy state uses the configurable weights below.
const (
	advancedPresenceWeight = 0.4
	advancedFrameWeight    = 0.6
)

// ComposerConfig configures the detector composer.
type ComposerConfig struct {
	PIRWeight      float64 // legacy blend weight for the presence sensor
	FrameWeight    float64 // legacy blend weight for the frame motion level
	AgreementBonus float64 // added when presence and frame agree
	LoadBudget     time.Duration // adaptive mode downgrades beyond this avg cycle time
	Thresholds     telemetry.Thresholds
}

// DefaultComposerConfig returns the defaults applied to zero-value fields.
func DefaultComposerConfig() ComposerConfig {
	return ComposerConfig{
		PIRWeight:      0.5,
		FrameWeight:    0.5,
		AgreementBonus: 0.2,
		LoadBudget:     500 * time.Millisecond,
		Thresholds:     telemetry.DefaultThresholds(),
	}
}

// Composer is the detection-mode state machine. It selects which detector
// combination runs per cycle and produces one weighted confidence. The
// adaptive meta-state resolves to a concrete state before dispatch, so the
// machine is trivially terminating.
type Composer struct {
	cfg      ComposerConfig
	camera   frame.Camera
	presence *sensor.PresenceSensor
	zones    *sensor.MultiZone
	fd       *FrameDetector
	adv      *AdvancedDetector

	mode  Mode
	env   telemetry.Environment
	stats DetectorStats
	now   func() time.Time
}

// NewComposer wires the composer over its detectors. Presence, zones and
// the advanced analyzer may each be nil; states missing a dependency
// degrade to the contributions that remain.
func NewComposer(cfg ComposerConfig, camera frame.Camera, presence *sensor.PresenceSensor, zones *sensor.MultiZone, fd *FrameDetector, adv *AdvancedDetector) *Composer {
	def := DefaultComposerConfig()
	if cfg.PIRWeight <= 0 {
		cfg.PIRWeight = def.PIRWeight
	}
	if cfg.FrameWeight <= 0 {
		cfg.FrameWeight = def.FrameWeight
	}
	if cfg.AgreementBonus <= 0 {
		cfg.AgreementBonus = def.AgreementBonus
	}
	if cfg.LoadBudget <= 0 {
		cfg.LoadBudget = def.LoadBudget
	}
	if cfg.Thresholds == (telemetry.Thresholds{}) {
		cfg.Thresholds = def.Thresholds
	}
	if fd == nil {
		fd = NewFrameDetector(FrameConfig{})
	}
	return &Composer{
		cfg:      cfg,
		camera:   camera,
		presence: presence,
		zones:    zones,
		fd:       fd,
		adv:      adv,
		mode:     ModeLegacyHybrid,
		now:      time.Now,
	}
}

// SetMode selects the composer state for subsequent cycles.
func (c *Composer) SetMode(mode Mode) { c.mode = mode }

// Mode returns the configured (possibly adaptive) state.
func (c *Composer) Mode() Mode { return c.mode }

// SetTelemetry supplies the cycle's environmental telemetry for adaptive
// resolution. The composer never samples hardware itself.
func (c *Composer) SetTelemetry(env telemetry.Environment) { c.env = env }

// Advanced exposes the advanced analyzer, or nil.
func (c *Composer) Advanced() *AdvancedDetector { return c.adv }

// Stats returns the composer's counters.
func (c *Composer) Stats() DetectorStats { return c.stats }

// Detect runs one detection cycle in the current state and returns the
// unified result.
func (c *Composer) Detect() (Result, error) {
	start := c.now()
	mode := c.mode
	if mode == ModeAdaptive {
		mode = c.resolveAdaptive()
	}

	var (
		res Result
		err error
	)
	switch mode {
	case ModeLegacyHybrid:
		res, err = c.detectLegacy()
	case ModeMultiZone:
		res, err = c.detectMultiZone()
	case ModeAdvanced:
		res, err = c.detectAdvanced()
	case ModeFullEnhanced:
		res, err = c.detectFullEnhanced()
	default:
		err = fmt.Errorf("unknown detection mode %d", mode)
	}
	if err != nil {
		return Result{}, err
	}

	res.Mode = mode
	res.Timestamp = start
	res.ProcessTime = c.now().Sub(start)
	c.stats.record(res.ProcessTime, res.Motion)
	return res, nil
}

// DetectGated is the presence-gated variant: a silent presence sensor
// short-circuits to a zero-cost result with no frame capture; otherwise the
// frame check runs at the low-cost capture profile, restoring the prior
// profile afterwards.
func (c *Composer) DetectGated() (Result, error) {
	start := c.now()
	res := Result{Mode: c.mode, Timestamp: start}

	if c.presence == nil || !c.presence.HasMotion() {
		res.Description = "presence silent"
		res.Components.PresenceActive = c.presence != nil
		return res, nil
	}

	res.Motion = true
	res.Components.Presence = 1
	res.Components.PresenceActive = true
	res.Description = "presence triggered"
	res.Confidence = clamp01(c.cfg.PIRWeight / (c.cfg.PIRWeight + c.cfg.FrameWeight))

	if c.camera != nil {
		prior := c.camera.Profile()
		if err := c.camera.SetProfile(frame.ProfileLow); err != nil {
			log.Printf("[Composer] low-cost profile unavailable: %v", err)
		}
		fres, ok, err := c.frameCheck()
		if restoreErr := c.camera.SetProfile(prior); restoreErr != nil {
			log.Printf("[Composer] restoring capture profile: %v", restoreErr)
		}
		if err != nil {
			return Result{}, err
		}
		if ok {
			res.Components.Frame = fres.Level
			res.Components.FrameActive = true
			res.Bounds = fres.Bounds
			conf := c.cfg.PIRWeight + c.cfg.FrameWeight*fres.Level
			if fres.Motion {
				conf += c.cfg.AgreementBonus
				res.Description = "presence confirmed by frame"
			}
			res.Confidence = clamp01(conf / (c.cfg.PIRWeight + c.cfg.FrameWeight))
		}
	}

	res.ProcessTime = c.now().Sub(start)
	c.stats.record(res.ProcessTime, res.Motion)
	return res, nil
}

func (c *Composer) detectLegacy() (Result, error) {
	pres := false
	if c.presence != nil {
		pres = c.presence.HasMotion()
	}

	fres, frameOK, err := c.frameCheck()
	if err != nil {
		return Result{}, err
	}

	presVal := 0.0
	if pres {
		presVal = 1.0
	}

	weightSum := c.cfg.PIRWeight + c.cfg.FrameWeight
	conf := (c.cfg.PIRWeight*presVal + c.cfg.FrameWeight*fres.Level) / weightSum
	if pres && fres.Motion {
		conf += c.cfg.AgreementBonus
	}

	res := Result{
		Motion:     pres || fres.Motion,
		Confidence: clamp01(conf),
		Bounds:     fres.Bounds,
		Components: Components{
			Presence:       presVal,
			PresenceActive: c.presence != nil,
			Frame:          fres.Level,
			FrameActive:    frameOK,
		},
	}
	switch {
	case pres && fres.Motion:
		res.Description = "presence and frame agree"
	case pres:
		res.Description = "presence only"
	case fres.Motion:
		res.Description = "frame motion only"
	default:
		res.Description = "no motion"
	}
	return res, nil
}

func (c *Composer) detectMultiZone() (Result, error) {
	if c.zones == nil || c.zones.ZoneCount() == 0 {
		return Result{Description: "no zones configured"}, nil
	}

	mz := c.zones.DetectMotion()
	res := Result{
		Motion:     mz.Motion,
		Confidence: mz.OverallConfidence,
		Components: Components{
			Presence:       mz.OverallConfidence,
			PresenceActive: true,
		},
		Enhanced: &Enhanced{
			ActiveZones:         mz.ActiveZones,
			HighestPriorityZone: mz.HighestPriority,
		},
	}
	if !mz.Motion {
		res.Description = "no zones triggered"
		return res, nil
	}

	res.Description = fmt.Sprintf("%d zones triggered, zone %d highest priority",
		len(mz.ActiveZones), mz.HighestPriority)

	// Frame check only runs when zones triggered.
	fres, frameOK, err := c.frameCheck()
	if err != nil {
		return Result{}, err
	}
	if frameOK {
		res.Components.Frame = fres.Level
		res.Components.FrameActive = true
		res.Bounds = fres.Bounds
		if fres.Motion {
			res.Description += ", frame confirmed"
		}
	}
	return res, nil
}

func (c *Composer) detectAdvanced() (Result, error) {
	pres := false
	if c.presence != nil {
		pres = c.presence.HasMotion()
	}
	presVal := 0.0
	if pres {
		presVal = 1.0
	}
	return c.enhancedResult(presVal, c.presence != nil, pres, nil)
}

func (c *Composer) detectFullEnhanced() (Result, error) {
	var (
		mz       sensor.MultiZoneResult
		hasZones = c.zones != nil && c.zones.ZoneCount() > 0
	)
	if hasZones {
		mz = c.zones.DetectMotion()
	}
	return c.enhancedResult(mz.OverallConfidence, hasZones, mz.Motion, &mz)
}

// enhancedResult runs the advanced analyzer and blends it with the
// presence-side confidence. The blend is 0.4 presence and 0.6 frame-times-
// ML, normalized by the weight of the contributors that actually ran. A
// positive false-positive prediction forces non-detection.
func (c *Composer) enhancedResult(presVal float64, presActive, presMotion bool, mz *sensor.MultiZoneResult) (Result, error) {
	if c.adv == nil {
		return Result{Description: "advanced analyzer unavailable"}, nil
	}

	advRes, advOK, err := c.advancedCheck()
	if err != nil {
		return Result{}, err
	}

	var weightSum, weighted float64
	comps := Components{
		Presence:       presVal,
		PresenceActive: presActive,
	}
	if presActive {
		weightSum += advancedPresenceWeight
		weighted += advancedPresenceWeight * presVal
	}
	if advOK {
		comps.Frame = advRes.Level
		comps.FrameActive = true
		comps.AI = advRes.MLConfidence
		comps.AIActive = true
		weightSum += advancedFrameWeight
		weighted += advancedFrameWeight * advRes.Level * advRes.MLConfidence
	}

	conf := 0.0
	if weightSum > 0 {
		conf = clamp01(weighted / weightSum)
	}

	motion := (advRes.Motion || presMotion) && !advRes.FalsePositive
	res := Result{
		Motion:     motion,
		Confidence: conf,
		Bounds:     advRes.Bounds,
		Components: comps,
		Enhanced: &Enhanced{
			BackgroundSimilarity: advRes.BackgroundSimilarity,
			Vectors:              advRes.Vectors,
			ObjectSize:           advRes.ObjectSize,
			MLConfidence:         advRes.MLConfidence,
			FalsePositive:        advRes.FalsePositive,
			DwellTime:            advRes.DwellTime,
			Dwelling:             advRes.Dwelling,
		},
	}
	if mz != nil {
		res.Enhanced.ActiveZones = mz.ActiveZones
		res.Enhanced.HighestPriorityZone = mz.HighestPriority
	}

	switch {
	case advRes.FalsePositive:
		res.Description = "suppressed as false positive"
	case motion && advRes.Motion && presMotion:
		res.Description = "presence and analysis agree"
	case motion && advRes.Motion:
		res.Description = "frame analysis motion"
	case motion:
		res.Description = "presence motion"
	default:
		res.Description = "no motion"
	}
	return res, nil
}

// frameCheck captures one frame and runs the basic detector over it.
// Missing frames and decode failures are transient: logged, reported as
// "no frame this cycle" with ok=false. Hard camera faults propagate.
func (c *Composer) frameCheck() (FrameResult, bool, error) {
	if c.camera == nil {
		return FrameResult{}, false, nil
	}
	f, err := c.camera.Capture()
	if err != nil {
		if errors.Is(err, frame.ErrNoFrame) {
			return FrameResult{}, false, nil
		}
		return FrameResult{}, false, fmt.Errorf("frame capture: %w", err)
	}
	defer c.camera.Release(f)

	fres, err := c.fd.Detect(f)
	if err != nil {
		log.Printf("[Composer] frame decode failed, treating as no motion: %v", err)
		return FrameResult{}, false, nil
	}
	return fres, true, nil
}

func (c *Composer) advancedCheck() (AdvancedResult, bool, error) {
	if c.camera == nil {
		return AdvancedResult{MLConfidence: 0.8}, false, nil
	}
	f, err := c.camera.Capture()
	if err != nil {
		if errors.Is(err, frame.ErrNoFrame) {
			return AdvancedResult{MLConfidence: 0.8}, false, nil
		}
		return AdvancedResult{}, false, fmt.Errorf("frame capture: %w", err)
	}
	defer c.camera.Release(f)

	advRes, err := c.adv.Detect(f)
	if err != nil {
		log.Printf("[Composer] advanced analysis failed, treating as no motion: %v", err)
		return AdvancedResult{MLConfidence: 0.8}, false, nil
	}
	return advRes, true, nil
}

// resolveAdaptive maps battery, recent load and recent accuracy to one
// concrete state. Resolution happens once per cycle before dispatch; the
// dispatch switch never recurses.
func (c *Composer) resolveAdaptive() Mode {
	if c.env.BatteryLow(c.cfg.Thresholds) {
		if c.zones != nil && c.zones.ZoneCount() > 0 {
			return ModeMultiZone
		}
		return ModeLegacyHybrid
	}
	if c.stats.AvgProcessTime > c.cfg.LoadBudget {
		return ModeLegacyHybrid
	}
	if c.adv != nil {
		if c.adv.MLFilter().FalsePositiveRate() > 0.3 {
			// Accuracy is poor: run everything so the exemplar pools
			// keep learning.
			return ModeFullEnhanced
		}
		return ModeAdvanced
	}
	if c.zones != nil && c.zones.ZoneCount() > 0 {
		return ModeMultiZone
	}
	return ModeLegacyHybrid
}
