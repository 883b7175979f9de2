package sensor

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"
)

// PresenceConfig configures a single presence sensor.
type PresenceConfig struct {
	Pin              int
	Sensitivity      float64       // [0,1]; below 1.0 multiple raw triggers are required
	DebounceInterval time.Duration // re-triggers inside this window are rejected
}

// DefaultPresenceConfig returns the configuration used for zero-value fields.
func DefaultPresenceConfig() PresenceConfig {
	return PresenceConfig{
		Sensitivity:      0.5,
		DebounceInterval: 50 * time.Millisecond,
	}
}

// PresenceStats are the read-only counters a presence sensor exposes.
type PresenceStats struct {
	Triggers   uint64
	Suppressed uint64
	LastMotion time.Time
}

// PresenceSensor interprets an interrupt-driven binary motion input. The edge
// handler only sets an atomic flag and counts raw edges; all interpretation
// happens in HasMotion on the polling goroutine.
//
// A disabled or uninitialized sensor reports no motion and never faults.
type PresenceSensor struct {
	cfg   PresenceConfig
	input TriggerInput

	flag atomic.Bool
	raw  atomic.Int64

	initialized  bool
	enabled      bool
	lastAccepted time.Time
	lastMotion   time.Time
	windowStart  time.Time
	windowCount  int
	triggers     uint64
	suppressed   uint64

	now func() time.Time
}

// NewPresenceSensor builds a sensor over the given input line. The sensor is
// inert until Initialize is called.
func NewPresenceSensor(input TriggerInput, cfg PresenceConfig) *PresenceSensor {
	def := DefaultPresenceConfig()
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = def.DebounceInterval
	}
	if cfg.Sensitivity <= 0 {
		cfg.Sensitivity = def.Sensitivity
	}
	cfg.Sensitivity = clamp01(cfg.Sensitivity)

	return &PresenceSensor{
		cfg:   cfg,
		input: input,
		now:   time.Now,
	}
}

// Initialize arms the edge-triggered input. The installed handler is
// non-computing: it raises the flag and counts the edge, nothing else.
func (s *PresenceSensor) Initialize() error {
	if s.input == nil {
		return fmt.Errorf("presence sensor pin %d: no input configured", s.cfg.Pin)
	}
	if err := s.input.Arm(func() {
		s.flag.Store(true)
		s.raw.Add(1)
	}); err != nil {
		return fmt.Errorf("presence sensor pin %d: %w", s.cfg.Pin, err)
	}
	s.initialized = true
	s.enabled = true
	return nil
}

// SetEnabled toggles the sensor without disarming the input.
func (s *PresenceSensor) SetEnabled(enabled bool) { s.enabled = enabled }

// Enabled reports whether the sensor participates in polling.
func (s *PresenceSensor) Enabled() bool { return s.initialized && s.enabled }

// SetSensitivity updates the sensitivity, clamped to [0,1]. Values below 1
// require ceil(1/sensitivity) raw triggers within one second before a
// logical event is accepted.
func (s *PresenceSensor) SetSensitivity(sensitivity float64) {
	if sensitivity <= 0 {
		sensitivity = DefaultPresenceConfig().Sensitivity
	}
	s.cfg.Sensitivity = clamp01(sensitivity)
}

// Sensitivity returns the current sensitivity.
func (s *PresenceSensor) Sensitivity() float64 { return s.cfg.Sensitivity }

// HasMotion checks the interrupt flag under the debounce window. On
// acceptance it clears the flag, stamps the last-motion time and increments
// the trigger counter. Raw triggers beyond the one accepted logical event
// count as suppressed false positives.
func (s *PresenceSensor) HasMotion() bool {
	if !s.initialized || !s.enabled {
		return false
	}
	if !s.flag.Load() {
		return false
	}

	now := s.now()
	raw := int(s.raw.Swap(0))
	s.flag.Store(false)
	if raw == 0 {
		raw = 1
	}

	// Debounce: reject re-triggers inside the interval.
	if !s.lastAccepted.IsZero() && now.Sub(s.lastAccepted) < s.cfg.DebounceInterval {
		s.suppressed += uint64(raw)
		return false
	}

	// Multi-trigger suppression window.
	if s.windowStart.IsZero() || now.Sub(s.windowStart) > time.Second {
		if s.windowCount > 0 {
			s.suppressed += uint64(s.windowCount)
		}
		s.windowStart = now
		s.windowCount = 0
	}
	s.windowCount += raw

	required := s.requiredTriggers()
	if s.windowCount < required {
		return false
	}

	if extra := s.windowCount - required; extra > 0 {
		s.suppressed += uint64(extra)
	}
	s.windowCount = 0
	s.windowStart = time.Time{}
	s.lastAccepted = now
	s.lastMotion = now
	s.triggers++
	return true
}

// ConfigureWake arms the same input as a deep-sleep wake source.
func (s *PresenceSensor) ConfigureWake() error {
	if !s.initialized {
		return fmt.Errorf("presence sensor pin %d: not initialized", s.cfg.Pin)
	}
	return s.input.ArmWake()
}

// Stats returns the sensor's counters.
func (s *PresenceSensor) Stats() PresenceStats {
	return PresenceStats{
		Triggers:   s.triggers,
		Suppressed: s.suppressed,
		LastMotion: s.lastMotion,
	}
}

func (s *PresenceSensor) requiredTriggers() int {
	if s.cfg.Sensitivity >= 1 {
		return 1
	}
	return int(math.Ceil(1 / s.cfg.Sensitivity))
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
