package detect

import (
	"image"
	"time"
)

// Mode selects which detector combination runs for a cycle.
type Mode int

const (
	// ModeLegacyHybrid blends the single presence sensor with basic frame
	// differencing.
	ModeLegacyHybrid Mode = iota
	// ModeMultiZone aggregates all presence zones; the frame check only
	// runs when zones triggered.
	ModeMultiZone
	// ModeAdvanced runs the advanced frame analyzer gated by presence.
	ModeAdvanced
	// ModeFullEnhanced runs multi-zone and advanced analysis
	// unconditionally so the false-positive pools keep learning.
	ModeFullEnhanced
	// ModeAdaptive resolves to one of the concrete modes from battery,
	// load and recent-accuracy heuristics before dispatch.
	ModeAdaptive
)

func (m Mode) String() string {
	switch m {
	case ModeLegacyHybrid:
		return "legacy_hybrid"
	case ModeMultiZone:
		return "multi_zone"
	case ModeAdvanced:
		return "advanced"
	case ModeFullEnhanced:
		return "full_enhanced"
	case ModeAdaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

// Components exposes the per-source confidences that fed a result, so the
// coordinator can re-weight them. Inactive sources carry no weight in fusion.
type Components struct {
	Presence       float64
	PresenceActive bool
	Frame          float64
	FrameActive    bool
	AI             float64
	AIActive       bool
}

// Enhanced carries the richer per-cycle data produced by the enhanced
// composer states. Legacy cycles leave it nil.
type Enhanced struct {
	ActiveZones          []int
	HighestPriorityZone  int
	BackgroundSimilarity float64
	Vectors              VectorField
	ObjectSize           float64
	MLConfidence         float64
	FalsePositive        bool
	DwellTime            time.Duration
	Dwelling             bool
}

// Result is the unified detection result shape shared by all composer
// states. It is created fresh each cycle and immutable after construction.
type Result struct {
	Motion      bool
	Confidence  float64
	Mode        Mode
	Description string
	Components  Components
	Bounds      image.Rectangle
	ProcessTime time.Duration
	Timestamp   time.Time
	Enhanced    *Enhanced
}

// DetectorStats are the read-only counters every detector exposes.
type DetectorStats struct {
	Cycles         uint64
	Detections     uint64
	FalsePositives uint64
	AvgProcessTime time.Duration
}

func (s *DetectorStats) record(d time.Duration, motion bool) {
	s.Cycles++
	if motion {
		s.Detections++
	}
	if s.Cycles == 1 {
		s.AvgProcessTime = d
	} else {
		s.AvgProcessTime = (s.AvgProcessTime*9 + d) / 10
	}
}
