package detect

import (
	"fmt"
	"time"
)

// Method is the coordinator-facing selection of how much detection work a
// cycle should do. Methods map onto composer states; the presence-only
// method uses the gated variant so a silent sensor costs nothing.
type Method int

const (
	MethodPresenceOnly Method = iota
	MethodBasicHybrid
	MethodAIHybrid
	MethodFullFusion
	MethodAdaptive
)

func (m Method) String() string {
	switch m {
	case MethodPresenceOnly:
		return "presence-only"
	case MethodBasicHybrid:
		return "basic-hybrid"
	case MethodAIHybrid:
		return "ai-hybrid"
	case MethodFullFusion:
		return "full-fusion"
	case MethodAdaptive:
		return "adaptive"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// FacadeStats aggregates detection outcomes across methods.
type FacadeStats struct {
	Cycles            uint64
	Detections        uint64
	Suppressed        uint64 // cycles vetoed as false positives
	AvgProcessingTime time.Duration
}

// Facade is the single entry point the coordinator calls for detection. It
// translates a method into a composer state, runs the cycle and keeps
// cross-method statistics.
type Facade struct {
	composer *Composer
	stats    FacadeStats
}

// NewFacade wraps a composer.
func NewFacade(c *Composer) *Facade {
	return &Facade{composer: c}
}

// Composer exposes the underlying state machine.
func (f *Facade) Composer() *Composer { return f.composer }

// Detect runs one detection cycle with the given method.
func (f *Facade) Detect(m Method) (Result, error) {
	var (
		res Result
		err error
	)
	switch m {
	case MethodPresenceOnly:
		res, err = f.composer.DetectGated()
	case MethodBasicHybrid:
		f.composer.SetMode(ModeLegacyHybrid)
		res, err = f.composer.Detect()
	case MethodAIHybrid:
		f.composer.SetMode(ModeAdvanced)
		res, err = f.composer.Detect()
	case MethodFullFusion:
		f.composer.SetMode(ModeFullEnhanced)
		res, err = f.composer.Detect()
	case MethodAdaptive:
		f.composer.SetMode(ModeAdaptive)
		res, err = f.composer.Detect()
	default:
		return Result{}, fmt.Errorf("unknown detection method %d", int(m))
	}
	if err != nil {
		return Result{}, err
	}

	f.stats.Cycles++
	if res.Motion {
		f.stats.Detections++
	}
	if res.Enhanced != nil && res.Enhanced.FalsePositive {
		f.stats.Suppressed++
	}
	if f.stats.AvgProcessingTime == 0 {
		f.stats.AvgProcessingTime = res.ProcessTime
	} else {
		f.stats.AvgProcessingTime = (f.stats.AvgProcessingTime*9 + res.ProcessTime) / 10
	}
	return res, nil
}

// Stats returns the facade's aggregate counters.
func (f *Facade) Stats() FacadeStats { return f.stats }
