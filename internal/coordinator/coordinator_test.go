package coordinator

import (
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewriterben/wildcam/internal/adaptive"
	"github.com/thewriterben/wildcam/internal/detect"
	"github.com/thewriterben/wildcam/internal/telemetry"
	"github.com/thewriterben/wildcam/internal/wildlife"
)

// stubDetector records the methods it was asked to run and serves a canned
// result or error.
type stubDetector struct {
	res   detect.Result
	err   error
	calls []detect.Method
}

func (s *stubDetector) Detect(m detect.Method) (detect.Result, error) {
	s.calls = append(s.calls, m)
	if s.err != nil {
		return detect.Result{}, s.err
	}
	return s.res, nil
}

func (s *stubDetector) Composer() *detect.Composer { return nil }

func benignEnv() telemetry.Environment {
	return telemetry.Environment{
		BatteryVoltage: 4.0,
		TemperatureC:   20,
		LightLevel:     0.6,
		Hour:           22,
	}
}

func allDetectorsResult() detect.Result {
	return detect.Result{
		Motion:      true,
		Description: "presence and analysis agree",
		Components: detect.Components{
			Presence:       0.7,
			PresenceActive: true,
			Frame:          0.8,
			FrameActive:    true,
			AI:             0.9,
			AIActive:       true,
		},
	}
}

func TestProcessCycleFusesWeightedConfidences(t *testing.T) {
	stub := &stubDetector{res: allDetectorsResult()}
	c := New(DefaultConfig(), stub, nil, nil)

	var seen []Result
	c.OnDetection(func(r Result) { seen = append(seen, r) })

	res, err := c.ProcessCycle(benignEnv())
	require.NoError(t, err)

	assert.True(t, res.MotionDetected)
	assert.NotEmpty(t, res.EventID)
	assert.Equal(t, detect.MethodAIHybrid, res.Method)
	// 0.3*0.7 + 0.4*0.8 + 0.3*0.9 over a full weight sum.
	assert.InDelta(t, 0.8, res.FusedConfidence, 1e-9)
	assert.InDelta(t, 1.0, res.Adjustment, 1e-9)

	assert.True(t, res.ShouldCapture)
	assert.True(t, res.ShouldSave)
	assert.True(t, res.ShouldTransmit)
	assert.False(t, res.ShouldAlert)

	require.Len(t, seen, 1)
	assert.Equal(t, res.EventID, seen[0].EventID)

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Cycles)
	assert.Equal(t, uint64(1), st.Detections)
	assert.Equal(t, uint64(1), st.Captures)
}

func TestProcessCycleConfidenceMonotonicity(t *testing.T) {
	lower := allDetectorsResult()
	higher := allDetectorsResult()
	higher.Components.Frame = 0.9

	a, _ := New(DefaultConfig(), &stubDetector{res: lower}, nil, nil).ProcessCycle(benignEnv())
	b, _ := New(DefaultConfig(), &stubDetector{res: higher}, nil, nil).ProcessCycle(benignEnv())
	assert.Greater(t, b.FusedConfidence, a.FusedConfidence)
}

func TestProcessCycleInactiveComponentsCarryNoWeight(t *testing.T) {
	res := detect.Result{
		Motion: true,
		Components: detect.Components{
			Presence:       1.0,
			PresenceActive: true,
		},
	}
	c := New(DefaultConfig(), &stubDetector{res: res}, nil, nil)

	out, err := c.ProcessCycle(benignEnv())
	require.NoError(t, err)
	// Presence alone normalizes to its own value.
	assert.InDelta(t, 1.0, out.FusedConfidence, 1e-9)
}

func TestAdjustmentCrepuscularBoostTriggersAlert(t *testing.T) {
	stub := &stubDetector{res: allDetectorsResult()}
	c := New(DefaultConfig(), stub, nil, nil)

	env := benignEnv()
	env.Hour = 6
	res, err := c.ProcessCycle(env)
	require.NoError(t, err)
	assert.InDelta(t, 1.15, res.Adjustment, 1e-9)
	assert.InDelta(t, 0.92, res.FusedConfidence, 1e-9)
	assert.True(t, res.ShouldAlert)
}

func TestAdjustmentStackedPenaltiesStayInRange(t *testing.T) {
	stub := &stubDetector{res: allDetectorsResult()}
	c := New(DefaultConfig(), stub, nil, nil)

	env := telemetry.Environment{
		BatteryVoltage: 3.0,
		TemperatureC:   -20,
		LightLevel:     0.1,
		WeatherActive:  true,
		Hour:           12,
	}
	res, err := c.ProcessCycle(env)
	require.NoError(t, err)
	// 0.9 * 0.95 * 0.9 * 0.85 * 0.9
	assert.InDelta(t, 0.5886675, res.Adjustment, 1e-9)
	assert.GreaterOrEqual(t, res.Adjustment, 0.5)
	assert.LessOrEqual(t, res.Adjustment, 1.2)
	assert.False(t, res.ShouldCapture)
}

func TestProcessCycleSkipsOnDormantController(t *testing.T) {
	stub := &stubDetector{res: allDetectorsResult()}
	ctrl := adaptive.NewController(adaptive.Config{})
	c := New(DefaultConfig(), stub, ctrl, nil)

	res, err := c.ProcessCycle(benignEnv())
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.False(t, res.MotionDetected)
	assert.Empty(t, stub.calls)
	assert.Equal(t, uint64(1), c.Stats().Skipped)
}

func TestFailureFallbackPinsPresenceOnly(t *testing.T) {
	stub := &stubDetector{err: errors.New("camera bus fault")}
	cfg := DefaultConfig()
	cfg.Method = detect.MethodBasicHybrid
	cfg.MaxFailures = 2
	cfg.RecoveryDelay = 30 * time.Second

	c := New(cfg, stub, nil, nil)
	base := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }

	env := benignEnv()
	_, err := c.ProcessCycle(env)
	assert.Error(t, err)
	_, err = c.ProcessCycle(env)
	assert.Error(t, err)

	st := c.Stats()
	assert.Equal(t, uint64(2), st.Faults)
	assert.Equal(t, uint64(1), st.Fallbacks)

	// Detection recovers but the method stays pinned inside the hold.
	stub.err = nil
	stub.res = detect.Result{Description: "presence silent"}
	_, err = c.ProcessCycle(env)
	require.NoError(t, err)
	require.Len(t, stub.calls, 3)
	assert.Equal(t, detect.MethodBasicHybrid, stub.calls[0])
	assert.Equal(t, detect.MethodBasicHybrid, stub.calls[1])
	assert.Equal(t, detect.MethodPresenceOnly, stub.calls[2])

	// Past the recovery delay the configured method returns.
	now = base.Add(31 * time.Second)
	_, err = c.ProcessCycle(env)
	require.NoError(t, err)
	assert.Equal(t, detect.MethodBasicHybrid, stub.calls[3])
}

func TestFaultDuringRetryRearmsFallback(t *testing.T) {
	stub := &stubDetector{err: errors.New("camera bus fault")}
	cfg := DefaultConfig()
	cfg.Method = detect.MethodBasicHybrid
	cfg.MaxFailures = 2
	cfg.RecoveryDelay = 30 * time.Second

	c := New(cfg, stub, nil, nil)
	base := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }

	env := benignEnv()
	_, err := c.ProcessCycle(env)
	assert.Error(t, err)
	_, err = c.ProcessCycle(env)
	assert.Error(t, err)

	// Past the hold the configured method retries and faults again.
	now = base.Add(31 * time.Second)
	_, err = c.ProcessCycle(env)
	assert.Error(t, err)
	require.Len(t, stub.calls, 3)
	assert.Equal(t, detect.MethodBasicHybrid, stub.calls[2])

	// The retry fault opens a fresh presence-only window.
	stub.err = nil
	stub.res = detect.Result{Description: "presence silent"}
	_, err = c.ProcessCycle(env)
	require.NoError(t, err)
	require.Len(t, stub.calls, 4)
	assert.Equal(t, detect.MethodPresenceOnly, stub.calls[3])
	assert.Equal(t, uint64(2), c.Stats().Fallbacks)
}

func TestMotionResetsFailureCounter(t *testing.T) {
	stub := &stubDetector{err: errors.New("camera bus fault")}
	cfg := DefaultConfig()
	cfg.Method = detect.MethodBasicHybrid
	cfg.MaxFailures = 2
	c := New(cfg, stub, nil, nil)

	_, err := c.ProcessCycle(benignEnv())
	assert.Error(t, err)

	stub.err = nil
	stub.res = allDetectorsResult()
	_, err = c.ProcessCycle(benignEnv())
	require.NoError(t, err)

	// Another fault starts counting from zero, so no fallback trips.
	stub.err = errors.New("camera bus fault")
	_, err = c.ProcessCycle(benignEnv())
	assert.Error(t, err)
	assert.Equal(t, uint64(0), c.Stats().Fallbacks)
}

func TestWildlifeConfirmationJoinsFusion(t *testing.T) {
	stub := &stubDetector{res: detect.Result{
		Motion:      true,
		Description: "presence only",
		Bounds:      image.Rect(0, 0, 60, 60),
		Components: detect.Components{
			Presence:       1.0,
			PresenceActive: true,
			Frame:          0.6, // feeds the analyzer's motion level
		},
	}}
	cfg := DefaultConfig()
	cfg.Method = detect.MethodBasicHybrid
	cfg.FrameWidth = 100
	cfg.FrameHeight = 100

	c := New(cfg, stub, nil, wildlife.NewAnalyzer(wildlife.Config{}))

	env := benignEnv()
	var res Result
	var err error
	for i := 0; i < 3; i++ {
		res, err = c.ProcessCycle(env)
		require.NoError(t, err)
	}

	// Three static large-footprint samples classify as a large mammal.
	require.NotNil(t, res.Wildlife)
	assert.Equal(t, wildlife.CategoryLargeMammal, res.Wildlife.Category)
	assert.InDelta(t, 0.95, res.Wildlife.Likelihood, 1e-9)

	// Fusion: presence 0.3*1.0 plus wildlife 0.2*0.95 over weight 0.5.
	assert.InDelta(t, 0.98, res.FusedConfidence, 1e-9)
	assert.True(t, res.ShouldCapture)
	assert.True(t, res.ShouldAlert)
}

func TestOverridesMergeWithDefaults(t *testing.T) {
	method := detect.MethodFullFusion
	capture := 0.5
	cfg := Overrides{Method: &method, CaptureThreshold: &capture}.MergeWithDefaults()

	assert.Equal(t, detect.MethodFullFusion, cfg.Method)
	assert.InDelta(t, 0.5, cfg.CaptureThreshold, 1e-9)
	assert.InDelta(t, 0.8, cfg.TransmitThreshold, 1e-9)
	assert.Equal(t, 5, cfg.MaxFailures)
}
