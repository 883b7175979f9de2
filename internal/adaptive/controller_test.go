package adaptive

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/thewriterben/wildcam/internal/telemetry"
)

func benignEnv() telemetry.Environment {
	return telemetry.Environment{
		BatteryVoltage: 4.0,
		TemperatureC:   20,
		LightLevel:     0.6,
		Hour:           12,
	}
}

func TestControllerDormantRecommendsMinimalAndSkips(t *testing.T) {
	c := NewController(Config{})

	rec := c.Recommend(benignEnv())
	assert.Equal(t, ActivityDormant, rec.Activity)
	assert.Equal(t, ProcessingMinimal, rec.Level)
	assert.Equal(t, 50*time.Millisecond, rec.TimeBudget)
	assert.InDelta(t, 0.5, rec.Quality, 1e-9)
	assert.True(t, rec.SkipFrame)
}

func TestControllerSkipCapForcesProcessing(t *testing.T) {
	c := NewController(Config{MaxSkips: 3})
	env := benignEnv()

	for i := 0; i < 3; i++ {
		assert.True(t, c.Recommend(env).SkipFrame, "skip %d", i)
	}
	// The cap forces one processed cycle, which resets the run.
	assert.False(t, c.Recommend(env).SkipFrame)
	assert.True(t, c.Recommend(env).SkipFrame)

	st := c.Stats()
	assert.Equal(t, uint64(5), st.Recommendations)
	assert.Equal(t, uint64(4), st.FramesSkipped)
}

func TestControllerActivityEscalation(t *testing.T) {
	c := NewController(Config{ActivityWindow: time.Minute})
	base := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	c.RecordDetection(0.8, image.Rect(0, 0, 10, 10), 100*time.Millisecond, 640, 480)
	rec := c.Recommend(benignEnv())
	assert.Equal(t, ActivityHigh, rec.Activity)
	assert.Equal(t, ProcessingEnhanced, rec.Level)

	c.RecordDetection(0.9, image.Rect(0, 0, 10, 10), 100*time.Millisecond, 640, 480)
	rec = c.Recommend(benignEnv())
	assert.Equal(t, ActivityPeak, rec.Activity)
	assert.Equal(t, ProcessingMaximum, rec.Level)
	assert.False(t, rec.SkipFrame)
	assert.InDelta(t, 0.85, c.Stats().AvgConfidence, 1e-9)
}

func TestControllerActivityCoolsAfterWindow(t *testing.T) {
	c := NewController(Config{ActivityWindow: time.Minute})
	base := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	now := base
	c.now = func() time.Time { return now }

	c.RecordDetection(0.8, image.Rect(0, 0, 10, 10), 0, 640, 480)
	assert.Equal(t, ActivityHigh, c.Activity())

	now = base.Add(2 * time.Minute)
	assert.Equal(t, ActivityDormant, c.Activity())
}

func TestControllerBatteryCapsProcessing(t *testing.T) {
	c := NewController(Config{ActivityWindow: time.Minute})
	base := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	c.RecordDetection(0.9, image.Rect(0, 0, 10, 10), 0, 640, 480)
	c.RecordDetection(0.9, image.Rect(0, 0, 10, 10), 0, 640, 480)

	env := benignEnv()
	env.BatteryVoltage = 3.0
	rec := c.Recommend(env)
	assert.Equal(t, ActivityPeak, rec.Activity)
	assert.Equal(t, ProcessingReduced, rec.Level)
}

func TestControllerBatteryAndDormantDropsToMinimal(t *testing.T) {
	c := NewController(Config{})
	env := benignEnv()
	env.BatteryVoltage = 3.0

	rec := c.Recommend(env)
	assert.Equal(t, ProcessingMinimal, rec.Level)
}

func TestControllerTemperatureAndLightEachShaveOneLevel(t *testing.T) {
	c := NewController(Config{ActivityWindow: time.Minute})
	base := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	c.RecordDetection(0.9, image.Rect(0, 0, 10, 10), 0, 640, 480)
	c.RecordDetection(0.9, image.Rect(0, 0, 10, 10), 0, 640, 480)

	env := benignEnv()
	env.TemperatureC = -20
	assert.Equal(t, ProcessingEnhanced, c.Recommend(env).Level)

	env.LightLevel = 0.1
	assert.Equal(t, ProcessingStandard, c.Recommend(env).Level)
}

func TestControllerROIClampedToFrame(t *testing.T) {
	c := NewController(Config{})

	c.RecordDetection(1.0, image.Rect(50, 50, 200, 200), 0, 100, 100)
	roi := c.ROI()
	assert.True(t, roi.Enabled)
	assert.Equal(t, image.Rect(50, 50, 100, 100), roi.Rect)
	assert.InDelta(t, 1.0, roi.Confidence, 1e-9)
}

func TestControllerROIDriftsTowardNewDetections(t *testing.T) {
	c := NewController(Config{ROIGain: 0.5})

	c.RecordDetection(1.0, image.Rect(0, 0, 40, 40), 0, 640, 480)
	c.RecordDetection(1.0, image.Rect(80, 80, 120, 120), 0, 640, 480)

	roi := c.ROI()
	assert.True(t, roi.Enabled)
	// Blend weight 0.5 lands the box halfway between the two detections.
	assert.Equal(t, image.Rect(40, 40, 80, 80), roi.Rect)
}

func TestControllerEmptyBoundsLeaveROIUntouched(t *testing.T) {
	c := NewController(Config{})

	c.RecordDetection(0.9, image.Rectangle{}, 0, 640, 480)
	assert.False(t, c.ROI().Enabled)
}
