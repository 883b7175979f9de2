package wildlife

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var trackStart = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

// feedTrack fills the analyzer with n samples at the given interval, with
// per-sample motion level and bounding box supplied by the callbacks.
func feedTrack(a *Analyzer, n int, interval time.Duration, area float64, level func(i int) float64, box func(i int) image.Rectangle) {
	for i := 0; i < n; i++ {
		a.AddSample(MotionSample{
			Timestamp: trackStart.Add(time.Duration(i) * interval),
			Level:     level(i),
			Bounds:    box(i),
			Area:      area,
		})
	}
}

func TestAnalyzeNeedsThreeSamples(t *testing.T) {
	a := NewAnalyzer(Config{})
	a.AddSample(MotionSample{Timestamp: trackStart, Level: 0.5})
	a.AddSample(MotionSample{Timestamp: trackStart.Add(time.Second), Level: 0.5})

	_, ok := a.Analyze(12)
	assert.False(t, ok)
	assert.Zero(t, a.Stats().Analyses)
}

func TestAnalyzeSwayingVegetation(t *testing.T) {
	a := NewAnalyzer(Config{})
	// Oscillating motion level over a static box: periodic, slow, unstable
	// direction. Classic wind-blown branch.
	feedTrack(a, 8, time.Second, 0.05,
		func(i int) float64 {
			if i%2 == 0 {
				return 0.2
			}
			return 0.8
		},
		func(i int) image.Rectangle { return image.Rect(100, 100, 140, 140) },
	)

	cls, ok := a.Analyze(12)
	require.True(t, ok)
	assert.Equal(t, CategoryVegetation, cls.Category)
	assert.InDelta(t, 1.0, cls.Characteristics.Periodicity, 1e-9)
	assert.Zero(t, cls.Characteristics.Speed)
	assert.False(t, cls.ShouldCapture)
	assert.Zero(t, cls.Likelihood)
	assert.Zero(t, a.HourlyActivity(12))
}

func TestAnalyzeVehiclePass(t *testing.T) {
	a := NewAnalyzer(Config{})
	// Fast, straight, constant-level motion.
	feedTrack(a, 6, time.Second, 0.1,
		func(i int) float64 { return 0.6 },
		func(i int) image.Rectangle {
			x := i * 100
			return image.Rect(x, 200, x+40, 240)
		},
	)

	cls, ok := a.Analyze(12)
	require.True(t, ok)
	assert.Equal(t, CategoryVehicle, cls.Category)
	assert.InDelta(t, 100, cls.Characteristics.Speed, 1e-9)
	assert.InDelta(t, 1.0, cls.Characteristics.DirectionStability, 1e-9)
	assert.False(t, cls.Category.IsWildlife())
	assert.False(t, cls.ShouldCapture)
	assert.Less(t, cls.Likelihood, 0.4)
}

func TestAnalyzeLargeMammal(t *testing.T) {
	a := NewAnalyzer(Config{})
	// Big, slow, horizontal, lingering.
	feedTrack(a, 6, 2*time.Second, 0.3,
		func(i int) float64 { return 0.6 },
		func(i int) image.Rectangle {
			x := i * 8
			return image.Rect(x, 100, x+200, 300)
		},
	)

	cls, ok := a.Analyze(6)
	require.True(t, ok)
	assert.Equal(t, CategoryLargeMammal, cls.Category)
	assert.InDelta(t, 4, cls.Characteristics.Speed, 1e-9)
	assert.Equal(t, 10*time.Second, cls.Characteristics.DwellTime)
	assert.InDelta(t, 1.0, cls.Likelihood, 1e-9)
	assert.True(t, cls.ShouldCapture)
	assert.True(t, cls.ShouldAlert)

	// A wildlife match raises the hour's activity estimate.
	assert.InDelta(t, 0.1, a.HourlyActivity(6), 1e-9)
	assert.Equal(t, uint64(1), a.Stats().WildlifeMatches)
}

func TestAnalyzeUprightWalker(t *testing.T) {
	a := NewAnalyzer(Config{})
	// Large and moving vertically in the frame at walking speed.
	feedTrack(a, 6, time.Second, 0.3,
		func(i int) float64 { return 0.3 },
		func(i int) image.Rectangle {
			y := i * 10
			return image.Rect(100, y, 300, y+250)
		},
	)

	cls, ok := a.Analyze(12)
	require.True(t, ok)
	assert.Equal(t, CategoryHuman, cls.Category)
	assert.InDelta(t, 1.0, cls.Characteristics.Verticality, 1e-9)
	assert.False(t, cls.ShouldCapture)
	assert.Zero(t, a.HourlyActivity(12))
}

func TestLearnPatternConfidenceFloor(t *testing.T) {
	a := NewAnalyzer(Config{})
	ch := MovementCharacteristics{Size: 0.3, Intensity: 0.6}

	a.LearnPattern(CategoryLargeMammal, ch, 0.3, 6)
	assert.Zero(t, a.Stats().Learned)
	assert.Empty(t, a.Patterns())
	assert.Zero(t, a.HourlyActivity(6))

	a.LearnPattern(CategoryLargeMammal, ch, 0.8, 6)
	assert.Equal(t, uint64(1), a.Stats().Learned)
	assert.InDelta(t, 0.08, a.HourlyActivity(6), 1e-9)

	patterns := a.Patterns()
	require.Len(t, patterns, 1)
	assert.Equal(t, CategoryLargeMammal, patterns[0].Category)
	assert.Equal(t, uint64(1), patterns[0].Observed)
}

func TestLearnPatternNonWildlifeLeavesHoursAlone(t *testing.T) {
	a := NewAnalyzer(Config{})

	a.LearnPattern(CategoryVehicle, MovementCharacteristics{}, 0.9, 12)
	assert.Equal(t, uint64(1), a.Stats().Learned)
	assert.Zero(t, a.HourlyActivity(12))
}

func TestLearnPatternExemplarsBounded(t *testing.T) {
	a := NewAnalyzer(Config{MaxExemplars: 3})
	for i := 0; i < 5; i++ {
		a.LearnPattern(CategorySmallBird, MovementCharacteristics{Speed: float64(i)}, 0.9, 7)
	}

	patterns := a.Patterns()
	require.Len(t, patterns, 1)
	assert.Len(t, patterns[0].Exemplars, 3)
	assert.Equal(t, uint64(5), patterns[0].Observed)
}

func TestPatternsOrderedByObservations(t *testing.T) {
	a := NewAnalyzer(Config{})
	a.LearnPattern(CategorySmallBird, MovementCharacteristics{}, 0.9, 7)
	a.LearnPattern(CategoryLargeMammal, MovementCharacteristics{}, 0.9, 7)
	a.LearnPattern(CategoryLargeMammal, MovementCharacteristics{}, 0.9, 7)

	patterns := a.Patterns()
	require.Len(t, patterns, 2)
	assert.Equal(t, CategoryLargeMammal, patterns[0].Category)
	assert.Equal(t, CategorySmallBird, patterns[1].Category)
}

func TestSampleBufferBounded(t *testing.T) {
	a := NewAnalyzer(Config{MaxSamples: 5})
	for i := 0; i < 8; i++ {
		a.AddSample(MotionSample{Timestamp: trackStart.Add(time.Duration(i) * time.Second)})
	}
	assert.Equal(t, 5, a.SampleCount())

	a.Reset()
	assert.Zero(t, a.SampleCount())
}
