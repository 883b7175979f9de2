package wildlife

import (
	"image"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// MotionSample is one timestamped positional observation fed to the
// analyzer by the coordinator.
type MotionSample struct {
	Timestamp time.Time
	Level     float64 // motion level in [0,1]
	Bounds    image.Rectangle
	Area      float64 // normalized fraction of frame area
}

// MovementCharacteristics is a stateless snapshot derived from a sample
// window. All scalar fields are normalized to [0,1] except Speed (pixels
// per second in analysis coordinates) and Direction (radians).
type MovementCharacteristics struct {
	Speed              float64
	Direction          float64
	DirectionStability float64
	Size               float64
	Periodicity        float64
	Verticality        float64
	DwellTime          time.Duration
	ActiveTime         float64 // fraction of samples above the active level
	Intensity          float64 // mean motion level
}

const activeLevelFloor = 0.15

// characterize derives movement characteristics from at least three
// samples. The caller guarantees chronological order.
func characterize(samples []MotionSample) MovementCharacteristics {
	n := len(samples)
	var ch MovementCharacteristics
	if n < 3 {
		return ch
	}

	levels := make([]float64, n)
	areas := make([]float64, n)
	active := 0
	for i, s := range samples {
		levels[i] = s.Level
		areas[i] = s.Area
		if s.Level > activeLevelFloor {
			active++
		}
	}
	ch.Intensity = clamp01(stat.Mean(levels, nil))
	ch.Size = clamp01(stat.Mean(areas, nil))
	ch.ActiveTime = float64(active) / float64(n)
	ch.DwellTime = samples[n-1].Timestamp.Sub(samples[0].Timestamp)

	// Displacement of bounding-box centers between consecutive samples.
	var (
		sumDX, sumDY, absDX, absDY float64
		sumCos, sumSin             float64
		speedSum                   float64
		steps                      int
	)
	for i := 1; i < n; i++ {
		a := center(samples[i-1].Bounds)
		b := center(samples[i].Bounds)
		dx := float64(b.X - a.X)
		dy := float64(b.Y - a.Y)
		dt := samples[i].Timestamp.Sub(samples[i-1].Timestamp).Seconds()
		if dt <= 0 {
			continue
		}
		dist := math.Hypot(dx, dy)
		speedSum += dist / dt
		sumDX += dx
		sumDY += dy
		absDX += math.Abs(dx)
		absDY += math.Abs(dy)
		if dist > 0 {
			theta := math.Atan2(dy, dx)
			sumCos += math.Cos(theta)
			sumSin += math.Sin(theta)
		}
		steps++
	}
	if steps > 0 {
		ch.Speed = speedSum / float64(steps)
		ch.Direction = math.Atan2(sumDY, sumDX)
		// Mean resultant length of the per-step direction vectors: 1 for
		// straight-line travel, near 0 for jitter.
		ch.DirectionStability = clamp01(math.Hypot(sumCos, sumSin) / float64(steps))
	}
	if total := absDX + absDY; total > 0 {
		ch.Verticality = absDY / total
	}

	ch.Periodicity = periodicity(levels)
	return ch
}

// periodicity is the strongest positive autocorrelation of the motion-level
// series over lags covering up to half the window. Swaying vegetation
// scores high, ballistic passes score near zero.
func periodicity(levels []float64) float64 {
	n := len(levels)
	if n < 4 {
		return 0
	}
	if stat.Variance(levels, nil) == 0 {
		return 0
	}
	var best float64
	for lag := 2; lag <= n/2; lag++ {
		r := stat.Correlation(levels[:n-lag], levels[lag:], nil)
		if !math.IsNaN(r) && r > best {
			best = r
		}
	}
	return clamp01(best)
}

func center(r image.Rectangle) image.Point {
	return image.Pt((r.Min.X+r.Max.X)/2, (r.Min.Y+r.Max.Y)/2)
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
