package detect

import (
	"fmt"
	"time"
)

// BackgroundModel keeps per-pixel mean/variance buffers over the analysis
// resolution, updated by exponential moving average. Buffers are owned
// exclusively by the advanced analyzer and reallocated only when the frame
// size changes.
type BackgroundModel struct {
	mean     []float64
	variance []float64
	width    int
	height   int

	alpha          float64
	updateInterval time.Duration
	maxFrames      int

	lastUpdate  time.Time
	framesSince int
}

// NewBackgroundModel builds an empty model; buffers are allocated lazily on
// the first frame.
func NewBackgroundModel(alpha float64, updateInterval time.Duration, maxFrames int) *BackgroundModel {
	if alpha <= 0 || alpha >= 1 {
		alpha = 0.05
	}
	if updateInterval <= 0 {
		updateInterval = 10 * time.Second
	}
	if maxFrames <= 0 {
		maxFrames = 30
	}
	return &BackgroundModel{
		alpha:          alpha,
		updateInterval: updateInterval,
		maxFrames:      maxFrames,
	}
}

func (b *BackgroundModel) ensure(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid background model size %dx%d", width, height)
	}
	if b.width == width && b.height == height && b.mean != nil {
		return nil
	}
	n := width * height
	b.mean = make([]float64, n)
	b.variance = make([]float64, n)
	for i := range b.mean {
		b.mean[i] = 128 // neutral seed
		b.variance[i] = 64
	}
	b.width = width
	b.height = height
	b.lastUpdate = time.Time{}
	b.framesSince = 0
	return nil
}

// Similarity returns 1 - avg|current-background|/255 for the given luma
// buffer, allocating and seeding the model on first use.
func (b *BackgroundModel) Similarity(luma []byte, width, height int) (float64, error) {
	if err := b.ensure(width, height); err != nil {
		return 0, err
	}
	if len(luma) != len(b.mean) {
		return 0, fmt.Errorf("luma buffer size %d does not match model %d", len(luma), len(b.mean))
	}
	var sum float64
	for i, v := range luma {
		d := float64(v) - b.mean[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	avg := sum / float64(len(luma))
	return clamp01(1 - avg/255.0), nil
}

// MaybeUpdate folds the frame into the model when the update interval has
// elapsed or too many frames have gone by without an update.
func (b *BackgroundModel) MaybeUpdate(luma []byte, now time.Time) {
	if b.mean == nil || len(luma) != len(b.mean) {
		return
	}
	b.framesSince++
	due := b.lastUpdate.IsZero() ||
		now.Sub(b.lastUpdate) >= b.updateInterval ||
		b.framesSince >= b.maxFrames
	if !due {
		return
	}
	for i, v := range luma {
		cur := float64(v)
		diff := cur - b.mean[i]
		b.mean[i] += b.alpha * diff
		b.variance[i] = (1-b.alpha)*b.variance[i] + b.alpha*diff*diff
	}
	b.lastUpdate = now
	b.framesSince = 0
}

// Mean exposes the mean buffer for the motion-vector estimator.
func (b *BackgroundModel) Mean() []float64 { return b.mean }

// Allocated reports whether the buffers exist.
func (b *BackgroundModel) Allocated() bool { return b.mean != nil }
