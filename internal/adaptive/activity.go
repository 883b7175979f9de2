package adaptive

import (
	"fmt"
	"time"
)

// ActivityLevel buckets recent detection activity.
type ActivityLevel int

const (
	ActivityDormant ActivityLevel = iota
	ActivityLow
	ActivityModerate
	ActivityHigh
	ActivityPeak
)

func (l ActivityLevel) String() string {
	switch l {
	case ActivityDormant:
		return "dormant"
	case ActivityLow:
		return "low"
	case ActivityModerate:
		return "moderate"
	case ActivityHigh:
		return "high"
	case ActivityPeak:
		return "peak"
	default:
		return fmt.Sprintf("activity(%d)", int(l))
	}
}

// activityTracker keeps bounded FIFO histories of recent detections and
// classifies them into an activity level. Entries older than the window are
// evicted oldest-first.
type activityTracker struct {
	window     time.Duration
	maxEntries int

	times       []time.Time
	confidences []float64
	durations   []time.Duration

	lastDetection time.Time
}

func newActivityTracker(window time.Duration, maxEntries int) *activityTracker {
	if window <= 0 {
		window = 10 * time.Minute
	}
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &activityTracker{window: window, maxEntries: maxEntries}
}

func (t *activityTracker) record(at time.Time, confidence float64, duration time.Duration) {
	t.times = append(t.times, at)
	t.confidences = append(t.confidences, confidence)
	t.durations = append(t.durations, duration)
	t.lastDetection = at
	t.trim(at)
}

// trim evicts entries outside the window, then enforces the hard cap.
func (t *activityTracker) trim(now time.Time) {
	cutoff := now.Add(-t.window)
	drop := 0
	for drop < len(t.times) && t.times[drop].Before(cutoff) {
		drop++
	}
	if over := len(t.times) - drop - t.maxEntries; over > 0 {
		drop += over
	}
	if drop > 0 {
		t.times = append(t.times[:0], t.times[drop:]...)
		t.confidences = append(t.confidences[:0], t.confidences[drop:]...)
		t.durations = append(t.durations[:0], t.durations[drop:]...)
	}
}

// classify maps idle time and in-window detection rate to a level.
func (t *activityTracker) classify(now time.Time) ActivityLevel {
	t.trim(now)
	if t.lastDetection.IsZero() || now.Sub(t.lastDetection) > t.window {
		return ActivityDormant
	}

	perMinute := float64(len(t.times)) / t.window.Minutes()
	var level ActivityLevel
	switch {
	case perMinute >= 2.0:
		level = ActivityPeak
	case perMinute >= 1.0:
		level = ActivityHigh
	case perMinute >= 0.4:
		level = ActivityModerate
	default:
		level = ActivityLow
	}

	// A long quiet stretch inside the window still cools activity down.
	if now.Sub(t.lastDetection) > t.window/2 && level > ActivityLow {
		level--
	}
	return level
}

func (t *activityTracker) averageConfidence() float64 {
	if len(t.confidences) == 0 {
		return 0
	}
	var sum float64
	for _, c := range t.confidences {
		sum += c
	}
	return sum / float64(len(t.confidences))
}
