package frame

import (
	"errors"
	"time"
)

// Frame is an opaque captured frame: encoded image bytes plus the capture
// dimensions. The decision core never assumes a specific codec; decoding
// happens lazily in the preprocessing helpers.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Timestamp time.Time
}

// Profile selects a capture quality/power trade-off on the camera.
type Profile int

const (
	ProfileLow Profile = iota // smallest frame, cheapest capture
	ProfileStandard
	ProfileHigh
)

func (p Profile) String() string {
	switch p {
	case ProfileLow:
		return "low"
	case ProfileStandard:
		return "standard"
	case ProfileHigh:
		return "high"
	default:
		return "unknown"
	}
}

// ErrNoFrame is returned by cameras that have nothing to deliver this cycle.
var ErrNoFrame = errors.New("no frame available")

// Camera is the capture collaborator. Capture returns an opaque frame;
// Release frees any buffers backing it. Implementations live outside the
// decision core (hardware driver, simulator, test stub).
type Camera interface {
	Capture() (*Frame, error)
	Release(f *Frame)
	Profile() Profile
	SetProfile(p Profile) error
}
