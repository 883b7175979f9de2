package camera

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/thewriterben/wildcam/internal/frame"
)

// Sim synthesizes frames for bench runs without capture hardware. It
// renders a static gradient scene and, when a subject is active, a dark
// blob moving left to right across it. Implements frame.Camera.
type Sim struct {
	mu      sync.Mutex
	profile frame.Profile
	seq     int
	subject bool
}

// NewSim creates a simulator at the standard capture profile.
func NewSim() *Sim {
	return &Sim{profile: frame.ProfileStandard}
}

// SetSubject toggles the moving subject in the scene.
func (s *Sim) SetSubject(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subject = active
}

// Capture renders and encodes the next frame.
func (s *Sim) Capture() (*frame.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, h := s.dimensions()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))

	// Static gradient background.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(40 + (x*120)/w + (y*60)/h)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}

	if s.subject {
		s.drawSubject(img, w, h)
	}
	s.seq++

	var buf bytes.Buffer
	quality := 60
	if s.profile == frame.ProfileHigh {
		quality = 90
	}
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, err
	}

	return &frame.Frame{
		Data:      buf.Bytes(),
		Width:     w,
		Height:    h,
		Timestamp: time.Now(),
	}, nil
}

// Release is a no-op; frames are garbage collected.
func (s *Sim) Release(f *frame.Frame) {}

// Profile returns the current capture profile.
func (s *Sim) Profile() frame.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

// SetProfile switches capture resolution and encode quality.
func (s *Sim) SetProfile(p frame.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
	return nil
}

func (s *Sim) dimensions() (int, int) {
	switch s.profile {
	case frame.ProfileLow:
		return 320, 240
	case frame.ProfileHigh:
		return 1600, 1200
	default:
		return 640, 480
	}
}

// drawSubject renders the moving blob. Its horizontal position advances
// with the sequence counter, bobbing slightly to resemble gait.
func (s *Sim) drawSubject(img *image.NRGBA, w, h int) {
	size := h / 6
	cx := (s.seq * w / 40) % w
	cy := h/2 + int(float64(h)*0.05*math.Sin(float64(s.seq)/3))

	for y := cy - size/2; y < cy+size/2; y++ {
		for x := cx - size/2; x < cx+size/2; x++ {
			if x >= 0 && x < w && y >= 0 && y < h {
				img.SetNRGBA(x, y, color.NRGBA{R: 15, G: 12, B: 10, A: 255})
			}
		}
	}
}
