package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thewriterben/wildcam/internal/frame"
)

func TestSimCaptureDecodesAtProfileResolution(t *testing.T) {
	s := NewSim()

	f, err := s.Capture()
	require.NoError(t, err)
	assert.Equal(t, 640, f.Width)
	assert.Equal(t, 480, f.Height)
	assert.NotEmpty(t, f.Data)

	// The encoded bytes must survive the analysis preprocessing path.
	luma, err := frame.Luma(f, 160, 120)
	require.NoError(t, err)
	assert.Len(t, luma, 160*120)
}

func TestSimProfileSwitchesResolution(t *testing.T) {
	s := NewSim()
	require.NoError(t, s.SetProfile(frame.ProfileLow))

	f, err := s.Capture()
	require.NoError(t, err)
	assert.Equal(t, 320, f.Width)
	assert.Equal(t, 240, f.Height)
	assert.Equal(t, frame.ProfileLow, s.Profile())
}

func TestSimSubjectChangesScene(t *testing.T) {
	s := NewSim()

	quiet, err := s.Capture()
	require.NoError(t, err)

	s.SetSubject(true)
	// Advance a few frames so the blob sits well inside the scene.
	var active *frame.Frame
	for i := 0; i < 5; i++ {
		active, err = s.Capture()
		require.NoError(t, err)
	}

	a, err := frame.Luma(quiet, 80, 60)
	require.NoError(t, err)
	b, err := frame.Luma(active, 80, 60)
	require.NoError(t, err)

	diff := 0
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		diff += d
	}
	assert.Greater(t, diff, 0)
}
