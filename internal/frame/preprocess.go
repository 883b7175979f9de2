package frame

import (
	"bytes"
	"fmt"

	"github.com/anthonynsimon/bild/blur"
	"github.com/disintegration/imaging"
)

// Luma decodes a frame and returns an 8-bit luminance buffer at the given
// analysis resolution. The frame is box-downsampled first, then lightly
// blurred to knock out single-pixel sensor noise before differencing.
// All steps are deterministic: identical input bytes produce identical
// output buffers.
func Luma(f *Frame, width, height int) ([]byte, error) {
	if f == nil || len(f.Data) == 0 {
		return nil, ErrNoFrame
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid analysis resolution %dx%d", width, height)
	}

	img, err := imaging.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	small := imaging.Resize(img, width, height, imaging.Box)
	smoothed := blur.Gaussian(small, 1.0)
	gray := imaging.Grayscale(smoothed)

	buf := make([]byte, width*height)
	for y := 0; y < height; y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < width; x++ {
			buf[y*width+x] = row[x*4]
		}
	}
	return buf, nil
}
