package frame

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Annotate decodes a frame, draws a bounding box and label onto it and
// returns the re-encoded JPEG. Used when saving capture frames for
// motion-positive cycles so the archived image shows what triggered.
func Annotate(f *Frame, box image.Rectangle, label string) ([]byte, error) {
	if f == nil || len(f.Data) == 0 {
		return nil, ErrNoFrame
	}

	src, err := imaging.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}

	rgba := image.NewRGBA(src.Bounds())
	draw.Draw(rgba, rgba.Bounds(), src, src.Bounds().Min, draw.Src)

	boxColor := color.RGBA{R: 255, G: 200, B: 0, A: 255}
	drawBox(rgba, box.Intersect(rgba.Bounds()), boxColor, 2)
	if label != "" {
		drawLabel(rgba, box.Min.X, box.Min.Y-5, label, boxColor)
	}

	var out bytes.Buffer
	if err := imaging.Encode(&out, rgba, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode annotated frame: %w", err)
	}
	return out.Bytes(), nil
}

func drawBox(img *image.RGBA, r image.Rectangle, c color.RGBA, thickness int) {
	if r.Empty() {
		return
	}
	bounds := img.Bounds()
	for t := 0; t < thickness; t++ {
		for x := r.Min.X; x < r.Max.X && x < bounds.Max.X; x++ {
			if y := r.Min.Y + t; y >= bounds.Min.Y && y < bounds.Max.Y {
				img.Set(x, y, c)
			}
			if y := r.Max.Y - 1 - t; y >= bounds.Min.Y && y < bounds.Max.Y {
				img.Set(x, y, c)
			}
		}
		for y := r.Min.Y; y < r.Max.Y && y < bounds.Max.Y; y++ {
			if x := r.Min.X + t; x >= bounds.Min.X && x < bounds.Max.X {
				img.Set(x, y, c)
			}
			if x := r.Max.X - 1 - t; x >= bounds.Min.X && x < bounds.Max.X {
				img.Set(x, y, c)
			}
		}
	}
}

func drawLabel(img *image.RGBA, x, y int, label string, c color.RGBA) {
	if y < 13 {
		y = 13
	}
	if x < 0 {
		x = 0
	}
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(label)
}
