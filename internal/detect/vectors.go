package detect

import (
	"math"
)

// MotionVector is one coarse per-block motion estimate. Vectors are
// ephemeral: regenerated each cycle, no cross-cycle identity.
type MotionVector struct {
	X          int     // block origin, analysis coordinates
	Y          int
	DX         float64 // estimated velocity components, pixels per frame
	DY         float64
	Magnitude  float64
	Confidence float64
}

// VectorField aggregates one cycle's motion vectors.
type VectorField struct {
	Vectors           []MotionVector
	DominantDirection float64 // radians
	AverageSpeed      float64
}

const (
	minVectorConfidence = 0.3
	minBlockDelta       = 0.06 // mean per-pixel delta below this is background noise
)

// extractVectors partitions the luma buffer into fixed blocks and derives a
// deterministic motion estimate per block from the intensity-delta gradient
// against the background mean. Blocks whose delta centroid leans right/down
// produce positive DX/DY. Confidence derives from magnitude; weak vectors
// are discarded.
func extractVectors(luma []byte, width, height int, bgMean []float64, blockSize int) VectorField {
	var field VectorField
	if blockSize <= 0 || len(luma) != width*height || len(bgMean) != len(luma) {
		return field
	}

	var sumDX, sumDY, speedSum float64
	for by := 0; by+blockSize <= height; by += blockSize {
		for bx := 0; bx+blockSize <= width; bx += blockSize {
			var total, left, right, top, bottom float64
			half := blockSize / 2
			for y := 0; y < blockSize; y++ {
				row := (by + y) * width
				for x := 0; x < blockSize; x++ {
					i := row + bx + x
					d := float64(luma[i]) - bgMean[i]
					if d < 0 {
						d = -d
					}
					total += d
					if x < half {
						left += d
					} else {
						right += d
					}
					if y < half {
						top += d
					} else {
						bottom += d
					}
				}
			}

			count := float64(blockSize * blockSize)
			meanDelta := total / count / 255.0
			if meanDelta < minBlockDelta {
				continue
			}

			// Gradient of the delta mass across the block, scaled to a
			// pixel displacement within the block.
			halfCount := count / 2
			dx := (right - left) / halfCount / 255.0 * float64(blockSize)
			dy := (bottom - top) / halfCount / 255.0 * float64(blockSize)
			mag := math.Hypot(dx, dy)

			conf := clamp01(mag/(float64(blockSize)/2) + meanDelta)
			if conf < minVectorConfidence {
				continue
			}

			field.Vectors = append(field.Vectors, MotionVector{
				X: bx, Y: by,
				DX: dx, DY: dy,
				Magnitude:  mag,
				Confidence: conf,
			})
			sumDX += dx * conf
			sumDY += dy * conf
			speedSum += mag * conf
		}
	}

	if n := len(field.Vectors); n > 0 {
		field.DominantDirection = math.Atan2(sumDY, sumDX)
		field.AverageSpeed = speedSum / float64(n)
	}
	return field
}
