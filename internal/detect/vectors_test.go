package detect

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

// brightBlock returns a luma buffer matching bgMean except for one block
// whose right half is saturated, giving a rightward delta gradient.
func brightBlock(w, h, bx, by, blockSize int) ([]byte, []float64) {
	luma := make([]byte, w*h)
	bgMean := make([]float64, w*h)
	for i := range luma {
		luma[i] = 50
		bgMean[i] = 50
	}
	for y := by; y < by+blockSize; y++ {
		for x := bx + blockSize/2; x < bx+blockSize; x++ {
			luma[y*w+x] = 255
		}
	}
	return luma, bgMean
}

func TestExtractVectorsDeterministic(t *testing.T) {
	luma, bgMean := brightBlock(64, 64, 16, 16, 16)

	a := extractVectors(luma, 64, 64, bgMean, 16)
	b := extractVectors(luma, 64, 64, bgMean, 16)
	assert.Empty(t, cmp.Diff(a, b))
}

func TestExtractVectorsGradientPointsRight(t *testing.T) {
	luma, bgMean := brightBlock(64, 64, 16, 16, 16)

	field := extractVectors(luma, 64, 64, bgMean, 16)
	assert.NotEmpty(t, field.Vectors)

	v := field.Vectors[0]
	assert.Equal(t, 16, v.X)
	assert.Equal(t, 16, v.Y)
	assert.Greater(t, v.DX, 0.0)
	assert.InDelta(t, 0, v.DY, 1e-9)
	assert.GreaterOrEqual(t, v.Confidence, minVectorConfidence)
	assert.Greater(t, field.AverageSpeed, 0.0)
}

func TestExtractVectorsQuietFrameProducesNone(t *testing.T) {
	luma := uniformLuma(64, 64, 50)
	bgMean := make([]float64, 64*64)
	for i := range bgMean {
		bgMean[i] = 50
	}

	field := extractVectors(luma, 64, 64, bgMean, 16)
	assert.Empty(t, field.Vectors)
	assert.Zero(t, field.AverageSpeed)
}

func TestExtractVectorsRejectsMismatchedBuffers(t *testing.T) {
	field := extractVectors(make([]byte, 10), 64, 64, make([]float64, 10), 16)
	assert.Empty(t, field.Vectors)
}
