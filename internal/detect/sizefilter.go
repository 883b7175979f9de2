package detect

// sizeFilter drops motion vectors whose estimated object size falls outside
// the configured band. Sizes are normalized fractions of the analysis frame
// area; the estimate derives from vector magnitude.
type sizeFilter struct {
	minSize float64 // fraction of frame area
	maxSize float64
	gain    float64 // magnitude -> side-length scale
}

func newSizeFilter(minSize, maxSize float64) sizeFilter {
	if minSize <= 0 {
		minSize = 0.001
	}
	if maxSize <= 0 || maxSize > 1 {
		maxSize = 0.8
	}
	if maxSize < minSize {
		minSize, maxSize = maxSize, minSize
	}
	return sizeFilter{minSize: minSize, maxSize: maxSize, gain: 4}
}

// apply returns the surviving vectors and the fraction that was dropped.
func (s sizeFilter) apply(vectors []MotionVector, frameArea int) ([]MotionVector, float64) {
	if len(vectors) == 0 || frameArea <= 0 {
		return vectors, 0
	}
	kept := vectors[:0]
	dropped := 0
	for _, v := range vectors {
		side := v.Magnitude * s.gain
		size := side * side / float64(frameArea)
		if size < s.minSize || size > s.maxSize {
			dropped++
			continue
		}
		kept = append(kept, v)
	}
	return kept, float64(dropped) / float64(len(vectors))
}

// estimateObjectSize returns the normalized size estimate for the largest
// surviving vector, for downstream characteristic extraction.
func (s sizeFilter) estimateObjectSize(vectors []MotionVector, frameArea int) float64 {
	var best float64
	for _, v := range vectors {
		side := v.Magnitude * s.gain
		size := side * side / float64(frameArea)
		if size > best {
			best = size
		}
	}
	return clamp01(best)
}
