package adaptive

import (
	"image"
	"time"
)

// ROI is the region-of-interest state. The rectangle drifts toward the
// center and extent of recent high-confidence detections via a
// confidence-weighted blend and always stays within frame bounds.
type ROI struct {
	Enabled    bool
	Rect       image.Rectangle
	Confidence float64
	LastUpdate time.Time
}

// update blends the ROI toward a detection's bounding box. The blend weight
// is the detection confidence scaled by the configured gain.
func (r *ROI) update(box image.Rectangle, confidence float64, frameW, frameH int, gain float64, at time.Time) {
	if box.Empty() || frameW <= 0 || frameH <= 0 {
		return
	}
	w := confidence * gain
	if w <= 0 {
		return
	}
	if w > 1 {
		w = 1
	}

	if !r.Enabled {
		r.Rect = box
		r.Enabled = true
	} else {
		r.Rect = image.Rect(
			blendInt(r.Rect.Min.X, box.Min.X, w),
			blendInt(r.Rect.Min.Y, box.Min.Y, w),
			blendInt(r.Rect.Max.X, box.Max.X, w),
			blendInt(r.Rect.Max.Y, box.Max.Y, w),
		)
	}

	r.Rect = r.Rect.Intersect(image.Rect(0, 0, frameW, frameH))
	if r.Rect.Empty() {
		r.Enabled = false
		r.Confidence = 0
		return
	}
	if r.Confidence == 0 {
		r.Confidence = confidence
	} else {
		r.Confidence = r.Confidence*(1-w) + confidence*w
	}
	r.LastUpdate = at
}

func blendInt(prev, next int, w float64) int {
	return int(float64(prev)*(1-w) + float64(next)*w + 0.5)
}
