package video

import (
	"image"
	"math"
)

// Target clip size expected by the front end.
const (
	DefaultWidth  = 502
	DefaultHeight = 857
	// DefaultFPS is used when neither the config nor the first clip gives a rate.
	DefaultFPS = 30.0
)

// CropRect returns the centered region of an origW x origH frame that has
// the aspect ratio of targetW x targetH. A frame wider than the target is
// cropped in width, otherwise in height. Resizing the region to the
// target size then never distorts the picture.
func CropRect(origW, origH, targetW, targetH int) image.Rectangle {
	if origW <= 0 || origH <= 0 || targetW <= 0 || targetH <= 0 {
		return image.Rectangle{}
	}

	target := float64(targetW) / float64(targetH)
	orig := float64(origW) / float64(origH)

	if orig > target {
		w := clamp(int(math.Round(float64(origH)*target)), 1, origW)
		x := (origW - w) / 2
		return image.Rect(x, 0, x+w, origH)
	}

	h := clamp(int(math.Round(float64(origW)/target)), 1, origH)
	y := (origH - h) / 2
	return image.Rect(0, y, origW, y+h)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
