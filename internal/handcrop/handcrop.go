// Package handcrop isolates the signing hand from a camera frame and
// letterboxes it onto a fixed square canvas for classification.
package handcrop

import (
	"errors"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// Default crop settings
const (
	DefaultMargin = 20
	DefaultSize   = 300
)

// ErrEmptyCrop is returned when the expanded hand region has no area
// inside the frame.
var ErrEmptyCrop = errors.New("hand crop is empty")

// Normalizer crops a hand region with a margin and fits it, without
// distortion, into a Size x Size white canvas.
type Normalizer struct {
	Margin int
	Size   int
}

// New creates a Normalizer. Non-positive size uses DefaultSize and a
// negative margin uses DefaultMargin.
func New(margin, size int) *Normalizer {
	if size <= 0 {
		size = DefaultSize
	}
	if margin < 0 {
		margin = DefaultMargin
	}
	return &Normalizer{Margin: margin, Size: size}
}

// Expand grows box by margin on every side and clamps it to bounds.
// The result is empty when box lies entirely outside bounds.
func Expand(box image.Rectangle, margin int, bounds image.Rectangle) image.Rectangle {
	return image.Rect(
		box.Min.X-margin,
		box.Min.Y-margin,
		box.Max.X+margin,
		box.Max.Y+margin,
	).Intersect(bounds)
}

// Fit returns where a w x h region lands on a size x size canvas.
//
// A tall region (h/w > 1) is scaled to the full canvas height and centred
// horizontally; anything else is scaled to the full width and centred
// vertically. The scaled side is rounded up so the region never
// under-fills its slot.
func Fit(w, h, size int) image.Rectangle {
	if w <= 0 || h <= 0 || size <= 0 {
		return image.Rectangle{}
	}

	if h > w {
		k := float64(size) / float64(h)
		wCal := min(int(math.Ceil(k*float64(w))), size)
		gap := (size - wCal) / 2
		return image.Rect(gap, 0, gap+wCal, size)
	}

	k := float64(size) / float64(w)
	hCal := min(int(math.Ceil(k*float64(h))), size)
	gap := (size - hCal) / 2
	return image.Rect(0, gap, size, gap+hCal)
}

// Normalize crops box (plus margin) out of frame and returns the canvas
// holding it together with the crop rectangle in frame coordinates.
// The caller closes the returned Mat, on error too.
func (n *Normalizer) Normalize(frame *gocv.Mat, box image.Rectangle) (gocv.Mat, image.Rectangle, error) {
	if frame == nil || frame.Empty() {
		return gocv.NewMat(), image.Rectangle{}, ErrEmptyCrop
	}

	bounds := image.Rect(0, 0, frame.Cols(), frame.Rows())
	crop := Expand(box, n.Margin, bounds)
	if crop.Empty() {
		return gocv.NewMat(), crop, ErrEmptyCrop
	}

	region := frame.Region(crop)
	defer region.Close()

	slot := Fit(crop.Dx(), crop.Dy(), n.Size)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(region, &resized, slot.Size(), 0, 0, gocv.InterpolationLinear)

	canvas := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(255, 255, 255, 0), n.Size, n.Size, frame.Type())

	dst := canvas.Region(slot)
	resized.CopyTo(&dst)
	dst.Close()

	return canvas, crop, nil
}
