package classifier

import (
	"image"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbTip     = 4
	IndexTip     = 8
	MiddleMCP    = 9
	MiddleTip    = 12
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point3D represents a landmark position. X and Y are normalized to the
// frame (0.0-1.0); Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks reported by the locator.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// BoundingBox returns the pixel rectangle enclosing all landmarks on a
// frame of the given size. Coordinates are not clamped; the hand crop
// applies the margin and clamps afterwards.
func (h *HandLandmarks) BoundingBox(width, height int) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)

	for _, p := range h.Points {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
		maxX = math.Max(maxX, p.X)
		maxY = math.Max(maxY, p.Y)
	}

	return image.Rect(
		int(math.Floor(minX*float64(width))),
		int(math.Floor(minY*float64(height))),
		int(math.Ceil(maxX*float64(width))),
		int(math.Ceil(maxY*float64(height))),
	)
}
