// Package fixtures generates synthetic frames and clips for tests.
package fixtures

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// SolidFrame returns a w x h BGR frame filled with c.
// The caller is responsible for closing the returned Mat.
func SolidFrame(w, h int, c color.RGBA) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(float64(c.B), float64(c.G), float64(c.R), 0), h, w, gocv.MatTypeCV8UC3)
}

// HandFrame returns a w x h grey frame with a skin-coloured block at box.
func HandFrame(w, h int, box image.Rectangle) gocv.Mat {
	frame := SolidFrame(w, h, color.RGBA{R: 90, G: 90, B: 90})
	gocv.Rectangle(&frame, box, color.RGBA{R: 224, G: 172, B: 105}, -1)
	return frame
}

// WriteClip encodes n frames of size w x h to path. Each frame carries a
// moving bar so consecutive frames differ.
func WriteClip(path string, w, h, n int, fps float64, codec string) error {
	writer, err := gocv.VideoWriterFile(path, codec, fps, w, h, true)
	if err != nil {
		return fmt.Errorf("create writer: %w", err)
	}
	defer writer.Close()

	if !writer.IsOpened() {
		return fmt.Errorf("codec %s unavailable", codec)
	}

	for i := 0; i < n; i++ {
		frame := SolidFrame(w, h, color.RGBA{R: 30, G: 120, B: 200})
		x := (i * w / max(n, 1)) % w
		gocv.Rectangle(&frame, image.Rect(x, 0, min(x+w/10+1, w), h), color.RGBA{R: 255, G: 255, B: 255}, -1)
		err := writer.Write(frame)
		frame.Close()
		if err != nil {
			return fmt.Errorf("write frame %d: %w", i, err)
		}
	}
	return nil
}

// FrameSequence returns n copies of frame for MockCamera playback.
// The caller closes every returned Mat.
func FrameSequence(frame gocv.Mat, n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		m := frame.Clone()
		frames[i] = &m
	}
	return frames
}
