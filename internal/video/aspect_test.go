package video

import (
	"image"
	"testing"
)

func TestCropRect(t *testing.T) {
	tests := []struct {
		name         string
		origW, origH int
		want         image.Rectangle
	}{
		{"wide source crops width", 1000, 500, image.Rect(353, 0, 646, 500)},
		{"tall source crops height", 500, 1000, image.Rect(0, 73, 500, 927)},
		{"matching aspect is untouched", 502, 857, image.Rect(0, 0, 502, 857)},
		{"landscape hd", 1920, 1080, image.Rect(643, 0, 1276, 1080)},
		{"degenerate source", 0, 500, image.Rectangle{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CropRect(tt.origW, tt.origH, DefaultWidth, DefaultHeight)
			if got != tt.want {
				t.Errorf("CropRect(%d, %d) = %v, want %v", tt.origW, tt.origH, got, tt.want)
			}
		})
	}
}

func TestCropRect_PreservesTargetAspect(t *testing.T) {
	want := float64(DefaultWidth) / float64(DefaultHeight)

	for _, size := range [][2]int{{1000, 500}, {640, 480}, {300, 900}, {1280, 720}} {
		r := CropRect(size[0], size[1], DefaultWidth, DefaultHeight)
		got := float64(r.Dx()) / float64(r.Dy())
		// One pixel of rounding on the cropped side
		tol := 1.0 / float64(min(r.Dx(), r.Dy()))
		if d := got - want; d < -tol || d > tol {
			t.Errorf("CropRect(%v) aspect = %.4f, want %.4f", size, got, want)
		}
		if !r.In(image.Rect(0, 0, size[0], size[1])) {
			t.Errorf("CropRect(%v) = %v lies outside the frame", size, r)
		}
	}
}
