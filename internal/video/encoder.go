package video

import (
	"context"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Encoder backends.
const (
	EncoderGocv   = "gocv"
	EncoderFFmpeg = "ffmpeg"
)

// ClipInfo describes a decoded clip.
type ClipInfo struct {
	Width  int
	Height int
	FPS    float64
	Frames int
}

// Encoder normalizes single clips and concatenates normalized clips.
type Encoder interface {
	// Normalize crops src to the aspect ratio of size, scales it to size
	// and writes the result to dst. It returns the properties of src.
	Normalize(ctx context.Context, src, dst string, size image.Point) (ClipInfo, error)
	// Concat joins srcs in order into dst at the given frame rate.
	Concat(ctx context.Context, srcs []string, dst string, fps float64) error
}

// NewEncoder returns the encoder backend named kind.
func NewEncoder(kind, codec, ffmpegPath string) (Encoder, error) {
	switch kind {
	case "", EncoderGocv:
		return NewGocvEncoder(codec), nil
	case EncoderFFmpeg:
		return NewFFmpegEncoder(ffmpegPath), nil
	default:
		return nil, fmt.Errorf("unknown encoder %q", kind)
	}
}

// Probe reads the dimensions and frame rate of a clip.
func Probe(path string) (ClipInfo, error) {
	vc, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return ClipInfo{}, fmt.Errorf("open clip %s: %w", path, err)
	}
	defer vc.Close()

	return probeCapture(vc, path)
}

func probeCapture(vc *gocv.VideoCapture, path string) (ClipInfo, error) {
	info := ClipInfo{
		Width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
		Height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
		FPS:    vc.Get(gocv.VideoCaptureFPS),
		Frames: int(vc.Get(gocv.VideoCaptureFrameCount)),
	}
	if info.Width <= 0 || info.Height <= 0 {
		return info, fmt.Errorf("clip %s has no video stream", path)
	}
	return info, nil
}
