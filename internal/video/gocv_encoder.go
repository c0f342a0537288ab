package video

import (
	"context"
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// DefaultCodec is the FourCC used by GocvEncoder.
const DefaultCodec = "mp4v"

// GocvEncoder decodes and encodes clips in-process with OpenCV.
type GocvEncoder struct {
	codec string
}

// NewGocvEncoder creates an encoder writing with the given FourCC.
func NewGocvEncoder(codec string) *GocvEncoder {
	if codec == "" {
		codec = DefaultCodec
	}
	return &GocvEncoder{codec: codec}
}

// Normalize implements Encoder.
func (e *GocvEncoder) Normalize(ctx context.Context, src, dst string, size image.Point) (ClipInfo, error) {
	vc, err := gocv.VideoCaptureFile(src)
	if err != nil {
		return ClipInfo{}, fmt.Errorf("open clip %s: %w", src, err)
	}
	defer vc.Close()

	info, err := probeCapture(vc, src)
	if err != nil {
		return info, err
	}

	fps := info.FPS
	if fps <= 0 {
		fps = DefaultFPS
	}

	writer, err := gocv.VideoWriterFile(dst, e.codec, fps, size.X, size.Y, true)
	if err != nil {
		return info, fmt.Errorf("create writer %s: %w", dst, err)
	}
	defer writer.Close()

	frame := gocv.NewMat()
	defer frame.Close()
	resized := gocv.NewMat()
	defer resized.Close()

	written := 0
	for {
		if err := ctx.Err(); err != nil {
			return info, err
		}
		if ok := vc.Read(&frame); !ok || frame.Empty() {
			break
		}

		// Frames can differ from the container's reported size
		rect := CropRect(frame.Cols(), frame.Rows(), size.X, size.Y)
		region := frame.Region(rect)
		gocv.Resize(region, &resized, size, 0, 0, gocv.InterpolationArea)
		region.Close()

		if err := writer.Write(resized); err != nil {
			return info, fmt.Errorf("write frame: %w", err)
		}
		written++
	}

	if written == 0 {
		return info, errors.New("no frames decoded from " + src)
	}
	info.Frames = written
	return info, nil
}

// Concat implements Encoder. Clips whose frame size differs from the
// first clip are scaled to match.
func (e *GocvEncoder) Concat(ctx context.Context, srcs []string, dst string, fps float64) error {
	if len(srcs) == 0 {
		return ErrNoClips
	}
	if fps <= 0 {
		fps = DefaultFPS
	}

	first, err := Probe(srcs[0])
	if err != nil {
		return err
	}
	size := image.Pt(first.Width, first.Height)

	writer, err := gocv.VideoWriterFile(dst, e.codec, fps, size.X, size.Y, true)
	if err != nil {
		return fmt.Errorf("create writer %s: %w", dst, err)
	}
	defer writer.Close()

	frame := gocv.NewMat()
	defer frame.Close()
	resized := gocv.NewMat()
	defer resized.Close()

	for _, src := range srcs {
		if err := e.appendClip(ctx, writer, src, size, &frame, &resized); err != nil {
			return err
		}
	}
	return nil
}

func (e *GocvEncoder) appendClip(ctx context.Context, writer *gocv.VideoWriter, src string, size image.Point, frame, resized *gocv.Mat) error {
	vc, err := gocv.VideoCaptureFile(src)
	if err != nil {
		return fmt.Errorf("open clip %s: %w", src, err)
	}
	defer vc.Close()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if ok := vc.Read(frame); !ok || frame.Empty() {
			return nil
		}

		out := frame
		if frame.Cols() != size.X || frame.Rows() != size.Y {
			gocv.Resize(*frame, resized, size, 0, 0, gocv.InterpolationArea)
			out = resized
		}
		if err := writer.Write(*out); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
	}
}
