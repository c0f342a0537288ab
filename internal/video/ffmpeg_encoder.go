package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const waitDelay = 2 * time.Second

// FFmpegEncoder shells out to ffmpeg and writes browser-playable H.264.
type FFmpegEncoder struct {
	path string
}

// NewFFmpegEncoder creates an encoder running the ffmpeg binary at path.
func NewFFmpegEncoder(path string) *FFmpegEncoder {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpegEncoder{path: path}
}

// Normalize implements Encoder.
func (e *FFmpegEncoder) Normalize(ctx context.Context, src, dst string, size image.Point) (ClipInfo, error) {
	info, err := Probe(src)
	if err != nil {
		return info, err
	}
	return info, e.run(ctx, normalizeArgs(src, dst, info, size))
}

// Concat implements Encoder using the concat demuxer.
func (e *FFmpegEncoder) Concat(ctx context.Context, srcs []string, dst string, fps float64) error {
	if len(srcs) == 0 {
		return ErrNoClips
	}

	list, err := concatList(srcs)
	if err != nil {
		return err
	}

	listPath := dst + ".txt"
	if err := os.WriteFile(listPath, []byte(list), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	return e.run(ctx, concatArgs(listPath, dst, fps))
}

// normalizeArgs center-crops a clip of info's size to the aspect of size
// and scales it to exactly size.
func normalizeArgs(src, dst string, info ClipInfo, size image.Point) []string {
	rect := CropRect(info.Width, info.Height, size.X, size.Y)
	filter := fmt.Sprintf("crop=%d:%d:%d:%d,scale=%d:%d,setsar=1",
		rect.Dx(), rect.Dy(), rect.Min.X, rect.Min.Y, size.X, size.Y)

	return []string{
		"-y", "-loglevel", "error",
		"-i", src,
		"-vf", filter,
		"-an",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		dst,
	}
}

// concatList renders srcs as a concat demuxer script with absolute,
// quote-escaped paths.
func concatList(srcs []string) (string, error) {
	var list strings.Builder
	for _, src := range srcs {
		abs, err := filepath.Abs(src)
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", src, err)
		}
		fmt.Fprintf(&list, "file '%s'\n", strings.ReplaceAll(abs, "'", `'\''`))
	}
	return list.String(), nil
}

func concatArgs(listPath, dst string, fps float64) []string {
	args := []string{
		"-y", "-loglevel", "error",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
	}
	if fps > 0 {
		args = append(args, "-r", strconv.FormatFloat(fps, 'f', -1, 64))
	}
	return append(args,
		"-an",
		"-c:v", "libx264", "-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		dst,
	)
}

func (e *FFmpegEncoder) run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, e.path, args...)
	// Children holding stderr open must not stall Wait after a kill
	cmd.WaitDelay = waitDelay

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("ffmpeg timed out: %w", ctx.Err())
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("ffmpeg failed: %w, stderr: %s", err, msg)
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}
