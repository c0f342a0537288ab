package app

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/ayusman/signbridge/internal/capture"
	"github.com/ayusman/signbridge/internal/sign"
	"gocv.io/x/gocv"
)

var annotationColor = color.RGBA{G: 255}

// run is the classification loop. Each iteration reads one frame,
// classifies the hand if there is one, feeds the session and publishes
// the annotated frame. Per-frame failures are logged and skipped.
func (a *App) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	// One device read at most; a hung read is dropped when the loop ends
	reader := capture.NewReader(a.config.Camera)
	defer reader.Abandon()

	for {
		select {
		case <-stop:
			return
		default:
		}

		frame, err := reader.Read(a.config.ReadTimeout)
		if err != nil {
			a.config.Metrics.ReadErrors.Add(1)
			wait := retryDelay
			switch {
			case errors.Is(err, capture.ErrCameraNotOpen):
				wait = a.config.IdleInterval
			case errors.Is(err, capture.ErrReadTimeout):
				// The read is still pending; wait for it again at once
				a.logger.Warn("camera read timed out", "pending", reader.Pending())
				wait = 0
			default:
				a.logger.Warn("failed to read frame", "error", err)
			}
			if !sleep(stop, wait) {
				return
			}
			continue
		}
		a.config.Metrics.FramesRead.Add(1)

		if err := a.ProcessFrame(frame); err != nil {
			a.config.Metrics.FramesSkipped.Add(1)
			a.logger.Warn("frame skipped", "error", err)
		}
		frame.Close()
	}
}

// ProcessFrame runs one frame through locate, normalize, classify and
// debounce, draws the stable sign onto it and publishes it as JPEG.
func (a *App) ProcessFrame(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() {
		return errors.New("empty frame")
	}

	box, found, err := a.config.Model.Locate(frame)
	if err != nil {
		return fmt.Errorf("locate hand: %w", err)
	}

	if found {
		if err := a.classify(frame, box); err != nil {
			return err
		}
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	// GetBytes aliases native memory, so copy before closing
	data := append([]byte(nil), buf.GetBytes()...)
	buf.Close()

	a.config.Frames.Publish(data)
	a.config.Metrics.FramesProcessed.Add(1)
	return nil
}

func (a *App) classify(frame *gocv.Mat, box image.Rectangle) error {
	canvas, crop, err := a.config.Normalizer.Normalize(frame, box)
	defer canvas.Close()
	if err != nil {
		// Degenerate crop: nothing to classify on this frame
		a.logger.Debug("empty hand crop", "box", box)
		return nil
	}
	a.config.Metrics.HandsDetected.Add(1)

	pred, err := a.config.Model.Classify(&canvas)
	if err != nil {
		return fmt.Errorf("classify hand: %w", err)
	}

	edit, flushed := a.config.Session.Observe(pred.Label, pred.Confidence)
	if flushed {
		a.config.Metrics.WindowFlushes.Add(1)
		if edit.Kind != sign.EditNone {
			a.config.Metrics.SentenceEdits.Add(1)
			snap := a.config.Session.Snapshot()
			a.logger.Info("recognized sign", "sign", edit.Label, "edit", edit.Kind, "sentence", snap.Sentence)
		}
	}

	label := a.config.Session.LastStable()
	gocv.PutText(frame, "Sign: "+label, image.Pt(box.Min.X, box.Min.Y-20), gocv.FontHersheySimplex, 1, annotationColor, 2)
	gocv.Rectangle(frame, crop, annotationColor, 2)
	return nil
}

// sleep waits for d and reports false if stop closed first.
func sleep(stop <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-stop:
			return false
		default:
			return true
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-stop:
		return false
	case <-t.C:
		return true
	}
}
