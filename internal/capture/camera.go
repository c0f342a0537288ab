// Package capture provides camera capture functionality using GoCV (OpenCV).
package capture

import (
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")

	// ErrReadTimeout is returned by Reader.Read when the device does not
	// deliver a frame in time.
	ErrReadTimeout = errors.New("camera read timed out")

	// ErrReadInProgress is returned when a read is started while another
	// one has not returned yet.
	ErrReadInProgress = errors.New("camera read already in progress")
)

// Camera defines the interface for camera capture implementations.
// It is the frame source of the classification loop.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	IsOpen() bool
}

// cameraImpl manages video capture from a camera device using GoCV.
//
// mu guards the handle and state only; it is never held across a device
// read, so Close returns even while a read is hung. A handle closed
// during a read is released by that read when it returns.
type cameraImpl struct {
	deviceID int
	capture  *gocv.VideoCapture
	mu       sync.Mutex
	running  bool
	reading  bool
}

// NewCamera creates a new Camera with the given device ID.
func NewCamera(deviceID int) Camera {
	return &cameraImpl{deviceID: deviceID}
}

// Open opens the camera for capturing frames.
// It sets the resolution to 640x480 for performance.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	capture, err := gocv.OpenVideoCapture(c.deviceID)
	if err != nil {
		return err
	}

	if !capture.IsOpened() {
		capture.Close()
		return errors.New("failed to open camera")
	}

	capture.Set(gocv.VideoCaptureFrameWidth, DefaultWidth)
	capture.Set(gocv.VideoCaptureFrameHeight, DefaultHeight)

	c.capture = capture
	c.running = true

	return nil
}

// Close marks the camera closed and releases the device. If a read is
// in progress the handle is released when that read returns.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	capture := c.capture
	c.capture = nil
	c.running = false

	if capture == nil || c.reading {
		return nil
	}
	return capture.Close()
}

// ReadFrame reads a single frame from the camera. Only one read runs at
// a time; a concurrent call fails with ErrReadInProgress.
// The caller is responsible for closing the returned Mat.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	if !c.running || c.capture == nil {
		c.mu.Unlock()
		return nil, ErrCameraNotOpen
	}
	if c.reading {
		c.mu.Unlock()
		return nil, ErrReadInProgress
	}
	capture := c.capture
	c.reading = true
	c.mu.Unlock()

	mat := gocv.NewMat()
	ok := capture.Read(&mat)

	c.mu.Lock()
	c.reading = false
	released := c.capture != capture
	c.mu.Unlock()

	if released {
		capture.Close()
		mat.Close()
		return nil, ErrCameraNotOpen
	}
	if !ok {
		mat.Close()
		return nil, errors.New("failed to read frame from camera")
	}
	if mat.Empty() {
		mat.Close()
		return nil, errors.New("captured frame is empty")
	}

	return &mat, nil
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}
