// Package app runs the recognition session: it owns the camera and the
// classification loop that turns frames into sentence edits.
package app

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ayusman/signbridge/internal/capture"
	"github.com/ayusman/signbridge/internal/classifier"
	"github.com/ayusman/signbridge/internal/handcrop"
	"github.com/ayusman/signbridge/internal/metrics"
	"github.com/ayusman/signbridge/internal/session"
	"github.com/ayusman/signbridge/internal/stream"
)

// Loop timing defaults.
const (
	// DefaultReadTimeout bounds a single camera read.
	DefaultReadTimeout = 2 * time.Second
	// DefaultIdleInterval is how long the loop waits when the camera is unavailable.
	DefaultIdleInterval = time.Second
	// retryDelay paces retries after a failed read.
	retryDelay = 50 * time.Millisecond
)

// Config holds the collaborators of an App.
type Config struct {
	Camera     capture.Camera
	Model      classifier.Model
	Session    *session.State
	Frames     *stream.Cell
	Normalizer *handcrop.Normalizer
	Metrics    *metrics.Metrics
	Logger     *slog.Logger

	ReadTimeout  time.Duration
	IdleInterval time.Duration
}

// App starts and stops recognition. Only Start and Stop touch the camera.
type App struct {
	config Config
	logger *slog.Logger

	mu     sync.Mutex
	stopCh chan struct{}
	doneCh chan struct{}
}

// New creates a new App. Camera, Model and Session are required.
func New(config Config) *App {
	if config.Frames == nil {
		config.Frames = stream.NewCell()
	}
	if config.Normalizer == nil {
		config.Normalizer = handcrop.New(handcrop.DefaultMargin, handcrop.DefaultSize)
	}
	if config.Metrics == nil {
		config.Metrics = metrics.New()
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	if config.IdleInterval <= 0 {
		config.IdleInterval = DefaultIdleInterval
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &App{
		config: config,
		logger: logger.With("component", "app"),
	}
}

// Start opens the camera and launches the classification loop.
// It is a no-op when already running. If the camera cannot be opened
// the error is returned and nothing changes.
func (a *App) Start() (started bool, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return false, nil
	}

	if err := a.config.Camera.Open(); err != nil {
		a.logger.Error("failed to open camera", "error", err)
		return false, fmt.Errorf("open camera: %w", err)
	}

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	a.config.Session.SetRunning(true)
	a.config.Metrics.SetRunning(true)

	go a.run(a.stopCh, a.doneCh)

	a.logger.Info("camera started")
	return true, nil
}

// Stop ends the loop and releases the camera. Calling Stop when not
// running is harmless.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.config.Session.SetRunning(false)
	a.config.Metrics.SetRunning(false)

	if a.stopCh == nil {
		return
	}

	close(a.stopCh)
	<-a.doneCh
	a.stopCh = nil
	a.doneCh = nil

	if err := a.config.Camera.Close(); err != nil {
		a.logger.Warn("error closing camera", "error", err)
	}

	a.logger.Info("camera stopped")
}

// Running reports whether the loop is active.
func (a *App) Running() bool {
	return a.config.Session.Running()
}

// Session returns the shared session state.
func (a *App) Session() *session.State {
	return a.config.Session
}

// Frames returns the latest annotated frame cell.
func (a *App) Frames() *stream.Cell {
	return a.config.Frames
}

// Close stops recognition and shuts down the model.
func (a *App) Close() error {
	a.Stop()
	if a.config.Model != nil {
		return a.config.Model.Close()
	}
	return nil
}
