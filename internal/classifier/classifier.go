// Package classifier defines the boundary to the external hand locator and
// sign classifier, plus the label set the classifier scores against.
package classifier

import (
	"image"
	"time"

	"gocv.io/x/gocv"
)

// Prediction is one per-frame classification result.
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // 0.0-1.0
}

// Locator finds the signing hand in a full camera frame.
type Locator interface {
	// Locate returns the hand bounding box in frame pixel coordinates.
	// found is false when no hand is visible in the frame.
	Locate(frame *gocv.Mat) (box image.Rectangle, found bool, err error)
}

// Classifier labels a normalized hand canvas.
type Classifier interface {
	Classify(canvas *gocv.Mat) (Prediction, error)
}

// Model is a combined locator and classifier backed by one resource.
type Model interface {
	Locator
	Classifier

	// Close releases any resources held by the model.
	Close() error
}

// Config holds configuration options for the external model process.
type Config struct {
	// Python is the interpreter used to run Script.
	Python string

	// Script is the path of the model service script.
	Script string

	// ModelPath is passed to the script as --model.
	ModelPath string

	// Labels maps score indices to sign labels.
	Labels Labels

	// Timeout bounds one request. A service that does not answer in
	// time is killed and restarted on the next request.
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Python:  "python3",
		Script:  "scripts/sign_service.py",
		Labels:  DefaultLabels(),
		Timeout: DefaultTimeout,
	}
}
