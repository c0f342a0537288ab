package classifier

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockModel is a test implementation of the Model interface.
// It allows tests to control the locate and classify results.
type MockModel struct {
	mu          sync.Mutex
	box         image.Rectangle
	found       bool
	predictions []Prediction
	next        int
	locateErr   error
	classifyErr error
	classified  int
}

// NewMockModel creates a new MockModel that finds no hand.
func NewMockModel() *MockModel {
	return &MockModel{}
}

// SetHand makes Locate report a hand at box.
func (m *MockModel) SetHand(box image.Rectangle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.box = box
	m.found = true
}

// ClearHand makes Locate report no hand.
func (m *MockModel) ClearHand() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.found = false
}

// SetPredictions sets the predictions Classify cycles through.
func (m *MockModel) SetPredictions(preds ...Prediction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.predictions = preds
	m.next = 0
}

// SetLocateError sets the error that will be returned by Locate.
func (m *MockModel) SetLocateError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locateErr = err
}

// SetClassifyError sets the error that will be returned by Classify.
func (m *MockModel) SetClassifyError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classifyErr = err
}

// Classified returns how many times Classify was called.
func (m *MockModel) Classified() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.classified
}

// Locate returns the pre-configured hand box or error.
func (m *MockModel) Locate(frame *gocv.Mat) (image.Rectangle, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locateErr != nil {
		return image.Rectangle{}, false, m.locateErr
	}
	return m.box, m.found, nil
}

// Classify returns the next pre-configured prediction.
func (m *MockModel) Classify(canvas *gocv.Mat) (Prediction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classified++
	if m.classifyErr != nil {
		return Prediction{}, m.classifyErr
	}
	if len(m.predictions) == 0 {
		return Prediction{}, nil
	}
	p := m.predictions[m.next%len(m.predictions)]
	m.next++
	return p, nil
}

// Close is a no-op for the mock model.
func (m *MockModel) Close() error {
	return nil
}

// OpenPalmLandmarks returns a preset HandLandmarks of an open palm held in
// the centre of the frame, fingers pointing up.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	// Palm and finger joints interpolated between wrist and tips
	landmarks.Points[Wrist] = Point3D{X: 0.50, Y: 0.80}
	tips := map[int]Point3D{
		ThumbTip:  {X: 0.65, Y: 0.60},
		IndexTip:  {X: 0.58, Y: 0.35},
		MiddleTip: {X: 0.50, Y: 0.28},
		16:        {X: 0.43, Y: 0.33},
		PinkyTip:  {X: 0.36, Y: 0.42},
	}
	for tip, p := range tips {
		base := landmarks.Points[Wrist]
		for j := 3; j >= 0; j-- {
			f := float64(4-j) / 4
			landmarks.Points[tip-j] = Point3D{
				X: base.X + (p.X-base.X)*f,
				Y: base.Y + (p.Y-base.Y)*f,
			}
		}
	}

	return landmarks
}
