package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	hands []HandLandmarks
	queue [][]HandLandmarks
	err   error
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands []HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// Queue appends per-frame results that Detect returns in order before
// falling back to the hands set with SetHands.
func (m *MockDetector) Queue(frames ...[]HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, frames...)
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, nil
	}
	return m.hands, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// HandAt builds an upright right hand, as seen in a mirrored frame, whose palm
// center sits at palmX. Each flag controls whether that digit is extended.
func HandAt(palmX float64, thumb, index, middle, ring, pinky bool) HandLandmarks {
	h := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	h.Points[Wrist] = Point3D{X: palmX, Y: 0.80, Z: 0.0}

	// Thumb: extended means the tip is left of the IP joint.
	h.Points[ThumbCMC] = Point3D{X: palmX + 0.05, Y: 0.76, Z: 0.0}
	h.Points[ThumbMCP] = Point3D{X: palmX + 0.08, Y: 0.70, Z: 0.0}
	h.Points[ThumbIP] = Point3D{X: palmX + 0.10, Y: 0.65, Z: 0.0}
	if thumb {
		h.Points[ThumbTip] = Point3D{X: palmX + 0.06, Y: 0.58, Z: 0.0}
	} else {
		h.Points[ThumbTip] = Point3D{X: palmX + 0.13, Y: 0.66, Z: 0.0}
	}

	setFinger(&h, IndexMCP, palmX+0.04, index)
	setFinger(&h, MiddleMCP, palmX, middle)
	setFinger(&h, RingMCP, palmX-0.04, ring)
	setFinger(&h, PinkyMCP, palmX-0.08, pinky)

	return h
}

// setFinger fills the four joints of one finger starting at its MCP index.
func setFinger(h *HandLandmarks, mcp int, x float64, extended bool) {
	h.Points[mcp] = Point3D{X: x, Y: 0.66, Z: 0.0}
	h.Points[mcp+1] = Point3D{X: x, Y: 0.56, Z: 0.0}
	if extended {
		h.Points[mcp+2] = Point3D{X: x, Y: 0.46, Z: 0.0}
		h.Points[mcp+3] = Point3D{X: x, Y: 0.38, Z: 0.0}
		return
	}
	h.Points[mcp+2] = Point3D{X: x, Y: 0.60, Z: -0.04}
	h.Points[mcp+3] = Point3D{X: x, Y: 0.64, Z: -0.02}
}

// FistLandmarks returns a closed hand with no digit extended.
func FistLandmarks(palmX float64) HandLandmarks {
	return HandAt(palmX, false, false, false, false, false)
}

// OpenPalmLandmarks returns a hand with all five digits extended.
func OpenPalmLandmarks(palmX float64) HandLandmarks {
	return HandAt(palmX, true, true, true, true, true)
}

// PointLandmarks returns a hand with only the index finger extended.
func PointLandmarks(palmX float64) HandLandmarks {
	return HandAt(palmX, false, true, false, false, false)
}

// PeaceLandmarks returns a hand with index and middle fingers extended.
func PeaceLandmarks(palmX float64) HandLandmarks {
	return HandAt(palmX, false, true, true, false, false)
}

// ThreeLandmarks returns a hand with index, middle and ring fingers extended.
func ThreeLandmarks(palmX float64) HandLandmarks {
	return HandAt(palmX, false, true, true, true, false)
}

// PinchLandmarks returns a four-digit hand whose thumb tip touches the index tip.
func PinchLandmarks(palmX float64) HandLandmarks {
	h := HandAt(palmX, true, true, true, true, false)
	tip := h.Points[IndexTip]
	h.Points[ThumbTip] = Point3D{X: tip.X - 0.01, Y: tip.Y + 0.01, Z: tip.Z}
	// Keep the thumb left of its IP joint so it still counts as extended.
	h.Points[ThumbIP] = Point3D{X: tip.X + 0.03, Y: 0.50, Z: 0.0}
	return h
}

// FourLandmarks returns a four-digit hand with the thumb well away from the index.
func FourLandmarks(palmX float64) HandLandmarks {
	return HandAt(palmX, true, true, true, true, false)
}
