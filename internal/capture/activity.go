package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Activity detection constants.
const (
	// ActivityWidth is the width frames are scaled to before differencing.
	ActivityWidth = 160
	// ActivityBlurSize is the Gaussian kernel applied to the scaled frame.
	ActivityBlurSize = 7
	// DiffThreshold is the binary threshold for difference detection
	DiffThreshold = 25
)

// ActivityMonitor decides when the pipeline should run at the active frame
// rate. Scene motion or a tracked hand marks activity; the monitor falls
// back to idle once neither has been seen for the idle timeout.
type ActivityMonitor struct {
	threshold   float64
	idleAfter   time.Duration
	prev        gocv.Mat
	initialized bool
	active      bool
	lastSeen    time.Time
	mu          sync.Mutex
}

// NewActivityMonitor creates an ActivityMonitor. threshold is the percentage
// of changed pixels that counts as motion.
func NewActivityMonitor(threshold float64, idleAfter time.Duration) *ActivityMonitor {
	return &ActivityMonitor{
		threshold: threshold,
		idleAfter: idleAfter,
		prev:      gocv.NewMat(),
	}
}

// Observe feeds one frame. It reports whether the mode changed and the mode
// after this frame.
func (m *ActivityMonitor) Observe(frame *gocv.Mat, now time.Time) (changed, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.changePercent(frame) > m.threshold {
		m.lastSeen = now
	}
	return m.update(now)
}

// Hold marks activity without a frame, e.g. while a hand is being tracked.
func (m *ActivityMonitor) Hold(now time.Time) (changed, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastSeen = now
	return m.update(now)
}

func (m *ActivityMonitor) update(now time.Time) (bool, bool) {
	want := !m.lastSeen.IsZero() && now.Sub(m.lastSeen) <= m.idleAfter
	if want == m.active {
		return false, m.active
	}
	m.active = want
	return true, want
}

// changePercent returns the share of pixels that changed since the previous
// frame. The first frame only sets the baseline.
func (m *ActivityMonitor) changePercent(frame *gocv.Mat) float64 {
	if frame == nil || frame.Empty() {
		return 0
	}

	gray := gocv.NewMat()
	defer gray.Close()
	if frame.Channels() > 1 {
		gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)
	} else {
		frame.CopyTo(&gray)
	}

	small := gocv.NewMat()
	defer small.Close()
	height := gray.Rows() * ActivityWidth / gray.Cols()
	if height < 1 {
		height = 1
	}
	gocv.Resize(gray, &small, image.Point{X: ActivityWidth, Y: height}, 0, 0, gocv.InterpolationArea)
	gocv.GaussianBlur(small, &small, image.Point{X: ActivityBlurSize, Y: ActivityBlurSize}, 0, 0, gocv.BorderDefault)

	if !m.initialized || m.prev.Rows() != small.Rows() || m.prev.Cols() != small.Cols() {
		small.CopyTo(&m.prev)
		m.initialized = true
		return 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(small, m.prev, &diff)
	gocv.Threshold(diff, &diff, DiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100.0
	small.CopyTo(&m.prev)
	return changed
}

// Active reports the current mode.
func (m *ActivityMonitor) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Reset drops the baseline frame and returns to idle.
func (m *ActivityMonitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.initialized = false
	m.active = false
	m.lastSeen = time.Time{}
}

// Close releases the baseline frame.
func (m *ActivityMonitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.prev.Empty() {
		m.prev.Close()
		m.prev = gocv.NewMat()
	}
	m.initialized = false
}
