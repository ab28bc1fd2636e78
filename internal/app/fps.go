package app

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/handservo/internal/gesture"
)

// FPSWindowSize is the number of frame intervals averaged for the FPS estimate.
const FPSWindowSize = 30

// FPSMeter estimates frame rate from the mean of recent frame intervals.
type FPSMeter struct {
	intervals *gesture.Window[float64]
	last      time.Time
}

// NewFPSMeter creates a meter averaging over size intervals.
func NewFPSMeter(size int) *FPSMeter {
	return &FPSMeter{intervals: gesture.NewWindow[float64](size)}
}

// Tick records a frame at now and returns the updated estimate.
func (m *FPSMeter) Tick(now time.Time) float64 {
	if !m.last.IsZero() {
		if dt := now.Sub(m.last).Seconds(); dt > 0 {
			m.intervals.Push(dt)
		}
	}
	m.last = now
	return m.FPS()
}

// FPS returns the current estimate, or 0 before two frames have been seen.
func (m *FPSMeter) FPS() float64 {
	if m.intervals.Len() == 0 {
		return 0
	}
	mean := stat.Mean(m.intervals.Values(), nil)
	if mean <= 0 {
		return 0
	}
	return 1 / mean
}

// Reset forgets all recorded intervals.
func (m *FPSMeter) Reset() {
	m.intervals.Clear()
	m.last = time.Time{}
}
