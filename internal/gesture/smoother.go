package gesture

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/ayusman/handservo/internal/servo"
)

// Smoothing window sizes.
const (
	// VoteWindowSize is the number of recent raw labels kept for voting.
	VoteWindowSize = 8
	// MinVotes is the number of votes required before a gesture is stabilized.
	MinVotes = 5
	// PositionWindowSize is the number of palm positions averaged.
	PositionWindowSize = 5
	// AngleWindowSize is the number of derived angles averaged.
	AngleWindowSize = 5
)

// Smoother stabilizes gestures by majority vote and positions and angles by
// moving average. The three windows are independent.
//
// The stabilized gesture is sticky: a None majority leaves it unchanged and
// only a non-None majority overwrites it. ResetGesture is the only way back
// to None.
type Smoother struct {
	votes     *Window[Label]
	positions *Window[float64]
	angles    *Window[float64]
	current   Label
}

// NewSmoother creates a Smoother with empty windows and no stabilized gesture.
func NewSmoother() *Smoother {
	return &Smoother{
		votes:     NewWindow[Label](VoteWindowSize),
		positions: NewWindow[float64](PositionWindowSize),
		angles:    NewWindow[float64](AngleWindowSize),
		current:   None,
	}
}

// ObserveGesture records a raw label and returns the stabilized gesture.
func (s *Smoother) ObserveGesture(l Label) Label {
	s.votes.Push(l)

	if s.votes.Len() < MinVotes {
		return s.current
	}

	if top := majority(s.votes.Values()); top != None {
		s.current = top
	}
	return s.current
}

// Gesture returns the stabilized gesture.
func (s *Smoother) Gesture() Label {
	return s.current
}

// ResetGesture sets the stabilized gesture to None without touching the votes.
func (s *Smoother) ResetGesture() {
	s.current = None
}

// ObservePosition records a palm position and returns the mean of the window.
func (s *Smoother) ObservePosition(x float64) float64 {
	s.positions.Push(x)
	return stat.Mean(s.positions.Values(), nil)
}

// ObserveAngle records an angle and returns the floored mean of the window.
func (s *Smoother) ObserveAngle(a servo.Angle) servo.Angle {
	s.angles.Push(float64(a))
	mean := stat.Mean(s.angles.Values(), nil)
	return servo.Angle(math.Floor(mean)).Clamp()
}

// ClearMotion empties the position and angle windows. Votes are kept.
func (s *Smoother) ClearMotion() {
	s.positions.Clear()
	s.angles.Clear()
}

// Votes returns the vote window contents, oldest first.
func (s *Smoother) Votes() []Label {
	return s.votes.Values()
}

// Positions returns the position window contents, oldest first.
func (s *Smoother) Positions() []float64 {
	return s.positions.Values()
}

// Angles returns the angle window contents, oldest first.
func (s *Smoother) Angles() []servo.Angle {
	vals := s.angles.Values()
	out := make([]servo.Angle, len(vals))
	for i, v := range vals {
		out[i] = servo.Angle(v)
	}
	return out
}

// majority returns the most frequent label. On a tie the label that was
// first to appear in insertion order wins.
func majority(labels []Label) Label {
	counts := make(map[Label]int, len(labels))
	for _, l := range labels {
		counts[l]++
	}

	best, bestCount := None, 0
	for _, l := range labels {
		if counts[l] > bestCount {
			best, bestCount = l, counts[l]
		}
	}
	return best
}
