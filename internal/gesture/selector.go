package gesture

import "github.com/ayusman/handservo/internal/servo"

// servoMap binds each non-None gesture to the servo it selects.
var servoMap = map[Label]servo.Index{
	Pinch: servo.Gripper,
	Three: servo.PronationSupination,
	Peace: servo.FlexionExtension,
	Point: servo.Elbow,
	Open:  servo.Shoulder,
	Fist:  servo.Base,
}

// ServoFor returns the servo selected by a gesture. None selects nothing.
func ServoFor(l Label) (servo.Index, bool) {
	idx, ok := servoMap[l]
	return idx, ok
}

// Selector tracks which servo the hand currently drives.
type Selector struct {
	active servo.Index
}

// NewSelector creates a Selector starting on the elbow.
func NewSelector() *Selector {
	return &Selector{active: servo.Elbow}
}

// Active returns the servo currently driven.
func (s *Selector) Active() servo.Index {
	return s.active
}

// Update moves to the servo mapped from the stabilized gesture. It reports
// whether the active servo changed; None never causes a change.
func (s *Selector) Update(stable Label) (servo.Index, bool) {
	next, ok := ServoFor(stable)
	if !ok || next == s.active {
		return s.active, false
	}
	s.active = next
	return s.active, true
}
