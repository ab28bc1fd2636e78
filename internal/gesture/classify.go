package gesture

// PinchThreshold is the thumb-to-index distance under which a hand that
// matched no finger-count rule is read as a pinch.
const PinchThreshold = 0.05

// Classify maps a finger count and pinch distance to a label.
// Finger-count rules take priority over the pinch rule. Four extended
// fingers without a pinch deliberately fall through to None.
func Classify(fingerCount int, pinchDistance float64) Label {
	switch fingerCount {
	case 0:
		return Fist
	case 5:
		return Open
	case 1:
		return Point
	case 2:
		return Peace
	case 3:
		return Three
	}

	if pinchDistance < PinchThreshold {
		return Pinch
	}
	return None
}
