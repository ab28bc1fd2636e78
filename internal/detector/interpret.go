package detector

// Reading is the per-hand measurement derived from one landmark set.
type Reading struct {
	FingerCount   int     // extended digits, 0-5
	PinchDistance float64 // thumb tip to index tip, normalized units
	PalmX         float64 // horizontal palm position in [0,1]
}

// fingerJoints pairs each non-thumb fingertip with its PIP joint.
var fingerJoints = [4][2]int{
	{IndexTip, IndexPIP},
	{MiddleTip, MiddlePIP},
	{RingTip, RingPIP},
	{PinkyTip, PinkyPIP},
}

// Interpret derives finger count, pinch distance and palm position from a hand.
//
// The thumb counts as extended when its tip lies left of the IP joint. That
// only holds for a mirrored frame; it is not orientation-invariant.
// The other fingers count as extended when the tip sits above the PIP joint.
func Interpret(h *HandLandmarks) (Reading, error) {
	if h == nil {
		return Reading{}, ErrInvalidInput
	}

	return Reading{
		FingerCount:   FingerCount(h),
		PinchDistance: PinchDistance(h),
		PalmX:         h.Points[PalmCenter].X,
	}, nil
}

// FingerCount returns the number of extended digits.
func FingerCount(h *HandLandmarks) int {
	count := 0

	if h.Points[ThumbTip].X < h.Points[ThumbIP].X {
		count++
	}

	for _, j := range fingerJoints {
		if h.Points[j[0]].Y < h.Points[j[1]].Y {
			count++
		}
	}

	return count
}

// PinchDistance returns the 3D distance between the thumb tip and index tip.
func PinchDistance(h *HandLandmarks) float64 {
	return distance3D(h.Points[ThumbTip], h.Points[IndexTip])
}
