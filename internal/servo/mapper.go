package servo

import "math"

// DeadZone is the fraction of the frame width clamped at each edge.
const DeadZone = 0.05

// floorSlack absorbs binary rounding so that positions landing exactly on a
// whole degree, such as the 0.95 edge, are not floored one degree short.
const floorSlack = 1e-9

// AngleFromPosition maps a normalized horizontal hand position to an angle.
// Positions inside the dead zone clamp to the edges: x <= 0.05 gives 0,
// x >= 0.95 gives 180, and x = 0.5 gives 90.
func AngleFromPosition(x float64) Angle {
	if math.IsNaN(x) || x < DeadZone {
		x = DeadZone
	} else if x > 1-DeadZone {
		x = 1 - DeadZone
	}

	n := (x - DeadZone) / (1 - 2*DeadZone)
	a := Angle(math.Floor(n*float64(MaxAngle) + floorSlack))

	return a.Clamp()
}
