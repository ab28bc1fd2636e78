// Package servo describes the six servos of the arm and maps hand position to servo angles.
package servo

import "fmt"

// Count is the number of servos on the arm.
const Count = 6

// Angle limits in degrees.
const (
	MinAngle  Angle = 0
	MaxAngle  Angle = 180
	HomeAngle Angle = 90
)

// Index identifies a servo. Valid values are 1 through 6; a single decimal
// digit keeps the wire protocol unambiguous.
type Index uint8

// Servo indices, each bound to a physical joint.
const (
	Elbow               Index = 1
	Shoulder            Index = 2
	PronationSupination Index = 3
	FlexionExtension    Index = 4
	Gripper             Index = 5
	Base                Index = 6
)

var jointNames = [Count]string{
	"ELBOW",
	"SHOULDER",
	"PRONATION_SUPINATION",
	"FLEXION_EXTENSION",
	"GRIPPER",
	"BASE",
}

// All returns every servo index in ascending order.
func All() []Index {
	return []Index{Elbow, Shoulder, PronationSupination, FlexionExtension, Gripper, Base}
}

// Valid reports whether i names one of the six servos.
func (i Index) Valid() bool {
	return i >= Elbow && i <= Base
}

// Name returns the joint name bound to the servo, or "UNKNOWN".
func (i Index) Name() string {
	if !i.Valid() {
		return "UNKNOWN"
	}
	return jointNames[i-1]
}

// Slot returns the zero-based table position of the servo.
func (i Index) Slot() int {
	return int(i) - 1
}

func (i Index) String() string {
	return fmt.Sprintf("S%d:%s", uint8(i), i.Name())
}

// ParseIndex converts an integer to an Index, rejecting values outside 1-6.
func ParseIndex(n int) (Index, error) {
	i := Index(n)
	if n < 1 || n > Count {
		return 0, fmt.Errorf("servo index %d out of range 1-%d", n, Count)
	}
	return i, nil
}

// Angle is a servo target in whole degrees.
type Angle int

// Valid reports whether a lies within [0,180].
func (a Angle) Valid() bool {
	return a >= MinAngle && a <= MaxAngle
}

// Clamp limits a to [0,180].
func (a Angle) Clamp() Angle {
	if a < MinAngle {
		return MinAngle
	}
	if a > MaxAngle {
		return MaxAngle
	}
	return a
}

// Pose holds one angle per servo in index order 1..6.
type Pose [Count]Angle

// HomePose returns the pose with every servo at 90 degrees.
func HomePose() Pose {
	var p Pose
	for i := range p {
		p[i] = HomeAngle
	}
	return p
}

// Clamp returns a copy of p with every angle limited to [0,180].
func (p Pose) Clamp() Pose {
	for i := range p {
		p[i] = p[i].Clamp()
	}
	return p
}
