// Package detector provides hand detection interfaces and types for gesture recognition.
package detector

import (
	"errors"
	"fmt"
	"math"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// PalmCenter is the landmark used as the hand's horizontal position.
const PalmCenter = MiddleMCP

// ErrInvalidInput is returned for a landmark set that does not describe one
// hand with exactly NumLandmarks points.
var ErrInvalidInput = errors.New("invalid landmark set")

// Point3D represents a 3D point in space with x, y, z coordinates.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HandLandmarks represents the 21 hand landmarks detected by MediaPipe.
// Coordinates are normalized to [0,1] image space with y growing downward.
type HandLandmarks struct {
	Points     [NumLandmarks]Point3D `json:"points"`
	Handedness string                `json:"handedness"` // "Left" or "Right"
	Score      float64               `json:"score"`
}

// FromPoints builds a HandLandmarks from a point slice.
// It fails with ErrInvalidInput unless exactly NumLandmarks points are given.
func FromPoints(points []Point3D) (HandLandmarks, error) {
	var h HandLandmarks
	if len(points) != NumLandmarks {
		return h, fmt.Errorf("%w: got %d points, want %d", ErrInvalidInput, len(points), NumLandmarks)
	}
	copy(h.Points[:], points)
	return h, nil
}

// distance3D calculates the Euclidean distance between two 3D points.
func distance3D(a, b Point3D) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
