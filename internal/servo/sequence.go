package servo

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidSequence is returned when sequence JSON cannot be used as poses.
var ErrInvalidSequence = errors.New("invalid sequence")

// EncodeSequence renders poses as a JSON list of six-angle lists.
func EncodeSequence(poses []Pose) ([]byte, error) {
	if poses == nil {
		poses = []Pose{}
	}
	return json.Marshal(poses)
}

// DecodeSequence parses a JSON list of six-angle lists. Every pose must have
// exactly six angles within [0,180].
func DecodeSequence(data []byte) ([]Pose, error) {
	var raw [][]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSequence, err)
	}

	poses := make([]Pose, 0, len(raw))
	for i, values := range raw {
		if len(values) != Count {
			return nil, fmt.Errorf("%w: pose %d has %d angles, want %d", ErrInvalidSequence, i+1, len(values), Count)
		}
		var p Pose
		for j, v := range values {
			a := Angle(v)
			if !a.Valid() {
				return nil, fmt.Errorf("%w: pose %d servo %d angle %d out of range", ErrInvalidSequence, i+1, j+1, v)
			}
			p[j] = a
		}
		poses = append(poses, p)
	}

	return poses, nil
}
