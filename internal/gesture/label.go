// Package gesture classifies hand readings into gestures and stabilizes them over time.
package gesture

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Label is a discrete gesture class.
type Label uint8

// Gesture labels. None means no confident gesture for the observation.
const (
	None Label = iota
	Fist
	Open
	Point
	Peace
	Three
	Pinch
)

var labelNames = [...]string{
	None:  "NONE",
	Fist:  "FIST",
	Open:  "OPEN",
	Point: "POINT",
	Peace: "PEACE",
	Three: "THREE",
	Pinch: "PINCH",
}

// Labels returns every label including None.
func Labels() []Label {
	return []Label{None, Fist, Open, Point, Peace, Three, Pinch}
}

func (l Label) String() string {
	if int(l) < len(labelNames) {
		return labelNames[l]
	}
	return fmt.Sprintf("Label(%d)", uint8(l))
}

// ParseLabel returns the label with the given name, case-insensitively.
func ParseLabel(s string) (Label, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for l, n := range labelNames {
		if n == name {
			return Label(l), nil
		}
	}
	return None, fmt.Errorf("unknown gesture %q", s)
}

// MarshalJSON encodes the label by name.
func (l Label) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON decodes a label name.
func (l *Label) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLabel(s)
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
