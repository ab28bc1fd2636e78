// Package protocol encodes servo commands for the microcontroller's serial line protocol.
//
// A command is the servo index digit immediately followed by the decimal
// angle and a line feed, for example "190\n" moves servo 1 to 90 degrees and
// "6120\n" moves servo 6 to 120 degrees. There is no other framing and no
// acknowledgement. The format is only unambiguous because servo indices are
// single digits.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/ayusman/handservo/internal/servo"
)

// Terminator ends every command.
const Terminator = '\n'

// MaxCommandLen is the longest encoded command: one index digit, three angle
// digits and the terminator.
const MaxCommandLen = 5

var (
	// ErrInvalidCommand is returned when encoding a command with an out-of-range field.
	ErrInvalidCommand = errors.New("invalid servo command")
	// ErrMalformed is returned when decoding bytes that are not a single command.
	ErrMalformed = errors.New("malformed servo command")
)

// Command moves one servo to one angle.
type Command struct {
	Servo servo.Index `json:"servo"`
	Angle servo.Angle `json:"angle"`
}

// Validate checks that both fields are in range.
func (c Command) Validate() error {
	if !c.Servo.Valid() {
		return fmt.Errorf("%w: servo %d", ErrInvalidCommand, c.Servo)
	}
	if !c.Angle.Valid() {
		return fmt.Errorf("%w: angle %d", ErrInvalidCommand, c.Angle)
	}
	return nil
}

// Encode returns the wire bytes for c.
func Encode(c Command) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, 0, MaxCommandLen)
	buf = strconv.AppendUint(buf, uint64(c.Servo), 10)
	buf = strconv.AppendInt(buf, int64(c.Angle), 10)
	buf = append(buf, Terminator)
	return buf, nil
}

// Decode parses one terminated command. The first digit is the servo index
// and the remaining digits are the angle, which must not be zero-padded.
func Decode(b []byte) (Command, error) {
	line, ok := bytes.CutSuffix(b, []byte{Terminator})
	if !ok {
		return Command{}, fmt.Errorf("%w: missing terminator", ErrMalformed)
	}
	if len(line) < 2 || len(line) > MaxCommandLen-1 {
		return Command{}, fmt.Errorf("%w: %q", ErrMalformed, line)
	}
	for _, ch := range line {
		if ch < '0' || ch > '9' {
			return Command{}, fmt.Errorf("%w: non-digit in %q", ErrMalformed, line)
		}
	}

	digits := line[1:]
	if len(digits) > 1 && digits[0] == '0' {
		return Command{}, fmt.Errorf("%w: padded angle %q", ErrMalformed, line)
	}

	angle, err := strconv.Atoi(string(digits))
	if err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	c := Command{
		Servo: servo.Index(line[0] - '0'),
		Angle: servo.Angle(angle),
	}
	if err := c.Validate(); err != nil {
		return Command{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return c, nil
}

func (c Command) String() string {
	return fmt.Sprintf("%d%d", c.Servo, c.Angle)
}
