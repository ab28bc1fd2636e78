package transport

import (
	"fmt"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Serial defaults for the arm controller board.
const (
	DefaultBaudRate    = 115200
	DefaultReadTimeout = 500 * time.Millisecond
	// DefaultResetDelay is how long to wait after opening the port for the
	// board to finish its auto-reset.
	DefaultResetDelay = 2 * time.Second
)

// PortOptions describes the serial connection parameters.
type PortOptions struct {
	BaudRate    int           `json:"baud_rate"`
	DataBits    int           `json:"data_bits"`
	StopBits    int           `json:"stop_bits"`
	Parity      string        `json:"parity"`
	ReadTimeout time.Duration `json:"read_timeout"`
	ResetDelay  time.Duration `json:"reset_delay"`
}

// DefaultPortOptions returns 115200 baud 8N1.
func DefaultPortOptions() PortOptions {
	opts, _ := PortOptions{}.Normalize()
	return opts
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	parity := strings.TrimSpace(strings.ToUpper(opts.Parity))
	switch parity {
	case "", "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	opts.Parity = parity

	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.ResetDelay < 0 {
		opts.ResetDelay = 0
	} else if opts.ResetDelay == 0 {
		opts.ResetDelay = DefaultResetDelay
	}

	return opts, nil
}

// SerialMode converts the options into the serial.Mode used to open a port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
	}

	switch opts.StopBits {
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		mode.StopBits = serial.OneStopBit
	}

	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}

	return mode, nil
}

// ListPorts returns the names of the serial ports present on the system.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
