package transport

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Opener opens the port at path. It is replaced in tests.
type Opener func(path string, opts PortOptions) (Port, error)

// OpenSerialPort opens a real serial port with go.bug.st/serial.
func OpenSerialPort(path string, opts PortOptions) (Port, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, err
	}

	if err := port.SetReadTimeout(opts.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}

	return port, nil
}

// Serial is a Transport over a serial port.
type Serial struct {
	path      string
	opts      PortOptions
	open      Opener
	mu        sync.Mutex
	port      Port
	connected bool
}

// NewSerial creates a disconnected serial transport for the port at path.
func NewSerial(path string, opts PortOptions) (*Serial, error) {
	normalized, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	return &Serial{
		path: path,
		opts: normalized,
		open: OpenSerialPort,
	}, nil
}

// SetOpener replaces the function used to open the port.
func (s *Serial) SetOpener(open Opener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = open
}

// Path returns the port path.
func (s *Serial) Path() string {
	return s.path
}

// Options returns the normalized port options.
func (s *Serial) Options() PortOptions {
	return s.opts
}

// Connect opens the port and waits for the board to come out of reset.
func (s *Serial) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connected {
		return nil
	}

	port, err := s.open(s.path, s.opts)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}

	if s.opts.ResetDelay > 0 {
		timer := time.NewTimer(s.opts.ResetDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			port.Close()
			return ctx.Err()
		case <-timer.C:
		}
	}

	s.port = port
	s.connected = true
	log.Printf("Connected to %s @ %d baud", s.path, s.opts.BaudRate)
	return nil
}

// Disconnect closes the port.
func (s *Serial) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return nil
	}

	err := s.port.Close()
	s.port = nil
	s.connected = false
	log.Printf("Disconnected from %s", s.path)
	return err
}

// Write sends p to the port in a single write call.
func (s *Serial) Write(p []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		return ErrNotConnected
	}

	n, err := s.port.Write(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: %v", ErrWriteFailed, io.ErrShortWrite)
	}
	return nil
}

// IsConnected reports whether the port is open.
func (s *Serial) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
