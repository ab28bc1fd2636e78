// Package transport provides the link used to deliver servo commands to the microcontroller.
package transport

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrNotConnected is returned when writing to a transport that is not connected.
	ErrNotConnected = errors.New("transport not connected")
	// ErrWriteFailed wraps any failure of the underlying write.
	ErrWriteFailed = errors.New("failed to write to serial port")
)

// Transport is a connectable byte sink. One Write call carries one command.
type Transport interface {
	// Connect opens the link. Connecting an open transport is a no-op.
	Connect(ctx context.Context) error
	// Disconnect closes the link. Disconnecting a closed transport is a no-op.
	Disconnect() error
	// Write sends p in full or returns an error wrapping ErrWriteFailed.
	Write(p []byte) error
	// IsConnected reports whether writes can currently be attempted.
	IsConnected() bool
}

// Port is the minimal interface needed from an open serial port.
type Port interface {
	io.ReadWriter
	io.Closer
}
