package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// MockPort implements Port for testing.
type MockPort struct {
	mu          sync.Mutex
	WrittenData []byte
	WriteError  error
	CloseError  error
	Closed      bool
	ShortWrite  bool
}

func (m *MockPort) Read(p []byte) (int, error) {
	return 0, io.EOF
}

func (m *MockPort) Write(p []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.WriteError != nil {
		return 0, m.WriteError
	}
	if m.ShortWrite && len(p) > 0 {
		m.WrittenData = append(m.WrittenData, p[:len(p)-1]...)
		return len(p) - 1, nil
	}
	m.WrittenData = append(m.WrittenData, p...)
	return len(p), nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return m.CloseError
}

// Mock is an in-memory Transport that records each write.
type Mock struct {
	mu         sync.Mutex
	connected  bool
	writes     [][]byte
	writeErr   error
	connectErr error
}

// NewMock creates a disconnected mock transport.
func NewMock() *Mock {
	return &Mock{}
}

// NewConnectedMock creates a mock transport that is already connected.
func NewConnectedMock() *Mock {
	return &Mock{connected: true}
}

// SetWriteError makes subsequent writes fail with err wrapped in ErrWriteFailed.
func (m *Mock) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// SetConnectError makes Connect fail with err.
func (m *Mock) SetConnectError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectErr = err
}

func (m *Mock) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.connectErr != nil {
		return m.connectErr
	}
	m.connected = true
	return nil
}

func (m *Mock) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *Mock) Write(p []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}
	if m.writeErr != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, m.writeErr)
	}
	m.writes = append(m.writes, append([]byte(nil), p...))
	return nil
}

func (m *Mock) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Writes returns a copy of every successful write, in order.
func (m *Mock) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// Lines returns every successful write as a string.
func (m *Mock) Lines() []string {
	writes := m.Writes()
	out := make([]string, len(writes))
	for i, w := range writes {
		out[i] = string(w)
	}
	return out
}

// Reset forgets recorded writes.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = nil
}
