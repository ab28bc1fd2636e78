package capture

import (
	"sync"

	"gocv.io/x/gocv"
)

// FrameStore keeps the most recent frame as JPEG for streaming.
type FrameStore struct {
	mu   sync.RWMutex
	jpeg []byte
	seq  uint64
}

// NewFrameStore creates an empty FrameStore.
func NewFrameStore() *FrameStore {
	return &FrameStore{}
}

// Update encodes frame as JPEG and replaces the stored frame.
func (s *FrameStore) Update(frame *gocv.Mat) error {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return err
	}
	defer buf.Close()

	data := append([]byte(nil), buf.GetBytes()...)
	s.Set(data)
	return nil
}

// Set stores already-encoded JPEG bytes.
func (s *FrameStore) Set(jpeg []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jpeg = jpeg
	s.seq++
}

// Latest returns the stored JPEG and its sequence number. The sequence is 0
// until the first frame arrives.
func (s *FrameStore) Latest() ([]byte, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jpeg, s.seq
}
