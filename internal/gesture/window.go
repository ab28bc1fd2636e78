package gesture

// Window is a fixed-capacity FIFO ring buffer. Pushing onto a full window
// evicts the oldest entry.
type Window[T any] struct {
	buf   []T
	start int
	size  int
}

// NewWindow creates an empty window holding at most capacity entries.
func NewWindow[T any](capacity int) *Window[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Window[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest entry when the window is full.
func (w *Window[T]) Push(v T) {
	if w.size < len(w.buf) {
		w.buf[(w.start+w.size)%len(w.buf)] = v
		w.size++
		return
	}
	w.buf[w.start] = v
	w.start = (w.start + 1) % len(w.buf)
}

// Len returns the number of entries held.
func (w *Window[T]) Len() int {
	return w.size
}

// Cap returns the window capacity.
func (w *Window[T]) Cap() int {
	return len(w.buf)
}

// Values returns the entries oldest first.
func (w *Window[T]) Values() []T {
	out := make([]T, w.size)
	for i := 0; i < w.size; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// Clear empties the window.
func (w *Window[T]) Clear() {
	var zero T
	for i := range w.buf {
		w.buf[i] = zero
	}
	w.start = 0
	w.size = 0
}
