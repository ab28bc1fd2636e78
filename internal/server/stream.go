package server

import (
	"fmt"
	"net/http"
	"time"
)

// streamInterval paces the MJPEG stream at about 15 FPS.
const streamInterval = 66 * time.Millisecond

// StreamHandler serves the annotated camera frames as MJPEG.
type StreamHandler struct {
	frames FrameSource
}

// NewStreamHandler creates a new StreamHandler reading from frames.
func NewStreamHandler(frames FrameSource) *StreamHandler {
	return &StreamHandler{frames: frames}
}

// ServeHTTP streams MJPEG frames to connected clients. A frame is only
// written when it differs from the last one sent.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamInterval)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		data, seq := h.frames.Latest()
		if seq != 0 && seq != lastSeq {
			lastSeq = seq

			fmt.Fprintf(w, "--frame\r\n")
			fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
			fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
			if _, err := w.Write(data); err != nil {
				return
			}
			fmt.Fprintf(w, "\r\n")

			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
