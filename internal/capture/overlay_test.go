package capture

import (
	"bytes"
	"strings"
	"testing"

	"gocv.io/x/gocv"
)

func TestMarkerX(t *testing.T) {
	tests := []struct {
		angle int
		want  int
	}{
		{0, 0},
		{45, 160},
		{90, 320},
		{135, 480},
		{180, 640},
	}

	for _, tt := range tests {
		if got := MarkerX(tt.angle, 640); got != tt.want {
			t.Errorf("MarkerX(%d, 640) = %d, want %d", tt.angle, got, tt.want)
		}
	}
}

func TestIndicatorX(t *testing.T) {
	tests := []struct {
		position float64
		want     int
	}{
		{-0.5, 0},
		{0, 0},
		{0.5, 320},
		{1.0, 639},
		{2.0, 639},
	}

	for _, tt := range tests {
		if got := IndicatorX(tt.position, 640); got != tt.want {
			t.Errorf("IndicatorX(%v, 640) = %d, want %d", tt.position, got, tt.want)
		}
	}
}

func TestOverlay_StatusLines(t *testing.T) {
	t.Run("no hand", func(t *testing.T) {
		lines := Overlay{FPS: 14.7}.StatusLines()
		if len(lines) != 2 {
			t.Fatalf("got %d lines, want 2: %v", len(lines), lines)
		}
		if !strings.Contains(lines[0], "DISCONNECTED") || !strings.Contains(lines[0], "FPS: 14") {
			t.Errorf("status line = %q", lines[0])
		}
		if lines[1] != "No hand detected" {
			t.Errorf("second line = %q", lines[1])
		}
	})

	t.Run("tracking", func(t *testing.T) {
		lines := Overlay{
			Gesture:     "PINCH",
			Servo:       5,
			Joint:       "GRIPPER",
			Angle:       120,
			HandPresent: true,
			Connected:   true,
			LastCommand: "5120",
		}.StatusLines()

		want := []string{
			"Status: CONNECTED  FPS: 0",
			"Gesture: PINCH",
			">>> Servo 5: GRIPPER  Target: 120 deg",
			"Last sent: 5120",
		}
		if len(lines) != len(want) {
			t.Fatalf("got %v, want %v", lines, want)
		}
		for i := range want {
			if lines[i] != want[i] {
				t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
			}
		}
	})
}

func TestDrawOverlay(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	DrawOverlay(&frame, Overlay{
		Gesture:     "OPEN",
		Servo:       2,
		Joint:       "SHOULDER",
		Angle:       90,
		Position:    0.5,
		PalmX:       0.5,
		PalmY:       0.6,
		HandPresent: true,
	})

	// The bar background is drawn in grey across the top rows.
	px := frame.GetVecbAt(BarHeight/2, 5)
	if px[0] != 50 || px[1] != 50 || px[2] != 50 {
		t.Errorf("bar pixel = %v, want grey", px)
	}

	// Drawing on an empty Mat is a no-op.
	empty := gocv.NewMat()
	defer empty.Close()
	DrawOverlay(&empty, Overlay{})
	DrawOverlay(nil, Overlay{})
}

func TestFrameStore(t *testing.T) {
	store := NewFrameStore()
	if data, seq := store.Latest(); data != nil || seq != 0 {
		t.Errorf("empty store Latest() = %v, %d", data, seq)
	}

	frame := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC3)
	defer frame.Close()

	if err := store.Update(&frame); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	data, seq := store.Latest()
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}
	// JPEG start-of-image marker.
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Errorf("stored frame is not a JPEG: % x", data[:4])
	}

	store.Set([]byte("x"))
	if _, seq := store.Latest(); seq != 2 {
		t.Errorf("seq after Set = %d, want 2", seq)
	}
}
