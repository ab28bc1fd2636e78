package capture

import (
	"errors"
	"testing"

	"gocv.io/x/gocv"
)

func TestMockCamera_Playback(t *testing.T) {
	// Create test frames
	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()
	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame1, &frame2}, false)

	if err := cam.Open(); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer cam.Close()

	// Read both frames
	f1, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	f1.Close()

	f2, err := cam.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame() error = %v", err)
	}
	f2.Close()

	// Third read should fail (no loop)
	_, err = cam.ReadFrame()
	if !errors.Is(err, ErrNoFrames) {
		t.Errorf("ReadFrame() after playback = %v, want ErrNoFrames", err)
	}
	if got := cam.Reads(); got != 2 {
		t.Errorf("Reads() = %d, want 2", got)
	}
}

func TestMockCamera_NotOpen(t *testing.T) {
	cam := NewMockCamera(nil, true)

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("ReadFrame() before Open = %v, want ErrCameraNotOpen", err)
	}

	cam.Open()
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrNoFrames) {
		t.Errorf("ReadFrame() with no frames = %v, want ErrNoFrames", err)
	}
}

func TestMockCamera_SetFPS(t *testing.T) {
	cam := NewMockCamera(nil, false)
	if got := cam.FPS(); got != DefaultFPS {
		t.Errorf("FPS() = %d, want %d", got, DefaultFPS)
	}
	cam.SetFPS(15)
	cam.SetFPS(0)
	if got := cam.FPS(); got != 15 {
		t.Errorf("FPS() = %d, want 15", got)
	}
}

func TestMockCamera_Loop(t *testing.T) {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	cam := NewMockCamera([]*gocv.Mat{&frame}, true)
	cam.Open()
	defer cam.Close()

	// Should loop indefinitely
	for i := 0; i < 5; i++ {
		f, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() iteration %d error = %v", i, err)
		}
		f.Close()
	}
}
