package detector

import (
	"bufio"
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const epsilon = 1e-9

func TestFromPoints(t *testing.T) {
	t.Run("accepts exactly 21 points", func(t *testing.T) {
		points := make([]Point3D, NumLandmarks)
		for i := range points {
			points[i] = Point3D{X: float64(i) / 100, Y: 0.5, Z: 0}
		}

		h, err := FromPoints(points)
		if err != nil {
			t.Fatalf("FromPoints() error = %v", err)
		}
		if h.Points[PinkyTip].X != 0.20 {
			t.Errorf("expected pinky tip X 0.20, got %f", h.Points[PinkyTip].X)
		}
	})

	t.Run("rejects wrong point counts", func(t *testing.T) {
		for _, n := range []int{0, 1, 20, 22} {
			_, err := FromPoints(make([]Point3D, n))
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("FromPoints(%d points) error = %v, want ErrInvalidInput", n, err)
			}
		}
	})
}

func TestInterpret(t *testing.T) {
	tests := []struct {
		name        string
		hand        HandLandmarks
		wantFingers int
	}{
		{"fist", FistLandmarks(0.5), 0},
		{"point", PointLandmarks(0.5), 1},
		{"peace", PeaceLandmarks(0.5), 2},
		{"three", ThreeLandmarks(0.5), 3},
		{"four", FourLandmarks(0.5), 4},
		{"pinch", PinchLandmarks(0.5), 4},
		{"open palm", OpenPalmLandmarks(0.5), 5},
		{"thumb only", HandAt(0.5, true, false, false, false, false), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Interpret(&tt.hand)
			if err != nil {
				t.Fatalf("Interpret() error = %v", err)
			}
			if r.FingerCount != tt.wantFingers {
				t.Errorf("FingerCount = %d, want %d", r.FingerCount, tt.wantFingers)
			}
		})
	}

	t.Run("palm position comes from the middle MCP", func(t *testing.T) {
		hand := OpenPalmLandmarks(0.3)
		r, _ := Interpret(&hand)
		if math.Abs(r.PalmX-0.3) > epsilon {
			t.Errorf("PalmX = %f, want 0.3", r.PalmX)
		}
	})

	t.Run("pinch distance is 3D euclidean", func(t *testing.T) {
		var hand HandLandmarks
		hand.Points[ThumbTip] = Point3D{X: 0.1, Y: 0.2, Z: 0.0}
		hand.Points[IndexTip] = Point3D{X: 0.4, Y: 0.6, Z: 0.0}

		r, _ := Interpret(&hand)
		if math.Abs(r.PinchDistance-0.5) > epsilon {
			t.Errorf("PinchDistance = %f, want 0.5", r.PinchDistance)
		}

		hand.Points[IndexTip].Z = 1.2
		r, _ = Interpret(&hand)
		if math.Abs(r.PinchDistance-1.3) > epsilon {
			t.Errorf("PinchDistance with depth = %f, want 1.3", r.PinchDistance)
		}
	})

	t.Run("pinch preset is close", func(t *testing.T) {
		hand := PinchLandmarks(0.5)
		r, _ := Interpret(&hand)
		if r.PinchDistance >= 0.05 {
			t.Errorf("PinchDistance = %f, want < 0.05", r.PinchDistance)
		}
	})

	t.Run("nil hand is invalid input", func(t *testing.T) {
		if _, err := Interpret(nil); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("Interpret(nil) error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("thumb rule is a left/right comparison", func(t *testing.T) {
		hand := FistLandmarks(0.5)
		hand.Points[ThumbTip].X = hand.Points[ThumbIP].X - 0.001
		if got := FingerCount(&hand); got != 1 {
			t.Errorf("FingerCount = %d, want 1", got)
		}
		hand.Points[ThumbTip].X = hand.Points[ThumbIP].X
		if got := FingerCount(&hand); got != 0 {
			t.Errorf("FingerCount with tip level with IP = %d, want 0", got)
		}
	})
}

func TestMockDetector(t *testing.T) {
	t.Run("returns empty hands by default", func(t *testing.T) {
		mock := NewMockDetector()

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if hands != nil {
			t.Errorf("expected nil hands, got %v", hands)
		}
	})

	t.Run("returns configured hands", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{OpenPalmLandmarks(0.5)})

		hands, err := mock.Detect(nil)

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(hands) != 1 {
			t.Errorf("expected 1 hand, got %d", len(hands))
		}
	})

	t.Run("plays queued frames before the fallback", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetHands([]HandLandmarks{OpenPalmLandmarks(0.5)})
		mock.Queue(nil, []HandLandmarks{FistLandmarks(0.2), FistLandmarks(0.8)})

		first, _ := mock.Detect(nil)
		second, _ := mock.Detect(nil)
		third, _ := mock.Detect(nil)

		if len(first) != 0 {
			t.Errorf("first frame: expected no hands, got %d", len(first))
		}
		if len(second) != 2 {
			t.Errorf("second frame: expected 2 hands, got %d", len(second))
		}
		if len(third) != 1 {
			t.Errorf("third frame: expected fallback hand, got %d", len(third))
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector()

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		hands, err := mock.Detect(nil)

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if hands != nil {
			t.Errorf("expected nil hands when error is set, got %v", hands)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
	})
}

func TestServiceHand_ToHandLandmarks(t *testing.T) {
	t.Run("converts a full hand", func(t *testing.T) {
		h := serviceHand{Handedness: "Left", Score: 0.8, Points: make([]Point3D, NumLandmarks)}
		h.Points[MiddleMCP] = Point3D{X: 0.42, Y: 0.5, Z: 0.01}

		lm, err := h.toHandLandmarks()
		if err != nil {
			t.Fatalf("toHandLandmarks() error = %v", err)
		}
		if lm.Handedness != "Left" || lm.Score != 0.8 {
			t.Errorf("metadata not preserved: %+v", lm)
		}
		if lm.Points[MiddleMCP].X != 0.42 {
			t.Errorf("expected middle MCP X 0.42, got %f", lm.Points[MiddleMCP].X)
		}
	})

	t.Run("rejects truncated hand", func(t *testing.T) {
		h := serviceHand{Points: make([]Point3D, 17)}
		if _, err := h.toHandLandmarks(); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestWriteFrame(t *testing.T) {
	var buf bytes.Buffer
	if err := writeFrame(&buf, []byte{0xFF, 0xD8, 0xFF}); err != nil {
		t.Fatalf("writeFrame() error = %v", err)
	}

	want := []byte{0, 0, 0, 3, 0xFF, 0xD8, 0xFF}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("writeFrame() wrote % x, want % x", buf.Bytes(), want)
	}
}

func TestReadHands(t *testing.T) {
	fullHand := `{"points":[` + strings.Repeat(`{"x":0.5,"y":0.5,"z":0},`, NumLandmarks-1) + `{"x":0.5,"y":0.5,"z":0}],"handedness":"Right","score":0.9}`

	tests := []struct {
		name      string
		input     string
		wantHands int
		wantErr   error
		anyErr    bool
	}{
		{name: "no hands", input: `{"hands":[]}` + "\n", wantHands: 0},
		{name: "one hand", input: `{"hands":[` + fullHand + `]}` + "\n", wantHands: 1},
		{name: "short hand", input: `{"hands":[{"points":[{"x":0,"y":0,"z":0}]}]}` + "\n", wantErr: ErrInvalidInput},
		{name: "service error", input: `{"hands":[],"error":"camera busy"}` + "\n", anyErr: true},
		{name: "bad json", input: "not json\n", anyErr: true},
		{name: "closed pipe", input: "", anyErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hands, err := readHands(bufio.NewReader(strings.NewReader(tt.input)))

			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("readHands() error = %v, want %v", err, tt.wantErr)
				}
			case tt.anyErr:
				if err == nil {
					t.Error("readHands() expected an error")
				}
				if errors.Is(err, ErrInvalidInput) {
					t.Errorf("transport failure reported as invalid input: %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("readHands() error = %v", err)
				}
				if len(hands) != tt.wantHands {
					t.Errorf("got %d hands, want %d", len(hands), tt.wantHands)
				}
			}
		})
	}
}

func TestNewMediaPipeDetector_Paths(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, ScriptName)
	if err := os.WriteFile(script, []byte("# stub"), 0644); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	d, err := NewMediaPipeDetector(Config{ScriptPath: script, PythonPath: "/usr/bin/python3"})
	if err != nil {
		t.Fatalf("NewMediaPipeDetector() error = %v", err)
	}
	if d.script != script || d.python != "/usr/bin/python3" {
		t.Errorf("paths = %q %q", d.script, d.python)
	}

	hands, err := d.Detect(nil)
	if err != nil || hands != nil {
		t.Errorf("Detect(nil) = %v, %v; want no hands and no error", hands, err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Close() before start error = %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.MaxHands != 1 {
		t.Errorf("MaxHands = %d, want 1", cfg.MaxHands)
	}

	args := cfg.args()
	if len(args) != 6 || args[0] != "--max-hands" || args[1] != "1" {
		t.Errorf("unexpected args %v", args)
	}
	if args[3] != "0.7" {
		t.Errorf("detection confidence arg = %s, want 0.7", args[3])
	}
}
