package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/handservo/internal/controller"
	"github.com/ayusman/handservo/internal/detector"
	"github.com/ayusman/handservo/internal/gesture"
	"github.com/ayusman/handservo/internal/servo"
	"github.com/ayusman/handservo/internal/transport"
)

func newTestProcessor(t *testing.T, tr *transport.Mock) *Processor {
	t.Helper()
	return NewProcessor(controller.NewSession(tr, controller.Config{Threshold: controller.DefaultThreshold}))
}

func feed(p *Processor, n int, hand detector.HandLandmarks) Snapshot {
	var snap Snapshot
	for i := 0; i < n; i++ {
		snap = p.Process([]detector.HandLandmarks{hand})
	}
	return snap
}

func TestProcessor_NoSendUntilGestureStabilizes(t *testing.T) {
	tr := transport.NewConnectedMock()
	p := newTestProcessor(t, tr)

	snap := feed(p, gesture.MinVotes-1, detector.FistLandmarks(0.5))
	if snap.Gesture != gesture.None {
		t.Fatalf("gesture = %s before enough votes, want NONE", snap.Gesture)
	}
	if snap.RawGesture != gesture.Fist {
		t.Errorf("raw gesture = %s, want FIST", snap.RawGesture)
	}
	if lines := tr.Lines(); len(lines) != 0 {
		t.Fatalf("sent %v while gesture was NONE", lines)
	}

	snap = feed(p, 1, detector.FistLandmarks(0.5))
	if snap.Gesture != gesture.Fist {
		t.Fatalf("gesture = %s, want FIST", snap.Gesture)
	}
	if snap.Servo != servo.Base || snap.Joint != "BASE" {
		t.Errorf("servo = %d %s, want 6 BASE", snap.Servo, snap.Joint)
	}
	if snap.Angle != 90 {
		t.Errorf("angle = %d, want 90", snap.Angle)
	}

	lines := tr.Lines()
	if len(lines) != 1 || lines[0] != "690\n" {
		t.Errorf("sent %q, want [\"690\\n\"]", lines)
	}
	if snap.LastCommand != "690" {
		t.Errorf("last command = %q, want 690", snap.LastCommand)
	}
}

func TestProcessor_ChangeThreshold(t *testing.T) {
	tr := transport.NewConnectedMock()
	p := newTestProcessor(t, tr)

	feed(p, gesture.MinVotes, detector.FistLandmarks(0.5))
	tr.Reset()

	// A small drift stays within the threshold.
	feed(p, 1, detector.FistLandmarks(0.51))
	if lines := tr.Lines(); len(lines) != 0 {
		t.Fatalf("small drift sent %v", lines)
	}

	// A large move is eventually sent; the recorded angle tracks the target.
	feed(p, 12, detector.FistLandmarks(0.9))
	if len(tr.Lines()) == 0 {
		t.Fatal("large move was never sent")
	}
	last, ok := p.Session().LastSent(servo.Base)
	if !ok {
		t.Fatal("no angle recorded for base")
	}
	if last < 167 || last > 170 {
		t.Errorf("recorded base angle = %d, want within threshold of 170", last)
	}
	for _, line := range tr.Lines() {
		if !strings.HasPrefix(line, "6") {
			t.Errorf("unexpected command %q for servo other than base", line)
		}
	}
}

func TestProcessor_ServoSwitchClearsMotionWindows(t *testing.T) {
	tr := transport.NewConnectedMock()
	p := newTestProcessor(t, tr)

	// POINT maps to the elbow, which is already active.
	snap := feed(p, gesture.MinVotes, detector.PointLandmarks(0.3))
	if snap.Servo != servo.Elbow {
		t.Fatalf("servo = %s, want elbow", snap.Servo)
	}
	if got := len(p.Smoother().Angles()); got != gesture.AngleWindowSize {
		t.Fatalf("angle window = %d entries, want %d", got, gesture.AngleWindowSize)
	}

	switched := false
	for i := 0; i < gesture.VoteWindowSize; i++ {
		snap = p.Process([]detector.HandLandmarks{detector.OpenPalmLandmarks(0.7)})
		if snap.Servo == servo.Shoulder {
			switched = true
			break
		}
	}
	if !switched {
		t.Fatal("never switched to the shoulder")
	}

	// The switching observation is the only entry left in each window.
	if got := p.Smoother().Angles(); len(got) != 1 || got[0] != 130 {
		t.Errorf("angles after switch = %v, want [130]", got)
	}
	if got := p.Smoother().Positions(); len(got) != 1 {
		t.Errorf("positions after switch = %v, want one entry", got)
	}
	if snap.Angle != 130 {
		t.Errorf("angle = %d, want 130", snap.Angle)
	}

	lines := tr.Lines()
	if lines[len(lines)-1] != "2130\n" {
		t.Errorf("last command = %q, want 2130", lines[len(lines)-1])
	}
}

func TestProcessor_MissingHand(t *testing.T) {
	tr := transport.NewConnectedMock()
	p := newTestProcessor(t, tr)

	feed(p, gesture.MinVotes, detector.PeaceLandmarks(0.5))
	votes := len(p.Smoother().Votes())

	snap := p.Process(nil)
	if snap.Gesture != gesture.None {
		t.Errorf("gesture = %s, want NONE", snap.Gesture)
	}
	if snap.HandPresent {
		t.Error("hand should not be present")
	}
	if snap.Servo != servo.FlexionExtension {
		t.Errorf("servo = %s, want the last selected servo to be kept", snap.Servo)
	}
	if got := len(p.Smoother().Votes()); got != votes {
		t.Errorf("votes = %d, want %d kept", got, votes)
	}

	// One matching frame re-stabilizes immediately from the kept votes.
	tr.Reset()
	snap = feed(p, 1, detector.PeaceLandmarks(0.5))
	if snap.Gesture != gesture.Peace {
		t.Errorf("gesture = %s, want PEACE", snap.Gesture)
	}
}

func TestProcessor_FourFingersIsNone(t *testing.T) {
	tr := transport.NewConnectedMock()
	p := newTestProcessor(t, tr)

	snap := feed(p, gesture.VoteWindowSize, detector.FourLandmarks(0.5))
	if snap.RawGesture != gesture.None || snap.Gesture != gesture.None {
		t.Errorf("gesture = %s (raw %s), want NONE", snap.Gesture, snap.RawGesture)
	}
	if lines := tr.Lines(); len(lines) != 0 {
		t.Errorf("sent %v for a NONE gesture", lines)
	}
}

func TestProcessor_PinchSelectsGripper(t *testing.T) {
	p := newTestProcessor(t, transport.NewConnectedMock())

	snap := feed(p, gesture.MinVotes, detector.PinchLandmarks(0.5))
	if snap.Gesture != gesture.Pinch || snap.Servo != servo.Gripper {
		t.Errorf("got %s on %s, want PINCH on gripper", snap.Gesture, snap.Servo)
	}
}

func TestProcessor_Disconnected(t *testing.T) {
	tr := transport.NewMock()
	p := newTestProcessor(t, tr)

	snap := feed(p, gesture.MinVotes, detector.FistLandmarks(0.5))
	if snap.Connected {
		t.Error("snapshot reports connected")
	}
	if snap.LastError != "" {
		t.Errorf("disconnected run recorded error %q", snap.LastError)
	}
	if snap.Gesture != gesture.Fist || snap.Angle != 90 {
		t.Errorf("state not tracked while disconnected: %+v", snap)
	}
}

func TestProcessor_NilSession(t *testing.T) {
	p := NewProcessor(nil)
	snap := feed(p, gesture.MinVotes, detector.OpenPalmLandmarks(0.5))
	if snap.Connected || snap.Servo != servo.Shoulder {
		t.Errorf("unexpected snapshot %+v", snap)
	}
	if err := p.Home(context.Background()); !errors.Is(err, transport.ErrNotConnected) {
		t.Errorf("Home() = %v, want ErrNotConnected", err)
	}
}

func TestProcessor_WriteErrorIsRecorded(t *testing.T) {
	tr := transport.NewConnectedMock()
	tr.SetWriteError(errors.New("board reset"))
	p := newTestProcessor(t, tr)

	snap := feed(p, gesture.MinVotes, detector.FistLandmarks(0.5))
	if !strings.Contains(snap.LastError, "failed to write") {
		t.Errorf("last error = %q, want write failure", snap.LastError)
	}
	if _, ok := p.Session().LastSent(servo.Base); ok {
		t.Error("failed send must not be recorded")
	}

	// The next frame retries because nothing was recorded.
	tr.SetWriteError(nil)
	feed(p, 1, detector.FistLandmarks(0.5))
	if lines := tr.Lines(); len(lines) != 1 || lines[0] != "690\n" {
		t.Errorf("retry sent %q, want [690]", lines)
	}
}

func TestProcessor_Reject(t *testing.T) {
	p := newTestProcessor(t, transport.NewConnectedMock())
	feed(p, gesture.MinVotes, detector.FistLandmarks(0.5))
	before := p.Smoother().Votes()

	err := fmt.Errorf("hand 0: %w", detector.ErrInvalidInput)
	snap := p.Reject(err)
	if snap.LastError != err.Error() {
		t.Errorf("last error = %q, want %q", snap.LastError, err.Error())
	}
	if snap.Gesture != gesture.Fist {
		t.Errorf("gesture = %s, want FIST kept", snap.Gesture)
	}
	if got := p.Smoother().Votes(); len(got) != len(before) {
		t.Errorf("votes changed on rejection: %v -> %v", before, got)
	}
}

func TestProcessor_Home(t *testing.T) {
	tr := transport.NewConnectedMock()
	p := newTestProcessor(t, tr)

	feed(p, gesture.MinVotes, detector.FistLandmarks(0.8))
	tr.Reset()

	if err := p.Home(context.Background()); err != nil {
		t.Fatalf("Home() error = %v", err)
	}

	want := []string{"190\n", "290\n", "390\n", "490\n", "590\n", "690\n"}
	got := tr.Lines()
	if len(got) != len(want) {
		t.Fatalf("Home sent %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d = %q, want %q", i, got[i], want[i])
		}
	}

	if n := len(p.Smoother().Positions()) + len(p.Smoother().Angles()); n != 0 {
		t.Errorf("motion windows hold %d entries after homing, want 0", n)
	}
	if snap := p.Snapshot(); snap.LastCommand != "690" {
		t.Errorf("last command = %q, want 690", snap.LastCommand)
	}
}

func TestFPSMeter(t *testing.T) {
	m := NewFPSMeter(FPSWindowSize)
	start := time.Unix(0, 0)

	if got := m.Tick(start); got != 0 {
		t.Errorf("first tick FPS = %v, want 0", got)
	}

	now := start
	for i := 0; i < 10; i++ {
		now = now.Add(100 * time.Millisecond)
		m.Tick(now)
	}
	if got := m.FPS(); got < 9.99 || got > 10.01 {
		t.Errorf("FPS = %v, want 10", got)
	}

	// Older intervals fall out of the window.
	for i := 0; i < FPSWindowSize; i++ {
		now = now.Add(50 * time.Millisecond)
		m.Tick(now)
	}
	if got := m.FPS(); got < 19.99 || got > 20.01 {
		t.Errorf("FPS = %v, want 20", got)
	}

	m.Reset()
	if got := m.FPS(); got != 0 {
		t.Errorf("FPS after reset = %v, want 0", got)
	}
}
