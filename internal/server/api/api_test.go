package api

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/handservo/internal/app"
	"github.com/ayusman/handservo/internal/controller"
	"github.com/ayusman/handservo/internal/servo"
	"github.com/ayusman/handservo/internal/store"
	"github.com/ayusman/handservo/internal/transport"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "handservo-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// fakeController drives a real Session over a mock transport.
type fakeController struct {
	mu      sync.Mutex
	session *controller.Session
	enabled bool
	busy    bool
	played  [][]servo.Pose
	delays  []time.Duration
}

func newFakeController(tr *transport.Mock) *fakeController {
	return &fakeController{
		session: controller.NewSession(tr, controller.Config{Threshold: controller.DefaultThreshold}),
		enabled: true,
	}
}

func (f *fakeController) Snapshot() app.Snapshot {
	snap := app.Snapshot{Servo: servo.Elbow, Joint: servo.Elbow.Name(), Connected: f.session.Connected()}
	if cmd, ok := f.session.LastCommand(); ok {
		snap.LastCommand = cmd.String()
	}
	return snap
}

func (f *fakeController) LastSent() map[servo.Index]servo.Angle {
	return f.session.Recorded()
}

func (f *fakeController) IsEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

func (f *fakeController) SetEnabled(enabled bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = enabled
}

func (f *fakeController) Playing() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.busy
}

func (f *fakeController) Home(ctx context.Context) error {
	if f.Playing() {
		return app.ErrBusy
	}
	return f.session.HomeAll(ctx)
}

func (f *fakeController) SendServo(idx servo.Index, angle servo.Angle) error {
	if f.Playing() {
		return app.ErrBusy
	}
	return f.session.Send(idx, angle)
}

func (f *fakeController) SendPose(ctx context.Context, pose servo.Pose) error {
	if f.Playing() {
		return app.ErrBusy
	}
	return f.session.SendPose(ctx, pose)
}

func (f *fakeController) PlaySequence(ctx context.Context, poses []servo.Pose, delay time.Duration) error {
	f.mu.Lock()
	f.played = append(f.played, poses)
	f.delays = append(f.delays, delay)
	f.mu.Unlock()
	return f.session.PlaySequence(ctx, poses, 0)
}

var _ Controller = (*fakeController)(nil)
var _ Controller = (*app.App)(nil)
