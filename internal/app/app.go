// Package app runs the capture, detection and servo control pipeline.
package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ayusman/handservo/internal/capture"
	"github.com/ayusman/handservo/internal/controller"
	"github.com/ayusman/handservo/internal/detector"
	"github.com/ayusman/handservo/internal/servo"
	"github.com/ayusman/handservo/internal/store"
)

// Pipeline timing constants.
const (
	// IdleFPS is the frame rate when the scene is still and no hand is tracked.
	IdleFPS = 5
	// ActiveFPS is the frame rate during active detection.
	ActiveFPS = 15
	// IdleTimeout is how long without motion or a hand before switching back to idle mode.
	IdleTimeout = 2 * time.Second
)

// ErrBusy is returned when a manual command arrives while a sequence is playing.
var ErrBusy = errors.New("sequence playback in progress")

// Config holds configuration options for the application.
type Config struct {
	Store        *store.Store
	Session      *controller.Session
	CameraID     int
	CameraWidth  int
	CameraHeight int
	Mirror       bool
	MotionThresh float64
	Detector     detector.Config
}

// App owns the camera loop and routes observations to the Processor.
type App struct {
	config    Config
	camera    capture.Camera
	activity  *capture.ActivityMonitor
	detector  detector.Detector
	processor *Processor
	frames    *capture.FrameStore
	enabled   bool
	playing   atomic.Bool
	mu        sync.RWMutex
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// New creates a new App instance with the given configuration.
func New(config Config) *App {
	motionThreshold := config.MotionThresh
	if motionThreshold <= 0 {
		motionThreshold = 1.0 // Default threshold: 1% pixel change
	}
	if config.Detector.MaxHands <= 0 {
		config.Detector = detector.DefaultConfig()
	}

	camera := capture.NewCamera(capture.CameraConfig{
		DeviceID: config.CameraID,
		Width:    config.CameraWidth,
		Height:   config.CameraHeight,
		Mirror:   config.Mirror,
	})

	a := &App{
		config:    config,
		camera:    camera,
		activity:  capture.NewActivityMonitor(motionThreshold, IdleTimeout),
		processor: NewProcessor(config.Session),
		frames:    capture.NewFrameStore(),
		enabled:   true,
	}

	// Try MediaPipe first, fall back to mock detector
	if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe hand detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	return a
}

// SetEnabled enables or disables hand control.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.enabled != enabled {
		log.Printf("Hand control enabled: %v", enabled)
	}
	a.enabled = enabled
}

// IsEnabled returns whether hand control is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// SetDetector sets the hand detector implementation to use.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
}

// SetCamera replaces the camera. It must be called before Start.
func (a *App) SetCamera(c capture.Camera) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.camera = c
}

// Start opens the camera and begins the detection pipeline.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Don't start if already running
	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return err
	}

	a.camera.SetFPS(IdleFPS)

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Println("Detection pipeline started")
	return nil
}

// Stop halts the detection pipeline and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}

	a.activity.Close()

	if d := a.Detector(); d != nil {
		if err := d.Close(); err != nil {
			log.Printf("Error closing detector: %v", err)
		}
	}

	log.Println("Detection pipeline stopped")
}

// Running reports whether the pipeline goroutine is active.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stopCh != nil
}

// Camera returns the camera instance.
func (a *App) Camera() capture.Camera {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.camera
}

// Detector returns the hand detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// Processor returns the observation processor.
func (a *App) Processor() *Processor {
	return a.processor
}

// Session returns the servo session.
func (a *App) Session() *controller.Session {
	return a.processor.Session()
}

// Frames returns the store holding the latest annotated frame.
func (a *App) Frames() *capture.FrameStore {
	return a.frames
}

// Snapshot returns the latest pipeline snapshot.
func (a *App) Snapshot() Snapshot {
	return a.processor.Snapshot()
}

// LastSent returns the angle last sent to each servo that has one.
func (a *App) LastSent() map[servo.Index]servo.Angle {
	return a.Session().Recorded()
}

// Home sends every servo to 90 degrees.
func (a *App) Home(ctx context.Context) error {
	if a.playing.Load() {
		return ErrBusy
	}
	return a.processor.Home(ctx)
}

// SendServo sends one servo angle, clamped to [0,180], bypassing the change threshold.
func (a *App) SendServo(idx servo.Index, angle servo.Angle) error {
	if a.playing.Load() {
		return ErrBusy
	}
	return a.Session().Send(idx, angle.Clamp())
}

// SendPose sends all six angles of a pose.
func (a *App) SendPose(ctx context.Context, pose servo.Pose) error {
	if a.playing.Load() {
		return ErrBusy
	}
	return a.Session().SendPose(ctx, pose)
}

// PlaySequence plays poses with delay between them. Hand control is
// suspended for the duration of playback.
func (a *App) PlaySequence(ctx context.Context, poses []servo.Pose, delay time.Duration) error {
	if !a.playing.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer a.playing.Store(false)

	if delay < 0 {
		delay = controller.DefaultPoseDelay
	}
	return a.Session().PlaySequence(ctx, poses, delay)
}

// Playing reports whether a sequence is currently playing.
func (a *App) Playing() bool {
	return a.playing.Load()
}
