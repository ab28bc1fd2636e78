// Package capture reads camera frames, tracks scene activity and draws the status overlay using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"gocv.io/x/gocv"
)

// Default camera settings
const (
	DefaultFPS    = 5
	DefaultWidth  = 640
	DefaultHeight = 480
	// MaxReadFailures is the number of consecutive failed reads after which
	// the device is reopened.
	MaxReadFailures = 10
)

var (
	// ErrCameraNotOpen is returned when trying to read from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrReadFailed is returned when the device yields no frame.
	ErrReadFailed = errors.New("failed to read frame from camera")
)

// Camera defines the interface for camera capture implementations.
type Camera interface {
	Open() error
	Close() error
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

// CameraConfig selects the capture device and frame geometry.
type CameraConfig struct {
	DeviceID int
	Width    int
	Height   int
	// Mirror flips frames horizontally so they match the user's view of
	// their own hand.
	Mirror bool
}

// videoSource is the part of gocv.VideoCapture the camera uses.
type videoSource interface {
	Read(m *gocv.Mat) bool
	Set(prop gocv.VideoCaptureProperties, param float64)
	Close() error
}

type sourceOpener func(deviceID int) (videoSource, error)

func openVideoCapture(deviceID int) (videoSource, error) {
	vc, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, err
	}
	return vc, nil
}

// cameraImpl manages video capture from a camera device using GoCV.
type cameraImpl struct {
	config   CameraConfig
	open     sourceOpener
	source   videoSource
	mu       sync.Mutex
	running  bool
	fps      int
	failures int
}

// NewCamera creates a new Camera. Unset dimensions default to 640x480 and
// the initial FPS is 5.
func NewCamera(config CameraConfig) Camera {
	if config.Width <= 0 || config.Height <= 0 {
		config.Width, config.Height = DefaultWidth, DefaultHeight
	}
	return &cameraImpl{
		config: config,
		open:   openVideoCapture,
		fps:    DefaultFPS,
	}
}

// Open opens the camera for capturing frames.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}
	return c.openLocked()
}

func (c *cameraImpl) openLocked() error {
	source, err := c.open(c.config.DeviceID)
	if err != nil {
		return fmt.Errorf("open camera %d: %w", c.config.DeviceID, err)
	}

	source.Set(gocv.VideoCaptureFrameWidth, float64(c.config.Width))
	source.Set(gocv.VideoCaptureFrameHeight, float64(c.config.Height))
	source.Set(gocv.VideoCaptureFPS, float64(c.fps))

	c.source = source
	c.running = true
	c.failures = 0
	return nil
}

// Close closes the camera and releases resources.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.running = false
	if c.source == nil {
		return nil
	}

	err := c.source.Close()
	c.source = nil
	return err
}

// ReadFrame reads a single frame from the camera.
// The caller is responsible for closing the returned Mat. After
// MaxReadFailures consecutive failures the device is reopened.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.source == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.source.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		c.failures++
		if c.failures >= MaxReadFailures {
			c.reopenLocked()
		}
		return nil, ErrReadFailed
	}
	c.failures = 0

	if c.config.Mirror {
		gocv.Flip(mat, &mat, 1)
	}

	return &mat, nil
}

func (c *cameraImpl) reopenLocked() {
	log.Printf("Camera %d stopped delivering frames, reopening", c.config.DeviceID)
	if err := c.source.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	c.source = nil
	c.running = false

	if err := c.openLocked(); err != nil {
		log.Printf("Error reopening camera: %v", err)
	}
}

// SetFPS sets the frames per second for capture.
// Values less than or equal to 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.fps = fps
	if c.source != nil {
		c.source.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

// FPS returns the current frames per second setting.
func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// IsOpen returns true if the camera is currently open and running.
func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
