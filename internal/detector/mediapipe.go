package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MediaPipe service settings.
const (
	// ScriptName is the Python landmark service looked up next to the binary.
	ScriptName = "mediapipe_service.py"
	// IdleShutdown stops the service after this long without a frame.
	IdleShutdown = 30 * time.Second
	// JPEGQuality is the quality used for frames sent to the service.
	JPEGQuality = 80
)

// ErrServiceUnavailable is returned when the landmark service cannot be
// started or stops answering. The next Detect restarts it.
var ErrServiceUnavailable = errors.New("mediapipe service unavailable")

// MediaPipeDetector implements Detector on top of a Python MediaPipe
// process. Frames go out on stdin as a 4-byte big-endian length followed by
// JPEG bytes; one JSON line comes back per frame.
type MediaPipeDetector struct {
	config    Config
	script    string
	python    string
	proc      *serviceProcess
	mu        sync.Mutex
	idleTimer *time.Timer
}

type serviceProcess struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
}

// NewMediaPipeDetector locates the service script and interpreter. The
// process itself is started on the first Detect.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := config.ScriptPath
	if script == "" {
		script = findFile(searchPaths(filepath.Join("scripts", ScriptName)))
	}
	if script == "" {
		return nil, fmt.Errorf("%w: %s not found", ErrServiceUnavailable, ScriptName)
	}

	python := config.PythonPath
	if python == "" {
		python = findFile(searchPaths(filepath.Join("venv", "bin", "python")))
	}
	if python == "" {
		python = "python3"
	}

	return &MediaPipeDetector{
		config: config,
		script: script,
		python: python,
	}, nil
}

// Detect sends one frame to the service and returns the hands it reports.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.start(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{gocv.IMWriteJpegQuality, JPEGQuality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	if err := writeFrame(d.proc.stdin, buf.GetBytes()); err != nil {
		d.stop()
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	hands, err := readHands(d.proc.stdout)
	if err != nil && !errors.Is(err, ErrInvalidInput) {
		d.stop()
		return nil, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	d.resetIdleTimer()
	return hands, err
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop()
}

func (d *MediaPipeDetector) start() error {
	if d.proc != nil {
		return nil
	}

	cmd := exec.Command(d.python, append([]string{d.script}, d.config.args()...)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	log.Printf("MediaPipe service started (%s)", d.python)
	d.proc = &serviceProcess{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout)}
	return nil
}

func (d *MediaPipeDetector) stop() error {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}
	if d.proc == nil {
		return nil
	}

	proc := d.proc
	d.proc = nil
	proc.stdin.Close()
	return proc.cmd.Wait()
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(IdleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.stop(); err != nil {
			log.Printf("MediaPipe service exited: %v", err)
		}
	})
}

// writeFrame sends one length-prefixed JPEG.
func writeFrame(w io.Writer, jpeg []byte) error {
	msg := make([]byte, 4+len(jpeg))
	binary.BigEndian.PutUint32(msg, uint32(len(jpeg)))
	copy(msg[4:], jpeg)

	_, err := w.Write(msg)
	return err
}

// serviceReply is one line from the service.
type serviceReply struct {
	Hands []serviceHand `json:"hands"`
	Error string        `json:"error,omitempty"`
}

type serviceHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

// readHands reads one reply line. A hand with the wrong number of points
// fails the whole frame with ErrInvalidInput.
func readHands(r *bufio.Reader) ([]HandLandmarks, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var reply serviceReply
	if err := json.Unmarshal(line, &reply); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("service error: %s", reply.Error)
	}

	hands := make([]HandLandmarks, 0, len(reply.Hands))
	for i, h := range reply.Hands {
		lm, err := h.toHandLandmarks()
		if err != nil {
			return nil, fmt.Errorf("hand %d: %w", i, err)
		}
		hands = append(hands, lm)
	}
	return hands, nil
}

func (h serviceHand) toHandLandmarks() (HandLandmarks, error) {
	lm, err := FromPoints(h.Points)
	if err != nil {
		return lm, err
	}
	lm.Handedness = h.Handedness
	lm.Score = h.Score
	return lm, nil
}

// searchPaths lists where a relative resource may live: the working
// directory and its parents, the binary's directory and ~/.handservo.
func searchPaths(rel string) []string {
	paths := []string{rel, filepath.Join("..", rel), filepath.Join("..", "..", rel)}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), rel))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".handservo", rel))
	}
	return paths
}

// findFile returns the absolute path of the first candidate that exists.
func findFile(candidates []string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			if abs, err := filepath.Abs(path); err == nil {
				return abs
			}
			return path
		}
	}
	return ""
}
