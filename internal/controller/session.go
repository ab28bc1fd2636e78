// Package controller sends servo commands to the arm and remembers what each servo was last told.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ayusman/handservo/internal/protocol"
	"github.com/ayusman/handservo/internal/servo"
	"github.com/ayusman/handservo/internal/transport"
)

// Default timing and hysteresis.
const (
	// DefaultThreshold is the change in degrees a new angle must exceed
	// before it is sent to a servo that already has a recorded angle.
	DefaultThreshold servo.Angle = 3
	// DefaultHomePacing separates homing commands so the board's input
	// buffer is not overrun.
	DefaultHomePacing = 50 * time.Millisecond
	// DefaultPoseGap separates the six commands of a pose.
	DefaultPoseGap = 20 * time.Millisecond
	// DefaultPoseDelay is the pause between poses of a sequence.
	DefaultPoseDelay = 500 * time.Millisecond
)

// ErrEmptySequence is returned when playing a sequence with no poses.
var ErrEmptySequence = errors.New("sequence has no poses")

// Config holds session timing options.
type Config struct {
	Threshold  servo.Angle
	HomePacing time.Duration
	PoseGap    time.Duration
}

// DefaultConfig returns the standard hysteresis and pacing.
func DefaultConfig() Config {
	return Config{
		Threshold:  DefaultThreshold,
		HomePacing: DefaultHomePacing,
		PoseGap:    DefaultPoseGap,
	}
}

// Session owns the transport and the per-servo last-sent table.
// An entry is unknown until a send to that servo succeeds.
type Session struct {
	transport transport.Transport
	config    Config

	mu       sync.Mutex
	lastSent [servo.Count]servo.Angle
	known    [servo.Count]bool
	last     *protocol.Command
}

// NewSession creates a Session writing to t. Zero config fields are left as
// given so tests can disable pacing; use DefaultConfig for real hardware.
func NewSession(t transport.Transport, config Config) *Session {
	return &Session{
		transport: t,
		config:    config,
	}
}

// Transport returns the underlying transport.
func (s *Session) Transport() transport.Transport {
	return s.transport
}

// Connected reports whether the transport is connected.
func (s *Session) Connected() bool {
	return s.transport != nil && s.transport.IsConnected()
}

// Connect opens the transport and homes every servo.
func (s *Session) Connect(ctx context.Context) error {
	if s.transport == nil {
		return transport.ErrNotConnected
	}
	if err := s.transport.Connect(ctx); err != nil {
		return err
	}
	return s.HomeAll(ctx)
}

// Disconnect closes the transport. The last-sent table is kept.
func (s *Session) Disconnect() error {
	if s.transport == nil {
		return nil
	}
	return s.transport.Disconnect()
}

// Send writes one command unconditionally and records the angle on success.
// A disconnected transport yields transport.ErrNotConnected and a failed write
// an error wrapping transport.ErrWriteFailed; neither touches the table.
func (s *Session) Send(idx servo.Index, angle servo.Angle) error {
	cmd := protocol.Command{Servo: idx, Angle: angle}
	b, err := protocol.Encode(cmd)
	if err != nil {
		return err
	}

	if !s.Connected() {
		return transport.ErrNotConnected
	}

	if err := s.transport.Write(b); err != nil {
		return fmt.Errorf("send %s: %w", cmd, err)
	}

	s.mu.Lock()
	s.lastSent[idx.Slot()] = angle
	s.known[idx.Slot()] = true
	s.last = &cmd
	s.mu.Unlock()

	return nil
}

// SendIfChanged sends angle unless the servo already has a recorded angle
// within the change threshold. It reports whether a command was written.
func (s *Session) SendIfChanged(idx servo.Index, angle servo.Angle) (bool, error) {
	if !s.Connected() {
		return false, transport.ErrNotConnected
	}

	if prev, ok := s.LastSent(idx); ok && absDiff(angle, prev) <= s.config.Threshold {
		return false, nil
	}

	if err := s.Send(idx, angle); err != nil {
		return false, err
	}
	return true, nil
}

// HomeAll sends every servo to 90 degrees in ascending order, bypassing the
// change threshold and pausing between commands. A disconnected transport
// short-circuits before anything is sent. Individual write failures are
// collected and the remaining servos are still homed.
func (s *Session) HomeAll(ctx context.Context) error {
	if !s.Connected() {
		return transport.ErrNotConnected
	}

	log.Println("Homing all servos")

	var errs []error
	for i, idx := range servo.All() {
		if i > 0 {
			if err := pause(ctx, s.config.HomePacing); err != nil {
				return err
			}
		}
		if err := s.Send(idx, servo.HomeAngle); err != nil {
			if errors.Is(err, transport.ErrNotConnected) {
				return err
			}
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// SendPose sends all six angles of a pose in servo order.
func (s *Session) SendPose(ctx context.Context, pose servo.Pose) error {
	if !s.Connected() {
		return transport.ErrNotConnected
	}

	var errs []error
	for i, idx := range servo.All() {
		if i > 0 {
			if err := pause(ctx, s.config.PoseGap); err != nil {
				return err
			}
		}
		if err := s.Send(idx, pose[idx.Slot()].Clamp()); err != nil {
			if errors.Is(err, transport.ErrNotConnected) {
				return err
			}
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// PlaySequence sends each pose in turn and waits delay after each one.
// Playback stops at the first pose that fails or when ctx is cancelled.
func (s *Session) PlaySequence(ctx context.Context, poses []servo.Pose, delay time.Duration) error {
	if len(poses) == 0 {
		return ErrEmptySequence
	}
	if !s.Connected() {
		return transport.ErrNotConnected
	}

	log.Printf("Running sequence (%d poses) with %s delay", len(poses), delay)
	for i, pose := range poses {
		if err := s.SendPose(ctx, pose); err != nil {
			return fmt.Errorf("pose %d: %w", i+1, err)
		}
		if err := pause(ctx, delay); err != nil {
			return err
		}
	}
	log.Println("Sequence finished")

	return nil
}

// LastSent returns the angle last sent to a servo and whether one is recorded.
func (s *Session) LastSent(idx servo.Index) (servo.Angle, bool) {
	if !idx.Valid() {
		return 0, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSent[idx.Slot()], s.known[idx.Slot()]
}

// Recorded returns the recorded angles keyed by servo. Unknown servos are absent.
func (s *Session) Recorded() map[servo.Index]servo.Angle {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[servo.Index]servo.Angle, servo.Count)
	for _, idx := range servo.All() {
		if s.known[idx.Slot()] {
			out[idx] = s.lastSent[idx.Slot()]
		}
	}
	return out
}

// LastCommand returns the most recent successfully written command.
func (s *Session) LastCommand() (protocol.Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return protocol.Command{}, false
	}
	return *s.last, true
}

func absDiff(a, b servo.Angle) servo.Angle {
	if a > b {
		return a - b
	}
	return b - a
}

// pause waits for d or until ctx is done.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
