package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/ayusman/handservo/internal/controller"
	"github.com/ayusman/handservo/internal/detector"
	"github.com/ayusman/handservo/internal/gesture"
	"github.com/ayusman/handservo/internal/servo"
	"github.com/ayusman/handservo/internal/transport"
)

// Snapshot is the observable state after one observation.
type Snapshot struct {
	Gesture     gesture.Label `json:"gesture"`
	RawGesture  gesture.Label `json:"raw_gesture"`
	Servo       servo.Index   `json:"servo"`
	Joint       string        `json:"joint"`
	FingerCount int           `json:"finger_count"`
	Pinch       float64       `json:"pinch"`
	Position    float64       `json:"position"`
	Angle       servo.Angle   `json:"angle"`
	HandPresent bool          `json:"hand_present"`
	Connected   bool          `json:"connected"`
	FPS         float64       `json:"fps"`
	LastCommand string        `json:"last_command,omitempty"`
	LastError   string        `json:"last_error,omitempty"`
	Time        time.Time     `json:"time"`
}

// Processor turns detected hands into servo commands. Each call to Process
// runs to completion before the next; the mutex only guards against
// concurrent readers and manual homing.
type Processor struct {
	mu       sync.Mutex
	smoother *gesture.Smoother
	selector *gesture.Selector
	session  *controller.Session
	fps      *FPSMeter
	snapshot Snapshot
}

// NewProcessor creates a Processor that sends through session. A nil
// session behaves as permanently disconnected.
func NewProcessor(session *controller.Session) *Processor {
	if session == nil {
		session = controller.NewSession(nil, controller.DefaultConfig())
	}
	p := &Processor{
		smoother: gesture.NewSmoother(),
		selector: gesture.NewSelector(),
		session:  session,
		fps:      NewFPSMeter(FPSWindowSize),
	}
	p.snapshot = p.baseSnapshot()
	return p
}

// Session returns the session used for sending.
func (p *Processor) Session() *controller.Session {
	return p.session
}

// Process runs one observation. Only the first hand is used; with no hands
// the stabilized gesture becomes NONE while the votes and active servo are
// kept. Transport errors are recorded in the snapshot, never returned.
func (p *Processor) Process(hands []detector.HandLandmarks) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := p.baseSnapshot()

	if len(hands) == 0 {
		p.smoother.ResetGesture()
		snap.Gesture = gesture.None
		snap.HandPresent = false
		return p.publish(snap)
	}

	reading, err := detector.Interpret(&hands[0])
	if err != nil {
		return p.reject(snap, err)
	}
	snap.HandPresent = true
	snap.FingerCount = reading.FingerCount
	snap.Pinch = reading.PinchDistance

	raw := gesture.Classify(reading.FingerCount, reading.PinchDistance)
	stable := p.smoother.ObserveGesture(raw)
	snap.RawGesture = raw
	snap.Gesture = stable

	if idx, switched := p.selector.Update(stable); switched {
		p.smoother.ClearMotion()
		log.Printf("Switched to servo %d (%s)", uint8(idx), idx.Name())
	}
	snap.Servo = p.selector.Active()
	snap.Joint = snap.Servo.Name()

	pos := p.smoother.ObservePosition(reading.PalmX)
	angle := p.smoother.ObserveAngle(servo.AngleFromPosition(pos))
	snap.Position = pos
	snap.Angle = angle

	if stable != gesture.None && p.session.Connected() {
		if _, err := p.session.SendIfChanged(snap.Servo, angle); err != nil {
			log.Printf("Error sending to servo %d: %v", uint8(snap.Servo), err)
			snap.LastError = err.Error()
		}
	}
	if cmd, ok := p.session.LastCommand(); ok {
		snap.LastCommand = cmd.String()
	}
	snap.Connected = p.session.Connected()

	return p.publish(snap)
}

// Reject records a detection failure without touching the smoother.
func (p *Processor) Reject(err error) Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reject(p.snapshot, err)
}

func (p *Processor) reject(snap Snapshot, err error) Snapshot {
	if errors.Is(err, detector.ErrInvalidInput) {
		log.Printf("Rejected observation: %v", err)
	} else {
		log.Printf("Error processing observation: %v", err)
	}
	snap.LastError = err.Error()
	snap.Time = time.Now()
	p.snapshot = snap
	return snap
}

// Home sends every servo to 90 degrees and clears the motion windows so the
// next observations start from the homed state.
func (p *Processor) Home(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.session.HomeAll(ctx)
	p.smoother.ClearMotion()

	snap := p.snapshot
	snap.Connected = p.session.Connected()
	if cmd, ok := p.session.LastCommand(); ok {
		snap.LastCommand = cmd.String()
	}
	if err != nil {
		if !errors.Is(err, transport.ErrNotConnected) {
			log.Printf("Error homing servos: %v", err)
		}
		snap.LastError = err.Error()
	}
	p.snapshot = snap

	return err
}

// Tick records a processed frame at now for the FPS estimate.
func (p *Processor) Tick(now time.Time) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	fps := p.fps.Tick(now)
	p.snapshot.FPS = fps
	return fps
}

// Snapshot returns the most recent snapshot.
func (p *Processor) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	snap := p.snapshot
	snap.Connected = p.session.Connected()
	return snap
}

// Smoother exposes the smoother for inspection in tests and status views.
func (p *Processor) Smoother() *gesture.Smoother {
	return p.smoother
}

// baseSnapshot carries forward the fields that persist between observations.
func (p *Processor) baseSnapshot() Snapshot {
	active := p.selector.Active()
	snap := Snapshot{
		Gesture:   p.smoother.Gesture(),
		Servo:     active,
		Joint:     active.Name(),
		Position:  p.snapshot.Position,
		Angle:     p.snapshot.Angle,
		Connected: p.session.Connected(),
		FPS:       p.fps.FPS(),
		Time:      time.Now(),
	}
	if cmd, ok := p.session.LastCommand(); ok {
		snap.LastCommand = cmd.String()
	}
	return snap
}

func (p *Processor) publish(snap Snapshot) Snapshot {
	p.snapshot = snap
	return snap
}
