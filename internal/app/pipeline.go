package app

import (
	"errors"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/handservo/internal/capture"
	"github.com/ayusman/handservo/internal/detector"
)

// runPipeline is the main loop that processes frames from the camera.
//
// Pipeline logic:
// 1. Start in idle mode (idleFPS=5)
// 2. On motion or a tracked hand, switch to active mode (activeFPS=15)
// 3. Run hand detection and process the first hand
// 4. Draw the overlay and publish the frame for streaming
// 5. After 2s with neither, switch back to idle mode
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(time.Second / time.Duration(IdleFPS))
	defer ticker.Stop()

	setMode := func(active bool) {
		fps := IdleFPS
		if active {
			fps = ActiveFPS
		}
		a.Camera().SetFPS(fps)
		ticker.Reset(time.Second / time.Duration(fps))
		if active {
			log.Println("Switched to active mode")
		} else {
			log.Println("Switched to idle mode")
		}
	}

	for {
		select {
		case <-stopCh:
			return
		case now := <-ticker.C:
			frame, err := a.Camera().ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			if changed, active := a.activity.Observe(frame, now); changed {
				setMode(active)
			}

			snap := a.processFrame(frame, now)
			frame.Close()

			if snap.HandPresent {
				if changed, active := a.activity.Hold(now); changed {
					setMode(active)
				}
			}
		}
	}
}

// processFrame runs detection on one frame, feeds the result to the
// processor and publishes the annotated frame. Detection runs in idle mode
// too, just less often, so a hand leaving the view is always observed.
func (a *App) processFrame(frame *gocv.Mat, now time.Time) Snapshot {
	snap := a.processor.Snapshot()

	if a.IsEnabled() && !a.playing.Load() {
		if d := a.Detector(); d != nil {
			hands, err := d.Detect(frame)
			switch {
			case err == nil:
				snap = a.processor.Process(hands)
			case errors.Is(err, detector.ErrInvalidInput):
				snap = a.processor.Reject(err)
			default:
				log.Printf("Error detecting hands: %v", err)
			}
			snap.FPS = a.processor.Tick(now)
			a.drawAndPublish(frame, snap, hands)
			return snap
		}
	}

	a.drawAndPublish(frame, snap, nil)
	return snap
}

func (a *App) drawAndPublish(frame *gocv.Mat, snap Snapshot, hands []detector.HandLandmarks) {
	overlay := capture.Overlay{
		Gesture:     snap.Gesture.String(),
		Servo:       int(snap.Servo),
		Joint:       snap.Joint,
		Angle:       int(snap.Angle),
		Position:    snap.Position,
		HandPresent: snap.HandPresent && len(hands) > 0,
		Connected:   snap.Connected,
		FPS:         snap.FPS,
		LastCommand: snap.LastCommand,
	}
	if len(hands) > 0 {
		palm := hands[0].Points[detector.PalmCenter]
		overlay.PalmX, overlay.PalmY = palm.X, palm.Y
	}

	capture.DrawOverlay(frame, overlay)
	if err := a.frames.Update(frame); err != nil {
		log.Printf("Error encoding frame: %v", err)
	}
}
