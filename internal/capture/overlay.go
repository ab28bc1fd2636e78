package capture

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// Overlay layout.
const (
	BarHeight   = 30
	PanelHeight = 110
)

// BarMarkers are the angles labelled along the top bar.
var BarMarkers = []int{0, 45, 90, 135, 180}

var (
	colorBar       = color.RGBA{50, 50, 50, 0}
	colorWhite     = color.RGBA{255, 255, 255, 0}
	colorIndicator = color.RGBA{255, 255, 0, 0}
	colorBlack     = color.RGBA{0, 0, 0, 0}
	colorOK        = color.RGBA{0, 255, 0, 0}
	colorAlert     = color.RGBA{255, 0, 0, 0}
	colorMuted     = color.RGBA{128, 128, 128, 0}
	colorAngle     = color.RGBA{0, 165, 255, 0}
)

// Overlay is the status drawn on top of each streamed frame.
type Overlay struct {
	Gesture     string
	Servo       int
	Joint       string
	Angle       int
	Position    float64
	PalmX       float64
	PalmY       float64
	HandPresent bool
	Connected   bool
	FPS         float64
	LastCommand string
}

// MarkerX returns the bar x coordinate of an angle marker.
func MarkerX(angle, width int) int {
	return angle * width / 180
}

// IndicatorX returns the bar x coordinate for a normalized hand position.
func IndicatorX(position float64, width int) int {
	x := int(position * float64(width))
	if x < 0 {
		return 0
	}
	if x >= width {
		return width - 1
	}
	return x
}

// StatusLines returns the panel text in drawing order.
func (o Overlay) StatusLines() []string {
	status := "DISCONNECTED"
	if o.Connected {
		status = "CONNECTED"
	}

	lines := []string{
		fmt.Sprintf("Status: %s  FPS: %d", status, int(o.FPS)),
	}
	if !o.HandPresent {
		return append(lines, "No hand detected")
	}

	lines = append(lines,
		fmt.Sprintf("Gesture: %s", o.Gesture),
		fmt.Sprintf(">>> Servo %d: %s  Target: %d deg", o.Servo, o.Joint, o.Angle),
	)
	if o.LastCommand != "" {
		lines = append(lines, fmt.Sprintf("Last sent: %s", o.LastCommand))
	}
	return lines
}

// DrawOverlay draws the angle bar, hand indicator and status panel onto frame.
func DrawOverlay(frame *gocv.Mat, o Overlay) {
	if frame == nil || frame.Empty() {
		return
	}

	width := frame.Cols()
	height := frame.Rows()

	gocv.Rectangle(frame, image.Rect(0, 0, width, BarHeight), colorBar, -1)
	for _, angle := range BarMarkers {
		x := MarkerX(angle, width)
		gocv.Line(frame, image.Pt(x, 0), image.Pt(x, BarHeight), colorWhite, 1)
		gocv.PutText(frame, fmt.Sprintf("%d", angle), image.Pt(x-12, BarHeight-8),
			gocv.FontHersheySimplex, 0.4, colorWhite, 1)
	}

	if o.HandPresent {
		ix := IndicatorX(o.Position, width)
		gocv.Circle(frame, image.Pt(ix, BarHeight/2), 12, colorIndicator, -1)
		gocv.Circle(frame, image.Pt(ix, BarHeight/2), 12, colorBlack, 2)

		palm := image.Pt(IndicatorX(o.PalmX, width), int(o.PalmY*float64(height)))
		gocv.Line(frame, palm, image.Pt(ix, BarHeight), colorIndicator, 2)
	}

	top := height - PanelHeight
	if top < BarHeight {
		top = BarHeight
	}
	gocv.Rectangle(frame, image.Rect(0, top, width, height), colorBlack, -1)

	for i, line := range o.StatusLines() {
		c := colorWhite
		switch {
		case i == 0 && o.Connected:
			c = colorOK
		case i == 0:
			c = colorAlert
		case !o.HandPresent:
			c = colorAlert
		case i == 1 && o.Gesture == "NONE":
			c = colorMuted
		case i == 2:
			c = colorAngle
		}
		gocv.PutText(frame, line, image.Pt(10, top+25+i*25), gocv.FontHersheySimplex, 0.55, c, 1)
	}
}
