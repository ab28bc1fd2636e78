// Package tray provides a system tray interface for the hand-controlled arm.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/handservo/internal/app"
)

// PollInterval is how often the status line is refreshed.
const PollInterval = 500 * time.Millisecond

// Tray represents the system tray application.
type Tray struct {
	onToggle    func(enabled bool)
	onHome      func()
	onDashboard func()
	onQuit      func()
	enabled     bool
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuStatus *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when hand control is toggled.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnHome sets the callback for the "Home all servos" item.
func (t *Tray) OnHome(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onHome = fn
}

// OnDashboard sets the callback function to be called when the dashboard menu item is clicked.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("HandServo")
	systray.SetTooltip("Hand gesture arm control")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle hand control")
	systray.AddSeparator()

	t.menuStatus = systray.AddMenuItem(StatusLine(app.Snapshot{}), "Current gesture and servo")
	t.menuStatus.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuHome := systray.AddMenuItem("Home all servos", "Send every servo to 90 degrees")
	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit HandServo")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuHome.ClickedCh:
				t.fire(func() func() { return t.onHome })
			case <-menuDashboard.ClickedCh:
				t.fire(func() func() { return t.onDashboard })
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle handles the toggle menu item click.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) fire(get func() func()) {
	t.mu.RLock()
	callback := get()
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.fire(func() func() { return t.onQuit })
	systray.Quit()
}

// SetEnabled syncs the toggle with a state changed elsewhere (web UI, CLI).
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetStatus updates the status line in the menu.
func (t *Tray) SetStatus(line string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus != nil {
		t.menuStatus.SetTitle(line)
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Follow refreshes the status line and toggle from snapshot until stop closes.
func (t *Tray) Follow(stop <-chan struct{}, snapshot func() app.Snapshot, enabled func() bool) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.SetStatus(StatusLine(snapshot()))
			if enabled != nil && enabled() != t.IsEnabled() {
				t.SetEnabled(enabled())
			}
		}
	}
}

// StatusLine renders a snapshot as a single menu line.
func StatusLine(s app.Snapshot) string {
	link := "offline"
	if s.Connected {
		link = "connected"
	}
	if !s.HandPresent {
		return fmt.Sprintf("No hand (%s)", link)
	}
	return fmt.Sprintf("%s -> S%d %s %d° (%s)", s.Gesture, uint8(s.Servo), s.Joint, s.Angle, link)
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}
