// Package tray provides a system tray interface for running the distance
// estimator headless: the latest reading in the menu, a near-range
// indicator, and a quit entry.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/mpatra/handrange/internal/ranging"
)

// Tray represents the system tray application.
type Tray struct {
	onDashboard func()
	onQuit      func()
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuReading *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnDashboard sets the callback function to be called when the dashboard
// menu item is clicked.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item
// is clicked.
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

// Quit closes the tray from outside, e.g. when the measurement loop ends
// on its own.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("HandRange")
	systray.SetTooltip("HandRange Distance Estimator")

	t.menuReading = systray.AddMenuItem("Distance: --", "Latest distance reading")
	t.menuReading.Disable()
	systray.AddSeparator()

	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the web dashboard in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit HandRange")

	// Handle menu item clicks in a separate goroutine
	go func() {
		for {
			select {
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
}

// handleDashboard handles the dashboard menu item click.
func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// Publish updates the reading shown in the menu. It implements the
// measurement loop's publisher so the tray can be wired in directly.
func (t *Tray) Publish(est ranging.Estimate) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuReading == nil {
		return
	}

	title := fmt.Sprintf("Distance: %.1f cm (%.2f m)", est.CM, est.M)
	if est.NearRange() {
		title = "⚠ " + title
	}
	t.menuReading.SetTitle(title)
}
