// Package tray is the optional system tray surface. Menu items post
// commands to the engine loop; they never touch engine state directly.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"clicker/internal/capture"
	"clicker/internal/engine"
)

// Poster accepts engine commands without waiting for them
type Poster interface {
	Post(cmd engine.Command)
}

// MenuItem represents a menu item; a nil item is a separator
type MenuItem struct {
	Title    string
	Tooltip  string
	Callback func()
	item     *systray.MenuItem
}

// Tray manages the system tray icon and menu
type Tray struct {
	mu      sync.Mutex
	title   string
	tooltip string
	items   []*MenuItem
	ready   bool
	quitCh  chan struct{}
	onQuit  func()
}

// New creates a tray with the given title and tooltip
func New(title, tooltip string) *Tray {
	return &Tray{
		title:   title,
		tooltip: tooltip,
		quitCh:  make(chan struct{}),
	}
}

// Add appends menu items; call before Run
func (t *Tray) Add(items ...*MenuItem) {
	t.items = append(t.items, items...)
}

// OnQuit registers a function called once the tray loop exits
func (t *Tray) OnQuit(fn func()) {
	t.onQuit = fn
}

// EngineMenu builds the capture and replay menu for label. quit runs when
// the operator picks Quit.
func EngineMenu(p Poster, label string, quit func()) []*MenuItem {
	post := func(cmd engine.Command) func() {
		return func() { p.Post(cmd) }
	}
	return []*MenuItem{
		{Title: "Record (hotkeys)", Tooltip: "Arm a hotkey capture session", Callback: post(engine.Command{Kind: engine.KindRecord, Mode: capture.ModeHotkey, Label: label})},
		{Title: "Record (every click)", Tooltip: "Capture every click in the target window", Callback: post(engine.Command{Kind: engine.KindRecord, Mode: capture.ModeDirect, Label: label})},
		{Title: "Stop", Callback: post(engine.Command{Kind: engine.KindSignal, Signal: capture.SignalStop})},
		{Title: "Cancel", Callback: post(engine.Command{Kind: engine.KindSignal, Signal: capture.SignalCancel})},
		{Title: "Save", Tooltip: "Close the session and save " + label, Callback: post(engine.Command{Kind: engine.KindFinish, Label: label})},
		nil,
		{Title: "Replay", Callback: post(engine.Command{Kind: engine.KindReplay, Label: label})},
		{Title: "Cancel replay", Callback: post(engine.Command{Kind: engine.KindCancelReplay})},
		nil,
		{Title: "Quit", Callback: quit},
	}
}

// SetStatus updates the tooltip once the tray is visible
func (t *Tray) SetStatus(status string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tooltip = status
	if t.ready {
		systray.SetTooltip(status)
	}
}

// Run starts the tray event loop (blocks)
func (t *Tray) Run() {
	systray.Run(t.setupMenu, t.exit)
}

func (t *Tray) exit() {
	close(t.quitCh)
	if t.onQuit != nil {
		t.onQuit()
	}
}

// setupMenu is called when systray is ready
func (t *Tray) setupMenu() {
	t.mu.Lock()
	systray.SetTitle(t.title)
	systray.SetTooltip(t.tooltip)
	systray.SetIcon(icon())
	t.ready = true
	t.mu.Unlock()

	for _, mi := range t.items {
		if mi == nil {
			systray.AddSeparator()
			continue
		}
		mi.item = systray.AddMenuItem(mi.Title, mi.Tooltip)
		if mi.Callback == nil {
			continue
		}
		go func(mi *MenuItem) {
			for {
				select {
				case <-mi.item.ClickedCh:
					mi.Callback()
				case <-t.quitCh:
					return
				}
			}
		}(mi)
	}
}

// Stop stops the tray
func (t *Tray) Stop() {
	systray.Quit()
}
