// Package hotkey matches key combinations reported by the hook bridge.
package hotkey

import (
	"log"
	"strings"
	"sync"
)

// Manager handles hotkey registration and matching
type Manager struct {
	mu           sync.Mutex
	hotkeys      []*registeredHotkey
	currentState map[string]bool // map of current keys pressed
}

type registeredHotkey struct {
	parts    []string // e.g., ["CTRL", "S"]
	original string
	callback func()
}

// NewManager creates a new hotkey manager
func NewManager() *Manager {
	return &Manager{
		currentState: make(map[string]bool),
	}
}

// Register registers a hotkey string (e.g. "S", "Ctrl+Alt+1") and a callback.
// Callbacks run synchronously on the goroutine calling UpdateState.
func (m *Manager) Register(hotkeyStr string, callback func()) (int, error) {
	if hotkeyStr == "" {
		return 0, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parts := strings.Split(strings.ToUpper(hotkeyStr), "+")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}

	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: hotkeyStr,
		callback: callback,
	})

	return len(m.hotkeys) - 1, nil
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
	m.currentState = make(map[string]bool)
}

// UpdateState records a key transition and fires hotkeys completed by it.
// Auto-repeat downs of a key already held do not fire again.
func (m *Manager) UpdateState(key string, isDown bool) {
	key = strings.ToUpper(key)

	m.mu.Lock()
	if !isDown {
		delete(m.currentState, key)
		m.mu.Unlock()
		return
	}
	if m.currentState[key] {
		m.mu.Unlock()
		return
	}
	m.currentState[key] = true
	matched := m.matches(key)
	m.mu.Unlock()

	for _, hk := range matched {
		log.Printf("Hotkey triggered: %s", hk.original)
		hk.callback()
	}
}

// matches returns hotkeys fully held that include the key just pressed
func (m *Manager) matches(pressed string) []*registeredHotkey {
	var out []*registeredHotkey
	for _, hk := range m.hotkeys {
		match := true
		includesPressed := false
		// All parts of the hotkey must be in currentState
		for _, part := range hk.parts {
			if !m.currentState[part] {
				match = false
				break
			}
			if part == pressed {
				includesPressed = true
			}
		}
		if match && includesPressed {
			out = append(out, hk)
		}
	}
	return out
}
