package hotkey

import "testing"

func TestSingleKeyHotkey(t *testing.T) {
	m := NewManager()
	fired := 0
	m.Register("s", func() { fired++ })

	m.UpdateState("S", true)
	m.UpdateState("S", false)

	if fired != 1 {
		t.Errorf("Expected hotkey to fire once, got %d", fired)
	}
}

func TestAutoRepeatDoesNotRefire(t *testing.T) {
	m := NewManager()
	fired := 0
	m.Register("E", func() { fired++ })

	m.UpdateState("E", true)
	m.UpdateState("E", true)
	m.UpdateState("E", true)
	m.UpdateState("E", false)
	m.UpdateState("E", true)

	if fired != 2 {
		t.Errorf("Expected 2 firings (one per physical press), got %d", fired)
	}
}

func TestComboHotkey(t *testing.T) {
	m := NewManager()
	fired := 0
	m.Register("Ctrl+Alt+Q", func() { fired++ })

	m.UpdateState("CTRL", true)
	m.UpdateState("ALT", true)
	if fired != 0 {
		t.Fatal("Expected no firing before the combo is complete")
	}
	m.UpdateState("Q", true)
	if fired != 1 {
		t.Fatalf("Expected combo to fire, got %d", fired)
	}

	// Pressing an unrelated key while the combo is held does not re-fire
	m.UpdateState("X", true)
	if fired != 1 {
		t.Errorf("Expected no re-fire on unrelated key, got %d", fired)
	}
}

func TestEmptyHotkeyIgnored(t *testing.T) {
	m := NewManager()
	if _, err := m.Register("", func() { t.Error("should not fire") }); err != nil {
		t.Fatalf("Register(\"\") failed: %v", err)
	}
	m.UpdateState("S", true)
}

func TestClear(t *testing.T) {
	m := NewManager()
	fired := 0
	m.Register("S", func() { fired++ })
	m.Clear()
	m.UpdateState("S", true)
	if fired != 0 {
		t.Errorf("Expected no firing after Clear, got %d", fired)
	}
}
