package capture

import (
	"context"
	"errors"
	"testing"
	"time"

	"clicker/internal/coords"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

var testGeometry = coords.WindowGeometry{
	Origin:       coords.Point{X: 100, Y: 200},
	Width:        800,
	Height:       600,
	ProcessLabel: "firefox",
}

func click(x, y int) coords.HookEvent {
	return coords.HookEvent{Absolute: coords.Point{X: x, Y: y}, ProcessLabel: "firefox"}
}

func newHotkeySession(t *testing.T) (*Session, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := New(testGeometry, Options{Mode: ModeHotkey, Debounce: 300 * time.Millisecond, Clock: clock.Now})
	if err := s.Begin(); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if s.Phase() != PhaseArmed {
		t.Fatalf("Expected ARMED after Begin, got %s", s.Phase())
	}
	return s, clock
}

func TestHotkeyStartClickStopYieldsOneEntry(t *testing.T) {
	s, clock := newHotkeySession(t)

	s.HandleSignal(SignalStart)
	if s.Phase() != PhaseRecording {
		t.Fatalf("Expected RECORDING, got %s", s.Phase())
	}
	if _, ok := s.HandlePointer(click(500, 500)); ok {
		t.Fatal("Hotkey mode must not confirm on click")
	}

	clock.Advance(time.Second)
	req, ok := s.HandleSignal(SignalStop)
	if !ok {
		t.Fatal("Expected stop to confirm the entry")
	}
	if s.Phase() != PhaseArmed {
		t.Errorf("Expected ARMED after stop, got %s", s.Phase())
	}
	if req.Absolute != (coords.Point{X: 500, Y: 500}) {
		t.Errorf("Expected probe at (500,500), got %v", req.Absolute)
	}

	// A second stop is a no-op
	clock.Advance(time.Second)
	if _, ok := s.HandleSignal(SignalStop); ok {
		t.Error("Second stop must not confirm anything")
	}

	set := s.Finalize("default")
	if len(set.Entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(set.Entries))
	}
	e := set.Entries[0]
	if e.Method != coords.MethodHotkey {
		t.Errorf("Expected HOTKEY method, got %s", e.Method)
	}
	if e.Relative != (coords.RelativePoint{X: 0.5, Y: 0.5}) {
		t.Errorf("Expected relative (0.5,0.5), got %+v", e.Relative)
	}
	if e.Value != "1" || e.Kind != coords.KindUnknown {
		t.Errorf("Expected placeholder value 1/UNKNOWN, got %q/%s", e.Value, e.Kind)
	}
}

func TestMostRecentEventWins(t *testing.T) {
	s, clock := newHotkeySession(t)
	s.HandleSignal(SignalStart)
	s.HandlePointer(click(150, 250))
	s.HandlePointer(click(300, 400))
	s.HandlePointer(click(700, 650))

	clock.Advance(time.Second)
	req, ok := s.HandleSignal(SignalStop)
	if !ok {
		t.Fatal("Expected confirmation")
	}
	if req.Absolute != (coords.Point{X: 700, Y: 650}) {
		t.Errorf("Expected last click to win, got %v", req.Absolute)
	}
	if s.Stats().Replaced != 2 {
		t.Errorf("Expected 2 replaced bindings, got %d", s.Stats().Replaced)
	}
}

func TestStopOutsideRecordingIsNoop(t *testing.T) {
	s, _ := newHotkeySession(t)
	if _, ok := s.HandleSignal(SignalStop); ok {
		t.Error("Stop while ARMED must not confirm")
	}
	if s.Phase() != PhaseArmed {
		t.Errorf("Expected phase to stay ARMED, got %s", s.Phase())
	}
	if s.Len() != 0 {
		t.Errorf("Expected no entries, got %d", s.Len())
	}
}

func TestClicksWhileArmedAreIgnored(t *testing.T) {
	s, clock := newHotkeySession(t)
	s.HandlePointer(click(500, 500))
	s.HandleSignal(SignalStart)
	clock.Advance(time.Second)
	if _, ok := s.HandleSignal(SignalStop); ok {
		t.Error("Click before start must not be bound")
	}
	if s.Stats().Ignored != 1 {
		t.Errorf("Expected 1 ignored event, got %d", s.Stats().Ignored)
	}
}

func TestDebounceSameKind(t *testing.T) {
	s, clock := newHotkeySession(t)
	s.HandleSignal(SignalStart)
	s.HandlePointer(click(500, 500))

	clock.Advance(100 * time.Millisecond)
	if _, ok := s.HandleSignal(SignalStop); !ok {
		t.Fatal("Stop after start must not be debounced: kinds differ")
	}

	// Key-repeat start within the window is absorbed
	clock.Advance(50 * time.Millisecond)
	s.HandleSignal(SignalStart)
	clock.Advance(100 * time.Millisecond)
	s.HandleSignal(SignalStart)
	if s.Phase() != PhaseArmed {
		t.Fatalf("Expected repeated start within 300ms to be ignored, got %s", s.Phase())
	}
	if s.Stats().Debounced != 2 {
		t.Errorf("Expected 2 debounced signals, got %d", s.Stats().Debounced)
	}

	clock.Advance(300 * time.Millisecond)
	s.HandleSignal(SignalStart)
	if s.Phase() != PhaseRecording {
		t.Errorf("Expected start after the window to apply, got %s", s.Phase())
	}
}

func TestCancelKeepsConfirmedEntries(t *testing.T) {
	s, clock := newHotkeySession(t)
	s.HandleSignal(SignalStart)
	s.HandlePointer(click(200, 300))
	clock.Advance(time.Second)
	s.HandleSignal(SignalStop)

	clock.Advance(time.Second)
	s.HandleSignal(SignalStart)
	s.HandlePointer(click(400, 500))
	s.HandleSignal(SignalCancel)

	if s.Phase() != PhaseClosed {
		t.Fatalf("Expected CLOSED after cancel, got %s", s.Phase())
	}
	if _, pending := s.Pending(); pending {
		t.Error("Expected tentative binding to be discarded")
	}
	set := s.Finalize("default")
	if len(set.Entries) != 1 {
		t.Fatalf("Expected the confirmed entry to survive, got %d", len(set.Entries))
	}
	if set.Entries[0].AbsoluteAtCapture != (coords.Point{X: 200, Y: 300}) {
		t.Errorf("Unexpected surviving entry %+v", set.Entries[0])
	}

	if _, ok := s.HandlePointer(click(300, 300)); ok {
		t.Error("Closed session must not accept events")
	}
	if err := s.Begin(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed, got %v", err)
	}
}

func TestDirectModeConfirmsInOrder(t *testing.T) {
	s := New(testGeometry, Options{Mode: ModeDirect})
	if err := s.Begin(); err != nil {
		t.Fatal(err)
	}
	if s.Phase() != PhaseRecording {
		t.Fatalf("Expected RECORDING, got %s", s.Phase())
	}

	for i, p := range []coords.Point{{X: 150, Y: 250}, {X: 850, Y: 750}, {X: 500, Y: 500}} {
		req, ok := s.HandlePointer(coords.HookEvent{Absolute: p})
		if !ok {
			t.Fatalf("Expected click %d to confirm", i)
		}
		if req.Slot != i {
			t.Errorf("Expected slot %d, got %d", i, req.Slot)
		}
	}

	s.HandleSignal(SignalStop)
	if s.Phase() != PhaseClosed {
		t.Errorf("Expected stop to close a direct session, got %s", s.Phase())
	}

	set := s.Finalize("manual")
	if len(set.Entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(set.Entries))
	}
	if set.Entries[1].AbsoluteAtCapture != (coords.Point{X: 850, Y: 750}) {
		t.Errorf("Entries out of order: %+v", set.Entries)
	}
	for _, e := range set.Entries {
		if e.Method != coords.MethodManual {
			t.Errorf("Expected MANUAL, got %s", e.Method)
		}
	}
	if err := set.Validate(); err != nil {
		t.Errorf("Captured set invalid: %v", err)
	}
}

func TestEventsOutsideGeometryDiscarded(t *testing.T) {
	s := New(testGeometry, Options{Mode: ModeDirect})
	s.Begin()

	for _, p := range []coords.Point{{X: 99, Y: 300}, {X: 901, Y: 300}, {X: 500, Y: 801}, {X: 500, Y: 10}} {
		if _, ok := s.HandlePointer(coords.HookEvent{Absolute: p}); ok {
			t.Errorf("Expected %v to be discarded", p)
		}
	}
	if s.Stats().Discarded != 4 || s.Len() != 0 {
		t.Errorf("Expected 4 discarded and no entries, got %+v len=%d", s.Stats(), s.Len())
	}
}

func TestApplyProbe(t *testing.T) {
	s := New(testGeometry, Options{Mode: ModeDirect})
	s.Begin()
	s.HandlePointer(click(200, 300))
	s.HandlePointer(click(300, 300))

	if !s.ApplyProbe(ProbeResult{Slot: 0, Value: "17", Kind: coords.KindNumber}) {
		t.Fatal("Expected probe result to apply")
	}
	if s.ApplyProbe(ProbeResult{Slot: 0, Value: "18", Kind: coords.KindNumber}) {
		t.Error("Expected second result for a resolved slot to be dropped")
	}
	if s.ApplyProbe(ProbeResult{Slot: 9, Value: "x"}) {
		t.Error("Expected result for unknown slot to be dropped")
	}
	s.ApplyProbe(ProbeResult{Slot: 1})

	set := s.Finalize("default")
	if set.Entries[0].Value != "17" || set.Entries[0].Kind != coords.KindNumber {
		t.Errorf("Unexpected entry 0: %+v", set.Entries[0])
	}
	if set.Entries[1].Value != "2" || set.Entries[1].Kind != coords.KindUnknown {
		t.Errorf("Expected empty probe to fall back to placeholder, got %+v", set.Entries[1])
	}
}

func TestSeedHybrid(t *testing.T) {
	seed := []coords.CoordinateEntry{
		coords.NewEntry("RED", coords.KindOuterBet, coords.Point{X: 300, Y: 700}, testGeometry, coords.MethodDetected, time.Now()),
	}
	s := New(testGeometry, Options{Mode: ModeDirect})
	if err := s.Seed(seed); err != nil {
		t.Fatal(err)
	}
	s.Begin()
	req, _ := s.HandlePointer(click(400, 400))
	if req.Slot != 1 {
		t.Errorf("Expected manual entry after seeded one, got slot %d", req.Slot)
	}
	if err := s.Seed(seed); !errors.Is(err, ErrNotIdle) {
		t.Errorf("Expected ErrNotIdle seeding a running session, got %v", err)
	}

	set := s.Finalize("hybrid")
	if set.Entries[0].Value != "RED" || set.Entries[0].Method != coords.MethodDetected {
		t.Errorf("Seeded entry changed: %+v", set.Entries[0])
	}
	if set.CountByMethod()[coords.MethodManual] != 1 {
		t.Errorf("Expected one manual entry, got %v", set.CountByMethod())
	}
}

type stubProber struct {
	text  string
	err   error
	delay time.Duration
}

func (p stubProber) Probe(ctx context.Context, abs coords.Point, g coords.WindowGeometry) (string, error) {
	select {
	case <-time.After(p.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return p.text, p.err
}

func TestRunProbe(t *testing.T) {
	classify := func(text string) (string, coords.Kind) {
		if text == "17" {
			return "17", coords.KindNumber
		}
		return text, coords.KindUnknown
	}
	req := ProbeRequest{Slot: 3, Absolute: coords.Point{X: 1, Y: 1}}

	tests := []struct {
		name      string
		prober    Prober
		wantValue string
		wantKind  coords.Kind
	}{
		{"found", stubProber{text: "17"}, "17", coords.KindNumber},
		{"nothing", NopProber{}, "", coords.KindUnknown},
		{"error", stubProber{err: errors.New("boom")}, "", coords.KindUnknown},
		{"timeout", stubProber{text: "17", delay: time.Second}, "", coords.KindUnknown},
		{"nil prober", nil, "", coords.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := RunProbe(context.Background(), tt.prober, req, 50*time.Millisecond, classify)
			if res.Slot != 3 || res.Value != tt.wantValue || res.Kind != tt.wantKind {
				t.Errorf("RunProbe() = %+v, want value %q kind %s", res, tt.wantValue, tt.wantKind)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("hotkey"); err != nil || m != ModeHotkey {
		t.Errorf("ParseMode(hotkey) = %v, %v", m, err)
	}
	if m, err := ParseMode("direct"); err != nil || m != ModeDirect {
		t.Errorf("ParseMode(direct) = %v, %v", m, err)
	}
	if _, err := ParseMode("auto"); err == nil {
		t.Error("Expected error for unknown mode")
	}
}
