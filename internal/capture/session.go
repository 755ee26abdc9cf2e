// Package capture turns hook bridge events and operator signals into
// confirmed coordinate entries.
package capture

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"clicker/internal/coords"
)

// Phase is the session state
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseArmed
	PhaseRecording
	PhaseClosed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseArmed:
		return "ARMED"
	case PhaseRecording:
		return "RECORDING"
	case PhaseClosed:
		return "CLOSED"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// Mode selects how events become entries
type Mode int

const (
	// ModeDirect confirms every accepted pointer event immediately
	ModeDirect Mode = iota
	// ModeHotkey binds one event per start/stop pair
	ModeHotkey
)

// ParseMode accepts "direct" or "hotkey"
func ParseMode(s string) (Mode, error) {
	switch s {
	case "direct", "manual":
		return ModeDirect, nil
	case "hotkey":
		return ModeHotkey, nil
	}
	return 0, fmt.Errorf("unknown capture mode %q (want direct or hotkey)", s)
}

func (m Mode) String() string {
	if m == ModeHotkey {
		return "hotkey"
	}
	return "direct"
}

// Signal is an operator control signal
type Signal int

const (
	SignalStart Signal = iota
	SignalStop
	SignalCancel
)

func (s Signal) String() string {
	switch s {
	case SignalStart:
		return "start"
	case SignalStop:
		return "stop"
	case SignalCancel:
		return "cancel"
	}
	return fmt.Sprintf("Signal(%d)", int(s))
}

var (
	// ErrClosed is returned for operations on a closed session
	ErrClosed = errors.New("capture session closed")

	// ErrNotIdle is returned when seeding or beginning a session already in progress
	ErrNotIdle = errors.New("capture session already started")
)

// Options configures a session
type Options struct {
	Mode     Mode
	Debounce time.Duration
	// Clock defaults to time.Now
	Clock func() time.Time
}

// Stats counts what happened to incoming events
type Stats struct {
	Accepted  int
	Discarded int // outside the window geometry
	Ignored   int // arrived while not recording
	Replaced  int // tentative bindings superseded by a later event
	Debounced int
	Confirmed int
	Seeded    int
}

// ProbeRequest asks the engine to resolve the value under a confirmed entry
type ProbeRequest struct {
	Slot     int
	Absolute coords.Point
	Geometry coords.WindowGeometry
}

// ProbeResult answers a ProbeRequest; an empty Value means nothing was found
type ProbeResult struct {
	Slot  int
	Value string
	Kind  coords.Kind
}

type slot struct {
	entry    coords.CoordinateEntry
	resolved bool
}

// Session is the capture state machine. It is not safe for concurrent use;
// the engine loop owns it.
type Session struct {
	mode     Mode
	phase    Phase
	geometry coords.WindowGeometry
	debounce time.Duration
	now      func() time.Time

	slots      []slot
	tentative  *coords.HookEvent
	raw        []coords.HookEvent
	lastSignal map[Signal]time.Time
	stats      Stats
}

// New creates an idle session capturing against geometry g
func New(g coords.WindowGeometry, opts Options) *Session {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Session{
		mode:       opts.Mode,
		geometry:   g,
		debounce:   opts.Debounce,
		now:        now,
		lastSignal: make(map[Signal]time.Time),
	}
}

// Seed prepends entries produced elsewhere (hybrid capture). Seeded entries
// are already resolved and never probed.
func (s *Session) Seed(entries []coords.CoordinateEntry) error {
	if s.phase != PhaseIdle {
		return ErrNotIdle
	}
	for _, e := range entries {
		s.slots = append(s.slots, slot{entry: e, resolved: true})
	}
	s.stats.Seeded += len(entries)
	log.Printf("Capture: Seeded session with %d entries", len(entries))
	return nil
}

// Begin leaves IDLE: direct sessions start recording, hotkey sessions arm
func (s *Session) Begin() error {
	switch s.phase {
	case PhaseClosed:
		return ErrClosed
	case PhaseIdle:
	default:
		return ErrNotIdle
	}
	s.raw = nil
	if s.mode == ModeDirect {
		s.phase = PhaseRecording
	} else {
		s.phase = PhaseArmed
	}
	log.Printf("Capture: Session begun in %s mode (%s)", s.mode, s.phase)
	return nil
}

// Phase returns the current phase
func (s *Session) Phase() Phase {
	return s.phase
}

// Mode returns the capture mode
func (s *Session) Mode() Mode {
	return s.mode
}

// Geometry returns the geometry events are mapped against
func (s *Session) Geometry() coords.WindowGeometry {
	return s.geometry
}

// SetGeometry replaces the geometry after the window was re-located.
// Later events and probes use it; confirmed entries keep their relative points.
func (s *Session) SetGeometry(g coords.WindowGeometry) {
	s.geometry = g
}

// Stats returns event counters
func (s *Session) Stats() Stats {
	return s.stats
}

// Len returns the number of confirmed entries including seeded ones
func (s *Session) Len() int {
	return len(s.slots)
}

// Pending reports whether a tentative binding awaits a stop signal
func (s *Session) Pending() (coords.HookEvent, bool) {
	if s.tentative == nil {
		return coords.HookEvent{}, false
	}
	return *s.tentative, true
}

// HandlePointer feeds one hook event. It returns a probe request when the
// event confirmed an entry.
func (s *Session) HandlePointer(ev coords.HookEvent) (ProbeRequest, bool) {
	if s.phase != PhaseRecording {
		s.stats.Ignored++
		return ProbeRequest{}, false
	}
	if _, ok := coords.Relativize(ev.Absolute, s.geometry); !ok {
		s.stats.Discarded++
		log.Printf("Capture: Discarded event at %v outside %s", ev.Absolute, s.geometry)
		return ProbeRequest{}, false
	}
	s.stats.Accepted++
	s.raw = append(s.raw, ev)

	if s.mode == ModeDirect {
		return s.confirm(ev, coords.MethodManual), true
	}

	if s.tentative != nil {
		s.stats.Replaced++
	}
	e := ev
	s.tentative = &e
	return ProbeRequest{}, false
}

// HandleSignal applies an operator signal. It returns a probe request when a
// stop confirmed the tentative entry.
func (s *Session) HandleSignal(sig Signal) (ProbeRequest, bool) {
	if s.phase == PhaseClosed {
		return ProbeRequest{}, false
	}

	t := s.now()
	if last, ok := s.lastSignal[sig]; ok && s.debounce > 0 && t.Sub(last) < s.debounce {
		s.stats.Debounced++
		return ProbeRequest{}, false
	}
	s.lastSignal[sig] = t

	switch sig {
	case SignalCancel:
		s.Close()
		return ProbeRequest{}, false

	case SignalStart:
		if s.mode == ModeHotkey && s.phase == PhaseArmed {
			s.phase = PhaseRecording
			s.tentative = nil
			log.Printf("Capture: Recording entry %d", len(s.slots)+1)
		}
		return ProbeRequest{}, false

	case SignalStop:
		if s.phase != PhaseRecording {
			return ProbeRequest{}, false
		}
		if s.mode == ModeDirect {
			s.Close()
			return ProbeRequest{}, false
		}
		s.phase = PhaseArmed
		if s.tentative == nil {
			log.Println("Capture: Stop without a click, nothing recorded")
			return ProbeRequest{}, false
		}
		ev := *s.tentative
		s.tentative = nil
		return s.confirm(ev, coords.MethodHotkey), true
	}
	return ProbeRequest{}, false
}

// confirm appends an unresolved entry for ev
func (s *Session) confirm(ev coords.HookEvent, method coords.Method) ProbeRequest {
	e := coords.NewEntry("", coords.KindUnknown, ev.Absolute, s.geometry, method, s.now())
	s.slots = append(s.slots, slot{entry: e})
	s.stats.Confirmed++
	idx := len(s.slots) - 1

	log.Printf("Capture: Confirmed entry %d at %v (%.3f, %.3f)", idx+1, ev.Absolute, e.Relative.X, e.Relative.Y)
	return ProbeRequest{
		Slot:     idx,
		Absolute: coords.ToAbsolute(e.Relative, s.geometry),
		Geometry: s.geometry,
	}
}

// ApplyProbe attaches a probe result to its slot. Results for resolved or
// unknown slots are dropped.
func (s *Session) ApplyProbe(res ProbeResult) bool {
	if res.Slot < 0 || res.Slot >= len(s.slots) || s.slots[res.Slot].resolved {
		return false
	}
	sl := &s.slots[res.Slot]
	if res.Value == "" {
		sl.entry.Value = placeholder(res.Slot)
		sl.entry.Kind = coords.KindUnknown
	} else {
		sl.entry.Value = res.Value
		sl.entry.Kind = res.Kind
		if sl.entry.Kind == "" {
			sl.entry.Kind = coords.KindUnknown
		}
	}
	sl.resolved = true
	return true
}

// Close ends the session, dropping any tentative binding. Confirmed entries stay.
func (s *Session) Close() {
	if s.phase == PhaseClosed {
		return
	}
	if s.tentative != nil {
		log.Println("Capture: Discarding unconfirmed entry")
		s.tentative = nil
	}
	s.phase = PhaseClosed
	log.Printf("Capture: Session closed with %d entries", len(s.slots))
}

// Finalize returns the captured set, filling unresolved values with placeholders
func (s *Session) Finalize(label string) coords.CoordinateSet {
	set := coords.CoordinateSet{
		Label:    label,
		Geometry: s.geometry,
		Entries:  make([]coords.CoordinateEntry, 0, len(s.slots)),
		SavedAt:  s.now(),
	}
	for i := range s.slots {
		if !s.slots[i].resolved {
			s.slots[i].entry.Value = placeholder(i)
			s.slots[i].entry.Kind = coords.KindUnknown
			s.slots[i].resolved = true
		}
		set.Entries = append(set.Entries, s.slots[i].entry)
	}
	return set
}

// Events returns the raw events accepted since the session began
func (s *Session) Events() []coords.HookEvent {
	return append([]coords.HookEvent(nil), s.raw...)
}

func placeholder(slot int) string {
	return strconv.Itoa(slot + 1)
}
