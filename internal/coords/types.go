// Package coords holds the coordinate data model and the window-relative mapper.
package coords

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Point is an absolute screen position in pixels
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// WindowGeometry describes the target window at the moment it was located.
// A new locate produces a new value; geometries are never updated in place.
type WindowGeometry struct {
	Origin       Point  `json:"origin"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	ProcessLabel string `json:"process,omitempty"`
	Title        string `json:"title,omitempty"`
}

// Contains reports whether p lies inside the window's bounding box.
func (g WindowGeometry) Contains(p Point) bool {
	return p.X >= g.Origin.X && p.X <= g.Origin.X+g.Width &&
		p.Y >= g.Origin.Y && p.Y <= g.Origin.Y+g.Height
}

// Degenerate reports whether the geometry cannot be used for mapping.
func (g WindowGeometry) Degenerate() bool {
	return g.Width <= 0 || g.Height <= 0
}

func (g WindowGeometry) String() string {
	return fmt.Sprintf("%dx%d at (%d,%d)", g.Width, g.Height, g.Origin.X, g.Origin.Y)
}

// RelativePoint is a position expressed as fractions of the window size
type RelativePoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Valid reports whether both axes lie within [0,1].
func (r RelativePoint) Valid() bool {
	return r.X >= 0 && r.X <= 1 && r.Y >= 0 && r.Y <= 1
}

// Kind classifies what a recorded point refers to
type Kind string

const (
	KindNumber   Kind = "NUMBER"
	KindOuterBet Kind = "OUTER_BET"
	KindUnknown  Kind = "UNKNOWN"
)

// Method records how an entry was produced
type Method string

const (
	MethodDetected Method = "DETECTED"
	MethodManual   Method = "MANUAL"
	MethodHotkey   Method = "HOTKEY"
	MethodImported Method = "IMPORTED"
)

// ParseMethod accepts a method name in any case.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodDetected, MethodManual, MethodHotkey, MethodImported:
		return m, nil
	}
	return "", fmt.Errorf("unknown method %q (want DETECTED, MANUAL, HOTKEY or IMPORTED)", s)
}

// CoordinateEntry binds a value to a window-relative position
type CoordinateEntry struct {
	ID                string        `json:"id"`
	Value             string        `json:"value"`
	Kind              Kind          `json:"kind"`
	Relative          RelativePoint `json:"relative"`
	AbsoluteAtCapture Point         `json:"absolute"`
	Method            Method        `json:"method"`
	CapturedAt        time.Time     `json:"captured_at"`
}

// NewEntry builds an entry for an absolute point captured at geometry g.
func NewEntry(value string, kind Kind, abs Point, g WindowGeometry, method Method, at time.Time) CoordinateEntry {
	return CoordinateEntry{
		ID:                uuid.New().String(),
		Value:             value,
		Kind:              kind,
		Relative:          ToRelative(abs, g),
		AbsoluteAtCapture: abs,
		Method:            method,
		CapturedAt:        at,
	}
}

// CoordinateSet is the ordered unit persisted to the store
type CoordinateSet struct {
	Label    string            `json:"label"`
	Entries  []CoordinateEntry `json:"entries"`
	Geometry WindowGeometry    `json:"geometry"`
	SavedAt  time.Time         `json:"saved_at"`
}

// Validate rejects sets holding a relative point outside [0,1].
func (s *CoordinateSet) Validate() error {
	for i, e := range s.Entries {
		if !e.Relative.Valid() {
			return fmt.Errorf("entry %d (%s) has relative point (%.4f, %.4f) outside [0,1]",
				i+1, e.Value, e.Relative.X, e.Relative.Y)
		}
	}
	return nil
}

// CountByMethod tallies entries per method.
func (s *CoordinateSet) CountByMethod() map[Method]int {
	counts := make(map[Method]int)
	for _, e := range s.Entries {
		counts[e.Method]++
	}
	return counts
}

// Without returns a copy of the set minus the entries drop selects.
func (s *CoordinateSet) Without(drop func(CoordinateEntry) bool) CoordinateSet {
	out := *s
	out.Entries = make([]CoordinateEntry, 0, len(s.Entries))
	for _, e := range s.Entries {
		if !drop(e) {
			out.Entries = append(out.Entries, e)
		}
	}
	return out
}

// HookEvent is one pointer-down reported by the hook bridge; never stored
type HookEvent struct {
	Absolute     Point
	Ticks        int64
	ProcessLabel string
	Title        string
}
