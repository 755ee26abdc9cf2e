package engine

import (
	"fmt"

	"clicker/internal/capture"
	"clicker/internal/coords"
	"clicker/internal/replay"
)

// Kind selects what a Command does
type Kind int

const (
	// KindRecord locates the window and begins a capture session
	KindRecord Kind = iota
	// KindSignal applies a start/stop/cancel signal as if its hotkey was pressed
	KindSignal
	// KindPoint feeds a manually entered absolute point
	KindPoint
	// KindRelocate re-locates the window and remaps later events
	KindRelocate
	// KindFinish closes the session and saves the captured set
	KindFinish
	// KindReplay starts replaying a set in the background
	KindReplay
	// KindCancelReplay stops issuing new replay clicks
	KindCancelReplay
	// KindStatus reports the current state
	KindStatus
	// KindQuit stops the loop
	KindQuit
)

func (k Kind) String() string {
	switch k {
	case KindRecord:
		return "record"
	case KindSignal:
		return "signal"
	case KindPoint:
		return "point"
	case KindRelocate:
		return "relocate"
	case KindFinish:
		return "finish"
	case KindReplay:
		return "replay"
	case KindCancelReplay:
		return "cancel-replay"
	case KindStatus:
		return "status"
	case KindQuit:
		return "quit"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Command is an operator request for the loop
type Command struct {
	Kind Kind

	// Record
	Mode   capture.Mode
	Seed   []coords.CoordinateEntry
	NoHook bool

	// Record, Finish and Replay
	Label string

	Signal capture.Signal
	Point  coords.Point

	// Set overrides loading Label from the store for Replay
	Set *coords.CoordinateSet

	reply chan Reply
}

// Reply answers a Command
type Reply struct {
	Err error
	// Warning is a degraded-mode condition, e.g. the hook bridge failing to start
	Warning error

	Status   Status
	Geometry coords.WindowGeometry
	Set      coords.CoordinateSet
	Stats    capture.Stats
}

// Status is a snapshot of the loop state
type Status struct {
	Active    bool
	Phase     capture.Phase
	Mode      capture.Mode
	Label     string
	Entries   int
	Stats     capture.Stats
	Geometry  coords.WindowGeometry
	Hooked    bool
	Replaying bool
}

// NoticeKind identifies an asynchronous notification
type NoticeKind int

const (
	NoticePhase NoticeKind = iota
	NoticeConfirmed
	NoticeResolved
	NoticeClosed
	NoticeProgress
	NoticeReplayDone
)

// Notice reports something that happened on the loop
type Notice struct {
	Kind NoticeKind

	Phase   capture.Phase
	Slot    int
	Entries int
	Point   coords.Point
	Value   string

	Progress replay.Progress
	Report   replay.Report
	Err      error
}
