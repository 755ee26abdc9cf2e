// Package engine multiplexes operator commands, hook bridge events, probe
// results and replay progress on a single goroutine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"clicker/internal/capture"
	"clicker/internal/coords"
	"clicker/internal/hook"
	"clicker/internal/hotkey"
	"clicker/internal/locator"
	"clicker/internal/replay"
)

var (
	// ErrBusy is returned when a session or replay is already running
	ErrBusy = errors.New("engine busy")

	// ErrNoSession is returned for capture commands without a session
	ErrNoSession = errors.New("no capture session")

	// ErrNotReplaying is returned by cancel-replay when nothing runs
	ErrNotReplaying = errors.New("no replay running")

	// ErrStopped is returned once the loop has exited
	ErrStopped = errors.New("engine stopped")
)

// Locator finds the target window
type Locator interface {
	Locate(ctx context.Context, q locator.Query) (coords.WindowGeometry, error)
}

// Store persists captured sets
type Store interface {
	Save(ctx context.Context, set coords.CoordinateSet, label string) error
	Get(ctx context.Context, label string) (coords.CoordinateSet, error)
}

// Hotkeys are the key combinations mapped to capture signals
type Hotkeys struct {
	Start  string
	Stop   string
	Cancel string
}

// Options wires the engine's collaborators
type Options struct {
	Locator Locator
	Query   locator.Query

	// Bridges is nil when only manual point entry is available
	Bridges Bridges

	Prober       capture.Prober
	Classify     capture.Classifier
	ProbeTimeout time.Duration

	Debounce time.Duration
	Clock    func() time.Time
	Hotkeys  Hotkeys

	Store Store

	// Replayer is copied for every replay; Locator and Query default to the engine's
	Replayer replay.Replayer

	// Notify runs on the engine goroutine and must not call Do
	Notify func(Notice)
}

type probeResult struct {
	gen int
	res capture.ProbeResult
}

type replayOutcome struct {
	report replay.Report
	err    error
}

// Engine owns the capture session, the bridge handle and the replay run
type Engine struct {
	opts     Options
	commands chan Command
	probes   chan probeResult
	progress chan replay.Progress
	replayed chan replayOutcome
	stopped  chan struct{}
	hotkeys  *hotkey.Manager

	// Loop-owned state
	ctx          context.Context
	session      *capture.Session
	gen          int
	label        string
	stream       Stream
	replayCancel context.CancelFunc
}

// New creates an engine; call Run to start it
func New(opts Options) *Engine {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 10 * time.Second
	}
	e := &Engine{
		opts:     opts,
		commands: make(chan Command),
		probes:   make(chan probeResult, 16),
		progress: make(chan replay.Progress, 16),
		replayed: make(chan replayOutcome, 1),
		stopped:  make(chan struct{}),
		hotkeys:  hotkey.NewManager(),
	}
	e.registerHotkeys()
	return e
}

// Run processes commands and events until ctx ends or a quit command arrives
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.stopped)
	e.ctx = ctx
	log.Println("Engine: Running")

	for {
		var events <-chan hook.Event
		var exited <-chan struct{}
		if e.stream != nil {
			events = e.stream.Events()
			exited = e.stream.Done()
		}

		select {
		case <-ctx.Done():
			e.shutdown()
			return ctx.Err()

		case cmd := <-e.commands:
			if cmd.Kind == KindQuit {
				e.shutdown()
				cmd.reply <- Reply{}
				return nil
			}
			cmd.reply <- e.handle(ctx, cmd)

		case ev, ok := <-events:
			if !ok {
				e.bridgeExited()
				continue
			}
			e.handleEvent(ev)

		case <-exited:
			e.bridgeExited()

		case pr := <-e.probes:
			if e.session == nil || pr.gen != e.gen {
				continue
			}
			if e.session.ApplyProbe(pr.res) {
				e.notify(Notice{Kind: NoticeResolved, Slot: pr.res.Slot, Value: pr.res.Value})
			}

		case p := <-e.progress:
			e.notify(Notice{Kind: NoticeProgress, Progress: p})

		case out := <-e.replayed:
			e.replayCancel = nil
			e.notify(Notice{Kind: NoticeReplayDone, Report: out.report, Err: out.err})
		}
	}
}

// Do sends cmd to the loop and waits for its reply
func (e *Engine) Do(ctx context.Context, cmd Command) (Reply, error) {
	cmd.reply = make(chan Reply, 1)
	select {
	case e.commands <- cmd:
	case <-e.stopped:
		return Reply{}, ErrStopped
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}

	// The loop always replies to a command it accepted
	r := <-cmd.reply
	return r, r.Err
}

// Post sends cmd without waiting; failures are logged
func (e *Engine) Post(cmd Command) {
	go func() {
		if _, err := e.Do(context.Background(), cmd); err != nil {
			log.Printf("Engine: %s failed: %v", cmd.Kind, err)
		}
	}()
}

// Done is closed when Run returns
func (e *Engine) Done() <-chan struct{} {
	return e.stopped
}

func (e *Engine) notify(n Notice) {
	if e.opts.Notify != nil {
		e.opts.Notify(n)
	}
}

func (e *Engine) recording() bool {
	return e.session != nil && e.session.Phase() != capture.PhaseClosed
}

func (e *Engine) handle(ctx context.Context, cmd Command) Reply {
	switch cmd.Kind {
	case KindRecord:
		return e.record(ctx, cmd)
	case KindSignal:
		if !e.recording() {
			return Reply{Err: ErrNoSession}
		}
		e.signal(cmd.Signal)
		return Reply{Status: e.status()}
	case KindPoint:
		if !e.recording() {
			return Reply{Err: ErrNoSession}
		}
		g := e.session.Geometry()
		e.pointer(coords.HookEvent{Absolute: cmd.Point, ProcessLabel: g.ProcessLabel, Title: g.Title})
		return Reply{Status: e.status()}
	case KindRelocate:
		g, err := e.opts.Locator.Locate(ctx, e.opts.Query)
		if err != nil {
			return Reply{Err: err}
		}
		if e.recording() {
			e.session.SetGeometry(g)
		}
		return Reply{Geometry: g, Status: e.status()}
	case KindFinish:
		return e.finish(ctx, cmd)
	case KindReplay:
		return e.startReplay(ctx, cmd)
	case KindCancelReplay:
		if e.replayCancel == nil {
			return Reply{Err: ErrNotReplaying}
		}
		e.replayCancel()
		return Reply{Status: e.status()}
	case KindStatus:
		return Reply{Status: e.status()}
	}
	return Reply{Err: fmt.Errorf("unknown command %v", cmd.Kind)}
}

func (e *Engine) record(ctx context.Context, cmd Command) Reply {
	if e.recording() || e.replayCancel != nil {
		return Reply{Err: ErrBusy}
	}

	// A closed session still holds confirmed entries until it is saved
	if e.session != nil {
		prev := e.label
		if r := e.finish(ctx, Command{Kind: KindFinish}); r.Err != nil {
			return Reply{Err: fmt.Errorf("previous session %q not saved: %w", prev, r.Err)}
		}
	}

	g, err := e.opts.Locator.Locate(ctx, e.opts.Query)
	if err != nil {
		return Reply{Err: err}
	}

	s := capture.New(g, capture.Options{Mode: cmd.Mode, Debounce: e.opts.Debounce, Clock: e.opts.Clock})
	if len(cmd.Seed) > 0 {
		if err := s.Seed(cmd.Seed); err != nil {
			return Reply{Err: err}
		}
	}
	if err := s.Begin(); err != nil {
		return Reply{Err: err}
	}

	e.session = s
	e.gen++
	e.label = cmd.Label
	e.hotkeys.Clear()
	e.registerHotkeys()

	reply := Reply{Geometry: g}
	if e.opts.Bridges != nil && !cmd.NoHook {
		stream, err := e.opts.Bridges.Acquire(ctx)
		if err != nil {
			log.Printf("Engine: Hook bridge unavailable, manual entry only: %v", err)
			reply.Warning = err
		} else {
			e.stream = stream
		}
	}
	log.Printf("Engine: Recording %q in %s mode against %s", cmd.Label, cmd.Mode, g)
	e.notify(Notice{Kind: NoticePhase, Phase: s.Phase()})
	reply.Status = e.status()
	return reply
}

// registerHotkeys binds the signal hotkeys; callbacks run inside UpdateState on the loop
func (e *Engine) registerHotkeys() {
	e.hotkeys.Register(e.opts.Hotkeys.Start, func() { e.signal(capture.SignalStart) })
	e.hotkeys.Register(e.opts.Hotkeys.Stop, func() { e.signal(capture.SignalStop) })
	e.hotkeys.Register(e.opts.Hotkeys.Cancel, func() { e.signal(capture.SignalCancel) })
}

func (e *Engine) finish(ctx context.Context, cmd Command) Reply {
	if e.session == nil {
		return Reply{Err: ErrNoSession}
	}
	e.session.Close()
	e.releaseBridge()

	label := cmd.Label
	if label == "" {
		label = e.label
	}
	set := e.session.Finalize(label)
	stats := e.session.Stats()
	e.session = nil
	e.gen++

	reply := Reply{Set: set, Stats: stats}
	if e.opts.Store != nil && len(set.Entries) > 0 {
		if err := e.opts.Store.Save(ctx, set, label); err != nil {
			reply.Err = fmt.Errorf("failed to save set %q: %w", label, err)
			return reply
		}
		log.Printf("Engine: Saved %d entries as %q", len(set.Entries), label)
	}
	reply.Status = e.status()
	return reply
}

func (e *Engine) startReplay(ctx context.Context, cmd Command) Reply {
	if e.recording() || e.replayCancel != nil {
		return Reply{Err: ErrBusy}
	}

	var set coords.CoordinateSet
	if cmd.Set != nil {
		set = *cmd.Set
	} else {
		if e.opts.Store == nil {
			return Reply{Err: fmt.Errorf("no store configured to load %q", cmd.Label)}
		}
		var err error
		if set, err = e.opts.Store.Get(ctx, cmd.Label); err != nil {
			return Reply{Err: err}
		}
	}

	r := e.opts.Replayer
	if r.Locator == nil {
		r.Locator = e.opts.Locator
		r.Query = e.opts.Query
	}
	r.OnProgress = func(p replay.Progress) {
		select {
		case e.progress <- p:
		case <-e.stopped:
		}
	}

	rctx, cancel := context.WithCancel(e.ctx)
	e.replayCancel = cancel
	go func() {
		defer cancel()
		report, err := r.Replay(rctx, set)
		e.replayed <- replayOutcome{report: report, err: err}
	}()

	log.Printf("Engine: Replaying %d entries", len(set.Entries))
	return Reply{Set: set, Status: e.status()}
}

func (e *Engine) handleEvent(ev hook.Event) {
	switch ev.Kind {
	case hook.EventKey:
		e.hotkeys.UpdateState(ev.Key.Key, ev.Key.Pressed)
	case hook.EventPointer:
		e.pointer(ev.Pointer)
	}
}

func (e *Engine) pointer(ev coords.HookEvent) {
	if e.session == nil {
		return
	}
	if req, ok := e.session.HandlePointer(ev); ok {
		e.confirmed(req)
	}
}

func (e *Engine) signal(sig capture.Signal) {
	if e.session == nil {
		return
	}
	before := e.session.Phase()
	if req, ok := e.session.HandleSignal(sig); ok {
		e.confirmed(req)
	}
	after := e.session.Phase()
	if after == before {
		return
	}
	e.notify(Notice{Kind: NoticePhase, Phase: after})
	if after == capture.PhaseClosed {
		e.releaseBridge()
		e.notify(Notice{Kind: NoticeClosed, Entries: e.session.Len()})
	}
}

// confirmed notifies and starts the value probe for a new entry
func (e *Engine) confirmed(req capture.ProbeRequest) {
	e.notify(Notice{Kind: NoticeConfirmed, Slot: req.Slot, Point: req.Absolute})

	ctx, gen := e.ctx, e.gen
	go func() {
		res := capture.RunProbe(ctx, e.opts.Prober, req, e.opts.ProbeTimeout, e.opts.Classify)
		select {
		case e.probes <- probeResult{gen: gen, res: res}:
		case <-e.stopped:
		}
	}()
}

func (e *Engine) bridgeExited() {
	s := e.stream
	e.stream = nil
	for ev := range s.Events() {
		e.handleEvent(ev)
	}
	err := s.Err()
	if e.opts.Bridges != nil {
		e.opts.Bridges.Release(s)
	}
	log.Printf("Engine: Hook bridge exited: %v", err)

	if e.recording() {
		e.session.Close()
		e.notify(Notice{Kind: NoticePhase, Phase: capture.PhaseClosed})
		e.notify(Notice{Kind: NoticeClosed, Entries: e.session.Len(), Err: err})
	}
}

func (e *Engine) releaseBridge() {
	if e.stream == nil {
		return
	}
	s := e.stream
	e.stream = nil
	if err := e.opts.Bridges.Release(s); err != nil {
		log.Printf("Engine: Failed to release hook bridge: %v", err)
	}
}

func (e *Engine) shutdown() {
	if e.session != nil {
		e.session.Close()
	}
	e.releaseBridge()
	if e.replayCancel != nil {
		e.replayCancel()
		for {
			select {
			case <-e.progress:
				continue
			case out := <-e.replayed:
				e.notify(Notice{Kind: NoticeReplayDone, Report: out.report, Err: out.err})
			}
			break
		}
		e.replayCancel = nil
	}
	log.Println("Engine: Stopped")
}

func (e *Engine) status() Status {
	st := Status{Replaying: e.replayCancel != nil, Hooked: e.stream != nil, Label: e.label}
	if e.session != nil {
		st.Active = e.recording()
		st.Phase = e.session.Phase()
		st.Mode = e.session.Mode()
		st.Entries = e.session.Len()
		st.Stats = e.session.Stats()
		st.Geometry = e.session.Geometry()
	}
	return st
}
