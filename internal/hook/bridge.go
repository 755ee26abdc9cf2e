// Package hook runs the global input hook in an isolated child process and
// streams its events back to the engine.
package hook

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"clicker/internal/coords"
	"clicker/internal/fault"
	"clicker/internal/platform"
	"clicker/internal/protocol"
)

// ChildCommand is the hidden subcommand that runs RunChild
const ChildCommand = "hook-bridge"

// Options configures a bridge
type Options struct {
	ProcessHints []string
	TitleHints   []string

	// StopFile is the shutdown marker watched by the child
	StopFile string

	// StartTimeout bounds the wait for the child's ready line
	StartTimeout time.Duration

	// StopGrace is how long the child may take to exit before it is killed
	StopGrace time.Duration

	// Command builds the child process; defaults to re-executing this binary
	Command func(args []string) *exec.Cmd
}

// DefaultStopFile returns a per-process marker path under the temp dir
func DefaultStopFile() string {
	return filepath.Join(os.TempDir(), "clicker", fmt.Sprintf("stop_hook_bridge_%d.tmp", os.Getpid()))
}

// ChildArgs encodes the options as child command-line arguments
func (o Options) ChildArgs() []string {
	return []string{
		ChildCommand,
		"--process", strings.Join(o.ProcessHints, ","),
		"--title", strings.Join(o.TitleHints, ","),
		"--stop-file", o.StopFile,
	}
}

func selfCommand(args []string) *exec.Cmd {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	return exec.Command(exe, args...)
}

// EventKind distinguishes bridge events
type EventKind int

const (
	EventPointer EventKind = iota
	EventKey
)

// Event is one pointer or key event received from the child
type Event struct {
	Kind    EventKind
	Pointer coords.HookEvent
	Key     platform.KeyEvent
}

// Bridge is a handle on a running hook bridge child
type Bridge struct {
	opts   Options
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	events chan Event
	ready  chan struct{}
	failed chan protocol.Message
	exited chan struct{}
	quit   chan struct{}

	mu            sync.Mutex
	stopRequested bool
	exitErr       error
	stopOnce      sync.Once
}

// Start launches the child and waits for its acknowledgement.
// Failure to acknowledge is a HookBridge fault; the child is never left running.
func Start(ctx context.Context, opts Options) (*Bridge, error) {
	if opts.StopFile == "" {
		opts.StopFile = DefaultStopFile()
	}
	if opts.StartTimeout <= 0 {
		opts.StartTimeout = 5 * time.Second
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = time.Second
	}
	if opts.Command == nil {
		opts.Command = selfCommand
	}

	if err := os.MkdirAll(filepath.Dir(opts.StopFile), 0755); err != nil {
		return nil, fault.HookBridge("start", "cannot create stop marker directory", "", err)
	}
	if err := os.Remove(opts.StopFile); err != nil && !os.IsNotExist(err) {
		return nil, fault.HookBridge("start", "cannot remove stale stop marker", "", err)
	}

	cmd := opts.Command(opts.ChildArgs())
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open child stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open child stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open child stderr: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fault.HookBridge("start", "cannot launch bridge process", "", err)
	}
	log.Printf("Hook Bridge: Started child PID %d", cmd.Process.Pid)

	b := &Bridge{
		opts:   opts,
		cmd:    cmd,
		stdin:  stdin,
		events: make(chan Event, 1000),
		ready:  make(chan struct{}),
		failed: make(chan protocol.Message, 1),
		exited: make(chan struct{}),
		quit:   make(chan struct{}),
	}
	go b.run(stdout, stderr)

	timer := time.NewTimer(opts.StartTimeout)
	defer timer.Stop()

	select {
	case <-b.ready:
		log.Println("Hook Bridge: Hook active")
		return b, nil
	case msg := <-b.failed:
		b.Stop()
		return nil, fault.HookBridge("start", fmt.Sprintf("hook install failed (%s): %s", msg.Code, msg.Message), "", nil)
	case <-b.exited:
		return nil, fault.HookBridge("start", "bridge exited before acknowledging", "", b.Err())
	case <-timer.C:
		b.Stop()
		return nil, fault.HookBridge("start",
			fmt.Sprintf("no acknowledgement within %v", opts.StartTimeout),
			"Elevated privileges may be required for global hooks: run as administrator, or continue in manual-entry mode",
			nil)
	case <-ctx.Done():
		b.Stop()
		return nil, ctx.Err()
	}
}

// run pumps child output until it exits
func (b *Bridge) run(stdout, stderr io.Reader) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			log.Printf("Hook Bridge [child]: %s", scanner.Text())
		}
	}()

	readyOnce := sync.Once{}
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		msg, err := protocol.Decode(scanner.Bytes())
		if err != nil {
			log.Printf("Hook Bridge: %v", err)
			continue
		}

		switch msg.Type {
		case protocol.TypeReady:
			readyOnce.Do(func() { close(b.ready) })
		case protocol.TypeError:
			log.Printf("Hook Bridge: Child reported %s: %s", msg.Code, msg.Message)
			select {
			case b.failed <- msg:
			default:
			}
		case protocol.TypePointer:
			b.deliver(Event{Kind: EventPointer, Pointer: coords.HookEvent{
				Absolute:     coords.Point{X: msg.X, Y: msg.Y},
				Ticks:        msg.Ticks,
				ProcessLabel: msg.Process,
				Title:        msg.Title,
			}})
		case protocol.TypeKey:
			b.deliver(Event{Kind: EventKey, Key: platform.KeyEvent{Key: msg.Key, Pressed: msg.Pressed}})
		case protocol.TypeBye:
			log.Println("Hook Bridge: Child signed off")
		}
	}

	wg.Wait()
	err := b.cmd.Wait()

	b.mu.Lock()
	if !b.stopRequested {
		b.exitErr = fault.HookBridge("stream", "bridge exited unexpectedly", "Restart the capture session; confirmed entries were kept", err)
	}
	b.mu.Unlock()

	close(b.events)
	close(b.exited)
}

// deliver hands an event to the consumer; events are dropped once Stop begins
func (b *Bridge) deliver(ev Event) {
	select {
	case b.events <- ev:
	case <-b.quit:
	}
}

// Events delivers pointer and key events; it is closed when the child exits
func (b *Bridge) Events() <-chan Event {
	return b.events
}

// Done is closed once the child has exited
func (b *Bridge) Done() <-chan struct{} {
	return b.exited
}

// Err reports why the child exited; nil after a requested stop
func (b *Bridge) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exitErr
}

// Exited reports whether the child is gone
func (b *Bridge) Exited() bool {
	select {
	case <-b.exited:
		return true
	default:
		return false
	}
}

// PID returns the child process id
func (b *Bridge) PID() int {
	return b.cmd.Process.Pid
}

// Stop writes the stop marker, closes stdin and waits for the child to
// exit within the grace period, killing it otherwise
func (b *Bridge) Stop() error {
	var stopErr error
	b.stopOnce.Do(func() {
		b.mu.Lock()
		b.stopRequested = true
		b.mu.Unlock()
		close(b.quit)

		if err := os.WriteFile(b.opts.StopFile, []byte("stop\n"), 0644); err != nil {
			log.Printf("Hook Bridge: Failed to write stop marker: %v", err)
		}
		b.stdin.Close()

		grace := time.NewTimer(b.opts.StopGrace)
		defer grace.Stop()

		select {
		case <-b.exited:
			log.Println("Hook Bridge: Child exited cleanly")
		case <-grace.C:
			log.Printf("Hook Bridge: Child did not exit within %v, killing PID %d", b.opts.StopGrace, b.cmd.Process.Pid)
			if err := b.cmd.Process.Kill(); err != nil {
				stopErr = fmt.Errorf("failed to kill hook bridge: %w", err)
			}
			<-b.exited
		}

		os.Remove(b.opts.StopFile)
	})
	return stopErr
}
