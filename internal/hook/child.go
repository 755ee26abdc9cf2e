package hook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"clicker/internal/platform"
	"clicker/internal/protocol"
)

// ChildOptions configures the bridge child process
type ChildOptions struct {
	ProcessHints []string
	TitleHints   []string
	StopFile     string
	// Stdin closing is a second stop sentinel; nil disables it
	Stdin io.Reader
}

// RunChild installs the global hooks and streams accepted events to out
// until ctx ends, the stop marker appears or stdin closes.
func RunChild(ctx context.Context, plat platform.Platform, opts ChildOptions, out io.Writer) error {
	w := protocol.NewWriter(out)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.StopFile != "" {
		stopped, err := watchStopFile(ctx, opts.StopFile)
		if err != nil {
			w.Send(protocol.Message{Type: protocol.TypeError, Code: protocol.CodeBadArgs, Message: err.Error()})
			return err
		}
		go func() {
			select {
			case <-stopped:
				log.Printf("Hook Bridge: Stop marker %s detected", opts.StopFile)
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if opts.Stdin != nil {
		go func() {
			io.Copy(io.Discard, opts.Stdin)
			log.Println("Hook Bridge: Parent closed stdin")
			cancel()
		}()
	}

	h, err := plat.InstallHook(platform.HookHandler{
		OnPointer: func(ev platform.PointerEvent) {
			if !platform.MatchesTarget(ev.Process, ev.Title, opts.ProcessHints, opts.TitleHints) {
				return
			}
			w.Send(protocol.Message{
				Type:    protocol.TypePointer,
				X:       ev.X,
				Y:       ev.Y,
				Ticks:   ev.Ticks,
				Process: ev.Process,
				Title:   ev.Title,
			})
		},
		OnKey: func(ev platform.KeyEvent) {
			w.Send(protocol.Message{Type: protocol.TypeKey, Key: ev.Key, Pressed: ev.Pressed})
		},
	})
	if err != nil {
		code := protocol.CodeHookFailed
		if errors.Is(err, platform.ErrUnsupported) {
			code = protocol.CodeUnsupported
		}
		w.Send(protocol.Message{Type: protocol.TypeError, Code: code, Message: err.Error()})
		return fmt.Errorf("failed to install hook: %w", err)
	}

	if err := w.Send(protocol.Message{Type: protocol.TypeReady}); err != nil {
		h.Uninstall()
		return fmt.Errorf("failed to acknowledge hook: %w", err)
	}
	log.Println("Hook Bridge: Hooks active, streaming events")

	<-ctx.Done()

	if err := h.Uninstall(); err != nil {
		log.Printf("Hook Bridge: Uninstall failed: %v", err)
	}
	w.Send(protocol.Message{Type: protocol.TypeBye})
	return nil
}

// watchStopFile signals once path is created
func watchStopFile(ctx context.Context, path string) (<-chan struct{}, error) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create stop marker directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	stopped := make(chan struct{})
	go func() {
		defer watcher.Close()

		// The marker may have been written before the watch was in place
		if _, err := os.Stat(path); err == nil {
			close(stopped)
			return
		}

		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) == path && ev.Op&(fsnotify.Create|fsnotify.Write) != 0 {
					close(stopped)
					return
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("Hook Bridge: Watcher error: %v", err)
			case <-ctx.Done():
				return
			}
		}
	}()

	return stopped, nil
}
