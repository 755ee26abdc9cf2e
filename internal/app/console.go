package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clicker/internal/capture"
	"clicker/internal/config"
	"clicker/internal/detect"
	"clicker/internal/engine"
	"clicker/internal/hook"
	"clicker/internal/output"
	"clicker/internal/platform"
	"clicker/internal/replay"
	"clicker/internal/store"
)

var (
	errEmptyLine = errors.New("empty line")
	errHelp      = errors.New("help requested")
)

const consoleHelp = `Commands:
  record [hotkey|direct] [label]   begin a capture session
  start | stop | cancel            capture signals (same as the hotkeys)
  mark X Y                         enter an absolute point by hand
  relocate                         re-locate the window for later points
  save [label]                     close the session and save it
  replay [label]                   replay a saved set in the background
  cancel-replay                    stop issuing replay clicks
  status                           show session and replay state
  quit                             save any open session and exit
`

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Interactive operator console",
	Long: `Starts the engine and reads commands from stdin. Capture hotkeys work
while the console runs; typed commands and hook events are handled by the
same loop.

` + consoleHelp,
	Args: cobra.NoArgs,
	RunE: runConsole,
}

func init() {
	RootCmd.AddCommand(consoleCmd)
}

func hotkeysOf(cfg *config.Config) engine.Hotkeys {
	return engine.Hotkeys{
		Start:  cfg.Capture.StartHotkey,
		Stop:   cfg.Capture.StopHotkey,
		Cancel: cfg.Capture.CancelHotkey,
	}
}

// newEngine wires the engine to the platform, the store and the hook bridge
func newEngine(cfg *config.Config, plat platform.Platform, st *store.Store, prober capture.Prober, notify func(engine.Notice)) *engine.Engine {
	q := targetQuery(cfg)
	minDelay, maxDelay := cfg.ReplayDelays()
	return engine.New(engine.Options{
		Locator: newLocator(cfg, plat),
		Query:   q,
		Bridges: engine.OwnerBridges{
			Owner: hook.NewOwner(),
			Options: hook.Options{
				ProcessHints: q.ProcessHints,
				TitleHints:   q.TitleHints,
				StartTimeout: cfg.HookStartTimeout(),
				StopGrace:    cfg.HookStopGrace(),
			},
		},
		Prober:       prober,
		Classify:     detect.ClassifyValue,
		ProbeTimeout: cfg.ProbeTimeout(),
		Debounce:     cfg.Debounce(),
		Hotkeys:      hotkeysOf(cfg),
		Store:        st,
		Replayer: replay.Replayer{
			Clicker:   replay.OSClicker{Platform: plat},
			MinDelay:  minDelay,
			MaxDelay:  maxDelay,
			Countdown: cfg.Replay.CountdownSeconds,
		},
		Notify: notify,
	})
}

// parseLine turns a console line into an engine command
func parseLine(line, label string) (engine.Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return engine.Command{}, errEmptyLine
	}
	arg := func(n int, def string) string {
		if len(fields) > n {
			return fields[n]
		}
		return def
	}

	switch strings.ToLower(fields[0]) {
	case "record":
		mode, err := capture.ParseMode(arg(1, "hotkey"))
		if err != nil {
			return engine.Command{}, err
		}
		return engine.Command{Kind: engine.KindRecord, Mode: mode, Label: arg(2, label)}, nil
	case "start":
		return engine.Command{Kind: engine.KindSignal, Signal: capture.SignalStart}, nil
	case "stop":
		return engine.Command{Kind: engine.KindSignal, Signal: capture.SignalStop}, nil
	case "cancel":
		return engine.Command{Kind: engine.KindSignal, Signal: capture.SignalCancel}, nil
	case "mark":
		if len(fields) != 3 {
			return engine.Command{}, fmt.Errorf("usage: mark X Y")
		}
		x, errX := strconv.Atoi(fields[1])
		y, errY := strconv.Atoi(fields[2])
		if errX != nil || errY != nil {
			return engine.Command{}, fmt.Errorf("mark needs integer screen coordinates, got %q %q", fields[1], fields[2])
		}
		cmd := engine.Command{Kind: engine.KindPoint}
		cmd.Point.X, cmd.Point.Y = x, y
		return cmd, nil
	case "relocate", "locate":
		return engine.Command{Kind: engine.KindRelocate}, nil
	case "save", "finish":
		return engine.Command{Kind: engine.KindFinish, Label: arg(1, "")}, nil
	case "replay":
		return engine.Command{Kind: engine.KindReplay, Label: arg(1, label)}, nil
	case "cancel-replay":
		return engine.Command{Kind: engine.KindCancelReplay}, nil
	case "status":
		return engine.Command{Kind: engine.KindStatus}, nil
	case "quit", "exit":
		return engine.Command{Kind: engine.KindQuit}, nil
	case "help", "?":
		return engine.Command{}, errHelp
	}
	return engine.Command{}, fmt.Errorf("unknown command %q (type 'help')", fields[0])
}

// readLines forwards lines from in until EOF or done
func readLines(in io.Reader, done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
	}()
	return lines
}

// operate feeds console lines to eng until quit, EOF, ctx end or closed fires.
// Any session still open is saved before returning.
func operate(ctx context.Context, eng *engine.Engine, in io.Reader, out io.Writer, label string, closed <-chan struct{}) error {
	done := make(chan struct{})
	defer close(done)
	lines := readLines(in, done)

loop:
	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "Interrupted")
			break loop
		case <-closed:
			break loop
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			cmd, err := parseLine(line, label)
			switch {
			case errors.Is(err, errEmptyLine):
				continue
			case errors.Is(err, errHelp):
				fmt.Fprint(out, consoleHelp)
				continue
			case err != nil:
				fmt.Fprint(out, output.RenderError(err))
				continue
			}
			if cmd.Kind == engine.KindQuit {
				break loop
			}

			r, err := eng.Do(context.Background(), cmd)
			if err != nil {
				fmt.Fprint(out, output.RenderError(err))
				continue
			}
			printReply(out, cmd, r)
		}
	}

	return finish(eng, out)
}

func printReply(out io.Writer, cmd engine.Command, r engine.Reply) {
	switch cmd.Kind {
	case engine.KindRecord:
		fmt.Fprint(out, output.RenderGeometry(r.Geometry))
		if r.Warning != nil {
			fmt.Fprint(out, output.RenderError(r.Warning))
			fmt.Fprintln(out, "Continuing in manual-entry mode: use 'mark X Y' for each point.")
		}
	case engine.KindRelocate:
		fmt.Fprint(out, output.RenderGeometry(r.Geometry))
	case engine.KindFinish:
		fmt.Fprint(out, output.RenderSet(r.Set, r.Set.Geometry))
	case engine.KindReplay:
		fmt.Fprintf(out, "Replaying %d entries\n", len(r.Set.Entries))
	case engine.KindStatus:
		fmt.Fprint(out, describeStatus(r.Status))
	}
}

// finish saves an open or closed-but-unsaved session, then stops the engine
func finish(eng *engine.Engine, out io.Writer) error {
	ctx := context.Background()
	defer eng.Do(ctx, engine.Command{Kind: engine.KindQuit})

	r, err := eng.Do(ctx, engine.Command{Kind: engine.KindFinish})
	if errors.Is(err, engine.ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(r.Set.Entries) == 0 {
		fmt.Fprintln(out, "Nothing captured.")
		return nil
	}
	fmt.Fprint(out, output.RenderSet(r.Set, r.Set.Geometry))
	fmt.Fprintf(out, "Saved %d entries as %q\n", len(r.Set.Entries), r.Set.Label)
	return nil
}

func runConsole(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	out := &syncWriter{w: cmd.OutOrStdout()}
	hk := hotkeysOf(cfg)
	eng := newEngine(cfg, newPlatform(), st, capture.NopProber{}, func(n engine.Notice) {
		fmt.Fprint(out, describeNotice(n, hk))
	})

	engCtx, cancel := context.WithCancel(context.WithoutCancel(cmd.Context()))
	defer cancel()
	go func() {
		if err := eng.Run(engCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Engine: %v", err)
		}
	}()

	fmt.Fprintln(out, "clicker console; type 'help' for commands")
	return operate(cmd.Context(), eng, cmd.InOrStdin(), out, cfg.Store.DefaultLabel, nil)
}
