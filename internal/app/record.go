package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"clicker/internal/capture"
	"clicker/internal/coords"
	"clicker/internal/detect"
	"clicker/internal/driver"
	"clicker/internal/engine"
	"clicker/internal/osutils"
)

var (
	recordMode    string
	recordHybrid  bool
	recordNoHook  bool
	recordElevate bool
)

var recordCmd = &cobra.Command{
	Use:   "record [label]",
	Short: "Capture click positions relative to the target window",
	Long: `Locates the target window and captures clicks inside it.

Modes:
  hotkey  press the start hotkey (S), click the target, press the stop
          hotkey (E) to confirm; the last click before the stop wins.
          The cancel hotkey (Q) ends the session.
  direct  every click inside the window becomes an entry, in order.
          Type 'stop' or press the stop hotkey to end the session.

With --hybrid, elements detected in the automation browser seed the set
and each captured entry's value is read from the element under it.

If the global hook cannot start, points can still be entered with
'mark X Y'. Confirmed entries are saved when the session ends.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecord,
}

func init() {
	recordCmd.Flags().StringVar(&recordMode, "mode", "hotkey", "capture mode: hotkey or direct")
	recordCmd.Flags().BoolVar(&recordHybrid, "hybrid", false, "seed with detected elements and probe captured values")
	recordCmd.Flags().BoolVar(&recordNoHook, "no-hook", false, "skip the global hook; enter points with 'mark X Y'")
	recordCmd.Flags().BoolVar(&recordElevate, "elevate", false, "relaunch with administrator rights before recording")

	RootCmd.AddCommand(recordCmd)
}

func runRecord(cmd *cobra.Command, args []string) error {
	if recordElevate && !osutils.IsAdmin() {
		relaunch := append([]string{"record", "--mode", recordMode}, args...)
		if recordHybrid {
			relaunch = append(relaunch, "--hybrid")
		}
		return osutils.RelaunchElevated(relaunch)
	}

	cfg := currentConfig()
	ctx := cmd.Context()
	label := labelArg(args, cfg)
	out := &syncWriter{w: cmd.OutOrStdout()}

	mode, err := capture.ParseMode(recordMode)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var prober capture.Prober = capture.NopProber{}
	var seed []coords.CoordinateEntry
	if recordHybrid {
		d, err := openPage(ctx, cfg, "")
		if err != nil {
			return err
		}
		defer d.Close()

		res, err := detect.Detect(ctx, d)
		if err != nil {
			return err
		}
		seed = res.Entries
		prober = driver.ElementProbe{Driver: d}
		fmt.Fprintf(out, "Seeded %d detected entries", len(seed))
		if res.Simulated {
			fmt.Fprintf(out, " (simulated layout, %d elements found)", res.Found)
		}
		fmt.Fprintln(out)
	}

	hk := hotkeysOf(cfg)
	closed := make(chan struct{}, 1)
	eng := newEngine(cfg, newPlatform(), st, prober, func(n engine.Notice) {
		fmt.Fprint(out, describeNotice(n, hk))
		if n.Kind == engine.NoticeClosed {
			select {
			case closed <- struct{}{}:
			default:
			}
		}
	})

	// The engine outlives an interrupt so confirmed entries can still be saved
	engCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()
	go func() {
		if err := eng.Run(engCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Engine: %v", err)
		}
	}()

	r, err := eng.Do(ctx, engine.Command{Kind: engine.KindRecord, Mode: mode, Seed: seed, NoHook: recordNoHook, Label: label})
	if err != nil {
		eng.Do(context.Background(), engine.Command{Kind: engine.KindQuit})
		return err
	}
	printReply(out, engine.Command{Kind: engine.KindRecord}, r)

	if mode == capture.ModeDirect {
		fmt.Fprintf(out, "Click inside the window; type 'stop' or press %s when done.\n", hk.Stop)
	}
	if recordNoHook && r.Warning == nil {
		fmt.Fprintln(out, "Hook disabled: use 'mark X Y' for each point.")
	}

	return operate(ctx, eng, cmd.InOrStdin(), out, label, closed)
}
