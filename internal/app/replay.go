package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"clicker/internal/driver"
	"clicker/internal/output"
	"clicker/internal/replay"
)

var (
	replayVia       string
	replayCountdown int
)

var replayCmd = &cobra.Command{
	Use:   "replay [label]",
	Short: "Click every entry of a set in order",
	Long: `Re-locates the target window, maps each entry's relative point to the
current geometry and clicks it, pausing a random 500-1300ms between clicks.

A failed click is reported and the run continues. Ctrl-C stops issuing
new clicks.

  --via os       synthetic OS clicks (default)
  --via browser  clicks dispatched inside the automation browser page`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayVia, "via", "os", "click through: os or browser")
	replayCmd.Flags().IntVar(&replayCountdown, "countdown", -1, "seconds to wait before the first click (default from config)")

	RootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	plat := newPlatform()
	loc := newLocator(cfg, plat)
	set, src, err := loadSet(ctx, cfg, st, loc, labelArg(args, cfg))
	if err != nil {
		return err
	}

	var clicker replay.Clicker
	switch replayVia {
	case "os":
		clicker = replay.OSClicker{Platform: plat}
	case "browser":
		d, err := openPage(ctx, cfg, "")
		if err != nil {
			return err
		}
		defer d.Close()
		clicker = driver.BrowserClicker{Driver: d}
	default:
		return fmt.Errorf("unknown --via %q (want os or browser)", replayVia)
	}

	countdown := replayCountdown
	if countdown < 0 {
		countdown = cfg.Replay.CountdownSeconds
	}
	minDelay, maxDelay := cfg.ReplayDelays()

	r := replay.Replayer{
		Locator:   loc,
		Query:     targetQuery(cfg),
		Clicker:   clicker,
		MinDelay:  minDelay,
		MaxDelay:  maxDelay,
		Countdown: countdown,
		OnProgress: func(p replay.Progress) {
			fmt.Fprint(out, describeProgress(p))
		},
	}

	fmt.Fprintf(out, "Replaying %d entries from %s\n", len(set.Entries), src)
	report, err := r.Replay(ctx, set)
	if err != nil {
		return err
	}
	fmt.Fprint(out, output.RenderReport(report))
	return nil
}
