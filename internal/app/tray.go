package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"clicker/internal/capture"
	"clicker/internal/engine"
	"clicker/internal/tray"
)

var trayCmd = &cobra.Command{
	Use:   "tray [label]",
	Short: "Run the engine behind a system tray menu",
	Long: `Shows a tray icon whose menu starts and stops capture sessions and
replays for label. The tooltip follows the engine's progress. Sessions
still open when the tray quits are saved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTray,
}

func init() {
	RootCmd.AddCommand(trayCmd)
}

func runTray(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	label := labelArg(args, cfg)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	out := &syncWriter{w: cmd.OutOrStdout()}
	hk := hotkeysOf(cfg)
	t := tray.New("clicker", "clicker: idle")
	eng := newEngine(cfg, newPlatform(), st, capture.NopProber{}, func(n engine.Notice) {
		msg := strings.TrimSpace(describeNotice(n, hk))
		if msg == "" {
			return
		}
		fmt.Fprintln(out, msg)
		t.SetStatus("clicker: " + firstLine(msg))
	})

	engCtx, cancel := context.WithCancel(context.WithoutCancel(cmd.Context()))
	defer cancel()
	go func() {
		if err := eng.Run(engCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Engine: %v", err)
		}
	}()

	t.Add(tray.EngineMenu(eng, label, t.Stop)...)
	t.OnQuit(func() { log.Println("Tray: Exited") })

	go func() {
		select {
		case <-cmd.Context().Done():
			t.Stop()
		case <-eng.Done():
		}
	}()

	t.Run()
	if err := finish(eng, out); err != nil && !errors.Is(err, engine.ErrStopped) {
		return err
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
