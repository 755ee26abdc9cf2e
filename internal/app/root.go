package app

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"clicker/internal/config"
	"clicker/internal/platform"
)

var (
	version = "0.3.0"

	configPath string
	dbPath     string
	quiet      bool

	cfgMgr *config.Manager

	// newPlatform is replaced in tests
	newPlatform = platform.New

	// RootCmd is the root command for clicker
	RootCmd = &cobra.Command{
		Use:     "clicker",
		Short:   "Capture and replay clicks relative to a target window",
		Version: version,
		Long: `clicker locates a target application window, records pointer input
relative to it and replays the recorded points with humanized timing.

Coordinates are stored as fractions of the window size, so a recording
keeps working after the window is moved or resized.

Quick Start:
  1. clicker doctor                 # check hooks, shell and browser access
  2. clicker record --mode hotkey   # S start, click, E confirm, Q quit
  3. clicker show
  4. clicker replay --countdown 3

Examples:
  # Record every click in the target window
  clicker record --mode direct

  # Seed a recording with elements detected in the automation browser
  clicker record --hybrid

  # Remove only hand-captured points
  clicker purge --method manual`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if quiet {
				log.SetOutput(io.Discard)
			}
			return loadConfig()
		},
	}
)

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: per-user clicker/config.json)")
	RootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default: ~/.clicker/clicker.db)")
	RootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress diagnostic logging")

	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command until it finishes or the process is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return RootCmd.ExecuteContext(ctx)
}

func loadConfig() error {
	if configPath != "" {
		cfgMgr = config.NewManagerAt(configPath)
	} else {
		m, err := config.NewManager()
		if err != nil {
			return err
		}
		cfgMgr = m
	}
	cfgMgr.RegisterChangeCallback(func() {
		if err := cfgMgr.Get().Validate(); err != nil {
			log.Printf("Warning: config %s: %v", cfgMgr.Path(), err)
		}
	})
	if err := cfgMgr.Load(); err != nil {
		log.Printf("Warning: failed to load config: %v", err)
	}
	return nil
}
