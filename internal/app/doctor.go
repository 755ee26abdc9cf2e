package app

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"clicker/internal/coords"
	"clicker/internal/diag"
	"clicker/internal/output"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check whether this machine can capture and replay",
	Long: `Runs capability checks, each bounded to 10 seconds:

  • shell command execution
  • PowerShell execution policy (Windows) or elevation (elsewhere)
  • installing and removing a global input hook
  • locating the target window
  • automation browser handshake
  • coordinate store access
  • screen capture

Checks are advisory. The command exits 1 only when a critical check fails.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	RootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	out := cmd.OutOrStdout()

	plat := newPlatform()
	loc := newLocator(cfg, plat)
	locate := func(ctx context.Context) (coords.WindowGeometry, error) {
		return loc.Locate(ctx, targetQuery(cfg))
	}
	storeCheck := func() error {
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		return st.Ping()
	}

	fmt.Fprintln(out, "Running clicker diagnostics...")
	fmt.Fprintln(out)

	checks := diag.Run(cmd.Context(), diag.DefaultProbes(plat, locate, cfg.Driver.Endpoint, storeCheck))
	fmt.Fprint(out, output.RenderChecks(checks))

	if diag.Critical(checks) {
		return fmt.Errorf("critical checks failed")
	}
	return nil
}
