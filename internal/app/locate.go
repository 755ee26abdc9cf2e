package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"clicker/internal/locator"
	"clicker/internal/output"
	"clicker/internal/replay"
)

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Find the target window and print its geometry",
	Long: `Finds the target window by process name, then title, then window class,
using the hints from the configuration.`,
	Args: cobra.NoArgs,
	RunE: runLocate,
}

var recalibrateSave bool

var recalibrateCmd = &cobra.Command{
	Use:   "recalibrate [label]",
	Short: "Compare the saved window geometry with the current one",
	Long: `Re-locates the target window, reports whether it moved or was resized
since the set was captured and shows where every entry lands now.

Relative coordinates need no adjustment; --save records the new geometry
with the set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecalibrate,
}

func init() {
	recalibrateCmd.Flags().BoolVar(&recalibrateSave, "save", false, "store the current geometry with the set")

	RootCmd.AddCommand(locateCmd)
	RootCmd.AddCommand(recalibrateCmd)
}

func runLocate(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	g, err := newLocator(cfg, newPlatform()).Locate(cmd.Context(), targetQuery(cfg))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output.RenderGeometry(g))
	return nil
}

func runRecalibrate(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	ctx := cmd.Context()
	label := labelArg(args, cfg)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	loc := newLocator(cfg, newPlatform())
	cur, err := loc.Locate(ctx, targetQuery(cfg))
	if err != nil {
		return err
	}
	set, src, err := loadSet(ctx, cfg, st, loc, label)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Loaded %d entries from %s\n", len(set.Entries), src)
	fmt.Fprint(out, output.RenderChange(set.Geometry, cur, locator.Compare(set.Geometry, cur)))
	fmt.Fprint(out, output.RenderVerify(replay.Verify(set, cur), cur))

	if recalibrateSave {
		set.Geometry = cur
		if err := st.Save(ctx, set, label); err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved geometry %s with %q\n", cur, label)
	}
	return nil
}
