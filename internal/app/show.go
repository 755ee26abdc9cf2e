package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"clicker/internal/coords"
	"clicker/internal/output"
	"clicker/internal/replay"
)

var showList bool

var showCmd = &cobra.Command{
	Use:   "show [label]",
	Short: "Show a coordinate set",
	Long: `Loads a set through the configured source chain (database first, then
the legacy JSON files) and prints its entries. Absolute positions are
computed against the current window when it can be located.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

var verifyCmd = &cobra.Command{
	Use:   "verify [label]",
	Short: "Show where a replay would click, without clicking",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVerify,
}

func init() {
	showCmd.Flags().BoolVar(&showList, "list", false, "list stored sets instead")

	RootCmd.AddCommand(showCmd)
	RootCmd.AddCommand(verifyCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if showList {
		sets, err := st.Labels(ctx)
		if err != nil {
			return err
		}
		fmt.Fprint(out, output.RenderLabels(sets))
		return nil
	}

	loc := newLocator(cfg, newPlatform())
	set, src, err := loadSet(ctx, cfg, st, loc, labelArg(args, cfg))
	if err != nil {
		return err
	}

	g, err := loc.Locate(ctx, targetQuery(cfg))
	if err != nil {
		fmt.Fprintf(out, "Target window not found; showing relative positions only\n")
		g = coords.WindowGeometry{}
	}
	fmt.Fprintf(out, "Source: %s\n", src)
	fmt.Fprint(out, output.RenderSet(set, g))
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	ctx := cmd.Context()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	loc := newLocator(cfg, newPlatform())
	g, err := loc.Locate(ctx, targetQuery(cfg))
	if err != nil {
		return err
	}
	set, _, err := loadSet(ctx, cfg, st, loc, labelArg(args, cfg))
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output.RenderVerify(replay.Verify(set, g), g))
	return nil
}
