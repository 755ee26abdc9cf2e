package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"clicker/internal/store"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export [label]",
	Short: "Write a set as absolute clicks for the current window",
	Long: `Writes the physical-clicks JSON format: one click per entry with its
absolute position at the current window geometry, plus metadata. When the
window cannot be located the geometry saved with the set is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "clicks_fisicos.json", "output file, or - for stdout")

	RootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	ctx := cmd.Context()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	loc := newLocator(cfg, newPlatform())
	set, _, err := loadSet(ctx, cfg, st, loc, labelArg(args, cfg))
	if err != nil {
		return err
	}

	g, err := loc.Locate(ctx, targetQuery(cfg))
	if err != nil {
		if set.Geometry.Degenerate() {
			return err
		}
		g = set.Geometry
		fmt.Fprintf(cmd.ErrOrStderr(), "Target window not found; exporting against saved geometry %s\n", g)
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "-" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOut, err)
		}
		defer f.Close()
		w = f
	}

	if err := store.Export(w, set, g); err != nil {
		return err
	}
	if exportOut != "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d clicks to %s\n", len(set.Entries), exportOut)
	}
	return nil
}
