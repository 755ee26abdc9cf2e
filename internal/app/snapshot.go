package app

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/kbinani/screenshot"
	"github.com/spf13/cobra"
)

var (
	snapshotOutput string
	snapshotVia    string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Save a PNG of the target window",
	Long: `Captures the located target window from the screen, or with --via browser
the automation page's viewport. Useful for checking a recording against
what is actually on screen.`,
	Args: cobra.NoArgs,
	RunE: runSnapshot,
}

func init() {
	snapshotCmd.Flags().StringVarP(&snapshotOutput, "output", "o", "snapshot.png", "output file, - for stdout")
	snapshotCmd.Flags().StringVar(&snapshotVia, "via", "os", "capture source: os or browser")

	RootCmd.AddCommand(snapshotCmd)
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	ctx := cmd.Context()

	var data []byte
	switch snapshotVia {
	case "os":
		g, err := newLocator(cfg, newPlatform()).Locate(ctx, targetQuery(cfg))
		if err != nil {
			return err
		}
		img, err := screenshot.CaptureRect(image.Rect(g.Origin.X, g.Origin.Y, g.Origin.X+g.Width, g.Origin.Y+g.Height))
		if err != nil {
			return fmt.Errorf("failed to capture %s: %w", g, err)
		}
		return writeSnapshot(cmd, func(w io.Writer) error { return png.Encode(w, img) })
	case "browser":
		d, err := openPage(ctx, cfg, "")
		if err != nil {
			return err
		}
		defer d.Close()
		if data, err = d.Screenshot(ctx); err != nil {
			return err
		}
		return writeSnapshot(cmd, func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		})
	}
	return fmt.Errorf("unknown capture source %q (use os or browser)", snapshotVia)
}

func writeSnapshot(cmd *cobra.Command, encode func(io.Writer) error) error {
	if snapshotOutput == "-" {
		return encode(cmd.OutOrStdout())
	}
	f, err := os.Create(snapshotOutput)
	if err != nil {
		return err
	}
	if err := encode(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", snapshotOutput)
	return nil
}
