package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"clicker/internal/detect"
	"clicker/internal/output"
)

var detectSave bool

var detectCmd = &cobra.Command{
	Use:   "detect [label]",
	Short: "Detect betting-grid elements in the automation browser",
	Long: `Opens the target page in the automation browser and looks for number
and outer-bet elements. When fewer than 10 are recognised a simulated
standard layout is produced instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDetect,
}

var openCmd = &cobra.Command{
	Use:   "open [url]",
	Short: "Open the target page in the automation browser",
	Long: `Connects to the browser's DevTools endpoint and opens the page in a new
tab sized to the configured viewport. The browser must be started with
--remote-debugging-port.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOpen,
}

func init() {
	detectCmd.Flags().BoolVar(&detectSave, "save", true, "save the detected set")

	RootCmd.AddCommand(detectCmd)
	RootCmd.AddCommand(openCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	label := labelArg(args, cfg)

	d, err := openPage(ctx, cfg, "")
	if err != nil {
		return err
	}
	defer d.Close()

	res, err := detect.Detect(ctx, d)
	if err != nil {
		return err
	}
	if res.Simulated {
		fmt.Fprintf(out, "Only %d elements recognised; using the simulated layout\n", res.Found)
	}

	set := detect.Set(res, label)
	fmt.Fprint(out, output.RenderSet(set, res.Viewport))

	if !detectSave {
		return nil
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Save(ctx, set, label); err != nil {
		return err
	}
	fmt.Fprintf(out, "Saved %d entries as %q\n", len(set.Entries), label)
	return nil
}

func runOpen(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	url := ""
	if len(args) > 0 {
		url = args[0]
	}

	d, err := openPage(cmd.Context(), cfg, url)
	if err != nil {
		return err
	}
	defer d.Close()

	v := d.Version()
	w, h := d.Viewport()
	if url == "" {
		url = cfg.Driver.URL
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Opened %s in %s (%dx%d viewport)\n", url, v.Browser, w, h)
	return nil
}
