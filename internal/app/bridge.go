package app

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"clicker/internal/hook"
)

var (
	bridgeProcess  string
	bridgeTitle    string
	bridgeStopFile string
)

// bridgeCmd is the child side of the hook bridge. It writes JSON lines to
// stdout and is started by the parent, never by hand.
var bridgeCmd = &cobra.Command{
	Use:    hook.ChildCommand,
	Short:  "Run the global input hook and stream events to stdout",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return hook.RunChild(cmd.Context(), newPlatform(), hook.ChildOptions{
			ProcessHints: splitHints(bridgeProcess),
			TitleHints:   splitHints(bridgeTitle),
			StopFile:     bridgeStopFile,
			Stdin:        os.Stdin,
		}, os.Stdout)
	},
}

func init() {
	bridgeCmd.Flags().StringVar(&bridgeProcess, "process", "", "comma-separated process hints")
	bridgeCmd.Flags().StringVar(&bridgeTitle, "title", "", "comma-separated title hints")
	bridgeCmd.Flags().StringVar(&bridgeStopFile, "stop-file", "", "stop marker path")

	RootCmd.AddCommand(bridgeCmd)
}

func splitHints(s string) []string {
	var out []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			out = append(out, h)
		}
	}
	return out
}
