package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"clicker/internal/coords"
	"clicker/internal/store"
)

var (
	purgeMethod string
	purgeAll    bool
	purgeYes    bool
)

var purgeCmd = &cobra.Command{
	Use:   "purge [label]",
	Short: "Remove entries from a stored set",
	Long: `Removes entries captured by one method, or the whole set. Entries of
other methods keep their order and values.

Examples:
  clicker purge --method manual
  clicker purge table --all --yes`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().StringVar(&purgeMethod, "method", "", "remove entries of this method (detected, manual, hotkey, imported)")
	purgeCmd.Flags().BoolVar(&purgeAll, "all", false, "remove the whole set")
	purgeCmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "do not ask for confirmation")

	RootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	if purgeAll == (purgeMethod != "") {
		return fmt.Errorf("specify exactly one of --method or --all")
	}

	cfg := currentConfig()
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	label := labelArg(args, cfg)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	confirm := promptConfirmer(cmd.InOrStdin(), out, purgeYes)

	var removed int
	if purgeAll {
		removed, err = st.PurgeAll(ctx, label, confirm)
	} else {
		method, perr := coords.ParseMethod(purgeMethod)
		if perr != nil {
			return perr
		}
		removed, err = st.PurgeMethod(ctx, label, method, confirm)
	}

	if errors.Is(err, store.ErrAborted) {
		fmt.Fprintln(out, "Purge cancelled.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Removed %d entries from %q\n", removed, label)
	return nil
}
