package commands

import (
	"github.com/spf13/cobra"

	"github.com/teranos/composr/composr"
)

// LoadCmd loads items from the remote store
var LoadCmd = &cobra.Command{
	Use:   "load [virtual-domain-id]",
	Short: "Load items from the remote store",
	Long: `Load phrases, snippets and virtual domains from the remote collection store.

Without an argument every collection is loaded. With a virtual domain id
only that virtual domain and the phrases and snippets it references are
loaded. When the remote is unreachable and snapshot.enabled is set, the
items are restored from the local snapshot instead.

Examples:
  composr load
  composr load booqs:demo!shop
  composr load --restore        # skip the remote, use the snapshot`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLoad,
}

var loadRestoreFlag bool

func init() {
	LoadCmd.Flags().BoolVar(&loadRestoreFlag, "restore", false, "Restore from the local snapshot without contacting the remote")
}

func runLoad(cmd *cobra.Command, args []string) error {
	core, err := openCore(!loadRestoreFlag)
	if err != nil {
		return err
	}
	defer core.Close()

	ctx := cmd.Context()
	var report *composr.Report
	switch {
	case loadRestoreFlag:
		report, err = core.Restore(ctx)
	case len(args) == 1:
		report, err = core.BootstrapVirtualDomain(ctx, args[0])
	default:
		report, err = core.Bootstrap(ctx)
	}
	if err != nil {
		return err
	}

	return printRows(cmd, cmd.OutOrStdout(), reportRows(report))
}
