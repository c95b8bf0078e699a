package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teranos/composr/cmd/composr/commands"
	"github.com/teranos/composr/logger"
)

var rootCmd = &cobra.Command{
	Use:   "composr",
	Short: "composr - phrase, snippet and virtual domain registry",
	Long: `composr - phrase, snippet and virtual domain registry.

composr loads items from a remote collection store (or local fixture files),
compiles and validates them, and keeps the registered set per domain.

Available commands:
  am       - Show and validate configuration
  load     - Load items from the remote store
  register - Register items from JSON, YAML or TOML fixture files
  list     - List registered items of a domain
  version  - Show build information

Examples:
  composr am show                      # Show current configuration
  composr load                         # Load every collection
  composr load booqs:demo!shop         # Load one virtual domain and its items
  composr register phrases.yaml        # Register fixtures
  composr register fixtures/ --watch   # Re-register on every change`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("json", false, "Machine-readable JSON output")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.LoadCmd)
	rootCmd.AddCommand(commands.RegisterCmd)
	rootCmd.AddCommand(commands.ListCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
