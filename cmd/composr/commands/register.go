package commands

import (
	"context"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/composr/composr"
	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/fixtures"
	"github.com/teranos/composr/logger"
	"github.com/teranos/composr/manager"
)

// RegisterCmd registers items from fixture files
var RegisterCmd = &cobra.Command{
	Use:   "register <file|dir>...",
	Short: "Register items from JSON, YAML or TOML fixture files",
	Long: `Decode fixture files and run every item through the registration pipeline.

Without --domain each item is registered under the domain derived from its id.
Directories are read in file name order; only .json, .yaml, .yml and .toml
files are considered. The remote store is not contacted unless --push is set.

With --push the remote collections are loaded first, then every item whose
MD5 differs from the remote copy is saved to the remote before it is
registered. Unchanged items are registered without a write.

With --watch composr keeps running and re-registers a file whenever it changes.

Examples:
  composr register phrases.json
  composr register --kind snippets --domain booqs:demo snippets.yaml
  composr register --push phrases.json
  composr register fixtures/ --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRegister,
}

var (
	registerKindFlag   string
	registerDomainFlag string
	registerWatchFlag  bool
	registerPushFlag   bool
)

func init() {
	RegisterCmd.Flags().StringVarP(&registerKindFlag, "kind", "k", composr.PhrasesName, "Item kind: phrases, snippets, virtualdomains")
	RegisterCmd.Flags().StringVarP(&registerDomainFlag, "domain", "d", "", "Register every item under this domain")
	RegisterCmd.Flags().BoolVarP(&registerWatchFlag, "watch", "w", false, "Re-register files when they change")
	RegisterCmd.Flags().BoolVar(&registerPushFlag, "push", false, "Save changed items to the remote before registering them")
}

type registrar func(ctx context.Context, domain string, raws []manager.Raw) ([]manager.RegistrationResult, error)

func registerWith[T manager.Item](m *manager.Manager[T], push bool) registrar {
	return func(ctx context.Context, domain string, raws []manager.Raw) ([]manager.RegistrationResult, error) {
		if push {
			return m.Push(ctx, domain, raws...)
		}
		if domain == "" {
			return m.RegisterWithoutDomain(ctx, raws)
		}
		return m.Register(ctx, domain, raws...)
	}
}

func registrarFor(core *composr.Core, kind string, push bool) (registrar, error) {
	switch kind {
	case composr.PhrasesName:
		return registerWith(core.Phrases, push), nil
	case composr.SnippetsName:
		return registerWith(core.Snippets, push), nil
	case composr.VirtualDomainsName:
		return registerWith(core.VirtualDomains, push), nil
	}
	return nil, errors.WithHintf(errors.Newf("unknown item kind %q", kind),
		"use one of %s, %s, %s", composr.PhrasesName, composr.SnippetsName, composr.VirtualDomainsName)
}

func readFixtures(path string) ([]manager.Raw, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	if info.IsDir() {
		return fixtures.LoadDir(path)
	}
	return fixtures.LoadFile(path)
}

func runRegister(cmd *cobra.Command, args []string) error {
	core, err := openCore(registerPushFlag)
	if err != nil {
		return err
	}
	defer core.Close()

	register, err := registrarFor(core, registerKindFlag, registerPushFlag)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if registerPushFlag {
		// change detection compares against what the remote holds
		if _, err := core.Bootstrap(ctx); err != nil {
			return errors.Wrap(err, "load remote state")
		}
	}
	var all []resultRow
	for _, path := range args {
		raws, err := readFixtures(path)
		if err != nil {
			return err
		}
		if len(raws) == 0 {
			pterm.Warning.Printf("%s contains no items\n", path)
			continue
		}
		results, err := register(ctx, registerDomainFlag, raws)
		if err != nil {
			return errors.Wrapf(err, "register %s", path)
		}
		all = append(all, rows(registerKindFlag, results)...)
	}
	if err := printRows(cmd, cmd.OutOrStdout(), all); err != nil {
		return err
	}

	if !registerWatchFlag {
		return nil
	}
	return watchFixtures(ctx, cmd, args, register)
}

func watchFixtures(ctx context.Context, cmd *cobra.Command, paths []string, register registrar) error {
	log := logger.Logger.Named("register")
	w, err := fixtures.NewWatcher(paths, func(ctx context.Context, path string, raws []manager.Raw) error {
		results, err := register(ctx, registerDomainFlag, raws)
		if err != nil {
			return err
		}
		return printRows(cmd, cmd.OutOrStdout(), rows(registerKindFlag, results))
	}, log)
	if err != nil {
		return err
	}

	pterm.Info.Printf("Watching %d path(s), press Ctrl+C to stop\n", len(paths))
	return w.Run(ctx)
}
