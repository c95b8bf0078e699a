package commands

import (
	"fmt"
	"sort"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/composr/composr"
	"github.com/teranos/composr/manager"
)

// ListCmd lists registered items of one domain, or of every domain
var ListCmd = &cobra.Command{
	Use:   "list <phrases|snippets|virtualdomains> [domain]",
	Short: "List registered items",
	Long: `Load the collection from the remote (or the snapshot with --restore) and
list the items registered under domain. Without a domain every registered
item is listed.

Examples:
  composr list phrases
  composr list phrases booqs:demo
  composr list snippets booqs:demo --json`,
	Args:      cobra.RangeArgs(1, 2),
	ValidArgs: []string{composr.PhrasesName, composr.SnippetsName, composr.VirtualDomainsName},
	RunE:      runList,
}

var listRestoreFlag bool

func init() {
	ListCmd.Flags().BoolVar(&listRestoreFlag, "restore", false, "Read from the local snapshot without contacting the remote")
}

type listedItem struct {
	ID  string      `json:"id"`
	MD5 string      `json:"md5"`
	Raw manager.Raw `json:"raw,omitempty"`
}

func runList(cmd *cobra.Command, args []string) error {
	kind, domain := args[0], ""
	if len(args) > 1 {
		domain = args[1]
	}

	core, err := openCore(!listRestoreFlag)
	if err != nil {
		return err
	}
	defer core.Close()

	ctx := cmd.Context()
	if listRestoreFlag {
		_, err = core.Restore(ctx)
	} else {
		_, err = core.Bootstrap(ctx)
	}
	if err != nil {
		return err
	}

	var items []listedItem
	switch kind {
	case composr.PhrasesName:
		items = listItems(core.Phrases, domain)
	case composr.SnippetsName:
		items = listItems(core.Snippets, domain)
	case composr.VirtualDomainsName:
		items = listItems(core.VirtualDomains, domain)
	default:
		return fmt.Errorf("unknown collection %q (expected %s, %s or %s)", kind,
			composr.PhrasesName, composr.SnippetsName, composr.VirtualDomainsName)
	}

	if jsonOutput(cmd) {
		return printJSON(cmd.OutOrStdout(), items)
	}
	if len(items) == 0 {
		if domain == "" {
			pterm.Info.Printf("No %s registered\n", kind)
		} else {
			pterm.Info.Printf("No %s registered under %s\n", kind, domain)
		}
		return nil
	}
	data := pterm.TableData{{"ID", "MD5"}}
	for _, it := range items {
		data = append(data, []string{it.ID, it.MD5})
	}
	return pterm.DefaultTable.WithHasHeader().WithWriter(cmd.OutOrStdout()).WithData(data).Render()
}

// listItems returns the items of domain, or of every domain when domain is
// empty.
func listItems[T manager.Item](m *manager.Manager[T], domain string) []listedItem {
	if domain != "" {
		return listed(m.GetByDomain(domain))
	}
	var all []T
	for _, d := range m.Domains() {
		all = append(all, m.GetByDomain(d)...)
	}
	return listed(all)
}

func listed[T manager.Item](items []T) []listedItem {
	out := make([]listedItem, 0, len(items))
	for _, it := range items {
		out = append(out, listedItem{ID: it.ID(), MD5: it.MD5(), Raw: it.RawModel()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
