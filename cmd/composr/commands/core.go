package commands

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/composr/am"
	"github.com/teranos/composr/composr"
	"github.com/teranos/composr/errors"
	"github.com/teranos/composr/events"
	"github.com/teranos/composr/logger"
	"github.com/teranos/composr/manager"
)

// openCore loads the configuration and builds a Core. With remote set the
// HTTP driver is installed as well.
func openCore(remote bool) (*composr.Core, error) {
	cfg, err := am.Load()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	log := logger.Logger.Named("composr")
	bus := events.NewBus()
	events.LoggerSink(bus, log.Named("events"))

	core, err := composr.New(cfg, composr.WithLogger(log), composr.WithBus(bus))
	if err != nil {
		return nil, err
	}
	if remote {
		if err := core.InitDriver(); err != nil {
			_ = core.Close()
			return nil, err
		}
	}
	return core, nil
}

func jsonOutput(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

type resultRow struct {
	Kind       string `json:"kind"`
	ID         string `json:"id"`
	Registered bool   `json:"registered"`
	Error      string `json:"error,omitempty"`
}

func rows(kind string, results []manager.RegistrationResult) []resultRow {
	out := make([]resultRow, 0, len(results))
	for _, r := range results {
		row := resultRow{Kind: kind, ID: r.ID, Registered: r.Registered}
		if r.Err != nil {
			row.Error = r.Err.Error()
		}
		out = append(out, row)
	}
	return out
}

func reportRows(report *composr.Report) []resultRow {
	var out []resultRow
	out = append(out, rows(composr.VirtualDomainsName, report.VirtualDomains)...)
	out = append(out, rows(composr.PhrasesName, report.Phrases)...)
	out = append(out, rows(composr.SnippetsName, report.Snippets)...)
	return out
}

// printRows writes registration results as JSON or as a table followed by
// a summary line.
func printRows(cmd *cobra.Command, out io.Writer, results []resultRow) error {
	if jsonOutput(cmd) {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		pterm.Info.Println("No items")
		return nil
	}

	data := pterm.TableData{{"KIND", "ID", "STATUS", "ERROR"}}
	failed := 0
	for _, r := range results {
		status := "registered"
		if !r.Registered {
			status = "rejected"
			failed++
		}
		data = append(data, []string{r.Kind, r.ID, status, r.Error})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithWriter(out).WithData(data).Render(); err != nil {
		return errors.Wrap(err, "render results")
	}

	if failed > 0 {
		pterm.Warning.Printf("%d registered, %d rejected\n", len(results)-failed, failed)
	} else {
		pterm.Success.Printf("%d registered\n", len(results))
	}
	return nil
}

func printJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}
