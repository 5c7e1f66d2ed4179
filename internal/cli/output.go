package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/wms-platform/vas-service/internal/application"
)

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

func validFormat(format string) bool {
	switch format {
	case FormatTable, FormatJSON, FormatYAML:
		return true
	}
	return false
}

type printer struct {
	w      io.Writer
	format string
}

// print writes v as json or yaml, or calls table for the table format
func (p *printer) print(v any, table func(w *tabwriter.Writer)) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		return writeYAML(p.w, v)
	default:
		tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
		table(tw)
		return tw.Flush()
	}
}

// writeYAML goes through JSON so field names follow the json tags and keep
// declaration order
func writeYAML(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return err
	}
	blockStyle(&node)

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return err
	}
	return enc.Close()
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle
	if n.Kind == yaml.ScalarNode && n.Tag == "!!str" {
		n.Style &^= yaml.DoubleQuotedStyle
	}
	for _, c := range n.Content {
		blockStyle(c)
	}
}

func (p *printer) session(view *application.SessionView) error {
	return p.print(view, func(w *tabwriter.Writer) {
		status := view.Status
		if view.Completed {
			status = "COMPLETED"
		}
		fmt.Fprintf(w, "Order:\t%s (%s)\n", view.OrderNo, view.OrderType)
		fmt.Fprintf(w, "Status:\t%s\n\n", status)

		fmt.Fprintln(w, "SET\tTASK\tVAS\tTARGET\tPACKING\tQTY\tSTATUS\tALLOCATED")
		for _, set := range view.Sets {
			for _, t := range set.Tasks {
				allocated := "-"
				if t.RequiresInventory {
					allocated = yesNo(t.Allocated)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
					set.Set, t.Name, t.VAS, t.Target, t.PackingType, t.Qty, t.Status, allocated)
			}
		}

		if sel := view.Selection; sel != nil {
			fmt.Fprintf(w, "\nSelected:\t%s\n", sel.Task.Name)
			if sel.Issue != "" {
				fmt.Fprintf(w, "Issue:\t%s\n", sel.Issue)
			}
			if sel.GuideError != "" {
				fmt.Fprintf(w, "Guide:\t%s\n", sel.GuideError)
			}
		}
		if view.Allocating {
			fmt.Fprintln(w, "Allocation:\tdraft open")
		}
		fmt.Fprintf(w, "Actions:\t%s\n", actionList(view))
	})
}

func (p *printer) allocation(view *application.AllocationView) error {
	return p.print(view, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Tasks:\t%s (set %d)\n", strings.Join(view.TaskNames, ", "), view.Set)
		fmt.Fprintf(w, "Target:\t%s %s\n", view.Target, view.PackingType)
		fmt.Fprintf(w, "Required:\t%d\tSelected: %d\tRemaining: %d\n\n", view.RequiredQty, view.TotalSelected, view.Remaining)

		header := "CANDIDATE\tPALLET\tBATCH\tPRODUCT\tAVAILABLE\tSELECTED"
		if view.ShowLocation {
			header += "\tLOCATION"
		}
		fmt.Fprintln(w, header)
		for _, c := range view.Candidates {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d", c.ID, c.PalletID, c.BatchID, c.Product, c.AvailableQty, c.SelectedQty)
			if view.ShowLocation {
				fmt.Fprintf(w, "\t%s", c.Location)
			}
			fmt.Fprintln(w)
		}
	})
}

func actionList(view *application.SessionView) string {
	if len(view.Actions) == 0 {
		return "-"
	}
	names := make([]string, len(view.Actions))
	for i, a := range view.Actions {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
