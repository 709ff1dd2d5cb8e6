package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papapumpkin/depcheck/internal/config"
	"github.com/papapumpkin/depcheck/internal/dag"
)

var graphCmd = &cobra.Command{
	Use:   "graph [root]",
	Short: "Print the declared dependency graph by layer, or the closure of one item",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return &ExitError{Code: 1, Err: fmt.Errorf("failed to load config: %w", err)}
		}
		reg, err := loadRegistry(cfg, rootArg(args))
		if err != nil {
			return &ExitError{Code: 1, Err: err}
		}
		d, err := dag.FromRegistry(reg)
		if err != nil {
			return &ExitError{Code: 1, Err: err}
		}

		item, _ := cmd.Flags().GetString("item")
		if item != "" {
			return printClosure(cmd.OutOrStdout(), d, item)
		}
		return printLayers(cmd.OutOrStdout(), d)
	},
}

func init() {
	graphCmd.Flags().String("item", "", "show the transitive dependencies and dependents of this item")
	rootCmd.AddCommand(graphCmd)
}

func printLayers(w io.Writer, d *dag.DAG) error {
	layers, err := d.Layers()
	if err != nil {
		return &ExitError{Code: 1, Err: err}
	}
	for _, l := range layers {
		fmt.Fprintf(w, "layer %d\n", l.Number)
		for _, id := range l.NodeIDs {
			n := d.Node(id)
			fmt.Fprintf(w, "  %s (%s, %d files)", id, n.Kind, n.Files)
			if deps := d.Deps(id); len(deps) > 0 {
				fmt.Fprintf(w, " -> %s", strings.Join(deps, ", "))
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}

func printClosure(w io.Writer, d *dag.DAG, id string) error {
	n := d.Node(id)
	if n == nil {
		return &ExitError{Code: 1, Err: fmt.Errorf("%w: %q", dag.ErrNodeNotFound, id)}
	}
	fmt.Fprintf(w, "%s (%s, %d files)\n", id, n.Kind, n.Files)
	fmt.Fprintf(w, "  deps:        %s\n", joinOrNone(d.Deps(id)))
	fmt.Fprintf(w, "  all deps:    %s\n", joinOrNone(d.Ancestors(id)))
	fmt.Fprintf(w, "  dependents:  %s\n", joinOrNone(d.Descendants(id)))
	return nil
}

func joinOrNone(ids []string) string {
	if len(ids) == 0 {
		return "(none)"
	}
	return strings.Join(ids, ", ")
}
