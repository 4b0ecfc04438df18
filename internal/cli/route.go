package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shopfloor-io/floorline/internal/routing"
)

// NewRouteCommand creates the route command group.
func NewRouteCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Show the cells a part or job has moved through",
	}
	cmd.AddCommand(newRoutePart(rootOpts))
	cmd.AddCommand(newRouteJob(rootOpts))
	return cmd
}

func newRoutePart(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "part <part-id>",
		Short:         "Show a part's routing in cell order",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			app, err := rootOpts.openApp(cmd)
			if err != nil {
				return f.Fail(err)
			}
			defer app.Close()

			entries, err := routing.NewTracker(app.store).PartRouting(cmd.Context(), app.cfg.Tenant, args[0])
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.JSON(entries)
			}
			renderRouting(f.Writer, entries, false)
			return nil
		},
	}
}

func newRouteJob(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "job <job-id>",
		Short:         "Show a job's routing with per-cell part counts",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			app, err := rootOpts.openApp(cmd)
			if err != nil {
				return f.Fail(err)
			}
			defer app.Close()

			entries, err := routing.NewTracker(app.store).JobRouting(cmd.Context(), app.cfg.Tenant, args[0])
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.JSON(entries)
			}
			renderRouting(f.Writer, entries, true)
			return nil
		},
	}
}

// renderRouting writes the text routing table. The PARTS column only appears
// for job routing.
func renderRouting(w io.Writer, entries []routing.Entry, withParts bool) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no routing recorded")
		return
	}
	if withParts {
		fmt.Fprintf(w, "%-20s %8s %6s %10s %6s\n", "CELL", "SEQUENCE", "OPS", "COMPLETED", "PARTS")
	} else {
		fmt.Fprintf(w, "%-20s %8s %6s %10s\n", "CELL", "SEQUENCE", "OPS", "COMPLETED")
	}
	for _, e := range entries {
		if withParts {
			fmt.Fprintf(w, "%-20s %8d %6d %10d %6d\n",
				e.CellName, e.Sequence, e.OperationCount, e.CompletedOperationCount, e.PartsInCell)
		} else {
			fmt.Fprintf(w, "%-20s %8d %6d %10d\n",
				e.CellName, e.Sequence, e.OperationCount, e.CompletedOperationCount)
		}
	}
}
