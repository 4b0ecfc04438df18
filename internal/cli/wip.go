package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewWIPCommand creates the wip command.
func NewWIPCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "wip <cell-id>",
		Short:         "Show a cell's occupancy against its WIP limit",
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

			eval, err := app.ledger.Evaluate(cmd.Context(), app.tenantCtx(), args[0])
			if err != nil {
				return f.Fail(err)
			}

			if f.Format == "json" {
				return f.JSON(map[string]any{
					"cell_id":             eval.CellID,
					"cell_name":           eval.CellName,
					"status":              eval.Status,
					"wip":                 eval.WIP,
					"wip_limit":           eval.Limit,
					"warning_threshold":   eval.WarningThreshold,
					"utilization_percent": eval.UtilizationPercent,
				})
			}

			if eval.Limit == nil {
				fmt.Fprintf(f.Writer, "%s: %d part(s), no WIP limit\n", eval.CellName, eval.WIP)
				return nil
			}
			if eval.UtilizationPercent == nil {
				fmt.Fprintf(f.Writer, "%s: %d/%d part(s), status %s\n",
					eval.CellName, eval.WIP, *eval.Limit, eval.Status)
				return nil
			}
			fmt.Fprintf(f.Writer, "%s: %d/%d part(s), status %s (%d%% utilized)\n",
				eval.CellName, eval.WIP, *eval.Limit, eval.Status, *eval.UtilizationPercent)
			return nil
		},
	}
}

// NewAdmitCommand creates the admit command.
func NewAdmitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "admit <from-cell-id>",
		Short:         "Check whether the next cell downstream can accept a part",
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

			d, err := app.ledger.CheckAdmission(cmd.Context(), app.tenantCtx(), args[0])
			if err != nil {
				return f.Fail(err)
			}

			if f.Format == "json" {
				payload := map[string]any{
					"has_capacity": d.HasCapacity,
					"warning":      d.Warning,
					"current_wip":  d.CurrentWIP,
					"wip_limit":    d.Limit,
					"message":      d.Message,
				}
				if d.NextCell != nil {
					payload["next_cell_id"] = d.NextCell.ID
					payload["next_cell_name"] = d.NextCell.Name
				}
				return f.JSON(payload)
			}

			switch {
			case !d.HasCapacity:
				fmt.Fprintf(f.Writer, "blocked: %s\n", d.Message)
			case d.Warning:
				fmt.Fprintf(f.Writer, "admitted with warning: %s\n", d.Message)
			case d.NextCell == nil:
				fmt.Fprintf(f.Writer, "admitted: %s\n", d.Message)
			default:
				fmt.Fprintf(f.Writer, "admitted: %s has capacity (%d in cell)\n",
					d.NextCell.Name, d.CurrentWIP)
			}
			if !d.HasCapacity {
				return NewExitError(ExitFailure, d.Message)
			}
			return nil
		},
	}
}
