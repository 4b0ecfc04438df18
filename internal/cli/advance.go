package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAdvanceCommand creates the advance command.
func NewAdvanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "advance <part-id>",
		Short:         "Start the part's next operation, subject to admission",
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

			res, err := app.floor.AdvancePart(cmd.Context(), app.tenantCtx(), args[0])
			if err != nil {
				return f.Fail(err)
			}

			if f.Format == "json" {
				if err := f.JSON(map[string]any{
					"started":      res.Started,
					"operation_id": res.OperationID,
					"cell_id":      res.CellID,
					"has_capacity": res.Decision.HasCapacity,
					"warning":      res.Decision.Warning,
					"current_wip":  res.Decision.CurrentWIP,
					"wip_limit":    res.Decision.Limit,
					"message":      res.Decision.Message,
				}); err != nil {
					return err
				}
			} else if res.Started {
				fmt.Fprintf(f.Writer, "started operation %s in cell %s\n", res.OperationID, res.CellID)
				if res.Decision.Warning {
					fmt.Fprintf(f.Writer, "warning: %s\n", res.Decision.Message)
				}
			} else {
				fmt.Fprintf(f.Writer, "blocked: %s\n", res.Decision.Message)
			}

			if !res.Started {
				return NewExitError(ExitFailure, res.Decision.Message)
			}
			return nil
		},
	}
}

// NewOpCommand creates the op command group for direct status transitions.
func NewOpCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "op",
		Short: "Transition an operation's status",
	}
	cmd.AddCommand(opSubcommand(rootOpts, "complete", "Mark an in-progress operation completed"))
	cmd.AddCommand(opSubcommand(rootOpts, "pause", "Pause an in-progress operation"))
	cmd.AddCommand(opSubcommand(rootOpts, "resume", "Resume a paused operation"))
	return cmd
}

func opSubcommand(rootOpts *RootOptions, verb, short string) *cobra.Command {
	return &cobra.Command{
		Use:           verb + " <operation-id>",
		Short:         short,
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

			tc := app.tenantCtx()
			ctx := cmd.Context()
			switch verb {
			case "complete":
				err = app.floor.CompleteOperation(ctx, tc, args[0])
			case "pause":
				err = app.floor.PauseOperation(ctx, tc, args[0])
			case "resume":
				err = app.floor.ResumeOperation(ctx, tc, args[0])
			}
			if err != nil {
				return f.Fail(err)
			}

			if f.Format == "json" {
				return f.JSON(map[string]any{"operation_id": args[0], "action": verb})
			}
			fmt.Fprintf(f.Writer, "%sd operation %s\n", verb, args[0])
			return nil
		},
	}
}
