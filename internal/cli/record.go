package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shopfloor-io/floorline/internal/core"
	"github.com/shopfloor-io/floorline/internal/quantity"
)

// NewRecordCommand creates the record command.
func NewRecordCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		produced, good, scrap, rework int
		reasons                       []string
		lot, supplier, certificate    string
	)

	cmd := &cobra.Command{
		Use:           "record <operation-id>",
		Short:         "Append a quantity record for an operation",
		Long:          "Append an immutable produced/good/scrap/rework record. Scrap may be attributed to registry reasons with repeated --reason code=qty flags.",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			attrs, err := parseReasonFlags(reasons)
			if err != nil {
				return f.Fail(err)
			}

			app, err := rootOpts.openApp(cmd)
			if err != nil {
				return f.Fail(err)
			}
			defer app.Close()

			id, err := app.reconciler.Record(cmd.Context(), app.tenantCtx(), quantity.RecordInput{
				OperationID:  args[0],
				Produced:     produced,
				Good:         good,
				Scrap:        scrap,
				Rework:       rework,
				Attributions: attrs,
				Material: core.MaterialInfo{
					LotNumber:   lot,
					Supplier:    supplier,
					Certificate: certificate,
				},
			})
			if err != nil {
				return f.Fail(err)
			}

			if f.Format == "json" {
				return f.JSON(map[string]any{"record_id": id, "operation_id": args[0]})
			}
			fmt.Fprintf(f.Writer, "recorded %s: produced=%d good=%d scrap=%d rework=%d\n",
				id, produced, good, scrap, rework)
			return nil
		},
	}

	cmd.Flags().IntVar(&produced, "produced", 0, "total quantity produced")
	cmd.Flags().IntVar(&good, "good", 0, "good quantity")
	cmd.Flags().IntVar(&scrap, "scrap", 0, "scrap quantity")
	cmd.Flags().IntVar(&rework, "rework", 0, "rework quantity")
	cmd.Flags().StringArrayVar(&reasons, "reason", nil, "scrap attribution code=qty (repeatable)")
	cmd.Flags().StringVar(&lot, "lot", "", "material lot number")
	cmd.Flags().StringVar(&supplier, "supplier", "", "material supplier")
	cmd.Flags().StringVar(&certificate, "certificate", "", "material certificate")
	return cmd
}

// parseReasonFlags turns repeated code=qty flags into attributions.
func parseReasonFlags(flags []string) ([]quantity.Attribution, error) {
	var attrs []quantity.Attribution
	for _, raw := range flags {
		code, qtyStr, ok := strings.Cut(raw, "=")
		if !ok || code == "" {
			return nil, core.NewValidationError(fmt.Sprintf("invalid --reason %q, want code=qty", raw))
		}
		qty, err := strconv.Atoi(qtyStr)
		if err != nil {
			return nil, core.NewValidationError(fmt.Sprintf("invalid --reason quantity %q", qtyStr))
		}
		attrs = append(attrs, quantity.Attribution{ReasonCode: code, Quantity: qty})
	}
	return attrs, nil
}

// NewTotalsCommand creates the totals command.
func NewTotalsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "totals <operation-id>",
		Short:         "Show aggregated quantities and yield for an operation",
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

			totals, err := app.reconciler.OperationTotals(cmd.Context(), app.tenantCtx(), args[0])
			if err != nil {
				return f.Fail(err)
			}

			if f.Format == "json" {
				return f.JSON(totals)
			}
			fmt.Fprintf(f.Writer, "produced=%d good=%d scrap=%d rework=%d yield=%.2f%%\n",
				totals.Produced, totals.Good, totals.Scrap, totals.Rework, totals.YieldPercent)
			return nil
		},
	}
}
