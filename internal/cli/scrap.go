package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/shopfloor-io/floorline/internal/core"
	"github.com/shopfloor-io/floorline/internal/quantity"
)

// NewScrapCommand creates the scrap command.
func NewScrapCommand(rootOpts *RootOptions) *cobra.Command {
	var fromStr, toStr string

	cmd := &cobra.Command{
		Use:           "scrap",
		Short:         "Show attributed scrap by reason, worst first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)

			from, err := parseDateFlag(fromStr)
			if err != nil {
				return f.Fail(err)
			}
			to, err := parseDateFlag(toStr)
			if err != nil {
				return f.Fail(err)
			}

			app, err := rootOpts.openApp(cmd)
			if err != nil {
				return f.Fail(err)
			}
			defer app.Close()

			breakdown, err := app.reconciler.ScrapBreakdown(cmd.Context(), app.tenantCtx(), from, to)
			if err != nil {
				return f.Fail(err)
			}

			if f.Format == "json" {
				return f.JSON(breakdown)
			}
			renderScrapBreakdown(f.Writer, breakdown)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromStr, "from", "", "window start (RFC3339 or YYYY-MM-DD)")
	cmd.Flags().StringVar(&toStr, "to", "", "window end (RFC3339 or YYYY-MM-DD)")
	return cmd
}

// renderScrapBreakdown writes the text report.
func renderScrapBreakdown(w io.Writer, breakdown []quantity.ReasonBreakdown) {
	if len(breakdown) == 0 {
		fmt.Fprintln(w, "no attributed scrap in window")
		return
	}
	fmt.Fprintf(w, "%-16s %-10s %8s %12s %8s\n", "REASON", "CATEGORY", "QTY", "OCCURRENCES", "SHARE")
	for _, b := range breakdown {
		fmt.Fprintf(w, "%-16s %-10s %8d %12d %7.2f%%\n",
			b.ReasonCode, b.Category, b.TotalQuantity, b.OccurrenceCount, b.PercentOfTotal)
	}
}

// parseDateFlag accepts RFC3339 timestamps or bare dates. Bare dates mean
// midnight UTC.
func parseDateFlag(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	return nil, core.NewValidationError(fmt.Sprintf("invalid time %q, want RFC3339 or YYYY-MM-DD", s))
}
