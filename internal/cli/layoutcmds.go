package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shopfloor-io/floorline/internal/config"
	"github.com/shopfloor-io/floorline/internal/layout"
)

// LayoutSummary reports what a layout contains, for validate/apply output.
type LayoutSummary struct {
	Cells        int `json:"cells"`
	ScrapReasons int `json:"scrap_reasons"`
	Files        int `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "validate [layout-dir]",
		Short:         "Validate the CUE floor layout without applying it",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			dir := layoutDir(rootOpts, args)

			l, err := layout.Load(dir)
			if err != nil {
				return f.Fail(err)
			}
			f.VerboseLog("loaded %d CUE file(s) from %s", l.FileCount, dir)

			summary := LayoutSummary{Cells: len(l.Cells), ScrapReasons: len(l.ScrapReasons), Files: l.FileCount}
			if f.Format == "json" {
				return f.JSON(summary)
			}
			fmt.Fprintf(f.Writer, "layout valid: %d cell(s), %d scrap reason(s)\n",
				summary.Cells, summary.ScrapReasons)
			return nil
		},
	}
}

// NewApplyCommand creates the apply command.
func NewApplyCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "apply [layout-dir]",
		Short:         "Apply the CUE floor layout to the store",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			dir := layoutDir(rootOpts, args)

			app, err := rootOpts.openApp(cmd)
			if err != nil {
				return f.Fail(err)
			}
			defer app.Close()

			l, err := layout.Load(dir)
			if err != nil {
				return f.Fail(err)
			}
			if err := l.Apply(cmd.Context(), app.store, app.cfg.Tenant); err != nil {
				return f.Fail(err)
			}

			summary := LayoutSummary{Cells: len(l.Cells), ScrapReasons: len(l.ScrapReasons), Files: l.FileCount}
			if f.Format == "json" {
				return f.JSON(summary)
			}
			fmt.Fprintf(f.Writer, "applied %d cell(s), %d scrap reason(s) for tenant %s\n",
				summary.Cells, summary.ScrapReasons, app.cfg.Tenant)
			return nil
		},
	}
}

func layoutDir(opts *RootOptions, args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	if opts.ConfigPath != "" {
		// Validate only needs the directory; a broken config surfaces later.
		if cfg, err := config.Load(opts.ConfigPath); err == nil && cfg.LayoutDir != "" {
			return cfg.LayoutDir
		}
	}
	return "layout"
}
