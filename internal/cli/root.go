// Package cli implements the floorline command tree.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	Format     string // "json" | "text"

	// Overrides applied on top of the config file.
	Tenant string
	Actor  string
	DBPath string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the floorline CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "floorline",
		Short: "Shop-floor cell capacity and production accounting",
		Long: `floorline tracks cell occupancy against WIP limits, routes parts
through cells, reconciles produced/good/scrap/rework quantities, and
records typed time segments against operations.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file (YAML)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Tenant, "tenant", "", "tenant override")
	cmd.PersistentFlags().StringVar(&opts.Actor, "actor", "", "actor recorded on writes")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "database file override")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewWIPCommand(opts))
	cmd.AddCommand(NewAdmitCommand(opts))
	cmd.AddCommand(NewAdvanceCommand(opts))
	cmd.AddCommand(NewOpCommand(opts))
	cmd.AddCommand(NewRecordCommand(opts))
	cmd.AddCommand(NewTotalsCommand(opts))
	cmd.AddCommand(NewScrapCommand(opts))
	cmd.AddCommand(NewClockCommand(opts))
	cmd.AddCommand(NewRouteCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
