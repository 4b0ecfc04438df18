package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/shopfloor-io/floorline/internal/core"
)

// NewClockCommand creates the clock command group for time segments.
func NewClockCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clock",
		Short: "Record typed time segments against operations",
	}
	cmd.AddCommand(newClockStart(rootOpts))
	cmd.AddCommand(newClockPause(rootOpts))
	cmd.AddCommand(newClockResume(rootOpts))
	cmd.AddCommand(newClockStop(rootOpts))
	cmd.AddCommand(newClockList(rootOpts))
	return cmd
}

func newClockStart(rootOpts *RootOptions) *cobra.Command {
	var segType string

	cmd := &cobra.Command{
		Use:           "start <operation-id>",
		Short:         "Open a time segment",
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

			id, err := app.clock.Start(cmd.Context(), app.tenantCtx(), args[0], core.SegmentType(segType))
			if err != nil {
				return f.Fail(err)
			}

			if f.Format == "json" {
				return f.JSON(map[string]any{"segment_id": id, "type": segType})
			}
			fmt.Fprintf(f.Writer, "started %s segment %s\n", segType, id)
			return nil
		},
	}
	cmd.Flags().StringVar(&segType, "type", "run", "segment type (setup|run|wait|rework|breakdown)")
	return cmd
}

func newClockPause(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "pause <segment-id>",
		Short:         "Pause an open segment",
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

			if err := app.clock.Pause(cmd.Context(), app.tenantCtx(), args[0]); err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.JSON(map[string]any{"segment_id": args[0], "action": "pause"})
			}
			fmt.Fprintf(f.Writer, "paused segment %s\n", args[0])
			return nil
		},
	}
}

func newClockResume(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "resume <segment-id>",
		Short:         "Resume a paused segment",
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

			if err := app.clock.Resume(cmd.Context(), app.tenantCtx(), args[0]); err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.JSON(map[string]any{"segment_id": args[0], "action": "resume"})
			}
			fmt.Fprintf(f.Writer, "resumed segment %s\n", args[0])
			return nil
		},
	}
}

func newClockStop(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "stop <segment-id>",
		Short:         "Close a segment and report its active duration",
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

			duration, err := app.clock.Close(cmd.Context(), app.tenantCtx(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.JSON(map[string]any{
					"segment_id":      args[0],
					"active_duration": duration.String(),
				})
			}
			fmt.Fprintf(f.Writer, "closed segment %s, active %s\n", args[0], duration)
			return nil
		},
	}
}

func newClockList(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list <operation-id>",
		Short:         "List an operation's segments in start order",
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

			segments, err := app.clock.Segments(cmd.Context(), app.tenantCtx(), args[0])
			if err != nil {
				return f.Fail(err)
			}
			if f.Format == "json" {
				return f.JSON(segments)
			}
			renderSegments(f.Writer, segments)
			return nil
		},
	}
}

func renderSegments(w io.Writer, segments []core.TimeSegment) {
	if len(segments) == 0 {
		fmt.Fprintln(w, "no segments recorded")
		return
	}
	for _, s := range segments {
		state := "open"
		if s.EndedAt != nil {
			state = "closed"
		}
		fmt.Fprintf(w, "%s  %-9s %-6s started %s", s.ID, s.Type, state,
			s.StartedAt.Format("2006-01-02 15:04:05"))
		if s.EndedAt != nil {
			fmt.Fprintf(w, "  active %s", s.ActiveDuration(*s.EndedAt))
		}
		if n := len(s.Pauses); n > 0 {
			fmt.Fprintf(w, "  %d pause(s)", n)
		}
		fmt.Fprintln(w)
	}
}
