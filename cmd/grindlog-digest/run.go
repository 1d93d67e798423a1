package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"grindlog/internal/digest"
)

func runCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the automatic digest once now (honors the once-per-day marker)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, cleanup, err := buildApp(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			report, err := a.Scheduler.RunNow(ctx, digest.Automatic())
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func triggerCmd(flags *rootFlags) *cobra.Command {
	var startRaw, endRaw, timeframe string
	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Send digests for an explicit date range and wait for the result",
		Long: `Runs a manual digest in-process. Manual runs ignore the daily marker and
never update it. Recipients with nothing solved in the range are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			a, cleanup, err := buildApp(ctx, flags)
			if err != nil {
				return err
			}
			defer cleanup()

			start, end, err := manualRange(a.Orchestrator.Resolver(), startRaw, endRaw, timeframe, time.Now())
			if err != nil {
				return err
			}
			report, err := a.Scheduler.RunNow(ctx, digest.Manual(start, end))
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVar(&startRaw, "start", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&endRaw, "end", "", "last day (inclusive), YYYY-MM-DD")
	cmd.Flags().StringVar(&timeframe, "timeframe", "", "yesterday, today, last7days or last30days")
	return cmd
}

func manualRange(r digest.Resolver, startRaw, endRaw, timeframe string, now time.Time) (time.Time, time.Time, error) {
	startRaw, endRaw = strings.TrimSpace(startRaw), strings.TrimSpace(endRaw)
	if startRaw == "" && endRaw == "" {
		if strings.TrimSpace(timeframe) == "" {
			return time.Time{}, time.Time{}, fmt.Errorf("either --start/--end or --timeframe is required")
		}
		return r.PresetRange(timeframe, now)
	}
	if endRaw == "" {
		endRaw = startRaw
	}
	start, err := digest.ParseDate(startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := digest.ParseDate(endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := digest.ValidateRange(start, end); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func printReport(w io.Writer, report digest.RunReport) {
	fmt.Fprintf(w, "run %s (%s)\n", report.ID, report.Trigger)
	if report.Suppressed {
		fmt.Fprintln(w, "skipped: the automatic digest already ran today")
		return
	}
	if !report.Window.Start.IsZero() {
		fmt.Fprintf(w, "window: %s .. %s\n", report.Window.Start.Format(time.RFC3339), report.Window.End.Format(time.RFC3339))
	}
	for _, o := range report.Outcomes {
		line := fmt.Sprintf("  %-32s %s", o.Recipient.Address, o.Outcome)
		if o.Degraded {
			line += " [fallback narrative]"
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, report.Summary())
	if err := report.Err(); err != nil {
		fmt.Fprintf(w, "errors:\n%v\n", err)
	}
}
