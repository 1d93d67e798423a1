package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"grindlog/internal/app"
	"grindlog/internal/bootstrap"
	"grindlog/internal/digest"
	"grindlog/internal/recipients"
	"grindlog/internal/scheduler"
)

func initCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write starter config.json, .env and recipients.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := bootstrap.Init(bootstrap.InitOptions{ConfigPath: flags.configPath, EnvPath: flags.envPath})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "init complete")

			skipped := make(map[string]bool, len(report.Skipped))
			for _, p := range report.Skipped {
				skipped[p] = true
			}
			for _, item := range []struct{ label, path string }{
				{"config", report.ConfigPath},
				{"env", report.EnvPath},
				{"recipients", report.RecipientsPath},
			} {
				status := "created"
				if skipped[item.path] {
					status = "exists"
				}
				fmt.Fprintf(out, "%s: %s (%s)\n", item.label, item.path, status)
			}
			return nil
		},
	}
}

func markerCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marker",
		Short: "Inspect or reset the last automatic run marker",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the last automatic run and whether today's run is still due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			loc, err := scheduler.LoadLocation(cfg.Digest.Timezone)
			if err != nil {
				return err
			}
			store, closeStore, err := app.OpenMarker(cfg)
			if err != nil {
				return err
			}
			defer closeStore()

			guard := digest.NewGuard(digest.GuardOptions{Store: store, Location: loc})
			last, ok, err := guard.LastRun(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !ok {
				fmt.Fprintln(out, "no automatic run recorded")
			} else {
				fmt.Fprintf(out, "last automatic run: %s\n", last.In(loc).Format(time.RFC1123))
			}
			due := guard.ShouldRunAutomatic(cmd.Context(), time.Now())
			fmt.Fprintf(out, "due today (%s): %v\n", loc, due)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Delete the marker so the next automatic firing runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			store, closeStore, err := app.OpenMarker(cfg)
			if err != nil {
				return err
			}
			defer closeStore()
			if err := store.Reset(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "marker reset")
			return nil
		},
	})
	return cmd
}

func recipientsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "recipients",
		Short: "List the configured digest recipients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			list, err := recipients.New(cfg.Recipients).ListRecipients(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tEMAIL")
			for _, r := range list {
				fmt.Fprintf(tw, "%s\t%s\n", r.DisplayName, r.Address)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "%d recipient(s)\n", len(list))
			return nil
		},
	}
}

func runsCmd(flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show the most recent runs from the run log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			runs, err := scheduler.ReadRecentRuns(cfg.Digest.RunLog, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs recorded")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tTRIGGER\tSTATUS\tSUMMARY")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					r.StartedAt.Local().Format("2006-01-02 15:04"), r.Trigger, r.Status, strings.TrimSpace(r.Summary))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "number of runs to show")
	return cmd
}
