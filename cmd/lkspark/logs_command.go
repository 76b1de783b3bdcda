package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"lkspark/internal/joblog"
	"lkspark/internal/logging"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect and prune job logs",
	}
	logsCmd.AddCommand(newLogsShowCommand(ctx))
	logsCmd.AddCommand(newLogsPruneCommand(ctx))
	return logsCmd
}

func newLogsShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show JOB",
		Short: "Print a job's log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := filepath.Join(cfg.JobLogDir(), joblog.FileName(args[0]))
			file, err := os.Open(path)
			if err != nil {
				if os.IsNotExist(err) {
					return fmt.Errorf("no log for job %s", args[0])
				}
				return fmt.Errorf("open job log: %w", err)
			}
			defer file.Close()
			_, err = io.Copy(cmd.OutOrStdout(), file)
			return err
		},
	}
}

func newLogsPruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove job logs older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			retention := cfg.Logging().RetentionDays
			if cmd.Flags().Changed("days") {
				retention = days
			}
			if retention <= 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Log retention is disabled; nothing pruned")
				return nil
			}
			logger := logging.NewComponentLogger(ctx.loggerFor(cmd), "logs")
			removed := joblog.Prune(cfg.JobLogDir(), retention, logger)
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d job log(s) older than %d day(s)\n", removed, retention)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Retention in days (default: LogRetentionDays from the configuration)")
	return cmd
}
