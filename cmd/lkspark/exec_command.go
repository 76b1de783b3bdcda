package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"lkspark/internal/command"
	"lkspark/internal/history"
	"lkspark/internal/joblog"
	"lkspark/internal/logging"
	"lkspark/internal/preflight"
)

func newExecCommand(ctx *commandContext) *cobra.Command {
	var jobID string
	var capture bool
	var dir string
	var skipChecks bool
	var line string

	cmd := &cobra.Command{
		Use:   "exec [flags] -- COMMAND [ARG...]",
		Short: "Run a tool for a job, streaming its output into the job log",
		Long: "Run a tool with stdout and stderr merged into the job's log file as they\n" +
			"are produced, then record the outcome in the command history. A failing\n" +
			"tool is noted in the log and reflected in the exit status.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			argv, err := commandArgs(args, line)
			if err != nil {
				return err
			}
			logger := logging.NewComponentLogger(ctx.loggerFor(cmd), "exec")

			if !skipChecks {
				if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
					names := make([]string, len(failed))
					for i, r := range failed {
						names[i] = r.Name
					}
					return fmt.Errorf("host not ready (%s); run `lkspark check` for details", strings.Join(names, ", "))
				}
			}

			jobID = strings.TrimSpace(jobID)
			if jobID == "" {
				jobID = uuid.NewString()
			}
			sink, err := joblog.Open(cfg.JobLogDir(), jobID)
			if err != nil {
				return err
			}
			defer sink.Close()
			logger = logger.With(logging.String(logging.FieldJobID, jobID))

			runner := command.New(command.WithLogger(logger))
			started := time.Now()
			res, runErr := runner.RunLogged(cmd.Context(), sink, argv, command.LoggedOptions{
				CaptureOutput: capture,
				Dir:           dir,
			})
			finished := time.Now()
			if err := sink.Close(); err != nil {
				logging.WarnWithContext(logger, "job log close failed", "job_log_close_failed",
					logging.String(logging.FieldPath, sink.Path()),
					logging.Error(err),
				)
			}

			recordHistory(cmd, ctx, logger, history.Entry{
				JobID:      jobID,
				Command:    argv,
				ExitStatus: res.ExitStatus,
				LogPath:    sink.Path(),
				StartedAt:  started,
				FinishedAt: finished,
			})

			if capture {
				fmt.Fprint(cmd.OutOrStdout(), res.Output)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "job %s: exit status %d (log %s)\n", jobID, res.ExitStatus, sink.Path())

			var spawnErr *command.SpawnError
			if errors.As(runErr, &spawnErr) {
				return &exitStatusError{status: command.SpawnFailed}
			}
			if runErr != nil {
				return runErr
			}
			if res.ExitStatus != 0 {
				return &exitStatusError{status: res.ExitStatus}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&jobID, "job", "", "Job identifier naming the log file (default: a new UUID)")
	cmd.Flags().BoolVar(&capture, "capture", false, "Also print the tool's output to stdout when it finishes")
	cmd.Flags().StringVar(&dir, "dir", "", "Working directory for the tool")
	cmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "Do not run host readiness checks first")
	cmd.Flags().StringVar(&line, "line", "", "Command line to split with shell word rules instead of positional arguments")
	return cmd
}

// recordHistory stores the outcome; a broken ledger never fails the job.
func recordHistory(cmd *cobra.Command, ctx *commandContext, logger *slog.Logger, entry history.Entry) {
	store, err := ctx.openHistory()
	if err != nil {
		logging.WarnWithContext(logger, "command history unavailable", "history_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "outcome is only in the job log"),
		)
		return
	}
	defer store.Close()
	if _, err := store.Record(cmd.Context(), entry); err != nil {
		logging.WarnWithContext(logger, "command history record failed", "history_record_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "outcome is only in the job log"),
		)
	}
}
