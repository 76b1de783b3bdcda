package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"lkspark/internal/command"
	"lkspark/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jobID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List commands recorded by exec",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openHistory()
			if err != nil {
				return err
			}
			defer store.Close()

			var entries []history.Entry
			if job := strings.TrimSpace(jobID); job != "" {
				entries, err = store.ForJob(cmd.Context(), job)
			} else {
				entries, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No commands recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					strconv.FormatInt(e.ID, 10),
					e.JobID,
					command.FormatCommand(e.Command),
					strconv.Itoa(e.ExitStatus),
					e.StartedAt.Local().Format(time.DateTime),
					e.Duration().Round(time.Millisecond).String(),
				})
			}
			renderTable(out,
				[]string{"ID", "Job", "Command", "Status", "Started", "Duration"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
			)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries to show")
	cmd.Flags().StringVar(&jobID, "job", "", "Show every command of one job instead")
	return cmd
}
