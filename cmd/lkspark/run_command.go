package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"lkspark/internal/command"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var expected []int
	var stdinPath string
	var line string

	cmd := &cobra.Command{
		Use:   "run [flags] -- COMMAND [ARG...]",
		Short: "Run a tool and check its exit status",
		Long: "Run a tool without a shell, print its output, and fail unless it exits with\n" +
			"one of the --expect statuses (default 0).",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			argv, err := commandArgs(args, line)
			if err != nil {
				return err
			}
			input, closeInput, err := openInput(cmd, stdinPath)
			if err != nil {
				return err
			}
			defer closeInput()

			runner := command.New(command.WithLogger(ctx.loggerFor(cmd)))
			res, err := runner.SafeRun(cmd.Context(), argv, input, expected...)
			fmt.Fprint(cmd.OutOrStdout(), res.Stdout)
			fmt.Fprint(cmd.ErrOrStderr(), res.Stderr)

			var subErr *command.SubprocessError
			if errors.As(err, &subErr) {
				if !res.Spawned() {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s could not be started\n", command.FormatCommand(argv))
				}
				return &exitStatusError{status: subErr.Ret}
			}
			return err
		},
	}

	cmd.Flags().IntSliceVar(&expected, "expect", nil, "Accepted exit status (repeatable, default 0)")
	cmd.Flags().StringVar(&stdinPath, "stdin", "", "Feed this file to the tool's standard input (- for our stdin)")
	cmd.Flags().StringVar(&line, "line", "", "Command line to split with shell word rules instead of positional arguments")
	return cmd
}

// commandArgs returns the argv given after -- or, with line set, the split line.
func commandArgs(args []string, line string) ([]string, error) {
	if strings.TrimSpace(line) != "" {
		if len(args) > 0 {
			return nil, errors.New("use either --line or positional arguments, not both")
		}
		return command.Split(line)
	}
	if len(args) == 0 {
		return nil, errors.New("a command is required after --")
	}
	return args, nil
}

func openInput(cmd *cobra.Command, path string) (command.Input, func(), error) {
	switch strings.TrimSpace(path) {
	case "":
		return nil, func() {}, nil
	case "-":
		return command.Stream(cmd.InOrStdin()), func() {}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open stdin file: %w", err)
	}
	return command.Stream(io.Reader(file)), func() { _ = file.Close() }, nil
}
