package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"lkspark/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved worker configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			arch := strings.Join(cfg.SupportedArchitectures(), ", ")
			if cfg.ArchitecturesGuessed() {
				arch += " (guessed)"
			}
			logs := cfg.Logging()
			rows := [][]string{
				{"Config path", cfg.Path()},
				{"Machine name", cfg.MachineName()},
				{"Machine ID", cfg.MachineID()},
				{"Client UUID", cfg.ClientUUID()},
				{"Lighthouse server", cfg.LighthouseServer()},
				{"Max jobs", strconv.Itoa(cfg.MaxJobs())},
				{"Client certificate", cfg.ClientCertPath()},
				{"Server key", cfg.ServerCertPath()},
				{"Workspace root", cfg.WorkspaceRoot()},
				{"Workspaces", cfg.WorkspaceDir()},
				{"Job logs", cfg.JobLogDir()},
				{"History", cfg.HistoryPath()},
				{"Architectures", arch},
				{"Accepted jobs", strings.Join(cfg.AcceptedJobKinds(), ", ")},
				{"Dput host", cfg.DputHost()},
				{"GPG key", cfg.GpgKeyID()},
				{"Log level", logs.Level},
				{"Log format", logs.Format},
				{"Log retention (days)", strconv.Itoa(logs.RetentionDays)},
			}
			renderTable(cmd.OutOrStdout(), []string{"Setting", "Value"}, rows, nil)
			return nil
		},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", cfg.Path())
			if cfg.ArchitecturesGuessed() {
				fmt.Fprintf(out, "Architectures were guessed as %s; set Architectures to silence this\n", strings.Join(cfg.SupportedArchitectures(), ", "))
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				target = config.DefaultConfigPath()
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit LighthouseServer, AcceptedJobs, DputHost and GpgKeyID before starting the worker.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}
