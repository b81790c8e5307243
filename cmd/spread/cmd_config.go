package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/nvandessel/spread/internal/config"
	"github.com/nvandessel/spread/internal/export"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage spread configuration",
		Long: `View and create spread configuration files.

Settings are resolved in this order: defaults, the config file
(--config, or ~/.spread/config.yaml), SPREAD_* environment variables, and
command-line flags.

Examples:
  spread config show                      # Show the resolved configuration
  spread config show --config spread.yaml
  spread config init spread.yaml          # Write a commented default file`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}
			data, err := cfg.Marshal()
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

const configHeader = `# spread configuration.
# Enum values are case-insensitive:
#   type_of_data:   PRESENCE_ABSENCE | PRESENCE_ONLY
#   score_function: LSS | LOG_LIKELIHOOD | LIKELIHOOD_LSS
#   jump_law:       DIRAC | NORMAL | LOGNORMAL | CAUCHY
#   connectivity:   JUMP_PROBABILITY | HUMAN_ACTIVITY_MAX | HUMAN_ACTIVITY_MEAN
# Input paths support ${VAR} expansion.

`

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			path := "spread.yaml"
			if len(args) == 1 {
				path = args[0]
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			data, err := config.Default().Marshal()
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			if err := export.WriteFile(path, func(w io.Writer) error {
				if _, err := io.WriteString(w, configHeader); err != nil {
					return err
				}
				_, err := w.Write(data)
				return err
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().Bool("force", false, "Overwrite an existing file")
	return cmd
}
