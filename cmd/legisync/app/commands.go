// Package app provides the legisync command line.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivethreefive/legisync/internal/config"
	"github.com/fivethreefive/legisync/internal/logging"
	"github.com/fivethreefive/legisync/internal/versions"
)

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "legisync",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Publish congressional bills and votes and keep the posts current",
		Long: `legisync pulls recent roll-call votes and the bills they concern from a congress
data API, publishes each new record once to a subreddit, and amends the post when a
published field changes.`,
		PersistentPreRunE: setupLogging,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format)")
	rootCmd.PersistentFlags().String("log-format", "", "Log encoding (json or console)")
	for _, name := range []string{"config", "log-format"} {
		if err := viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newUntrackCmd())
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// setupLogging replaces the default logger when --log-format is given.
func setupLogging(_ *cobra.Command, _ []string) error {
	format := viper.GetString("log-format")
	if format == "" {
		return nil
	}
	logger, _, err := logging.New(
		logging.WithFormat(format),
		logging.WithLevel(logging.LevelFromEnv(config.NewEnv())),
	)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}

// loadConfig loads the file named by --config.
func loadConfig() (*config.Config, error) {
	path := viper.GetString("config")
	if path == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.LoadConfig(config.WithConfigPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration", "path", path, "data_dir", cfg.DataDir, "chambers", cfg.Chambers)
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info as JSON: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), info.String())
			return nil
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
