// Package cli implements the tracksmith command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hallgrim/tracksmith/internal/config"
	"github.com/hallgrim/tracksmith/internal/logging"
)

// Execute runs the root command. With no arguments it opens the editor.
func Execute(version string) error {
	root := newRootCmd(version)
	if len(os.Args) == 1 {
		root.SetArgs([]string{"edit"})
	}
	return root.Execute()
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tracksmith",
		Short:         "Timeline editor for industrial asset data",
		Long:          "tracksmith arranges imported asset properties as clips on a timeline and syncs the arranged windows to a backend.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	cmd.PersistentFlags().String("config", "", "config file (default is $HOME/.config/tracksmith/config.yaml)")
	cmd.PersistentFlags().String("log-level", "", "override logging level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "override logging format (json, console)")

	cmd.AddCommand(
		newEditCmd(),
		newImportCmd(),
		newCatalogCmd(),
		newVersionCmd(version),
	)

	return cmd
}

func newVersionCmd(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the tracksmith version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "tracksmith "+version)
		},
	}
}

// loadConfig resolves configuration for a command, applying the logging
// flag overrides and initializing the global logger.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loader := config.NewLoader()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loader.SetConfigFile(path)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Logging.Format = format
	}

	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		EnableCaller: cfg.Logging.EnableCaller,
	})

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("creating directories: %w", err)
	}
	return cfg, nil
}
