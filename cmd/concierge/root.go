package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	envFile    string
	logLevel   string
	logFormat  string
	storePath  string
	maxSteps   int
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "concierge",
		Short:         "Conversational store assistant",
		Long:          "Routes shopper requests to specialised workers that search the catalog and manage carts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile(flags.envFile, cmd.Flags().Changed("env-file"))
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configFile, "config", "c", "", "Path to a YAML or JSON config file")
	pf.StringVar(&flags.envFile, "env-file", ".env", "Environment file loaded before CONCIERGE_* overrides")
	pf.StringVar(&flags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	pf.StringVar(&flags.logFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&flags.storePath, "store", "", "Path to the SQLite database (overrides config)")
	pf.IntVar(&flags.maxSteps, "max-steps", 0, "Step ceiling per turn (overrides config)")

	root.AddCommand(
		newServeCmd(flags),
		newChatCmd(flags),
		newMCPCmd(flags),
		newResumeCmd(flags),
		newSeedCmd(flags),
	)
	return root
}

// loadEnvFile loads path into the environment. A missing default file is
// not an error; a missing file named explicitly is.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
