package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"mercator-hq/wiretap/pkg/cli"
)

var (
	// Global flags
	cfgFile       string
	envFile       string
	serverAddress string
	clientTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "wiretap",
	Short: "Wiretap - background traffic recorder",
	Long: `Wiretap records API traffic flowing through its forward proxy.

Each request's lifecycle events are correlated into a single record and kept
in a bounded, newest-first log. A control API toggles recording, returns or
clears the log, and installs a header override for requests under a URL prefix.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadEnvFile,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults plus WIRETAP_* environment when empty)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file (default .env if present)")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "s", "127.0.0.1:8787", "control API address used by client commands")
	rootCmd.PersistentFlags().DurationVar(&clientTimeout, "timeout", 10*time.Second, "control API request timeout")
}

// loadEnvFile loads envFile, or .env when present. Variables already set in
// the environment win.
func loadEnvFile(cmd *cobra.Command, args []string) error {
	if envFile == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cli.WrapConfigError("failed to load .env", err)
		}
		return nil
	}
	if err := godotenv.Load(envFile); err != nil {
		return cli.WrapConfigError(fmt.Sprintf("failed to load %s", envFile), err)
	}
	return nil
}
