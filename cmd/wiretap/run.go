package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/wiretap/pkg/cli"
	"mercator-hq/wiretap/pkg/config"
	"mercator-hq/wiretap/pkg/telemetry/logging"
)

var runFlags struct {
	listenAddress string
	proxyAddress  string
	logLevel      string
	noProxy       bool
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the recorder",
	Long: `Start the forward proxy and the control API.

Point HTTP clients at the proxy address (for example with HTTP_PROXY) and
enable recording with "wiretap recording on". Recording state and the record
log survive restarts when the sqlite backend is used.

Examples:
  # Start with defaults
  wiretap run

  # Start with a config file
  wiretap run --config /etc/wiretap/wiretap.yaml

  # Override listen addresses
  wiretap run --listen 127.0.0.1:9000 --proxy-listen 127.0.0.1:9001

  # Validate config without starting
  wiretap run --dry-run`,
	RunE: runRecorder,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override control API listen address")
	runCmd.Flags().StringVar(&runFlags.proxyAddress, "proxy-listen", "", "override forward proxy listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.noProxy, "no-proxy", false, "serve the control API only")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

// loadRunConfig loads the configuration and applies run flag overrides.
func loadRunConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.WrapConfigError("failed to load config", err)
	}
	cfg := config.GetConfig()
	if cfg == nil {
		return nil, cli.NewConfigError("", "configuration not initialized")
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.proxyAddress != "" {
		cfg.Proxy.ListenAddress = runFlags.proxyAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if runFlags.noProxy {
		cfg.Proxy.Enabled = false
	}

	if err := config.Validate(cfg); err != nil {
		return nil, cli.WrapConfigError("invalid flags", err)
	}
	return cfg, nil
}

func runRecorder(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging))
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	out := cmd.OutOrStdout()
	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := a.close(shutdownCtx); err != nil {
			slog.Error("shutdown failed", "error", err)
		}
	}()

	if cfg.Capture.Watch && cfgFile != "" {
		if err := watchConfig(ctx, a, cfgFile); err != nil {
			slog.Warn("config hot reload disabled", "error", err)
		}
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- a.server.Start(ctx)
	}()

	select {
	case <-a.server.Ready():
	case err := <-errChan:
		return cli.NewCommandError("run", err)
	}

	printBanner(cmd, a)

	if err := <-errChan; err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(out, "✓ Recorder stopped")
	return nil
}

// watchConfig reloads the capture section whenever the config file changes.
func watchConfig(ctx context.Context, a *app, path string) error {
	w, err := config.NewWatcher(path, 0)
	if err != nil {
		return err
	}
	go func() {
		err := w.Watch(ctx, func(next *config.Config) error {
			if err := a.reloadCapture(next); err != nil {
				return err
			}
			config.SetConfig(next)
			return nil
		})
		if err != nil {
			slog.Error("config watcher stopped", "error", err)
		}
	}()
	return nil
}

func printBanner(cmd *cobra.Command, a *app) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wiretap v%s\n", Version)
	if cfgFile != "" {
		fmt.Fprintf(out, "✓ Configuration loaded from %s\n", cfgFile)
	}
	fmt.Fprintf(out, "✓ Storage: %s (capacity %d)\n", a.backend.Name(), a.log.Capacity())

	recording, err := a.toggle.Enabled(cmd.Context())
	state := "off"
	if err == nil && recording {
		state = "on"
	}
	fmt.Fprintf(out, "✓ Recording: %s\n", state)

	control := a.server.ControlAddr().String()
	fmt.Fprintf(out, "✓ Control API: http://%s/api/v1\n", control)
	if a.cfg.Telemetry.Health.Enabled {
		fmt.Fprintf(out, "✓ Health endpoint: http://%s%s\n", control, a.cfg.Telemetry.Health.LivenessPath)
	}
	if a.cfg.Telemetry.Metrics.Enabled {
		fmt.Fprintf(out, "✓ Metrics endpoint: http://%s%s\n", control, a.cfg.Telemetry.Metrics.Path)
	}
	if addr := a.server.ProxyAddr(); addr != nil {
		fmt.Fprintf(out, "✓ Proxy listening on %s\n", addr)
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")
}
