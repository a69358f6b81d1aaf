package app

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivethreefive/legisync/internal/app"
)

const shutdownTimeout = 30 * time.Second

func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the sync loop",
		Long: `Run sync passes every syncInterval until interrupted. When an ops address is
set, /healthz, /version, /metrics and /v1/status are served on it.`,
		Args: cobra.NoArgs,
		RunE: runLoop,
	}

	runCmd.Flags().String("address", "", "Ops server address (defaults to telemetry.address when telemetry is enabled)")
	runCmd.Flags().Bool("once", false, "Run a single pass and exit")

	for _, name := range []string{"address", "once"} {
		if err := viper.BindPFlag(name, runCmd.Flags().Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}

	return runCmd
}

func runLoop(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	opts := []app.LegisyncAppOptions{app.WithConfig(cfg)}
	once := viper.GetBool("once")
	address := viper.GetString("address")
	if address == "" && cfg.Telemetry != nil && cfg.Telemetry.Enabled {
		address = cfg.Telemetry.Address
	}
	if address != "" && !once {
		opts = append(opts, app.WithAddress(address))
	}

	ctx := cmd.Context()
	legisync, err := app.NewLegisyncApp(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	if once {
		defer func() {
			if err := legisync.Stop(shutdownTimeout); err != nil {
				slog.Error("Shutdown failed", "error", err)
			}
		}()
		return runPass(ctx, legisync, cmd.OutOrStdout())
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- legisync.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		slog.Info("Received signal", "signal", sig)
	case runErr = <-errCh:
		if runErr != nil {
			slog.Error("Application stopped", "error", runErr)
		}
	}

	if err := legisync.Stop(shutdownTimeout); err != nil {
		slog.Error("Shutdown failed", "error", err)
		return err
	}
	return runErr
}
