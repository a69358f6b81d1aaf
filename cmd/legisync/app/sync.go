package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fivethreefive/legisync/internal/app"
	pkgsync "github.com/fivethreefive/legisync/internal/sync"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run a single sync pass",
		Long: `Run one pass over the configured lookback: fetch recent roll-call votes and the
bills they concern, publish new records and amend changed ones. Exits non-zero when
any record failed.`,
		Args: cobra.NoArgs,
		RunE: runSync,
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	legisync, err := app.NewLegisyncApp(ctx, app.WithConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer func() {
		if err := legisync.Stop(shutdownTimeout); err != nil {
			slog.Error("Shutdown failed", "error", err)
		}
	}()

	return runPass(ctx, legisync, cmd.OutOrStdout())
}

// runPass runs one pass and prints its summary.
func runPass(ctx context.Context, legisync *app.LegisyncApp, out io.Writer) error {
	res, err := legisync.RunOnce(ctx)
	if err != nil {
		return fmt.Errorf("sync pass failed: %w", err)
	}
	printResult(out, res)
	if res.Failed > 0 {
		return fmt.Errorf("%d of %d records failed", res.Failed, res.Candidates)
	}
	return nil
}

func printResult(out io.Writer, res *pkgsync.Result) {
	_, _ = fmt.Fprintf(out, "pass %s: %d candidates, %d published, %d amended, %d unchanged, %d skipped, %d failed\n",
		res.PassID, res.Candidates, res.Published, res.Amended, res.Unchanged, res.Skipped, res.Failed)
	for _, f := range res.Failures {
		_, _ = fmt.Fprintf(out, "  %s (%s): %v\n", f.Key, f.Phase, f.Err)
	}
}
