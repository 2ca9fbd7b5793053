// cmd/service/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("Application error", "error", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "service",
	Short:        "Snapshot GitHub repositories and serve dashboard data",
	SilenceUsage: true,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run a single snapshot cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}

		meta, err := a.syncer.RunOnce(ctx)
		if err != nil {
			return err
		}
		a.logger.Info("Snapshot written", "snapshot_id", meta.SnapshotID, "last_updated", meta.LastUpdated)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read API over the latest snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		return a.serveHTTP(ctx)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sync loop and the read API together",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		a, err := newApp(ctx)
		if err != nil {
			return err
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			a.syncer.Start(gctx)
			return nil
		})
		g.Go(func() error {
			return a.serveHTTP(gctx)
		})

		a.logger.Info("Application started. Waiting for shutdown signal...")
		err = g.Wait()
		a.logger.Info("Shutdown complete")
		return err
	},
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

func init() {
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
}
