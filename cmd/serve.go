package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vibecast/logger"
	"vibecast/server"

	"github.com/spf13/cobra"
)

var serveWithWatcher bool

// serveCmd runs the admin API plus the built-in poll ticker. Deployments
// that trigger dispatch externally (cron) can run the API alone with a long
// poll interval, or use the dispatch subcommand.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin API and the periodic dispatch loop.",
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := buildApp()
		if err != nil {
			return err
		}
		defer application.close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		// Poll loop: one run at startup, then one per interval. Runs are
		// strictly serial; a run in progress is never overlapped by the
		// next tick.
		go func() {
			ticker := time.NewTicker(application.cfg.PollInterval)
			defer ticker.Stop()
			for {
				if _, err := application.orch.Run(ctx); err != nil {
					logger.Error("Scheduled dispatch run failed", logger.ErrorField(err))
				}
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
				}
			}
		}()

		if serveWithWatcher {
			go func() {
				if err := application.syncer.Watch(ctx); err != nil && ctx.Err() == nil {
					logger.Error("Cache watcher stopped", logger.ErrorField(err))
				}
			}()
		}

		handler := server.NewAPIHandler(application.cfg, application.tracks,
			application.dispatches, application.orch, application.hub)
		srv := server.New(handler)

		errCh := make(chan error, 1)
		go func() {
			logger.Info("Admin API listening", logger.String("addr", srv.Addr))
			errCh <- srv.ListenAndServe()
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if err != nil && err != http.ErrServerClosed {
				return err
			}
		case sig := <-quit:
			logger.Info("Shutting down", logger.String("signal", sig.String()))
			cancel()
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Server shutdown failed", logger.ErrorField(err))
			}
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveWithWatcher, "watch-cache", false,
		"watch the local cache root and register dropped files in the catalog")
	rootCmd.AddCommand(serveCmd)
}
