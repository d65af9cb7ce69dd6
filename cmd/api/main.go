// Package main starts the replication planner HTTP server: health checks,
// Terraform state parsing, pattern analysis, plan generation and metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/terrascope/replicaplan/cmd/api/middleware"
	"github.com/terrascope/replicaplan/internal/config"
	"github.com/terrascope/replicaplan/internal/handlers"
)

func newRouter(api *handlers.API, cfg config.ServerConfig, logger *slog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Logging(logger), middleware.Cors(cfg.AllowedOrigin))

	r.HandleFunc("/health", handlers.HealthHandler).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/parse", api.Parse).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/analyze", api.Analyze).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/plan", api.Plan).Methods(http.MethodPost, http.MethodOptions)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:          "api",
		Short:        "Serve the replication planner over HTTP",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file (default $"+config.EnvConfigPath+")")
	return cmd
}

// serve runs the server until ctx is done or the listener fails, then
// drains in-flight requests.
func serve(ctx context.Context, cfg config.Config) error {
	logger := cfg.Server.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	api := handlers.NewAPI(cfg.Planner, cfg.Server.MaxBodyBytes, logger)
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           newRouter(api, cfg.Server, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", srv.Addr, err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
