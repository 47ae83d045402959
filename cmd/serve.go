package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/skyscope/skyscope/internal/app"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the detection and visibility API server",
		Long: `Starts the Skyscope API on the specified port.

The detector backend is contacted at startup; the server refuses to start
if the model cannot be loaded.

Endpoints:
  POST /detect, /v1/detect          multipart image + repeated classes
  GET  /api/visible?lat=&lon=&at=   constellations above the horizon
  GET  /api/constellations/{name}   background notes
  GET  /labels                      detector vocabulary
  GET  /healthcheck`,
		Example: `  # Start server on default port 8888
  skyscope serve

  # Start server on custom port with the Gemini backend
  SKYSCOPE_DETECT_BACKEND=gemini skyscope serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}

			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			mux := a.Handler().Routes(a.Metrics)

			addr := ":" + cfg.Server.Port
			server := &http.Server{
				Addr:    addr,
				Handler: mux,
			}

			serverErr := make(chan error, 2)
			go func() {
				slog.Info("Skyscope API available", "addr", addr, "url", "http://localhost"+addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			var metricsServer *http.Server
			if cfg.Metrics.Enabled {
				metricsMux := http.NewServeMux()
				metricsMux.Handle("/metrics", a.Metrics.Handler())
				metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux}
				go func() {
					slog.Info("Metrics available", "addr", cfg.Metrics.Addr)
					if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						serverErr <- err
					}
				}()
			}

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				if metricsServer != nil {
					if err := metricsServer.Shutdown(shutdownCtx); err != nil {
						slog.Warn("Metrics server shutdown failed", "err", err)
					}
				}
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on (overrides server.port)")

	return cmd
}
