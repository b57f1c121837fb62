package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/FranksOps/linkscout/internal/api"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the discovery HTTP API",
	Long: `Starts the HTTP API:

  POST /api/discover   run a discovery
  GET  /api/runs       list stored runs
  GET  /healthz        liveness
  GET  /metrics        Prometheus metrics`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewServer(a.discoverer, a.store, defaultRequest(cfg), logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
