package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banshee-data/scene.report/internal/api"
	"github.com/banshee-data/scene.report/internal/config"
	"github.com/banshee-data/scene.report/internal/monitoring"
)

func (a *app) handleServe(args []string) error {
	fs := newFlagSet(a, "serve")
	opts := registerCommon(fs)
	opts.registerListen(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := opts.load(fs)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.GetListen())
	if err != nil {
		return err
	}
	return a.serve(ctx, ln, opts, cfg)
}

// serve runs the API on ln until ctx is cancelled, then shuts down
// gracefully.
func (a *app) serve(ctx context.Context, ln net.Listener, opts *options, cfg *config.ScenarioConfig) error {
	ex, ds, err := openExtractor(cfg)
	if err != nil {
		ln.Close()
		return err
	}
	defer ds.Close()

	database, err := opts.openDB(cfg)
	if err != nil {
		ln.Close()
		return err
	}

	mux := http.NewServeMux()
	if database != nil {
		defer database.Close()
		// admin debugging routes (tailsql, backup) behind tsweb's debug access checks
		if err := database.AttachAdminRoutes(mux); err != nil {
			ln.Close()
			return err
		}
	}
	mux.Handle("/api/", api.NewServer(ex, database).ServeMux())

	server := &http.Server{
		Handler:           api.LoggingMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		monitoring.Logf("serving %s on http://%s", cfg.GetDatasetPath(), ln.Addr())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	monitoring.Logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("HTTP server shutdown error: %v", err)
	}
	<-errc
	monitoring.Logf("Graceful shutdown complete")
	return nil
}
