package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/eringen/folio"
)

// ServeCmd runs the HTTP server until interrupted.
type ServeCmd struct {
	Addr string `short:"a" help:"Listen address (overrides ADDR)."`
}

func (s *ServeCmd) Run(_ *CLI) error {
	cfg := folio.ConfigFromEnv()
	if s.Addr != "" {
		cfg.Addr = s.Addr
	}
	if cfg.Version == "" && version != "dev" {
		cfg.Version = version
	}

	app := folio.New(cfg, folio.ViewFuncs{})
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() { errc <- app.Start() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.Echo.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
