package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/eringen/folio"
)

// ExportCmd writes the site as static files.
type ExportCmd struct {
	Out string `short:"o" default:"dist" help:"Output directory."`
}

func (e *ExportCmd) Run(_ *CLI) error {
	cfg := folio.ConfigFromEnv()
	// A static export has no server-side collection.
	cfg.VitalsEnabled = false
	cfg.MetricsEnabled = false

	app := folio.New(cfg, folio.ViewFuncs{})
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := app.Export(ctx, e.Out)
	if err != nil {
		return err
	}
	fmt.Printf("Exported %d pages and %d assets to %s\n", res.Pages, res.Assets, e.Out)
	return nil
}
