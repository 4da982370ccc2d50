// Bourse - offline-capable checkout register for secondhand sale events.
//
// Keeps a local catalog for barcode lookups, queues sales while the
// sale-event server is unreachable and uploads them once it is back.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bourse-pos/bourse/internal/cli"
	"github.com/bourse-pos/bourse/internal/config"
	"github.com/bourse-pos/bourse/internal/db"
	"github.com/bourse-pos/bourse/internal/telemetry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Persistent tracking ID lives in the local store. A broken config or
	// store is reported by the command itself.
	telemetryClient := telemetry.New(nil)
	if cfg, err := config.Load(); err == nil {
		paths := config.GetPaths(cfg)
		if database, err := db.New(db.DefaultConfig(paths.Database)); err == nil {
			telemetryClient = telemetry.New(database)
			_ = database.Close()
		}
	}
	defer telemetryClient.Close()

	if err := cli.Execute(ctx, telemetryClient); err != nil {
		os.Exit(1)
	}
}
