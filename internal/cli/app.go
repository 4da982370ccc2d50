package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bourse-pos/bourse/internal/catalog"
	"github.com/bourse-pos/bourse/internal/config"
	"github.com/bourse-pos/bourse/internal/db"
	blog "github.com/bourse-pos/bourse/internal/log"
	"github.com/bourse-pos/bourse/internal/queue"
	"github.com/bourse-pos/bourse/internal/reconcile"
	"github.com/bourse-pos/bourse/internal/remote"
)

// app holds the components a command works with.
type app struct {
	cfg        *config.Config
	db         *db.DB
	logger     *blog.Logger
	api        remote.API
	apiErr     error
	catalog    *catalog.Manager
	queue      *queue.Queue
	reconciler *reconcile.Reconciler
}

// openApp loads configuration and opens the local store. The remote client
// is optional: offline commands work without a configured server.
func openApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	paths := config.GetPaths(cfg)
	logger, err := blog.New(paths.Logs, cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	dbCfg := db.DefaultConfig(paths.Database)
	dbCfg.Debug = cfg.Debug
	database, err := db.New(dbCfg)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	a := &app{cfg: cfg, db: database, logger: logger}

	client, err := remote.NewClient(remote.ClientConfig{
		BaseURL:   cfg.API.URL,
		Token:     cfg.API.Token,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
	})
	if err != nil {
		a.apiErr = err
	} else {
		a.api = client
	}

	a.catalog = catalog.NewManager(database, a.api, logger.Logger, telemetryClient)
	a.queue = queue.New(database,
		queue.WithCapacity(cfg.Register.QueueCapacity),
		queue.WithLogger(logger.Logger),
		queue.WithTelemetry(telemetryClient),
	)
	a.reconciler = reconcile.New(database, a.api, logger.Logger, telemetryClient)

	return a, nil
}

// Close releases the database and log file.
func (a *app) Close() {
	_ = a.db.Close()
	_ = a.logger.Close()
}

// requireAPI fails when no sale-event server is configured.
func (a *app) requireAPI() error {
	if a.api == nil {
		if errors.Is(a.apiErr, remote.ErrNotConfigured) {
			return fmt.Errorf("%w: set %s", a.apiErr, config.EnvAPIURL)
		}
		return a.apiErr
	}
	return nil
}

// editionID resolves the --edition flag, falling back to configuration.
func (a *app) editionID(cmd *cobra.Command) (string, error) {
	edition, _ := cmd.Flags().GetString("edition")
	if edition == "" {
		edition = a.cfg.Register.EditionID
	}
	if edition == "" {
		return "", fmt.Errorf("%w: pass --edition or set %s", catalog.ErrNoEdition, config.EnvEditionID)
	}
	return edition, nil
}

// isInteractive checks if we're running in an interactive terminal.
func isInteractive() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
