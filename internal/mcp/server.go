// Package mcp provides the Model Context Protocol server for a bourse register.
//
// The server exposes the local catalog, the offline sale queue and the sync
// reconciler to MCP-compatible clients. It drives the same catalog, queue and
// reconcile packages as the CLI so both report identical state.
package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/bourse-pos/bourse/internal/catalog"
	"github.com/bourse-pos/bourse/internal/config"
	"github.com/bourse-pos/bourse/internal/db"
	blog "github.com/bourse-pos/bourse/internal/log"
	"github.com/bourse-pos/bourse/internal/queue"
	"github.com/bourse-pos/bourse/internal/reconcile"
	"github.com/bourse-pos/bourse/internal/remote"
	"github.com/bourse-pos/bourse/internal/telemetry"
	"github.com/bourse-pos/bourse/pkg/version"
)

// Server wraps the MCP server with register functionality.
type Server struct {
	db         *db.DB
	cfg        *config.Config
	api        remote.API
	catalog    *catalog.Manager
	queue      *queue.Queue
	reconciler *reconcile.Reconciler
	logger     *slog.Logger
	server     *server.MCPServer
	telemetry  telemetry.Client
}

// NewServer creates a new MCP server instance. api may be nil when no
// sale-event server is configured; the sync tool then reports an error.
func NewServer(database *db.DB, cfg *config.Config, api remote.API, logger *slog.Logger, tc telemetry.Client) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if tc == nil {
		tc = telemetry.Noop()
	}
	logger = blog.OrDiscard(logger)

	s := &Server{
		db:        database,
		cfg:       cfg,
		api:       api,
		logger:    logger,
		telemetry: tc,
	}
	s.catalog = catalog.NewManager(database, api, logger, tc)
	s.queue = queue.New(database,
		queue.WithCapacity(cfg.Register.QueueCapacity),
		queue.WithLogger(logger),
		queue.WithTelemetry(tc),
	)
	s.reconciler = reconcile.New(database, api, logger, tc)

	s.server = server.NewMCPServer(
		"bourse",
		version.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
	)

	s.registerTools()
	s.registerResources()

	return s
}

// Serve starts the MCP server over stdio.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp server starting", "edition_id", s.cfg.Register.EditionID)
	return server.ServeStdio(s.server)
}

// registerTools adds all register tools to the MCP server.
func (s *Server) registerTools() {
	s.server.AddTool(lookupTool(), s.handleLookup)
	s.server.AddTool(pendingTool(), s.handlePending)
	s.server.AddTool(conflictsTool(), s.handleConflicts)
	s.server.AddTool(statusTool(), s.handleStatus)
	s.server.AddTool(syncTool(), s.handleSync)
}

// registerResources adds the article and sale resource templates.
func (s *Server) registerResources() {
	s.server.AddResourceTemplate(
		mcp.NewResourceTemplate(
			resourcePrefix+"article/{barcode}",
			"Cached article",
			mcp.WithTemplateDescription("JSON record of an article in the local catalog"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleArticleResource,
	)
	s.server.AddResourceTemplate(
		mcp.NewResourceTemplate(
			resourcePrefix+"sale/{id}",
			"Queued sale",
			mcp.WithTemplateDescription("JSON record of a pending or conflicting sale"),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleSaleResource,
	)
}
