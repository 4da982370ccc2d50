// Package main provides the bourse-mcp server.
//
// bourse-mcp exposes a register's local catalog, offline sale queue and sync
// via the Model Context Protocol.
//
// Usage:
//
//	bourse-mcp [flags]
//
// The server communicates via JSON-RPC 2.0 over stdio (stdin/stdout).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bourse-pos/bourse/internal/config"
	"github.com/bourse-pos/bourse/internal/db"
	blog "github.com/bourse-pos/bourse/internal/log"
	"github.com/bourse-pos/bourse/internal/mcp"
	"github.com/bourse-pos/bourse/internal/remote"
	"github.com/bourse-pos/bourse/internal/telemetry"
	"github.com/bourse-pos/bourse/pkg/version"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-v") {
		fmt.Printf("bourse-mcp %s\n", version.Version)
		os.Exit(0)
	}

	if len(os.Args) > 1 && (os.Args[1] == "--help" || os.Args[1] == "-h") {
		printHelp()
		os.Exit(0)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	paths := config.GetPaths(cfg)

	// stdout carries the protocol, so logs go to the file only
	logger, err := blog.New(paths.Logs, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Close() }()

	database, err := db.New(db.DefaultConfig(paths.Database))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = database.Close()
	}()

	var api remote.API
	client, err := remote.NewClient(remote.ClientConfig{
		BaseURL:   cfg.API.URL,
		Token:     cfg.API.Token,
		Timeout:   cfg.API.Timeout,
		RateLimit: cfg.API.RateLimit,
	})
	if err != nil {
		logger.Warn("sale-event server unavailable, sync disabled", "error", err)
	} else {
		api = client
	}

	telemetryClient := telemetry.New(database)
	defer telemetryClient.Close()

	server := mcp.NewServer(database, cfg, api, logger.Logger, telemetryClient)
	if err := server.Serve(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	help := `bourse-mcp - MCP server for a bourse checkout register

USAGE:
    bourse-mcp [FLAGS]

FLAGS:
    -h, --help       Print this help message
    -v, --version    Print version information

DESCRIPTION:
    bourse-mcp is a Model Context Protocol (MCP) server that exposes the
    register's local catalog and offline sale queue to MCP-compatible clients.

    The server communicates via JSON-RPC 2.0 over stdio (stdin/stdout).

CONFIGURATION:
    Uses the same environment as the bourse CLI:
    BOURSE_HOME, BOURSE_API_URL, BOURSE_API_TOKEN, BOURSE_EDITION_ID,
    BOURSE_REGISTER, BOURSE_QUEUE_CAPACITY

TOOLS PROVIDED:
    bourse_lookup        Look up a barcode in the local catalog
    bourse_pending       List sales waiting for upload
    bourse_conflicts     List sales the server rejected
    bourse_status        Catalog, queue and sync state
    bourse_sync          Upload pending sales in one batch

RESOURCES PROVIDED:
    bourse://article/{barcode}   Cached article as JSON
`
	fmt.Print(help)
}
