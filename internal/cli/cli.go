// Package cli provides the command-line interface for a bourse register.
package cli

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/bourse-pos/bourse/internal/catalog"
	"github.com/bourse-pos/bourse/internal/config"
	"github.com/bourse-pos/bourse/internal/db"
	"github.com/bourse-pos/bourse/internal/queue"
	"github.com/bourse-pos/bourse/internal/reconcile"
	"github.com/bourse-pos/bourse/internal/remote"
	"github.com/bourse-pos/bourse/internal/telemetry"
	"github.com/bourse-pos/bourse/pkg/version"
)

var telemetryClient telemetry.Client = telemetry.Noop()

var commandStartTime time.Time

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)

const rule = "──────────────────────────────────────────────────"

var rootCmd = &cobra.Command{
	Use:   "bourse",
	Short: "Offline-capable checkout register for bourse sale events",
	Long: `Offline-capable checkout register for bourse sale events

Keeps a local copy of the edition's catalog so articles can be scanned and
sold while the sale-event server is unreachable. Sales made offline are
queued (up to BOURSE_QUEUE_CAPACITY, default 50) and uploaded with
'bourse sync' once the connection is back.

Telemetry:
  Telemetry is enabled by default, always anonymous, and never records
  article, buyer or depositor data.

  Opt-out with:
  	BOURSE_TELEMETRY_TRACKING_ENABLED=false`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		commandStartTime = time.Now()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() != "bourse" {
			durationMs := time.Since(commandStartTime).Milliseconds()
			hasFlags := cmd.Flags().NFlag() > 0
			telemetryClient.TrackCLICommandExecuted(cmd.Name(), hasFlags, durationMs)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().String("edition", "", "edition ID (defaults to BOURSE_EDITION_ID)")

	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(sellCmd)
	rootCmd.AddCommand(pendingCmd)
	rootCmd.AddCommand(conflictsCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
}

// Execute runs the CLI with fang enhancements.
func Execute(ctx context.Context, tc telemetry.Client) error {
	if tc == nil {
		tc = telemetry.New(nil)
	}
	telemetryClient = tc

	return fang.Execute(
		ctx,
		rootCmd,
		fang.WithVersion(version.Short()),
		fang.WithCommit(version.Commit),
	)
}

// trackCLIError wraps an error with telemetry tracking.
// Call this before returning errors from CLI commands.
func trackCLIError(cmdName string, err error) error {
	if err == nil {
		return nil
	}
	errorType := classifyError(err)
	telemetryClient.TrackCLIError(cmdName, errorType)
	return err
}

// classifyError determines the error type for telemetry.
func classifyError(err error) string {
	var apiErr *remote.APIError
	switch {
	case errors.Is(err, queue.ErrQueueFull):
		return "queue_full"
	case errors.Is(err, queue.ErrAlreadySold):
		return "already_sold"
	case errors.Is(err, catalog.ErrDuplicateBarcode):
		return "catalog_data_error"
	case errors.Is(err, queue.ErrInvalidSale), errors.Is(err, catalog.ErrInvalidBarcode):
		return "validation_error"
	case errors.Is(err, reconcile.ErrSyncTransport):
		return "network_error"
	case errors.Is(err, db.ErrStorageUnavailable):
		return "database_error"
	case errors.Is(err, config.ErrInvalidConfig), errors.Is(err, remote.ErrNotConfigured), errors.Is(err, catalog.ErrNoEdition):
		return "config_error"
	case errors.Is(err, remote.ErrClientOutdated):
		return "client_outdated"
	case errors.As(err, &apiErr):
		return "api_error"
	}

	errStr := err.Error()
	switch {
	case containsAny(errStr, "network", "timeout", "connection"):
		return "network_error"
	case containsAny(errStr, "permission", "access denied"):
		return "permission_error"
	case containsAny(errStr, "not found", "not in the local catalog"):
		return "not_found_error"
	case containsAny(errStr, "invalid", "parse", "format"):
		return "validation_error"
	default:
		return "unknown_error"
	}
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
