package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bourse-pos/bourse/internal/catalog"
	"github.com/bourse-pos/bourse/internal/config"
	"github.com/bourse-pos/bourse/internal/db"
	"github.com/bourse-pos/bourse/internal/models"
	"github.com/bourse-pos/bourse/internal/queue"
	"github.com/bourse-pos/bourse/internal/reconcile"
	"github.com/bourse-pos/bourse/internal/remote"
	"github.com/bourse-pos/bourse/internal/telemetry"
	"github.com/bourse-pos/bourse/internal/telemetry/telemetrytest"
)

func TestRootCmd_Structure(t *testing.T) {
	assert.Equal(t, "bourse", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("edition"))
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	var names []string
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}

	for _, want := range []string{"refresh", "lookup", "catalog", "sell", "pending", "conflicts", "sync", "status"} {
		assert.Contains(t, names, want)
	}
}

func TestSellCmd_Flags(t *testing.T) {
	assert.NotNil(t, sellCmd.Flags().Lookup("payment"))
	assert.NotNil(t, sellCmd.Flags().Lookup("register"))
	assert.NotNil(t, sellCmd.Flags().Lookup("yes"))
}

func TestCatalogCmd_Flags(t *testing.T) {
	assert.NotNil(t, catalogCmd.Flags().Lookup("limit"))
	assert.NotNil(t, catalogCmd.Flags().Lookup("offset"))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("enqueue: %w", queue.ErrQueueFull), "queue_full"},
		{fmt.Errorf("enqueue: %w", queue.ErrAlreadySold), "already_sold"},
		{fmt.Errorf("refresh catalog: %w: X1", catalog.ErrDuplicateBarcode), "catalog_data_error"},
		{queue.ErrInvalidSale, "validation_error"},
		{catalog.ErrInvalidBarcode, "validation_error"},
		{fmt.Errorf("%w: boom", reconcile.ErrSyncTransport), "network_error"},
		{fmt.Errorf("%w: disk", db.ErrStorageUnavailable), "database_error"},
		{remote.ErrNotConfigured, "config_error"},
		{config.ErrInvalidConfig, "config_error"},
		{catalog.ErrNoEdition, "config_error"},
		{remote.ErrClientOutdated, "client_outdated"},
		{&remote.APIError{StatusCode: 500}, "api_error"},
		{errors.New("connection reset"), "network_error"},
		{errors.New("barcode X is not in the local catalog"), "not_found_error"},
		{errors.New("something odd"), "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, classifyError(tt.err))
		})
	}
}

func TestTrackCLIError(t *testing.T) {
	rec := &telemetrytest.Recorder{}
	original := telemetryClient
	telemetryClient = rec
	defer func() { telemetryClient = original }()

	assert.NoError(t, trackCLIError("sync", nil))
	assert.Empty(t, rec.Events())

	err := trackCLIError("sell", queue.ErrQueueFull)
	assert.ErrorIs(t, err, queue.ErrQueueFull)

	ev, ok := rec.Last(telemetry.EventCLIErrorOccurred)
	require.True(t, ok)
	assert.Equal(t, "sell", ev.Properties["command_name"])
	assert.Equal(t, "queue_full", ev.Properties["error_type"])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "Vest…", truncate("Vestes", 5))
	assert.Equal(t, "Ré…", truncate("Réglisse", 3))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "never", formatTime(time.Time{}))
	assert.Equal(t, "-", orDash(""))
	assert.Equal(t, "x", orDash("x"))
}

// fakeServer serves a small catalog and confirms every uploaded sale.
type fakeServer struct {
	mu      sync.Mutex
	batches int
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/editions/spring-2026/catalog":
		_, _ = w.Write([]byte(`[
			{"articleId":"a1","barcode":"BRS001","description":"Red coat","price":"15.00"},
			{"articleId":"a2","barcode":"BRS002","description":"Ski boots","price":"22.50"}
		]`))
	case r.Method == http.MethodPost && r.URL.Path == "/editions/spring-2026/sales/batch":
		f.mu.Lock()
		f.batches++
		f.mu.Unlock()

		var req struct {
			Sales []remote.SaleSubmission `json:"sales"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		results := make([]remote.SaleResult, len(req.Sales))
		for i, s := range req.Sales {
			results[i] = remote.SaleResult{ClientID: s.ClientID, Status: remote.ResultSynced}
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"results": results})
	default:
		http.NotFound(w, r)
	}
}

func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func TestCommands_OfflineSaleRoundTrip(t *testing.T) {
	server := &fakeServer{}
	ts := httptest.NewServer(server)
	defer ts.Close()

	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	t.Setenv(config.EnvAPIURL, ts.URL)
	t.Setenv(config.EnvAPIToken, "")
	t.Setenv(config.EnvEditionID, "spring-2026")
	t.Setenv(config.EnvRegister, "2")
	t.Setenv(config.EnvQueueCapacity, "")
	t.Setenv(config.EnvDebug, "")

	require.NoError(t, runCLI(t, "refresh"))
	require.NoError(t, runCLI(t, "lookup", "BRS001"))
	require.NoError(t, runCLI(t, "catalog", "--limit", "1"))
	require.NoError(t, runCLI(t, "sell", "BRS001", "--payment", "card", "--yes"))

	err := runCLI(t, "sell", "BRS001", "--payment", "card", "--yes")
	assert.Error(t, err, "sold article should no longer be in the catalog")

	require.NoError(t, runCLI(t, "pending"))
	require.NoError(t, runCLI(t, "status"))

	database, err := db.New(db.DefaultConfig(filepath.Join(home, "bourse.db")))
	require.NoError(t, err)
	pending, err := database.ListSalesByStatus("spring-2026", models.SaleStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.PaymentCard, pending[0].PaymentMethod)
	assert.Equal(t, 2, pending[0].RegisterNumber)
	require.NoError(t, database.Close())

	require.NoError(t, runCLI(t, "sync"))
	require.NoError(t, runCLI(t, "sync"))
	assert.Equal(t, 1, server.batches)

	require.NoError(t, runCLI(t, "conflicts"))
}

func TestCommands_RequireServerForSync(t *testing.T) {
	t.Setenv(config.EnvHome, t.TempDir())
	t.Setenv(config.EnvAPIURL, "")
	t.Setenv(config.EnvEditionID, "spring-2026")
	t.Setenv(config.EnvQueueCapacity, "")
	t.Setenv(config.EnvRegister, "")
	t.Setenv(config.EnvDebug, "")

	err := runCLI(t, "sync")
	assert.ErrorIs(t, err, remote.ErrNotConfigured)
}
