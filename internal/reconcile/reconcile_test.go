package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bourse-pos/bourse/internal/db"
	"github.com/bourse-pos/bourse/internal/models"
	"github.com/bourse-pos/bourse/internal/queue"
	"github.com/bourse-pos/bourse/internal/remote"
	"github.com/bourse-pos/bourse/internal/remote/remotetest"
	"github.com/bourse-pos/bourse/internal/telemetry"
	"github.com/bourse-pos/bourse/internal/telemetry/telemetrytest"
)

const edition = "spring-2026"

func testDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(db.DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

// queueSales enqueues one sale per description and returns them in order.
func queueSales(t *testing.T, database *db.DB, descriptions ...string) []*models.PendingSale {
	t.Helper()
	q := queue.New(database)
	sales := make([]*models.PendingSale, len(descriptions))
	for i, desc := range descriptions {
		sale, err := q.Enqueue(context.Background(), queue.SaleDraft{
			ArticleID:      fmt.Sprintf("art-%d", i),
			Barcode:        fmt.Sprintf("BRS%05d", i),
			Description:    desc,
			Price:          decimal.RequireFromString("5.00"),
			PaymentMethod:  models.PaymentCash,
			RegisterNumber: 1,
			EditionID:      edition,
		})
		require.NoError(t, err)
		sales[i] = sale
	}
	return sales
}

func pendingIDs(t *testing.T, database *db.DB) []string {
	t.Helper()
	sales, err := database.ListSalesByStatus(edition, models.SaleStatusPending)
	require.NoError(t, err)
	ids := make([]string, len(sales))
	for i, s := range sales {
		ids[i] = s.ID
	}
	return ids
}

func TestSync_EmptyQueue(t *testing.T) {
	api := &remotetest.FakeAPI{}
	r := New(testDB(t), api, nil, nil)

	result, err := r.SyncPendingSales(context.Background(), edition)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Synced)
	assert.Empty(t, result.Conflicts)
	assert.NotNil(t, result.Conflicts)
	assert.Equal(t, 0, api.SubmitCalls())
}

func TestSync_ConfirmsAndRejects(t *testing.T) {
	database := testDB(t)
	sales := queueSales(t, database, "Blue parka", "Wool scarf", "Rain boots")
	api := &remotetest.FakeAPI{Verdict: remotetest.Reject("article already sold", "art-1")}
	rec := &telemetrytest.Recorder{}
	r := New(database, api, nil, rec)

	result, err := r.SyncPendingSales(context.Background(), edition)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Synced)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, "Wool scarf: article already sold", result.Conflicts[0])
	assert.Equal(t, 1, api.SubmitCalls())

	// One batch carrying every pending sale in queue order
	submitted := api.Submitted()
	require.Len(t, submitted, 1)
	require.Len(t, submitted[0], 3)
	for i, sub := range submitted[0] {
		assert.Equal(t, sales[i].ID, sub.ClientID)
		assert.Equal(t, sales[i].ArticleID, sub.ArticleID)
		assert.Equal(t, "cash", sub.PaymentMethod)
		assert.Equal(t, 1, sub.RegisterNumber)
	}

	// Confirmed sales are gone
	for _, i := range []int{0, 2} {
		got, err := database.GetPendingSale(sales[i].ID)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	conflict, err := database.GetPendingSale(sales[1].ID)
	require.NoError(t, err)
	require.NotNil(t, conflict)
	assert.Equal(t, models.SaleStatusConflict, conflict.Status)
	require.NotNil(t, conflict.SyncError)
	assert.Equal(t, "article already sold", *conflict.SyncError)

	assert.Empty(t, pendingIDs(t, database))

	ev, ok := rec.Last(telemetry.EventSyncCompleted)
	require.True(t, ok)
	assert.Equal(t, 2, ev.Properties["synced"])
	assert.Equal(t, 1, ev.Properties["conflicts"])

	at, lastErr, err := r.LastSync(context.Background())
	require.NoError(t, err)
	assert.False(t, at.IsZero())
	assert.Empty(t, lastErr)
}

func TestSync_SecondRunIsNoop(t *testing.T) {
	database := testDB(t)
	queueSales(t, database, "Blue parka", "Wool scarf")
	api := &remotetest.FakeAPI{}
	r := New(database, api, nil, nil)

	first, err := r.SyncPendingSales(context.Background(), edition)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Synced)

	second, err := r.SyncPendingSales(context.Background(), edition)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Synced)
	assert.Empty(t, second.Conflicts)
	assert.Equal(t, 1, api.SubmitCalls())
}

func TestSync_TransportFailureKeepsQueue(t *testing.T) {
	database := testDB(t)
	queueSales(t, database, "Blue parka", "Wool scarf", "Rain boots")
	before, err := database.ListSalesByStatus(edition, models.SaleStatusPending)
	require.NoError(t, err)

	offline := errors.New("dial tcp: connection refused")
	api := &remotetest.FakeAPI{SubmitErr: offline}
	rec := &telemetrytest.Recorder{}
	r := New(database, api, nil, rec)

	result, err := r.SyncPendingSales(context.Background(), edition)
	assert.Nil(t, result)
	require.ErrorIs(t, err, ErrSyncTransport)
	assert.ErrorIs(t, err, offline)

	after, err := database.ListSalesByStatus(edition, models.SaleStatusPending)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, lastErr, err := r.LastSync(context.Background())
	require.NoError(t, err)
	assert.Contains(t, lastErr, "connection refused")

	ev, ok := rec.Last(telemetry.EventSyncFailed)
	require.True(t, ok)
	assert.Equal(t, "network", ev.Properties["error_type"])

	// The next attempt succeeds with the same IDs
	api.SubmitErr = nil
	result, err = r.SyncPendingSales(context.Background(), edition)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Synced)
	for i, sub := range api.Submitted()[1] {
		assert.Equal(t, before[i].ID, sub.ClientID)
	}

	_, lastErr, err = r.LastSync(context.Background())
	require.NoError(t, err)
	assert.Empty(t, lastErr)
}

func TestSync_CanceledContext(t *testing.T) {
	database := testDB(t)
	queueSales(t, database, "Blue parka")
	r := New(database, &remotetest.FakeAPI{}, nil, nil)

	// List the queue first, then cancel before the upload
	ctx, cancel := context.WithCancel(context.Background())
	api := &cancelingAPI{cancel: cancel}
	r.api = api

	_, err := r.SyncPendingSales(ctx, edition)
	require.ErrorIs(t, err, ErrSyncTransport)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Len(t, pendingIDs(t, database), 1)
}

type cancelingAPI struct {
	remotetest.FakeAPI
	cancel context.CancelFunc
}

func (c *cancelingAPI) SubmitSalesBatch(ctx context.Context, editionID string, sales []remote.SaleSubmission) ([]remote.SaleResult, error) {
	c.cancel()
	return c.FakeAPI.SubmitSalesBatch(ctx, editionID, sales)
}

func clientIDs(batch []remote.SaleSubmission) []string {
	ids := make([]string, len(batch))
	for i, sub := range batch {
		ids[i] = sub.ClientID
	}
	return ids
}

func TestSync_ApplyFailureKeepsQueue(t *testing.T) {
	database := testDB(t)
	sales := queueSales(t, database, "Blue parka", "Wool scarf", "Rain boots")
	api := &remotetest.FakeAPI{Verdict: remotetest.Reject("article already sold", "art-1")}
	r := New(database, api, nil, nil)

	// Fail the local write after the server has answered. The rejection is
	// applied first, so its rollback is covered too.
	require.NoError(t, database.Exec(`CREATE TRIGGER fail_confirm
		BEFORE UPDATE OF status ON pending_sales
		WHEN NEW.status = 'synced'
		BEGIN SELECT RAISE(ABORT, 'disk I/O error'); END`).Error)

	_, err := r.SyncPendingSales(context.Background(), edition)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrSyncTransport)

	want := []string{sales[0].ID, sales[1].ID, sales[2].ID}
	assert.Equal(t, want, pendingIDs(t, database))
	conflicts, err := database.ListSalesByStatus(edition, models.SaleStatusConflict)
	require.NoError(t, err)
	assert.Empty(t, conflicts)

	require.NoError(t, database.Exec("DROP TRIGGER fail_confirm").Error)

	result, err := r.SyncPendingSales(context.Background(), edition)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Synced)
	assert.Equal(t, []string{"Wool scarf: article already sold"}, result.Conflicts)

	submitted := api.Submitted()
	require.Len(t, submitted, 2)
	assert.Equal(t, want, clientIDs(submitted[0]))
	assert.Equal(t, clientIDs(submitted[0]), clientIDs(submitted[1]))
	assert.Empty(t, pendingIDs(t, database))
}

// answerThenCancelAPI cancels the caller's context once the server has
// answered, as when the register shuts down mid-sync.
type answerThenCancelAPI struct {
	remotetest.FakeAPI
	cancel context.CancelFunc
}

func (a *answerThenCancelAPI) SubmitSalesBatch(ctx context.Context, editionID string, sales []remote.SaleSubmission) ([]remote.SaleResult, error) {
	results, err := a.FakeAPI.SubmitSalesBatch(ctx, editionID, sales)
	a.cancel()
	return results, err
}

func TestSync_CanceledAfterResponse(t *testing.T) {
	database := testDB(t)
	sales := queueSales(t, database, "Blue parka", "Wool scarf")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := &answerThenCancelAPI{cancel: cancel}
	r := New(database, api, nil, nil)

	_, err := r.SyncPendingSales(ctx, edition)
	require.ErrorIs(t, err, context.Canceled)

	want := []string{sales[0].ID, sales[1].ID}
	assert.Equal(t, want, pendingIDs(t, database))

	result, err := r.SyncPendingSales(context.Background(), edition)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Synced)

	submitted := api.Submitted()
	require.Len(t, submitted, 2)
	assert.Equal(t, want, clientIDs(submitted[1]))
}

func TestSync_MissingResultStaysPending(t *testing.T) {
	database := testDB(t)
	sales := queueSales(t, database, "Blue parka", "Wool scarf")
	api := &remotetest.FakeAPI{
		Verdict: func(sale remote.SaleSubmission) (remote.SaleResult, bool) {
			if sale.ArticleID == "art-1" {
				return remote.SaleResult{}, false
			}
			return remote.SaleResult{ClientID: sale.ClientID, Status: remote.ResultSynced}, true
		},
	}
	r := New(database, api, nil, nil)

	result, err := r.SyncPendingSales(context.Background(), edition)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)
	assert.Empty(t, result.Conflicts)

	assert.Equal(t, []string{sales[1].ID}, pendingIDs(t, database))
}

func TestSync_IgnoresUnknownResults(t *testing.T) {
	database := testDB(t)
	queueSales(t, database, "Blue parka")
	api := &remotetest.FakeAPI{
		Extra: []remote.SaleResult{
			{ClientID: "not-ours", Status: remote.ResultRejected, ErrorMessage: "unknown"},
		},
	}
	r := New(database, api, nil, nil)

	result, err := r.SyncPendingSales(context.Background(), edition)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)
	assert.Empty(t, result.Conflicts)
}

func TestSync_OnlyTargetEdition(t *testing.T) {
	database := testDB(t)
	queueSales(t, database, "Blue parka")
	api := &remotetest.FakeAPI{}
	r := New(database, api, nil, nil)

	result, err := r.SyncPendingSales(context.Background(), "autumn-2026")
	require.NoError(t, err)
	assert.Equal(t, 0, result.Synced)
	assert.Equal(t, 0, api.SubmitCalls())
	assert.Len(t, pendingIDs(t, database), 1)
}

func TestSync_ConcurrentCallsSubmitOnce(t *testing.T) {
	database := testDB(t)
	queueSales(t, database, "Blue parka", "Wool scarf")
	api := &remotetest.FakeAPI{}
	r := New(database, api, nil, nil)

	var wg sync.WaitGroup
	results := make([]*Result, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := r.SyncPendingSales(context.Background(), edition)
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, api.SubmitCalls())
	assert.Equal(t, 2, results[0].Synced+results[1].Synced)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "canceled", classify(context.Canceled))
	assert.Equal(t, "timeout", classify(fmt.Errorf("wrap: %w", context.DeadlineExceeded)))
	assert.Equal(t, "client_outdated", classify(remote.ErrClientOutdated))
	assert.Equal(t, "http_503", classify(&remote.APIError{StatusCode: 503}))
	assert.Equal(t, "network", classify(errors.New("boom")))
}
