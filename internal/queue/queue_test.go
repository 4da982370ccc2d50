package queue

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bourse-pos/bourse/internal/db"
	"github.com/bourse-pos/bourse/internal/models"
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

// seedCatalog caches n articles with barcodes BRS00000, BRS00001, ...
func seedCatalog(t *testing.T, database *db.DB, n int) {
	t.Helper()
	articles := make([]models.Article, n)
	for i := range articles {
		articles[i] = models.Article{
			ArticleID:   fmt.Sprintf("art-%d", i),
			Barcode:     fmt.Sprintf("BRS%05d", i),
			Description: fmt.Sprintf("Coat %d", i),
			Price:       decimal.RequireFromString("8.00"),
		}
	}
	_, err := database.ReplaceArticles(edition, articles)
	require.NoError(t, err)
}

func draftFor(t *testing.T, database *db.DB, barcode string) SaleDraft {
	t.Helper()
	article, err := database.GetArticleByBarcode(barcode)
	require.NoError(t, err)
	require.NotNil(t, article, "article %s should be cached", barcode)
	return DraftFromArticle(article, models.PaymentCash, 2)
}

func TestEnqueue(t *testing.T) {
	database := testDB(t)
	seedCatalog(t, database, 2)
	soldAt := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	rec := &telemetrytest.Recorder{}
	q := New(database, WithClock(func() time.Time { return soldAt }), WithTelemetry(rec))

	sale, err := q.Enqueue(context.Background(), draftFor(t, database, "BRS00001"))
	require.NoError(t, err)

	assert.Len(t, sale.ID, 36)
	assert.Equal(t, models.SaleStatusPending, sale.Status)
	assert.Equal(t, "art-1", sale.ArticleID)
	assert.Equal(t, "Coat 1", sale.ArticleDescription)
	assert.Equal(t, edition, sale.EditionID)
	assert.True(t, sale.SoldAt.Equal(soldAt))

	stored, err := database.GetPendingSale(sale.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, decimal.RequireFromString("8.00").Equal(stored.Price))

	// The sold article is no longer sellable
	article, err := database.GetArticleByBarcode("BRS00001")
	require.NoError(t, err)
	assert.Nil(t, article)

	ev, ok := rec.Last(telemetry.EventSaleQueued)
	require.True(t, ok)
	assert.Equal(t, int64(1), ev.Properties["pending_count"])
}

func TestEnqueue_UniqueIDs(t *testing.T) {
	database := testDB(t)
	seedCatalog(t, database, 5)
	q := New(database)

	seen := make(map[string]bool)
	for i := 0; i < 5; i++ {
		sale, err := q.Enqueue(context.Background(), draftFor(t, database, fmt.Sprintf("BRS%05d", i)))
		require.NoError(t, err)
		assert.False(t, seen[sale.ID], "duplicate id %s", sale.ID)
		seen[sale.ID] = true
	}
}

func TestEnqueue_KeepsDraftSoldAt(t *testing.T) {
	database := testDB(t)
	seedCatalog(t, database, 1)
	q := New(database, WithClock(func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }))

	draft := draftFor(t, database, "BRS00000")
	draft.SoldAt = time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)

	sale, err := q.Enqueue(context.Background(), draft)
	require.NoError(t, err)
	assert.True(t, sale.SoldAt.Equal(draft.SoldAt))
}

func TestEnqueue_QueueFull(t *testing.T) {
	database := testDB(t)
	seedCatalog(t, database, DefaultCapacity+1)
	rec := &telemetrytest.Recorder{}
	q := New(database, WithTelemetry(rec))
	require.Equal(t, 50, q.Capacity())

	for i := 0; i < DefaultCapacity; i++ {
		_, err := q.Enqueue(context.Background(), draftFor(t, database, fmt.Sprintf("BRS%05d", i)))
		require.NoError(t, err)
	}

	before, err := q.ListPending(context.Background(), edition)
	require.NoError(t, err)
	require.Len(t, before, DefaultCapacity)

	last := fmt.Sprintf("BRS%05d", DefaultCapacity)
	_, err = q.Enqueue(context.Background(), draftFor(t, database, last))
	require.ErrorIs(t, err, ErrQueueFull)

	after, err := q.ListPending(context.Background(), edition)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// The refused sale left its article in the cache
	article, err := database.GetArticleByBarcode(last)
	require.NoError(t, err)
	assert.NotNil(t, article)

	_, ok := rec.Last(telemetry.EventQueueFull)
	assert.True(t, ok)
}

func TestEnqueue_ConflictsDoNotCountAgainstCapacity(t *testing.T) {
	database := testDB(t)
	seedCatalog(t, database, 3)
	q := New(database, WithCapacity(1))

	sale, err := q.Enqueue(context.Background(), draftFor(t, database, "BRS00000"))
	require.NoError(t, err)

	_, err = q.Enqueue(context.Background(), draftFor(t, database, "BRS00001"))
	require.ErrorIs(t, err, ErrQueueFull)

	require.NoError(t, database.MarkSaleConflict(sale.ID, "already sold"))

	_, err = q.Enqueue(context.Background(), draftFor(t, database, "BRS00001"))
	require.NoError(t, err)
}

func TestEnqueue_SameArticleTwice(t *testing.T) {
	database := testDB(t)
	seedCatalog(t, database, 1)
	q := New(database)

	// A draft kept around after the first submit, e.g. a retried button press
	draft := draftFor(t, database, "BRS00000")

	first, err := q.Enqueue(context.Background(), draft)
	require.NoError(t, err)

	_, err = q.Enqueue(context.Background(), draft)
	require.ErrorIs(t, err, ErrAlreadySold)

	pending, err := q.ListPending(context.Background(), edition)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, first.ID, pending[0].ID)

	// A sale the server refused still holds the article
	require.NoError(t, database.MarkSaleConflict(first.ID, "sold at register 3"))
	_, err = q.Enqueue(context.Background(), draft)
	require.ErrorIs(t, err, ErrAlreadySold)

	count, err := q.CountPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEnqueue_InvalidDraft(t *testing.T) {
	valid := SaleDraft{
		ArticleID:      "art-1",
		Barcode:        "BRS00001",
		Price:          decimal.RequireFromString("4.00"),
		PaymentMethod:  models.PaymentCard,
		RegisterNumber: 1,
		EditionID:      edition,
	}

	tests := []struct {
		name   string
		mutate func(*SaleDraft)
	}{
		{"missing article", func(d *SaleDraft) { d.ArticleID = "" }},
		{"missing barcode", func(d *SaleDraft) { d.Barcode = " " }},
		{"missing edition", func(d *SaleDraft) { d.EditionID = "" }},
		{"unknown payment", func(d *SaleDraft) { d.PaymentMethod = "voucher" }},
		{"negative price", func(d *SaleDraft) { d.Price = decimal.RequireFromString("-1") }},
		{"zero register", func(d *SaleDraft) { d.RegisterNumber = 0 }},
	}

	database := testDB(t)
	q := New(database)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := valid
			tt.mutate(&draft)

			_, err := q.Enqueue(context.Background(), draft)
			assert.ErrorIs(t, err, ErrInvalidSale)
		})
	}

	count, err := q.CountPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestEnqueue_UncachedArticle(t *testing.T) {
	q := New(testDB(t))

	sale, err := q.Enqueue(context.Background(), SaleDraft{
		ArticleID:      "art-manual",
		Barcode:        "HANDWRITTEN-7",
		Price:          decimal.RequireFromString("3.00"),
		PaymentMethod:  models.PaymentCheck,
		RegisterNumber: 4,
		EditionID:      edition,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCheck, sale.PaymentMethod)
}

func TestListPending_InsertionOrder(t *testing.T) {
	database := testDB(t)
	seedCatalog(t, database, 4)
	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	q := New(database, WithClock(func() time.Time { return fixed }))

	var ids []string
	for _, barcode := range []string{"BRS00003", "BRS00000", "BRS00002"} {
		sale, err := q.Enqueue(context.Background(), draftFor(t, database, barcode))
		require.NoError(t, err)
		ids = append(ids, sale.ID)
	}

	pending, err := q.ListPending(context.Background(), edition)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	for i, sale := range pending {
		assert.Equal(t, ids[i], sale.ID)
	}

	other, err := q.ListPending(context.Background(), "autumn-2026")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestListConflicts(t *testing.T) {
	database := testDB(t)
	seedCatalog(t, database, 2)
	q := New(database)

	a, err := q.Enqueue(context.Background(), draftFor(t, database, "BRS00000"))
	require.NoError(t, err)
	_, err = q.Enqueue(context.Background(), draftFor(t, database, "BRS00001"))
	require.NoError(t, err)

	require.NoError(t, database.MarkSaleConflict(a.ID, "article already sold"))

	conflicts, err := q.ListConflicts(context.Background(), edition)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "Coat 0: article already sold", conflicts[0].ConflictLine())

	count, err := q.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
