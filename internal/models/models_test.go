package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPaymentMethod_IsValid(t *testing.T) {
	for _, m := range PaymentMethods {
		assert.True(t, m.IsValid(), string(m))
	}
	assert.False(t, PaymentMethod("voucher").IsValid())
	assert.False(t, PaymentMethod("").IsValid())
	assert.False(t, PaymentMethod("CASH").IsValid())
}

func TestSaleStatus_IsTerminal(t *testing.T) {
	assert.False(t, SaleStatusPending.IsTerminal())
	assert.True(t, SaleStatusSynced.IsTerminal())
	assert.True(t, SaleStatusConflict.IsTerminal())
}

func TestPendingSale_ConflictLine(t *testing.T) {
	msg := "article already sold"

	t.Run("with description", func(t *testing.T) {
		s := &PendingSale{ArticleDescription: "Red coat", Barcode: "BRS1", SyncError: &msg}
		assert.Equal(t, "Red coat: article already sold", s.ConflictLine())
	})

	t.Run("falls back to barcode", func(t *testing.T) {
		s := &PendingSale{Barcode: "BRS1", SyncError: &msg}
		assert.Equal(t, "BRS1: article already sold", s.ConflictLine())
	})

	t.Run("no error recorded", func(t *testing.T) {
		s := &PendingSale{ArticleDescription: "Red coat"}
		assert.Equal(t, "Red coat: ", s.ConflictLine())
	})
}

func TestArticle_Label(t *testing.T) {
	assert.Equal(t, "Ski boots", (&Article{Description: "Ski boots", Barcode: "B1"}).Label())
	assert.Equal(t, "B1", (&Article{Barcode: "B1"}).Label())
}

func TestTableNames(t *testing.T) {
	assert.Equal(t, "articles", Article{}.TableName())
	assert.Equal(t, "pending_sales", PendingSale{}.TableName())
	assert.Equal(t, "sync_meta", SyncMeta{}.TableName())
}
