package db

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bourse-pos/bourse/internal/models"
)

// CreatePendingSale inserts a new queued sale.
func (db *DB) CreatePendingSale(sale *models.PendingSale) error {
	return db.Create(sale).Error
}

// GetPendingSale retrieves a queued sale by ID.
// Returns nil, nil when the sale does not exist.
func (db *DB) GetPendingSale(id string) (*models.PendingSale, error) {
	var sale models.PendingSale
	err := db.First(&sale, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &sale, nil
}

// openSaleArticles selects the article IDs of sales still pending or in
// conflict. Such articles are sold locally whatever the server says.
func (db *DB) openSaleArticles() *gorm.DB {
	return db.Model(&models.PendingSale{}).
		Select("article_id").
		Where("status IN ?", []models.SaleStatus{models.SaleStatusPending, models.SaleStatusConflict})
}

// HasOpenSale reports whether a pending or conflicting sale exists for the
// article.
func (db *DB) HasOpenSale(articleID string) (bool, error) {
	var count int64
	err := db.openSaleArticles().Where("article_id = ?", articleID).Count(&count).Error
	return count > 0, err
}

// ListSalesByStatus returns the sales of an edition in the given status,
// in insertion order.
func (db *DB) ListSalesByStatus(editionID string, status models.SaleStatus) ([]models.PendingSale, error) {
	var sales []models.PendingSale
	err := db.Where("edition_id = ? AND status = ?", editionID, status).
		Order("created_at ASC, rowid ASC").
		Find(&sales).Error
	return sales, err
}

// CountSalesByStatus counts sales in the given status across all editions.
func (db *DB) CountSalesByStatus(status models.SaleStatus) (int64, error) {
	var count int64
	err := db.Model(&models.PendingSale{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// CountPendingSales counts sales still awaiting upload across all editions.
func (db *DB) CountPendingSales() (int64, error) {
	return db.CountSalesByStatus(models.SaleStatusPending)
}

// MarkSaleConflict moves a pending sale to conflict, keeping the server's message.
func (db *DB) MarkSaleConflict(id, message string) error {
	result := db.Model(&models.PendingSale{}).
		Where("id = ? AND status = ?", id, models.SaleStatusPending).
		Updates(map[string]interface{}{
			"status":     models.SaleStatusConflict,
			"sync_error": message,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: sale %s is not pending", ErrInvalidTransition, id)
	}
	return nil
}

// ConfirmSales moves pending sales to synced. IDs that are not pending are
// left untouched. Returns the number of sales moved.
func (db *DB) ConfirmSales(ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.Model(&models.PendingSale{}).
		Where("id IN ? AND status = ?", ids, models.SaleStatusPending).
		Update("status", models.SaleStatusSynced)
	return result.RowsAffected, result.Error
}

// PurgeSyncedSales deletes every synced sale. Synced rows are not retained.
func (db *DB) PurgeSyncedSales() (int64, error) {
	result := db.Where("status = ?", models.SaleStatusSynced).Delete(&models.PendingSale{})
	return result.RowsAffected, result.Error
}

// SaleStats aggregates queued sales across all editions.
func (db *DB) SaleStats() (*models.SaleStats, error) {
	stats := models.SaleStats{Amount: decimal.Zero}

	var err error
	if stats.Pending, err = db.CountSalesByStatus(models.SaleStatusPending); err != nil {
		return nil, err
	}
	if stats.Conflict, err = db.CountSalesByStatus(models.SaleStatusConflict); err != nil {
		return nil, err
	}

	var prices []decimal.Decimal
	if err := db.Model(&models.PendingSale{}).
		Where("status = ?", models.SaleStatusPending).
		Pluck("price", &prices).Error; err != nil {
		return nil, err
	}
	for _, p := range prices {
		stats.Amount = stats.Amount.Add(p)
	}

	return &stats, nil
}
