package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/bourse-pos/bourse/internal/models"
)

// articleBatchSize bounds the number of rows per INSERT during a refresh.
const articleBatchSize = 200

// ReplaceArticles atomically swaps the whole article cache for the given set.
// The clear, the bulk insert and the repair pass run in one transaction, so a
// reader sees either the old catalog or the new one, never a mix.
//
// The repair pass drops articles that still have a pending or conflicting
// local sale: the server may not have seen those sales yet and would
// otherwise hand the items back as sellable.
//
// Returns the number of articles cached after the repair pass.
func (db *DB) ReplaceArticles(editionID string, articles []models.Article) (int64, error) {
	rows := make([]models.Article, len(articles))
	copy(rows, articles)
	for i := range rows {
		rows[i].EditionID = editionID
	}

	var count int64
	err := db.Transaction(func(tx *DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Article{}).Error; err != nil {
			return fmt.Errorf("clear articles: %w", err)
		}

		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, articleBatchSize).Error; err != nil {
				return fmt.Errorf("insert articles: %w", err)
			}
		}

		if err := tx.Where("article_id IN (?)", tx.openSaleArticles()).Delete(&models.Article{}).Error; err != nil {
			return fmt.Errorf("drop locally sold articles: %w", err)
		}

		return tx.Model(&models.Article{}).Count(&count).Error
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetArticleByBarcode retrieves a cached article by barcode.
// Returns nil, nil when no article carries the barcode.
func (db *DB) GetArticleByBarcode(barcode string) (*models.Article, error) {
	var article models.Article
	err := db.First(&article, "barcode = ?", barcode).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &article, nil
}

// DeleteArticle removes an article from the cache.
// Deleting an absent article is not an error.
func (db *DB) DeleteArticle(articleID string) error {
	return db.Delete(&models.Article{}, "article_id = ?", articleID).Error
}

// CountArticles returns the number of cached articles.
func (db *DB) CountArticles() (int64, error) {
	var count int64
	err := db.Model(&models.Article{}).Count(&count).Error
	return count, err
}

// ListArticles returns cached articles ordered by barcode.
func (db *DB) ListArticles(limit, offset int) ([]models.Article, error) {
	var articles []models.Article
	err := db.Order("barcode ASC").
		Limit(limit).
		Offset(offset).
		Find(&articles).Error
	return articles, err
}
