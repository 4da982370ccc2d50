// Package models defines the core data structures for bourse.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Article is a locally cached snapshot of a sellable item.
// A row lives until a sale consumes it or the next full catalog refresh.
type Article struct {
	ArticleID string `gorm:"primaryKey;size:64" json:"article_id"`
	Barcode   string `gorm:"uniqueIndex;size:64;not null" json:"barcode"` // Point-of-sale lookup key

	// Description
	Description string          `gorm:"size:500" json:"description"`
	Category    string          `gorm:"size:100" json:"category"`
	Size        string          `gorm:"size:50" json:"size"`
	Brand       string          `gorm:"size:100" json:"brand"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`

	// Lots are sold as one article covering several pieces
	IsLot       bool `gorm:"default:false" json:"is_lot"`
	LotQuantity int  `gorm:"default:1" json:"lot_quantity"`

	// Deposit information printed on the label
	ListNumber    string `gorm:"size:50" json:"list_number"`
	DepositorName string `gorm:"size:255" json:"depositor_name"`
	LabelColor    string `gorm:"size:30" json:"label_color"`

	EditionID string    `gorm:"size:64;index" json:"edition_id"`
	CachedAt  time.Time `gorm:"autoCreateTime" json:"cached_at"`
}

// TableName specifies the table name for GORM.
func (Article) TableName() string {
	return "articles"
}

// Label returns a short human-readable name for the article.
func (a *Article) Label() string {
	if a.Description != "" {
		return a.Description
	}
	return a.Barcode
}
