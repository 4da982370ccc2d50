package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the buyer paid at the register.
type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "cash"
	PaymentCard  PaymentMethod = "card"
	PaymentCheck PaymentMethod = "check"
)

// PaymentMethods lists every accepted payment method in display order.
var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentCheck}

// IsValid reports whether m is one of the accepted payment methods.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentCheck:
		return true
	}
	return false
}

// SaleStatus tracks a queued sale through reconciliation.
type SaleStatus string

const (
	SaleStatusPending  SaleStatus = "pending"
	SaleStatusSynced   SaleStatus = "synced"
	SaleStatusConflict SaleStatus = "conflict"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s SaleStatus) IsTerminal() bool {
	return s == SaleStatusSynced || s == SaleStatusConflict
}

// PendingSale is a sale recorded while offline, awaiting confirmation by the
// sale-event server. ID is generated once at enqueue time and doubles as the
// idempotency key for every upload attempt.
type PendingSale struct {
	ID                 string          `gorm:"primaryKey;size:36" json:"id"`
	ArticleID          string          `gorm:"size:64;index;not null" json:"article_id"`
	Barcode            string          `gorm:"size:64" json:"barcode"`
	ArticleDescription string          `gorm:"size:500" json:"article_description"`
	Price              decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	PaymentMethod      PaymentMethod   `gorm:"size:10;not null" json:"payment_method"`
	RegisterNumber     int             `gorm:"not null" json:"register_number"`
	SoldAt             time.Time       `gorm:"not null" json:"sold_at"`
	EditionID          string          `gorm:"size:64;index;not null" json:"edition_id"`
	Status             SaleStatus      `gorm:"size:10;index;not null;default:pending" json:"status"`
	SyncError          *string         `gorm:"type:text" json:"sync_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (PendingSale) TableName() string {
	return "pending_sales"
}

// ConflictLine formats the sale as "<article description>: <error>".
func (s *PendingSale) ConflictLine() string {
	msg := ""
	if s.SyncError != nil {
		msg = *s.SyncError
	}
	desc := s.ArticleDescription
	if desc == "" {
		desc = s.Barcode
	}
	return desc + ": " + msg
}

// SaleStats aggregates queued sales by status.
type SaleStats struct {
	Pending  int64           `json:"pending"`
	Conflict int64           `json:"conflict"`
	Amount   decimal.Decimal `json:"pending_amount"` // Sum of pending sale prices
}
