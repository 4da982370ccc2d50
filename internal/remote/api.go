// Package remote talks to the sale-event server, the authority on what is
// sellable and on whether a queued sale is accepted.
package remote

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// API is the subset of the sale-event server used by a register.
type API interface {
	// FetchCatalog returns the full sellable catalog of an edition.
	FetchCatalog(ctx context.Context, editionID string) ([]CatalogItem, error)

	// SubmitSalesBatch uploads queued sales in one request. The server
	// returns one result per submitted ClientID; a ClientID it already
	// accepted is confirmed again rather than recorded twice.
	SubmitSalesBatch(ctx context.Context, editionID string, sales []SaleSubmission) ([]SaleResult, error)
}

// CatalogItem is one sellable article as served by the catalog endpoint.
type CatalogItem struct {
	ArticleID     string          `json:"articleId"`
	Barcode       string          `json:"barcode"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	Size          string          `json:"size"`
	Price         decimal.Decimal `json:"price"`
	Brand         string          `json:"brand"`
	IsLot         bool            `json:"isLot"`
	LotQuantity   int             `json:"lotQuantity"`
	ListNumber    string          `json:"listNumber"`
	DepositorName string          `json:"depositorName"`
	LabelColor    string          `json:"labelColor"`
}

// SaleSubmission is one queued sale in a batch upload.
type SaleSubmission struct {
	ClientID       string    `json:"clientId"`
	ArticleID      string    `json:"articleId"`
	PaymentMethod  string    `json:"paymentMethod"`
	RegisterNumber int       `json:"registerNumber"`
	SoldAt         time.Time `json:"soldAt"`
}

// ResultStatus is the server's verdict on one submitted sale.
type ResultStatus string

const (
	ResultSynced   ResultStatus = "synced"
	ResultRejected ResultStatus = "rejected"
)

// SaleResult is the server's verdict for one ClientID.
type SaleResult struct {
	ClientID     string       `json:"clientId"`
	Status       ResultStatus `json:"status"`
	ErrorMessage string       `json:"errorMessage,omitempty"`
}
