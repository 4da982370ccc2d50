// Package queue records sales made while the sale-event server is
// unreachable. Queued sales wait locally until the reconciler uploads them.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bourse-pos/bourse/internal/db"
	blog "github.com/bourse-pos/bourse/internal/log"
	"github.com/bourse-pos/bourse/internal/models"
	"github.com/bourse-pos/bourse/internal/telemetry"
)

// DefaultCapacity is the maximum number of sales awaiting upload.
const DefaultCapacity = 50

var (
	// ErrQueueFull is returned when the queue already holds Capacity pending
	// sales. Nothing is written.
	ErrQueueFull = errors.New("offline sale queue is full")

	// ErrInvalidSale is returned for a draft that cannot be queued.
	ErrInvalidSale = errors.New("invalid sale")

	// ErrAlreadySold is returned when the article already has a pending or
	// conflicting sale. Nothing is written.
	ErrAlreadySold = errors.New("article already sold")
)

// SaleDraft is a sale as entered at the register, before it is queued.
type SaleDraft struct {
	ArticleID      string
	Barcode        string
	Description    string
	Price          decimal.Decimal
	PaymentMethod  models.PaymentMethod
	RegisterNumber int
	EditionID      string

	// SoldAt defaults to the queue clock when zero.
	SoldAt time.Time
}

// DraftFromArticle builds a draft selling a cached article.
func DraftFromArticle(article *models.Article, method models.PaymentMethod, register int) SaleDraft {
	return SaleDraft{
		ArticleID:      article.ArticleID,
		Barcode:        article.Barcode,
		Description:    article.Description,
		Price:          article.Price,
		PaymentMethod:  method,
		RegisterNumber: register,
		EditionID:      article.EditionID,
	}
}

// Validate reports the first problem that prevents queueing the draft.
func (d SaleDraft) Validate() error {
	switch {
	case strings.TrimSpace(d.ArticleID) == "":
		return fmt.Errorf("%w: missing article id", ErrInvalidSale)
	case strings.TrimSpace(d.Barcode) == "":
		return fmt.Errorf("%w: missing barcode", ErrInvalidSale)
	case strings.TrimSpace(d.EditionID) == "":
		return fmt.Errorf("%w: missing edition", ErrInvalidSale)
	case !d.PaymentMethod.IsValid():
		return fmt.Errorf("%w: unknown payment method %q", ErrInvalidSale, d.PaymentMethod)
	case d.Price.IsNegative():
		return fmt.Errorf("%w: negative price %s", ErrInvalidSale, d.Price)
	case d.RegisterNumber <= 0:
		return fmt.Errorf("%w: register number must be positive", ErrInvalidSale)
	}
	return nil
}

// Queue is the bounded outbox of offline sales.
type Queue struct {
	db        *db.DB
	capacity  int
	logger    *slog.Logger
	telemetry telemetry.Client
	now       func() time.Time
	newID     func() string
}

// Option configures a Queue.
type Option func(*Queue)

// WithCapacity overrides DefaultCapacity. Non-positive values are ignored.
func WithCapacity(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.capacity = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) { q.logger = blog.OrDiscard(l) }
}

// WithTelemetry sets the telemetry client.
func WithTelemetry(tc telemetry.Client) Option {
	return func(q *Queue) {
		if tc != nil {
			q.telemetry = tc
		}
	}
}

// WithClock sets the clock used for SoldAt when a draft has none.
func WithClock(now func() time.Time) Option {
	return func(q *Queue) { q.now = now }
}

// New creates a queue over the local store.
func New(database *db.DB, opts ...Option) *Queue {
	q := &Queue{
		db:        database,
		capacity:  DefaultCapacity,
		logger:    blog.Discard(),
		telemetry: telemetry.Noop(),
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Capacity returns the maximum number of pending sales.
func (q *Queue) Capacity() int {
	return q.capacity
}

// Enqueue records a sale and removes the sold article from the catalog
// cache. Both changes commit together or not at all. When the queue already
// holds Capacity pending sales it returns ErrQueueFull, and when the article
// already has an open sale it returns ErrAlreadySold. Neither writes anything.
func (q *Queue) Enqueue(ctx context.Context, draft SaleDraft) (*models.PendingSale, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}

	soldAt := draft.SoldAt
	if soldAt.IsZero() {
		soldAt = q.now()
	}

	sale := &models.PendingSale{
		ID:                 q.newID(),
		ArticleID:          strings.TrimSpace(draft.ArticleID),
		Barcode:            strings.TrimSpace(draft.Barcode),
		ArticleDescription: draft.Description,
		Price:              draft.Price,
		PaymentMethod:      draft.PaymentMethod,
		RegisterNumber:     draft.RegisterNumber,
		SoldAt:             soldAt.UTC(),
		EditionID:          draft.EditionID,
		Status:             models.SaleStatusPending,
	}

	var pending int64
	err := q.db.WithContext(ctx).Transaction(func(tx *db.DB) error {
		n, err := tx.CountPendingSales()
		if err != nil {
			return fmt.Errorf("count pending sales: %w", err)
		}
		if n >= int64(q.capacity) {
			return fmt.Errorf("%w: %d sales awaiting upload", ErrQueueFull, n)
		}
		sold, err := tx.HasOpenSale(sale.ArticleID)
		if err != nil {
			return fmt.Errorf("check open sales: %w", err)
		}
		if sold {
			return fmt.Errorf("%w: article %s", ErrAlreadySold, sale.ArticleID)
		}
		if err := tx.CreatePendingSale(sale); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		if err := tx.DeleteArticle(sale.ArticleID); err != nil {
			return fmt.Errorf("evict article: %w", err)
		}
		pending = n + 1
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrQueueFull) {
			q.logger.Warn("sale refused, queue full", "capacity", q.capacity, "barcode", sale.Barcode)
			q.telemetry.TrackQueueFull(q.capacity)
		}
		if errors.Is(err, ErrAlreadySold) {
			q.logger.Warn("sale refused, article already sold", "article_id", sale.ArticleID, "barcode", sale.Barcode)
		}
		return nil, err
	}

	q.logger.Info("sale queued",
		"sale_id", sale.ID,
		"article_id", sale.ArticleID,
		"edition_id", sale.EditionID,
		"pending", pending,
	)
	q.telemetry.TrackSaleQueued(string(sale.PaymentMethod), pending)

	return sale, nil
}

// ListPending returns the sales of an edition awaiting upload, oldest first.
func (q *Queue) ListPending(ctx context.Context, editionID string) ([]models.PendingSale, error) {
	return q.db.WithContext(ctx).ListSalesByStatus(editionID, models.SaleStatusPending)
}

// ListConflicts returns the sales of an edition the server refused, oldest
// first. They stay until an operator resolves them on the server.
func (q *Queue) ListConflicts(ctx context.Context, editionID string) ([]models.PendingSale, error) {
	return q.db.WithContext(ctx).ListSalesByStatus(editionID, models.SaleStatusConflict)
}

// CountPending returns the number of sales awaiting upload across editions.
func (q *Queue) CountPending(ctx context.Context) (int64, error) {
	return q.db.WithContext(ctx).CountPendingSales()
}
