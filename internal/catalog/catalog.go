// Package catalog keeps the register's local copy of the sellable catalog.
//
// The cache is refreshed in full from the sale-event server while online and
// read by barcode without any network access while offline.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/bourse-pos/bourse/internal/db"
	blog "github.com/bourse-pos/bourse/internal/log"
	"github.com/bourse-pos/bourse/internal/models"
	"github.com/bourse-pos/bourse/internal/remote"
	"github.com/bourse-pos/bourse/internal/telemetry"
)

var (
	// ErrInvalidBarcode is returned for an empty barcode.
	ErrInvalidBarcode = errors.New("invalid barcode")

	// ErrNoEdition is returned when no edition is selected.
	ErrNoEdition = errors.New("no edition selected")

	// ErrDuplicateBarcode is returned when the server catalog gives one
	// barcode to several articles. The cache is left as it was.
	ErrDuplicateBarcode = errors.New("duplicate barcode in server catalog")
)

// Manager refreshes and queries the article cache.
type Manager struct {
	db        *db.DB
	api       remote.API
	logger    *slog.Logger
	telemetry telemetry.Client
	now       func() time.Time
}

// NewManager creates a catalog manager. A nil logger or telemetry client
// disables that output.
func NewManager(database *db.DB, api remote.API, logger *slog.Logger, tc telemetry.Client) *Manager {
	if tc == nil {
		tc = telemetry.Noop()
	}
	return &Manager{
		db:        database,
		api:       api,
		logger:    blog.OrDiscard(logger),
		telemetry: tc,
		now:       time.Now,
	}
}

// Refresh downloads the full catalog of an edition and replaces the cache
// with it. When the download fails the cache is left as it was.
// Returns the number of articles cached.
func (m *Manager) Refresh(ctx context.Context, editionID string) (int, error) {
	if editionID == "" {
		return 0, ErrNoEdition
	}

	start := m.now()
	items, err := m.api.FetchCatalog(ctx, editionID)
	if err != nil {
		m.logger.Warn("catalog fetch failed", "edition_id", editionID, "error", err)
		return 0, fmt.Errorf("refresh catalog: %w", err)
	}

	articles := make([]models.Article, 0, len(items))
	owners := make(map[string]string, len(items))
	for _, item := range items {
		article, ok := toArticle(item)
		if !ok {
			m.logger.Warn("skipping catalog item without barcode", "article_id", item.ArticleID)
			continue
		}
		if owner, dup := owners[article.Barcode]; dup {
			m.logger.Error("server catalog reuses a barcode, keeping cached catalog",
				"edition_id", editionID,
				"barcode", article.Barcode,
				"article_id", owner,
				"duplicate_article_id", article.ArticleID,
			)
			return 0, fmt.Errorf("refresh catalog: %w: %s (articles %s and %s)",
				ErrDuplicateBarcode, article.Barcode, owner, article.ArticleID)
		}
		owners[article.Barcode] = article.ArticleID
		articles = append(articles, article)
	}

	store := m.db.WithContext(ctx)
	count, err := store.ReplaceArticles(editionID, articles)
	if err != nil {
		return 0, fmt.Errorf("replace articles: %w", err)
	}

	err = store.Transaction(func(tx *db.DB) error {
		meta := map[string]string{
			models.SyncMetaLastCatalogRefresh: m.now().UTC().Format(time.RFC3339),
			models.SyncMetaCatalogEdition:     editionID,
			models.SyncMetaCatalogSize:        strconv.FormatInt(count, 10),
		}
		for key, value := range meta {
			if err := tx.SetSyncMeta(key, value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return int(count), fmt.Errorf("record refresh: %w", err)
	}

	if dropped := len(articles) - int(count); dropped > 0 {
		m.logger.Info("withheld locally sold articles", "edition_id", editionID, "count", dropped)
	}
	m.logger.Info("catalog refreshed", "edition_id", editionID, "count", count)
	m.telemetry.TrackCatalogRefreshed(int(count), time.Since(start).Milliseconds())

	return int(count), nil
}

// LookupByBarcode returns the cached article carrying barcode. It never
// touches the network. A miss returns nil, nil.
func (m *Manager) LookupByBarcode(ctx context.Context, barcode string) (*models.Article, error) {
	barcode = strings.TrimSpace(barcode)
	if barcode == "" {
		return nil, ErrInvalidBarcode
	}
	return m.db.WithContext(ctx).GetArticleByBarcode(barcode)
}

// Evict removes a sold article from the cache. Evicting an absent article is
// not an error.
func (m *Manager) Evict(ctx context.Context, articleID string) error {
	if err := m.db.WithContext(ctx).DeleteArticle(articleID); err != nil {
		return fmt.Errorf("evict article %s: %w", articleID, err)
	}
	m.logger.Debug("article evicted", "article_id", articleID)
	return nil
}

// Count returns the number of cached articles.
func (m *Manager) Count(ctx context.Context) (int64, error) {
	return m.db.WithContext(ctx).CountArticles()
}

// LastRefresh returns the time of the last successful refresh and the edition
// it was for. The zero time means the cache was never filled.
func (m *Manager) LastRefresh(ctx context.Context) (time.Time, string, error) {
	meta, err := m.db.WithContext(ctx).GetAllSyncMeta()
	if err != nil {
		return time.Time{}, "", err
	}
	edition := meta[models.SyncMetaCatalogEdition]
	raw := meta[models.SyncMetaLastCatalogRefresh]
	if raw == "" {
		return time.Time{}, edition, nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, edition, fmt.Errorf("parse last refresh: %w", err)
	}
	return at, edition, nil
}

// List returns a page of cached articles ordered by barcode.
func (m *Manager) List(ctx context.Context, limit, offset int) ([]models.Article, error) {
	if limit <= 0 {
		limit = -1
	}
	return m.db.WithContext(ctx).ListArticles(limit, offset)
}

func toArticle(item remote.CatalogItem) (models.Article, bool) {
	barcode := strings.TrimSpace(item.Barcode)
	if barcode == "" || item.ArticleID == "" {
		return models.Article{}, false
	}
	lot := item.LotQuantity
	if lot < 1 {
		lot = 1
	}
	return models.Article{
		ArticleID:     item.ArticleID,
		Barcode:       barcode,
		Description:   item.Description,
		Category:      item.Category,
		Size:          item.Size,
		Brand:         item.Brand,
		Price:         item.Price,
		IsLot:         item.IsLot,
		LotQuantity:   lot,
		ListNumber:    item.ListNumber,
		DepositorName: item.DepositorName,
		LabelColor:    item.LabelColor,
	}, true
}
