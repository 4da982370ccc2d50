package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/shopspring/decimal"

	"github.com/bourse-pos/bourse/internal/catalog"
	"github.com/bourse-pos/bourse/internal/models"
	"github.com/bourse-pos/bourse/internal/remote"
)

// trackToolCall is a helper to track MCP tool invocations.
func (s *Server) trackToolCall(toolName string, start time.Time, success bool) {
	durationMs := time.Since(start).Milliseconds()
	s.telemetry.TrackMCPToolCalled(toolName, durationMs, success)
}

// ArticleResponse represents a cached article in MCP tool responses.
type ArticleResponse struct {
	ArticleID     string `json:"article_id"`
	Barcode       string `json:"barcode"`
	Description   string `json:"description"`
	Category      string `json:"category,omitempty"`
	Size          string `json:"size,omitempty"`
	Brand         string `json:"brand,omitempty"`
	Price         string `json:"price"`
	IsLot         bool   `json:"is_lot"`
	LotQuantity   int    `json:"lot_quantity,omitempty"`
	ListNumber    string `json:"list_number,omitempty"`
	DepositorName string `json:"depositor_name,omitempty"`
	LabelColor    string `json:"label_color,omitempty"`
	EditionID     string `json:"edition_id"`
}

// LookupResponse is the bourse_lookup result. Article is nil on a miss.
type LookupResponse struct {
	Found   bool             `json:"found"`
	Article *ArticleResponse `json:"article,omitempty"`
}

// SaleResponse represents a queued sale in MCP tool responses.
type SaleResponse struct {
	ID            string `json:"id"`
	ArticleID     string `json:"article_id"`
	Barcode       string `json:"barcode"`
	Description   string `json:"description"`
	Price         string `json:"price"`
	PaymentMethod string `json:"payment_method"`
	Register      int    `json:"register"`
	SoldAt        string `json:"sold_at"`
	Status        string `json:"status"`
	SyncError     string `json:"sync_error,omitempty"`
}

// PendingResponse is the bourse_pending result.
type PendingResponse struct {
	EditionID string         `json:"edition_id"`
	Count     int            `json:"count"`
	Capacity  int            `json:"capacity"`
	Total     string         `json:"total"`
	Sales     []SaleResponse `json:"sales"`
}

// ConflictsResponse is the bourse_conflicts result.
type ConflictsResponse struct {
	EditionID string         `json:"edition_id"`
	Lines     []string       `json:"lines"`
	Sales     []SaleResponse `json:"sales"`
}

// StatusResponse is the bourse_status result.
type StatusResponse struct {
	EditionID       string `json:"edition_id"`
	Register        int    `json:"register"`
	ServerURL       string `json:"server_url,omitempty"`
	CachedArticles  int64  `json:"cached_articles"`
	CatalogEdition  string `json:"catalog_edition,omitempty"`
	LastRefresh     string `json:"last_refresh,omitempty"`
	PendingSales    int64  `json:"pending_sales"`
	PendingAmount   string `json:"pending_amount"`
	QueueCapacity   int    `json:"queue_capacity"`
	ConflictSales   int64  `json:"conflict_sales"`
	LastSync        string `json:"last_sync,omitempty"`
	LastSyncError   string `json:"last_sync_error,omitempty"`
	DatabaseSizeKiB int64  `json:"database_size_kib"`
}

// SyncResponse is the bourse_sync result.
type SyncResponse struct {
	EditionID string   `json:"edition_id"`
	Synced    int      `json:"synced"`
	Conflicts []string `json:"conflicts"`
	Remaining int64    `json:"remaining_pending"`
}

func toArticleResponse(a *models.Article) *ArticleResponse {
	return &ArticleResponse{
		ArticleID:     a.ArticleID,
		Barcode:       a.Barcode,
		Description:   a.Description,
		Category:      a.Category,
		Size:          a.Size,
		Brand:         a.Brand,
		Price:         a.Price.StringFixed(2),
		IsLot:         a.IsLot,
		LotQuantity:   a.LotQuantity,
		ListNumber:    a.ListNumber,
		DepositorName: a.DepositorName,
		LabelColor:    a.LabelColor,
		EditionID:     a.EditionID,
	}
}

func toSaleResponse(sale *models.PendingSale) SaleResponse {
	resp := SaleResponse{
		ID:            sale.ID,
		ArticleID:     sale.ArticleID,
		Barcode:       sale.Barcode,
		Description:   sale.ArticleDescription,
		Price:         sale.Price.StringFixed(2),
		PaymentMethod: string(sale.PaymentMethod),
		Register:      sale.RegisterNumber,
		SoldAt:        sale.SoldAt.UTC().Format(time.RFC3339),
		Status:        string(sale.Status),
	}
	if sale.SyncError != nil {
		resp.SyncError = *sale.SyncError
	}
	return resp
}

func toSaleResponses(sales []models.PendingSale) []SaleResponse {
	out := make([]SaleResponse, 0, len(sales))
	for i := range sales {
		out = append(out, toSaleResponse(&sales[i]))
	}
	return out
}

// edition returns the "edition" argument or the configured edition.
func (s *Server) edition(req mcp.CallToolRequest) (string, error) {
	if e, ok := req.Params.Arguments["edition"].(string); ok && e != "" {
		return e, nil
	}
	if s.cfg.Register.EditionID != "" {
		return s.cfg.Register.EditionID, nil
	}
	return "", catalog.ErrNoEdition
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// handleLookup handles the bourse_lookup tool.
func (s *Server) handleLookup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()

	barcode, ok := req.Params.Arguments["barcode"].(string)
	if !ok || barcode == "" {
		s.trackToolCall("bourse_lookup", start, false)
		return mcp.NewToolResultError("barcode parameter is required"), nil
	}

	article, err := s.catalog.LookupByBarcode(ctx, barcode)
	if err != nil {
		s.trackToolCall("bourse_lookup", start, false)
		return mcp.NewToolResultError(fmt.Sprintf("lookup failed: %v", err)), nil
	}

	resp := LookupResponse{Found: article != nil}
	if article != nil {
		resp.Article = toArticleResponse(article)
	}

	s.trackToolCall("bourse_lookup", start, true)
	return jsonResult(resp)
}

// handlePending handles the bourse_pending tool.
func (s *Server) handlePending(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()

	edition, err := s.edition(req)
	if err != nil {
		s.trackToolCall("bourse_pending", start, false)
		return mcp.NewToolResultError(err.Error()), nil
	}

	sales, err := s.queue.ListPending(ctx, edition)
	if err != nil {
		s.trackToolCall("bourse_pending", start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to list pending sales: %v", err)), nil
	}

	total := decimal.Zero
	for _, sale := range sales {
		total = total.Add(sale.Price)
	}

	s.trackToolCall("bourse_pending", start, true)
	return jsonResult(PendingResponse{
		EditionID: edition,
		Count:     len(sales),
		Capacity:  s.queue.Capacity(),
		Total:     total.StringFixed(2),
		Sales:     toSaleResponses(sales),
	})
}

// handleConflicts handles the bourse_conflicts tool.
func (s *Server) handleConflicts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()

	edition, err := s.edition(req)
	if err != nil {
		s.trackToolCall("bourse_conflicts", start, false)
		return mcp.NewToolResultError(err.Error()), nil
	}

	sales, err := s.queue.ListConflicts(ctx, edition)
	if err != nil {
		s.trackToolCall("bourse_conflicts", start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to list conflicts: %v", err)), nil
	}

	lines := make([]string, 0, len(sales))
	for i := range sales {
		lines = append(lines, sales[i].ConflictLine())
	}

	s.trackToolCall("bourse_conflicts", start, true)
	return jsonResult(ConflictsResponse{
		EditionID: edition,
		Lines:     lines,
		Sales:     toSaleResponses(sales),
	})
}

// handleStatus handles the bourse_status tool.
func (s *Server) handleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()

	stats, err := s.db.WithContext(ctx).GetStats()
	if err != nil {
		s.trackToolCall("bourse_status", start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to get stats: %v", err)), nil
	}
	refreshedAt, catalogEdition, err := s.catalog.LastRefresh(ctx)
	if err != nil {
		s.trackToolCall("bourse_status", start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to read refresh state: %v", err)), nil
	}
	syncedAt, lastErr, err := s.reconciler.LastSync(ctx)
	if err != nil {
		s.trackToolCall("bourse_status", start, false)
		return mcp.NewToolResultError(fmt.Sprintf("failed to read sync state: %v", err)), nil
	}

	resp := StatusResponse{
		EditionID:       s.cfg.Register.EditionID,
		Register:        s.cfg.Register.Number,
		ServerURL:       s.cfg.API.URL,
		CachedArticles:  stats.Articles,
		CatalogEdition:  catalogEdition,
		PendingSales:    stats.Sales.Pending,
		PendingAmount:   stats.Sales.Amount.StringFixed(2),
		QueueCapacity:   s.queue.Capacity(),
		ConflictSales:   stats.Sales.Conflict,
		LastSyncError:   lastErr,
		DatabaseSizeKiB: stats.SizeBytes / 1024,
	}
	if !refreshedAt.IsZero() {
		resp.LastRefresh = refreshedAt.UTC().Format(time.RFC3339)
	}
	if !syncedAt.IsZero() {
		resp.LastSync = syncedAt.UTC().Format(time.RFC3339)
	}

	s.trackToolCall("bourse_status", start, true)
	return jsonResult(resp)
}

// handleSync handles the bourse_sync tool.
func (s *Server) handleSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := time.Now()

	if s.api == nil {
		s.trackToolCall("bourse_sync", start, false)
		return mcp.NewToolResultError(remote.ErrNotConfigured.Error()), nil
	}

	edition, err := s.edition(req)
	if err != nil {
		s.trackToolCall("bourse_sync", start, false)
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.reconciler.SyncPendingSales(ctx, edition)
	if err != nil {
		s.trackToolCall("bourse_sync", start, false)
		msg := fmt.Sprintf("sync failed: %v", err)
		var apiErr *remote.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 500 {
			msg += " (server error, queued sales are unchanged; retry later)"
		}
		return mcp.NewToolResultError(msg), nil
	}

	remaining, err := s.queue.CountPending(ctx)
	if err != nil {
		s.logger.Warn("count pending after sync", "error", err)
	}

	s.trackToolCall("bourse_sync", start, true)
	return jsonResult(SyncResponse{
		EditionID: edition,
		Synced:    result.Synced,
		Conflicts: result.Conflicts,
		Remaining: remaining,
	})
}
