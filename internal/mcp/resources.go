package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// resourcePrefix is the URI scheme for bourse resources.
const resourcePrefix = "bourse://"

// parseResourceURI extracts the key from a bourse://{kind}/{key} URI.
func parseResourceURI(uri, kind string) (string, error) {
	prefix := resourcePrefix + kind + "/"
	if !strings.HasPrefix(uri, prefix) {
		return "", fmt.Errorf("invalid URI scheme: %s", uri)
	}

	key := strings.TrimPrefix(uri, prefix)
	if key == "" || strings.Contains(key, "/") {
		return "", fmt.Errorf("invalid %s in URI: %s", kind, uri)
	}
	return key, nil
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// handleArticleResource handles bourse://article/{barcode} resources.
func (s *Server) handleArticleResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	barcode, err := parseResourceURI(req.Params.URI, "article")
	if err != nil {
		return nil, err
	}

	article, err := s.catalog.LookupByBarcode(ctx, barcode)
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}
	if article == nil {
		return nil, fmt.Errorf("article not in local catalog: %s", barcode)
	}

	return jsonResource(req.Params.URI, toArticleResponse(article))
}

// handleSaleResource handles bourse://sale/{id} resources. Confirmed sales
// are purged locally, so only pending and conflicting sales resolve.
func (s *Server) handleSaleResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id, err := parseResourceURI(req.Params.URI, "sale")
	if err != nil {
		return nil, err
	}

	sale, err := s.db.WithContext(ctx).GetPendingSale(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	if sale == nil {
		return nil, fmt.Errorf("sale not in local queue: %s", id)
	}

	return jsonResource(req.Params.URI, toSaleResponse(sale))
}
