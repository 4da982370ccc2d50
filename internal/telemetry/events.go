package telemetry

import (
	"runtime"

	"github.com/bourse-pos/bourse/pkg/version"
)

// Event names - CLI
const (
	EventCLICommandExecuted = "cli_command_executed"
	EventCLIErrorOccurred   = "cli_error_occurred"
)

// Event names - Register
const (
	EventCatalogRefreshed = "catalog_refreshed"
	EventSaleQueued       = "sale_queued"
	EventQueueFull        = "queue_full"
	EventSyncCompleted    = "sync_completed"
	EventSyncFailed       = "sync_failed"
)

// Event names - MCP
const (
	EventMCPToolCalled = "mcp_tool_called"
)

// baseProperties returns common properties for all events.
func baseProperties() map[string]interface{} {
	return map[string]interface{}{
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"version":    version.Short(),
		"prerelease": version.IsPrerelease(),
		"dev_build":  version.IsDevBuild(),
	}
}

// --- CLI Tracking Methods ---

// TrackCLICommandExecuted tracks a completed CLI command.
func (c *posthogClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {
	props := baseProperties()
	props["command_name"] = commandName
	props["has_flags"] = hasFlags
	props["duration_ms"] = durationMs
	c.Track(EventCLICommandExecuted, props)
}

// TrackCLIError tracks a CLI command failure by error class.
func (c *posthogClient) TrackCLIError(commandName, errorType string) {
	props := baseProperties()
	props["command_name"] = commandName
	props["error_type"] = errorType
	c.Track(EventCLIErrorOccurred, props)
}

// --- Register Tracking Methods ---

// TrackCatalogRefreshed tracks a successful catalog download.
func (c *posthogClient) TrackCatalogRefreshed(articleCount int, durationMs int64) {
	props := baseProperties()
	props["article_count"] = articleCount
	props["duration_ms"] = durationMs
	c.Track(EventCatalogRefreshed, props)
}

// TrackSaleQueued tracks a sale recorded offline.
func (c *posthogClient) TrackSaleQueued(paymentMethod string, pendingCount int64) {
	props := baseProperties()
	props["payment_method"] = paymentMethod
	props["pending_count"] = pendingCount
	c.Track(EventSaleQueued, props)
}

// TrackQueueFull tracks a sale refused because the queue is at capacity.
func (c *posthogClient) TrackQueueFull(capacity int) {
	props := baseProperties()
	props["capacity"] = capacity
	c.Track(EventQueueFull, props)
}

// TrackSyncCompleted tracks a reconciled batch.
func (c *posthogClient) TrackSyncCompleted(synced, conflicts int, durationMs int64) {
	props := baseProperties()
	props["synced"] = synced
	props["conflicts"] = conflicts
	props["duration_ms"] = durationMs
	c.Track(EventSyncCompleted, props)
}

// TrackSyncFailed tracks a batch that could not be submitted.
func (c *posthogClient) TrackSyncFailed(errorType string) {
	props := baseProperties()
	props["error_type"] = errorType
	c.Track(EventSyncFailed, props)
}

// --- MCP Tracking Methods ---

// TrackMCPToolCalled tracks an MCP tool invocation.
func (c *posthogClient) TrackMCPToolCalled(toolName string, durationMs int64, success bool) {
	props := baseProperties()
	props["tool_name"] = toolName
	props["duration_ms"] = durationMs
	props["success"] = success
	c.Track(EventMCPToolCalled, props)
}

// --- No-op implementations ---

func (c *noopClient) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {}
func (c *noopClient) TrackCLIError(commandName, errorType string)                                 {}
func (c *noopClient) TrackCatalogRefreshed(articleCount int, durationMs int64)                    {}
func (c *noopClient) TrackSaleQueued(paymentMethod string, pendingCount int64)                    {}
func (c *noopClient) TrackQueueFull(capacity int)                                                 {}
func (c *noopClient) TrackSyncCompleted(synced, conflicts int, durationMs int64)                  {}
func (c *noopClient) TrackSyncFailed(errorType string)                                            {}
func (c *noopClient) TrackMCPToolCalled(toolName string, durationMs int64, success bool)          {}
