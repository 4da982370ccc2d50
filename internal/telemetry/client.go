// Package telemetry provides anonymous usage tracking via PostHog.
package telemetry

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/posthog/posthog-go"
)

// PostHogAPIKey is set at compile time via ldflags.
var PostHogAPIKey string

// EnvTrackingEnabled opts out of telemetry when set to "false".
const EnvTrackingEnabled = "BOURSE_TELEMETRY_TRACKING_ENABLED"

// TrackingIDProvider is an interface for getting tracking IDs.
// This allows for testing without a real database.
type TrackingIDProvider interface {
	GetOrCreateTrackingID() string
}

// Client interface for telemetry operations.
type Client interface {
	Track(event string, properties map[string]interface{})
	Close()
	GetTrackingID() string

	// CLI events
	TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64)
	TrackCLIError(commandName, errorType string)

	// Register events
	TrackCatalogRefreshed(articleCount int, durationMs int64)
	TrackSaleQueued(paymentMethod string, pendingCount int64)
	TrackQueueFull(capacity int)
	TrackSyncCompleted(synced, conflicts int, durationMs int64)
	TrackSyncFailed(errorType string)

	// MCP events
	TrackMCPToolCalled(toolName string, durationMs int64, success bool)
}

// posthogClient wraps the PostHog SDK.
type posthogClient struct {
	client    posthog.Client
	sessionID string
	mu        sync.Mutex
}

// noopClient does nothing (for disabled telemetry).
type noopClient struct{}

// IsEnabled returns true if telemetry is enabled.
// Telemetry is opt-out: enabled by default unless BOURSE_TELEMETRY_TRACKING_ENABLED=false.
func IsEnabled() bool {
	return os.Getenv(EnvTrackingEnabled) != "false" && PostHogAPIKey != ""
}

// New creates a new telemetry client with a persistent tracking ID from the database.
// If provider is nil, a new UUID is generated per session.
func New(provider TrackingIDProvider) Client {
	if !IsEnabled() {
		return &noopClient{}
	}

	client, err := posthog.NewWithConfig(PostHogAPIKey, posthog.Config{
		Endpoint:  "https://eu.i.posthog.com",
		BatchSize: 100,
		Interval:  10 * time.Second,
	})
	if err != nil {
		return &noopClient{}
	}

	var sessionID string
	if provider != nil {
		sessionID = provider.GetOrCreateTrackingID()
	} else {
		sessionID = uuid.New().String()
	}

	return &posthogClient{
		client:    client,
		sessionID: sessionID,
	}
}

// Noop returns a client that discards every event.
func Noop() Client {
	return &noopClient{}
}

// Track sends an event to PostHog.
func (c *posthogClient) Track(event string, properties map[string]interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	props := posthog.NewProperties()
	props.Set("$process_person_profile", false)
	props.Set("$geoip_disable", true)

	for k, v := range properties {
		props.Set(k, v)
	}

	_ = c.client.Enqueue(posthog.Capture{
		DistinctId: c.sessionID,
		Event:      event,
		Properties: props,
	})
}

// Close flushes remaining events and closes the client.
func (c *posthogClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.client.Close()
}

// GetTrackingID returns the anonymous tracking ID for the session.
func (c *posthogClient) GetTrackingID() string {
	return c.sessionID
}

// Track is a no-op for disabled telemetry.
func (c *noopClient) Track(event string, properties map[string]interface{}) {}

// Close is a no-op for disabled telemetry.
func (c *noopClient) Close() {}

// GetTrackingID returns empty string for disabled telemetry.
func (c *noopClient) GetTrackingID() string {
	return ""
}
