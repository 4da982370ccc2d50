// Package telemetrytest provides a recording telemetry client for tests.
package telemetrytest

import (
	"sync"

	"github.com/bourse-pos/bourse/internal/telemetry"
)

// Event is one recorded Track call.
type Event struct {
	Name       string
	Properties map[string]interface{}
}

// Recorder records events instead of sending them.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

var _ telemetry.Client = (*Recorder)(nil)

// Track records the event.
func (r *Recorder) Track(event string, properties map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Name: event, Properties: properties})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []string {
	events := r.Events()
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = e.Name
	}
	return names
}

// Last returns the most recent event named name, if any.
func (r *Recorder) Last(name string) (Event, bool) {
	events := r.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Name == name {
			return events[i], true
		}
	}
	return Event{}, false
}

func (r *Recorder) Close()                {}
func (r *Recorder) GetTrackingID() string { return "test-tracking-id" }

func (r *Recorder) TrackCLICommandExecuted(commandName string, hasFlags bool, durationMs int64) {
	r.Track(telemetry.EventCLICommandExecuted, map[string]interface{}{"command_name": commandName, "has_flags": hasFlags})
}

func (r *Recorder) TrackCLIError(commandName, errorType string) {
	r.Track(telemetry.EventCLIErrorOccurred, map[string]interface{}{"command_name": commandName, "error_type": errorType})
}

func (r *Recorder) TrackCatalogRefreshed(articleCount int, durationMs int64) {
	r.Track(telemetry.EventCatalogRefreshed, map[string]interface{}{"article_count": articleCount})
}

func (r *Recorder) TrackSaleQueued(paymentMethod string, pendingCount int64) {
	r.Track(telemetry.EventSaleQueued, map[string]interface{}{"payment_method": paymentMethod, "pending_count": pendingCount})
}

func (r *Recorder) TrackQueueFull(capacity int) {
	r.Track(telemetry.EventQueueFull, map[string]interface{}{"capacity": capacity})
}

func (r *Recorder) TrackSyncCompleted(synced, conflicts int, durationMs int64) {
	r.Track(telemetry.EventSyncCompleted, map[string]interface{}{"synced": synced, "conflicts": conflicts})
}

func (r *Recorder) TrackSyncFailed(errorType string) {
	r.Track(telemetry.EventSyncFailed, map[string]interface{}{"error_type": errorType})
}

func (r *Recorder) TrackMCPToolCalled(toolName string, durationMs int64, success bool) {
	r.Track(telemetry.EventMCPToolCalled, map[string]interface{}{"tool_name": toolName, "success": success})
}
