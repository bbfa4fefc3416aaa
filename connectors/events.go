package connectors

import "time"

// EventType is a dot-separated, stable event name following the
// igniter.connectors.<eventType> telemetry convention (the prefix is
// applied by TelemetrySink implementations, not stored on the Event).
type EventType string

const (
	EventConnectorConnected    EventType = "connector.connected"
	EventConnectorDisconnected EventType = "connector.disconnected"
	EventConnectorEnabled      EventType = "connector.enabled"
	EventConnectorDisabled     EventType = "connector.disabled"
	EventConnectorUpdated      EventType = "connector.updated"

	EventOAuthStarted   EventType = "oauth.started"
	EventOAuthCompleted EventType = "oauth.completed"
	EventOAuthRefreshed EventType = "oauth.refreshed"
	EventOAuthFailed    EventType = "oauth.failed"

	EventActionStarted   EventType = "action.started"
	EventActionCompleted EventType = "action.completed"
	EventActionFailed    EventType = "action.failed"

	EventWebhookReceived  EventType = "webhook.received"
	EventWebhookProcessed EventType = "webhook.processed"
	EventWebhookFailed    EventType = "webhook.failed"

	EventErrorOccurred EventType = "error.occurred"
)

// Event is the payload delivered to every EventBus subscriber and every
// TelemetrySink. Data is event-specific and is left untyped so bespoke
// connectors can emit bespoke shapes through EventBus.Emit directly.
type Event struct {
	Type      EventType
	Scope     string
	Identity  string
	Connector string
	At        time.Time
	Data      map[string]any
	Err       error
}

func newEvent(t EventType, scope, identity, connector string, data map[string]any) Event {
	return Event{Type: t, Scope: scope, Identity: identity, Connector: connector, At: now(), Data: data}
}

func errorEvent(scope, identity, connector string, err error) Event {
	return Event{Type: EventErrorOccurred, Scope: scope, Identity: identity, Connector: connector, At: now(), Err: err}
}
