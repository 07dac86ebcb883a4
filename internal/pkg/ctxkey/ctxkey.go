// Package ctxkey defines type-safe keys for context.Value.
package ctxkey

// Key avoids the built-in string type for context keys (staticcheck SA1029).
type Key string

const (
	// RequestID is the server-generated or propagated request ID.
	RequestID Key = "ctx_request_id"

	// WebhookEventType is the resolved event type of an inbound delivery,
	// set by the webhook handler for request-chain log fields.
	WebhookEventType Key = "ctx_webhook_event_type"
)
