package domain

import "time"

// OutboxStatus is the lifecycle state of a webhook outbox row.
// Delivered and Failed are terminal.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxRetrying  OutboxStatus = "retrying"
	OutboxDelivered OutboxStatus = "delivered"
	OutboxFailed    OutboxStatus = "failed"
)

// OutboxEvent is a durable row recorded in the same database transaction
// as the ledger change it describes, later delivered to the tenant's
// webhook endpoint by the background worker.
type OutboxEvent struct {
	ID            string
	BusinessID    string
	EventType     string
	Payload       []byte // raw JSON, the exact body delivered
	Status        OutboxStatus
	Attempts      int
	MaxAttempts   int
	NextAttemptAt time.Time
	LastError     *string
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

// WebhookPayload is the envelope delivered to a tenant's webhook endpoint.
type WebhookPayload struct {
	ID        string    `json:"id"`
	EventType string    `json:"event_type"`
	CreatedAt time.Time `json:"created_at"`
	Data      any       `json:"data"`
}

// DeliveryResponse is the wire view of an OutboxEvent for the webhook
// deliveries listing endpoint.
type DeliveryResponse struct {
	ID            string       `json:"id"`
	BusinessID    string       `json:"business_id"`
	EventType     string       `json:"event_type"`
	Status        OutboxStatus `json:"status"`
	Attempts      int          `json:"attempts"`
	MaxAttempts   int          `json:"max_attempts"`
	NextAttemptAt time.Time    `json:"next_attempt_at"`
	LastError     *string      `json:"last_error,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	ProcessedAt   *time.Time   `json:"processed_at,omitempty"`
}

// NewDeliveryResponse builds the wire view of an OutboxEvent.
func NewDeliveryResponse(e OutboxEvent) DeliveryResponse {
	return DeliveryResponse{
		ID:            e.ID,
		BusinessID:    e.BusinessID,
		EventType:     e.EventType,
		Status:        e.Status,
		Attempts:      e.Attempts,
		MaxAttempts:   e.MaxAttempts,
		NextAttemptAt: e.NextAttemptAt,
		LastError:     e.LastError,
		CreatedAt:     e.CreatedAt,
		ProcessedAt:   e.ProcessedAt,
	}
}

// CreateWebhookEndpointRequest configures a tenant's webhook_url.
type CreateWebhookEndpointRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// UpdateWebhookEndpointRequest updates a tenant's webhook_url.
type UpdateWebhookEndpointRequest struct {
	URL *string `json:"url,omitempty" validate:"omitempty,url"`
}
