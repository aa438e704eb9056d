package domain

import "time"

// Business is a tenant: the top-level owner of credentials, accounts, and
// webhook configuration.
type Business struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	WebhookURL    *string   `json:"webhook_url,omitempty"`
	WebhookSecret string    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// CreateBusinessRequest is the payload accepted by POST /v1/businesses.
type CreateBusinessRequest struct {
	Name       string  `json:"name" validate:"required,max=255"`
	Email      string  `json:"email" validate:"required,email"`
	WebhookURL *string `json:"webhook_url,omitempty" validate:"omitempty,url"`
}

// UpdateBusinessRequest is the payload accepted by PUT /v1/businesses/{id}.
type UpdateBusinessRequest struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,max=255"`
	WebhookURL *string `json:"webhook_url,omitempty" validate:"omitempty,url"`
}

// CreateBusinessResponse is returned once at creation time: it is the only
// moment the raw API key and webhook secret are ever exposed.
type CreateBusinessResponse struct {
	Business      Business        `json:"business"`
	APIKey        GeneratedAPIKey `json:"api_key"`
	WebhookSecret string          `json:"webhook_secret"`
}
