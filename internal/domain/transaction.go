package domain

import "time"

// TransactionType discriminates the shape of a TransactionRequest: which of
// source/destination must be present. There is deliberately no per-kind
// type hierarchy — Engine.Submit branches on this single tag.
type TransactionType string

const (
	TransactionCredit   TransactionType = "credit"
	TransactionDebit    TransactionType = "debit"
	TransactionTransfer TransactionType = "transfer"
)

// TransactionStatus is the lifecycle state of a Transaction. The engine's
// only write path commits directly to Completed; Pending and Failed exist
// for schema completeness and are never written by this repository.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// Transaction is the immutable record of a completed monetary movement.
type Transaction struct {
	ID                   string
	BusinessID           string
	IdempotencyKey       *string
	RequestFingerprint   *string
	Type                 TransactionType
	Status               TransactionStatus
	SourceAccountID      *string
	DestinationAccountID *string
	Amount               string // decimal string, scale 4
	Currency             string
	Description          *string
	Metadata             []byte // raw JSON, nullable
	CreatedAt            time.Time
	CompletedAt          *time.Time
}

// CreateTransactionRequest is the payload accepted by POST /v1/transactions.
type CreateTransactionRequest struct {
	Type                 TransactionType `json:"type" validate:"required,oneof=credit debit transfer"`
	SourceAccountID      *string         `json:"source_account_id,omitempty" validate:"omitempty,uuid"`
	DestinationAccountID *string         `json:"destination_account_id,omitempty" validate:"omitempty,uuid"`
	Amount               string          `json:"amount" validate:"required"`
	Currency             string          `json:"currency" validate:"required,len=3"`
	Description          *string         `json:"description,omitempty"`
	Metadata             map[string]any  `json:"metadata,omitempty"`
}

// TransactionResponse is the wire view of a Transaction.
type TransactionResponse struct {
	ID                   string            `json:"id"`
	Type                 TransactionType   `json:"type"`
	Status               TransactionStatus `json:"status"`
	SourceAccountID      *string           `json:"source_account_id,omitempty"`
	DestinationAccountID *string           `json:"destination_account_id,omitempty"`
	Amount               string            `json:"amount"`
	Currency             string            `json:"currency"`
	Description          *string           `json:"description,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	CompletedAt          *time.Time        `json:"completed_at,omitempty"`
}

// NewTransactionResponse builds the wire view of a Transaction.
func NewTransactionResponse(t Transaction) TransactionResponse {
	return TransactionResponse{
		ID:                   t.ID,
		Type:                 t.Type,
		Status:               t.Status,
		SourceAccountID:      t.SourceAccountID,
		DestinationAccountID: t.DestinationAccountID,
		Amount:               t.Amount,
		Currency:             t.Currency,
		Description:          t.Description,
		CreatedAt:            t.CreatedAt,
		CompletedAt:          t.CompletedAt,
	}
}
