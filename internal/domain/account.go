package domain

import (
	"time"

	"github.com/payx/ledger/internal/money"
)

// Account is a balance belonging to a business, denominated in one currency.
type Account struct {
	ID               string    `json:"id"`
	BusinessID       string    `json:"business_id"`
	AccountType      string    `json:"account_type"`
	Currency         string    `json:"currency"`
	Balance          money.Money
	AvailableBalance money.Money
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CreateAccountRequest is the payload accepted by POST /v1/accounts.
type CreateAccountRequest struct {
	BusinessID     string  `json:"business_id" validate:"required,uuid"`
	AccountType    string  `json:"account_type,omitempty"`
	Currency       string  `json:"currency" validate:"required,len=3"`
	InitialBalance *string `json:"initial_balance,omitempty"`
}

// AccountResponse is the wire view of an Account.
type AccountResponse struct {
	ID               string    `json:"id"`
	BusinessID       string    `json:"business_id"`
	AccountType      string    `json:"account_type"`
	Currency         string    `json:"currency"`
	Balance          string    `json:"balance"`
	AvailableBalance string    `json:"available_balance"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewAccountResponse builds the wire view of an Account.
func NewAccountResponse(a Account) AccountResponse {
	return AccountResponse{
		ID:               a.ID,
		BusinessID:       a.BusinessID,
		AccountType:      a.AccountType,
		Currency:         a.Currency,
		Balance:          a.Balance.String(),
		AvailableBalance: a.AvailableBalance.String(),
		CreatedAt:        a.CreatedAt,
	}
}
