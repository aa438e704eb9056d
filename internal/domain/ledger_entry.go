package domain

import "time"

// EntryType is which side of the double-entry a LedgerEntry records.
type EntryType string

const (
	EntryDebit  EntryType = "debit"
	EntryCredit EntryType = "credit"
)

// LedgerEntry is one append-only leg of a completed Transaction. Every
// account balance is derivable as the signed sum of its entries.
type LedgerEntry struct {
	ID            string
	TransactionID string
	AccountID     string
	EntryType     EntryType
	Amount        string // decimal string, scale 4
	BalanceAfter  string // decimal string, scale 4, audit aid
	CreatedAt     time.Time
}

// LedgerEntryResponse is the wire view of a LedgerEntry.
type LedgerEntryResponse struct {
	ID            string    `json:"id"`
	TransactionID string    `json:"transaction_id"`
	AccountID     string    `json:"account_id"`
	EntryType     EntryType `json:"entry_type"`
	Amount        string    `json:"amount"`
	BalanceAfter  string    `json:"balance_after"`
	CreatedAt     time.Time `json:"created_at"`
}
