// Package ledger implements the transaction engine: the single critical
// section that validates, locks accounts, moves balances, and records a
// completed transaction with its ledger entries and outbox event, all
// under one database transaction.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/payx/ledger/internal/apperror"
	"github.com/payx/ledger/internal/domain"
	"github.com/payx/ledger/internal/money"
)

// Store is the subset of internal/postgres.Store the engine depends on.
// Defining it here, rather than depending on the postgres package's
// concrete type, lets engine tests substitute an in-memory fake and
// exercise the pure decision logic without a live database.
type Store interface {
	FindTransactionByIdempotencyKey(ctx context.Context, businessID, key string) (domain.Transaction, bool, error)
	WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error
	LockAccount(ctx context.Context, tx pgx.Tx, id string) (domain.Account, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, accountID string, newBalance money.Money) error
	InsertTransaction(ctx context.Context, tx pgx.Tx, t domain.Transaction) (domain.Transaction, error)
	InsertLedgerEntry(ctx context.Context, tx pgx.Tx, e domain.LedgerEntry) error
	InsertOutboxEvent(ctx context.Context, tx pgx.Tx, e domain.OutboxEvent) error
}

// errIdempotencyRace aborts the critical section when a concurrent request
// has already inserted a transaction under the same idempotency key, so the
// partial work is rolled back before the winner is replayed.
var errIdempotencyRace = errors.New("ledger: idempotency key claimed by a concurrent request")

// Engine is the transaction engine's single public entry point.
type Engine struct {
	store Store
}

// New constructs an Engine over the given store.
func New(store Store) *Engine {
	return &Engine{store: store}
}

// Submit validates, executes, and records one of {credit, debit,
// transfer} as a single atomic transaction. idempotencyKey is optional;
// when present, a prior submission with the same (businessID, key) and a
// matching fingerprint is replayed instead of re-executed.
func (e *Engine) Submit(ctx context.Context, businessID string, req domain.CreateTransactionRequest, idempotencyKey string) (domain.Transaction, bool, error) {
	if err := validateShape(req); err != nil {
		return domain.Transaction{}, false, err
	}
	amount, err := money.Parse(req.Amount, req.Currency)
	if err != nil {
		return domain.Transaction{}, false, err
	}
	if !amount.IsPositive() {
		return domain.Transaction{}, false, apperror.Validation("amount must be greater than zero")
	}

	fingerprint := fingerprintOf(req, amount)

	if idempotencyKey != "" {
		existing, found, err := e.store.FindTransactionByIdempotencyKey(ctx, businessID, idempotencyKey)
		if err != nil {
			return domain.Transaction{}, false, err
		}
		if found {
			if existing.RequestFingerprint == nil || *existing.RequestFingerprint != fingerprint {
				return domain.Transaction{}, false, apperror.IdempotencyConflict(existing.ID)
			}
			return existing, true, nil
		}
	}

	metadata, err := marshalMetadata(req.Metadata)
	if err != nil {
		return domain.Transaction{}, false, apperror.Validation("invalid metadata")
	}

	lockIDs := lockOrder(req)

	var result domain.Transaction
	var replayed bool

	err = e.store.WithTx(ctx, func(tx pgx.Tx) error {
		accounts := make(map[string]domain.Account, len(lockIDs))
		for _, id := range lockIDs {
			acct, err := e.store.LockAccount(ctx, tx, id)
			if err != nil {
				return err
			}
			if acct.Currency != req.Currency {
				return apperror.CurrencyMismatch(acct.Currency, req.Currency)
			}
			accounts[id] = acct
		}

		if req.Type == domain.TransactionDebit || req.Type == domain.TransactionTransfer {
			source := accounts[*req.SourceAccountID]
			ok, err := source.AvailableBalance.GreaterThanOrEqual(amount)
			if err != nil {
				return err
			}
			if !ok {
				return apperror.InsufficientFunds(source.AvailableBalance.String(), amount.String())
			}
		}

		newBalances, err := computeBalances(req, accounts, amount)
		if err != nil {
			return err
		}
		for id, bal := range newBalances {
			if err := e.store.UpdateBalance(ctx, tx, id, bal); err != nil {
				return err
			}
		}

		txnID := uuid.NewString()
		fp := fingerprint
		var idemKey *string
		if idempotencyKey != "" {
			idemKey = &idempotencyKey
		}
		inserted, err := e.store.InsertTransaction(ctx, tx, domain.Transaction{
			ID:                   txnID,
			BusinessID:           businessID,
			IdempotencyKey:       idemKey,
			RequestFingerprint:   &fp,
			Type:                 req.Type,
			Status:               domain.TransactionCompleted,
			SourceAccountID:      req.SourceAccountID,
			DestinationAccountID: req.DestinationAccountID,
			Amount:               amount.String(),
			Currency:             req.Currency,
			Description:          req.Description,
			Metadata:             metadata,
		})
		if err != nil {
			if appErr, ok := err.(*apperror.Error); ok && appErr.Kind == apperror.KindIdempotencyConflict {
				return errIdempotencyRace
			}
			return err
		}
		result = inserted

		for id, bal := range newBalances {
			entryType := domain.EntryCredit
			if id == deref(req.SourceAccountID) {
				entryType = domain.EntryDebit
			}
			if err := e.store.InsertLedgerEntry(ctx, tx, domain.LedgerEntry{
				ID:            uuid.NewString(),
				TransactionID: txnID,
				AccountID:     id,
				EntryType:     entryType,
				Amount:        amount.String(),
				BalanceAfter:  bal.String(),
			}); err != nil {
				return err
			}
		}

		eventID := uuid.NewString()
		payload, err := json.Marshal(domain.WebhookPayload{
			ID:        eventID,
			EventType: "transaction.completed",
			CreatedAt: time.Now().UTC(),
			Data:      domain.NewTransactionResponse(result),
		})
		if err != nil {
			return apperror.Internal(err)
		}
		return e.store.InsertOutboxEvent(ctx, tx, domain.OutboxEvent{
			ID:            eventID,
			BusinessID:    businessID,
			EventType:     "transaction.completed",
			Payload:       payload,
			Status:        domain.OutboxPending,
			MaxAttempts:   5,
			NextAttemptAt: time.Now(),
		})
	})
	if errors.Is(err, errIdempotencyRace) {
		replayed = true
	} else if err != nil {
		return domain.Transaction{}, false, err
	}

	if replayed {
		existing, found, err := e.store.FindTransactionByIdempotencyKey(ctx, businessID, idempotencyKey)
		if err != nil {
			return domain.Transaction{}, false, err
		}
		if !found {
			return domain.Transaction{}, false, apperror.Internal(nil)
		}
		if existing.RequestFingerprint == nil || *existing.RequestFingerprint != fingerprint {
			return domain.Transaction{}, false, apperror.IdempotencyConflict(existing.ID)
		}
		return existing, true, nil
	}

	return result, false, nil
}

// validateShape enforces the field-presence rule that discriminates the
// three transaction kinds: credit has destination only, debit has source
// only, transfer has both and they are distinct.
func validateShape(req domain.CreateTransactionRequest) error {
	switch req.Type {
	case domain.TransactionCredit:
		if req.DestinationAccountID == nil || req.SourceAccountID != nil {
			return apperror.Validation("credit requires destination_account_id only")
		}
	case domain.TransactionDebit:
		if req.SourceAccountID == nil || req.DestinationAccountID != nil {
			return apperror.Validation("debit requires source_account_id only")
		}
	case domain.TransactionTransfer:
		if req.SourceAccountID == nil || req.DestinationAccountID == nil {
			return apperror.Validation("transfer requires both source_account_id and destination_account_id")
		}
		if *req.SourceAccountID == *req.DestinationAccountID {
			return apperror.Validation("transfer requires distinct source and destination accounts")
		}
	default:
		return apperror.Validation("unknown transaction type")
	}
	return nil
}

// lockOrder returns the accounts to lock, sorted by their canonical UUID
// string form — a stable total order that guarantees two overlapping
// submissions always request locks in the same sequence, making deadlock
// impossible.
func lockOrder(req domain.CreateTransactionRequest) []string {
	var ids []string
	if req.SourceAccountID != nil {
		ids = append(ids, *req.SourceAccountID)
	}
	if req.DestinationAccountID != nil {
		ids = append(ids, *req.DestinationAccountID)
	}
	sort.Strings(ids)
	return ids
}

// computeBalances derives each locked account's new balance. It does not
// itself write anything.
func computeBalances(req domain.CreateTransactionRequest, accounts map[string]domain.Account, amount money.Money) (map[string]money.Money, error) {
	out := make(map[string]money.Money, len(accounts))

	switch req.Type {
	case domain.TransactionCredit:
		dest := accounts[*req.DestinationAccountID]
		newBal, err := dest.Balance.Add(amount)
		if err != nil {
			return nil, err
		}
		out[dest.ID] = newBal
	case domain.TransactionDebit:
		src := accounts[*req.SourceAccountID]
		newBal, err := src.Balance.Sub(amount)
		if err != nil {
			return nil, err
		}
		out[src.ID] = newBal
	case domain.TransactionTransfer:
		src := accounts[*req.SourceAccountID]
		dest := accounts[*req.DestinationAccountID]
		newSrc, err := src.Balance.Sub(amount)
		if err != nil {
			return nil, err
		}
		newDest, err := dest.Balance.Add(amount)
		if err != nil {
			return nil, err
		}
		out[src.ID] = newSrc
		out[dest.ID] = newDest
	}
	return out, nil
}

// fingerprintOf canonicalizes the fields that define a request's identity
// for idempotent-replay comparison: type, source, destination, amount,
// currency.
func fingerprintOf(req domain.CreateTransactionRequest, amount money.Money) string {
	return string(req.Type) + "|" + deref(req.SourceAccountID) + "|" + deref(req.DestinationAccountID) + "|" + amount.String() + "|" + req.Currency
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func marshalMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}
