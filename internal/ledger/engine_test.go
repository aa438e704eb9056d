package ledger_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/payx/ledger/internal/apperror"
	"github.com/payx/ledger/internal/domain"
	"github.com/payx/ledger/internal/ledger"
	"github.com/payx/ledger/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory stand-in for internal/postgres.Store, letting
// the engine's pure decision logic (validation, lock order, fingerprint
// comparison) run without a live database.
type fakeStore struct {
	accounts     map[string]domain.Account
	transactions map[string]domain.Transaction
	byIdemKey    map[string]string // businessID|key -> transaction id
	outboxCount  int
	entryCount   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:     map[string]domain.Account{},
		transactions: map[string]domain.Transaction{},
		byIdemKey:    map[string]string{},
	}
}

func (f *fakeStore) FindTransactionByIdempotencyKey(ctx context.Context, businessID, key string) (domain.Transaction, bool, error) {
	id, ok := f.byIdemKey[businessID+"|"+key]
	if !ok {
		return domain.Transaction{}, false, nil
	}
	return f.transactions[id], true, nil
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	return fn(nil)
}

func (f *fakeStore) LockAccount(ctx context.Context, tx pgx.Tx, id string) (domain.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return domain.Account{}, apperror.AccountNotFound(id)
	}
	return a, nil
}

func (f *fakeStore) UpdateBalance(ctx context.Context, tx pgx.Tx, accountID string, newBalance money.Money) error {
	a := f.accounts[accountID]
	a.Balance = newBalance
	a.AvailableBalance = newBalance
	f.accounts[accountID] = a
	return nil
}

func (f *fakeStore) InsertTransaction(ctx context.Context, tx pgx.Tx, t domain.Transaction) (domain.Transaction, error) {
	if t.IdempotencyKey != nil {
		key := t.BusinessID + "|" + *t.IdempotencyKey
		if _, exists := f.byIdemKey[key]; exists {
			return domain.Transaction{}, apperror.IdempotencyConflict(f.byIdemKey[key])
		}
		f.byIdemKey[key] = t.ID
	}
	f.transactions[t.ID] = t
	return t, nil
}

func (f *fakeStore) InsertLedgerEntry(ctx context.Context, tx pgx.Tx, e domain.LedgerEntry) error {
	f.entryCount++
	return nil
}

func (f *fakeStore) InsertOutboxEvent(ctx context.Context, tx pgx.Tx, e domain.OutboxEvent) error {
	f.outboxCount++
	return nil
}

func seedAccount(f *fakeStore, id, businessID, currency, balance string) {
	bal, err := money.Parse(balance, currency)
	if err != nil {
		panic(err)
	}
	f.accounts[id] = domain.Account{
		ID:               id,
		BusinessID:       businessID,
		Currency:         currency,
		Balance:          bal,
		AvailableBalance: bal,
	}
}

func TestSubmit_Credit(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "acct-1", "biz-1", "USD", "0.00")
	engine := ledger.New(store)

	dest := "acct-1"
	txn, replayed, err := engine.Submit(context.Background(), "biz-1", domain.CreateTransactionRequest{
		Type:                 domain.TransactionCredit,
		DestinationAccountID: &dest,
		Amount:               "50.00",
		Currency:             "USD",
	}, "")
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, domain.TransactionCompleted, txn.Status)
	assert.Equal(t, "50.0000", store.accounts["acct-1"].Balance.String())
	assert.Equal(t, 1, store.entryCount)
	assert.Equal(t, 1, store.outboxCount)
}

func TestSubmit_Debit_InsufficientFunds(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "acct-1", "biz-1", "USD", "10.00")
	engine := ledger.New(store)

	src := "acct-1"
	_, _, err := engine.Submit(context.Background(), "biz-1", domain.CreateTransactionRequest{
		Type:            domain.TransactionDebit,
		SourceAccountID: &src,
		Amount:          "50.00",
		Currency:        "USD",
	}, "")
	require.Error(t, err)
	appErr, ok := err.(*apperror.Error)
	require.True(t, ok)
	assert.Equal(t, apperror.KindInsufficientFunds, appErr.Kind)
}

func TestSubmit_Transfer(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "acct-a", "biz-1", "USD", "100.00")
	seedAccount(store, "acct-b", "biz-1", "USD", "0.00")
	engine := ledger.New(store)

	src, dst := "acct-a", "acct-b"
	txn, _, err := engine.Submit(context.Background(), "biz-1", domain.CreateTransactionRequest{
		Type:                 domain.TransactionTransfer,
		SourceAccountID:      &src,
		DestinationAccountID: &dst,
		Amount:               "40.00",
		Currency:             "USD",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, domain.TransactionTransfer, txn.Type)
	assert.Equal(t, "60.0000", store.accounts["acct-a"].Balance.String())
	assert.Equal(t, "40.0000", store.accounts["acct-b"].Balance.String())
	assert.Equal(t, 2, store.entryCount)
}

func TestSubmit_Transfer_SameAccountRejected(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "acct-a", "biz-1", "USD", "100.00")
	engine := ledger.New(store)

	same := "acct-a"
	_, _, err := engine.Submit(context.Background(), "biz-1", domain.CreateTransactionRequest{
		Type:                 domain.TransactionTransfer,
		SourceAccountID:      &same,
		DestinationAccountID: &same,
		Amount:               "1.00",
		Currency:             "USD",
	}, "")
	require.Error(t, err)
	appErr, ok := err.(*apperror.Error)
	require.True(t, ok)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
}

func TestSubmit_CurrencyMismatch(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "acct-1", "biz-1", "EUR", "100.00")
	engine := ledger.New(store)

	dest := "acct-1"
	_, _, err := engine.Submit(context.Background(), "biz-1", domain.CreateTransactionRequest{
		Type:                 domain.TransactionCredit,
		DestinationAccountID: &dest,
		Amount:               "10.00",
		Currency:             "USD",
	}, "")
	require.Error(t, err)
	appErr, ok := err.(*apperror.Error)
	require.True(t, ok)
	assert.Equal(t, apperror.KindCurrencyMismatch, appErr.Kind)
}

func TestSubmit_IdempotentReplay_SameFingerprint(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "acct-1", "biz-1", "USD", "0.00")
	engine := ledger.New(store)

	dest := "acct-1"
	req := domain.CreateTransactionRequest{
		Type:                 domain.TransactionCredit,
		DestinationAccountID: &dest,
		Amount:               "25.00",
		Currency:             "USD",
	}

	first, replayed, err := engine.Submit(context.Background(), "biz-1", req, "key-1")
	require.NoError(t, err)
	assert.False(t, replayed)

	second, replayed, err := engine.Submit(context.Background(), "biz-1", req, "key-1")
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, second.ID)
	// the account must not have been credited twice
	assert.Equal(t, "25.0000", store.accounts["acct-1"].Balance.String())
}

func TestSubmit_IdempotentConflict_DifferentFingerprint(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "acct-1", "biz-1", "USD", "0.00")
	engine := ledger.New(store)

	dest := "acct-1"
	_, _, err := engine.Submit(context.Background(), "biz-1", domain.CreateTransactionRequest{
		Type:                 domain.TransactionCredit,
		DestinationAccountID: &dest,
		Amount:               "25.00",
		Currency:             "USD",
	}, "key-1")
	require.NoError(t, err)

	_, _, err = engine.Submit(context.Background(), "biz-1", domain.CreateTransactionRequest{
		Type:                 domain.TransactionCredit,
		DestinationAccountID: &dest,
		Amount:               "99.00",
		Currency:             "USD",
	}, "key-1")
	require.Error(t, err)
	appErr, ok := err.(*apperror.Error)
	require.True(t, ok)
	assert.Equal(t, apperror.KindIdempotencyConflict, appErr.Kind)
}

func TestSubmit_AccountNotFound(t *testing.T) {
	store := newFakeStore()
	engine := ledger.New(store)

	dest := "missing"
	_, _, err := engine.Submit(context.Background(), "biz-1", domain.CreateTransactionRequest{
		Type:                 domain.TransactionCredit,
		DestinationAccountID: &dest,
		Amount:               "1.00",
		Currency:             "USD",
	}, "")
	require.Error(t, err)
	appErr, ok := err.(*apperror.Error)
	require.True(t, ok)
	assert.Equal(t, apperror.KindAccountNotFound, appErr.Kind)
}

func TestSubmit_ZeroAmountRejected(t *testing.T) {
	store := newFakeStore()
	seedAccount(store, "acct-1", "biz-1", "USD", "0.00")
	engine := ledger.New(store)

	dest := "acct-1"
	_, _, err := engine.Submit(context.Background(), "biz-1", domain.CreateTransactionRequest{
		Type:                 domain.TransactionCredit,
		DestinationAccountID: &dest,
		Amount:               "0.00",
		Currency:             "USD",
	}, "")
	require.Error(t, err)
	appErr, ok := err.(*apperror.Error)
	require.True(t, ok)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
}
