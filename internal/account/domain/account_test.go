package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rideledger/rideledger/internal/money"
)

func mustMoney(t *testing.T, amount, currency string) money.Money {
	t.Helper()
	m, err := money.NewFromString(amount, currency)
	require.NoError(t, err)
	return m
}

func newTestAccount(t *testing.T) *Account {
	t.Helper()
	account, err := NewAccount(uuid.New(), "tenant-a", "Acme Fleet", AccountTypeOrganization, "USD", time.Now().UTC())
	require.NoError(t, err)
	return account
}

func TestNewAccountValidation(t *testing.T) {
	now := time.Now().UTC()

	_, err := NewAccount(uuid.Nil, "tenant-a", "Acme", AccountTypeOrganization, "USD", now)
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = NewAccount(uuid.New(), "tenant-a", "   ", AccountTypeOrganization, "USD", now)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = NewAccount(uuid.New(), "tenant-a", "Acme", AccountType("fleet"), "USD", now)
	assert.ErrorIs(t, err, ErrInvalidType)

	_, err = NewAccount(uuid.New(), "tenant-a", "Acme", AccountTypeIndividual, "dollars", now)
	assert.ErrorIs(t, err, money.ErrInvalidCurrency)

	account, err := NewAccount(uuid.New(), "tenant-a", "Acme", AccountTypeOrganization, "usd", now)
	require.NoError(t, err)
	assert.Equal(t, "USD", account.Currency)
	assert.Equal(t, AccountStatusActive, account.Status)
}

func TestRecordChargeAppendsBalancedPair(t *testing.T) {
	account := newTestAccount(t)
	serviceDate := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	event, err := account.RecordCharge("ride-001", mustMoney(t, "25.00", "USD"), serviceDate, "fleet-7", "user-1", time.Now().UTC())
	require.NoError(t, err)

	pending := account.PendingEntries()
	require.Len(t, pending, 2)

	debit, credit := pending[0], pending[1]
	assert.True(t, debit.IsDebit())
	assert.False(t, credit.IsDebit())
	assert.Equal(t, AccountCodeAccountsReceivable, debit.LedgerAccount)
	assert.Equal(t, AccountCodeServiceRevenue, credit.LedgerAccount)
	assert.True(t, debit.Amount().Equal(credit.Amount()))
	assert.Equal(t, "fleet-7", debit.Metadata["fleet_id"])
	assert.Equal(t, event.DebitEntryID, debit.ID)
	assert.Equal(t, event.CreditEntryID, credit.ID)

	assert.Equal(t, "25.0000 USD", account.Balance().String())
}

func TestRecordChargeDuplicateRide(t *testing.T) {
	account := newTestAccount(t)
	serviceDate := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	_, err := account.RecordCharge("ride-001", mustMoney(t, "25.00", "USD"), serviceDate, "fleet-7", "user-1", time.Now().UTC())
	require.NoError(t, err)

	_, err = account.RecordCharge("ride-001", mustMoney(t, "30.00", "USD"), serviceDate, "fleet-7", "user-1", time.Now().UTC())
	assert.ErrorIs(t, err, ErrDuplicateCharge)

	var dup *DuplicateChargeError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "ride-001", dup.RideID)
	assert.Len(t, dup.ExistingEntryIDs, 2)

	// The failed replay must not change the ledger.
	assert.Len(t, account.Entries, 2)
	assert.Equal(t, "25.0000 USD", account.Balance().String())
}

func TestRecordChargeInactiveAccount(t *testing.T) {
	account := newTestAccount(t)
	_, transitioned := account.Deactivate("churned", time.Now().UTC())
	require.True(t, transitioned)

	_, err := account.RecordCharge("ride-001", mustMoney(t, "25.00", "USD"), time.Now().UTC(), "fleet-7", "user-1", time.Now().UTC())
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestRecordChargeCurrencyMismatch(t *testing.T) {
	account := newTestAccount(t)
	_, err := account.RecordCharge("ride-001", mustMoney(t, "25.00", "EUR"), time.Now().UTC(), "fleet-7", "user-1", time.Now().UTC())
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

func TestRecordPaymentClearsReceivable(t *testing.T) {
	account := newTestAccount(t)
	day1 := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	_, err := account.RecordCharge("ride-001", mustMoney(t, "25.00", "USD"), day1, "fleet-7", "user-1", time.Now().UTC())
	require.NoError(t, err)

	event, err := account.RecordPayment("pay-001", mustMoney(t, "25.00", "USD"), day2, "bank_transfer", "user-1", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "bank_transfer", event.PaymentMode)

	require.Len(t, account.Entries, 4)
	cash := account.Entries[2]
	assert.True(t, cash.IsDebit())
	assert.Equal(t, AccountCodeCash, cash.LedgerAccount)

	assert.Equal(t, "0.0000 USD", account.Balance().String())
}

func TestRecordPaymentDuplicateReference(t *testing.T) {
	account := newTestAccount(t)
	day := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	_, err := account.RecordPayment("pay-001", mustMoney(t, "10.00", "USD"), day, "card", "user-1", time.Now().UTC())
	require.NoError(t, err)

	_, err = account.RecordPayment("pay-001", mustMoney(t, "10.00", "USD"), day, "card", "user-1", time.Now().UTC())
	assert.ErrorIs(t, err, ErrDuplicatePayment)

	var dup *DuplicatePaymentError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "pay-001", dup.PaymentReferenceID)
	assert.Len(t, dup.ExistingEntryIDs, 2)
}

func TestOverpaymentClampsBalanceToZero(t *testing.T) {
	account := newTestAccount(t)
	day := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	_, err := account.RecordCharge("ride-001", mustMoney(t, "20.00", "USD"), day, "fleet-7", "user-1", time.Now().UTC())
	require.NoError(t, err)
	_, err = account.RecordPayment("pay-001", mustMoney(t, "50.00", "USD"), day, "card", "user-1", time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, "0.0000 USD", account.Balance().String())
	// The signed receivable sum is still visible to internal arithmetic.
	assert.True(t, account.BalanceFor(AccountCodeAccountsReceivable).Equal(decimal.RequireFromString("-30")))
	assert.True(t, account.BalanceFor(AccountCodeCash).Equal(decimal.RequireFromString("50")))
}

func TestBalanceAsOf(t *testing.T) {
	account := newTestAccount(t)
	jan10 := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	jan20 := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)

	_, err := account.RecordCharge("ride-001", mustMoney(t, "25.00", "USD"), jan10, "fleet-7", "user-1", time.Now().UTC())
	require.NoError(t, err)
	_, err = account.RecordCharge("ride-002", mustMoney(t, "30.00", "USD"), jan20, "fleet-7", "user-1", time.Now().UTC())
	require.NoError(t, err)

	assert.Equal(t, "25.0000 USD", account.BalanceAsOf(jan10.AddDate(0, 0, 1)).String())
	assert.Equal(t, "55.0000 USD", account.BalanceAsOf(jan20).String())
	assert.Equal(t, "0.0000 USD", account.BalanceAsOf(jan10.AddDate(0, 0, -1)).String())
}

func TestDeactivateIsIdempotent(t *testing.T) {
	account := newTestAccount(t)

	event, transitioned := account.Deactivate("contract ended", time.Now().UTC())
	require.True(t, transitioned)
	assert.Equal(t, account.ID, event.AccountID)
	assert.Equal(t, "contract ended", event.Reason)

	_, transitioned = account.Deactivate("again", time.Now().UTC())
	assert.False(t, transitioned)
	assert.Equal(t, AccountStatusInactive, account.Status)
}

func TestRehydrateGuardsAgainstReplays(t *testing.T) {
	account := newTestAccount(t)
	day := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)

	_, err := account.RecordCharge("ride-001", mustMoney(t, "25.00", "USD"), day, "fleet-7", "user-1", time.Now().UTC())
	require.NoError(t, err)

	reloaded := Rehydrate(*account, account.Entries)
	assert.Empty(t, reloaded.PendingEntries())

	_, err = reloaded.RecordCharge("ride-001", mustMoney(t, "25.00", "USD"), day, "fleet-7", "user-1", time.Now().UTC())
	assert.ErrorIs(t, err, ErrDuplicateCharge)
}

func TestEntryRequiresPositiveAmountAndReference(t *testing.T) {
	account := newTestAccount(t)

	_, err := NewDebit(account.ID, account.TenantID, AccountCodeAccountsReceivable, money.Zero("USD"),
		SourceTypeRide, "ride-001", time.Now().UTC(), nil, "user-1", time.Now().UTC())
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = NewDebit(account.ID, account.TenantID, AccountCodeAccountsReceivable, mustMoney(t, "10.00", "USD"),
		SourceTypeRide, "   ", time.Now().UTC(), nil, "user-1", time.Now().UTC())
	assert.ErrorIs(t, err, ErrInvalidSourceReference)

	long := make([]byte, 101)
	for i := range long {
		long[i] = 'x'
	}
	_, err = NewDebit(account.ID, account.TenantID, AccountCodeAccountsReceivable, mustMoney(t, "10.00", "USD"),
		SourceTypeRide, string(long), time.Now().UTC(), nil, "user-1", time.Now().UTC())
	assert.ErrorIs(t, err, ErrInvalidSourceReference)
}
