package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rideledger/rideledger/internal/money"
)

// Account is the aggregate root owning its ledger entries. Entries are
// created only through aggregate operations; each business event appends
// equal and opposite debit and credit postings.
type Account struct {
	ID        uuid.UUID     `gorm:"type:uuid;primaryKey"`
	TenantID  string        `gorm:"type:text;not null;uniqueIndex:ux_accounts_account_tenant,priority:2"`
	Name      string        `gorm:"type:varchar(200);not null"`
	Type      AccountType   `gorm:"type:text;not null"`
	Status    AccountStatus `gorm:"type:text;not null"`
	Currency  string        `gorm:"type:text;not null"`
	CreatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`

	Entries []LedgerEntry `gorm:"foreignKey:AccountID;references:ID"`

	pendingEntries []LedgerEntry
}

// TableName sets the database table name.
func (Account) TableName() string { return "accounts" }

// NewAccount validates and creates an active account.
func NewAccount(id uuid.UUID, tenantID, name string, accountType AccountType, currency string, now time.Time) (*Account, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidID
	}
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return nil, ErrInvalidName
	}
	switch accountType {
	case AccountTypeOrganization, AccountTypeIndividual:
	default:
		return nil, ErrInvalidType
	}
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if len(currency) != 3 {
		return nil, money.ErrInvalidCurrency
	}

	return &Account{
		ID:        id,
		TenantID:  tenantID,
		Name:      name,
		Type:      accountType,
		Status:    AccountStatusActive,
		Currency:  currency,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Rehydrate rebuilds the aggregate from persisted state without replaying
// the command surface. Loaded entries are treated as already committed.
func Rehydrate(account Account, entries []LedgerEntry) *Account {
	account.Entries = entries
	account.pendingEntries = nil
	return &account
}

// PendingEntries returns entries appended since the last persist.
func (a *Account) PendingEntries() []LedgerEntry { return a.pendingEntries }

// ClearPending marks appended entries as persisted.
func (a *Account) ClearPending() { a.pendingEntries = nil }

// IsActive reports whether the account accepts new transactions.
func (a *Account) IsActive() bool { return a.Status == AccountStatusActive }

// RecordCharge appends a receivable debit and a revenue credit for a ride.
// The (account, ride) pair is the idempotency key: a replay fails with a
// DuplicateChargeError carrying the entries already recorded.
func (a *Account) RecordCharge(rideID string, amount money.Money, serviceDate time.Time, fleetID, createdBy string, now time.Time) (ChargeRecordedEvent, error) {
	if !a.IsActive() {
		return ChargeRecordedEvent{}, ErrAccountInactive
	}
	if amount.Currency() != a.Currency {
		return ChargeRecordedEvent{}, money.ErrCurrencyMismatch
	}
	if existing := a.entriesBySource(SourceTypeRide, rideID); len(existing) > 0 {
		return ChargeRecordedEvent{}, &DuplicateChargeError{RideID: rideID, ExistingEntryIDs: existing}
	}

	metadata := map[string]any{"fleet_id": fleetID}
	debit, err := NewDebit(a.ID, a.TenantID, AccountCodeAccountsReceivable, amount,
		SourceTypeRide, rideID, serviceDate, metadata, createdBy, now)
	if err != nil {
		return ChargeRecordedEvent{}, err
	}
	credit, err := NewCredit(a.ID, a.TenantID, AccountCodeServiceRevenue, amount,
		SourceTypeRide, rideID, serviceDate, metadata, createdBy, now)
	if err != nil {
		return ChargeRecordedEvent{}, err
	}

	if err := a.append(debit, credit); err != nil {
		return ChargeRecordedEvent{}, err
	}
	return ChargeRecordedEvent{
		AccountID:     a.ID,
		RideID:        rideID,
		FleetID:       fleetID,
		Amount:        amount.Amount().StringFixed(4),
		Currency:      amount.Currency(),
		ServiceDate:   serviceDate,
		DebitEntryID:  debit.ID,
		CreditEntryID: credit.ID,
	}, nil
}

// RecordPayment appends a cash debit and a receivable credit. The payment
// reference is globally unique; the aggregate guards its own history and the
// storage index backstops concurrent replays across accounts.
func (a *Account) RecordPayment(paymentReferenceID string, amount money.Money, paymentDate time.Time, paymentMode, createdBy string, now time.Time) (PaymentReceivedEvent, error) {
	if !a.IsActive() {
		return PaymentReceivedEvent{}, ErrAccountInactive
	}
	if amount.Currency() != a.Currency {
		return PaymentReceivedEvent{}, money.ErrCurrencyMismatch
	}
	if existing := a.entriesBySource(SourceTypePayment, paymentReferenceID); len(existing) > 0 {
		return PaymentReceivedEvent{}, &DuplicatePaymentError{PaymentReferenceID: paymentReferenceID, ExistingEntryIDs: existing}
	}

	metadata := map[string]any{}
	if mode := strings.TrimSpace(paymentMode); mode != "" {
		metadata["payment_mode"] = mode
	}
	debit, err := NewDebit(a.ID, a.TenantID, AccountCodeCash, amount,
		SourceTypePayment, paymentReferenceID, paymentDate, metadata, createdBy, now)
	if err != nil {
		return PaymentReceivedEvent{}, err
	}
	credit, err := NewCredit(a.ID, a.TenantID, AccountCodeAccountsReceivable, amount,
		SourceTypePayment, paymentReferenceID, paymentDate, metadata, createdBy, now)
	if err != nil {
		return PaymentReceivedEvent{}, err
	}

	if err := a.append(debit, credit); err != nil {
		return PaymentReceivedEvent{}, err
	}
	return PaymentReceivedEvent{
		AccountID:          a.ID,
		PaymentReferenceID: paymentReferenceID,
		PaymentMode:        strings.TrimSpace(paymentMode),
		Amount:             amount.Amount().StringFixed(4),
		Currency:           amount.Currency(),
		PaymentDate:        paymentDate,
		DebitEntryID:       debit.ID,
		CreditEntryID:      credit.ID,
	}, nil
}

// Deactivate transitions Active to Inactive. Already-inactive accounts are
// a no-op; the second return reports whether a transition happened.
func (a *Account) Deactivate(reason string, now time.Time) (AccountDeactivatedEvent, bool) {
	if a.Status == AccountStatusInactive {
		return AccountDeactivatedEvent{}, false
	}
	a.Status = AccountStatusInactive
	a.UpdatedAt = now
	return AccountDeactivatedEvent{AccountID: a.ID, Reason: reason}, true
}

// Balance returns the receivable balance: sum of AR debits minus AR credits.
// An overpaid account reports zero; the prepayment sits in the cash balance.
func (a *Account) Balance() money.Money {
	return a.balanceFor(AccountCodeAccountsReceivable, nil)
}

// BalanceAsOf returns the receivable balance over entries dated on or
// before the given date.
func (a *Account) BalanceAsOf(date time.Time) money.Money {
	return a.balanceFor(AccountCodeAccountsReceivable, &date)
}

// BalanceFor computes the signed debit-minus-credit sum for one
// ledger-account kind. Not part of the public command surface.
func (a *Account) BalanceFor(kind LedgerAccountCode) decimal.Decimal {
	sum := decimal.Zero
	for _, entry := range a.Entries {
		if entry.LedgerAccount != kind {
			continue
		}
		sum = sum.Add(entry.EffectiveAmount())
	}
	return sum
}

func (a *Account) balanceFor(kind LedgerAccountCode, asOf *time.Time) money.Money {
	sum := decimal.Zero
	for _, entry := range a.Entries {
		if entry.LedgerAccount != kind {
			continue
		}
		if asOf != nil && entry.TransactionDate.After(*asOf) {
			continue
		}
		sum = sum.Add(entry.EffectiveAmount())
	}
	if sum.IsNegative() {
		sum = decimal.Zero
	}
	balance, err := money.New(sum, a.Currency)
	if err != nil {
		return money.Zero(a.Currency)
	}
	return balance
}

// append commits a balanced pair of postings to the aggregate. The pair must
// debit and credit the same amount.
func (a *Account) append(debit, credit LedgerEntry) error {
	if !debit.IsDebit() || credit.IsDebit() {
		return ErrUnbalancedEntry
	}
	if !debit.Amount().Equal(credit.Amount()) {
		return ErrUnbalancedEntry
	}
	a.Entries = append(a.Entries, debit, credit)
	a.pendingEntries = append(a.pendingEntries, debit, credit)
	return nil
}

func (a *Account) entriesBySource(sourceType EntrySourceType, reference string) []uuid.UUID {
	var ids []uuid.UUID
	for _, entry := range a.Entries {
		if entry.SourceType == sourceType && entry.SourceReferenceID == reference {
			ids = append(ids, entry.ID)
		}
	}
	return ids
}
