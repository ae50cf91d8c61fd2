// Package domain holds the account aggregate and its ledger entries.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/rideledger/rideledger/internal/money"
)

// AccountType distinguishes organisations from individual customers.
type AccountType string

const (
	AccountTypeOrganization AccountType = "organization"
	AccountTypeIndividual   AccountType = "individual"
)

// AccountStatus gates new transactions. Inactive is terminal.
type AccountStatus string

const (
	AccountStatusActive   AccountStatus = "active"
	AccountStatusInactive AccountStatus = "inactive"
)

// LedgerAccountCode names the ledger-account kind of a posting.
type LedgerAccountCode string

const (
	AccountCodeAccountsReceivable LedgerAccountCode = "accounts_receivable"
	AccountCodeServiceRevenue     LedgerAccountCode = "service_revenue"
	AccountCodeCash               LedgerAccountCode = "cash"
)

// EntrySourceType identifies the business event behind an entry.
type EntrySourceType string

const (
	SourceTypeRide    EntrySourceType = "ride"
	SourceTypePayment EntrySourceType = "payment"
)

const maxSourceReferenceLen = 100

// LedgerEntry is one immutable half of a double-entry posting. Exactly one
// of DebitAmount or CreditAmount is populated, always strictly positive.
type LedgerEntry struct {
	ID                uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID          string            `gorm:"type:text;not null;index" json:"-"`
	AccountID         uuid.UUID         `gorm:"type:uuid;not null;index:idx_ledger_entries_account_txn,priority:1" json:"account_id"`
	LedgerAccount     LedgerAccountCode `gorm:"type:text;not null" json:"ledger_account"`
	DebitAmount       *decimal.Decimal  `gorm:"type:numeric(19,4)" json:"debit_amount,omitempty"`
	CreditAmount      *decimal.Decimal  `gorm:"type:numeric(19,4)" json:"credit_amount,omitempty"`
	Currency          string            `gorm:"type:text;not null" json:"currency"`
	TransactionDate   time.Time         `gorm:"not null;index:idx_ledger_entries_account_txn,priority:2" json:"transaction_date"`
	SourceType        EntrySourceType   `gorm:"type:text;not null" json:"source_type"`
	SourceReferenceID string            `gorm:"type:varchar(100);not null" json:"source_reference_id"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	CreatedBy         string            `gorm:"type:text;not null" json:"created_by"`
}

// TableName sets the database table name.
func (LedgerEntry) TableName() string { return "ledger_entries" }

type newEntryInput struct {
	accountID       uuid.UUID
	tenantID        string
	ledgerAccount   LedgerAccountCode
	amount          money.Money
	sourceType      EntrySourceType
	sourceReference string
	transactionDate time.Time
	metadata        map[string]any
	createdBy       string
	createdAt       time.Time
}

func newEntry(in newEntryInput, debit bool) (LedgerEntry, error) {
	if !in.amount.IsPositive() {
		return LedgerEntry{}, ErrInvalidAmount
	}
	ref := strings.TrimSpace(in.sourceReference)
	if ref == "" || len(ref) > maxSourceReferenceLen {
		return LedgerEntry{}, ErrInvalidSourceReference
	}

	entry := LedgerEntry{
		ID:                uuid.New(),
		TenantID:          in.tenantID,
		AccountID:         in.accountID,
		LedgerAccount:     in.ledgerAccount,
		Currency:          in.amount.Currency(),
		TransactionDate:   in.transactionDate,
		SourceType:        in.sourceType,
		SourceReferenceID: ref,
		Metadata:          in.metadata,
		CreatedAt:         in.createdAt,
		CreatedBy:         in.createdBy,
	}
	amount := in.amount.Amount()
	if debit {
		entry.DebitAmount = &amount
	} else {
		entry.CreditAmount = &amount
	}
	return entry, nil
}

// NewDebit constructs a debit entry of a strictly positive amount.
func NewDebit(accountID uuid.UUID, tenantID string, ledgerAccount LedgerAccountCode, amount money.Money,
	sourceType EntrySourceType, sourceReference string, transactionDate time.Time,
	metadata map[string]any, createdBy string, createdAt time.Time) (LedgerEntry, error) {
	return newEntry(newEntryInput{
		accountID:       accountID,
		tenantID:        tenantID,
		ledgerAccount:   ledgerAccount,
		amount:          amount,
		sourceType:      sourceType,
		sourceReference: sourceReference,
		transactionDate: transactionDate,
		metadata:        metadata,
		createdBy:       createdBy,
		createdAt:       createdAt,
	}, true)
}

// NewCredit constructs a credit entry of a strictly positive amount.
func NewCredit(accountID uuid.UUID, tenantID string, ledgerAccount LedgerAccountCode, amount money.Money,
	sourceType EntrySourceType, sourceReference string, transactionDate time.Time,
	metadata map[string]any, createdBy string, createdAt time.Time) (LedgerEntry, error) {
	return newEntry(newEntryInput{
		accountID:       accountID,
		tenantID:        tenantID,
		ledgerAccount:   ledgerAccount,
		amount:          amount,
		sourceType:      sourceType,
		sourceReference: sourceReference,
		transactionDate: transactionDate,
		metadata:        metadata,
		createdBy:       createdBy,
		createdAt:       createdAt,
	}, false)
}

// IsDebit reports whether the debit side is populated.
func (e LedgerEntry) IsDebit() bool { return e.DebitAmount != nil }

// Amount returns the populated side's amount.
func (e LedgerEntry) Amount() decimal.Decimal {
	if e.DebitAmount != nil {
		return *e.DebitAmount
	}
	if e.CreditAmount != nil {
		return *e.CreditAmount
	}
	return decimal.Zero
}

// EffectiveAmount is +amount for debits and -amount for credits. It exists
// only for balance arithmetic and is never stored.
func (e LedgerEntry) EffectiveAmount() decimal.Decimal {
	if e.IsDebit() {
		return e.Amount()
	}
	return e.Amount().Neg()
}
