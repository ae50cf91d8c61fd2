package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rideledger/rideledger/internal/money"
	"github.com/rideledger/rideledger/pkg/db/pagination"
)

type CreateAccountRequest struct {
	ID       uuid.UUID
	Name     string
	Type     AccountType
	Currency string
}

type RecordChargeRequest struct {
	AccountID   uuid.UUID
	RideID      string
	Amount      decimal.Decimal
	Currency    string
	ServiceDate time.Time
	FleetID     string
}

type RecordChargeResult struct {
	DebitEntryID  uuid.UUID
	CreditEntryID uuid.UUID
}

type RecordPaymentRequest struct {
	AccountID          uuid.UUID
	PaymentReferenceID string
	Amount             decimal.Decimal
	Currency           string
	PaymentDate        time.Time
	PaymentMode        string
}

type RecordPaymentResult struct {
	DebitEntryID  uuid.UUID
	CreditEntryID uuid.UUID
}

type DeactivateAccountRequest struct {
	AccountID uuid.UUID
	Reason    string
}

type GetTransactionsRequest struct {
	AccountID uuid.UUID
	StartDate *time.Time
	EndDate   *time.Time
	Page      pagination.Pagination
}

type GetTransactionsResponse struct {
	pagination.PageInfo
	Entries []LedgerEntry `json:"entries"`
}

type GetStatementRequest struct {
	AccountID uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Page      pagination.Pagination
}

// StatementLine is one receivable posting with its running balance.
type StatementLine struct {
	Entry          LedgerEntry     `json:"entry"`
	Amount         decimal.Decimal `json:"amount"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

type GetStatementResponse struct {
	pagination.PageInfo
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
	Currency       string          `json:"currency"`
	Lines          []StatementLine `json:"lines"`
}

// Service is the command/query surface over the account aggregate.
type Service interface {
	Create(ctx context.Context, req CreateAccountRequest) (*Account, error)
	RecordCharge(ctx context.Context, req RecordChargeRequest) (RecordChargeResult, error)
	RecordPayment(ctx context.Context, req RecordPaymentRequest) (RecordPaymentResult, error)
	Deactivate(ctx context.Context, req DeactivateAccountRequest) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetBalance(ctx context.Context, id uuid.UUID) (money.Money, error)
	GetTransactions(ctx context.Context, req GetTransactionsRequest) (GetTransactionsResponse, error)
	GetStatement(ctx context.Context, req GetStatementRequest) (GetStatementResponse, error)
}
