package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rideledger/rideledger/pkg/db/pagination"
)

var (
	ErrNotFound         = errors.New("invoice_not_found")
	ErrNoBillableItems  = errors.New("invoice_no_billable_items")
	ErrInvalidDateRange = errors.New("invoice_invalid_date_range")
	ErrAlreadyExists    = errors.New("invoice_already_exists")
	ErrImmutable        = errors.New("invoice_immutable")
	ErrInvalidFrequency = errors.New("invoice_invalid_frequency")
	ErrTenantMismatch   = errors.New("invoice_tenant_mismatch")
)

const (
	EventInvoiceGenerated = "invoice.generated"
	EventInvoiceVoided    = "invoice.voided"
)

// InvoiceVoidedEvent announces a voided invoice.
type InvoiceVoidedEvent struct {
	InvoiceID     uuid.UUID
	InvoiceNumber string
	AccountID     uuid.UUID
}

// Payload returns the deterministic outbox serialisation of the event.
func (e InvoiceVoidedEvent) Payload() map[string]any {
	return map[string]any{
		"invoice_id":     e.InvoiceID.String(),
		"invoice_number": e.InvoiceNumber,
		"account_id":     e.AccountID.String(),
	}
}

type GenerateInvoiceRequest struct {
	AccountID   uuid.UUID
	PeriodStart time.Time
	PeriodEnd   time.Time
	Frequency   BillingFrequency
}

type SearchInvoicesRequest struct {
	AccountID *uuid.UUID
	Status    *InvoiceStatus
	StartDate *time.Time
	EndDate   *time.Time
	Page      pagination.Pagination
}

type SearchInvoicesResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// Service is the invoice command/query surface.
type Service interface {
	Generate(ctx context.Context, req GenerateInvoiceRequest) (*Invoice, error)
	Void(ctx context.Context, invoiceID uuid.UUID) error
	GetByID(ctx context.Context, invoiceID uuid.UUID) (*Invoice, error)
	GetByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)
	Search(ctx context.Context, req SearchInvoicesRequest) (SearchInvoicesResponse, error)
}
