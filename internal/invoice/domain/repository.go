package domain

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists invoices. Every operation filters on the tenant
// scope carried by the context.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Invoice, error)
	FindByIDWithLineItems(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, db *gorm.DB, invoiceNumber string) (*Invoice, error)
	Search(ctx context.Context, db *gorm.DB, req SearchInvoicesRequest) ([]Invoice, int64, error)
	// LatestNumber returns the invoice number of the most recently created
	// invoice for the tenant, or "" when none exist.
	LatestNumber(ctx context.Context, db *gorm.DB) (string, error)
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	UpdateStatus(ctx context.Context, db *gorm.DB, invoice *Invoice) error
}
