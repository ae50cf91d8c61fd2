// Package repository persists invoices under the tenant predicate.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rideledger/rideledger/internal/invoice/domain"
	"github.com/rideledger/rideledger/internal/tenantctx"
)

type repo struct{}

// Provide builds the invoice repository.
func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Invoice, error) {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, db, "tenant_id = ? AND id = ?", scope.TenantID, id)
}

func (r *repo) FindByIDWithLineItems(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Invoice, error) {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return nil, err
	}

	invoice, err := r.findOne(ctx, db, "tenant_id = ? AND id = ?", scope.TenantID, id)
	if err != nil || invoice == nil {
		return invoice, err
	}

	var items []domain.InvoiceLineItem
	err = db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ?", scope.TenantID, id).
		Order("service_date asc, id asc").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	invoice.LineItems = items
	return invoice, nil
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, invoiceNumber string) (*domain.Invoice, error) {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, db, "tenant_id = ? AND invoice_number = ?", scope.TenantID, invoiceNumber)
}

func (r *repo) Search(ctx context.Context, db *gorm.DB, req domain.SearchInvoicesRequest) ([]domain.Invoice, int64, error) {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return nil, 0, err
	}

	stmt := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("tenant_id = ?", scope.TenantID)
	if req.AccountID != nil {
		stmt = stmt.Where("account_id = ?", *req.AccountID)
	}
	if req.Status != nil {
		stmt = stmt.Where("status = ?", *req.Status)
	}
	if req.StartDate != nil {
		stmt = stmt.Where("billing_period_start >= ?", *req.StartDate)
	}
	if req.EndDate != nil {
		stmt = stmt.Where("billing_period_end <= ?", *req.EndDate)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := req.Page.Normalize()
	var invoices []domain.Invoice
	err = stmt.
		Order("created_at desc, id desc").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, err
	}
	return invoices, total, nil
}

func (r *repo) LatestNumber(ctx context.Context, db *gorm.DB) (string, error) {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return "", err
	}

	var invoice domain.Invoice
	err = db.WithContext(ctx).
		Where("tenant_id = ?", scope.TenantID).
		Order("created_at desc, invoice_number desc").
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return invoice.InvoiceNumber, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return err
	}
	if invoice.TenantID != scope.TenantID {
		return domain.ErrTenantMismatch
	}
	return db.WithContext(ctx).Create(invoice).Error
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return err
	}

	return db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("tenant_id = ? AND id = ?", scope.TenantID, invoice.ID).
		Updates(map[string]any{
			"status":     invoice.Status,
			"updated_at": invoice.UpdatedAt,
		}).Error
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Where(query, args...).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}
