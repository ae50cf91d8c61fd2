// Package repository persists the account aggregate with a mandatory
// tenant predicate on every operation.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rideledger/rideledger/internal/account/domain"
	"github.com/rideledger/rideledger/internal/tenantctx"
)

type repo struct{}

// Provide builds the account repository.
func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Account, error) {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return nil, err
	}

	var account domain.Account
	err = db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", scope.TenantID, id).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *repo) FindByIDWithEntries(ctx context.Context, db *gorm.DB, id uuid.UUID) (*domain.Account, error) {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return nil, err
	}

	var account domain.Account
	err = db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", scope.TenantID, id).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var entries []domain.LedgerEntry
	err = db.WithContext(ctx).
		Where("tenant_id = ? AND account_id = ?", scope.TenantID, id).
		Order("transaction_date asc, created_at asc, id asc").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	return domain.Rehydrate(account, entries), nil
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, id uuid.UUID) (bool, error) {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return false, err
	}

	var count int64
	err = db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("tenant_id = ? AND id = ?", scope.TenantID, id).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return err
	}
	if account.TenantID != scope.TenantID {
		return domain.ErrTenantMismatch
	}
	return db.WithContext(ctx).Omit("Entries").Create(account).Error
}

// Update persists the account row and inserts pending entries. Entries
// already persisted are immutable and are never touched; a pending entry
// whose id already exists fails loudly on the primary key.
func (r *repo) Update(ctx context.Context, db *gorm.DB, account *domain.Account) error {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return err
	}
	if account.TenantID != scope.TenantID {
		return domain.ErrTenantMismatch
	}

	err = db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("tenant_id = ? AND id = ?", scope.TenantID, account.ID).
		Updates(map[string]any{
			"name":       account.Name,
			"status":     account.Status,
			"updated_at": account.UpdatedAt,
		}).Error
	if err != nil {
		return err
	}

	pending := account.PendingEntries()
	if len(pending) == 0 {
		return nil
	}
	for i := range pending {
		if pending[i].TenantID != scope.TenantID {
			return domain.ErrTenantMismatch
		}
	}
	if err := db.WithContext(ctx).Create(&pending).Error; err != nil {
		return err
	}
	account.ClearPending()
	return nil
}
