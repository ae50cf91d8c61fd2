package domain

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository persists the account aggregate. Every operation reads the
// tenant scope from the context and filters under that predicate.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Account, error)
	FindByIDWithEntries(ctx context.Context, db *gorm.DB, id uuid.UUID) (*Account, error)
	Exists(ctx context.Context, db *gorm.DB, id uuid.UUID) (bool, error)
	Insert(ctx context.Context, db *gorm.DB, account *Account) error
	// Update persists the account row and inserts pending entries only.
	// Persisted entries are immutable and are never rewritten.
	Update(ctx context.Context, db *gorm.DB, account *Account) error
}
