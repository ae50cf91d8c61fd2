package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotFound               = errors.New("account_not_found")
	ErrAlreadyExists          = errors.New("account_already_exists")
	ErrInvalidID              = errors.New("account_invalid_id")
	ErrInvalidName            = errors.New("account_invalid_name")
	ErrInvalidType            = errors.New("account_invalid_type")
	ErrAccountInactive        = errors.New("account_inactive")
	ErrTenantMismatch         = errors.New("account_tenant_mismatch")
	ErrInvalidAmount          = errors.New("ledger_invalid_amount")
	ErrInvalidSourceReference = errors.New("ledger_invalid_source_reference")
	ErrUnbalancedEntry        = errors.New("ledger_unbalanced_entry")
	ErrDuplicateCharge        = errors.New("ledger_duplicate_charge")
	ErrDuplicatePayment       = errors.New("ledger_duplicate_payment")
	ErrInvalidDateRange       = errors.New("invalid_date_range")
)

// DuplicateChargeError signals a replayed ride charge. It carries the ids of
// the entries already recorded so callers can answer idempotently.
type DuplicateChargeError struct {
	RideID           string
	ExistingEntryIDs []uuid.UUID
}

func (e *DuplicateChargeError) Error() string {
	return fmt.Sprintf("%s: ride %s already recorded", ErrDuplicateCharge, e.RideID)
}

func (e *DuplicateChargeError) Is(target error) bool { return target == ErrDuplicateCharge }

// DuplicatePaymentError signals a replayed payment reference.
type DuplicatePaymentError struct {
	PaymentReferenceID string
	ExistingEntryIDs   []uuid.UUID
}

func (e *DuplicatePaymentError) Error() string {
	return fmt.Sprintf("%s: payment %s already recorded", ErrDuplicatePayment, e.PaymentReferenceID)
}

func (e *DuplicatePaymentError) Is(target error) bool { return target == ErrDuplicatePayment }
