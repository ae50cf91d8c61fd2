// Package domain holds the immutable invoice aggregate.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InvoiceStatus is monotone: Generated may only become Voided.
type InvoiceStatus string

const (
	InvoiceStatusGenerated InvoiceStatus = "generated"
	InvoiceStatusVoided    InvoiceStatus = "voided"
)

// BillingFrequency selects how ride charges aggregate into line items.
type BillingFrequency string

const (
	FrequencyPerRide BillingFrequency = "per_ride"
	FrequencyDaily   BillingFrequency = "daily"
	FrequencyWeekly  BillingFrequency = "weekly"
	FrequencyMonthly BillingFrequency = "monthly"
)

// ValidFrequency reports whether f is a known billing frequency.
func ValidFrequency(f BillingFrequency) bool {
	switch f {
	case FrequencyPerRide, FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}

// Invoice aggregates ride charges over a half-open billing period. Once
// generated, only the status transition to voided is permitted.
type Invoice struct {
	ID                   uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID             string           `gorm:"type:text;not null;index;uniqueIndex:ux_invoices_tenant_number,priority:1" json:"-"`
	AccountID            uuid.UUID        `gorm:"type:uuid;not null;index" json:"account_id"`
	InvoiceNumber        string           `gorm:"type:text;not null;uniqueIndex:ux_invoices_tenant_number,priority:2" json:"invoice_number"`
	BillingFrequency     BillingFrequency `gorm:"type:text;not null" json:"billing_frequency"`
	BillingPeriodStart   time.Time        `gorm:"not null" json:"billing_period_start"`
	BillingPeriodEnd     time.Time        `gorm:"not null" json:"billing_period_end"`
	GeneratedAt          time.Time        `gorm:"not null" json:"generated_at"`
	Status               InvoiceStatus    `gorm:"type:text;not null" json:"status"`
	Subtotal             decimal.Decimal  `gorm:"type:numeric(19,4);not null" json:"subtotal"`
	TotalPaymentsApplied decimal.Decimal  `gorm:"type:numeric(19,4);not null" json:"total_payments_applied"`
	OutstandingBalance   decimal.Decimal  `gorm:"type:numeric(19,4);not null" json:"outstanding_balance"`
	Currency             string           `gorm:"type:text;not null" json:"currency"`
	CreatedAt            time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	LineItems []InvoiceLineItem `gorm:"foreignKey:InvoiceID;references:ID" json:"line_items,omitempty"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// Void transitions Generated to Voided. Voided invoices reject any further
// transition.
func (i *Invoice) Void(now time.Time) (InvoiceVoidedEvent, error) {
	if i.Status != InvoiceStatusGenerated {
		return InvoiceVoidedEvent{}, ErrImmutable
	}
	i.Status = InvoiceStatusVoided
	i.UpdatedAt = now
	return InvoiceVoidedEvent{
		InvoiceID:     i.ID,
		InvoiceNumber: i.InvoiceNumber,
		AccountID:     i.AccountID,
	}, nil
}

// InvoiceLineItem is one line of a generated invoice. LedgerEntryIDs trace
// the line back to the exact debit entries that produced it.
type InvoiceLineItem struct {
	ID             uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	TenantID       string                      `gorm:"type:text;not null;index" json:"-"`
	InvoiceID      uuid.UUID                   `gorm:"type:uuid;not null;index" json:"invoice_id"`
	RideID         string                      `gorm:"type:text;not null" json:"ride_id"`
	ServiceDate    time.Time                   `gorm:"not null" json:"service_date"`
	Amount         decimal.Decimal             `gorm:"type:numeric(19,4);not null" json:"amount"`
	Description    string                      `gorm:"type:text;not null" json:"description"`
	LedgerEntryIDs datatypes.JSONSlice[string] `gorm:"not null" json:"ledger_entry_ids"`
	CreatedAt      time.Time                   `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (InvoiceLineItem) TableName() string { return "invoice_line_items" }
