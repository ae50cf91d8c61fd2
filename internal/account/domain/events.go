package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventChargeRecorded     = "account.charge_recorded"
	EventPaymentReceived    = "account.payment_received"
	EventAccountCreated     = "account.created"
	EventAccountDeactivated = "account.deactivated"
)

// ChargeRecordedEvent announces a recorded ride charge.
type ChargeRecordedEvent struct {
	AccountID     uuid.UUID
	RideID        string
	FleetID       string
	Amount        string
	Currency      string
	ServiceDate   time.Time
	DebitEntryID  uuid.UUID
	CreditEntryID uuid.UUID
}

// Payload returns the deterministic outbox serialisation of the event.
func (e ChargeRecordedEvent) Payload() map[string]any {
	return map[string]any{
		"account_id":      e.AccountID.String(),
		"ride_id":         e.RideID,
		"fleet_id":        e.FleetID,
		"amount":          e.Amount,
		"currency":        e.Currency,
		"service_date":    e.ServiceDate.Format(time.RFC3339),
		"debit_entry_id":  e.DebitEntryID.String(),
		"credit_entry_id": e.CreditEntryID.String(),
	}
}

// PaymentReceivedEvent announces a received customer payment.
type PaymentReceivedEvent struct {
	AccountID          uuid.UUID
	PaymentReferenceID string
	PaymentMode        string
	Amount             string
	Currency           string
	PaymentDate        time.Time
	DebitEntryID       uuid.UUID
	CreditEntryID      uuid.UUID
}

// Payload returns the deterministic outbox serialisation of the event.
func (e PaymentReceivedEvent) Payload() map[string]any {
	return map[string]any{
		"account_id":           e.AccountID.String(),
		"payment_reference_id": e.PaymentReferenceID,
		"payment_mode":         e.PaymentMode,
		"amount":               e.Amount,
		"currency":             e.Currency,
		"payment_date":         e.PaymentDate.Format(time.RFC3339),
		"debit_entry_id":       e.DebitEntryID.String(),
		"credit_entry_id":      e.CreditEntryID.String(),
	}
}

// AccountDeactivatedEvent announces an account leaving service.
type AccountDeactivatedEvent struct {
	AccountID uuid.UUID
	Reason    string
}

// Payload returns the deterministic outbox serialisation of the event.
func (e AccountDeactivatedEvent) Payload() map[string]any {
	return map[string]any{
		"account_id": e.AccountID.String(),
		"reason":     e.Reason,
	}
}
