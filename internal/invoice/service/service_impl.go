// Package service implements invoice generation, voiding, and queries.
package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	accountdomain "github.com/rideledger/rideledger/internal/account/domain"
	"github.com/rideledger/rideledger/internal/config"
	"github.com/rideledger/rideledger/internal/invoice/domain"
	obsmetrics "github.com/rideledger/rideledger/internal/observability/metrics"
	"github.com/rideledger/rideledger/internal/outbox"
	"github.com/rideledger/rideledger/internal/tenantctx"
	"github.com/rideledger/rideledger/pkg/db"
)

// numberingAttempts bounds retries when a concurrent generation wins the
// same invoice number.
const numberingAttempts = 3

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        domain.Repository
	AccountRepo accountdomain.Repository
	Outbox      *outbox.Outbox
	Billing     *config.BillingConfigHolder
	Metrics     *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	accountRepo accountdomain.Repository
	outbox      *outbox.Outbox
	billing     *config.BillingConfigHolder
	metrics     *obsmetrics.Metrics
}

// NewService builds the invoice service.
func NewService(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("invoice.service"),
		repo:        p.Repo,
		accountRepo: p.AccountRepo,
		outbox:      p.Outbox,
		billing:     p.Billing,
		metrics:     p.Metrics,
	}
}

// Generate aggregates the period's ride charges into an immutable invoice.
// Numbering is read-max-then-increment; a collision under concurrency rolls
// the transaction back and retries with the next sequence value.
func (s *Service) Generate(ctx context.Context, req domain.GenerateInvoiceRequest) (*domain.Invoice, error) {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return nil, err
	}
	if !req.PeriodStart.Before(req.PeriodEnd) {
		return nil, domain.ErrInvalidDateRange
	}
	if !domain.ValidFrequency(req.Frequency) {
		return nil, domain.ErrInvalidFrequency
	}

	policy := s.billing.Current()

	var generated *domain.Invoice
	for attempt := 1; attempt <= numberingAttempts; attempt++ {
		generated, err = s.generateOnce(ctx, scope, policy, req)
		if err == nil {
			break
		}
		if db.IsDuplicateKeyErr(err) {
			s.log.Warn("invoice number collision, retrying",
				zap.Int("attempt", attempt),
				zap.String("tenant_id", scope.TenantID),
			)
			continue
		}
		return nil, err
	}
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}

	s.metrics.RecordInvoiceGenerated(ctx, scope.TenantID)
	s.log.Info("invoice generated",
		zap.String("invoice_id", generated.ID.String()),
		zap.String("invoice_number", generated.InvoiceNumber),
		zap.String("account_id", generated.AccountID.String()),
	)
	return generated, nil
}

func (s *Service) generateOnce(ctx context.Context, scope tenantctx.Scope, policy config.BillingConfig, req domain.GenerateInvoiceRequest) (*domain.Invoice, error) {
	ctx, cancel := context.WithTimeout(ctx, policy.CommandTimeout)
	defer cancel()

	var invoice *domain.Invoice
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		account, err := s.accountRepo.FindByIDWithEntries(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return accountdomain.ErrNotFound
		}

		chargeable := selectChargeable(account.Entries, req.PeriodStart, req.PeriodEnd)
		if len(chargeable) == 0 {
			return domain.ErrNoBillableItems
		}

		number, err := s.nextInvoiceNumber(ctx, tx, policy.InvoiceNumberPrefix)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		invoiceID := uuid.New()

		groups := groupCharges(chargeable, req.Frequency)
		subtotal := decimal.Zero
		lines := make([]domain.InvoiceLineItem, 0, len(groups))
		for _, group := range groups {
			rideID, description := lineFor(group, req.Frequency)
			entryIDs := make([]string, 0, len(group.entries))
			for _, entry := range group.entries {
				entryIDs = append(entryIDs, entry.ID.String())
			}
			lines = append(lines, domain.InvoiceLineItem{
				ID:             uuid.New(),
				TenantID:       scope.TenantID,
				InvoiceID:      invoiceID,
				RideID:         rideID,
				ServiceDate:    group.earliest,
				Amount:         group.total,
				Description:    description,
				LedgerEntryIDs: entryIDs,
				CreatedAt:      now,
			})
			subtotal = subtotal.Add(group.total)
		}

		applied := paymentsApplied(account.Entries, req.PeriodStart, req.PeriodEnd)
		if applied.GreaterThan(subtotal) {
			applied = subtotal
		}
		outstanding := subtotal.Sub(applied)
		if outstanding.IsNegative() {
			outstanding = decimal.Zero
		}

		invoice = &domain.Invoice{
			ID:                   invoiceID,
			TenantID:             scope.TenantID,
			AccountID:            account.ID,
			InvoiceNumber:        number,
			BillingFrequency:     req.Frequency,
			BillingPeriodStart:   req.PeriodStart,
			BillingPeriodEnd:     req.PeriodEnd,
			GeneratedAt:          now,
			Status:               domain.InvoiceStatusGenerated,
			Subtotal:             subtotal,
			TotalPaymentsApplied: applied,
			OutstandingBalance:   outstanding,
			Currency:             account.Currency,
			CreatedAt:            now,
			UpdatedAt:            now,
			LineItems:            lines,
		}
		if err := s.repo.Insert(ctx, tx, invoice); err != nil {
			return err
		}

		return s.outbox.PublishTx(ctx, tx, outbox.Event{
			TenantID: scope.TenantID,
			Type:     domain.EventInvoiceGenerated,
			Payload: map[string]any{
				"invoice_id":          invoice.ID.String(),
				"invoice_number":      invoice.InvoiceNumber,
				"account_id":          invoice.AccountID.String(),
				"billing_frequency":   string(invoice.BillingFrequency),
				"period_start":        invoice.BillingPeriodStart.Format(time.RFC3339),
				"period_end":          invoice.BillingPeriodEnd.Format(time.RFC3339),
				"subtotal":            invoice.Subtotal.StringFixed(4),
				"payments_applied":    invoice.TotalPaymentsApplied.StringFixed(4),
				"outstanding_balance": invoice.OutstandingBalance.StringFixed(4),
				"currency":            invoice.Currency,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// nextInvoiceNumber reads the tenant's most recent number and increments its
// suffix. Gaps from aborted transactions are accepted and never back-filled.
func (s *Service) nextInvoiceNumber(ctx context.Context, tx *gorm.DB, prefix string) (string, error) {
	latest, err := s.repo.LatestNumber(ctx, tx)
	if err != nil {
		return "", err
	}

	next := 1
	if latest != "" {
		suffix := strings.TrimPrefix(latest, prefix)
		if parsed, err := strconv.Atoi(suffix); err == nil {
			next = parsed + 1
		}
	}
	return fmt.Sprintf("%s%06d", prefix, next), nil
}

func (s *Service) Void(ctx context.Context, invoiceID uuid.UUID) error {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return err
	}

	policy := s.billing.Current()
	ctx, cancel := context.WithTimeout(ctx, policy.CommandTimeout)
	defer cancel()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		invoice, err := s.repo.FindByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if invoice == nil {
			return domain.ErrNotFound
		}

		event, err := invoice.Void(time.Now().UTC())
		if err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(ctx, tx, invoice); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, outbox.Event{
			TenantID: scope.TenantID,
			Type:     domain.EventInvoiceVoided,
			Payload:  event.Payload(),
		})
	})
	if err != nil {
		return err
	}

	s.metrics.RecordInvoiceVoided(ctx, scope.TenantID)
	return nil
}

func (s *Service) GetByID(ctx context.Context, invoiceID uuid.UUID) (*domain.Invoice, error) {
	invoice, err := s.repo.FindByIDWithLineItems(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	return invoice, nil
}

func (s *Service) GetByNumber(ctx context.Context, invoiceNumber string) (*domain.Invoice, error) {
	invoice, err := s.repo.FindByNumber(ctx, s.db, strings.TrimSpace(invoiceNumber))
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	return invoice, nil
}

func (s *Service) Search(ctx context.Context, req domain.SearchInvoicesRequest) (domain.SearchInvoicesResponse, error) {
	invoices, total, err := s.repo.Search(ctx, s.db, req)
	if err != nil {
		return domain.SearchInvoicesResponse{}, err
	}

	page := req.Page.Normalize()
	return domain.SearchInvoicesResponse{
		PageInfo: paginationInfo(page.Page, page.PageSize, total),
		Invoices: invoices,
	}, nil
}
