// Package service implements the account command and query handlers.
package service

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/rideledger/rideledger/internal/account/domain"
	"github.com/rideledger/rideledger/internal/config"
	"github.com/rideledger/rideledger/internal/money"
	obsmetrics "github.com/rideledger/rideledger/internal/observability/metrics"
	"github.com/rideledger/rideledger/internal/outbox"
	"github.com/rideledger/rideledger/internal/tenantctx"
	"github.com/rideledger/rideledger/pkg/db"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Repo    domain.Repository
	Outbox  *outbox.Outbox
	Billing *config.BillingConfigHolder
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	outbox  *outbox.Outbox
	billing *config.BillingConfigHolder
	metrics *obsmetrics.Metrics
}

// NewService builds the account service.
func NewService(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("account.service"),
		repo:    p.Repo,
		outbox:  p.Outbox,
		billing: p.Billing,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return nil, err
	}

	policy := s.billing.Current()
	currency := req.Currency
	if currency == "" {
		currency = policy.DefaultCurrency
	}

	account, err := domain.NewAccount(req.ID, scope.TenantID, req.Name, req.Type, currency, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	err = s.runInTx(ctx, policy, func(ctx context.Context, tx *gorm.DB) error {
		exists, err := s.repo.Exists(ctx, tx, account.ID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrAlreadyExists
		}
		if err := s.repo.Insert(ctx, tx, account); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrAlreadyExists
			}
			return err
		}
		return s.outbox.PublishTx(ctx, tx, outbox.Event{
			TenantID: scope.TenantID,
			Type:     domain.EventAccountCreated,
			Payload: map[string]any{
				"account_id": account.ID.String(),
				"name":       account.Name,
				"type":       string(account.Type),
				"currency":   account.Currency,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("account created",
		zap.String("account_id", account.ID.String()),
		zap.String("tenant_id", scope.TenantID),
	)
	return account, nil
}

func (s *Service) RecordCharge(ctx context.Context, req domain.RecordChargeRequest) (domain.RecordChargeResult, error) {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return domain.RecordChargeResult{}, err
	}

	var result domain.RecordChargeResult
	err = s.runInTx(ctx, s.billing.Current(), func(ctx context.Context, tx *gorm.DB) error {
		account, err := s.repo.FindByIDWithEntries(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrNotFound
		}

		currency := req.Currency
		if currency == "" {
			currency = account.Currency
		}
		amount, err := money.New(req.Amount, currency)
		if err != nil {
			return err
		}

		event, err := account.RecordCharge(req.RideID, amount, req.ServiceDate, req.FleetID, scope.UserID, time.Now().UTC())
		if err != nil {
			return err
		}

		if err := s.repo.Update(ctx, tx, account); err != nil {
			// Concurrent replays slip past the aggregate guard and land on
			// the partial-unique (account, ride) index.
			if db.IsDuplicateKeyErr(err) {
				return &domain.DuplicateChargeError{RideID: req.RideID}
			}
			return err
		}

		result = domain.RecordChargeResult{DebitEntryID: event.DebitEntryID, CreditEntryID: event.CreditEntryID}
		return s.outbox.PublishTx(ctx, tx, outbox.Event{
			TenantID: scope.TenantID,
			Type:     domain.EventChargeRecorded,
			Payload:  event.Payload(),
		})
	})
	if err != nil {
		return domain.RecordChargeResult{}, err
	}

	s.metrics.RecordCharge(ctx, scope.TenantID)
	return result, nil
}

func (s *Service) RecordPayment(ctx context.Context, req domain.RecordPaymentRequest) (domain.RecordPaymentResult, error) {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return domain.RecordPaymentResult{}, err
	}

	var result domain.RecordPaymentResult
	err = s.runInTx(ctx, s.billing.Current(), func(ctx context.Context, tx *gorm.DB) error {
		account, err := s.repo.FindByIDWithEntries(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrNotFound
		}

		currency := req.Currency
		if currency == "" {
			currency = account.Currency
		}
		amount, err := money.New(req.Amount, currency)
		if err != nil {
			return err
		}

		event, err := account.RecordPayment(req.PaymentReferenceID, amount, req.PaymentDate, req.PaymentMode, scope.UserID, time.Now().UTC())
		if err != nil {
			return err
		}

		if err := s.repo.Update(ctx, tx, account); err != nil {
			// Backstop: global partial-unique index on payment references.
			if db.IsDuplicateKeyErr(err) {
				return &domain.DuplicatePaymentError{PaymentReferenceID: req.PaymentReferenceID}
			}
			return err
		}

		result = domain.RecordPaymentResult{DebitEntryID: event.DebitEntryID, CreditEntryID: event.CreditEntryID}
		return s.outbox.PublishTx(ctx, tx, outbox.Event{
			TenantID: scope.TenantID,
			Type:     domain.EventPaymentReceived,
			Payload:  event.Payload(),
		})
	})
	if err != nil {
		return domain.RecordPaymentResult{}, err
	}

	s.metrics.RecordPayment(ctx, scope.TenantID)
	return result, nil
}

func (s *Service) Deactivate(ctx context.Context, req domain.DeactivateAccountRequest) error {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return err
	}

	return s.runInTx(ctx, s.billing.Current(), func(ctx context.Context, tx *gorm.DB) error {
		account, err := s.repo.FindByID(ctx, tx, req.AccountID)
		if err != nil {
			return err
		}
		if account == nil {
			return domain.ErrNotFound
		}

		event, transitioned := account.Deactivate(req.Reason, time.Now().UTC())
		if !transitioned {
			return nil
		}
		if err := s.repo.Update(ctx, tx, account); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, outbox.Event{
			TenantID: scope.TenantID,
			Type:     domain.EventAccountDeactivated,
			Payload:  event.Payload(),
		})
	})
}

// runInTx applies the command timeout, transient retry policy, and a fresh
// transaction per attempt.
func (s *Service) runInTx(ctx context.Context, policy config.BillingConfig, fn func(ctx context.Context, tx *gorm.DB) error) error {
	ctx, cancel := context.WithTimeout(ctx, policy.CommandTimeout)
	defer cancel()

	retry := db.RetryPolicy{Attempts: policy.RetryAttempts, Backoff: policy.RetryBackoff}
	return db.WithRetry(ctx, s.log, retry, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(ctx, tx)
		})
	})
}
