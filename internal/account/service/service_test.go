package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/rideledger/rideledger/internal/account/domain"
	"github.com/rideledger/rideledger/internal/account/repository"
	"github.com/rideledger/rideledger/internal/account/service"
	"github.com/rideledger/rideledger/internal/config"
	"github.com/rideledger/rideledger/internal/money"
	"github.com/rideledger/rideledger/internal/outbox"
	"github.com/rideledger/rideledger/internal/tenantctx"
	"github.com/rideledger/rideledger/pkg/db/pagination"
)

// idempotency indexes the sqlite AutoMigrate path does not derive from tags
var testIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_entries_ride_charge
	 ON ledger_entries (account_id, source_reference_id, ledger_account)
	 WHERE source_type = 'ride'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_ledger_entries_payment_ref
	 ON ledger_entries (source_reference_id, ledger_account)
	 WHERE source_type = 'payment'`,
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, conn.AutoMigrate(&domain.Account{}, &domain.LedgerEntry{}, &outbox.Message{}))
	for _, stmt := range testIndexes {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	conn := openTestDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	holder, err := config.NewBillingConfigHolder(zap.NewNop())
	require.NoError(t, err)

	svc := service.NewService(service.Params{
		DB:      conn,
		Log:     zap.NewNop(),
		Repo:    repository.Provide(),
		Outbox:  outbox.New(zap.NewNop(), node),
		Billing: holder,
	})
	return svc, conn
}

func tenantCtx(tenant string) context.Context {
	return tenantctx.WithScope(context.Background(), tenantctx.Scope{TenantID: tenant, UserID: "user-1"})
}

func createAccount(t *testing.T, svc domain.Service, ctx context.Context) *domain.Account {
	t.Helper()
	account, err := svc.Create(ctx, domain.CreateAccountRequest{
		ID:   uuid.New(),
		Name: "Acme Fleet",
		Type: domain.AccountTypeOrganization,
	})
	require.NoError(t, err)
	return account
}

func charge(t *testing.T, svc domain.Service, ctx context.Context, accountID uuid.UUID, rideID, amount string, serviceDate time.Time) domain.RecordChargeResult {
	t.Helper()
	result, err := svc.RecordCharge(ctx, domain.RecordChargeRequest{
		AccountID:   accountID,
		RideID:      rideID,
		Amount:      decimal.RequireFromString(amount),
		Currency:    "USD",
		ServiceDate: serviceDate,
		FleetID:     "fleet-7",
	})
	require.NoError(t, err)
	return result
}

func TestCreateChargeAndBalance(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := tenantCtx("tenant-a")

	account := createAccount(t, svc, ctx)
	assert.Equal(t, "USD", account.Currency)

	serviceDate := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	result := charge(t, svc, ctx, account.ID, "ride-001", "25.00", serviceDate)
	assert.NotEqual(t, uuid.Nil, result.DebitEntryID)
	assert.NotEqual(t, uuid.Nil, result.CreditEntryID)

	balance, err := svc.GetBalance(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "25.0000 USD", balance.String())

	var entryCount int64
	require.NoError(t, conn.Model(&domain.LedgerEntry{}).Count(&entryCount).Error)
	assert.EqualValues(t, 2, entryCount)

	var messages []outbox.Message
	require.NoError(t, conn.Order("message_id asc").Find(&messages).Error)
	require.Len(t, messages, 2)
	assert.Equal(t, domain.EventAccountCreated, messages[0].EventType)
	assert.Equal(t, domain.EventChargeRecorded, messages[1].EventType)
	assert.Equal(t, "tenant-a", messages[1].TenantID)
	assert.Equal(t, "ride-001", messages[1].Payload["ride_id"])
}

func TestCreateDuplicateAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantCtx("tenant-a")

	account := createAccount(t, svc, ctx)
	_, err := svc.Create(ctx, domain.CreateAccountRequest{
		ID:   account.ID,
		Name: "Acme Fleet Again",
		Type: domain.AccountTypeOrganization,
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestDuplicateChargeRejected(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := tenantCtx("tenant-a")
	account := createAccount(t, svc, ctx)

	serviceDate := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	charge(t, svc, ctx, account.ID, "ride-001", "25.00", serviceDate)

	_, err := svc.RecordCharge(ctx, domain.RecordChargeRequest{
		AccountID:   account.ID,
		RideID:      "ride-001",
		Amount:      decimal.RequireFromString("30.00"),
		Currency:    "USD",
		ServiceDate: serviceDate,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateCharge)

	var dup *domain.DuplicateChargeError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "ride-001", dup.RideID)
	assert.Len(t, dup.ExistingEntryIDs, 2)

	var entryCount int64
	require.NoError(t, conn.Model(&domain.LedgerEntry{}).Count(&entryCount).Error)
	assert.EqualValues(t, 2, entryCount)

	balance, err := svc.GetBalance(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "25.0000 USD", balance.String())
}

func TestPaymentClearsBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantCtx("tenant-a")
	account := createAccount(t, svc, ctx)

	charge(t, svc, ctx, account.ID, "ride-001", "25.00", time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))

	_, err := svc.RecordPayment(ctx, domain.RecordPaymentRequest{
		AccountID:          account.ID,
		PaymentReferenceID: "pay-001",
		Amount:             decimal.RequireFromString("25.00"),
		Currency:           "USD",
		PaymentDate:        time.Date(2026, 1, 16, 9, 0, 0, 0, time.UTC),
		PaymentMode:        "bank_transfer",
	})
	require.NoError(t, err)

	balance, err := svc.GetBalance(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.0000 USD", balance.String())

	_, err = svc.RecordPayment(ctx, domain.RecordPaymentRequest{
		AccountID:          account.ID,
		PaymentReferenceID: "pay-001",
		Amount:             decimal.RequireFromString("25.00"),
		Currency:           "USD",
		PaymentDate:        time.Date(2026, 1, 17, 9, 0, 0, 0, time.UTC),
	})
	assert.ErrorIs(t, err, domain.ErrDuplicatePayment)
}

func TestDeactivateStopsNewCharges(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := tenantCtx("tenant-a")
	account := createAccount(t, svc, ctx)

	require.NoError(t, svc.Deactivate(ctx, domain.DeactivateAccountRequest{
		AccountID: account.ID,
		Reason:    "contract ended",
	}))

	_, err := svc.RecordCharge(ctx, domain.RecordChargeRequest{
		AccountID:   account.ID,
		RideID:      "ride-001",
		Amount:      decimal.RequireFromString("25.00"),
		Currency:    "USD",
		ServiceDate: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrAccountInactive)

	// Repeated deactivation is a no-op, not an error, and emits no second event.
	require.NoError(t, svc.Deactivate(ctx, domain.DeactivateAccountRequest{AccountID: account.ID}))

	var deactivations int64
	require.NoError(t, conn.Model(&outbox.Message{}).
		Where("event_type = ?", domain.EventAccountDeactivated).
		Count(&deactivations).Error)
	assert.EqualValues(t, 1, deactivations)
}

func TestTenantIsolation(t *testing.T) {
	svc, _ := newTestService(t)
	ctxA := tenantCtx("tenant-a")
	ctxB := tenantCtx("tenant-b")

	account := createAccount(t, svc, ctxA)
	charge(t, svc, ctxA, account.ID, "ride-001", "25.00", time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC))

	_, err := svc.GetByID(ctxB, account.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetBalance(ctxB, account.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.RecordCharge(ctxB, domain.RecordChargeRequest{
		AccountID:   account.ID,
		RideID:      "ride-002",
		Amount:      decimal.RequireFromString("10.00"),
		Currency:    "USD",
		ServiceDate: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetTransactions(ctxB, domain.GetTransactionsRequest{AccountID: account.ID})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMissingTenantScope(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateAccountRequest{
		ID:   uuid.New(),
		Name: "Acme",
		Type: domain.AccountTypeOrganization,
	})
	assert.ErrorIs(t, err, tenantctx.ErrTenantContextMissing)
}

func TestGetTransactionsFiltersAndPages(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantCtx("tenant-a")
	account := createAccount(t, svc, ctx)

	jan10 := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	jan15 := time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	jan20 := time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC)
	charge(t, svc, ctx, account.ID, "ride-001", "10.00", jan10)
	charge(t, svc, ctx, account.ID, "ride-002", "20.00", jan15)
	charge(t, svc, ctx, account.ID, "ride-003", "30.00", jan20)

	resp, err := svc.GetTransactions(ctx, domain.GetTransactionsRequest{
		AccountID: account.ID,
		Page:      pagination.Pagination{Page: 1, PageSize: 4},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 6, resp.TotalCount)
	assert.Len(t, resp.Entries, 4)
	assert.Equal(t, "ride-001", resp.Entries[0].SourceReferenceID)

	// Half-open window excludes the end date.
	start, end := jan15, jan20
	resp, err = svc.GetTransactions(ctx, domain.GetTransactionsRequest{
		AccountID: account.ID,
		StartDate: &start,
		EndDate:   &end,
		Page:      pagination.Pagination{Page: 1, PageSize: 10},
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, resp.TotalCount)
	for _, entry := range resp.Entries {
		assert.Equal(t, "ride-002", entry.SourceReferenceID)
	}
}

func TestStatementRunningBalance(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantCtx("tenant-a")
	account := createAccount(t, svc, ctx)

	charge(t, svc, ctx, account.ID, "ride-000", "40.00", time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	charge(t, svc, ctx, account.ID, "ride-001", "25.00", time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC))
	_, err := svc.RecordPayment(ctx, domain.RecordPaymentRequest{
		AccountID:          account.ID,
		PaymentReferenceID: "pay-001",
		Amount:             decimal.RequireFromString("10.00"),
		Currency:           "USD",
		PaymentDate:        time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	charge(t, svc, ctx, account.ID, "ride-002", "5.00", time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC))

	resp, err := svc.GetStatement(ctx, domain.GetStatementRequest{
		AccountID: account.ID,
		StartDate: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Page:      pagination.Pagination{Page: 1, PageSize: 10},
	})
	require.NoError(t, err)

	assert.Equal(t, "USD", resp.Currency)
	assert.True(t, resp.OpeningBalance.Equal(decimal.RequireFromString("40")), "opening %s", resp.OpeningBalance)
	assert.True(t, resp.ClosingBalance.Equal(decimal.RequireFromString("55")), "closing %s", resp.ClosingBalance)

	require.Len(t, resp.Lines, 2)
	assert.True(t, resp.Lines[0].Amount.Equal(decimal.RequireFromString("25")))
	assert.True(t, resp.Lines[0].RunningBalance.Equal(decimal.RequireFromString("65")))
	assert.True(t, resp.Lines[1].Amount.Equal(decimal.RequireFromString("-10")))
	assert.True(t, resp.Lines[1].RunningBalance.Equal(decimal.RequireFromString("55")))
}

func TestStatementInvalidRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantCtx("tenant-a")
	account := createAccount(t, svc, ctx)

	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	_, err := svc.GetStatement(ctx, domain.GetStatementRequest{
		AccountID: account.ID,
		StartDate: day,
		EndDate:   day,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)
}

func TestCurrencyMismatchRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := tenantCtx("tenant-a")
	account := createAccount(t, svc, ctx)

	_, err := svc.RecordCharge(ctx, domain.RecordChargeRequest{
		AccountID:   account.ID,
		RideID:      "ride-001",
		Amount:      decimal.RequireFromString("25.00"),
		Currency:    "EUR",
		ServiceDate: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, money.ErrCurrencyMismatch)
}
