package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rideledger/rideledger/internal/account/domain"
	"github.com/rideledger/rideledger/internal/money"
	"github.com/rideledger/rideledger/internal/tenantctx"
)

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	account, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, domain.ErrNotFound
	}
	return account, nil
}

// GetBalance aggregates the receivable balance in a single query; the
// covering index on (account_id, tenant_id) keeps this read-only path cheap.
func (s *Service) GetBalance(ctx context.Context, id uuid.UUID) (money.Money, error) {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return money.Money{}, err
	}

	account, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return money.Money{}, err
	}
	if account == nil {
		return money.Money{}, domain.ErrNotFound
	}

	var row struct {
		Balance decimal.Decimal
	}
	err = s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(COALESCE(debit_amount, 0) - COALESCE(credit_amount, 0)), 0) AS balance
		 FROM ledger_entries
		 WHERE tenant_id = ? AND account_id = ? AND ledger_account = ?`,
		scope.TenantID,
		id,
		domain.AccountCodeAccountsReceivable,
	).Scan(&row).Error
	if err != nil {
		return money.Money{}, err
	}

	balance := row.Balance
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	return money.New(balance, account.Currency)
}

func (s *Service) GetTransactions(ctx context.Context, req domain.GetTransactionsRequest) (domain.GetTransactionsResponse, error) {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return domain.GetTransactionsResponse{}, err
	}

	exists, err := s.repo.Exists(ctx, s.db, req.AccountID)
	if err != nil {
		return domain.GetTransactionsResponse{}, err
	}
	if !exists {
		return domain.GetTransactionsResponse{}, domain.ErrNotFound
	}

	stmt := s.db.WithContext(ctx).
		Model(&domain.LedgerEntry{}).
		Where("tenant_id = ? AND account_id = ?", scope.TenantID, req.AccountID)
	if req.StartDate != nil {
		stmt = stmt.Where("transaction_date >= ?", *req.StartDate)
	}
	if req.EndDate != nil {
		stmt = stmt.Where("transaction_date < ?", *req.EndDate)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return domain.GetTransactionsResponse{}, err
	}

	page := req.Page.Normalize()
	var entries []domain.LedgerEntry
	err = stmt.
		Order("transaction_date asc, created_at asc, id asc").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Find(&entries).Error
	if err != nil {
		return domain.GetTransactionsResponse{}, err
	}

	return domain.GetTransactionsResponse{
		PageInfo: paginationInfo(page.Page, page.PageSize, total),
		Entries:  entries,
	}, nil
}

// GetStatement renders the receivable statement for a half-open period:
// opening balance, lines with running balances, closing balance.
func (s *Service) GetStatement(ctx context.Context, req domain.GetStatementRequest) (domain.GetStatementResponse, error) {
	scope, err := tenantctx.RequireScope(ctx)
	if err != nil {
		return domain.GetStatementResponse{}, err
	}
	if !req.StartDate.Before(req.EndDate) {
		return domain.GetStatementResponse{}, domain.ErrInvalidDateRange
	}

	account, err := s.repo.FindByID(ctx, s.db, req.AccountID)
	if err != nil {
		return domain.GetStatementResponse{}, err
	}
	if account == nil {
		return domain.GetStatementResponse{}, domain.ErrNotFound
	}

	var openingRow struct {
		Balance decimal.Decimal
	}
	err = s.db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(COALESCE(debit_amount, 0) - COALESCE(credit_amount, 0)), 0) AS balance
		 FROM ledger_entries
		 WHERE tenant_id = ? AND account_id = ? AND ledger_account = ? AND transaction_date < ?`,
		scope.TenantID,
		req.AccountID,
		domain.AccountCodeAccountsReceivable,
		req.StartDate,
	).Scan(&openingRow).Error
	if err != nil {
		return domain.GetStatementResponse{}, err
	}
	opening := openingRow.Balance

	var entries []domain.LedgerEntry
	err = s.db.WithContext(ctx).
		Where("tenant_id = ? AND account_id = ? AND ledger_account = ?",
			scope.TenantID, req.AccountID, domain.AccountCodeAccountsReceivable).
		Where("transaction_date >= ? AND transaction_date < ?", req.StartDate, req.EndDate).
		Order("transaction_date asc, created_at asc, id asc").
		Find(&entries).Error
	if err != nil {
		return domain.GetStatementResponse{}, err
	}

	lines := make([]domain.StatementLine, 0, len(entries))
	running := opening
	for _, entry := range entries {
		running = running.Add(entry.EffectiveAmount())
		lines = append(lines, domain.StatementLine{
			Entry:          entry,
			Amount:         entry.EffectiveAmount(),
			RunningBalance: running,
		})
	}
	closing := running

	page := req.Page.Normalize()
	total := int64(len(lines))
	start := page.Offset()
	if start > len(lines) {
		start = len(lines)
	}
	end := start + page.Limit()
	if end > len(lines) {
		end = len(lines)
	}

	return domain.GetStatementResponse{
		PageInfo:       paginationInfo(page.Page, page.PageSize, total),
		OpeningBalance: opening,
		ClosingBalance: closing,
		Currency:       account.Currency,
		Lines:          lines[start:end],
	}, nil
}
