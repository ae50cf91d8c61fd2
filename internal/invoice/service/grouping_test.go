package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountdomain "github.com/rideledger/rideledger/internal/account/domain"
	"github.com/rideledger/rideledger/internal/invoice/domain"
)

func rideDebit(rideID, amount string, txnDate time.Time) accountdomain.LedgerEntry {
	value := decimal.RequireFromString(amount)
	return accountdomain.LedgerEntry{
		ID:                uuid.New(),
		AccountID:         uuid.New(),
		LedgerAccount:     accountdomain.AccountCodeAccountsReceivable,
		DebitAmount:       &value,
		Currency:          "USD",
		TransactionDate:   txnDate,
		SourceType:        accountdomain.SourceTypeRide,
		SourceReferenceID: rideID,
		CreatedAt:         txnDate,
	}
}

func arCredit(reference, amount string, txnDate time.Time) accountdomain.LedgerEntry {
	value := decimal.RequireFromString(amount)
	return accountdomain.LedgerEntry{
		ID:                uuid.New(),
		AccountID:         uuid.New(),
		LedgerAccount:     accountdomain.AccountCodeAccountsReceivable,
		CreditAmount:      &value,
		Currency:          "USD",
		TransactionDate:   txnDate,
		SourceType:        accountdomain.SourceTypePayment,
		SourceReferenceID: reference,
		CreatedAt:         txnDate,
	}
}

func TestSelectChargeableFiltersAndOrders(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	inPeriod := rideDebit("ride-b", "10.00", time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC))
	earlier := rideDebit("ride-a", "20.00", time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC))
	beforePeriod := rideDebit("ride-c", "30.00", time.Date(2025, 12, 31, 8, 0, 0, 0, time.UTC))
	atEnd := rideDebit("ride-d", "40.00", end)
	payment := arCredit("pay-1", "15.00", time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC))

	// Revenue credits never bill.
	revenue := inPeriod
	revenue.LedgerAccount = accountdomain.AccountCodeServiceRevenue

	chargeable := selectChargeable(
		[]accountdomain.LedgerEntry{inPeriod, earlier, beforePeriod, atEnd, payment, revenue},
		start, end,
	)

	require.Len(t, chargeable, 2)
	assert.Equal(t, "ride-a", chargeable[0].SourceReferenceID)
	assert.Equal(t, "ride-b", chargeable[1].SourceReferenceID)
}

func TestGroupChargesMonthly(t *testing.T) {
	entries := []accountdomain.LedgerEntry{
		rideDebit("ride-1", "25.00", time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)),
		rideDebit("ride-2", "30.00", time.Date(2026, 1, 20, 8, 0, 0, 0, time.UTC)),
		rideDebit("ride-3", "40.00", time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC)),
	}

	groups := groupCharges(entries, domain.FrequencyMonthly)
	require.Len(t, groups, 2)

	assert.Equal(t, []string{"ride-1", "ride-2"}, groups[0].rideIDs)
	assert.True(t, groups[0].total.Equal(decimal.RequireFromString("55")))
	assert.Equal(t, time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC), groups[0].earliest)
	assert.True(t, groups[1].total.Equal(decimal.RequireFromString("40")))
}

func TestGroupChargesWeeklyStartsMonday(t *testing.T) {
	// 2026-01-05 is a Monday; 2026-01-11 the following Sunday.
	entries := []accountdomain.LedgerEntry{
		rideDebit("ride-1", "25.00", time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)),
		rideDebit("ride-2", "30.00", time.Date(2026, 1, 11, 8, 0, 0, 0, time.UTC)),
		rideDebit("ride-3", "40.00", time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)),
	}

	groups := groupCharges(entries, domain.FrequencyWeekly)
	require.Len(t, groups, 2)
	assert.Equal(t, []string{"ride-1", "ride-2"}, groups[0].rideIDs)
	assert.Equal(t, []string{"ride-3"}, groups[1].rideIDs)
}

func TestWeekStartMonday(t *testing.T) {
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, monday, weekStartMonday(time.Date(2026, 1, 5, 23, 59, 0, 0, time.UTC)))
	assert.Equal(t, monday, weekStartMonday(time.Date(2026, 1, 8, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, monday, weekStartMonday(time.Date(2026, 1, 11, 8, 0, 0, 0, time.UTC)))
	assert.Equal(t, monday.AddDate(0, 0, 7), weekStartMonday(time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)))
}

func TestLineForPerRideAndAggregated(t *testing.T) {
	single := chargeGroup{rideIDs: []string{"ride-1"}}
	rideID, description := lineFor(single, domain.FrequencyPerRide)
	assert.Equal(t, "ride-1", rideID)
	assert.Equal(t, "Ride ride-1", description)

	grouped := chargeGroup{rideIDs: []string{"ride-1", "ride-2"}}
	rideID, description = lineFor(grouped, domain.FrequencyMonthly)
	assert.Equal(t, "2 rides", rideID)
	assert.Equal(t, "2 rides", description)
}

func TestPaymentsAppliedWindow(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	entries := []accountdomain.LedgerEntry{
		arCredit("pay-1", "10.00", time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)),
		arCredit("pay-2", "20.00", time.Date(2025, 12, 30, 8, 0, 0, 0, time.UTC)),
		arCredit("pay-3", "5.00", end),
		rideDebit("ride-1", "99.00", time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)),
	}

	applied := paymentsApplied(entries, start, end)
	assert.True(t, applied.Equal(decimal.RequireFromString("10")), "applied %s", applied)
}
