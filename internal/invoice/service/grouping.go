package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	accountdomain "github.com/rideledger/rideledger/internal/account/domain"
	"github.com/rideledger/rideledger/internal/invoice/domain"
)

// chargeGroup is one prospective invoice line.
type chargeGroup struct {
	rideIDs  []string
	entries  []accountdomain.LedgerEntry
	earliest time.Time
	total    decimal.Decimal
}

// selectChargeable filters receivable ride debits inside the half-open
// period and orders them deterministically.
func selectChargeable(entries []accountdomain.LedgerEntry, periodStart, periodEnd time.Time) []accountdomain.LedgerEntry {
	var chargeable []accountdomain.LedgerEntry
	for _, entry := range entries {
		if entry.SourceType != accountdomain.SourceTypeRide {
			continue
		}
		if entry.LedgerAccount != accountdomain.AccountCodeAccountsReceivable {
			continue
		}
		if !entry.IsDebit() {
			continue
		}
		if entry.TransactionDate.Before(periodStart) || !entry.TransactionDate.Before(periodEnd) {
			continue
		}
		chargeable = append(chargeable, entry)
	}

	sort.SliceStable(chargeable, func(i, j int) bool {
		a, b := chargeable[i], chargeable[j]
		if !a.TransactionDate.Equal(b.TransactionDate) {
			return a.TransactionDate.Before(b.TransactionDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
	return chargeable
}

// groupCharges buckets ordered chargeable entries by the billing frequency,
// preserving first-seen group order.
func groupCharges(entries []accountdomain.LedgerEntry, frequency domain.BillingFrequency) []chargeGroup {
	groups := make(map[string]*chargeGroup)
	var order []string

	for _, entry := range entries {
		key := groupKey(entry, frequency)
		group, ok := groups[key]
		if !ok {
			group = &chargeGroup{earliest: entry.TransactionDate, total: decimal.Zero}
			groups[key] = group
			order = append(order, key)
		}
		group.entries = append(group.entries, entry)
		group.total = group.total.Add(entry.Amount())
		if entry.TransactionDate.Before(group.earliest) {
			group.earliest = entry.TransactionDate
		}
		if !containsString(group.rideIDs, entry.SourceReferenceID) {
			group.rideIDs = append(group.rideIDs, entry.SourceReferenceID)
		}
	}

	result := make([]chargeGroup, 0, len(order))
	for _, key := range order {
		result = append(result, *groups[key])
	}
	return result
}

func groupKey(entry accountdomain.LedgerEntry, frequency domain.BillingFrequency) string {
	date := entry.TransactionDate.UTC()
	switch frequency {
	case domain.FrequencyDaily:
		return dayStart(date).Format("2006-01-02")
	case domain.FrequencyWeekly:
		return weekStartMonday(date).Format("2006-01-02")
	case domain.FrequencyMonthly:
		return date.Format("2006-01")
	default: // per ride
		return entry.SourceReferenceID
	}
}

// lineFor renders the group as an invoice line. Aggregated modes use a
// synthetic "<N> rides" descriptor; per-ride lines carry the ride id.
func lineFor(group chargeGroup, frequency domain.BillingFrequency) (rideID, description string) {
	if frequency == domain.FrequencyPerRide && len(group.rideIDs) == 1 {
		return group.rideIDs[0], fmt.Sprintf("Ride %s", group.rideIDs[0])
	}
	descriptor := fmt.Sprintf("%d rides", len(group.rideIDs))
	return descriptor, descriptor
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// weekStartMonday truncates to the Monday starting the ISO week.
func weekStartMonday(t time.Time) time.Time {
	day := dayStart(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// paymentsApplied sums receivable credits dated inside the period.
func paymentsApplied(entries []accountdomain.LedgerEntry, periodStart, periodEnd time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, entry := range entries {
		if entry.LedgerAccount != accountdomain.AccountCodeAccountsReceivable {
			continue
		}
		if entry.IsDebit() {
			continue
		}
		if entry.TransactionDate.Before(periodStart) || !entry.TransactionDate.Before(periodEnd) {
			continue
		}
		total = total.Add(entry.Amount())
	}
	return total
}

func containsString(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}
