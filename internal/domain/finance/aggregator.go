package finance

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DebtScope selects which debt kinds an aggregate covers
type DebtScope string

const (
	// DebtScopeCustomers covers customer debt only
	DebtScopeCustomers DebtScope = "customers"
	// DebtScopeAll covers customer and supplier debt
	DebtScopeAll DebtScope = "all"
)

// IsValid checks if the scope is a valid DebtScope
func (s DebtScope) IsValid() bool {
	return s == DebtScopeCustomers || s == DebtScopeAll
}

// CostProvider supplies a fallback unit cost for lines recorded before
// breakdowns existed. A nil cost means no basis is known for the subject.
type CostProvider func(subjectID uuid.UUID) *decimal.Decimal

// ProfitReport is the outcome of a profit aggregation. UnpricedLines counts
// lines excluded because no cost basis could be found; a non-zero count
// tells the caller the profit figure is a lower bound, not an error.
type ProfitReport struct {
	Profit        decimal.Decimal
	Revenue       decimal.Decimal
	Cost          decimal.Decimal
	LineCount     int
	UnpricedLines int
}

// Margin returns profit over revenue, zero when there is no revenue
func (r ProfitReport) Margin() decimal.Decimal {
	if r.Revenue.IsZero() {
		return decimal.Zero
	}
	return r.Profit.Div(r.Revenue).Round(4)
}

// SaleProfit aggregates profit across the given sales. Cancelled sales are
// skipped entirely. Lines with a stored breakdown use it; lines without one
// fall back to the latest known cost from the provider.
func SaleProfit(sales []Sale, latestCost CostProvider) ProfitReport {
	report := ProfitReport{
		Profit:  decimal.Zero,
		Revenue: decimal.Zero,
		Cost:    decimal.Zero,
	}
	for i := range sales {
		s := &sales[i]
		if s.IsCancelled() {
			continue
		}
		for j := range s.Lines {
			line := &s.Lines[j]
			report.LineCount++

			var fallback *decimal.Decimal
			if !line.HasBreakdown() && latestCost != nil {
				fallback = latestCost(line.SubjectID)
			}
			profit, priced := line.ProfitWithFallback(fallback)
			if !priced {
				report.UnpricedLines++
				continue
			}
			revenue := line.LineTotal()
			report.Profit = report.Profit.Add(profit)
			report.Revenue = report.Revenue.Add(revenue)
			report.Cost = report.Cost.Add(revenue.Sub(profit))
		}
	}
	return report
}

// TotalOutstanding sums what remains owed across debt entries in scope.
// Each debt's outstanding figure clips at zero, so over-refunded debts
// never reduce the total.
func TotalOutstanding(entries []FinanceEntry, scope DebtScope) decimal.Decimal {
	total := decimal.Zero
	for i := range entries {
		e := &entries[i]
		if !e.Kind.IsDebt() {
			continue
		}
		if scope == DebtScopeCustomers && e.Kind != EntryKindCustomerDebt {
			continue
		}
		total = total.Add(e.OutstandingAmount(entries))
	}
	return total
}

// RunningBalance computes the solde: income and payments minus expenses,
// plus customer debt still expected to come in. Supplier debt is money
// owed out and does not inflate the balance.
func RunningBalance(entries []FinanceEntry) decimal.Decimal {
	balance := decimal.Zero
	for i := range entries {
		balance = balance.Add(entries[i].SignedAmount())
	}
	return balance.Add(TotalOutstanding(entries, DebtScopeCustomers))
}
