package finance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/opsuite/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saleWithBreakdown(t *testing.T) Sale {
	t.Helper()
	sale := NewSale()
	line := newTestLine(t, 4, 500, nil)
	line.SaleID = sale.ID
	require.NoError(t, line.ApplyBreakdown(inventory.ConsumptionBreakdown{
		{BatchID: uuid.New(), UnitCost: decimal.NewFromInt(100), ConsumedQuantity: 3},
		{BatchID: uuid.New(), UnitCost: decimal.NewFromInt(200), ConsumedQuantity: 1},
	}))
	require.NoError(t, sale.AddLine(*line))
	return *sale
}

func TestSaleProfit(t *testing.T) {
	t.Run("profit from breakdowns", func(t *testing.T) {
		report := SaleProfit([]Sale{saleWithBreakdown(t)}, nil)

		assert.True(t, report.Profit.Equal(decimal.NewFromInt(1500)), "profit %s", report.Profit)
		assert.True(t, report.Revenue.Equal(decimal.NewFromInt(2000)))
		assert.True(t, report.Cost.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, 1, report.LineCount)
		assert.Equal(t, 0, report.UnpricedLines)
		assert.True(t, report.Margin().Equal(decimal.RequireFromString("0.75")))
	})

	t.Run("cancelled sales are excluded", func(t *testing.T) {
		sale := saleWithBreakdown(t)
		require.NoError(t, sale.Cancel())

		report := SaleProfit([]Sale{sale}, nil)

		assert.True(t, report.Profit.IsZero())
		assert.Equal(t, 0, report.LineCount)
	})

	t.Run("legacy lines fall back to the latest cost", func(t *testing.T) {
		sale := NewSale()
		line := newTestLine(t, 2, 500, nil)
		line.SaleID = sale.ID
		require.NoError(t, sale.AddLine(*line))

		cost := decimal.NewFromInt(300)
		report := SaleProfit([]Sale{*sale}, func(uuid.UUID) *decimal.Decimal { return &cost })

		assert.True(t, report.Profit.Equal(decimal.NewFromInt(400)))
		assert.Equal(t, 0, report.UnpricedLines)
	})

	t.Run("lines with no cost basis are counted, not guessed", func(t *testing.T) {
		sale := NewSale()
		line := newTestLine(t, 2, 500, nil)
		line.SaleID = sale.ID
		require.NoError(t, sale.AddLine(*line))

		report := SaleProfit([]Sale{*sale, saleWithBreakdown(t)}, func(uuid.UUID) *decimal.Decimal { return nil })

		assert.Equal(t, 1, report.UnpricedLines)
		assert.Equal(t, 2, report.LineCount)
		assert.True(t, report.Profit.Equal(decimal.NewFromInt(1500)))
	})
}

func TestTotalOutstanding(t *testing.T) {
	customerDebt := newDebt(t, EntryKindCustomerDebt, 1000)
	supplierDebt := newDebt(t, EntryKindSupplierDebt, 600)
	refund := newRefund(t, customerDebt, 400)
	entries := []FinanceEntry{*customerDebt, *supplierDebt, refund}

	assert.True(t, TotalOutstanding(entries, DebtScopeCustomers).Equal(decimal.NewFromInt(600)))
	assert.True(t, TotalOutstanding(entries, DebtScopeAll).Equal(decimal.NewFromInt(1200)))
}

func TestRunningBalance(t *testing.T) {
	income, _ := NewFinanceEntry(EntryKindIncome, decimal.NewFromInt(1000), "")
	expense, _ := NewFinanceEntry(EntryKindExpense, decimal.NewFromInt(300), "")
	customerDebt := newDebt(t, EntryKindCustomerDebt, 500)
	supplierDebt := newDebt(t, EntryKindSupplierDebt, 200)
	refund := newRefund(t, customerDebt, 100)
	entries := []FinanceEntry{*income, *expense, *customerDebt, *supplierDebt, refund}

	// 1000 - 300 + (500 - 100) outstanding customer debt; supplier debt
	// never inflates the balance
	assert.True(t, RunningBalance(entries).Equal(decimal.NewFromInt(1100)),
		"balance %s", RunningBalance(entries))
}
