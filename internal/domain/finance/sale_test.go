package finance

import (
	"testing"

	"github.com/google/uuid"
	"github.com/opsuite/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLine(t *testing.T, quantity int64, listPrice int64, negotiated *int64) *SaleLine {
	t.Helper()
	var negPrice *decimal.Decimal
	if negotiated != nil {
		p := decimal.NewFromInt(*negotiated)
		negPrice = &p
	}
	line, err := NewSaleLine(uuid.New(), uuid.New(), quantity, decimal.NewFromInt(listPrice), negPrice)
	require.NoError(t, err)
	return line
}

func TestSaleStatusTransitions(t *testing.T) {
	tests := []struct {
		from    SaleStatus
		to      SaleStatus
		allowed bool
	}{
		{SaleStatusOrdered, SaleStatusInDelivery, true},
		{SaleStatusOrdered, SaleStatusPaid, true},
		{SaleStatusOrdered, SaleStatusCredit, true},
		{SaleStatusOrdered, SaleStatusCancelled, true},
		{SaleStatusInDelivery, SaleStatusPaid, true},
		{SaleStatusInDelivery, SaleStatusCredit, false},
		{SaleStatusPaid, SaleStatusCredit, true},
		{SaleStatusPaid, SaleStatusCancelled, false},
		{SaleStatusCredit, SaleStatusPaid, true},
		{SaleStatusCredit, SaleStatusCancelled, true},
		{SaleStatusCancelled, SaleStatusOrdered, false},
		{SaleStatusCancelled, SaleStatusPaid, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"_to_"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSaleLinePricing(t *testing.T) {
	t.Run("list price by default", func(t *testing.T) {
		line := newTestLine(t, 4, 500, nil)
		assert.True(t, line.UnitSalePrice().Equal(decimal.NewFromInt(500)))
		assert.True(t, line.LineTotal().Equal(decimal.NewFromInt(2000)))
	})

	t.Run("negotiated price wins", func(t *testing.T) {
		neg := int64(450)
		line := newTestLine(t, 4, 500, &neg)
		assert.True(t, line.UnitSalePrice().Equal(decimal.NewFromInt(450)))
		assert.True(t, line.LineTotal().Equal(decimal.NewFromInt(1800)))
	})
}

func TestSaleLineApplyBreakdown(t *testing.T) {
	t.Run("profit from per-batch costs", func(t *testing.T) {
		line := newTestLine(t, 4, 500, nil)
		breakdown := inventory.ConsumptionBreakdown{
			{BatchID: uuid.New(), UnitCost: decimal.NewFromInt(100), ConsumedQuantity: 3},
			{BatchID: uuid.New(), UnitCost: decimal.NewFromInt(200), ConsumedQuantity: 1},
		}

		require.NoError(t, line.ApplyBreakdown(breakdown))

		// (500-100)*3 + (500-200)*1 = 1500
		assert.True(t, line.Profit.Equal(decimal.NewFromInt(1500)), "profit %s", line.Profit)
		assert.True(t, line.AggregateCost.Equal(decimal.NewFromInt(500)))
		assert.True(t, line.ProfitMargin.Equal(decimal.RequireFromString("0.75")))
		assert.True(t, line.HasBreakdown())
	})

	t.Run("rejects a breakdown not covering the quantity", func(t *testing.T) {
		line := newTestLine(t, 4, 500, nil)
		breakdown := inventory.ConsumptionBreakdown{
			{BatchID: uuid.New(), UnitCost: decimal.NewFromInt(100), ConsumedQuantity: 3},
		}
		assert.Error(t, line.ApplyBreakdown(breakdown))
	})
}

func TestSaleLineProfitFallback(t *testing.T) {
	t.Run("uses latest cost when no breakdown", func(t *testing.T) {
		line := newTestLine(t, 4, 500, nil)
		cost := decimal.NewFromInt(200)

		profit, priced := line.ProfitWithFallback(&cost)

		assert.True(t, priced)
		assert.True(t, profit.Equal(decimal.NewFromInt(1200)))
	})

	t.Run("unpriced without any cost basis", func(t *testing.T) {
		line := newTestLine(t, 4, 500, nil)

		_, priced := line.ProfitWithFallback(nil)

		assert.False(t, priced)
	})
}

func TestSaleLifecycle(t *testing.T) {
	newSaleWithLine := func(t *testing.T) *Sale {
		sale := NewSale()
		line := newTestLine(t, 4, 500, nil)
		line.SaleID = sale.ID
		require.NoError(t, sale.AddLine(*line))
		return sale
	}

	t.Run("adding lines accumulates the total", func(t *testing.T) {
		sale := newSaleWithLine(t)
		assert.True(t, sale.TotalAmount.Equal(decimal.NewFromInt(2000)))
		assert.Equal(t, SaleStatusOrdered, sale.Status)
	})

	t.Run("ordered to delivered to paid", func(t *testing.T) {
		sale := newSaleWithLine(t)
		require.NoError(t, sale.MarkInDelivery())
		require.NoError(t, sale.MarkPaid())
		assert.Equal(t, SaleStatusPaid, sale.Status)
		assert.True(t, sale.RemainingAmount.IsZero())
	})

	t.Run("credit conversion validates the remaining amount", func(t *testing.T) {
		sale := newSaleWithLine(t)
		assert.Error(t, sale.ConvertToCredit(decimal.Zero))
		assert.Error(t, sale.ConvertToCredit(decimal.NewFromInt(2001)))
		require.NoError(t, sale.ConvertToCredit(decimal.NewFromInt(800)))
		assert.Equal(t, SaleStatusCredit, sale.Status)
		assert.True(t, sale.RemainingAmount.Equal(decimal.NewFromInt(800)))
	})

	t.Run("partial refund keeps the sale on credit", func(t *testing.T) {
		sale := newSaleWithLine(t)
		require.NoError(t, sale.ConvertToCredit(decimal.NewFromInt(800)))

		require.NoError(t, sale.ApplyRefund(decimal.NewFromInt(300)))

		assert.Equal(t, SaleStatusCredit, sale.Status)
		assert.True(t, sale.RemainingAmount.Equal(decimal.NewFromInt(500)))
		assert.True(t, sale.TotalRefunded.Equal(decimal.NewFromInt(300)))
	})

	t.Run("refund down to zero closes the sale", func(t *testing.T) {
		sale := newSaleWithLine(t)
		require.NoError(t, sale.ConvertToCredit(decimal.NewFromInt(800)))

		require.NoError(t, sale.ApplyRefund(decimal.NewFromInt(800)))

		assert.Equal(t, SaleStatusPaid, sale.Status)
		assert.True(t, sale.RemainingAmount.IsZero())
	})

	t.Run("refund cannot exceed the remaining amount", func(t *testing.T) {
		sale := newSaleWithLine(t)
		require.NoError(t, sale.ConvertToCredit(decimal.NewFromInt(800)))
		assert.Error(t, sale.ApplyRefund(decimal.NewFromInt(900)))
	})

	t.Run("settle clears a credit sale", func(t *testing.T) {
		sale := newSaleWithLine(t)
		require.NoError(t, sale.ConvertToCredit(decimal.NewFromInt(800)))
		require.NoError(t, sale.SettleCredit())
		assert.Equal(t, SaleStatusPaid, sale.Status)
	})

	t.Run("cancel is terminal", func(t *testing.T) {
		sale := newSaleWithLine(t)
		require.NoError(t, sale.Cancel())
		assert.True(t, sale.IsCancelled())
		assert.Error(t, sale.MarkPaid())
		assert.Error(t, sale.AddLine(*newTestLine(t, 1, 100, nil)))
	})
}

func TestSaleInventoryReversedFlag(t *testing.T) {
	sale := NewSale()

	require.NoError(t, sale.MarkInventoryReversed())
	assert.True(t, sale.InventoryReversed)

	// a second reversal of the same sale must be refused
	assert.Error(t, sale.MarkInventoryReversed())
}
