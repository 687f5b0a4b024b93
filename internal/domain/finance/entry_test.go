package finance

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDebt(t *testing.T, kind EntryKind, amount int64) *FinanceEntry {
	t.Helper()
	entry, err := NewFinanceEntry(kind, decimal.NewFromInt(amount), "test debt")
	require.NoError(t, err)
	return entry
}

func newRefund(t *testing.T, debt *FinanceEntry, amount int64) FinanceEntry {
	t.Helper()
	entry, err := NewRefundEntry(debt, decimal.NewFromInt(amount), "test refund")
	require.NoError(t, err)
	return *entry
}

func TestEntryKind(t *testing.T) {
	assert.True(t, EntryKindCustomerDebt.IsDebt())
	assert.True(t, EntryKindSupplierDebt.IsDebt())
	assert.False(t, EntryKindPayment.IsDebt())

	assert.True(t, EntryKindCustomerRefund.IsRefund())
	assert.True(t, EntryKindSupplierRefund.IsRefund())
	assert.False(t, EntryKindIncome.IsRefund())

	assert.False(t, EntryKind("bogus").IsValid())
}

func TestNewFinanceEntry(t *testing.T) {
	t.Run("rejects non-positive amounts", func(t *testing.T) {
		_, err := NewFinanceEntry(EntryKindIncome, decimal.Zero, "")
		assert.Error(t, err)
		_, err = NewFinanceEntry(EntryKindIncome, decimal.NewFromInt(-5), "")
		assert.Error(t, err)
	})

	t.Run("rejects refund kinds without a debt", func(t *testing.T) {
		_, err := NewFinanceEntry(EntryKindCustomerRefund, decimal.NewFromInt(100), "")
		assert.Error(t, err)
	})
}

func TestNewRefundEntry(t *testing.T) {
	debt := newDebt(t, EntryKindCustomerDebt, 1000)

	t.Run("links to the debt with the matching refund kind", func(t *testing.T) {
		refund, err := NewRefundEntry(debt, decimal.NewFromInt(400), "")
		require.NoError(t, err)

		assert.Equal(t, EntryKindCustomerRefund, refund.Kind)
		require.NotNil(t, refund.RefundedDebtID)
		assert.Equal(t, debt.ID, *refund.RefundedDebtID)
	})

	t.Run("supplier debt gets a supplier refund", func(t *testing.T) {
		supplierDebt := newDebt(t, EntryKindSupplierDebt, 500)
		refund, err := NewRefundEntry(supplierDebt, decimal.NewFromInt(100), "")
		require.NoError(t, err)
		assert.Equal(t, EntryKindSupplierRefund, refund.Kind)
	})

	t.Run("rejects a non-debt target", func(t *testing.T) {
		income, err := NewFinanceEntry(EntryKindIncome, decimal.NewFromInt(100), "")
		require.NoError(t, err)
		_, err = NewRefundEntry(income, decimal.NewFromInt(50), "")
		assert.Error(t, err)
	})
}

func TestOutstandingAmount(t *testing.T) {
	t.Run("subtracts linked refunds", func(t *testing.T) {
		debt := newDebt(t, EntryKindCustomerDebt, 1000)
		refunds := []FinanceEntry{newRefund(t, debt, 300), newRefund(t, debt, 200)}

		outstanding := debt.OutstandingAmount(refunds)
		assert.True(t, outstanding.Equal(decimal.NewFromInt(500)))
	})

	t.Run("over-refunded debt clips at zero", func(t *testing.T) {
		debt := newDebt(t, EntryKindCustomerDebt, 1000)
		refunds := []FinanceEntry{newRefund(t, debt, 700), newRefund(t, debt, 500)}

		outstanding := debt.OutstandingAmount(refunds)
		assert.True(t, outstanding.IsZero(), "outstanding %s", outstanding)
	})

	t.Run("ignores refunds linked to other debts", func(t *testing.T) {
		debt := newDebt(t, EntryKindCustomerDebt, 1000)
		other := newDebt(t, EntryKindCustomerDebt, 400)
		refunds := []FinanceEntry{newRefund(t, other, 400)}

		outstanding := debt.OutstandingAmount(refunds)
		assert.True(t, outstanding.Equal(decimal.NewFromInt(1000)))
	})
}

func TestSignedAmount(t *testing.T) {
	income, _ := NewFinanceEntry(EntryKindIncome, decimal.NewFromInt(100), "")
	payment, _ := NewFinanceEntry(EntryKindPayment, decimal.NewFromInt(50), "")
	expense, _ := NewFinanceEntry(EntryKindExpense, decimal.NewFromInt(30), "")
	debt := newDebt(t, EntryKindCustomerDebt, 500)

	assert.True(t, income.SignedAmount().Equal(decimal.NewFromInt(100)))
	assert.True(t, payment.SignedAmount().Equal(decimal.NewFromInt(50)))
	assert.True(t, expense.SignedAmount().Equal(decimal.NewFromInt(-30)))
	assert.True(t, debt.SignedAmount().IsZero())
}
