package finance

import (
	"github.com/google/uuid"
	"github.com/opsuite/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// EntryKind classifies a finance ledger entry
type EntryKind string

const (
	EntryKindCustomerDebt   EntryKind = "customer_debt"
	EntryKindSupplierDebt   EntryKind = "supplier_debt"
	EntryKindCustomerRefund EntryKind = "customer_refund"
	EntryKindSupplierRefund EntryKind = "supplier_refund"
	EntryKindPayment        EntryKind = "payment"
	EntryKindExpense        EntryKind = "expense"
	EntryKindIncome         EntryKind = "income"
)

// IsValid checks if the kind is a valid EntryKind
func (k EntryKind) IsValid() bool {
	switch k {
	case EntryKindCustomerDebt, EntryKindSupplierDebt,
		EntryKindCustomerRefund, EntryKindSupplierRefund,
		EntryKindPayment, EntryKindExpense, EntryKindIncome:
		return true
	}
	return false
}

// String returns the string representation
func (k EntryKind) String() string {
	return string(k)
}

// IsDebt returns true for debt-recording kinds
func (k EntryKind) IsDebt() bool {
	return k == EntryKindCustomerDebt || k == EntryKindSupplierDebt
}

// IsRefund returns true for refund kinds
func (k EntryKind) IsRefund() bool {
	return k == EntryKindCustomerRefund || k == EntryKindSupplierRefund
}

// RefundKindFor returns the refund kind that settles the given debt kind
func RefundKindFor(debt EntryKind) (EntryKind, bool) {
	switch debt {
	case EntryKindCustomerDebt:
		return EntryKindCustomerRefund, true
	case EntryKindSupplierDebt:
		return EntryKindSupplierRefund, true
	}
	return "", false
}

// FinanceEntry is one immutable row in the finance ledger. Debts stay in
// place as written; refunds reference the debt they settle through
// RefundedDebtID, and the outstanding figure is derived, never mutated.
type FinanceEntry struct {
	shared.BaseEntity
	Kind           EntryKind       `gorm:"type:varchar(20);not null;index"`
	Amount         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Label          string          `gorm:"type:varchar(255)"`
	RefundedDebtID *uuid.UUID      `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (FinanceEntry) TableName() string {
	return "finance_entries"
}

// NewFinanceEntry creates a validated finance entry
func NewFinanceEntry(kind EntryKind, amount decimal.Decimal, label string) (*FinanceEntry, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_ENTRY_KIND", "Unknown finance entry kind: "+string(kind))
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Entry amount must be positive")
	}
	if kind.IsRefund() {
		return nil, shared.NewDomainError("INVALID_ENTRY_KIND", "Refund entries must reference a debt, use NewRefundEntry")
	}

	return &FinanceEntry{
		BaseEntity: shared.NewBaseEntity(),
		Kind:       kind,
		Amount:     amount,
		Label:      label,
	}, nil
}

// NewRefundEntry creates a refund entry settling part of the given debt.
// The refund may exceed what remains outstanding; the derived outstanding
// figure clips at zero rather than going negative.
func NewRefundEntry(debt *FinanceEntry, amount decimal.Decimal, label string) (*FinanceEntry, error) {
	if debt == nil || !debt.Kind.IsDebt() {
		return nil, shared.NewDomainError("INVALID_REFUND_TARGET", "Refunds can only reference a debt entry")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Refund amount must be positive")
	}
	refundKind, ok := RefundKindFor(debt.Kind)
	if !ok {
		return nil, shared.NewDomainError("INVALID_REFUND_TARGET", "No refund kind for "+string(debt.Kind))
	}

	debtID := debt.ID
	return &FinanceEntry{
		BaseEntity:     shared.NewBaseEntity(),
		Kind:           refundKind,
		Amount:         amount,
		Label:          label,
		RefundedDebtID: &debtID,
	}, nil
}

// SignedAmount returns the entry's contribution to the running balance.
// Income and payments add, expenses subtract. Debts and refunds do not
// contribute directly; their effect flows in through the outstanding
// customer debt figure.
func (e *FinanceEntry) SignedAmount() decimal.Decimal {
	switch e.Kind {
	case EntryKindIncome, EntryKindPayment:
		return e.Amount
	case EntryKindExpense:
		return e.Amount.Neg()
	}
	return decimal.Zero
}

// OutstandingAmount derives what remains owed on a debt given the refund
// entries referencing it. Over-refunded debts report zero.
func (e *FinanceEntry) OutstandingAmount(refunds []FinanceEntry) decimal.Decimal {
	if !e.Kind.IsDebt() {
		return decimal.Zero
	}
	refunded := decimal.Zero
	for i := range refunds {
		r := &refunds[i]
		if r.Kind.IsRefund() && r.RefundedDebtID != nil && *r.RefundedDebtID == e.ID {
			refunded = refunded.Add(r.Amount)
		}
	}
	outstanding := e.Amount.Sub(refunded)
	if outstanding.IsNegative() {
		return decimal.Zero
	}
	return outstanding
}
