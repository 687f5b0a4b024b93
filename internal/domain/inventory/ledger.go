package inventory

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/opsuite/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LedgerReason identifies why a quantity delta was recorded
type LedgerReason string

const (
	// LedgerReasonCreation is the initial procurement of a batch
	LedgerReasonCreation LedgerReason = "creation"
	// LedgerReasonRestock is a later procurement event
	LedgerReasonRestock LedgerReason = "restock"
	// LedgerReasonAdjustment is a system-driven correction
	LedgerReasonAdjustment LedgerReason = "adjustment"
	// LedgerReasonDamage records spoiled or broken stock
	LedgerReasonDamage LedgerReason = "damage"
	// LedgerReasonManualAdjustment is an operator-driven correction
	LedgerReasonManualAdjustment LedgerReason = "manual_adjustment"
	// LedgerReasonSaleConsumption is stock drawn by a sale line
	LedgerReasonSaleConsumption LedgerReason = "sale_consumption"
	// LedgerReasonReversal restores stock after a cancellation or refund
	LedgerReasonReversal LedgerReason = "reversal"
)

// IsValid checks if the ledger reason is valid
func (r LedgerReason) IsValid() bool {
	switch r {
	case LedgerReasonCreation,
		LedgerReasonRestock,
		LedgerReasonAdjustment,
		LedgerReasonDamage,
		LedgerReasonManualAdjustment,
		LedgerReasonSaleConsumption,
		LedgerReasonReversal:
		return true
	}
	return false
}

// String returns the string representation
func (r LedgerReason) String() string {
	return string(r)
}

// CarriesCost returns true for reasons that define a unit cost
func (r LedgerReason) CarriesCost() bool {
	switch r {
	case LedgerReasonCreation, LedgerReasonRestock, LedgerReasonSaleConsumption:
		return true
	}
	return false
}

// LedgerEntry is one immutable quantity delta against a subject's stock.
// Entries are append-only: corrections are new entries, never edits.
type LedgerEntry struct {
	shared.BaseEntity
	SubjectID uuid.UUID        `gorm:"type:uuid;not null;index:idx_ledger_subject_time,priority:1"`
	BatchID   *uuid.UUID       `gorm:"type:uuid;index"`
	Delta     int64            `gorm:"not null"`
	Reason    LedgerReason     `gorm:"type:varchar(30);not null;index"`
	UnitCost  *decimal.Decimal `gorm:"type:decimal(18,4)"`
}

// TableName returns the table name for GORM
func (LedgerEntry) TableName() string {
	return "stock_ledger_entries"
}

// NewLedgerEntry creates a validated ledger entry
func NewLedgerEntry(
	subjectID uuid.UUID,
	batchID *uuid.UUID,
	delta int64,
	reason LedgerReason,
	unitCost *decimal.Decimal,
) (*LedgerEntry, error) {
	if subjectID == uuid.Nil {
		return nil, &ValidationError{Field: "subjectId", Message: "subject ID cannot be empty"}
	}
	if !reason.IsValid() {
		return nil, &ValidationError{Field: "reason", Message: fmt.Sprintf("unknown ledger reason %q", reason)}
	}
	if delta == 0 {
		return nil, &ValidationError{Field: "delta", Message: "delta cannot be zero"}
	}
	if reason.CarriesCost() && unitCost == nil {
		return nil, &ValidationError{Field: "unitCost", Message: fmt.Sprintf("reason %s requires a unit cost", reason)}
	}
	if unitCost != nil && unitCost.IsNegative() {
		return nil, &ValidationError{Field: "unitCost", Message: "unit cost cannot be negative"}
	}

	return &LedgerEntry{
		BaseEntity: shared.NewBaseEntity(),
		SubjectID:  subjectID,
		BatchID:    batchID,
		Delta:      delta,
		Reason:     reason,
		UnitCost:   unitCost,
	}, nil
}

// NewCreationEntry records the initial quantity of a new batch
func NewCreationEntry(batch *Batch) (*LedgerEntry, error) {
	cost := batch.UnitCost
	id := batch.ID
	return NewLedgerEntry(batch.SubjectID, &id, batch.OriginalQuantity, LedgerReasonCreation, &cost)
}

// NewRestockEntry records a later procurement carried by a new batch
func NewRestockEntry(batch *Batch) (*LedgerEntry, error) {
	cost := batch.UnitCost
	id := batch.ID
	return NewLedgerEntry(batch.SubjectID, &id, batch.OriginalQuantity, LedgerReasonRestock, &cost)
}

// NewConsumptionEntry records a sale drawing stock from one batch.
// The unit cost is the consumption record's cost: the batch cost under
// FIFO/LIFO, the pool cost under weighted-average.
func NewConsumptionEntry(subjectID uuid.UUID, record ConsumptionRecord) (*LedgerEntry, error) {
	cost := record.UnitCost
	id := record.BatchID
	return NewLedgerEntry(subjectID, &id, -record.ConsumedQuantity, LedgerReasonSaleConsumption, &cost)
}

// NewReversalEntry records stock restored to a batch after cancellation.
// The restored quantity may be less than the consumed quantity if the
// restore was clamped at the batch's original quantity.
func NewReversalEntry(subjectID uuid.UUID, batchID uuid.UUID, restored int64) (*LedgerEntry, error) {
	return NewLedgerEntry(subjectID, &batchID, restored, LedgerReasonReversal, nil)
}

// NewDamageEntry records damaged stock removed from a batch
func NewDamageEntry(subjectID uuid.UUID, batchID uuid.UUID, quantity int64) (*LedgerEntry, error) {
	if quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Message: "damage quantity must be positive"}
	}
	return NewLedgerEntry(subjectID, &batchID, -quantity, LedgerReasonDamage, nil)
}

// NewAdjustmentEntry records a system-driven correction that is not scoped
// to any batch, a pure history entry for the subject
func NewAdjustmentEntry(subjectID uuid.UUID, delta int64) (*LedgerEntry, error) {
	return NewLedgerEntry(subjectID, nil, delta, LedgerReasonAdjustment, nil)
}

// NewManualAdjustmentEntry records an operator correction. The delta is
// signed: positive for found stock, negative for write-offs. A nil batch ID
// is allowed for corrections that are not batch-scoped.
func NewManualAdjustmentEntry(subjectID uuid.UUID, batchID *uuid.UUID, delta int64) (*LedgerEntry, error) {
	return NewLedgerEntry(subjectID, batchID, delta, LedgerReasonManualAdjustment, nil)
}
