package inventory

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opsuite/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SubjectKind identifies what kind of stock a batch holds
type SubjectKind string

const (
	// SubjectKindProduct is sellable finished goods
	SubjectKindProduct SubjectKind = "product"
	// SubjectKindMaterial is raw material consumed by production
	SubjectKindMaterial SubjectKind = "material"
)

// IsValid checks if the subject kind is valid
func (k SubjectKind) IsValid() bool {
	switch k {
	case SubjectKindProduct, SubjectKindMaterial:
		return true
	}
	return false
}

// String returns the string representation
func (k SubjectKind) String() string {
	return string(k)
}

// LocationType identifies where a batch is held
type LocationType string

const (
	// LocationTypeShop is a point-of-sale location
	LocationTypeShop LocationType = "shop"
	// LocationTypeWarehouse is a storage location
	LocationTypeWarehouse LocationType = "warehouse"
)

// IsValid checks if the location type is valid
func (t LocationType) IsValid() bool {
	switch t {
	case LocationTypeShop, LocationTypeWarehouse:
		return true
	}
	return false
}

// String returns the string representation
func (t LocationType) String() string {
	return string(t)
}

// LocationRef scopes a query to one physical location
type LocationRef struct {
	Type LocationType
	ID   uuid.UUID
}

// BatchStatus is a cached state derived from the remaining quantity.
// The authoritative truth is always RemainingQuantity == 0.
type BatchStatus string

const (
	// BatchStatusActive means the batch still holds stock
	BatchStatusActive BatchStatus = "active"
	// BatchStatusDepleted means the batch has been fully consumed
	BatchStatusDepleted BatchStatus = "depleted"
)

// IsValid checks if the batch status is valid
func (s BatchStatus) IsValid() bool {
	switch s {
	case BatchStatusActive, BatchStatusDepleted:
		return true
	}
	return false
}

// String returns the string representation
func (s BatchStatus) String() string {
	return string(s)
}

// Batch represents one procurement event for one subject at one location.
// It is the aggregate root for stock mutations: allocation decrements it,
// reversal increments it (clamped at the original quantity), and it is never
// deleted; a depleted batch simply drops out of allocation candidate sets.
type Batch struct {
	shared.BaseAggregateRoot
	SubjectID         uuid.UUID       `gorm:"type:uuid;not null;index:idx_batch_subject"`
	SubjectKind       SubjectKind     `gorm:"type:varchar(20);not null"`
	LocationType      LocationType    `gorm:"type:varchar(20);not null;index:idx_batch_location,priority:1"`
	LocationID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_batch_location,priority:2"`
	OriginalQuantity  int64           `gorm:"not null"`
	RemainingQuantity int64           `gorm:"not null"`
	UnitCost          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status            BatchStatus     `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (Batch) TableName() string {
	return "stock_batches"
}

// NewBatch creates a new batch from a procurement event.
// The batch starts full: remaining equals original.
func NewBatch(
	subjectID uuid.UUID,
	subjectKind SubjectKind,
	locationType LocationType,
	locationID uuid.UUID,
	quantity int64,
	unitCost decimal.Decimal,
) (*Batch, error) {
	if subjectID == uuid.Nil {
		return nil, &ValidationError{Field: "subjectId", Message: "subject ID cannot be empty"}
	}
	if !subjectKind.IsValid() {
		return nil, &ValidationError{Field: "subjectKind", Message: fmt.Sprintf("unknown subject kind %q", subjectKind)}
	}
	if !locationType.IsValid() {
		return nil, &ValidationError{Field: "locationType", Message: fmt.Sprintf("unknown location type %q", locationType)}
	}
	if locationID == uuid.Nil {
		return nil, &ValidationError{Field: "locationId", Message: "location ID cannot be empty"}
	}
	if quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Message: "quantity must be positive"}
	}
	if unitCost.IsNegative() {
		return nil, &ValidationError{Field: "unitCost", Message: "unit cost cannot be negative"}
	}

	return &Batch{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SubjectID:         subjectID,
		SubjectKind:       subjectKind,
		LocationType:      locationType,
		LocationID:        locationID,
		OriginalQuantity:  quantity,
		RemainingQuantity: quantity,
		UnitCost:          unitCost,
		Status:            BatchStatusActive,
	}, nil
}

// IsActive returns true if the batch still holds stock
func (b *Batch) IsActive() bool {
	return b.RemainingQuantity > 0
}

// MatchesLocation returns true if the batch is at the given location.
// A nil filter matches every location.
func (b *Batch) MatchesLocation(loc *LocationRef) bool {
	if loc == nil {
		return true
	}
	return b.LocationType == loc.Type && b.LocationID == loc.ID
}

// Consume decrements the remaining quantity. The caller must have planned
// the draw against a snapshot, so consuming more than remains is a conflict
// of that plan with the current state, not a valid partial draw.
func (b *Batch) Consume(quantity int64) error {
	if quantity <= 0 {
		return &ValidationError{Field: "quantity", Message: "consume quantity must be positive"}
	}
	if quantity > b.RemainingQuantity {
		return &InsufficientStockError{Requested: quantity, Available: b.RemainingQuantity}
	}

	b.RemainingQuantity -= quantity
	if b.RemainingQuantity == 0 {
		b.Status = BatchStatusDepleted
	}
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return nil
}

// Restore increments the remaining quantity, clamped at the original
// quantity, and returns the quantity actually restored. Used by reversal:
// a batch can never hold more than it was procured with.
func (b *Batch) Restore(quantity int64) int64 {
	if quantity <= 0 {
		return 0
	}

	restored := quantity
	if b.RemainingQuantity+quantity > b.OriginalQuantity {
		restored = b.OriginalQuantity - b.RemainingQuantity
	}
	b.RemainingQuantity += restored
	if b.RemainingQuantity > 0 {
		b.Status = BatchStatusActive
	}
	b.UpdatedAt = time.Now()
	b.IncrementVersion()
	return restored
}

// RemainingValue returns the value of the remaining stock at the batch cost
func (b *Batch) RemainingValue() decimal.Decimal {
	return b.UnitCost.Mul(decimal.NewFromInt(b.RemainingQuantity))
}
