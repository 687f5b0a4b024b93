package inventory

import (
	"time"

	"github.com/google/uuid"
	domain "github.com/opsuite/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// CreateBatchRequest describes a procurement event opening a new batch
type CreateBatchRequest struct {
	SubjectID    uuid.UUID           `json:"subjectId" binding:"required"`
	SubjectKind  domain.SubjectKind  `json:"subjectKind" binding:"required"`
	LocationType domain.LocationType `json:"locationType" binding:"required"`
	LocationID   uuid.UUID           `json:"locationId" binding:"required"`
	Quantity     int64               `json:"quantity" binding:"required,gt=0"`
	UnitCost     decimal.Decimal     `json:"unitCost" binding:"required"`
}

// AllocateRequest asks for stock to be consumed for one subject.
// The subject comes from the URL, not the body.
type AllocateRequest struct {
	SubjectID uuid.UUID            `json:"-"`
	Quantity  int64                `json:"quantity" binding:"required,gt=0"`
	Method    domain.CostingMethod `json:"method"`
	Location  *domain.LocationRef  `json:"location"`
}

// AdjustBatchRequest corrects a batch's remaining quantity by a signed delta
type AdjustBatchRequest struct {
	BatchID uuid.UUID `json:"-"`
	Delta   int64     `json:"delta" binding:"required"`
}

// DamageRequest writes off damaged stock from one batch
type DamageRequest struct {
	BatchID  uuid.UUID `json:"-"`
	Quantity int64     `json:"quantity" binding:"required,gt=0"`
}

// BatchResponse is the outward view of one batch
type BatchResponse struct {
	ID                uuid.UUID       `json:"id"`
	SubjectID         uuid.UUID       `json:"subjectId"`
	SubjectKind       string          `json:"subjectKind"`
	LocationType      string          `json:"locationType"`
	LocationID        uuid.UUID       `json:"locationId"`
	OriginalQuantity  int64           `json:"originalQuantity"`
	RemainingQuantity int64           `json:"remainingQuantity"`
	UnitCost          decimal.Decimal `json:"unitCost"`
	Status            string          `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// NewBatchResponse maps a batch to its outward view
func NewBatchResponse(b *domain.Batch) BatchResponse {
	return BatchResponse{
		ID:                b.ID,
		SubjectID:         b.SubjectID,
		SubjectKind:       b.SubjectKind.String(),
		LocationType:      b.LocationType.String(),
		LocationID:        b.LocationID,
		OriginalQuantity:  b.OriginalQuantity,
		RemainingQuantity: b.RemainingQuantity,
		UnitCost:          b.UnitCost,
		Status:            b.Status.String(),
		CreatedAt:         b.CreatedAt,
	}
}

// AllocationResult reports a committed (or previewed) consumption
type AllocationResult struct {
	SubjectID    uuid.UUID                  `json:"subjectId"`
	Method       domain.CostingMethod       `json:"method"`
	Quantity     int64                      `json:"quantity"`
	TotalCost    decimal.Decimal            `json:"totalCost"`
	PoolUnitCost *decimal.Decimal           `json:"poolUnitCost,omitempty"`
	Breakdown    domain.ConsumptionBreakdown `json:"breakdown"`
}

// LedgerEntryResponse is the outward view of one ledger row
type LedgerEntryResponse struct {
	ID        uuid.UUID        `json:"id"`
	SubjectID uuid.UUID        `json:"subjectId"`
	BatchID   *uuid.UUID       `json:"batchId,omitempty"`
	Delta     int64            `json:"delta"`
	Reason    string           `json:"reason"`
	UnitCost  *decimal.Decimal `json:"unitCost,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// NewLedgerEntryResponse maps a ledger entry to its outward view
func NewLedgerEntryResponse(e *domain.LedgerEntry) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:        e.ID,
		SubjectID: e.SubjectID,
		BatchID:   e.BatchID,
		Delta:     e.Delta,
		Reason:    e.Reason.String(),
		UnitCost:  e.UnitCost,
		CreatedAt: e.CreatedAt,
	}
}

// StockResponse reports the effective stock of one subject
type StockResponse struct {
	SubjectID      uuid.UUID           `json:"subjectId"`
	Location       *domain.LocationRef `json:"location,omitempty"`
	EffectiveStock int64               `json:"effectiveStock"`
}
