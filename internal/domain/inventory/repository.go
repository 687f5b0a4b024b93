package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/opsuite/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BatchRepository is the authoritative store for batches. Implementations
// must make UpdateQuantityWithVersion a single atomic conditional write:
// the engine's allocate/reverse retry loops depend on it reporting
// shared.ErrConcurrencyConflict instead of clobbering a concurrent writer.
type BatchRepository interface {
	// Create persists a new batch
	Create(ctx context.Context, batch *Batch) error
	// FindByID finds a batch by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Batch, error)
	// FindActiveBySubject returns the allocation candidate set: batches for
	// the subject with remaining stock, optionally scoped to a location,
	// ordered by creation time then ID for a stable FIFO baseline
	FindActiveBySubject(ctx context.Context, subjectID uuid.UUID, loc *LocationRef) ([]Batch, error)
	// FindBySubject returns all batches for a subject, depleted included
	FindBySubject(ctx context.Context, subjectID uuid.UUID, filter shared.Filter) ([]Batch, error)
	// UpdateQuantityWithVersion persists a quantity mutation guarded by the
	// batch's previous version. Returns shared.ErrConcurrencyConflict when
	// another writer got there first.
	UpdateQuantityWithVersion(ctx context.Context, batch *Batch) error
}

// LedgerRepository is the append-only store for ledger entries
type LedgerRepository interface {
	// Append writes one immutable entry
	Append(ctx context.Context, entry *LedgerEntry) error
	// LatestCostFor returns the unit cost of the most recent entry for the
	// subject that carries one, or nil when the subject has no priced entry.
	// This is the fallback cost basis for sale lines without a breakdown.
	LatestCostFor(ctx context.Context, subjectID uuid.UUID) (*decimal.Decimal, error)
	// AverageCostFor returns the delta-weighted average cost over inbound
	// entries (delta > 0) that carry a cost, or nil when there are none
	AverageCostFor(ctx context.Context, subjectID uuid.UUID) (*decimal.Decimal, error)
	// FindBySubject returns the entries for a subject, most recent first
	FindBySubject(ctx context.Context, subjectID uuid.UUID, filter shared.Filter) ([]LedgerEntry, error)
	// FindByBatch returns the entries touching one batch, oldest first
	FindByBatch(ctx context.Context, batchID uuid.UUID) ([]LedgerEntry, error)
}
