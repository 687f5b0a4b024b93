package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	domain "github.com/opsuite/backend/internal/domain/inventory"
	"go.uber.org/zap"
)

// ErrStockNotCached is returned by a StockCache when no value is held for
// the subject
var ErrStockNotCached = errors.New("stock not cached")

// StockCache holds a derived copy of the effective stock for fast reads.
// It is never authoritative: the batches are, and every write path here
// recomputes from them.
type StockCache interface {
	GetEffectiveStock(ctx context.Context, subjectID uuid.UUID) (int64, error)
	SetEffectiveStock(ctx context.Context, subjectID uuid.UUID, quantity int64) error
	Invalidate(ctx context.Context, subjectID uuid.UUID) error
}

// StockSyncCoordinator keeps the cached stock figure in step with the
// batches. Display surfaces read through it; allocation never does.
type StockSyncCoordinator struct {
	batches domain.BatchRepository
	cache   StockCache
	logger  *zap.Logger
}

// NewStockSyncCoordinator creates a coordinator
func NewStockSyncCoordinator(batches domain.BatchRepository, cache StockCache, logger *zap.Logger) *StockSyncCoordinator {
	return &StockSyncCoordinator{batches: batches, cache: cache, logger: logger}
}

// Refresh recomputes a subject's effective stock from its active batches
// and writes it to the cache
func (c *StockSyncCoordinator) Refresh(ctx context.Context, subjectID uuid.UUID) (int64, error) {
	batches, err := c.batches.FindActiveBySubject(ctx, subjectID, nil)
	if err != nil {
		return 0, fmt.Errorf("recompute stock: %w", err)
	}
	stock := domain.EffectiveStock(batches, nil)

	if err := c.cache.SetEffectiveStock(ctx, subjectID, stock); err != nil {
		// stale cache is tolerable, a failed write must not fail the caller
		c.logger.Warn("stock cache write failed",
			zap.String("subject_id", subjectID.String()),
			zap.Error(err))
	}
	return stock, nil
}

// CachedEffectiveStock returns the cached figure when one is held,
// recomputing and repopulating on a miss
func (c *StockSyncCoordinator) CachedEffectiveStock(ctx context.Context, subjectID uuid.UUID) (int64, error) {
	stock, err := c.cache.GetEffectiveStock(ctx, subjectID)
	if err == nil {
		return stock, nil
	}
	if !errors.Is(err, ErrStockNotCached) {
		c.logger.Warn("stock cache read failed",
			zap.String("subject_id", subjectID.String()),
			zap.Error(err))
	}
	return c.Refresh(ctx, subjectID)
}

// Invalidate drops the cached figure for a subject. Mutating paths call it
// after committing so the next read recomputes.
func (c *StockSyncCoordinator) Invalidate(ctx context.Context, subjectID uuid.UUID) {
	if err := c.cache.Invalidate(ctx, subjectID); err != nil {
		c.logger.Warn("stock cache invalidation failed",
			zap.String("subject_id", subjectID.String()),
			zap.Error(err))
	}
}
