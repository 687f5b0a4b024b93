package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	domain "github.com/opsuite/backend/internal/domain/inventory"
	"github.com/opsuite/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const defaultMaxRetries = 3

// Service coordinates batch mutations with the stock ledger. Every
// quantity change goes through a version-guarded batch update, and every
// committed change leaves a ledger entry behind.
type Service struct {
	batches    domain.BatchRepository
	ledger     domain.LedgerRepository
	logger     *zap.Logger
	method     domain.CostingMethod
	maxRetries int
}

// Option configures a Service
type Option func(*Service)

// WithCostingMethod sets the costing method used when a request does not
// name one
func WithCostingMethod(method domain.CostingMethod) Option {
	return func(s *Service) {
		if method.IsValid() {
			s.method = method
		}
	}
}

// WithMaxRetries bounds how often an allocation is re-planned after a
// concurrent update invalidated its snapshot
func WithMaxRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// NewService creates an inventory service
func NewService(batches domain.BatchRepository, ledger domain.LedgerRepository, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		batches:    batches,
		ledger:     ledger,
		logger:     logger,
		method:     domain.CostingMethodFIFO,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBatch opens a new batch for a procurement event and records it in
// the ledger
func (s *Service) CreateBatch(ctx context.Context, req CreateBatchRequest) (*BatchResponse, error) {
	batch, err := domain.NewBatch(req.SubjectID, req.SubjectKind, req.LocationType, req.LocationID, req.Quantity, req.UnitCost)
	if err != nil {
		return nil, err
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	entry, err := domain.NewCreationEntry(batch)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append creation entry: %w", err)
	}

	s.logger.Info("batch created",
		zap.String("batch_id", batch.ID.String()),
		zap.String("subject_id", batch.SubjectID.String()),
		zap.Int64("quantity", batch.OriginalQuantity))

	resp := NewBatchResponse(batch)
	return &resp, nil
}

// Restock opens a new batch for a later procurement of an already-stocked
// subject. Restocks never top up an existing batch: each procurement keeps
// its own cost.
func (s *Service) Restock(ctx context.Context, req CreateBatchRequest) (*BatchResponse, error) {
	batch, err := domain.NewBatch(req.SubjectID, req.SubjectKind, req.LocationType, req.LocationID, req.Quantity, req.UnitCost)
	if err != nil {
		return nil, err
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("create restock batch: %w", err)
	}

	entry, err := domain.NewRestockEntry(batch)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append restock entry: %w", err)
	}

	s.logger.Info("batch restocked",
		zap.String("batch_id", batch.ID.String()),
		zap.String("subject_id", batch.SubjectID.String()),
		zap.Int64("quantity", batch.OriginalQuantity))

	resp := NewBatchResponse(batch)
	return &resp, nil
}

// EffectiveStock returns the live stock for a subject, summed from active
// batches, optionally scoped to one location
func (s *Service) EffectiveStock(ctx context.Context, subjectID uuid.UUID, loc *domain.LocationRef) (int64, error) {
	batches, err := s.batches.FindActiveBySubject(ctx, subjectID, loc)
	if err != nil {
		return 0, fmt.Errorf("load active batches: %w", err)
	}
	return domain.EffectiveStock(batches, loc), nil
}

// GetBatch returns one batch by ID
func (s *Service) GetBatch(ctx context.Context, id uuid.UUID) (*BatchResponse, error) {
	batch, err := s.batches.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := NewBatchResponse(batch)
	return &resp, nil
}

// ListBatches returns the batches of one subject, depleted ones included
func (s *Service) ListBatches(ctx context.Context, subjectID uuid.UUID, filter shared.Filter) ([]BatchResponse, error) {
	batches, err := s.batches.FindBySubject(ctx, subjectID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]BatchResponse, 0, len(batches))
	for i := range batches {
		out = append(out, NewBatchResponse(&batches[i]))
	}
	return out, nil
}

// History returns the ledger entries of one subject
func (s *Service) History(ctx context.Context, subjectID uuid.UUID, filter shared.Filter) ([]LedgerEntryResponse, error) {
	entries, err := s.ledger.FindBySubject(ctx, subjectID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, NewLedgerEntryResponse(&entries[i]))
	}
	return out, nil
}

// PreviewAllocation plans a consumption without committing anything. The
// preview is advisory only: a concurrent allocation can invalidate it.
func (s *Service) PreviewAllocation(ctx context.Context, req AllocateRequest) (*AllocationResult, error) {
	method, err := s.resolveMethod(req.Method)
	if err != nil {
		return nil, err
	}
	candidates, err := s.batches.FindActiveBySubject(ctx, req.SubjectID, req.Location)
	if err != nil {
		return nil, fmt.Errorf("load allocation candidates: %w", err)
	}
	plan, err := domain.PlanConsumption(method, req.Quantity, candidates)
	if err != nil {
		return nil, err
	}
	return s.resultFromPlan(req, plan), nil
}

// Allocate consumes stock for one subject under the requested costing
// method and returns the per-batch breakdown that was committed.
//
// Each batch write is guarded by the version read at planning time. When a
// concurrent writer invalidates the snapshot, already-applied draws are
// rolled back and the whole allocation is re-planned against fresh state,
// up to the retry bound. The breakdown therefore describes exactly what
// happened to the batches, or nothing happened at all.
func (s *Service) Allocate(ctx context.Context, req AllocateRequest) (*AllocationResult, error) {
	method, err := s.resolveMethod(req.Method)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		candidates, err := s.batches.FindActiveBySubject(ctx, req.SubjectID, req.Location)
		if err != nil {
			return nil, fmt.Errorf("load allocation candidates: %w", err)
		}

		plan, err := domain.PlanConsumption(method, req.Quantity, candidates)
		if err != nil {
			return nil, err
		}

		applied, err := s.applyPlan(ctx, candidates, plan)
		if err != nil {
			s.rollbackApplied(ctx, req.SubjectID, applied)
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				lastErr = err
				s.logger.Warn("allocation snapshot invalidated, replanning",
					zap.String("subject_id", req.SubjectID.String()),
					zap.Int("attempt", attempt+1))
				continue
			}
			return nil, err
		}

		for _, record := range plan.Records {
			entry, err := domain.NewConsumptionEntry(req.SubjectID, record)
			if err != nil {
				return nil, err
			}
			if err := s.ledger.Append(ctx, entry); err != nil {
				return nil, fmt.Errorf("append consumption entry: %w", err)
			}
		}

		s.logger.Info("stock allocated",
			zap.String("subject_id", req.SubjectID.String()),
			zap.String("method", method.String()),
			zap.Int64("quantity", req.Quantity),
			zap.Int("batches", len(plan.Records)))

		return s.resultFromPlan(req, plan), nil
	}

	return nil, fmt.Errorf("allocation retries exhausted for subject %s: %w", req.SubjectID, lastErr)
}

// appliedDraw remembers one committed batch decrement so a failed
// allocation can be compensated
type appliedDraw struct {
	batchID  uuid.UUID
	quantity int64
}

func (s *Service) applyPlan(ctx context.Context, candidates []domain.Batch, plan *domain.ConsumptionPlan) ([]appliedDraw, error) {
	byID := make(map[uuid.UUID]*domain.Batch, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = &candidates[i]
	}

	applied := make([]appliedDraw, 0, len(plan.Records))
	for _, record := range plan.Records {
		batch, ok := byID[record.BatchID]
		if !ok {
			return applied, shared.NewDomainError("PLAN_BATCH_MISSING", "Planned batch is not among the candidates")
		}
		if err := batch.Consume(record.ConsumedQuantity); err != nil {
			return applied, err
		}
		if err := s.batches.UpdateQuantityWithVersion(ctx, batch); err != nil {
			return applied, err
		}
		applied = append(applied, appliedDraw{batchID: batch.ID, quantity: record.ConsumedQuantity})
	}
	return applied, nil
}

// rollbackApplied restores draws that were committed before an allocation
// failed. Compensation is best effort per batch but retried on version
// conflicts, and anything that still cannot be restored is logged loudly.
func (s *Service) rollbackApplied(ctx context.Context, subjectID uuid.UUID, applied []appliedDraw) {
	for i := len(applied) - 1; i >= 0; i-- {
		draw := applied[i]
		err := s.mutateBatch(ctx, draw.batchID, func(b *domain.Batch) error {
			b.Restore(draw.quantity)
			return nil
		})
		if err != nil {
			s.logger.Error("allocation rollback failed",
				zap.String("subject_id", subjectID.String()),
				zap.String("batch_id", draw.batchID.String()),
				zap.Int64("quantity", draw.quantity),
				zap.Error(err))
		}
	}
}

// Reverse restores a committed consumption breakdown to its batches and
// records the restores in the ledger. Restores clamp at each batch's
// original quantity; a missing batch fails the reversal with the batch
// identified in the error.
func (s *Service) Reverse(ctx context.Context, subjectID uuid.UUID, breakdown domain.ConsumptionBreakdown) error {
	for _, record := range breakdown {
		var restored int64
		err := s.mutateBatch(ctx, record.BatchID, func(b *domain.Batch) error {
			restored = b.Restore(record.ConsumedQuantity)
			return nil
		})
		if err != nil {
			return &domain.ReversalError{BatchID: record.BatchID, Cause: err}
		}
		if restored == 0 {
			continue
		}

		entry, err := domain.NewReversalEntry(subjectID, record.BatchID, restored)
		if err != nil {
			return &domain.ReversalError{BatchID: record.BatchID, Cause: err}
		}
		if err := s.ledger.Append(ctx, entry); err != nil {
			return &domain.ReversalError{BatchID: record.BatchID, Cause: err}
		}
	}

	s.logger.Info("consumption reversed",
		zap.String("subject_id", subjectID.String()),
		zap.Int("batches", len(breakdown)))
	return nil
}

// RecordDamage writes off damaged stock from one batch
func (s *Service) RecordDamage(ctx context.Context, req DamageRequest) error {
	var subjectID uuid.UUID
	err := s.mutateBatch(ctx, req.BatchID, func(b *domain.Batch) error {
		subjectID = b.SubjectID
		return b.Consume(req.Quantity)
	})
	if err != nil {
		return err
	}

	entry, err := domain.NewDamageEntry(subjectID, req.BatchID, req.Quantity)
	if err != nil {
		return err
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return fmt.Errorf("append damage entry: %w", err)
	}

	s.logger.Info("damage recorded",
		zap.String("batch_id", req.BatchID.String()),
		zap.Int64("quantity", req.Quantity))
	return nil
}

// AdjustBatch applies a signed correction to one batch. Positive deltas
// clamp at the batch's original quantity and the ledger records what was
// actually applied.
func (s *Service) AdjustBatch(ctx context.Context, req AdjustBatchRequest) error {
	if req.Delta == 0 {
		return shared.NewDomainError("INVALID_ADJUSTMENT", "Adjustment delta cannot be zero")
	}

	var subjectID uuid.UUID
	var applied int64
	err := s.mutateBatch(ctx, req.BatchID, func(b *domain.Batch) error {
		subjectID = b.SubjectID
		if req.Delta > 0 {
			applied = b.Restore(req.Delta)
			return nil
		}
		applied = req.Delta
		return b.Consume(-req.Delta)
	})
	if err != nil {
		return err
	}
	if applied == 0 {
		return nil
	}

	batchID := req.BatchID
	entry, err := domain.NewManualAdjustmentEntry(subjectID, &batchID, applied)
	if err != nil {
		return err
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return fmt.Errorf("append adjustment entry: %w", err)
	}

	s.logger.Info("batch adjusted",
		zap.String("batch_id", req.BatchID.String()),
		zap.Int64("delta", applied))
	return nil
}

// RecordAdjustment appends a subject-level correction to the ledger
// without touching any batch. Used when stock history must reflect a
// correction that happened outside batch accounting.
func (s *Service) RecordAdjustment(ctx context.Context, subjectID uuid.UUID, delta int64) error {
	entry, err := domain.NewAdjustmentEntry(subjectID, delta)
	if err != nil {
		return err
	}
	if err := s.ledger.Append(ctx, entry); err != nil {
		return fmt.Errorf("append adjustment entry: %w", err)
	}

	s.logger.Info("subject adjustment recorded",
		zap.String("subject_id", subjectID.String()),
		zap.Int64("delta", delta))
	return nil
}

// mutateBatch loads a batch, applies the mutation and persists it with a
// version guard, re-fetching and re-applying on conflict up to the retry
// bound.
func (s *Service) mutateBatch(ctx context.Context, batchID uuid.UUID, mutate func(*domain.Batch) error) error {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		batch, err := s.batches.FindByID(ctx, batchID)
		if err != nil {
			return err
		}
		if err := mutate(batch); err != nil {
			return err
		}
		err = s.batches.UpdateQuantityWithVersion(ctx, batch)
		if err == nil {
			return nil
		}
		if !errors.Is(err, shared.ErrConcurrencyConflict) {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("batch update retries exhausted for %s: %w", batchID, lastErr)
}

// resolveMethod picks the costing method for a request. Only an absent
// method falls back to the service default; a named but unknown method is
// rejected before anything is read or written.
func (s *Service) resolveMethod(method domain.CostingMethod) (domain.CostingMethod, error) {
	if method == "" {
		return s.method, nil
	}
	if !method.IsValid() {
		return "", &domain.ValidationError{Field: "method", Message: fmt.Sprintf("unknown costing method %q", method)}
	}
	return method, nil
}

func (s *Service) resultFromPlan(req AllocateRequest, plan *domain.ConsumptionPlan) *AllocationResult {
	result := &AllocationResult{
		SubjectID: req.SubjectID,
		Method:    plan.Method,
		Quantity:  req.Quantity,
		TotalCost: plan.TotalCost,
		Breakdown: plan.Records,
	}
	if plan.Method == domain.CostingMethodCMUP {
		pool := plan.PoolUnitCost
		result.PoolUnitCost = &pool
	}
	return result
}
