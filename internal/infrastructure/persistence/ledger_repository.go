package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/opsuite/backend/internal/domain/inventory"
	"github.com/opsuite/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedgerRepository persists the append-only stock ledger with gorm
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a ledger repository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Append inserts one ledger entry. Entries are never updated or deleted.
func (r *GormLedgerRepository) Append(ctx context.Context, entry *inventory.LedgerEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// LatestCostFor returns the most recent unit cost recorded for a subject,
// nil when no cost-bearing entry exists
func (r *GormLedgerRepository) LatestCostFor(ctx context.Context, subjectID uuid.UUID) (*decimal.Decimal, error) {
	var entry inventory.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("subject_id = ? AND unit_cost IS NOT NULL", subjectID).
		Order("created_at desc, id desc").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest cost: %w", err)
	}
	return entry.UnitCost, nil
}

// AverageCostFor returns the quantity-weighted average cost over a
// subject's inbound entries, nil when nothing was ever received
func (r *GormLedgerRepository) AverageCostFor(ctx context.Context, subjectID uuid.UUID) (*decimal.Decimal, error) {
	var row struct {
		TotalCost decimal.Decimal
		TotalQty  int64
	}
	err := r.db.WithContext(ctx).
		Model(&inventory.LedgerEntry{}).
		Select("COALESCE(SUM(unit_cost * delta), 0) as total_cost, COALESCE(SUM(delta), 0) as total_qty").
		Where("subject_id = ? AND unit_cost IS NOT NULL AND delta > 0", subjectID).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("compute average cost: %w", err)
	}
	if row.TotalQty == 0 {
		return nil, nil
	}
	avg := row.TotalCost.Div(decimal.NewFromInt(row.TotalQty)).Round(4)
	return &avg, nil
}

// FindBySubject loads a subject's ledger entries, newest first
func (r *GormLedgerRepository) FindBySubject(ctx context.Context, subjectID uuid.UUID, filter shared.Filter) ([]inventory.LedgerEntry, error) {
	query := r.db.WithContext(ctx).Where("subject_id = ?", subjectID)
	query = applyFilter(query, filter, "created_at desc, id desc")

	var entries []inventory.LedgerEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("load ledger entries: %w", err)
	}
	return entries, nil
}

// FindByBatch loads the entries touching one batch, oldest first
func (r *GormLedgerRepository) FindByBatch(ctx context.Context, batchID uuid.UUID) ([]inventory.LedgerEntry, error) {
	var entries []inventory.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("batch_id = ?", batchID).
		Order("created_at asc, id asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load batch ledger entries: %w", err)
	}
	return entries, nil
}
