package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/opsuite/backend/internal/domain/finance"
	"github.com/opsuite/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormFinanceEntryRepository persists the append-only finance ledger
type GormFinanceEntryRepository struct {
	db *gorm.DB
}

// NewGormFinanceEntryRepository creates a finance entry repository
func NewGormFinanceEntryRepository(db *gorm.DB) *GormFinanceEntryRepository {
	return &GormFinanceEntryRepository{db: db}
}

// Append inserts one finance entry. Entries are never updated or deleted.
func (r *GormFinanceEntryRepository) Append(ctx context.Context, entry *finance.FinanceEntry) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("insert finance entry: %w", err)
	}
	return nil
}

// FindByID loads one finance entry
func (r *GormFinanceEntryRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.FinanceEntry, error) {
	var entry finance.FinanceEntry
	err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("load finance entry: %w", err)
	}
	return &entry, nil
}

// FindAll loads finance entries matching the filter
func (r *GormFinanceEntryRepository) FindAll(ctx context.Context, filter shared.Filter) ([]finance.FinanceEntry, int64, error) {
	return r.findEntries(r.db.WithContext(ctx).Model(&finance.FinanceEntry{}), filter)
}

// FindByKind loads finance entries of one kind
func (r *GormFinanceEntryRepository) FindByKind(ctx context.Context, kind finance.EntryKind, filter shared.Filter) ([]finance.FinanceEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&finance.FinanceEntry{}).Where("kind = ?", kind)
	return r.findEntries(query, filter)
}

// FindRefundsForDebt loads the refund entries referencing one debt
func (r *GormFinanceEntryRepository) FindRefundsForDebt(ctx context.Context, debtID uuid.UUID) ([]finance.FinanceEntry, error) {
	var entries []finance.FinanceEntry
	err := r.db.WithContext(ctx).
		Where("refunded_debt_id = ?", debtID).
		Order("created_at asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("load refunds: %w", err)
	}
	return entries, nil
}

func (r *GormFinanceEntryRepository) findEntries(query *gorm.DB, filter shared.Filter) ([]finance.FinanceEntry, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count finance entries: %w", err)
	}

	query = applyFilter(query, filter, "created_at asc")

	var entries []finance.FinanceEntry
	if err := query.Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("load finance entries: %w", err)
	}
	return entries, total, nil
}
