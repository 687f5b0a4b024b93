package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opsuite/backend/internal/domain/inventory"
	"github.com/opsuite/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormBatchRepository persists batches with gorm
type GormBatchRepository struct {
	db *gorm.DB
}

// NewGormBatchRepository creates a batch repository
func NewGormBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// Create inserts a new batch
func (r *GormBatchRepository) Create(ctx context.Context, batch *inventory.Batch) error {
	if err := r.db.WithContext(ctx).Create(batch).Error; err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// FindByID loads one batch
func (r *GormBatchRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.Batch, error) {
	var batch inventory.Batch
	err := r.db.WithContext(ctx).First(&batch, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("load batch: %w", err)
	}
	return &batch, nil
}

// FindActiveBySubject loads the active batches of one subject, oldest
// first. The secondary order on ID keeps the sequence deterministic for
// batches created in the same instant.
func (r *GormBatchRepository) FindActiveBySubject(ctx context.Context, subjectID uuid.UUID, loc *inventory.LocationRef) ([]inventory.Batch, error) {
	query := r.db.WithContext(ctx).
		Where("subject_id = ? AND status = ?", subjectID, inventory.BatchStatusActive)
	if loc != nil {
		query = query.Where("location_type = ? AND location_id = ?", loc.Type, loc.ID)
	}

	var batches []inventory.Batch
	if err := query.Order("created_at asc, id asc").Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("load active batches: %w", err)
	}
	return batches, nil
}

// FindBySubject loads batches of one subject, depleted ones included
func (r *GormBatchRepository) FindBySubject(ctx context.Context, subjectID uuid.UUID, filter shared.Filter) ([]inventory.Batch, error) {
	query := r.db.WithContext(ctx).Where("subject_id = ?", subjectID)
	query = applyFilter(query, filter, "created_at asc, id asc")

	var batches []inventory.Batch
	if err := query.Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}
	return batches, nil
}

// UpdateQuantityWithVersion persists a batch's quantity mutation guarded by
// the version the mutation was planned against. The batch arrives with its
// version already incremented, so the guard matches version-1; zero rows
// affected means another writer got there first.
func (r *GormBatchRepository) UpdateQuantityWithVersion(ctx context.Context, batch *inventory.Batch) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.Batch{}).
		Where("id = ? AND version = ?", batch.ID, batch.Version-1).
		Updates(map[string]interface{}{
			"remaining_quantity": batch.RemainingQuantity,
			"status":             batch.Status,
			"version":            batch.Version,
			"updated_at":         time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("update batch quantity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// applyFilter applies pagination and ordering to a query. A zero page size
// means no pagination; defaultOrder is used when the filter names none.
func applyFilter(query *gorm.DB, filter shared.Filter, defaultOrder string) *gorm.DB {
	if filter.OrderBy != "" {
		dir := "asc"
		if filter.OrderDir == "desc" {
			dir = "desc"
		}
		query = query.Order(filter.OrderBy + " " + dir)
	} else if defaultOrder != "" {
		query = query.Order(defaultOrder)
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	return query
}
