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

// GormSaleRepository persists sales and their lines with gorm
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a sale repository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

// Create inserts a sale with its lines in one transaction
func (r *GormSaleRepository) Create(ctx context.Context, sale *finance.Sale) error {
	if err := r.db.WithContext(ctx).Create(sale).Error; err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

// Update saves a sale and its lines
func (r *GormSaleRepository) Update(ctx context.Context, sale *finance.Sale) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(sale).Error; err != nil {
			return err
		}
		for i := range sale.Lines {
			if err := tx.Save(&sale.Lines[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}
	return nil
}

// FindByID loads one sale with its lines
func (r *GormSaleRepository) FindByID(ctx context.Context, id uuid.UUID) (*finance.Sale, error) {
	var sale finance.Sale
	err := r.db.WithContext(ctx).Preload("Lines").First(&sale, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("load sale: %w", err)
	}
	return &sale, nil
}

// FindAll loads sales matching the filter, newest first by default
func (r *GormSaleRepository) FindAll(ctx context.Context, filter shared.Filter) ([]finance.Sale, int64, error) {
	return r.findSales(ctx, r.db.WithContext(ctx).Model(&finance.Sale{}), filter)
}

// FindByStatus loads sales in one status
func (r *GormSaleRepository) FindByStatus(ctx context.Context, status finance.SaleStatus, filter shared.Filter) ([]finance.Sale, int64, error) {
	query := r.db.WithContext(ctx).Model(&finance.Sale{}).Where("status = ?", status)
	return r.findSales(ctx, query, filter)
}

func (r *GormSaleRepository) findSales(ctx context.Context, query *gorm.DB, filter shared.Filter) ([]finance.Sale, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count sales: %w", err)
	}

	query = applyFilter(query, filter, "created_at desc")

	var sales []finance.Sale
	if err := query.Preload("Lines").Find(&sales).Error; err != nil {
		return nil, 0, fmt.Errorf("load sales: %w", err)
	}
	return sales, total, nil
}
