package finance

import (
	"context"

	"github.com/google/uuid"
	"github.com/opsuite/backend/internal/domain/shared"
)

// SaleRepository persists sale aggregates together with their lines
type SaleRepository interface {
	Create(ctx context.Context, sale *Sale) error
	Update(ctx context.Context, sale *Sale) error
	FindByID(ctx context.Context, id uuid.UUID) (*Sale, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Sale, int64, error)
	FindByStatus(ctx context.Context, status SaleStatus, filter shared.Filter) ([]Sale, int64, error)
}

// FinanceEntryRepository persists the append-only finance ledger
type FinanceEntryRepository interface {
	Append(ctx context.Context, entry *FinanceEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*FinanceEntry, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]FinanceEntry, int64, error)
	FindByKind(ctx context.Context, kind EntryKind, filter shared.Filter) ([]FinanceEntry, int64, error)
	FindRefundsForDebt(ctx context.Context, debtID uuid.UUID) ([]FinanceEntry, error)
}
