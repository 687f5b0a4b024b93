package finance

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	appinv "github.com/opsuite/backend/internal/application/inventory"
	domain "github.com/opsuite/backend/internal/domain/finance"
	domaininv "github.com/opsuite/backend/internal/domain/inventory"
	"github.com/opsuite/backend/internal/domain/shared"
	"github.com/opsuite/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockAllocator consumes stock for a sale line and reports the committed
// per-batch breakdown
type StockAllocator interface {
	Allocate(ctx context.Context, req appinv.AllocateRequest) (*appinv.AllocationResult, error)
}

// StockReverser restores a committed breakdown back to its batches
type StockReverser interface {
	Reverse(ctx context.Context, subjectID uuid.UUID, breakdown domaininv.ConsumptionBreakdown) error
}

// CostLookup supplies the latest known unit cost for a subject, used as the
// profit fallback for lines recorded without a breakdown
type CostLookup interface {
	LatestCostFor(ctx context.Context, subjectID uuid.UUID) (*decimal.Decimal, error)
}

// Service drives the sale lifecycle and the finance ledger. Inventory is
// touched only through the allocator and reverser, so a sale and its stock
// effect always move together.
type Service struct {
	sales     domain.SaleRepository
	entries   domain.FinanceEntryRepository
	allocator StockAllocator
	reverser  StockReverser
	costs     CostLookup
	logger    *zap.Logger
}

// NewService creates a finance service
func NewService(
	sales domain.SaleRepository,
	entries domain.FinanceEntryRepository,
	allocator StockAllocator,
	reverser StockReverser,
	costs CostLookup,
	logger *zap.Logger,
) *Service {
	return &Service{
		sales:     sales,
		entries:   entries,
		allocator: allocator,
		reverser:  reverser,
		costs:     costs,
		logger:    logger,
	}
}

// RecordSale records a sale and allocates stock for every line. Allocation
// is all or nothing across lines: when one line cannot be covered, the
// lines already allocated are reversed and no sale is persisted.
func (s *Service) RecordSale(ctx context.Context, req RecordSaleRequest) (*SaleResponse, error) {
	if len(req.Lines) == 0 {
		return nil, shared.NewDomainError("EMPTY_SALE", "A sale needs at least one line")
	}

	sale := domain.NewSale()

	type allocatedLine struct {
		subjectID uuid.UUID
		breakdown domaininv.ConsumptionBreakdown
	}
	allocated := make([]allocatedLine, 0, len(req.Lines))

	revert := func() {
		for i := len(allocated) - 1; i >= 0; i-- {
			a := allocated[i]
			if err := s.reverser.Reverse(ctx, a.subjectID, a.breakdown); err != nil {
				s.logger.Error("sale compensation failed",
					zap.String("subject_id", a.subjectID.String()),
					zap.Error(err))
			}
		}
	}

	for _, lr := range req.Lines {
		line, err := domain.NewSaleLine(sale.ID, lr.SubjectID, lr.Quantity, lr.ListPrice, lr.NegotiatedPrice)
		if err != nil {
			revert()
			return nil, err
		}

		result, err := s.allocator.Allocate(ctx, appinv.AllocateRequest{
			SubjectID: lr.SubjectID,
			Quantity:  lr.Quantity,
			Method:    req.Method,
			Location:  req.Location,
		})
		if err != nil {
			revert()
			return nil, err
		}
		allocated = append(allocated, allocatedLine{subjectID: lr.SubjectID, breakdown: result.Breakdown})

		if err := line.ApplyBreakdown(result.Breakdown); err != nil {
			revert()
			return nil, err
		}
		if err := sale.AddLine(*line); err != nil {
			revert()
			return nil, err
		}
	}

	if err := s.sales.Create(ctx, sale); err != nil {
		revert()
		return nil, fmt.Errorf("persist sale: %w", err)
	}

	s.logger.Info("sale recorded",
		zap.String("sale_id", sale.ID.String()),
		zap.Int("lines", len(sale.Lines)),
		zap.String("total", sale.TotalAmount.String()))

	resp := NewSaleResponse(sale)
	return &resp, nil
}

// GetSale returns one sale with its lines
func (s *Service) GetSale(ctx context.Context, id uuid.UUID) (*SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := NewSaleResponse(sale)
	return &resp, nil
}

// ListSales returns sales matching the filter
func (s *Service) ListSales(ctx context.Context, filter shared.Filter) ([]SaleResponse, int64, error) {
	sales, total, err := s.sales.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]SaleResponse, 0, len(sales))
	for i := range sales {
		out = append(out, NewSaleResponse(&sales[i]))
	}
	return out, total, nil
}

// MarkInDelivery moves an ordered sale into delivery
func (s *Service) MarkInDelivery(ctx context.Context, saleID uuid.UUID) (*SaleResponse, error) {
	return s.mutateSale(ctx, saleID, func(sale *domain.Sale) error {
		return sale.MarkInDelivery()
	})
}

// MarkPaid settles a sale
func (s *Service) MarkPaid(ctx context.Context, saleID uuid.UUID) (*SaleResponse, error) {
	return s.mutateSale(ctx, saleID, func(sale *domain.Sale) error {
		return sale.MarkPaid()
	})
}

// ConvertToCredit recognizes a sale as credit with an amount still owed
func (s *Service) ConvertToCredit(ctx context.Context, saleID uuid.UUID, req ConvertToCreditRequest) (*SaleResponse, error) {
	return s.mutateSale(ctx, saleID, func(sale *domain.Sale) error {
		return sale.ConvertToCredit(req.RemainingAmount)
	})
}

// SettleCredit fully settles a credit sale
func (s *Service) SettleCredit(ctx context.Context, saleID uuid.UUID) (*SaleResponse, error) {
	return s.mutateSale(ctx, saleID, func(sale *domain.Sale) error {
		return sale.SettleCredit()
	})
}

// RefundCredit refunds part of a credit sale; the sale closes to paid once
// nothing remains outstanding
func (s *Service) RefundCredit(ctx context.Context, saleID uuid.UUID, req RefundCreditRequest) (*SaleResponse, error) {
	return s.mutateSale(ctx, saleID, func(sale *domain.Sale) error {
		return sale.ApplyRefund(req.Amount)
	})
}

// CancelSale cancels a sale and reverses its inventory effect. Each line
// reverses at most once per sale: reversal progress is persisted line by
// line, so a cancellation that failed partway can be retried without
// crediting the already-restored batches a second time.
func (s *Service) CancelSale(ctx context.Context, saleID uuid.UUID) (*SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}

	if sale.IsCancelled() && sale.InventoryReversed {
		resp := NewSaleResponse(sale)
		return &resp, nil
	}

	if !sale.IsCancelled() {
		if err := sale.Cancel(); err != nil {
			return nil, err
		}
	}

	if !sale.InventoryReversed {
		if err := s.reverseLines(ctx, sale); err != nil {
			return nil, err
		}
		if err := sale.MarkInventoryReversed(); err != nil {
			return nil, err
		}
	}

	if err := s.sales.Update(ctx, sale); err != nil {
		return nil, fmt.Errorf("persist cancelled sale: %w", err)
	}

	s.logger.Info("sale cancelled",
		zap.String("sale_id", sale.ID.String()))

	resp := NewSaleResponse(sale)
	return &resp, nil
}

// reverseLines restores stock for every line not yet reversed, persisting
// the sale after each restored line so progress survives a failure on a
// later line.
func (s *Service) reverseLines(ctx context.Context, sale *domain.Sale) error {
	for i := range sale.Lines {
		line := &sale.Lines[i]
		if line.Reversed || !line.HasBreakdown() {
			continue
		}
		if err := s.reverser.Reverse(ctx, line.SubjectID, line.Breakdown); err != nil {
			return err
		}
		line.MarkReversed()
		if err := s.sales.Update(ctx, sale); err != nil {
			return fmt.Errorf("persist reversal progress: %w", err)
		}
	}
	return nil
}

func (s *Service) mutateSale(ctx context.Context, saleID uuid.UUID, mutate func(*domain.Sale) error) (*SaleResponse, error) {
	sale, err := s.sales.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if err := mutate(sale); err != nil {
		return nil, err
	}
	if err := s.sales.Update(ctx, sale); err != nil {
		return nil, fmt.Errorf("persist sale: %w", err)
	}
	resp := NewSaleResponse(sale)
	return &resp, nil
}

// RecordEntry appends a non-refund entry to the finance ledger
func (s *Service) RecordEntry(ctx context.Context, req EntryRequest) (*EntryResponse, error) {
	entry, err := domain.NewFinanceEntry(req.Kind, req.Amount, req.Label)
	if err != nil {
		return nil, err
	}
	if err := s.entries.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append finance entry: %w", err)
	}

	s.logger.Info("finance entry recorded",
		zap.String("entry_id", entry.ID.String()),
		zap.String("kind", entry.Kind.String()),
		zap.String("amount", entry.Amount.String()))

	resp := NewEntryResponse(entry)
	return &resp, nil
}

// RefundDebt appends a refund entry against an existing debt. The debt row
// itself is never touched; the outstanding figure is derived when read.
func (s *Service) RefundDebt(ctx context.Context, req RefundDebtRequest) (*EntryResponse, error) {
	debt, err := s.entries.FindByID(ctx, req.DebtID)
	if err != nil {
		return nil, err
	}

	entry, err := domain.NewRefundEntry(debt, req.Amount, req.Label)
	if err != nil {
		return nil, err
	}
	if err := s.entries.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append refund entry: %w", err)
	}

	s.logger.Info("debt refunded",
		zap.String("debt_id", debt.ID.String()),
		zap.String("amount", entry.Amount.String()))

	resp := NewEntryResponse(entry)
	return &resp, nil
}

// ListEntries returns finance ledger entries matching the filter
func (s *Service) ListEntries(ctx context.Context, filter shared.Filter) ([]EntryResponse, int64, error) {
	entries, total, err := s.entries.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]EntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, NewEntryResponse(&entries[i]))
	}
	return out, total, nil
}

// Profit aggregates profit across all sales. Lines without a breakdown
// fall back to the latest known cost; lines with no cost basis at all are
// counted, not guessed.
func (s *Service) Profit(ctx context.Context, filter shared.Filter) (*ProfitResponse, error) {
	sales, _, err := s.sales.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	report := domain.SaleProfit(sales, func(subjectID uuid.UUID) *decimal.Decimal {
		cost, err := s.costs.LatestCostFor(ctx, subjectID)
		if err != nil {
			s.logger.Warn("cost lookup failed",
				zap.String("subject_id", subjectID.String()),
				zap.Error(err))
			return nil
		}
		return cost
	})

	return &ProfitResponse{
		Profit:        valueobject.NewMoneyXAF(report.Profit),
		Revenue:       valueobject.NewMoneyXAF(report.Revenue),
		Cost:          valueobject.NewMoneyXAF(report.Cost),
		Margin:        report.Margin(),
		LineCount:     report.LineCount,
		UnpricedLines: report.UnpricedLines,
	}, nil
}

// OutstandingDebt sums what remains owed across debts in scope
func (s *Service) OutstandingDebt(ctx context.Context, scope domain.DebtScope) (*DebtResponse, error) {
	if !scope.IsValid() {
		return nil, shared.NewDomainError("INVALID_SCOPE", "Unknown debt scope: "+string(scope))
	}
	entries, err := s.allEntries(ctx)
	if err != nil {
		return nil, err
	}
	return &DebtResponse{
		Scope:       string(scope),
		Outstanding: valueobject.NewMoneyXAF(domain.TotalOutstanding(entries, scope)),
	}, nil
}

// Balance computes the running balance from the full finance ledger
func (s *Service) Balance(ctx context.Context) (*BalanceResponse, error) {
	entries, err := s.allEntries(ctx)
	if err != nil {
		return nil, err
	}
	return &BalanceResponse{Balance: valueobject.NewMoneyXAF(domain.RunningBalance(entries))}, nil
}

func (s *Service) allEntries(ctx context.Context) ([]domain.FinanceEntry, error) {
	entries, _, err := s.entries.FindAll(ctx, shared.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load finance entries: %w", err)
	}
	return entries, nil
}
