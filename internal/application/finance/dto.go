package finance

import (
	"time"

	"github.com/google/uuid"
	domain "github.com/opsuite/backend/internal/domain/finance"
	domaininv "github.com/opsuite/backend/internal/domain/inventory"
	"github.com/opsuite/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// SaleLineRequest is one line of a sale being recorded
type SaleLineRequest struct {
	SubjectID       uuid.UUID        `json:"subjectId" binding:"required"`
	Quantity        int64            `json:"quantity" binding:"required,gt=0"`
	ListPrice       decimal.Decimal  `json:"listPrice" binding:"required"`
	NegotiatedPrice *decimal.Decimal `json:"negotiatedPrice"`
}

// RecordSaleRequest records a sale whose lines are allocated atomically
type RecordSaleRequest struct {
	Lines    []SaleLineRequest          `json:"lines" binding:"required,min=1,dive"`
	Method   domaininv.CostingMethod    `json:"method"`
	Location *domaininv.LocationRef     `json:"location"`
}

// ConvertToCreditRequest converts a sale to credit with an amount owed
type ConvertToCreditRequest struct {
	RemainingAmount decimal.Decimal `json:"remainingAmount" binding:"required"`
}

// RefundCreditRequest refunds part of a credit sale
type RefundCreditRequest struct {
	Amount decimal.Decimal `json:"amount" binding:"required"`
}

// EntryRequest records one finance ledger entry
type EntryRequest struct {
	Kind   domain.EntryKind `json:"kind" binding:"required"`
	Amount decimal.Decimal  `json:"amount" binding:"required"`
	Label  string           `json:"label"`
}

// RefundDebtRequest records a refund against an existing debt entry
type RefundDebtRequest struct {
	DebtID uuid.UUID       `json:"debtId" binding:"required"`
	Amount decimal.Decimal `json:"amount" binding:"required"`
	Label  string          `json:"label"`
}

// SaleLineResponse is the outward view of one sale line
type SaleLineResponse struct {
	ID              uuid.UUID                          `json:"id"`
	SubjectID       uuid.UUID                          `json:"subjectId"`
	Quantity        int64                              `json:"quantity"`
	ListPrice       decimal.Decimal                    `json:"listPrice"`
	NegotiatedPrice *decimal.Decimal                   `json:"negotiatedPrice,omitempty"`
	UnitSalePrice   decimal.Decimal                    `json:"unitSalePrice"`
	AggregateCost   decimal.Decimal                    `json:"aggregateCost"`
	Profit          decimal.Decimal                    `json:"profit"`
	ProfitMargin    decimal.Decimal                    `json:"profitMargin"`
	Breakdown       domaininv.ConsumptionBreakdown     `json:"breakdown,omitempty"`
}

// SaleResponse is the outward view of one sale
type SaleResponse struct {
	ID                uuid.UUID          `json:"id"`
	Status            string             `json:"status"`
	TotalAmount       decimal.Decimal    `json:"totalAmount"`
	RemainingAmount   decimal.Decimal    `json:"remainingAmount"`
	TotalRefunded     decimal.Decimal    `json:"totalRefunded"`
	InventoryReversed bool               `json:"inventoryReversed"`
	Lines             []SaleLineResponse `json:"lines"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// NewSaleResponse maps a sale to its outward view
func NewSaleResponse(s *domain.Sale) SaleResponse {
	lines := make([]SaleLineResponse, 0, len(s.Lines))
	for i := range s.Lines {
		l := &s.Lines[i]
		lines = append(lines, SaleLineResponse{
			ID:              l.ID,
			SubjectID:       l.SubjectID,
			Quantity:        l.Quantity,
			ListPrice:       l.ListPrice,
			NegotiatedPrice: l.NegotiatedPrice,
			UnitSalePrice:   l.UnitSalePrice(),
			AggregateCost:   l.AggregateCost,
			Profit:          l.Profit,
			ProfitMargin:    l.ProfitMargin,
			Breakdown:       l.Breakdown,
		})
	}
	return SaleResponse{
		ID:                s.ID,
		Status:            s.Status.String(),
		TotalAmount:       s.TotalAmount,
		RemainingAmount:   s.RemainingAmount,
		TotalRefunded:     s.TotalRefunded,
		InventoryReversed: s.InventoryReversed,
		Lines:             lines,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

// EntryResponse is the outward view of one finance ledger entry
type EntryResponse struct {
	ID             uuid.UUID       `json:"id"`
	Kind           string          `json:"kind"`
	Amount         decimal.Decimal `json:"amount"`
	Label          string          `json:"label,omitempty"`
	RefundedDebtID *uuid.UUID      `json:"refundedDebtId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// NewEntryResponse maps a finance entry to its outward view
func NewEntryResponse(e *domain.FinanceEntry) EntryResponse {
	return EntryResponse{
		ID:             e.ID,
		Kind:           e.Kind.String(),
		Amount:         e.Amount,
		Label:          e.Label,
		RefundedDebtID: e.RefundedDebtID,
		CreatedAt:      e.CreatedAt,
	}
}

// ProfitResponse reports aggregated profit in XAF
type ProfitResponse struct {
	Profit        valueobject.Money `json:"profit"`
	Revenue       valueobject.Money `json:"revenue"`
	Cost          valueobject.Money `json:"cost"`
	Margin        decimal.Decimal   `json:"margin"`
	LineCount     int               `json:"lineCount"`
	UnpricedLines int               `json:"unpricedLines"`
}

// DebtResponse reports outstanding debt for a scope
type DebtResponse struct {
	Scope       string            `json:"scope"`
	Outstanding valueobject.Money `json:"outstanding"`
}

// BalanceResponse reports the running balance
type BalanceResponse struct {
	Balance valueobject.Money `json:"balance"`
}
