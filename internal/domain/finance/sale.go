package finance

import (
	"time"

	"github.com/google/uuid"
	"github.com/opsuite/backend/internal/domain/inventory"
	"github.com/opsuite/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SaleStatus represents where a sale sits in its lifecycle
type SaleStatus string

const (
	// SaleStatusOrdered is a recorded sale awaiting delivery or payment
	SaleStatusOrdered SaleStatus = "ordered"
	// SaleStatusInDelivery is a sale whose goods are on their way
	SaleStatusInDelivery SaleStatus = "in_delivery"
	// SaleStatusPaid is a fully settled sale
	SaleStatusPaid SaleStatus = "paid"
	// SaleStatusCredit is revenue recognized before full payment
	SaleStatusCredit SaleStatus = "credit"
	// SaleStatusCancelled is a terminal state; inventory has been reversed
	SaleStatusCancelled SaleStatus = "cancelled"
)

// IsValid checks if the status is a valid SaleStatus
func (s SaleStatus) IsValid() bool {
	switch s {
	case SaleStatusOrdered, SaleStatusInDelivery, SaleStatusPaid, SaleStatusCredit, SaleStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation
func (s SaleStatus) String() string {
	return string(s)
}

// IsTerminal returns true when no further transition is allowed
func (s SaleStatus) IsTerminal() bool {
	return s == SaleStatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status
func (s SaleStatus) CanTransitionTo(target SaleStatus) bool {
	switch s {
	case SaleStatusOrdered:
		return target == SaleStatusInDelivery || target == SaleStatusPaid ||
			target == SaleStatusCredit || target == SaleStatusCancelled
	case SaleStatusInDelivery:
		return target == SaleStatusPaid || target == SaleStatusCancelled
	case SaleStatusPaid:
		return target == SaleStatusCredit
	case SaleStatusCredit:
		return target == SaleStatusPaid || target == SaleStatusCancelled
	case SaleStatusCancelled:
		return false
	}
	return false
}

// SaleLine is one subject sold at a price, with the per-batch consumption
// breakdown recorded at allocation time. The breakdown is what makes the
// line's cost auditable and its consumption exactly reversible.
type SaleLine struct {
	ID              uuid.UUID                       `gorm:"type:uuid;primaryKey"`
	SaleID          uuid.UUID                       `gorm:"type:uuid;not null;index"`
	SubjectID       uuid.UUID                       `gorm:"type:uuid;not null;index"`
	Quantity        int64                           `gorm:"not null"`
	ListPrice       decimal.Decimal                 `gorm:"type:decimal(18,4);not null"`
	NegotiatedPrice *decimal.Decimal                `gorm:"type:decimal(18,4)"`
	AggregateCost   decimal.Decimal                 `gorm:"type:decimal(18,4);not null"`
	Profit          decimal.Decimal                 `gorm:"type:decimal(18,4);not null"`
	ProfitMargin    decimal.Decimal                 `gorm:"type:decimal(18,4);not null"`
	Breakdown       inventory.ConsumptionBreakdown  `gorm:"type:jsonb"`
	Reversed        bool                            `gorm:"not null;default:false"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName returns the table name for GORM
func (SaleLine) TableName() string {
	return "sale_lines"
}

// NewSaleLine creates a validated sale line. The breakdown, if any, is
// applied afterwards by ApplyBreakdown once allocation committed.
func NewSaleLine(saleID, subjectID uuid.UUID, quantity int64, listPrice decimal.Decimal, negotiatedPrice *decimal.Decimal) (*SaleLine, error) {
	if subjectID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_SUBJECT", "Subject ID cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if listPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "List price cannot be negative")
	}
	if negotiatedPrice != nil && negotiatedPrice.IsNegative() {
		return nil, shared.NewDomainError("INVALID_PRICE", "Negotiated price cannot be negative")
	}

	now := time.Now()
	return &SaleLine{
		ID:              uuid.New(),
		SaleID:          saleID,
		SubjectID:       subjectID,
		Quantity:        quantity,
		ListPrice:       listPrice,
		NegotiatedPrice: negotiatedPrice,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// UnitSalePrice returns the negotiated price when one was agreed,
// otherwise the list price
func (l *SaleLine) UnitSalePrice() decimal.Decimal {
	if l.NegotiatedPrice != nil {
		return *l.NegotiatedPrice
	}
	return l.ListPrice
}

// LineTotal returns quantity times the effective unit price
func (l *SaleLine) LineTotal() decimal.Decimal {
	return l.UnitSalePrice().Mul(decimal.NewFromInt(l.Quantity))
}

// ApplyBreakdown stores the committed consumption breakdown and derives the
// line's aggregate cost, profit and margin from it:
// profit = sum((unitSalePrice − record.unitCost) × record.consumedQuantity)
func (l *SaleLine) ApplyBreakdown(breakdown inventory.ConsumptionBreakdown) error {
	if breakdown.TotalQuantity() != l.Quantity {
		return shared.NewDomainError("BREAKDOWN_MISMATCH", "Consumption breakdown does not cover the line quantity")
	}

	l.Breakdown = breakdown
	l.AggregateCost = breakdown.TotalCost()

	price := l.UnitSalePrice()
	profit := decimal.Zero
	for _, r := range breakdown {
		profit = profit.Add(price.Sub(r.UnitCost).Mul(decimal.NewFromInt(r.ConsumedQuantity)))
	}
	l.Profit = profit

	revenue := l.LineTotal()
	if revenue.IsZero() {
		l.ProfitMargin = decimal.Zero
	} else {
		l.ProfitMargin = profit.Div(revenue).Round(4)
	}
	l.UpdatedAt = time.Now()
	return nil
}

// MarkReversed records that the line's consumption was restored to stock.
// The flag is persisted per line so a cancellation that failed partway can
// be retried without crediting the same batches twice.
func (l *SaleLine) MarkReversed() {
	l.Reversed = true
	l.UpdatedAt = time.Now()
}

// HasBreakdown returns true when the line carries a consumption breakdown
func (l *SaleLine) HasBreakdown() bool {
	return len(l.Breakdown) > 0
}

// ProfitWithFallback computes the line profit. With a breakdown it is the
// stored per-batch figure. Without one (legacy lines) it falls back to the
// latest known cost; if no cost basis exists at all the line is unpriced
// and excluded from profit, reported via the second return value.
func (l *SaleLine) ProfitWithFallback(latestCost *decimal.Decimal) (decimal.Decimal, bool) {
	if l.HasBreakdown() {
		price := l.UnitSalePrice()
		profit := decimal.Zero
		for _, r := range l.Breakdown {
			profit = profit.Add(price.Sub(r.UnitCost).Mul(decimal.NewFromInt(r.ConsumedQuantity)))
		}
		return profit, true
	}
	if latestCost == nil {
		return decimal.Zero, false
	}
	qty := decimal.NewFromInt(l.Quantity)
	return l.UnitSalePrice().Sub(*latestCost).Mul(qty), true
}

// Sale is the aggregate root for one customer sale. It owns the idempotence
// flag for inventory reversal: the engines replay breakdowns, but only the
// sale knows whether its inventory effect was already undone.
type Sale struct {
	shared.BaseAggregateRoot
	Lines             []SaleLine      `gorm:"foreignKey:SaleID;references:ID"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Status            SaleStatus      `gorm:"type:varchar(20);not null;index"`
	RemainingAmount   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalRefunded     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	InventoryReversed bool            `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (Sale) TableName() string {
	return "sales"
}

// NewSale creates an empty sale in the ordered state
func NewSale() *Sale {
	return &Sale{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Lines:             make([]SaleLine, 0),
		TotalAmount:       decimal.Zero,
		Status:            SaleStatusOrdered,
		RemainingAmount:   decimal.Zero,
		TotalRefunded:     decimal.Zero,
	}
}

// AddLine appends a line and recomputes the total
func (s *Sale) AddLine(line SaleLine) error {
	if s.Status != SaleStatusOrdered {
		return shared.NewDomainError("INVALID_STATE", "Lines can only be added to an ordered sale")
	}
	s.Lines = append(s.Lines, line)
	s.recalculateTotal()
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

func (s *Sale) recalculateTotal() {
	total := decimal.Zero
	for i := range s.Lines {
		total = total.Add(s.Lines[i].LineTotal())
	}
	s.TotalAmount = total
}

func (s *Sale) transitionTo(target SaleStatus) error {
	if !s.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_TRANSITION",
			"Sale cannot move from "+s.Status.String()+" to "+target.String())
	}
	s.Status = target
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// MarkInDelivery moves an ordered sale into delivery
func (s *Sale) MarkInDelivery() error {
	return s.transitionTo(SaleStatusInDelivery)
}

// MarkPaid settles the sale; any remaining amount is cleared
func (s *Sale) MarkPaid() error {
	if err := s.transitionTo(SaleStatusPaid); err != nil {
		return err
	}
	s.RemainingAmount = decimal.Zero
	return nil
}

// ConvertToCredit recognizes the sale as credit with an amount still owed
func (s *Sale) ConvertToCredit(remaining decimal.Decimal) error {
	if remaining.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Credit remaining amount must be positive")
	}
	if remaining.GreaterThan(s.TotalAmount) {
		return shared.NewDomainError("INVALID_AMOUNT", "Credit remaining amount cannot exceed the sale total")
	}
	if err := s.transitionTo(SaleStatusCredit); err != nil {
		return err
	}
	s.RemainingAmount = remaining
	return nil
}

// SettleCredit fully settles a credit sale
func (s *Sale) SettleCredit() error {
	if s.Status != SaleStatusCredit {
		return shared.NewDomainError("INVALID_STATE", "Only a credit sale can be settled")
	}
	return s.MarkPaid()
}

// ApplyRefund refunds part of a credit sale. The remaining amount
// decreases, the refunded total increases, and the sale closes to paid
// once nothing remains outstanding.
func (s *Sale) ApplyRefund(amount decimal.Decimal) error {
	if s.Status != SaleStatusCredit {
		return shared.NewDomainError("INVALID_STATE", "Refunds apply to credit sales only")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Refund amount must be positive")
	}
	if amount.GreaterThan(s.RemainingAmount) {
		return shared.NewDomainError("INVALID_AMOUNT", "Refund amount exceeds the remaining amount")
	}

	s.RemainingAmount = s.RemainingAmount.Sub(amount)
	s.TotalRefunded = s.TotalRefunded.Add(amount)
	s.UpdatedAt = time.Now()
	s.IncrementVersion()

	if s.RemainingAmount.IsZero() {
		return s.transitionTo(SaleStatusPaid)
	}
	return nil
}

// Cancel moves the sale to its terminal state. The caller is responsible
// for reversing the inventory effect via MarkInventoryReversed plus the
// reversal engine.
func (s *Sale) Cancel() error {
	return s.transitionTo(SaleStatusCancelled)
}

// MarkInventoryReversed flips the reversal flag exactly once. A second call
// reports the already-reversed state so retried or duplicated cancellation
// requests cannot double-credit stock.
func (s *Sale) MarkInventoryReversed() error {
	if s.InventoryReversed {
		return shared.NewDomainError("ALREADY_REVERSED", "Sale inventory has already been reversed")
	}
	s.InventoryReversed = true
	s.UpdatedAt = time.Now()
	s.IncrementVersion()
	return nil
}

// IsCancelled returns true if the sale was cancelled
func (s *Sale) IsCancelled() bool {
	return s.Status == SaleStatusCancelled
}
