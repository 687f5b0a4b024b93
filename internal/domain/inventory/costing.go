package inventory

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostingMethod selects how a sale's cost basis is attributed to batches
type CostingMethod string

const (
	// CostingMethodFIFO consumes the oldest batches first at their own cost
	CostingMethodFIFO CostingMethod = "FIFO"
	// CostingMethodLIFO consumes the newest batches first at their own cost
	CostingMethodLIFO CostingMethod = "LIFO"
	// CostingMethodCMUP (coût moyen unitaire pondéré) draws quantity in FIFO
	// order but prices every consumed unit at the quantity-weighted average
	// cost of all active batches at allocation time
	CostingMethodCMUP CostingMethod = "CMUP"
)

// IsValid checks if the costing method is valid
func (m CostingMethod) IsValid() bool {
	switch m {
	case CostingMethodFIFO, CostingMethodLIFO, CostingMethodCMUP:
		return true
	}
	return false
}

// String returns the string representation
func (m CostingMethod) String() string {
	return string(m)
}

// AllCostingMethods returns every valid costing method
func AllCostingMethods() []CostingMethod {
	return []CostingMethod{CostingMethodFIFO, CostingMethodLIFO, CostingMethodCMUP}
}

// ParseCostingMethod resolves a configured method name, accepting any
// casing. An unrecognized name is an error rather than a silent fallback.
func ParseCostingMethod(value string) (CostingMethod, error) {
	method := CostingMethod(strings.ToUpper(strings.TrimSpace(value)))
	if !method.IsValid() {
		return "", &ValidationError{Field: "method", Message: fmt.Sprintf("unknown costing method %q", value)}
	}
	return method, nil
}

// ConsumptionRecord is the per-batch slice of one sale line's draw:
// which batch, how many units, and at what unit cost those units were priced.
type ConsumptionRecord struct {
	BatchID          uuid.UUID       `json:"batchId"`
	UnitCost         decimal.Decimal `json:"unitCost"`
	ConsumedQuantity int64           `json:"consumedQuantity"`
}

// TotalCost returns the cost attributed to this record
func (r ConsumptionRecord) TotalCost() decimal.Decimal {
	return r.UnitCost.Mul(decimal.NewFromInt(r.ConsumedQuantity))
}

// ConsumptionBreakdown is the ordered sequence of records for one sale line.
// It is stored on the sale line as JSON so reversal can replay it exactly.
type ConsumptionBreakdown []ConsumptionRecord

// TotalQuantity sums the consumed quantities across all records
func (b ConsumptionBreakdown) TotalQuantity() int64 {
	var total int64
	for _, r := range b {
		total += r.ConsumedQuantity
	}
	return total
}

// TotalCost sums the attributed cost across all records
func (b ConsumptionBreakdown) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, r := range b {
		total = total.Add(r.TotalCost())
	}
	return total
}

// Value implements driver.Valuer for JSON column storage
func (b ConsumptionBreakdown) Value() (driver.Value, error) {
	if b == nil {
		return nil, nil
	}
	return json.Marshal(b)
}

// Scan implements sql.Scanner for JSON column storage
func (b *ConsumptionBreakdown) Scan(value any) error {
	if value == nil {
		*b = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, b)
	case string:
		return json.Unmarshal([]byte(v), b)
	default:
		return errors.New("unsupported type for consumption breakdown")
	}
}

// ConsumptionPlan is the outcome of planning an allocation against a
// snapshot of candidate batches. Planning is pure: the plan only becomes
// real once every per-batch decrement commits.
type ConsumptionPlan struct {
	Method       CostingMethod
	Records      ConsumptionBreakdown
	TotalCost    decimal.Decimal
	PoolUnitCost decimal.Decimal // defined only for CMUP
}

// poolCostScale matches the cost column precision
const poolCostScale = 4

// PlanConsumption decides which batches a requested quantity is drawn from
// under the given costing method, without mutating anything. Candidates with
// no remaining stock are ignored. If the active candidates cannot cover the
// request the plan fails as a whole with InsufficientStockError.
func PlanConsumption(method CostingMethod, quantity int64, candidates []Batch) (*ConsumptionPlan, error) {
	if !method.IsValid() {
		return nil, &ValidationError{Field: "method", Message: fmt.Sprintf("unknown costing method %q", method)}
	}
	if quantity <= 0 {
		return nil, &ValidationError{Field: "quantity", Message: "quantity must be positive"}
	}

	active := make([]Batch, 0, len(candidates))
	var available int64
	for _, b := range candidates {
		if b.IsActive() {
			active = append(active, b)
			available += b.RemainingQuantity
		}
	}
	if available < quantity {
		return nil, &InsufficientStockError{Requested: quantity, Available: available}
	}

	// Physical draw-down order. CMUP draws in FIFO order: the oldest
	// batches deplete first even though cost attribution is pooled.
	ordered := make([]Batch, len(active))
	copy(ordered, active)
	switch method {
	case CostingMethodLIFO:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
		})
	default:
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
		})
	}

	plan := &ConsumptionPlan{Method: method}

	if method == CostingMethodCMUP {
		plan.PoolUnitCost = weightedAverageCost(active)
	}

	remaining := quantity
	for _, batch := range ordered {
		if remaining == 0 {
			break
		}
		draw := remaining
		if draw > batch.RemainingQuantity {
			draw = batch.RemainingQuantity
		}

		cost := batch.UnitCost
		if method == CostingMethodCMUP {
			cost = plan.PoolUnitCost
		}

		plan.Records = append(plan.Records, ConsumptionRecord{
			BatchID:          batch.ID,
			UnitCost:         cost,
			ConsumedQuantity: draw,
		})
		remaining -= draw
	}

	plan.TotalCost = plan.Records.TotalCost()
	return plan, nil
}

// weightedAverageCost computes the pooled unit cost over active batches:
// sum(unitCost × remaining) / sum(remaining)
func weightedAverageCost(batches []Batch) decimal.Decimal {
	totalQty := decimal.Zero
	totalValue := decimal.Zero
	for _, b := range batches {
		qty := decimal.NewFromInt(b.RemainingQuantity)
		totalQty = totalQty.Add(qty)
		totalValue = totalValue.Add(b.UnitCost.Mul(qty))
	}
	if totalQty.IsZero() {
		return decimal.Zero
	}
	return totalValue.Div(totalQty).Round(poolCostScale)
}
