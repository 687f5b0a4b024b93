package finance

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	appinv "github.com/opsuite/backend/internal/application/inventory"
	domain "github.com/opsuite/backend/internal/domain/finance"
	domaininv "github.com/opsuite/backend/internal/domain/inventory"
	"github.com/opsuite/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSaleRepo struct {
	mu    sync.Mutex
	sales map[uuid.UUID]*domain.Sale
}

func newFakeSaleRepo() *fakeSaleRepo {
	return &fakeSaleRepo{sales: make(map[uuid.UUID]*domain.Sale)}
}

func (r *fakeSaleRepo) Create(_ context.Context, sale *domain.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales[sale.ID] = copySale(sale)
	return nil
}

// copySale detaches the lines so in-memory mutation after a store round
// trip behaves like it would against the database
func copySale(sale *domain.Sale) *domain.Sale {
	copied := *sale
	copied.Lines = append([]domain.SaleLine(nil), sale.Lines...)
	return &copied
}

func (r *fakeSaleRepo) Update(_ context.Context, sale *domain.Sale) error {
	return r.Create(context.Background(), sale)
}

func (r *fakeSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sale, ok := r.sales[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return copySale(sale), nil
}

func (r *fakeSaleRepo) FindAll(_ context.Context, _ shared.Filter) ([]domain.Sale, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Sale
	for _, s := range r.sales {
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

func (r *fakeSaleRepo) FindByStatus(_ context.Context, status domain.SaleStatus, _ shared.Filter) ([]domain.Sale, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Sale
	for _, s := range r.sales {
		if s.Status == status {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

type fakeEntryRepo struct {
	mu      sync.Mutex
	entries []domain.FinanceEntry
}

func (r *fakeEntryRepo) Append(_ context.Context, entry *domain.FinanceEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeEntryRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.FinanceEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.entries {
		if r.entries[i].ID == id {
			copied := r.entries[i]
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeEntryRepo) FindAll(_ context.Context, _ shared.Filter) ([]domain.FinanceEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]domain.FinanceEntry(nil), r.entries...)
	return out, int64(len(out)), nil
}

func (r *fakeEntryRepo) FindByKind(_ context.Context, kind domain.EntryKind, _ shared.Filter) ([]domain.FinanceEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.FinanceEntry
	for _, e := range r.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeEntryRepo) FindRefundsForDebt(_ context.Context, debtID uuid.UUID) ([]domain.FinanceEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.FinanceEntry
	for _, e := range r.entries {
		if e.RefundedDebtID != nil && *e.RefundedDebtID == debtID {
			out = append(out, e)
		}
	}
	return out, nil
}

// fakeStock plays both allocator and reverser, handing out one batch per
// subject and remembering every reversal
type fakeStock struct {
	mu              sync.Mutex
	unitCost        decimal.Decimal
	failFor         map[uuid.UUID]error
	reverseFailOnce map[uuid.UUID]error
	allocated       []uuid.UUID
	reversed        []domaininv.ConsumptionBreakdown
}

func newFakeStock(cost int64) *fakeStock {
	return &fakeStock{
		unitCost:        decimal.NewFromInt(cost),
		failFor:         make(map[uuid.UUID]error),
		reverseFailOnce: make(map[uuid.UUID]error),
	}
}

func (f *fakeStock) Allocate(_ context.Context, req appinv.AllocateRequest) (*appinv.AllocationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[req.SubjectID]; ok {
		return nil, err
	}
	f.allocated = append(f.allocated, req.SubjectID)
	breakdown := domaininv.ConsumptionBreakdown{
		{BatchID: uuid.New(), UnitCost: f.unitCost, ConsumedQuantity: req.Quantity},
	}
	return &appinv.AllocationResult{
		SubjectID: req.SubjectID,
		Method:    domaininv.CostingMethodFIFO,
		Quantity:  req.Quantity,
		TotalCost: breakdown.TotalCost(),
		Breakdown: breakdown,
	}, nil
}

func (f *fakeStock) Reverse(_ context.Context, subjectID uuid.UUID, breakdown domaininv.ConsumptionBreakdown) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.reverseFailOnce[subjectID]; ok {
		delete(f.reverseFailOnce, subjectID)
		return err
	}
	f.reversed = append(f.reversed, breakdown)
	return nil
}

type fakeCostLookup struct{ cost *decimal.Decimal }

func (f *fakeCostLookup) LatestCostFor(context.Context, uuid.UUID) (*decimal.Decimal, error) {
	return f.cost, nil
}

type financeFixture struct {
	service *Service
	sales   *fakeSaleRepo
	entries *fakeEntryRepo
	stock   *fakeStock
}

func newFinanceFixture(t *testing.T) *financeFixture {
	t.Helper()
	sales := newFakeSaleRepo()
	entries := &fakeEntryRepo{}
	stock := newFakeStock(100)
	return &financeFixture{
		service: NewService(sales, entries, stock, stock, &fakeCostLookup{}, zap.NewNop()),
		sales:   sales,
		entries: entries,
		stock:   stock,
	}
}

func saleRequest(lines ...SaleLineRequest) RecordSaleRequest {
	return RecordSaleRequest{Lines: lines, Method: domaininv.CostingMethodFIFO}
}

func line(quantity int64, price int64) SaleLineRequest {
	return SaleLineRequest{SubjectID: uuid.New(), Quantity: quantity, ListPrice: decimal.NewFromInt(price)}
}

func TestRecordSale(t *testing.T) {
	t.Run("allocates every line and persists the sale", func(t *testing.T) {
		f := newFinanceFixture(t)

		resp, err := f.service.RecordSale(context.Background(), saleRequest(line(4, 500), line(2, 300)))
		require.NoError(t, err)

		assert.Equal(t, "ordered", resp.Status)
		assert.True(t, resp.TotalAmount.Equal(decimal.NewFromInt(2600)))
		require.Len(t, resp.Lines, 2)
		// (500-100)*4 = 1600 on the first line
		assert.True(t, resp.Lines[0].Profit.Equal(decimal.NewFromInt(1600)))
		assert.Len(t, f.stock.allocated, 2)

		stored, err := f.sales.FindByID(context.Background(), resp.ID)
		require.NoError(t, err)
		assert.Len(t, stored.Lines, 2)
	})

	t.Run("a failing line reverses the lines already allocated", func(t *testing.T) {
		f := newFinanceFixture(t)
		good := line(4, 500)
		bad := line(2, 300)
		f.stock.failFor[bad.SubjectID] = &domaininv.InsufficientStockError{Requested: 2, Available: 1}

		_, err := f.service.RecordSale(context.Background(), saleRequest(good, bad))

		var stockErr *domaininv.InsufficientStockError
		require.ErrorAs(t, err, &stockErr)
		require.Len(t, f.stock.reversed, 1)
		assert.Equal(t, int64(4), f.stock.reversed[0].TotalQuantity())

		// nothing persisted
		sales, _, _ := f.sales.FindAll(context.Background(), shared.Filter{})
		assert.Empty(t, sales)
	})

	t.Run("rejects an empty sale", func(t *testing.T) {
		f := newFinanceFixture(t)
		_, err := f.service.RecordSale(context.Background(), saleRequest())
		assert.Error(t, err)
	})
}

func TestCancelSale(t *testing.T) {
	t.Run("reverses every line once", func(t *testing.T) {
		f := newFinanceFixture(t)
		resp, err := f.service.RecordSale(context.Background(), saleRequest(line(4, 500), line(2, 300)))
		require.NoError(t, err)

		cancelled, err := f.service.CancelSale(context.Background(), resp.ID)
		require.NoError(t, err)

		assert.Equal(t, "cancelled", cancelled.Status)
		assert.True(t, cancelled.InventoryReversed)
		assert.Len(t, f.stock.reversed, 2)
	})

	t.Run("cancelling twice does not reverse twice", func(t *testing.T) {
		f := newFinanceFixture(t)
		resp, err := f.service.RecordSale(context.Background(), saleRequest(line(4, 500)))
		require.NoError(t, err)

		_, err = f.service.CancelSale(context.Background(), resp.ID)
		require.NoError(t, err)
		again, err := f.service.CancelSale(context.Background(), resp.ID)
		require.NoError(t, err)

		assert.Equal(t, "cancelled", again.Status)
		assert.Len(t, f.stock.reversed, 1)
	})

	t.Run("a retried cancellation skips lines already restored", func(t *testing.T) {
		f := newFinanceFixture(t)
		first := line(4, 500)
		second := line(2, 300)
		resp, err := f.service.RecordSale(context.Background(), saleRequest(first, second))
		require.NoError(t, err)

		f.stock.reverseFailOnce[second.SubjectID] = &domaininv.ReversalError{BatchID: uuid.New()}

		_, err = f.service.CancelSale(context.Background(), resp.ID)
		require.Error(t, err)
		// only the first line restored before the failure
		require.Len(t, f.stock.reversed, 1)
		assert.Equal(t, int64(4), f.stock.reversed[0].TotalQuantity())

		cancelled, err := f.service.CancelSale(context.Background(), resp.ID)
		require.NoError(t, err)

		assert.Equal(t, "cancelled", cancelled.Status)
		assert.True(t, cancelled.InventoryReversed)
		// the retry reversed only the remaining line
		require.Len(t, f.stock.reversed, 2)
		assert.Equal(t, int64(2), f.stock.reversed[1].TotalQuantity())
	})

	t.Run("a paid sale cannot be cancelled", func(t *testing.T) {
		f := newFinanceFixture(t)
		resp, err := f.service.RecordSale(context.Background(), saleRequest(line(4, 500)))
		require.NoError(t, err)
		_, err = f.service.MarkPaid(context.Background(), resp.ID)
		require.NoError(t, err)

		_, err = f.service.CancelSale(context.Background(), resp.ID)
		assert.Error(t, err)
		assert.Empty(t, f.stock.reversed)
	})
}

func TestSaleLifecycleOperations(t *testing.T) {
	f := newFinanceFixture(t)
	resp, err := f.service.RecordSale(context.Background(), saleRequest(line(4, 500)))
	require.NoError(t, err)

	delivered, err := f.service.MarkInDelivery(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "in_delivery", delivered.Status)

	paid, err := f.service.MarkPaid(context.Background(), resp.ID)
	require.NoError(t, err)
	assert.Equal(t, "paid", paid.Status)

	credit, err := f.service.ConvertToCredit(context.Background(), resp.ID,
		ConvertToCreditRequest{RemainingAmount: decimal.NewFromInt(800)})
	require.NoError(t, err)
	assert.Equal(t, "credit", credit.Status)

	refunded, err := f.service.RefundCredit(context.Background(), resp.ID,
		RefundCreditRequest{Amount: decimal.NewFromInt(800)})
	require.NoError(t, err)
	assert.Equal(t, "paid", refunded.Status)
	assert.True(t, refunded.TotalRefunded.Equal(decimal.NewFromInt(800)))
}

func TestFinanceEntries(t *testing.T) {
	f := newFinanceFixture(t)

	debt, err := f.service.RecordEntry(context.Background(),
		EntryRequest{Kind: domain.EntryKindCustomerDebt, Amount: decimal.NewFromInt(1000), Label: "invoice 42"})
	require.NoError(t, err)

	_, err = f.service.RefundDebt(context.Background(),
		RefundDebtRequest{DebtID: debt.ID, Amount: decimal.NewFromInt(400)})
	require.NoError(t, err)

	outstanding, err := f.service.OutstandingDebt(context.Background(), domain.DebtScopeCustomers)
	require.NoError(t, err)
	assert.True(t, outstanding.Outstanding.Amount().Equal(decimal.NewFromInt(600)))

	_, err = f.service.RecordEntry(context.Background(),
		EntryRequest{Kind: domain.EntryKindIncome, Amount: decimal.NewFromInt(500)})
	require.NoError(t, err)

	balance, err := f.service.Balance(context.Background())
	require.NoError(t, err)
	// 500 income + 600 outstanding customer debt
	assert.True(t, balance.Balance.Amount().Equal(decimal.NewFromInt(1100)), "balance %s", balance.Balance)
}

func TestProfitAggregation(t *testing.T) {
	f := newFinanceFixture(t)
	_, err := f.service.RecordSale(context.Background(), saleRequest(line(4, 500)))
	require.NoError(t, err)

	report, err := f.service.Profit(context.Background(), shared.Filter{})
	require.NoError(t, err)

	// (500-100)*4 from the fake allocator's flat cost
	assert.True(t, report.Profit.Amount().Equal(decimal.NewFromInt(1600)), "profit %s", report.Profit)
	assert.Equal(t, 1, report.LineCount)
	assert.Equal(t, 0, report.UnpricedLines)
}
