package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appfin "github.com/opsuite/backend/internal/application/finance"
	domainfin "github.com/opsuite/backend/internal/domain/finance"
	"go.uber.org/zap"
)

// FinanceHandler exposes the sale lifecycle and financial aggregates
type FinanceHandler struct {
	BaseHandler
	service *appfin.Service
}

// NewFinanceHandler creates a finance handler
func NewFinanceHandler(service *appfin.Service, logger *zap.Logger) *FinanceHandler {
	return &FinanceHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// RegisterRoutes mounts the finance endpoints on the given group
func (h *FinanceHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sales := rg.Group("/sales")
	{
		sales.POST("", h.RecordSale)
		sales.GET("", h.ListSales)
		sales.GET("/:id", h.GetSale)
		sales.POST("/:id/deliver", h.MarkInDelivery)
		sales.POST("/:id/pay", h.MarkPaid)
		sales.POST("/:id/credit", h.ConvertToCredit)
		sales.POST("/:id/credit/settle", h.SettleCredit)
		sales.POST("/:id/credit/refund", h.RefundCredit)
		sales.POST("/:id/cancel", h.CancelSale)
	}

	finance := rg.Group("/finance")
	{
		finance.POST("/entries", h.RecordEntry)
		finance.GET("/entries", h.ListEntries)
		finance.POST("/refunds", h.RefundDebt)
		finance.GET("/profit", h.Profit)
		finance.GET("/debt", h.OutstandingDebt)
		finance.GET("/balance", h.Balance)
	}
}

// RecordSale records a sale, allocating stock for all lines atomically
func (h *FinanceHandler) RecordSale(c *gin.Context) {
	var req appfin.RecordSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.service.RecordSale(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCreated(c, resp)
}

// ListSales returns sales matching the filter
func (h *FinanceHandler) ListSales(c *gin.Context) {
	filter := h.parseFilter(c)
	resp, total, err := h.service.ListSales(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondPaged(c, resp, filter, total)
}

// GetSale returns one sale with its lines
func (h *FinanceHandler) GetSale(c *gin.Context) {
	id, ok := h.parseUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetSale(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, resp)
}

// MarkInDelivery moves a sale into delivery
func (h *FinanceHandler) MarkInDelivery(c *gin.Context) {
	h.transition(c, h.service.MarkInDelivery)
}

// MarkPaid settles a sale
func (h *FinanceHandler) MarkPaid(c *gin.Context) {
	h.transition(c, h.service.MarkPaid)
}

// SettleCredit fully settles a credit sale
func (h *FinanceHandler) SettleCredit(c *gin.Context) {
	h.transition(c, h.service.SettleCredit)
}

// CancelSale cancels a sale and reverses its inventory consumption
func (h *FinanceHandler) CancelSale(c *gin.Context) {
	h.transition(c, h.service.CancelSale)
}

// ConvertToCredit recognizes a sale as credit
func (h *FinanceHandler) ConvertToCredit(c *gin.Context) {
	id, ok := h.parseUUID(c, "id")
	if !ok {
		return
	}

	var req appfin.ConvertToCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.service.ConvertToCredit(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, resp)
}

// RefundCredit refunds part of a credit sale
func (h *FinanceHandler) RefundCredit(c *gin.Context) {
	id, ok := h.parseUUID(c, "id")
	if !ok {
		return
	}

	var req appfin.RefundCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.service.RefundCredit(c.Request.Context(), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, resp)
}

// RecordEntry records a finance ledger entry
func (h *FinanceHandler) RecordEntry(c *gin.Context) {
	var req appfin.EntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.service.RecordEntry(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCreated(c, resp)
}

// ListEntries returns finance ledger entries
func (h *FinanceHandler) ListEntries(c *gin.Context) {
	filter := h.parseFilter(c)
	resp, total, err := h.service.ListEntries(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondPaged(c, resp, filter, total)
}

// RefundDebt records a refund against an existing debt entry
func (h *FinanceHandler) RefundDebt(c *gin.Context) {
	var req appfin.RefundDebtRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.service.RefundDebt(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondCreated(c, resp)
}

// Profit returns aggregated profit across sales
func (h *FinanceHandler) Profit(c *gin.Context) {
	resp, err := h.service.Profit(c.Request.Context(), h.parseFilter(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, resp)
}

// OutstandingDebt returns what remains owed for the requested scope
// ("customers" by default, "all" to include supplier debt)
func (h *FinanceHandler) OutstandingDebt(c *gin.Context) {
	scope := domainfin.DebtScope(c.DefaultQuery("scope", string(domainfin.DebtScopeCustomers)))

	resp, err := h.service.OutstandingDebt(c.Request.Context(), scope)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, resp)
}

// Balance returns the running balance
func (h *FinanceHandler) Balance(c *gin.Context) {
	resp, err := h.service.Balance(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, resp)
}

func (h *FinanceHandler) transition(c *gin.Context, op func(ctx context.Context, saleID uuid.UUID) (*appfin.SaleResponse, error)) {
	id, ok := h.parseUUID(c, "id")
	if !ok {
		return
	}

	resp, err := op(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, resp)
}
