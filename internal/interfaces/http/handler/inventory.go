package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	appinv "github.com/opsuite/backend/internal/application/inventory"
	domaininv "github.com/opsuite/backend/internal/domain/inventory"
	"go.uber.org/zap"
)

// InventoryHandler exposes batch and stock operations over HTTP
type InventoryHandler struct {
	BaseHandler
	service *appinv.Service
	sync    *appinv.StockSyncCoordinator
}

// NewInventoryHandler creates an inventory handler. The sync coordinator
// is optional; without one, stock reads always hit the database.
func NewInventoryHandler(service *appinv.Service, sync *appinv.StockSyncCoordinator, logger *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		sync:        sync,
	}
}

// RegisterRoutes mounts the inventory endpoints on the given group
func (h *InventoryHandler) RegisterRoutes(rg *gin.RouterGroup) {
	batches := rg.Group("/batches")
	{
		batches.POST("", h.CreateBatch)
		batches.POST("/restock", h.Restock)
		batches.GET("/:id", h.GetBatch)
		batches.POST("/:id/damage", h.RecordDamage)
		batches.POST("/:id/adjust", h.AdjustBatch)
	}

	stock := rg.Group("/stock")
	{
		stock.GET("/:subjectId", h.GetStock)
		stock.GET("/:subjectId/batches", h.ListBatches)
		stock.GET("/:subjectId/history", h.History)
		stock.POST("/:subjectId/allocate", h.Allocate)
		stock.POST("/:subjectId/allocate/preview", h.PreviewAllocation)
		stock.POST("/:subjectId/adjust", h.RecordAdjustment)
	}
}

// CreateBatch opens a new batch for a procurement event
func (h *InventoryHandler) CreateBatch(c *gin.Context) {
	var req appinv.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.service.CreateBatch(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateStock(c, req.SubjectID)
	h.respondCreated(c, resp)
}

// Restock opens a new batch for a later procurement
func (h *InventoryHandler) Restock(c *gin.Context) {
	var req appinv.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, err.Error())
		return
	}

	resp, err := h.service.Restock(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateStock(c, req.SubjectID)
	h.respondCreated(c, resp)
}

// GetBatch returns one batch
func (h *InventoryHandler) GetBatch(c *gin.Context) {
	id, ok := h.parseUUID(c, "id")
	if !ok {
		return
	}

	resp, err := h.service.GetBatch(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, resp)
}

// GetStock returns the effective stock for a subject, optionally scoped
// to a location via locationType and locationId query parameters
func (h *InventoryHandler) GetStock(c *gin.Context) {
	subjectID, ok := h.parseUUID(c, "subjectId")
	if !ok {
		return
	}
	loc, ok := h.parseLocation(c)
	if !ok {
		return
	}

	// unscoped reads may come from the cache, scoped ones never do
	if loc == nil && h.sync != nil {
		stock, err := h.sync.CachedEffectiveStock(c.Request.Context(), subjectID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		h.respondOK(c, appinv.StockResponse{SubjectID: subjectID, EffectiveStock: stock})
		return
	}

	stock, err := h.service.EffectiveStock(c.Request.Context(), subjectID, loc)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, appinv.StockResponse{SubjectID: subjectID, Location: loc, EffectiveStock: stock})
}

// ListBatches returns a subject's batches, depleted ones included
func (h *InventoryHandler) ListBatches(c *gin.Context) {
	subjectID, ok := h.parseUUID(c, "subjectId")
	if !ok {
		return
	}

	resp, err := h.service.ListBatches(c.Request.Context(), subjectID, h.parseFilter(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, resp)
}

// History returns a subject's stock ledger entries
func (h *InventoryHandler) History(c *gin.Context) {
	subjectID, ok := h.parseUUID(c, "subjectId")
	if !ok {
		return
	}

	resp, err := h.service.History(c.Request.Context(), subjectID, h.parseFilter(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, resp)
}

// Allocate consumes stock for a subject and returns the breakdown
func (h *InventoryHandler) Allocate(c *gin.Context) {
	subjectID, ok := h.parseUUID(c, "subjectId")
	if !ok {
		return
	}

	var req appinv.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, err.Error())
		return
	}
	req.SubjectID = subjectID

	resp, err := h.service.Allocate(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.invalidateStock(c, subjectID)
	h.respondOK(c, resp)
}

// PreviewAllocation plans an allocation without committing it
func (h *InventoryHandler) PreviewAllocation(c *gin.Context) {
	subjectID, ok := h.parseUUID(c, "subjectId")
	if !ok {
		return
	}

	var req appinv.AllocateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, err.Error())
		return
	}
	req.SubjectID = subjectID

	resp, err := h.service.PreviewAllocation(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, resp)
}

// RecordDamage writes off damaged stock from a batch
func (h *InventoryHandler) RecordDamage(c *gin.Context) {
	id, ok := h.parseUUID(c, "id")
	if !ok {
		return
	}

	var req appinv.DamageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, err.Error())
		return
	}
	req.BatchID = id

	if err := h.service.RecordDamage(c.Request.Context(), req); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, gin.H{"batchId": id})
}

// AdjustBatch applies a signed correction to a batch
func (h *InventoryHandler) AdjustBatch(c *gin.Context) {
	id, ok := h.parseUUID(c, "id")
	if !ok {
		return
	}

	var req appinv.AdjustBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, err.Error())
		return
	}
	req.BatchID = id

	if err := h.service.AdjustBatch(c.Request.Context(), req); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, gin.H{"batchId": id})
}

// RecordAdjustment appends a subject-level ledger correction
func (h *InventoryHandler) RecordAdjustment(c *gin.Context) {
	subjectID, ok := h.parseUUID(c, "subjectId")
	if !ok {
		return
	}

	var req struct {
		Delta int64 `json:"delta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondBadRequest(c, err.Error())
		return
	}

	if err := h.service.RecordAdjustment(c.Request.Context(), subjectID, req.Delta); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondOK(c, gin.H{"subjectId": subjectID})
}

func (h *InventoryHandler) parseLocation(c *gin.Context) (*domaininv.LocationRef, bool) {
	locType := c.Query("locationType")
	locID := c.Query("locationId")
	if locType == "" && locID == "" {
		return nil, true
	}
	if locType == "" || locID == "" {
		h.respondBadRequest(c, "locationType and locationId must be given together")
		return nil, false
	}

	t := domaininv.LocationType(locType)
	if !t.IsValid() {
		h.respondBadRequest(c, "invalid locationType")
		return nil, false
	}
	id, err := uuid.Parse(locID)
	if err != nil {
		h.respondBadRequest(c, "invalid locationId")
		return nil, false
	}
	return &domaininv.LocationRef{Type: t, ID: id}, true
}

func (h *InventoryHandler) invalidateStock(c *gin.Context, subjectID uuid.UUID) {
	if h.sync != nil {
		h.sync.Invalidate(c.Request.Context(), subjectID)
	}
}
