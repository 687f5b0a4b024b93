package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	domaininv "github.com/opsuite/backend/internal/domain/inventory"
	"github.com/opsuite/backend/internal/domain/shared"
	"github.com/opsuite/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// BaseHandler carries what every handler needs
type BaseHandler struct {
	logger *zap.Logger
}

// NewBaseHandler creates a base handler
func NewBaseHandler(logger *zap.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, dto.OK(data))
}

func (h *BaseHandler) respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, dto.OK(data))
}

func (h *BaseHandler) respondPaged(c *gin.Context, data interface{}, filter shared.Filter, total int64) {
	c.JSON(http.StatusOK, dto.OKPaged(data, filter.Page, filter.PageSize, total))
}

func (h *BaseHandler) respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.Fail("BAD_REQUEST", message))
}

// respondError maps domain errors to HTTP statuses
func (h *BaseHandler) respondError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	var validationErr *domaininv.ValidationError
	var stockErr *domaininv.InsufficientStockError
	var reversalErr *domaininv.ReversalError

	switch {
	case errors.Is(err, shared.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.Fail("NOT_FOUND", "Resource not found"))
	case errors.As(err, &stockErr):
		c.JSON(http.StatusConflict, dto.Fail("INSUFFICIENT_STOCK", stockErr.Error()))
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, dto.Fail("VALIDATION_ERROR", validationErr.Error()))
	case errors.As(err, &reversalErr):
		h.logger.Error("reversal failed", zap.Error(err))
		c.JSON(http.StatusConflict, dto.Fail("REVERSAL_FAILED", reversalErr.Error()))
	case errors.Is(err, shared.ErrConcurrencyConflict):
		c.JSON(http.StatusConflict, dto.Fail("CONCURRENCY_CONFLICT", "Resource was modified concurrently, retry"))
	case errors.As(err, &domainErr):
		c.JSON(http.StatusUnprocessableEntity, dto.Fail(domainErr.Code, domainErr.Message))
	default:
		h.logger.Error("unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.Fail("INTERNAL_ERROR", "Internal server error"))
	}
}

func (h *BaseHandler) parseUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		h.respondBadRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

// parseFilter reads pagination and ordering from query parameters
func (h *BaseHandler) parseFilter(c *gin.Context) shared.Filter {
	filter := shared.NewFilter()
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("pageSize", "50")); err == nil {
		filter.PageSize = size
	}
	filter.OrderBy = c.Query("orderBy")
	filter.OrderDir = c.DefaultQuery("orderDir", "asc")
	return filter
}
