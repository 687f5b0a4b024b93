package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opsuite/backend/internal/infrastructure/logger"
	"github.com/opsuite/backend/internal/interfaces/http/handler"
	"go.uber.org/zap"
)

// NewRouter assembles the gin engine with all routes mounted under /api/v1
func NewRouter(
	inventoryHandler *handler.InventoryHandler,
	financeHandler *handler.FinanceHandler,
	log *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(logger.GinMiddleware(log))
	r.Use(logger.GinRecovery(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	inventoryHandler.RegisterRoutes(v1)
	financeHandler.RegisterRoutes(v1)

	return r
}
