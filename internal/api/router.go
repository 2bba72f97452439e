package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Zaad1704/HNV1-sub001/internal/api/handlers"
	"github.com/Zaad1704/HNV1-sub001/internal/api/middleware"
	"github.com/Zaad1704/HNV1-sub001/internal/config"
	"github.com/Zaad1704/HNV1-sub001/internal/logger"
	"github.com/Zaad1704/HNV1-sub001/internal/metrics"
	"github.com/Zaad1704/HNV1-sub001/internal/services"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the main Gin engine. exportLimiter
// throttles export requests per organization; nil disables it.
func SetupRouter(cfg *config.Config, collectionService services.IRentCollectionService, analyticsService services.IAnalyticsService,
	exportService services.IExportService, exportLimiter *middleware.RateLimiterMiddleware) *gin.Engine {
	r := gin.New()

	// Order matters: the request id must exist before anything logs.
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORSMiddleware())

	collectionHandler := handlers.NewRentCollectionHandler(collectionService)
	analyticsHandler := handlers.NewAnalyticsHandler(analyticsService)
	exportHandler := handlers.NewExportHandler(exportService)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		authRequired := apiGroup.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			rc := authRequired.Group("/rent-collection")
			rc.GET("/period/:year/:month", collectionHandler.GetPeriod)
			rc.POST("/period/:year/:month/refresh", collectionHandler.RefreshPeriod)
			rc.GET("/periods", collectionHandler.ListPeriods)

			an := authRequired.Group("/analytics")
			an.GET("/collection", analyticsHandler.GetCollectionAnalytics)
			an.GET("/trends", analyticsHandler.GetTrends)
			an.GET("/property-performance", analyticsHandler.GetPropertyPerformance)
			an.GET("/tenant-risk", analyticsHandler.GetTenantRisk)

			ex := authRequired.Group("/export")
			if exportLimiter != nil {
				ex.POST("/request", exportLimiter.Limit(), exportHandler.CreateExport)
			} else {
				ex.POST("/request", exportHandler.CreateExport)
			}
			ex.GET("/status/:id", exportHandler.GetStatus)
			ex.GET("/download/:id", exportHandler.Download)
			ex.GET("/history", exportHandler.History)
			ex.DELETE("/:id", exportHandler.Delete)
		}
	}

	return r
}

// SetupServiceRouter configures the internal service engine: shutdown
// control, health and Prometheus metrics.
func SetupServiceRouter(cfg *config.Config, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"success": true, "mode": cfg.RunMode})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			logger.L().Info("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "data": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				logger.L().Warn("Shutdown channel already signaled")
			}
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
