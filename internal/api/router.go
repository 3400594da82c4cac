package api

import (
	"net/http"

	"entsoe-agent/internal/agent"
	"entsoe-agent/internal/api/handlers"
	"entsoe-agent/internal/api/middleware"
	"entsoe-agent/internal/api/models"
	"entsoe-agent/internal/market"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterConfig struct {
	AllowedOrigins []string
	TokenSet       bool
}

// NewRouter wires middleware and every /api/v1 route.
func NewRouter(svc *market.Service, registry *agent.Registry, cfg RouterConfig, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.ErrorHandler(logger))

	marketHandler := handlers.NewMarketHandler(svc, logger)
	toolHandler := handlers.NewToolHandler(registry)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.HealthResponse{Status: "ok", APITokenSet: cfg.TokenSet})
	})

	v1 := router.Group("/api/v1")
	{
		v1.GET("/countries", marketHandler.Countries)
		v1.GET("/info", marketHandler.Info)
		v1.GET("/debug", marketHandler.Debug)

		v1.GET("/data/:product", marketHandler.GetProduct)

		v1.GET("/overview", marketHandler.Overview)
		v1.GET("/compare", marketHandler.Compare)
		v1.GET("/flows/analysis", marketHandler.AnalyzeFlows)
		v1.GET("/renewables", marketHandler.Renewables)
		v1.GET("/insights", marketHandler.Insights)

		v1.GET("/tools", toolHandler.ListTools)
		v1.POST("/tools/:name", toolHandler.InvokeTool)
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error: models.ErrorDetail{Code: "NOT_FOUND", Message: "Not found"},
		})
	})
	return router
}
