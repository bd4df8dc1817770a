package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/frostdev-ops/eventstats-backend-go/internal/api/handlers"
	"github.com/frostdev-ops/eventstats-backend-go/internal/api/middleware"
	"github.com/frostdev-ops/eventstats-backend-go/internal/config"
	"github.com/frostdev-ops/eventstats-backend-go/internal/core/metrics"
	"github.com/frostdev-ops/eventstats-backend-go/pkg/logger"
)

// RouterOptions carry what the router needs beyond the handler dependencies
type RouterOptions struct {
	Handlers       handlers.Dependencies
	Logger         *logger.BatchLogger
	Metrics        metrics.MetricsCollector
	MetricsHandler http.Handler
	RateLimiter    *middleware.RateLimiter
}

// NewRouter creates and configures the main HTTP router
func NewRouter(cfg *config.Config, opts RouterOptions) *gin.Engine {
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.ErrorHandlingMiddleware(opts.Logger.Logger))
	router.Use(middleware.LoggingMiddleware(opts.Logger))
	if opts.Metrics != nil {
		router.Use(middleware.MetricsMiddleware(opts.Metrics))
	}
	if cfg.Security.EnableCORS {
		router.Use(middleware.CORSMiddleware(cfg.Security))
	}
	if cfg.Security.RateLimiting.Enabled {
		limiter := opts.RateLimiter
		if limiter == nil {
			limiter = middleware.NewRateLimiterFromConfig(cfg.Security.RateLimiting)
		}
		router.Use(limiter.RateLimitMiddleware(opts.Metrics))
	}
	router.Use(middleware.ErrorResponseMiddleware())

	deps := opts.Handlers
	deps.Config = cfg
	if deps.Logger == nil {
		deps.Logger = opts.Logger.Logger
	}
	h := handlers.NewHandlers(deps)

	// Public routes
	router.GET("/health", h.Health)
	if opts.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}
	router.GET("/ws", h.WebSocketHandler())

	writeAuth := middleware.RequireAuth(cfg.Auth)

	api := router.Group("/api/v1")
	{
		api.GET("/chart-types", h.GetChartTypes)

		chartRoutes := api.Group("/charts")
		{
			chartRoutes.GET("", h.GetCharts)
			chartRoutes.POST("/import", writeAuth, h.ImportCharts)
			chartRoutes.GET("/:chartId", h.GetChart)
			chartRoutes.PUT("/:chartId", writeAuth, h.PutChart)
			chartRoutes.DELETE("/:chartId", writeAuth, h.DeleteChart)
		}

		projects := api.Group("/projects/:projectId")
		{
			projects.GET("/stats", h.GetStatistics)
			projects.PATCH("/stats", writeAuth, h.PatchStatistics)
			projects.GET("/layout", h.GetLayout)
			projects.PUT("/layout", writeAuth, h.PutLayout)
			projects.GET("/results", h.GetResults)
			projects.GET("/report", h.GetReport)
			projects.GET("/export.csv", h.ExportCSV)
			projects.GET("/export.xlsx", h.ExportXLSX)
		}

		layoutRoutes := api.Group("/layout")
		{
			layoutRoutes.POST("/columns", h.ComposeColumns)
			layoutRoutes.POST("/solve", h.SolveRow)
		}

		api.POST("/formula/evaluate", h.EvaluateFormula)
		api.POST("/media/aspect-ratio", h.InferAspectRatio)
		api.GET("/websocket/stats", h.GetWebSocketStats)
	}

	return router
}
