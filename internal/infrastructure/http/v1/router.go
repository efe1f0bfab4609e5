// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"hospicore/internal/core/clock"
	"hospicore/internal/domain/catalogs/center"
	"hospicore/internal/domain/catalogs/financier"
	"hospicore/internal/domain/catalogs/paymentmethod"
	"hospicore/internal/domain/catalogs/product"
	"hospicore/internal/domain/episodes"
	"hospicore/internal/domain/examinations"
	"hospicore/internal/domain/prescriptions"
	"hospicore/internal/domain/registers/cash"
	"hospicore/internal/domain/registers/stock"
	"hospicore/internal/infrastructure/http/v1/handlers"
	"hospicore/internal/infrastructure/http/v1/middleware"
	"hospicore/internal/infrastructure/metrics"
	"hospicore/internal/infrastructure/storage/postgres"
	"hospicore/pkg/logger"
)

// RouterConfig holds the wired services and infrastructure the API serves.
type RouterConfig struct {
	Pool   *postgres.Pool
	Logger *logger.Logger
	Clock  clock.Clock

	// Tokens validates bearer tokens; nil disables authentication (dev mode).
	Tokens *middleware.TokenService

	// Metrics instruments requests; nil disables the scrape endpoint.
	Metrics     *metrics.Metrics
	MetricsPath string

	Centers        *center.Service
	Products       *product.Service
	Financiers     *financier.Service
	PaymentMethods *paymentmethod.Service

	Stock *stock.Service
	Cash  *cash.Service

	Episodes      *episodes.Service
	Examinations  *examinations.Service
	Prescriptions *prescriptions.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.GinMiddleware())

		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.GET(path, cfg.Metrics.Handler())
	}

	// Health endpoints (no auth)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Liveness)
		health.GET("/ready", healthHandler.Readiness)
	}

	base := handlers.NewBaseHandler()

	api := router.Group("/api/v1")
	if cfg.Tokens != nil {
		api.Use(middleware.Auth(cfg.Tokens))
	}

	// Catalogs
	centerHandler := handlers.NewCenterHandler(base, cfg.Centers)
	centersGroup := api.Group("/centers")
	{
		centersGroup.GET("", centerHandler.List)
		centersGroup.POST("", centerHandler.Create)
		centersGroup.GET("/by-code/:code", centerHandler.GetByCode)
		centersGroup.GET("/:centerId", wrapIDParam(centerHandler.Get))
		centersGroup.PUT("/:centerId", wrapIDParam(centerHandler.Update))
		centersGroup.DELETE("/:centerId", wrapIDParam(centerHandler.Delete))
	}

	productHandler := handlers.NewProductHandler(base, cfg.Products)
	products := api.Group("/products")
	{
		products.GET("", productHandler.List)
		products.POST("", productHandler.Create)
		products.GET("/by-code/:code", productHandler.GetByCode)
		products.GET("/:id", productHandler.Get)
		products.PUT("/:id", productHandler.Update)
		products.DELETE("/:id", productHandler.Delete)
	}

	financierHandler := handlers.NewFinancierHandler(base, cfg.Financiers)
	financiers := api.Group("/financiers")
	{
		financiers.GET("", financierHandler.List)
		financiers.POST("", financierHandler.Create)
		financiers.GET("/by-code/:code", financierHandler.GetByCode)
		financiers.GET("/:id", financierHandler.Get)
		financiers.PUT("/:id", financierHandler.Update)
		financiers.PUT("/:id/active", financierHandler.SetActive)
		financiers.DELETE("/:id", financierHandler.Delete)
	}

	paymentMethodHandler := handlers.NewPaymentMethodHandler(base, cfg.PaymentMethods)
	paymentMethods := api.Group("/payment-methods")
	{
		paymentMethods.GET("", paymentMethodHandler.List)
		paymentMethods.POST("", paymentMethodHandler.Create)
		paymentMethods.GET("/cash-equivalent", paymentMethodHandler.ListCashEquivalent)
		paymentMethods.GET("/by-code/:code", paymentMethodHandler.GetByCode)
		paymentMethods.GET("/:id", paymentMethodHandler.Get)
		paymentMethods.PUT("/:id", paymentMethodHandler.Update)
		paymentMethods.DELETE("/:id", paymentMethodHandler.Delete)
	}

	// Stock register (center-scoped)
	stockHandler := handlers.NewStockHandler(base, cfg.Stock)
	stockGroup := api.Group("/centers/:centerId/stock")
	{
		stockGroup.POST("/check-availability", stockHandler.CheckAvailability)
		stockGroup.POST("/receive", stockHandler.Receive)
		stockGroup.POST("/adjust", stockHandler.Adjust)
		stockGroup.PUT("/thresholds", stockHandler.SetThresholds)
		stockGroup.GET("/alerts", stockHandler.GetAlerts)
		stockGroup.GET("/movements", stockHandler.GetMovements)
		stockGroup.GET("/:productId", stockHandler.GetInventory)
	}

	// Cash register (center-scoped)
	cashHandler := handlers.NewCashHandler(base, cfg.Cash)
	cashGroup := api.Group("/centers/:centerId/cash")
	{
		cashGroup.GET("/balance", cashHandler.GetBalance)
		cashGroup.GET("/position", cashHandler.GetPosition)
		cashGroup.GET("/movements", cashHandler.GetMovements)
		cashGroup.GET("/handovers", cashHandler.ListHandovers)
		cashGroup.POST("/handovers", cashHandler.CreateHandover)
	}
	api.GET("/cash/handovers/:id", cashHandler.GetHandover)

	// Care episodes
	episodeHandler := handlers.NewEpisodeHandler(base, cfg.Episodes, cfg.Clock)
	api.POST("/centers/:centerId/episodes", episodeHandler.Admit)
	api.GET("/centers/:centerId/episodes", episodeHandler.List)
	episodesGroup := api.Group("/episodes")
	{
		episodesGroup.GET("/:id", episodeHandler.Get)
		episodesGroup.POST("/:id/usages", episodeHandler.RecordUsage)
		episodesGroup.POST("/:id/complete", episodeHandler.Complete)
		episodesGroup.POST("/:id/cancel", episodeHandler.Cancel)
	}

	// Examinations
	examinationHandler := handlers.NewExaminationHandler(base, cfg.Examinations, cfg.Clock)
	api.POST("/centers/:centerId/examinations", examinationHandler.Schedule)
	api.GET("/centers/:centerId/examinations", examinationHandler.List)
	examinationsGroup := api.Group("/examinations")
	{
		examinationsGroup.GET("/:id", examinationHandler.Get)
		examinationsGroup.POST("/:id/start", examinationHandler.Start)
		examinationsGroup.POST("/:id/complete", examinationHandler.Complete)
		examinationsGroup.POST("/:id/cancel", examinationHandler.Cancel)
	}

	// Prescriptions
	prescriptionHandler := handlers.NewPrescriptionHandler(base, cfg.Prescriptions, cfg.Clock)
	api.POST("/centers/:centerId/prescriptions", prescriptionHandler.Create)
	api.GET("/centers/:centerId/prescriptions", prescriptionHandler.List)
	prescriptionsGroup := api.Group("/prescriptions")
	{
		prescriptionsGroup.GET("/:id", prescriptionHandler.Get)
		prescriptionsGroup.POST("/:id/dispense", prescriptionHandler.Dispense)
		prescriptionsGroup.POST("/:id/cancel", prescriptionHandler.Cancel)
	}

	return router
}

// wrapIDParam adapts handlers that read the "id" path parameter to routes
// declared with ":centerId" (gin requires consistent wildcard names per
// position within a route group).
func wrapIDParam(next gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Params = append(c.Params, gin.Param{Key: "id", Value: c.Param("centerId")})
		next(c)
	}
}
