package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/okaziba/storefront/internal/api/handlers"
	"github.com/okaziba/storefront/internal/api/middleware"
)

// NewRouter creates and configures the Gin router
func NewRouter(deps *handlers.Deps) *gin.Engine {
	if deps.Cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(deps.Logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := router.Group("/v1")
	v1.Use(middleware.IdentityMiddleware(deps.Cfg.Auth, deps.Logger))
	{
		v1.GET("/zones", handlers.HandleListZones(deps))
		v1.GET("/delivery-methods", handlers.HandleListDeliveryMethods(deps))

		v1.GET("/cart", handlers.HandleGetCart(deps))
		v1.POST("/cart", handlers.HandleAddToCart(deps))
		v1.PATCH("/cart/lines/:id", handlers.HandleUpdateCartLine(deps))
		v1.DELETE("/cart/lines/:id", handlers.HandleRemoveCartLine(deps))
		v1.POST("/cart/selection/toggle", handlers.HandleToggleSelection(deps))
		v1.POST("/cart/selection/toggle-all", handlers.HandleToggleSelectAll(deps))
		v1.POST("/cart/merge", handlers.HandleMergeCart(deps))

		v1.GET("/addresses", handlers.HandleListAddresses(deps))
		v1.POST("/addresses", handlers.HandleCreateAddress(deps))
		v1.POST("/addresses/:id/default", handlers.HandleSetDefaultAddress(deps))

		v1.POST("/checkout/address", handlers.HandleSelectAddress(deps))
		v1.POST("/checkout/method", handlers.HandleSelectMethod(deps))
		v1.POST("/checkout/discount", handlers.HandleApplyDiscount(deps))
		v1.GET("/checkout/quote", handlers.HandleGetQuote(deps))
		v1.POST("/checkout/initiate", handlers.HandleInitiatePayment(deps))
		v1.POST("/checkout/callback", handlers.HandlePaymentCallback(deps))
		v1.POST("/checkout/dismiss", handlers.HandlePaymentDismissed(deps))
		v1.POST("/checkout/retry", handlers.HandlePaymentRetry(deps))
		v1.GET("/checkout/status", handlers.HandlePaymentStatus(deps))
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
