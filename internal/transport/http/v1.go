package http

import (
	"github.com/gin-gonic/gin"

	"github.com/Chuksremi15/wiseramp-backend/internal/handler"
)

func loadV1Routes(r *gin.Engine, h *handler.Handler) {
	v1 := r.Group("/api/v1")

	orders := v1.Group("/orders")
	{
		orders.POST("", h.OrderHandler.Create)
		orders.GET("/:id", h.OrderHandler.Get)
	}

	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/fiat", h.WebhookHandler.FiatPayment)
	}

	sweeps := v1.Group("/sweeps")
	{
		sweeps.GET("/:id", h.SweepHandler.Get)
		sweeps.POST("/:id/retry", h.SweepHandler.Retry)
	}

	v1.GET("/health/db", h.HealthHandler.Database)

	// health check
	r.GET("/healthz", h.HealthHandler.Basic)

	// prometheus scrape endpoint
	r.GET("/metrics", h.MetricsHandler.Handler())
}
