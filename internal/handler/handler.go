package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/handler/health"
	"github.com/Chuksremi15/wiseramp-backend/internal/handler/metrics"
	"github.com/Chuksremi15/wiseramp-backend/internal/handler/order"
	"github.com/Chuksremi15/wiseramp-backend/internal/handler/sweep"
	"github.com/Chuksremi15/wiseramp-backend/internal/handler/webhook"
	"github.com/Chuksremi15/wiseramp-backend/internal/matcher"
	"github.com/Chuksremi15/wiseramp-backend/internal/ordersvc"
	"github.com/Chuksremi15/wiseramp-backend/internal/store"
	"github.com/Chuksremi15/wiseramp-backend/internal/sweeper"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/config"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
)

type Handler struct {
	OrderHandler   order.IHandler
	WebhookHandler webhook.IHandler
	SweepHandler   sweep.IHandler
	HealthHandler  health.IHealthHandler
	MetricsHandler *metrics.MetricsHandler
}

func New(appConfig *config.AppConfig, logger *logger.Logger,
	orderSvc ordersvc.IOrderService,
	engine matcher.IEngine,
	sweepQueue sweeper.IQueue,
	s *store.Store,
	db *gorm.DB,
	metricsRegistry *prometheus.Registry) *Handler {
	return &Handler{
		OrderHandler:   order.New(orderSvc, logger),
		WebhookHandler: webhook.New(engine, logger),
		SweepHandler:   sweep.New(sweepQueue, s, db, logger),
		HealthHandler:  health.New(appConfig, logger, db),
		MetricsHandler: metrics.NewMetricsHandler(metricsRegistry),
	}
}
