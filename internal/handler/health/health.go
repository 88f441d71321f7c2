package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/utils/config"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
)

const dbCheckTimeout = 5 * time.Second

type HealthHandler struct {
	config *config.AppConfig
	logger *logger.Logger
	db     *gorm.DB
}

func New(config *config.AppConfig, logger *logger.Logger, db *gorm.DB) IHealthHandler {
	return &HealthHandler{
		config: config,
		logger: logger,
		db:     db,
	}
}

// Basic handles the basic health check endpoint (/healthz)
// @Summary Basic health check
// @Description Returns basic system availability status
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} BasicHealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Basic(c *gin.Context) {
	c.JSON(http.StatusOK, BasicHealthResponse{Message: "ok"})
}

// Database handles the database health check endpoint
// @Summary Database health check
// @Description Validates database connectivity
// @Tags health
// @Accept json
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /api/v1/health/db [get]
func (h *HealthHandler) Database(c *gin.Context) {
	start := time.Now()

	response := HealthResponse{
		Timestamp: start,
		Checks:    make(map[string]HealthCheck),
	}

	ctx := context.Background()
	if c.Request != nil {
		ctx = c.Request.Context()
	}

	dbCheck := h.checkDatabase(ctx)
	response.Checks["database"] = dbCheck
	response.DurationMs = time.Since(start).Milliseconds()

	if dbCheck.Status == "healthy" {
		response.Status = "healthy"
		c.JSON(http.StatusOK, response)
		return
	}

	response.Status = "unhealthy"
	c.JSON(http.StatusServiceUnavailable, response)
}

func (h *HealthHandler) checkDatabase(ctx context.Context) HealthCheck {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, dbCheckTimeout)
	defer cancel()

	sqlDB, err := h.db.DB()
	if err != nil {
		return HealthCheck{
			Status:     "unhealthy",
			DurationMs: time.Since(start).Milliseconds(),
			Error:      err.Error(),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		h.logger.Error("[checkDatabase][Ping]", map[string]string{
			"error": err.Error(),
		})
		return HealthCheck{
			Status:     "unhealthy",
			DurationMs: time.Since(start).Milliseconds(),
			Error:      err.Error(),
		}
	}

	return HealthCheck{
		Status:     "healthy",
		DurationMs: time.Since(start).Milliseconds(),
	}
}
