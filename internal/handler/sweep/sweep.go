package sweep

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/store"
	"github.com/Chuksremi15/wiseramp-backend/internal/sweeper"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
	"github.com/Chuksremi15/wiseramp-backend/internal/view"
)

type handler struct {
	queue  sweeper.IQueue
	store  *store.Store
	db     *gorm.DB
	logger *logger.Logger
}

func New(queue sweeper.IQueue, s *store.Store, db *gorm.DB, logger *logger.Logger) IHandler {
	return &handler{
		queue:  queue,
		store:  s,
		db:     db,
		logger: logger,
	}
}

// Get godoc
// @Summary Get a sweep job
// @Description Returns a sweep queue entry by ID, including retry count and last error
// @id getSweep
// @Tags Sweep
// @Accept json
// @Produce json
// @Param id path int true "Sweep entry ID"
// @Success 200 {object} view.ApiResponse[model.SweepQueueEntry]
// @Failure 404 {object} view.ErrorResponse
// @Router /sweeps/{id} [get]
func (h *handler) Get(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, nil, "invalid sweep id"))
		return
	}

	entry, err := h.store.SweepQueue.GetByID(h.db, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, view.CreateResponse[any](nil, err, nil, "sweep not found"))
			return
		}
		h.logger.Error("[Get][GetByID]", map[string]string{
			"id":    strconv.FormatUint(uint64(id), 10),
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, nil, "failed to get sweep"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(entry, nil, nil, ""))
}

// Retry godoc
// @Summary Retry a failed sweep job
// @Description Resets a permanently failed sweep entry and re-runs it. Only FAILED entries are eligible.
// @id retrySweep
// @Tags Sweep
// @Accept json
// @Produce json
// @Param id path int true "Sweep entry ID"
// @Success 200 {object} view.MessageResponse
// @Failure 409 {object} view.ErrorResponse
// @Router /sweeps/{id}/retry [post]
func (h *handler) Retry(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, nil, "invalid sweep id"))
		return
	}

	accepted, err := h.queue.Retry(id)
	if err != nil {
		h.logger.Error("[Retry][queue.Retry]", map[string]string{
			"id":    strconv.FormatUint(uint64(id), 10),
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, nil, "failed to retry sweep"))
		return
	}
	if !accepted {
		c.JSON(http.StatusConflict, view.CreateResponse[any](nil, errors.New("sweep is not in a failed state"), nil, "only failed sweeps can be retried"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse[any]("sweep retry accepted", nil, nil, ""))
}

func parseID(c *gin.Context) (uint, error) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, errors.Wrap(err, "invalid id")
	}
	return uint(id), nil
}
