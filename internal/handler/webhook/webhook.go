package webhook

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/Chuksremi15/wiseramp-backend/internal/matcher"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
	"github.com/Chuksremi15/wiseramp-backend/internal/view"
)

// FiatPaymentRequest is the payload the fiat gateway posts when a customer
// payment settles.
type FiatPaymentRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Amount   string `json:"amount" binding:"required"`
	Currency string `json:"currency" binding:"required"`
	Ref      string `json:"reference"`
}

type handler struct {
	engine matcher.IEngine
	logger *logger.Logger
}

func New(engine matcher.IEngine, logger *logger.Logger) IHandler {
	return &handler{
		engine: engine,
		logger: logger,
	}
}

// FiatPayment godoc
// @Summary Fiat payment notification
// @Description Matches a settled fiat payment against the payer's pending fiat-sourced orders
// @id fiatPaymentWebhook
// @Tags Webhook
// @Accept json
// @Produce json
// @Param request body FiatPaymentRequest true "Payment notification"
// @Success 200 {object} view.MessageResponse
// @Failure 400 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /webhooks/fiat [post]
func (h *handler) FiatPayment(c *gin.Context) {
	var req FiatPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("[FiatPayment][ShouldBindJSON]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		h.logger.Error("[FiatPayment][ParseAmount]", map[string]string{
			"amount": req.Amount,
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid amount"))
		return
	}

	if err := h.engine.MatchFiat(c.Request.Context(), req.Email, amount); err != nil {
		h.logger.Error("[FiatPayment][MatchFiat]", map[string]string{
			"email": req.Email,
			"ref":   req.Ref,
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, nil, "failed to match payment"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse[any]("payment processed", nil, nil, ""))
}
