package order

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/model"
	"github.com/Chuksremi15/wiseramp-backend/internal/ordersvc"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
	"github.com/Chuksremi15/wiseramp-backend/internal/view"
)

type CreateOrderRequest struct {
	Kind   string `json:"kind" binding:"required"`
	UserID string `json:"user_id" binding:"required"`
	Email  string `json:"email" binding:"required,email"`

	SourceChain       string `json:"source_chain"`
	SourceCurrency    string `json:"source_currency" binding:"required"`
	SourceAddress     string `json:"source_address"`
	SourceAmount      string `json:"source_amount" binding:"required"`
	SourceBankDetails string `json:"source_bank_details"`

	DestinationChain       string `json:"destination_chain"`
	DestinationCurrency    string `json:"destination_currency" binding:"required"`
	DestinationAddress     string `json:"destination_address"`
	DestinationAmount      string `json:"destination_amount" binding:"required"`
	DestinationBankDetails string `json:"destination_bank_details"`

	ExchangeRate  string `json:"exchange_rate" binding:"required"`
	FeeAmount     string `json:"fee_amount"`
	FeePercentage string `json:"fee_percentage"`
	NetAmount     string `json:"net_amount" binding:"required"`
}

type handler struct {
	svc    ordersvc.IOrderService
	logger *logger.Logger
}

func New(svc ordersvc.IOrderService, logger *logger.Logger) IHandler {
	return &handler{
		svc:    svc,
		logger: logger,
	}
}

// Create godoc
// @Summary Create an order
// @Description Creates a new exchange order and, for crypto-sourced kinds, registers the deposit address for chain watching
// @id createOrder
// @Tags Order
// @Accept json
// @Produce json
// @Param request body CreateOrderRequest true "Order parameters"
// @Success 201 {object} view.ApiResponse[model.Order]
// @Failure 400 {object} view.ErrorResponse
// @Failure 500 {object} view.ErrorResponse
// @Router /orders [post]
func (h *handler) Create(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("[Create][ShouldBindJSON]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return
	}

	input, err := toCreateInput(req)
	if err != nil {
		h.logger.Error("[Create][toCreateInput]", map[string]string{
			"error": err.Error(),
		})
		c.JSON(http.StatusBadRequest, view.CreateResponse[any](nil, err, req, "invalid request"))
		return
	}

	order, err := h.svc.Create(input)
	if err != nil {
		h.logger.Error("[Create][svc.Create]", map[string]string{
			"error": err.Error(),
		})
		status := http.StatusInternalServerError
		if errors.Is(err, ordersvc.ErrUnsupportedChain) {
			status = http.StatusBadRequest
		}
		c.JSON(status, view.CreateResponse[any](nil, err, req, "failed to create order"))
		return
	}

	c.JSON(http.StatusCreated, view.CreateResponse(order, nil, nil, "order created"))
}

// Get godoc
// @Summary Get an order
// @Description Returns an order by its public order ID
// @id getOrder
// @Tags Order
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} view.ApiResponse[model.Order]
// @Failure 404 {object} view.ErrorResponse
// @Router /orders/{id} [get]
func (h *handler) Get(c *gin.Context) {
	orderID := c.Param("id")

	order, err := h.svc.GetByOrderID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, view.CreateResponse[any](nil, err, nil, "order not found"))
			return
		}
		h.logger.Error("[Get][GetByOrderID]", map[string]string{
			"orderId": orderID,
			"error":   err.Error(),
		})
		c.JSON(http.StatusInternalServerError, view.CreateResponse[any](nil, err, nil, "failed to get order"))
		return
	}

	c.JSON(http.StatusOK, view.CreateResponse(order, nil, nil, ""))
}

func toCreateInput(req CreateOrderRequest) (ordersvc.CreateOrderInput, error) {
	rate, err := decimal.NewFromString(req.ExchangeRate)
	if err != nil {
		return ordersvc.CreateOrderInput{}, errors.Wrap(err, "invalid exchange_rate")
	}
	net, err := decimal.NewFromString(req.NetAmount)
	if err != nil {
		return ordersvc.CreateOrderInput{}, errors.Wrap(err, "invalid net_amount")
	}

	fee := decimal.Zero
	if req.FeeAmount != "" {
		fee, err = decimal.NewFromString(req.FeeAmount)
		if err != nil {
			return ordersvc.CreateOrderInput{}, errors.Wrap(err, "invalid fee_amount")
		}
	}
	feePct := decimal.Zero
	if req.FeePercentage != "" {
		feePct, err = decimal.NewFromString(req.FeePercentage)
		if err != nil {
			return ordersvc.CreateOrderInput{}, errors.Wrap(err, "invalid fee_percentage")
		}
	}

	return ordersvc.CreateOrderInput{
		Kind:                   model.OrderKind(req.Kind),
		UserID:                 req.UserID,
		Email:                  req.Email,
		SourceChain:            req.SourceChain,
		SourceCurrency:         req.SourceCurrency,
		SourceAddress:          req.SourceAddress,
		SourceAmount:           req.SourceAmount,
		SourceBankDetails:      req.SourceBankDetails,
		DestinationChain:       req.DestinationChain,
		DestinationCurrency:    req.DestinationCurrency,
		DestinationAddress:     req.DestinationAddress,
		DestinationAmount:      req.DestinationAmount,
		DestinationBankDetails: req.DestinationBankDetails,
		ExchangeRate:           rate,
		FeeAmount:              fee,
		FeePercentage:          feePct,
		NetAmount:              net,
	}, nil
}
