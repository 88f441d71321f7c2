package ordersvc

import (
	"github.com/Chuksremi15/wiseramp-backend/internal/model"
)

type IOrderService interface {
	Create(input CreateOrderInput) (*model.Order, error)
	GetByOrderID(orderID string) (*model.Order, error)
	UpdateCryptoStatus(id uint, status model.OrderStatus, txHash string) error
	ExpireOldOrders() ([]model.WatchTarget, error)
}
