package ordersvc

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/chaincfg"
	"github.com/Chuksremi15/wiseramp-backend/internal/model"
	"github.com/Chuksremi15/wiseramp-backend/internal/store"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
	"github.com/Chuksremi15/wiseramp-backend/internal/watcher"
)

var (
	ErrWatchRegistrationFailed = errors.New("failed to register watch for source address")
	ErrUnsupportedChain        = errors.New("unsupported source chain")
)

// CreateOrderInput carries everything the API boundary precomputes for a new
// order. All economics must already be resolved.
type CreateOrderInput struct {
	Kind   model.OrderKind `validate:"required,oneof=fiat_to_crypto crypto_to_fiat crypto_to_crypto"`
	UserID string          `validate:"required"`
	Email  string          `validate:"required,email"`

	SourceChain       string `validate:"required_unless=Kind fiat_to_crypto"`
	SourceCurrency    string `validate:"required"`
	SourceAddress     string `validate:"required_unless=Kind fiat_to_crypto"`
	SourceAmount      string `validate:"required"`
	SourceBankDetails string

	DestinationChain       string
	DestinationCurrency    string `validate:"required"`
	DestinationAddress     string
	DestinationAmount      string `validate:"required"`
	DestinationBankDetails string

	ExchangeRate  decimal.Decimal `validate:"required"`
	FeeAmount     decimal.Decimal
	FeePercentage decimal.Decimal
	NetAmount     decimal.Decimal `validate:"required"`
}

type Service struct {
	db       *gorm.DB
	store    *store.Store
	registry watcher.IWatchRegistry
	orderTTL time.Duration
	logger   *logger.Logger
	validate *validator.Validate

	// inTx is swapped out in tests where no database is behind db.
	inTx func(*gorm.DB, func(*gorm.DB) error) error
}

func New(db *gorm.DB, s *store.Store, registry watcher.IWatchRegistry, orderTTL time.Duration, logger *logger.Logger) IOrderService {
	if orderTTL <= 0 {
		orderTTL = 20 * time.Minute
	}
	return &Service{
		db:       db,
		store:    s,
		registry: registry,
		orderTTL: orderTTL,
		logger:   logger,
		validate: validator.New(),
		inTx:     store.DoInTx,
	}
}

// Create validates the input, registers the source-address watch for
// crypto-sourced orders, and persists the order. The watch goes in first so
// an order is never persisted with nobody watching for its funds; if
// persistence then fails the watch registration is compensated away.
func (s *Service) Create(input CreateOrderInput) (*model.Order, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, errors.Wrap(err, "invalid order input")
	}

	now := time.Now()
	order := &model.Order{
		OrderID:             uuid.NewString(),
		Kind:                input.Kind,
		UserID:              input.UserID,
		Email:               input.Email,
		SourceCurrency:      strings.ToUpper(input.SourceCurrency),
		SourceAmount:        input.SourceAmount,
		DestinationCurrency: strings.ToUpper(input.DestinationCurrency),
		DestinationAddress:  input.DestinationAddress,
		DestinationAmount:   input.DestinationAmount,
		ExchangeRate:        input.ExchangeRate,
		FeeAmount:           input.FeeAmount,
		FeePercentage:       input.FeePercentage,
		NetAmount:           input.NetAmount,
		Status:              model.OrderStatusPending,
		ExpiredAt:           now.Add(s.orderTTL),
	}
	if input.SourceBankDetails != "" {
		order.SourceBankDetails = &input.SourceBankDetails
	}
	if input.DestinationBankDetails != "" {
		order.DestinationBankDetails = &input.DestinationBankDetails
	}
	if input.DestinationChain != "" {
		chain := strings.ToLower(input.DestinationChain)
		order.DestinationChain = &chain
	}

	cryptoSourced := input.Kind != model.OrderKindFiatToCrypto
	if cryptoSourced {
		chain := strings.ToLower(input.SourceChain)
		if !chaincfg.IsSupported(chain) {
			return nil, ErrUnsupportedChain
		}

		normalized, ok := watcher.NormalizeAddress(input.SourceAddress)
		if !ok {
			return nil, errors.Errorf("invalid source address %q", input.SourceAddress)
		}

		order.SourceChain = &chain
		order.SourceAddress = normalized
		order.CryptoStatus = model.OrderStatusWaitingForCrypto

		if !s.registerWatch(normalized, chain, order.SourceCurrency) {
			return nil, ErrWatchRegistrationFailed
		}
	} else {
		order.FiatStatus = model.OrderStatusWaitingForFiat
	}

	created, err := s.store.Order.Create(s.db, order)
	if err != nil {
		if cryptoSourced {
			// Compensating action: drop the watch unless a sibling
			// order still needs the address.
			s.registry.RemoveIfNoActiveOrders(order.SourceAddress, *order.SourceChain)
		}
		return nil, errors.Wrap(err, "failed to persist order")
	}

	s.logger.Info("[Create] order created", map[string]string{
		"orderId": created.OrderID,
		"kind":    string(created.Kind),
	})
	return created, nil
}

func (s *Service) registerWatch(address, chain, currency string) bool {
	cfg, ok := chaincfg.Get(chain)
	if !ok {
		return false
	}
	if strings.EqualFold(currency, cfg.NativeSymbol) {
		return s.registry.AddNative(address, chain)
	}
	return s.registry.AddToken(address, chain, currency)
}

func (s *Service) GetByOrderID(orderID string) (*model.Order, error) {
	return s.store.Order.GetByOrderID(s.db, orderID)
}

// UpdateCryptoStatus advances the crypto sub-status. On crypto_confirmed the
// transition is guarded on the current sub-status and also derives the
// overall status from the order's kind.
func (s *Service) UpdateCryptoStatus(id uint, status model.OrderStatus, txHash string) error {
	if status != model.OrderStatusCryptoConfirmed {
		return s.store.Order.UpdateCryptoStatus(s.db, id, status)
	}

	var order model.Order
	if err := s.db.First(&order, id).Error; err != nil {
		return err
	}

	overall := model.OrderStatusProcessing
	fiatStatus := model.OrderStatus("")
	if order.Kind == model.OrderKindCryptoToFiat {
		overall = model.OrderStatusProcessingPayout
		fiatStatus = model.OrderStatusFiatPending
	}

	won, err := s.store.Order.ConfirmCrypto(s.db, id, txHash, overall, fiatStatus)
	if err != nil {
		return err
	}
	if !won {
		s.logger.Info("[UpdateCryptoStatus] order already confirmed", map[string]string{
			"orderId": order.OrderID,
		})
	}
	return nil
}

// ExpireOldOrders reaps every non-terminal order past its deadline and
// returns the (address, chain) pairs whose watches may now be released.
func (s *Service) ExpireOldOrders() ([]model.WatchTarget, error) {
	var targets []model.WatchTarget
	err := s.inTx(s.db, func(tx *gorm.DB) error {
		var txErr error
		targets, txErr = s.store.Order.ExpireOld(tx, time.Now())
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return targets, nil
}
