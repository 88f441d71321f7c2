package settlement

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/model"
	"github.com/Chuksremi15/wiseramp-backend/internal/store"
	"github.com/Chuksremi15/wiseramp-backend/internal/store/order"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Sweep(ctx context.Context, chain, userID, currency, fromAddress, vaultAddress string) (string, string, error) {
	args := m.Called(ctx, chain, userID, currency, fromAddress, vaultAddress)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockExecutor) Payout(ctx context.Context, chain, currency, destinationAddress, amount string) (string, string, error) {
	args := m.Called(ctx, chain, currency, destinationAddress, amount)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *mockExecutor) VerifyBalance(ctx context.Context, chain, address, currency string, expected *big.Int) (bool, *big.Int, error) {
	args := m.Called(ctx, chain, address, currency, expected)
	var actual *big.Int
	if args.Get(1) != nil {
		actual = args.Get(1).(*big.Int)
	}
	return args.Bool(0), actual, args.Error(2)
}

type mockEnqueuer struct {
	mock.Mock
}

func (m *mockEnqueuer) Enqueue(job SweepJob) (uint, error) {
	args := m.Called(job)
	return args.Get(0).(uint), args.Error(1)
}

type stubOrderStore struct {
	order.IStore

	order *model.Order

	markFailedOverall model.OrderStatus
	markFailedCrypto  model.OrderStatus
	completedTxHash   string
	internalStatus    model.OrderStatus
}

func (s *stubOrderStore) GetByOrderID(tx *gorm.DB, orderID string) (*model.Order, error) {
	if s.order == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrderStore) MarkFailed(tx *gorm.DB, id uint, overall, cryptoStatus model.OrderStatus) error {
	s.markFailedOverall = overall
	s.markFailedCrypto = cryptoStatus
	return nil
}

func (s *stubOrderStore) MarkCompleted(tx *gorm.DB, id uint, destinationTxHash string, completedAt time.Time) error {
	s.completedTxHash = destinationTxHash
	return nil
}

func (s *stubOrderStore) SetInternalTransferStatus(tx *gorm.DB, orderID string, status model.OrderStatus, note *string) error {
	s.internalStatus = status
	return nil
}

func cryptoToFiatOrder() *model.Order {
	chain := "base"
	return &model.Order{
		Model:          gorm.Model{ID: 1},
		OrderID:        "order-1",
		Kind:           model.OrderKindCryptoToFiat,
		UserID:         "user-1",
		SourceChain:    &chain,
		SourceCurrency: "USDC",
		SourceAddress:  "0x1111111111111111111111111111111111111111",
		SourceAmount:   "100",
	}
}

func cryptoToCryptoOrder() *model.Order {
	source := "base"
	dest := "ethereum"
	return &model.Order{
		Model:               gorm.Model{ID: 2},
		OrderID:             "order-2",
		Kind:                model.OrderKindCryptoToCrypto,
		UserID:              "user-2",
		SourceChain:         &source,
		SourceCurrency:      "USDC",
		SourceAddress:       "0x1111111111111111111111111111111111111111",
		SourceAmount:        "100",
		DestinationChain:    &dest,
		DestinationCurrency: "USDC",
		DestinationAddress:  "0x2222222222222222222222222222222222222222",
		DestinationAmount:   "99.5",
	}
}

func newTestConfirmer(orders *stubOrderStore, executor *mockExecutor, sweeps *mockEnqueuer) *Confirmer {
	return New(nil, &store.Store{Order: orders}, executor, sweeps, "0x9999999999999999999999999999999999999999", logger.New("test"))
}

func TestConfirmCryptoToFiatSweepsAndWaitsForGateway(t *testing.T) {
	orders := &stubOrderStore{order: cryptoToFiatOrder()}
	executor := new(mockExecutor)
	sweeps := new(mockEnqueuer)

	// 100 USDC at 6 decimals.
	executor.On("VerifyBalance", mock.Anything, "base", "0x1111111111111111111111111111111111111111", "USDC", big.NewInt(100_000_000)).Return(true, big.NewInt(100_000_000), nil)
	sweeps.On("Enqueue", mock.MatchedBy(func(job SweepJob) bool {
		return job.OrderID == "order-1" && job.SourceChain == "base" && job.SourceCurrency == "USDC"
	})).Return(uint(1), nil)

	c := newTestConfirmer(orders, executor, sweeps)
	err := c.Confirm(context.Background(), "order-1")

	assert.NoError(t, err)
	executor.AssertExpectations(t)
	sweeps.AssertExpectations(t)
	executor.AssertNotCalled(t, "Payout", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmBalanceVerificationFailureIsFatal(t *testing.T) {
	orders := &stubOrderStore{order: cryptoToFiatOrder()}
	executor := new(mockExecutor)
	sweeps := new(mockEnqueuer)

	executor.On("VerifyBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, big.NewInt(5), nil)

	c := newTestConfirmer(orders, executor, sweeps)
	err := c.Confirm(context.Background(), "order-1")

	assert.ErrorIs(t, err, ErrBalanceVerificationFailed)
	assert.Equal(t, model.OrderStatusFailed, orders.markFailedOverall)
	assert.Equal(t, model.OrderStatusBalanceVerificationFailed, orders.markFailedCrypto)
	sweeps.AssertNotCalled(t, "Enqueue", mock.Anything)
}

func TestConfirmCryptoToCryptoPaysOutInBaseUnits(t *testing.T) {
	orders := &stubOrderStore{order: cryptoToCryptoOrder()}
	executor := new(mockExecutor)
	sweeps := new(mockEnqueuer)

	executor.On("VerifyBalance", mock.Anything, "base", mock.Anything, "USDC", mock.Anything).Return(true, big.NewInt(100_000_000), nil)
	sweeps.On("Enqueue", mock.Anything).Return(uint(2), nil)
	// 99.5 USDC at 6 decimals.
	executor.On("Payout", mock.Anything, "ethereum", "USDC", "0x2222222222222222222222222222222222222222", "99500000").Return("0xdest", "100", nil)

	c := newTestConfirmer(orders, executor, sweeps)
	err := c.Confirm(context.Background(), "order-2")

	assert.NoError(t, err)
	assert.Equal(t, "0xdest", orders.completedTxHash)
	assert.Equal(t, model.OrderStatusCompleted, orders.internalStatus)
	executor.AssertExpectations(t)
}

func TestConfirmPayoutFailureMarksOrderFailed(t *testing.T) {
	orders := &stubOrderStore{order: cryptoToCryptoOrder()}
	executor := new(mockExecutor)
	sweeps := new(mockEnqueuer)

	executor.On("VerifyBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, big.NewInt(100_000_000), nil)
	sweeps.On("Enqueue", mock.Anything).Return(uint(3), nil)
	executor.On("Payout", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", "", errors.New("vault empty"))

	c := newTestConfirmer(orders, executor, sweeps)
	err := c.Confirm(context.Background(), "order-2")

	assert.ErrorIs(t, err, ErrDestinationTransferFailed)
	assert.Equal(t, model.OrderStatusTokenFromVaultFailed, orders.markFailedOverall)
}

func TestConfirmSweepEnqueueFailureDoesNotBlockPayout(t *testing.T) {
	orders := &stubOrderStore{order: cryptoToCryptoOrder()}
	executor := new(mockExecutor)
	sweeps := new(mockEnqueuer)

	executor.On("VerifyBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(true, big.NewInt(100_000_000), nil)
	sweeps.On("Enqueue", mock.Anything).Return(uint(0), errors.New("queue unavailable"))
	executor.On("Payout", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("0xdest", "100", nil)

	c := newTestConfirmer(orders, executor, sweeps)
	err := c.Confirm(context.Background(), "order-2")

	assert.NoError(t, err)
	assert.Equal(t, "0xdest", orders.completedTxHash)
}

func TestConfirmFiatSourcedSkipsSweep(t *testing.T) {
	dest := "base"
	orders := &stubOrderStore{order: &model.Order{
		Model:               gorm.Model{ID: 4},
		OrderID:             "order-4",
		Kind:                model.OrderKindFiatToCrypto,
		DestinationChain:    &dest,
		DestinationCurrency: "USDC",
		DestinationAddress:  "0x2222222222222222222222222222222222222222",
		DestinationAmount:   "10",
	}}
	executor := new(mockExecutor)
	sweeps := new(mockEnqueuer)

	executor.On("Payout", mock.Anything, "base", "USDC", "0x2222222222222222222222222222222222222222", "10000000").Return("0xdest", "50", nil)

	c := newTestConfirmer(orders, executor, sweeps)
	err := c.Confirm(context.Background(), "order-4")

	assert.NoError(t, err)
	executor.AssertNotCalled(t, "VerifyBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	sweeps.AssertNotCalled(t, "Enqueue", mock.Anything)
}
