package watcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/chainrpc"
	"github.com/Chuksremi15/wiseramp-backend/internal/model"
	"github.com/Chuksremi15/wiseramp-backend/internal/store"
	"github.com/Chuksremi15/wiseramp-backend/internal/store/order"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
)

// stubOrderStore implements order.IStore with overridable behavior for the
// methods the registry touches.
type stubOrderStore struct {
	order.IStore
	countActiveWatch        func(chain, address string) (int64, error)
	findActiveCryptoWatches func() ([]model.Order, error)
}

func (s *stubOrderStore) CountActiveWatch(tx *gorm.DB, chain, address string, now time.Time) (int64, error) {
	return s.countActiveWatch(chain, address)
}

func (s *stubOrderStore) FindActiveCryptoWatches(tx *gorm.DB, now time.Time) ([]model.Order, error) {
	return s.findActiveCryptoWatches()
}

type nopSink struct{}

func (nopSink) HandleTransfer(ctx context.Context, chain string, transfer chainrpc.Transfer) {}

func newTestRegistry(orders *stubOrderStore) (*Registry, *Scanner) {
	log := logger.New("test")
	factory := func(chain string) (chainrpc.IChainClient, error) {
		return &fakeChainClient{height: 100}, nil
	}
	scanner := NewScanner(nopSink{}, factory, time.Hour, nil, log)
	registry := NewRegistry(scanner, &store.Store{Order: orders}, nil, log)
	return registry, scanner
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"0xAbCdEF1234567890abcdef1234567890ABCDEF12", "0xabcdef1234567890abcdef1234567890abcdef12", true},
		{"abcdef1234567890abcdef1234567890abcdef12", "0xabcdef1234567890abcdef1234567890abcdef12", true},
		{"  0xabcdef1234567890abcdef1234567890abcdef12  ", "0xabcdef1234567890abcdef1234567890abcdef12", true},
		{"0xabcdef", "", false},
		{"0xzzcdef1234567890abcdef1234567890abcdef12", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizeAddress(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestRegistryAddRejectsInvalidInput(t *testing.T) {
	registry, scanner := newTestRegistry(&stubOrderStore{})
	defer scanner.StopAll()

	assert.False(t, registry.AddNative("not-an-address", "ethereum"))
	assert.False(t, registry.AddNative("0xabcdef1234567890abcdef1234567890abcdef12", "solana"))
	assert.False(t, registry.AddToken("0xabcdef1234567890abcdef1234567890abcdef12", "ethereum", "DOGE"))

	addrs, _ := registry.Snapshot("ethereum")
	assert.Empty(t, addrs)
}

func TestRegistryAddMergesTokenContracts(t *testing.T) {
	registry, scanner := newTestRegistry(&stubOrderStore{})
	defer scanner.StopAll()

	addr := "0xabcdef1234567890abcdef1234567890abcdef12"
	require.True(t, registry.AddToken(addr, "ethereum", "USDC"))
	require.True(t, registry.AddToken(addr, "ethereum", "DAI"))

	addrs, tokens := registry.Snapshot("ethereum")
	assert.Equal(t, []string{addr}, addrs)
	assert.Len(t, tokens, 2)
}

func TestRegistryOccupancyStartsAndStopsChainLoop(t *testing.T) {
	registry, scanner := newTestRegistry(&stubOrderStore{})
	defer scanner.StopAll()

	addr := "0xabcdef1234567890abcdef1234567890abcdef12"
	require.True(t, registry.AddNative(addr, "base"))

	scanner.mu.Lock()
	_, running := scanner.chains["base"]
	scanner.mu.Unlock()
	assert.True(t, running)

	require.True(t, registry.Remove(addr, "base"))

	scanner.mu.Lock()
	_, running = scanner.chains["base"]
	scanner.mu.Unlock()
	assert.False(t, running)
}

func TestRemoveIfNoActiveOrdersKeepsBusyWatch(t *testing.T) {
	orders := &stubOrderStore{
		countActiveWatch: func(chain, address string) (int64, error) { return 2, nil },
	}
	registry, scanner := newTestRegistry(orders)
	defer scanner.StopAll()

	addr := "0xabcdef1234567890abcdef1234567890abcdef12"
	require.True(t, registry.AddNative(addr, "base"))

	assert.False(t, registry.RemoveIfNoActiveOrders(addr, "base"))

	addrs, _ := registry.Snapshot("base")
	assert.Equal(t, []string{addr}, addrs)
}

func TestRemoveIfNoActiveOrdersReleasesIdleWatch(t *testing.T) {
	orders := &stubOrderStore{
		countActiveWatch: func(chain, address string) (int64, error) { return 0, nil },
	}
	registry, scanner := newTestRegistry(orders)
	defer scanner.StopAll()

	addr := "0xabcdef1234567890abcdef1234567890abcdef12"
	require.True(t, registry.AddNative(addr, "base"))

	assert.True(t, registry.RemoveIfNoActiveOrders(addr, "base"))

	addrs, _ := registry.Snapshot("base")
	assert.Empty(t, addrs)
}

func TestRebuildRestoresWatches(t *testing.T) {
	ethereum := "ethereum"
	orders := &stubOrderStore{
		countActiveWatch: func(chain, address string) (int64, error) { return 1, nil },
		findActiveCryptoWatches: func() ([]model.Order, error) {
			return []model.Order{
				{
					SourceChain:    &ethereum,
					SourceCurrency: "ETH",
					SourceAddress:  "0x1111111111111111111111111111111111111111",
					CryptoStatus:   model.OrderStatusWaitingForCrypto,
				},
				{
					SourceChain:    &ethereum,
					SourceCurrency: "USDC",
					SourceAddress:  "0x2222222222222222222222222222222222222222",
					CryptoStatus:   model.OrderStatusWaitingForCrypto,
				},
			}, nil
		},
	}
	registry, scanner := newTestRegistry(orders)
	defer scanner.StopAll()

	require.NoError(t, registry.Rebuild())

	addrs, tokens := registry.Snapshot("ethereum")
	assert.Len(t, addrs, 2)
	assert.Len(t, tokens, 1)
}
