package monitoring

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Chuksremi15/wiseramp-backend/internal/chainrpc"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
)

// CircuitBreakerConfig mirrors the gobreaker settings we expose.
type CircuitBreakerConfig struct {
	MaxRequests                 uint32
	Interval                    time.Duration
	Timeout                     time.Duration
	ConsecutiveFailureThreshold int
}

var DefaultCircuitBreakerConfig = CircuitBreakerConfig{
	MaxRequests:                 3,
	Interval:                    60 * time.Second,
	Timeout:                     30 * time.Second,
	ConsecutiveFailureThreshold: 5,
}

// CircuitBreakerChainClient wraps a chainrpc.IChainClient so that a chain
// whose RPC endpoint is flapping stops being hammered every scan cycle.
type CircuitBreakerChainClient struct {
	chain          string
	wrapped        chainrpc.IChainClient
	circuitBreaker *gobreaker.CircuitBreaker
	metrics        *Metrics
	logger         *logger.Logger
}

func NewCircuitBreakerChainClient(chain string, wrapped chainrpc.IChainClient, config CircuitBreakerConfig, metrics *Metrics, logger *logger.Logger) *CircuitBreakerChainClient {
	cb := &CircuitBreakerChainClient{
		chain:   chain,
		wrapped: wrapped,
		metrics: metrics,
		logger:  logger,
	}

	settings := gobreaker.Settings{
		Name:        chain + "_rpc",
		MaxRequests: config.MaxRequests,
		Interval:    config.Interval,
		Timeout:     config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(config.ConsecutiveFailureThreshold)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Info("Circuit breaker state change", map[string]string{
				"service": name,
				"from":    from.String(),
				"to":      to.String(),
			})
			metrics.UpdateCircuitBreakerState(name, to)
		},
	}

	cb.circuitBreaker = gobreaker.NewCircuitBreaker(settings)
	return cb
}

func (c *CircuitBreakerChainClient) Height(ctx context.Context) (uint64, error) {
	start := time.Now()
	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.wrapped.Height(ctx)
	})
	c.metrics.RecordRPCCall(c.chain, "height", time.Since(start), err)
	if err != nil {
		return 0, err
	}
	return result.(uint64), nil
}

func (c *CircuitBreakerChainClient) QueryRange(ctx context.Context, fromBlock uint64, filter chainrpc.RangeFilter) (*chainrpc.RangeResult, error) {
	start := time.Now()
	result, err := c.circuitBreaker.Execute(func() (interface{}, error) {
		return c.wrapped.QueryRange(ctx, fromBlock, filter)
	})
	c.metrics.RecordRPCCall(c.chain, "query_range", time.Since(start), err)
	if err != nil {
		return nil, err
	}
	return result.(*chainrpc.RangeResult), nil
}

func (c *CircuitBreakerChainClient) Close() {
	c.wrapped.Close()
}
