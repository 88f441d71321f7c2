package watcher

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/Chuksremi15/wiseramp-backend/internal/chainrpc"
	"github.com/Chuksremi15/wiseramp-backend/internal/monitoring"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
)

// TransferSink consumes the decoded transfers a scan cycle discovers.
type TransferSink interface {
	HandleTransfer(ctx context.Context, chain string, transfer chainrpc.Transfer)
}

// ClientFactory lazily builds the chain client for a chain name. Called on
// first use so a misconfigured chain never blocks the others.
type ClientFactory func(chain string) (chainrpc.IChainClient, error)

type chainState struct {
	name             string
	client           chainrpc.IChainClient
	lastScannedBlock uint64
	cancel           context.CancelFunc
	done             chan struct{}
}

// Scanner runs one periodic scan loop per active chain. Loops are isolated:
// a failing cycle on one chain never aborts another, and a failed cycle
// leaves the cursor untouched so the same range is retried next tick.
type Scanner struct {
	mu     sync.Mutex
	chains map[string]*chainState

	registry      *Registry
	sink          TransferSink
	clientFactory ClientFactory
	interval      time.Duration
	metrics       *monitoring.Metrics
	logger        *logger.Logger
}

func NewScanner(sink TransferSink, clientFactory ClientFactory, interval time.Duration, metrics *monitoring.Metrics, logger *logger.Logger) *Scanner {
	if interval <= 0 {
		interval = 12 * time.Second
	}
	return &Scanner{
		chains:        make(map[string]*chainState),
		sink:          sink,
		clientFactory: clientFactory,
		interval:      interval,
		metrics:       metrics,
		logger:        logger,
	}
}

// SetSink binds the transfer consumer. Must be called before the first
// chain loop starts.
func (s *Scanner) SetSink(sink TransferSink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = sink
}

// EnsureStarted spins up the scan loop for a chain if it is not already
// running.
func (s *Scanner) EnsureStarted(chain string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, running := s.chains[chain]; running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	state := &chainState{
		name:   chain,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.chains[chain] = state

	s.logger.Info("[Scanner] starting chain loop", map[string]string{
		"chain":    chain,
		"interval": s.interval.String(),
	})
	go s.run(ctx, state)
}

// Stop cancels a chain's pending timer. It does not wait for the loop to
// unwind: the matching engine releases watches from inside the scan cycle
// itself, so blocking here would deadlock the loop against its own
// completion. An in-flight scan still finishes before teardown.
func (s *Scanner) Stop(chain string) {
	s.mu.Lock()
	state, ok := s.chains[chain]
	if ok {
		delete(s.chains, chain)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	state.cancel()
	s.logger.Info("[Scanner] chain loop stopping", map[string]string{
		"chain": chain,
	})
}

// StopAll tears down every chain loop; used at shutdown.
func (s *Scanner) StopAll() {
	s.mu.Lock()
	states := make([]*chainState, 0, len(s.chains))
	for name, state := range s.chains {
		states = append(states, state)
		delete(s.chains, name)
	}
	s.mu.Unlock()

	for _, state := range states {
		state.cancel()
		<-state.done
	}
}

// CursorFor reports a chain's current cursor; zero when the chain is not
// being scanned.
func (s *Scanner) CursorFor(chain string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state, ok := s.chains[chain]; ok {
		return state.lastScannedBlock
	}
	return 0
}

func (s *Scanner) run(ctx context.Context, state *chainState) {
	defer close(state.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if state.client != nil {
				state.client.Close()
			}
			return
		case <-ticker.C:
			s.runCycle(ctx, state)
		}
	}
}

func (s *Scanner) runCycle(ctx context.Context, state *chainState) {
	start := time.Now()
	err := s.scanOnce(ctx, state)
	s.metrics.RecordScanCycle(state.name, time.Since(start), err)
	if err != nil {
		// Cursor untouched: the same range is rescanned next tick.
		s.logger.Error("[Scanner] cycle failed", map[string]string{
			"chain": state.name,
			"block": strconv.FormatUint(s.CursorFor(state.name), 10),
			"error": err.Error(),
		})
	}
}

func (s *Scanner) scanOnce(ctx context.Context, state *chainState) error {
	if state.client == nil {
		if err := s.initChain(ctx, state); err != nil {
			return err
		}
	}

	addrs, tokens := s.registry.Snapshot(state.name)

	// Malformed or vanished addresses must not widen the query to
	// everything; with nothing valid to watch the cycle is a no-op.
	valid := addrs[:0]
	for _, a := range addrs {
		if normalized, ok := NormalizeAddress(a); ok {
			valid = append(valid, normalized)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	s.mu.Lock()
	fromBlock := state.lastScannedBlock
	s.mu.Unlock()

	result, err := state.client.QueryRange(ctx, fromBlock, chainrpc.RangeFilter{
		Addresses:      valid,
		TokenContracts: tokens,
	})
	if err != nil {
		return err
	}

	for _, transfer := range result.Transfers {
		s.metrics.RecordTransfer(state.name, string(transfer.Kind))
		s.sink.HandleTransfer(ctx, state.name, transfer)
	}

	// Advance even when nothing matched so seen ranges are never rescanned.
	s.mu.Lock()
	state.lastScannedBlock = result.NextBlock
	s.mu.Unlock()
	return nil
}

// initChain dials the chain client and sets the cursor to the current
// height. Scanning starts from "now" on purpose: cursors are not persisted
// and a restart resynchronizes from the present.
func (s *Scanner) initChain(ctx context.Context, state *chainState) error {
	client, err := s.clientFactory(state.name)
	if err != nil {
		return err
	}

	height, err := client.Height(ctx)
	if err != nil {
		client.Close()
		return err
	}

	s.mu.Lock()
	state.client = client
	state.lastScannedBlock = height
	s.mu.Unlock()
	s.logger.Info("[Scanner] chain client initialized", map[string]string{
		"chain":  state.name,
		"height": strconv.FormatUint(height, 10),
	})
	return nil
}
