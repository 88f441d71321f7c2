package sweeper

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/model"
	"github.com/Chuksremi15/wiseramp-backend/internal/monitoring"
	"github.com/Chuksremi15/wiseramp-backend/internal/settlement"
	"github.com/Chuksremi15/wiseramp-backend/internal/store"
	"github.com/Chuksremi15/wiseramp-backend/internal/store/order"
	"github.com/Chuksremi15/wiseramp-backend/internal/store/sweepqueue"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
)

// memSweepStore is an in-memory sweepqueue.IStore with the same conditional
// transition semantics as the SQL implementation.
type memSweepStore struct {
	mu      sync.Mutex
	nextID  uint
	entries map[uint]*model.SweepQueueEntry
	calls   []string
}

func newMemSweepStore() *memSweepStore {
	return &memSweepStore{entries: map[uint]*model.SweepQueueEntry{}}
}

func (s *memSweepStore) Create(tx *gorm.DB, entry *model.SweepQueueEntry) (*model.SweepQueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	entry.ID = s.nextID
	s.entries[entry.ID] = entry
	return entry, nil
}

func (s *memSweepStore) GetByID(tx *gorm.DB, id uint) (*model.SweepQueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "GetByID")
	entry, ok := s.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *entry
	return &copied, nil
}

func (s *memSweepStore) MarkProcessing(tx *gorm.DB, id uint, attemptAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "MarkProcessing")
	entry, ok := s.entries[id]
	if !ok || entry.Status != model.SweepStatusPending {
		return false, nil
	}
	entry.Status = model.SweepStatusProcessing
	entry.LastAttemptAt = &attemptAt
	return true, nil
}

func (s *memSweepStore) MarkCompleted(tx *gorm.DB, id uint, txHash, networkFee string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entries[id]
	entry.Status = model.SweepStatusCompleted
	entry.TxHash = &txHash
	entry.NetworkFee = &networkFee
	return nil
}

func (s *memSweepStore) Requeue(tx *gorm.DB, id uint, retryCount int, errMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entries[id]
	entry.Status = model.SweepStatusPending
	entry.RetryCount = retryCount
	entry.ErrorMessage = &errMessage
	return nil
}

func (s *memSweepStore) MarkFailed(tx *gorm.DB, id uint, errMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := s.entries[id]
	entry.Status = model.SweepStatusFailed
	entry.ErrorMessage = &errMessage
	return nil
}

func (s *memSweepStore) ResetForManualRetry(tx *gorm.DB, id uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok || entry.Status != model.SweepStatusFailed {
		return false, nil
	}
	entry.Status = model.SweepStatusPending
	entry.RetryCount = 0
	return true, nil
}

func (s *memSweepStore) ReleaseStuckProcessing(tx *gorm.DB, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var released int64
	for _, entry := range s.entries {
		if entry.Status != model.SweepStatusProcessing {
			continue
		}
		if entry.LastAttemptAt == nil || entry.LastAttemptAt.Before(before) {
			entry.Status = model.SweepStatusPending
			released++
		}
	}
	return released, nil
}

func (s *memSweepStore) FindPending(tx *gorm.DB) ([]model.SweepQueueEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.SweepQueueEntry
	for _, entry := range s.entries {
		if entry.Status == model.SweepStatusPending {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (s *memSweepStore) get(id uint) model.SweepQueueEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.entries[id]
}

func (s *memSweepStore) callSequence() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

var _ sweepqueue.IStore = (*memSweepStore)(nil)

// recordingOrderStore captures internal transfer status updates.
type recordingOrderStore struct {
	order.IStore

	mu       sync.Mutex
	statuses map[string]model.OrderStatus
	notes    map[string]*string
}

func (s *recordingOrderStore) SetInternalTransferStatus(tx *gorm.DB, orderID string, status model.OrderStatus, note *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statuses == nil {
		s.statuses = map[string]model.OrderStatus{}
		s.notes = map[string]*string{}
	}
	s.statuses[orderID] = status
	s.notes[orderID] = note
	return nil
}

func (s *recordingOrderStore) statusOf(orderID string) model.OrderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[orderID]
}

func (s *recordingOrderStore) noteOf(orderID string) *string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notes[orderID]
}

// fakeSweepExecutor fails a configured number of times before succeeding.
type fakeSweepExecutor struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (e *fakeSweepExecutor) Sweep(ctx context.Context, chain, userID, currency, fromAddress, vaultAddress string) (string, string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.calls <= e.failures {
		return "", "", errors.New("rpc unavailable")
	}
	return "0xsweep", "21000", nil
}

func (e *fakeSweepExecutor) Payout(ctx context.Context, chain, currency, destinationAddress, amount string) (string, string, error) {
	return "", "", errors.New("not implemented")
}

func (e *fakeSweepExecutor) VerifyBalance(ctx context.Context, chain, address, currency string, expected *big.Int) (bool, *big.Int, error) {
	return false, nil, errors.New("not implemented")
}

func (e *fakeSweepExecutor) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func newTestQueue(sweeps *memSweepStore, orders *recordingOrderStore, executor *fakeSweepExecutor, maxRetries int) *Queue {
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())
	q := New(nil, &store.Store{Order: orders, SweepQueue: sweeps}, executor, "0x9999999999999999999999999999999999999999", maxRetries, metrics, logger.New("test"))
	q.sleep = func(time.Duration) {}
	return q
}

func testJob() settlement.SweepJob {
	return settlement.SweepJob{
		OrderID:        "order-1",
		UserID:         "user-1",
		FromAddress:    "0x1111111111111111111111111111111111111111",
		Amount:         "100",
		SourceChain:    "base",
		SourceCurrency: "USDC",
	}
}

func TestEnqueueProcessesToCompletion(t *testing.T) {
	sweeps := newMemSweepStore()
	orders := &recordingOrderStore{}
	executor := &fakeSweepExecutor{}
	q := newTestQueue(sweeps, orders, executor, 3)

	id, err := q.Enqueue(testJob())
	require.NoError(t, err)
	q.Wait()

	entry := sweeps.get(id)
	assert.Equal(t, model.SweepStatusCompleted, entry.Status)
	require.NotNil(t, entry.TxHash)
	assert.Equal(t, "0xsweep", *entry.TxHash)
	assert.Equal(t, model.OrderStatusInternalSupplyCompleted, orders.statusOf("order-1"))
	assert.Equal(t, 1, executor.callCount())
}

func TestTransientFailureRetriesWithBackoff(t *testing.T) {
	sweeps := newMemSweepStore()
	orders := &recordingOrderStore{}
	executor := &fakeSweepExecutor{failures: 2}
	q := newTestQueue(sweeps, orders, executor, 5)

	id, err := q.Enqueue(testJob())
	require.NoError(t, err)
	q.Wait()

	entry := sweeps.get(id)
	assert.Equal(t, model.SweepStatusCompleted, entry.Status)
	assert.Equal(t, 2, entry.RetryCount)
	assert.Equal(t, 3, executor.callCount())
}

func TestRetryCeilingParksEntryAsFailed(t *testing.T) {
	sweeps := newMemSweepStore()
	orders := &recordingOrderStore{}
	executor := &fakeSweepExecutor{failures: 100}
	q := newTestQueue(sweeps, orders, executor, 3)

	id, err := q.Enqueue(testJob())
	require.NoError(t, err)
	q.Wait()

	entry := sweeps.get(id)
	assert.Equal(t, model.SweepStatusFailed, entry.Status)
	require.NotNil(t, entry.ErrorMessage)
	assert.Contains(t, *entry.ErrorMessage, "rpc unavailable")
	assert.Equal(t, model.OrderStatusInternalSupplyFailed, orders.statusOf("order-1"))
	note := orders.noteOf("order-1")
	require.NotNil(t, note)
	assert.Contains(t, *note, "permanently failed after 3 attempts")
	assert.Equal(t, 3, executor.callCount())
}

func TestProcessSkipsEntriesNotPending(t *testing.T) {
	sweeps := newMemSweepStore()
	orders := &recordingOrderStore{}
	executor := &fakeSweepExecutor{}
	q := newTestQueue(sweeps, orders, executor, 3)

	entry := &model.SweepQueueEntry{OrderID: "order-1", Status: model.SweepStatusProcessing, MaxRetries: 3}
	created, err := sweeps.Create(nil, entry)
	require.NoError(t, err)

	q.Process(created.ID)
	q.Wait()

	assert.Equal(t, 0, executor.callCount())
	assert.Equal(t, model.SweepStatusProcessing, sweeps.get(created.ID).Status)
}

func TestManualRetryOnlyFromFailed(t *testing.T) {
	sweeps := newMemSweepStore()
	orders := &recordingOrderStore{}
	executor := &fakeSweepExecutor{}
	q := newTestQueue(sweeps, orders, executor, 3)

	completed := &model.SweepQueueEntry{OrderID: "order-1", Status: model.SweepStatusCompleted, MaxRetries: 3}
	createdCompleted, err := sweeps.Create(nil, completed)
	require.NoError(t, err)

	accepted, err := q.Retry(createdCompleted.ID)
	require.NoError(t, err)
	assert.False(t, accepted)

	failed := &model.SweepQueueEntry{OrderID: "order-2", Status: model.SweepStatusFailed, RetryCount: 3, MaxRetries: 3}
	createdFailed, err := sweeps.Create(nil, failed)
	require.NoError(t, err)

	accepted, err = q.Retry(createdFailed.ID)
	require.NoError(t, err)
	assert.True(t, accepted)
	q.Wait()

	entry := sweeps.get(createdFailed.ID)
	assert.Equal(t, model.SweepStatusCompleted, entry.Status)
	assert.Equal(t, model.OrderStatusInternalSupplyCompleted, orders.statusOf("order-2"))
}

func TestResumePendingRestartsInterruptedJobs(t *testing.T) {
	sweeps := newMemSweepStore()
	orders := &recordingOrderStore{}
	executor := &fakeSweepExecutor{}
	q := newTestQueue(sweeps, orders, executor, 3)

	first := &model.SweepQueueEntry{OrderID: "order-1", Status: model.SweepStatusPending, MaxRetries: 3}
	second := &model.SweepQueueEntry{OrderID: "order-2", Status: model.SweepStatusPending, MaxRetries: 3}
	createdFirst, err := sweeps.Create(nil, first)
	require.NoError(t, err)
	createdSecond, err := sweeps.Create(nil, second)
	require.NoError(t, err)

	require.NoError(t, q.ResumePending())
	q.Wait()

	assert.Equal(t, model.SweepStatusCompleted, sweeps.get(createdFirst.ID).Status)
	assert.Equal(t, model.SweepStatusCompleted, sweeps.get(createdSecond.ID).Status)
	assert.Equal(t, 2, executor.callCount())
}

func TestResumePendingRecoversStuckProcessing(t *testing.T) {
	sweeps := newMemSweepStore()
	orders := &recordingOrderStore{}
	executor := &fakeSweepExecutor{}
	q := newTestQueue(sweeps, orders, executor, 3)

	// A previous process died after claiming the job but before writing
	// its outcome.
	attemptAt := time.Now().Add(-time.Minute)
	stuck := &model.SweepQueueEntry{
		OrderID:       "order-1",
		Status:        model.SweepStatusProcessing,
		MaxRetries:    3,
		LastAttemptAt: &attemptAt,
	}
	created, err := sweeps.Create(nil, stuck)
	require.NoError(t, err)

	require.NoError(t, q.ResumePending())
	q.Wait()

	entry := sweeps.get(created.ID)
	assert.Equal(t, model.SweepStatusCompleted, entry.Status)
	assert.Equal(t, model.OrderStatusInternalSupplyCompleted, orders.statusOf("order-1"))
	assert.Equal(t, 1, executor.callCount())
}

func TestProcessReadsEntryAfterClaim(t *testing.T) {
	sweeps := newMemSweepStore()
	orders := &recordingOrderStore{}
	executor := &fakeSweepExecutor{}
	q := newTestQueue(sweeps, orders, executor, 3)

	pending := &model.SweepQueueEntry{OrderID: "order-1", Status: model.SweepStatusPending, MaxRetries: 3}
	created, err := sweeps.Create(nil, pending)
	require.NoError(t, err)

	q.Process(created.ID)
	q.Wait()

	// The claim must win before the entry is read, so a concurrent reset
	// or requeue is never observed one attempt stale.
	assert.Equal(t, []string{"MarkProcessing", "GetByID"}, sweeps.callSequence())
	assert.Equal(t, model.SweepStatusCompleted, sweeps.get(created.ID).Status)
}
