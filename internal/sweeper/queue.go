package sweeper

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/model"
	"github.com/Chuksremi15/wiseramp-backend/internal/monitoring"
	"github.com/Chuksremi15/wiseramp-backend/internal/settlement"
	"github.com/Chuksremi15/wiseramp-backend/internal/store"
	"github.com/Chuksremi15/wiseramp-backend/internal/utils/logger"
)

const defaultMaxRetries = 3

type IQueue interface {
	settlement.ISweepEnqueuer
	Process(id uint)
	Retry(id uint) (bool, error)
	ResumePending() error
}

// Queue is the durable sweep retry queue. Jobs run outside the confirmation
// path, retry with exponential backoff up to a fixed ceiling, and park in
// FAILED for operator action once the ceiling is hit.
type Queue struct {
	db           *gorm.DB
	store        *store.Store
	executor     settlement.ITransferExecutor
	vaultAddress string
	maxRetries   int
	metrics      *monitoring.Metrics
	logger       *logger.Logger

	// sleep is swapped out in tests to collapse backoff delays.
	sleep func(time.Duration)
	wg    sync.WaitGroup
}

func New(db *gorm.DB, s *store.Store, executor settlement.ITransferExecutor, vaultAddress string, maxRetries int, metrics *monitoring.Metrics, logger *logger.Logger) *Queue {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &Queue{
		db:           db,
		store:        s,
		executor:     executor,
		vaultAddress: vaultAddress,
		maxRetries:   maxRetries,
		metrics:      metrics,
		logger:       logger,
		sleep:        time.Sleep,
	}
}

// Wait blocks until every background job spawned so far has finished.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Enqueue persists a sweep job and starts processing it in the background,
// decoupled from the caller.
func (q *Queue) Enqueue(job settlement.SweepJob) (uint, error) {
	entry := &model.SweepQueueEntry{
		OrderID:        job.OrderID,
		UserID:         job.UserID,
		FromAddress:    job.FromAddress,
		Amount:         job.Amount,
		SourceChain:    job.SourceChain,
		SourceCurrency: job.SourceCurrency,
		Status:         model.SweepStatusPending,
		MaxRetries:     q.maxRetries,
	}

	created, err := q.store.SweepQueue.Create(q.db, entry)
	if err != nil {
		return 0, err
	}

	q.logger.Info("[Enqueue] sweep job queued", map[string]string{
		"id":      strconv.FormatUint(uint64(created.ID), 10),
		"orderId": job.OrderID,
	})

	q.spawn(created.ID)
	return created.ID, nil
}

// Process runs one attempt of a sweep job. The PENDING→PROCESSING transition
// is conditional, so overlapping triggers (a manual retry racing an
// automatic one) collapse to a single in-flight attempt.
func (q *Queue) Process(id uint) {
	claimed, err := q.store.SweepQueue.MarkProcessing(q.db, id, time.Now())
	if err != nil {
		q.logger.Error("[Process][MarkProcessing]", map[string]string{
			"id":    strconv.FormatUint(uint64(id), 10),
			"error": err.Error(),
		})
		return
	}
	if !claimed {
		// Not PENDING: either terminal or already being processed.
		return
	}

	// Fetched after the claim so the retry count reflects any reset or
	// requeue applied up to the moment this attempt won.
	entry, err := q.store.SweepQueue.GetByID(q.db, id)
	if err != nil {
		q.logger.Error("[Process][GetByID]", map[string]string{
			"id":    strconv.FormatUint(uint64(id), 10),
			"error": err.Error(),
		})
		return
	}

	txHash, fee, execErr := q.executor.Sweep(
		context.Background(),
		entry.SourceChain,
		entry.UserID,
		entry.SourceCurrency,
		entry.FromAddress,
		q.vaultAddress,
	)
	if execErr == nil {
		q.complete(entry, txHash, fee)
		return
	}

	q.handleFailure(entry, execErr)
}

func (q *Queue) complete(entry *model.SweepQueueEntry, txHash, fee string) {
	if err := q.store.SweepQueue.MarkCompleted(q.db, entry.ID, txHash, fee); err != nil {
		q.logger.Error("[Process][MarkCompleted]", map[string]string{
			"id":    strconv.FormatUint(uint64(entry.ID), 10),
			"error": err.Error(),
		})
		return
	}
	if err := q.store.Order.SetInternalTransferStatus(q.db, entry.OrderID, model.OrderStatusInternalSupplyCompleted, nil); err != nil {
		q.logger.Error("[Process][SetInternalTransferStatus]", map[string]string{
			"orderId": entry.OrderID,
			"error":   err.Error(),
		})
	}

	q.metrics.RecordSweepJob("completed")
	q.logger.Info("[Process] sweep completed", map[string]string{
		"id":      strconv.FormatUint(uint64(entry.ID), 10),
		"orderId": entry.OrderID,
		"txHash":  txHash,
	})
}

func (q *Queue) handleFailure(entry *model.SweepQueueEntry, execErr error) {
	retryCount := entry.RetryCount + 1

	if retryCount < entry.MaxRetries {
		if err := q.store.SweepQueue.Requeue(q.db, entry.ID, retryCount, execErr.Error()); err != nil {
			q.logger.Error("[Process][Requeue]", map[string]string{
				"id":    strconv.FormatUint(uint64(entry.ID), 10),
				"error": err.Error(),
			})
			return
		}

		backoff := time.Duration(math.Pow(2, float64(retryCount))) * time.Second
		q.metrics.RecordSweepJob("retried")
		q.logger.Warn("[Process] sweep failed, retrying", map[string]string{
			"id":      strconv.FormatUint(uint64(entry.ID), 10),
			"retry":   strconv.Itoa(retryCount),
			"backoff": backoff.String(),
			"error":   execErr.Error(),
		})

		q.wg.Add(1)
		go func() {
			defer q.wg.Done()
			q.sleep(backoff)
			q.Process(entry.ID)
		}()
		return
	}

	// Retry ceiling hit: terminal, operator intervention required.
	note := fmt.Sprintf("sweep permanently failed after %d attempts: %s", retryCount, execErr.Error())
	if err := q.store.SweepQueue.MarkFailed(q.db, entry.ID, note); err != nil {
		q.logger.Error("[Process][MarkFailed]", map[string]string{
			"id":    strconv.FormatUint(uint64(entry.ID), 10),
			"error": err.Error(),
		})
		return
	}
	if err := q.store.Order.SetInternalTransferStatus(q.db, entry.OrderID, model.OrderStatusInternalSupplyFailed, &note); err != nil {
		q.logger.Error("[Process][SetInternalTransferStatus]", map[string]string{
			"orderId": entry.OrderID,
			"error":   err.Error(),
		})
	}

	q.metrics.RecordSweepJob("failed")
	q.logger.Error("[Process] sweep permanently failed", map[string]string{
		"id":      strconv.FormatUint(uint64(entry.ID), 10),
		"orderId": entry.OrderID,
		"error":   execErr.Error(),
	})
}

// Retry is the operator path out of FAILED: it resets the retry budget and
// re-enters the processing cycle. Entries in any other state are rejected.
func (q *Queue) Retry(id uint) (bool, error) {
	reset, err := q.store.SweepQueue.ResetForManualRetry(q.db, id)
	if err != nil {
		return false, err
	}
	if !reset {
		return false, nil
	}

	q.logger.Info("[Retry] manual retry accepted", map[string]string{
		"id": strconv.FormatUint(uint64(id), 10),
	})
	q.spawn(id)
	return true, nil
}

// ResumePending restarts jobs a previous process left behind: entries still
// PENDING, plus entries stuck PROCESSING because that process died between
// claiming the job and writing its outcome. Nothing has been claimed by this
// process yet, so any PROCESSING row seen here is stale.
func (q *Queue) ResumePending() error {
	released, err := q.store.SweepQueue.ReleaseStuckProcessing(q.db, time.Now())
	if err != nil {
		return err
	}
	if released > 0 {
		q.logger.Warn("[ResumePending] released stuck processing entries", map[string]string{
			"count": strconv.FormatInt(released, 10),
		})
	}

	entries, err := q.store.SweepQueue.FindPending(q.db)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		q.spawn(entry.ID)
	}
	if len(entries) > 0 {
		q.logger.Info("[ResumePending] resumed pending sweep jobs", map[string]string{
			"count": strconv.Itoa(len(entries)),
		})
	}
	return nil
}

func (q *Queue) spawn(id uint) {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.Process(id)
	}()
}

var _ IQueue = (*Queue)(nil)
