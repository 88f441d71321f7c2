package sweepqueue

import (
	"time"

	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/model"
)

type IStore interface {
	Create(tx *gorm.DB, entry *model.SweepQueueEntry) (*model.SweepQueueEntry, error)
	GetByID(tx *gorm.DB, id uint) (*model.SweepQueueEntry, error)

	// MarkProcessing conditionally moves a PENDING entry to PROCESSING and
	// stamps the attempt time. Returns false if the entry was not PENDING,
	// which keeps concurrent triggers from double-running a job.
	MarkProcessing(tx *gorm.DB, id uint, attemptAt time.Time) (bool, error)

	MarkCompleted(tx *gorm.DB, id uint, txHash, networkFee string) error

	// Requeue returns a PROCESSING entry to PENDING with an incremented
	// retry count and the error recorded.
	Requeue(tx *gorm.DB, id uint, retryCount int, errMessage string) error

	MarkFailed(tx *gorm.DB, id uint, errMessage string) error

	// ResetForManualRetry moves a FAILED entry back to PENDING with a zero
	// retry count. Returns false when the entry is not FAILED.
	ResetForManualRetry(tx *gorm.DB, id uint) (bool, error)

	// ReleaseStuckProcessing returns PROCESSING entries whose last attempt
	// started before the cutoff to PENDING. A process that dies between
	// claiming a job and writing its outcome leaves the row PROCESSING;
	// nothing else can move it from there.
	ReleaseStuckProcessing(tx *gorm.DB, before time.Time) (int64, error)

	// FindPending lists entries left PENDING, oldest first; used to resume
	// interrupted jobs at startup.
	FindPending(tx *gorm.DB) ([]model.SweepQueueEntry, error)
}
