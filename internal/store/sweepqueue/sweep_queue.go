package sweepqueue

import (
	"time"

	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/model"
)

type Store struct {
}

func New() IStore {
	return &Store{}
}

func (s *Store) Create(tx *gorm.DB, entry *model.SweepQueueEntry) (*model.SweepQueueEntry, error) {
	return entry, tx.Create(entry).Error
}

func (s *Store) GetByID(tx *gorm.DB, id uint) (*model.SweepQueueEntry, error) {
	var entry model.SweepQueueEntry
	err := tx.First(&entry, id).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Store) MarkProcessing(tx *gorm.DB, id uint, attemptAt time.Time) (bool, error) {
	res := tx.Model(&model.SweepQueueEntry{}).
		Where("id = ?", id).
		Where("status = ?", model.SweepStatusPending).
		Updates(map[string]interface{}{
			"status":          model.SweepStatusProcessing,
			"last_attempt_at": attemptAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) MarkCompleted(tx *gorm.DB, id uint, txHash, networkFee string) error {
	return tx.Model(&model.SweepQueueEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.SweepStatusCompleted,
			"tx_hash":     txHash,
			"network_fee": networkFee,
		}).Error
}

func (s *Store) Requeue(tx *gorm.DB, id uint, retryCount int, errMessage string) error {
	return tx.Model(&model.SweepQueueEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.SweepStatusPending,
			"retry_count":   retryCount,
			"error_message": errMessage,
		}).Error
}

func (s *Store) MarkFailed(tx *gorm.DB, id uint, errMessage string) error {
	return tx.Model(&model.SweepQueueEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        model.SweepStatusFailed,
			"error_message": errMessage,
		}).Error
}

func (s *Store) ResetForManualRetry(tx *gorm.DB, id uint) (bool, error) {
	res := tx.Model(&model.SweepQueueEntry{}).
		Where("id = ?", id).
		Where("status = ?", model.SweepStatusFailed).
		Updates(map[string]interface{}{
			"status":        model.SweepStatusPending,
			"retry_count":   0,
			"error_message": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ReleaseStuckProcessing(tx *gorm.DB, before time.Time) (int64, error) {
	res := tx.Model(&model.SweepQueueEntry{}).
		Where("status = ?", model.SweepStatusProcessing).
		Where("last_attempt_at IS NULL OR last_attempt_at < ?", before).
		Update("status", model.SweepStatusPending)
	return res.RowsAffected, res.Error
}

func (s *Store) FindPending(tx *gorm.DB) ([]model.SweepQueueEntry, error) {
	var entries []model.SweepQueueEntry
	err := tx.
		Where("status = ?", model.SweepStatusPending).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
