package order

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/model"
)

var pendingOverallStatuses = []model.OrderStatus{
	model.OrderStatusPending,
	model.OrderStatusProcessing,
}

var terminalStatuses = []model.OrderStatus{
	model.OrderStatusCompleted,
	model.OrderStatusExpired,
	model.OrderStatusFailed,
	model.OrderStatusCancelled,
}

type Store struct {
}

func New() IStore {
	return &Store{}
}

func (s *Store) Create(tx *gorm.DB, order *model.Order) (*model.Order, error) {
	return order, tx.Create(order).Error
}

func (s *Store) GetByOrderID(tx *gorm.DB, orderID string) (*model.Order, error) {
	var order model.Order
	err := tx.Where("order_id = ?", orderID).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) GetBySourceTxHash(tx *gorm.DB, txHash string) (*model.Order, error) {
	var order model.Order
	err := tx.Where("source_tx_hash = ?", txHash).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) FindPendingForDeposit(tx *gorm.DB, chain, address string, now time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := tx.
		Where("source_chain = ?", strings.ToLower(chain)).
		Where("LOWER(source_address) = ?", strings.ToLower(address)).
		Where("crypto_status = ?", model.OrderStatusWaitingForCrypto).
		Where("status IN ?", pendingOverallStatuses).
		Where("expired_at > ?", now).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) FindPendingFiatByEmail(tx *gorm.DB, email string, now time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := tx.
		Where("source_chain IS NULL OR source_chain = ''").
		Where("LOWER(email) = ?", strings.ToLower(email)).
		Where("fiat_status = ?", model.OrderStatusWaitingForFiat).
		Where("status IN ?", pendingOverallStatuses).
		Where("expired_at > ?", now).
		Order("created_at ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) CountActiveWatch(tx *gorm.DB, chain, address string, now time.Time) (int64, error) {
	var count int64
	err := tx.Model(&model.Order{}).
		Where("source_chain = ?", strings.ToLower(chain)).
		Where("LOWER(source_address) = ?", strings.ToLower(address)).
		Where("crypto_status = ?", model.OrderStatusWaitingForCrypto).
		Where("status IN ?", pendingOverallStatuses).
		Where("expired_at > ?", now).
		Count(&count).Error
	return count, err
}

func (s *Store) FindActiveCryptoWatches(tx *gorm.DB, now time.Time) ([]model.Order, error) {
	var orders []model.Order
	err := tx.
		Where("source_chain IS NOT NULL AND source_chain <> ''").
		Where("crypto_status = ?", model.OrderStatusWaitingForCrypto).
		Where("status IN ?", pendingOverallStatuses).
		Where("expired_at > ?", now).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Store) ConfirmCrypto(tx *gorm.DB, id uint, txHash string, overall, fiatStatus model.OrderStatus) (bool, error) {
	updates := map[string]interface{}{
		"crypto_status":      model.OrderStatusCryptoConfirmed,
		"status":             overall,
		"source_tx_hash":     txHash,
		"crypto_received_at": time.Now(),
	}
	if fiatStatus != "" {
		updates["fiat_status"] = fiatStatus
	}

	// Conditioned on the current sub-status so two concurrent matches
	// cannot both claim the order.
	res := tx.Model(&model.Order{}).
		Where("id = ?", id).
		Where("crypto_status = ?", model.OrderStatusWaitingForCrypto).
		Where("source_tx_hash IS NULL").
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) ConfirmFiat(tx *gorm.DB, id uint, overall model.OrderStatus) (bool, error) {
	res := tx.Model(&model.Order{}).
		Where("id = ?", id).
		Where("fiat_status = ?", model.OrderStatusWaitingForFiat).
		Updates(map[string]interface{}{
			"fiat_status":      model.OrderStatusFiatConfirmed,
			"status":           overall,
			"fiat_received_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) UpdateCryptoStatus(tx *gorm.DB, id uint, status model.OrderStatus) error {
	return tx.Model(&model.Order{}).
		Where("id = ?", id).
		Update("crypto_status", status).Error
}

func (s *Store) SetInternalTransferStatus(tx *gorm.DB, orderID string, status model.OrderStatus, note *string) error {
	updates := map[string]interface{}{
		"internal_transfer_status": status,
	}
	if note != nil {
		updates["internal_transfer_note"] = *note
	}

	return tx.Model(&model.Order{}).
		Where("order_id = ?", orderID).
		Updates(updates).Error
}

func (s *Store) MarkCompleted(tx *gorm.DB, id uint, destinationTxHash string, completedAt time.Time) error {
	return tx.Model(&model.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":              model.OrderStatusCompleted,
			"crypto_status":       model.OrderStatusCompleted,
			"destination_tx_hash": destinationTxHash,
			"completed_at":        completedAt,
		}).Error
}

func (s *Store) MarkFailed(tx *gorm.DB, id uint, overall, cryptoStatus model.OrderStatus) error {
	updates := map[string]interface{}{
		"status": overall,
	}
	if cryptoStatus != "" {
		updates["crypto_status"] = cryptoStatus
	}

	return tx.Model(&model.Order{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (s *Store) ExpireOld(tx *gorm.DB, now time.Time) ([]model.WatchTarget, error) {
	var expirable []model.Order
	err := tx.
		Where("expired_at <= ?", now).
		Where("status NOT IN ?", terminalStatuses).
		Find(&expirable).Error
	if err != nil {
		return nil, err
	}

	if len(expirable) == 0 {
		return nil, nil
	}

	ids, targets := expiryTargets(expirable)

	err = tx.Model(&model.Order{}).
		Where("id IN ?", ids).
		Where("status NOT IN ?", terminalStatuses).
		Updates(map[string]interface{}{
			"status":        model.OrderStatusExpired,
			"crypto_status": model.OrderStatusExpired,
			"fiat_status":   model.OrderStatusExpired,
		}).Error
	if err != nil {
		return nil, err
	}

	return targets, nil
}

// expiryTargets collects the ids to expire and the distinct (address, chain)
// pairs whose watches may be releasable. Fiat-sourced orders never carry a
// watch.
func expiryTargets(orders []model.Order) ([]uint, []model.WatchTarget) {
	ids := make([]uint, 0, len(orders))
	seen := map[model.WatchTarget]bool{}
	targets := []model.WatchTarget{}
	for _, o := range orders {
		ids = append(ids, o.ID)
		if o.CryptoSourced() {
			t := model.WatchTarget{Address: o.SourceAddress, Chain: *o.SourceChain}
			if !seen[t] {
				seen[t] = true
				targets = append(targets, t)
			}
		}
	}
	return ids, targets
}
