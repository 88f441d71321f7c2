package order

import (
	"time"

	"gorm.io/gorm"

	"github.com/Chuksremi15/wiseramp-backend/internal/model"
)

type IStore interface {
	Create(tx *gorm.DB, order *model.Order) (*model.Order, error)
	GetByOrderID(tx *gorm.DB, orderID string) (*model.Order, error)
	GetBySourceTxHash(tx *gorm.DB, txHash string) (*model.Order, error)

	// FindPendingForDeposit returns orders still waiting for the crypto leg
	// on (chain, address), case-insensitive on the address, unexpired,
	// oldest first.
	FindPendingForDeposit(tx *gorm.DB, chain, address string, now time.Time) ([]model.Order, error)

	// FindPendingFiatByEmail returns fiat-sourced orders still waiting for
	// fiat confirmation for the given payer email, oldest first.
	FindPendingFiatByEmail(tx *gorm.DB, email string, now time.Time) ([]model.Order, error)

	// CountActiveWatch counts unexpired orders that still require the
	// (chain, address) watch to stay registered.
	CountActiveWatch(tx *gorm.DB, chain, address string, now time.Time) (int64, error)

	// FindActiveCryptoWatches lists crypto-sourced orders whose watch must
	// be re-registered after a restart.
	FindActiveCryptoWatches(tx *gorm.DB, now time.Time) ([]model.Order, error)

	// ConfirmCrypto conditionally advances cryptoStatus from
	// waiting_for_crypto to crypto_confirmed, records the transfer hash and
	// receipt time, and sets the derived overall (and optional fiat)
	// status. Returns false when another writer already won.
	ConfirmCrypto(tx *gorm.DB, id uint, txHash string, overall, fiatStatus model.OrderStatus) (bool, error)

	// ConfirmFiat conditionally advances fiatStatus from waiting_for_fiat
	// to fiat_confirmed and sets the derived overall status.
	ConfirmFiat(tx *gorm.DB, id uint, overall model.OrderStatus) (bool, error)

	UpdateCryptoStatus(tx *gorm.DB, id uint, status model.OrderStatus) error
	SetInternalTransferStatus(tx *gorm.DB, orderID string, status model.OrderStatus, note *string) error
	MarkCompleted(tx *gorm.DB, id uint, destinationTxHash string, completedAt time.Time) error
	MarkFailed(tx *gorm.DB, id uint, overall, cryptoStatus model.OrderStatus) error

	// ExpireOld transitions every non-terminal order past its deadline to
	// expired and returns the distinct (address, chain) pairs affected.
	ExpireOld(tx *gorm.DB, now time.Time) ([]model.WatchTarget, error)
}
