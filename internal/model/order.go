package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderKind string

const (
	OrderKindFiatToCrypto   OrderKind = "fiat_to_crypto"
	OrderKindCryptoToFiat   OrderKind = "crypto_to_fiat"
	OrderKindCryptoToCrypto OrderKind = "crypto_to_crypto"
)

// OrderStatus is the shared vocabulary for the overall status and the three
// per-leg sub-statuses. Not every value is meaningful on every field.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusWaitingForCrypto OrderStatus = "waiting_for_crypto"
	OrderStatusWaitingForFiat   OrderStatus = "waiting_for_fiat"
	OrderStatusCryptoPending    OrderStatus = "crypto_pending"
	OrderStatusCryptoConfirmed  OrderStatus = "crypto_confirmed"
	OrderStatusFiatPending      OrderStatus = "fiat_pending"
	OrderStatusFiatConfirmed    OrderStatus = "fiat_confirmed"
	OrderStatusProcessing       OrderStatus = "processing"
	OrderStatusProcessingPayout OrderStatus = "processing_payout"
	OrderStatusCompleted        OrderStatus = "completed"

	OrderStatusBalanceVerificationFailed  OrderStatus = "balance_verification_failed"
	OrderStatusTokenToVaultTransferFailed OrderStatus = "token_to_vault_transfer_failed"
	OrderStatusTokenFromVaultFailed       OrderStatus = "token_from_vault_transfer_failed"
	OrderStatusInternalSupplyCompleted    OrderStatus = "internal_supply_completed"
	OrderStatusInternalSupplyFailed       OrderStatus = "internal_supply_failed"
	OrderStatusFailed                     OrderStatus = "failed"
	OrderStatusCancelled                  OrderStatus = "cancelled"
	OrderStatusExpired                    OrderStatus = "expired"
)

// IsTerminal reports whether an overall status admits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusExpired, OrderStatusFailed, OrderStatusCancelled:
		return true
	}
	return false
}

// Order is one exchange transaction tracked end to end. Orders are never
// physically deleted; terminal statuses are final.
type Order struct {
	gorm.Model
	OrderID string    `gorm:"column:order_id;type:varchar(64);not null;uniqueIndex" json:"order_id"`
	Kind    OrderKind `gorm:"column:kind;type:varchar(32);not null" json:"kind"`
	UserID  string    `gorm:"column:user_id;type:varchar(64)" json:"user_id"`
	Email   string    `gorm:"column:email;type:varchar(255)" json:"email"`

	// Source leg. Exactly one of SourceChain / fiat bank details applies.
	SourceChain       *string    `gorm:"column:source_chain;type:varchar(32);index:idx_orders_source_watch" json:"source_chain,omitempty"`
	SourceCurrency    string     `gorm:"column:source_currency;type:varchar(16);not null" json:"source_currency"`
	SourceAddress     string     `gorm:"column:source_address;type:varchar(64);index:idx_orders_source_watch" json:"source_address"`
	SourceAmount      string     `gorm:"column:source_amount;type:varchar(78);not null" json:"source_amount"`
	SourceBankDetails *string    `gorm:"column:source_bank_details;type:text" json:"source_bank_details,omitempty"`
	SourceFee         *string    `gorm:"column:source_fee;type:varchar(78)" json:"source_fee,omitempty"`
	CryptoReceivedAt  *time.Time `gorm:"column:crypto_received_at" json:"crypto_received_at,omitempty"`
	FiatReceivedAt    *time.Time `gorm:"column:fiat_received_at" json:"fiat_received_at,omitempty"`

	// Destination leg.
	DestinationChain       *string `gorm:"column:destination_chain;type:varchar(32)" json:"destination_chain,omitempty"`
	DestinationCurrency    string  `gorm:"column:destination_currency;type:varchar(16);not null" json:"destination_currency"`
	DestinationAddress     string  `gorm:"column:destination_address;type:varchar(64)" json:"destination_address"`
	DestinationAmount      string  `gorm:"column:destination_amount;type:varchar(78);not null" json:"destination_amount"`
	DestinationBankDetails *string `gorm:"column:destination_bank_details;type:text" json:"destination_bank_details,omitempty"`

	// Economics, precomputed at creation by the API boundary.
	ExchangeRate  decimal.Decimal `gorm:"column:exchange_rate;type:decimal(30,12);not null" json:"exchange_rate"`
	FeeAmount     decimal.Decimal `gorm:"column:fee_amount;type:decimal(30,12);not null" json:"fee_amount"`
	FeePercentage decimal.Decimal `gorm:"column:fee_percentage;type:decimal(10,6);not null" json:"fee_percentage"`
	NetAmount     decimal.Decimal `gorm:"column:net_amount;type:decimal(30,12);not null" json:"net_amount"`

	// Overall status plus three independently advancing sub-statuses.
	Status                 OrderStatus `gorm:"column:status;type:varchar(48);not null;default:'pending'" json:"status"`
	CryptoStatus           OrderStatus `gorm:"column:crypto_status;type:varchar(48);index:idx_orders_source_watch" json:"crypto_status"`
	FiatStatus             OrderStatus `gorm:"column:fiat_status;type:varchar(48)" json:"fiat_status"`
	InternalTransferStatus OrderStatus `gorm:"column:internal_transfer_status;type:varchar(48)" json:"internal_transfer_status"`
	InternalTransferNote   *string     `gorm:"column:internal_transfer_note;type:text" json:"internal_transfer_note,omitempty"`

	// SourceTxHash is unique so at most one order claims an on-chain
	// transaction; once set it is never rewritten.
	SourceTxHash      *string `gorm:"column:source_tx_hash;type:varchar(66);uniqueIndex" json:"source_tx_hash,omitempty"`
	DestinationTxHash *string `gorm:"column:destination_tx_hash;type:varchar(66)" json:"destination_tx_hash,omitempty"`

	ExpiredAt   time.Time  `gorm:"column:expired_at;not null;index" json:"expired_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// CryptoSourced reports whether the source leg is on-chain.
func (o *Order) CryptoSourced() bool {
	return o.SourceChain != nil && *o.SourceChain != ""
}
