package model

import (
	"time"

	"gorm.io/gorm"
)

type SweepStatus string

const (
	SweepStatusPending    SweepStatus = "PENDING"
	SweepStatusProcessing SweepStatus = "PROCESSING"
	SweepStatusCompleted  SweepStatus = "COMPLETED"
	SweepStatusFailed     SweepStatus = "FAILED"
)

// SweepQueueEntry is a durable job that moves confirmed inbound funds from a
// user collection address to the vault. FAILED entries are terminal and only
// leave that state through a manual retry.
type SweepQueueEntry struct {
	gorm.Model
	OrderID        string      `gorm:"column:order_id;type:varchar(64);not null;index" json:"order_id"`
	UserID         string      `gorm:"column:user_id;type:varchar(64)" json:"user_id"`
	FromAddress    string      `gorm:"column:from_address;type:varchar(64);not null" json:"from_address"`
	Amount         string      `gorm:"column:amount;type:varchar(78);not null" json:"amount"`
	SourceChain    string      `gorm:"column:source_chain;type:varchar(32);not null" json:"source_chain"`
	SourceCurrency string      `gorm:"column:source_currency;type:varchar(16);not null" json:"source_currency"`
	Status         SweepStatus `gorm:"column:status;type:varchar(16);not null;default:'PENDING';index" json:"status"`
	RetryCount     int         `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	MaxRetries     int         `gorm:"column:max_retries;not null;default:3" json:"max_retries"`
	LastAttemptAt  *time.Time  `gorm:"column:last_attempt_at" json:"last_attempt_at,omitempty"`
	ErrorMessage   *string     `gorm:"column:error_message;type:text" json:"error_message,omitempty"`
	TxHash         *string     `gorm:"column:tx_hash;type:varchar(66)" json:"tx_hash,omitempty"`
	NetworkFee     *string     `gorm:"column:network_fee;type:varchar(78)" json:"network_fee,omitempty"`
}

func (SweepQueueEntry) TableName() string {
	return "sweep_queue_entries"
}
