package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionTypeReward     TransactionType = "reward"
	TransactionTypePayout     TransactionType = "payout"
	TransactionTypeAdjustment TransactionType = "adjustment"
)

// Valid reports whether the type is one the ledger accepts.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeReward, TransactionTypePayout, TransactionTypeAdjustment:
		return true
	}
	return false
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// ErrLedgerImmutable is returned when anything tries to update or delete a ledger row.
var ErrLedgerImmutable = errors.New("ledger entries are immutable")

// Transaction is an append-only ledger entry.
type Transaction struct {
	ID          uint64            `gorm:"primarykey" json:"id"`
	UserID      string            `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Amount      decimal.Decimal   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Type        TransactionType   `gorm:"type:varchar(20);not null;index" json:"type"`
	Status      TransactionStatus `gorm:"type:varchar(20);not null" json:"status"`
	UserTaskID  *uint64           `gorm:"uniqueIndex" json:"user_task_id,omitempty"`
	Reference   string            `gorm:"type:varchar(64);not null;uniqueIndex" json:"reference"`
	Title       string            `gorm:"type:varchar(255)" json:"title"`
	Description string            `gorm:"type:text" json:"description,omitempty"`
	IconType    string            `gorm:"type:varchar(50)" json:"icon_type,omitempty"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (t *Transaction) BeforeUpdate(tx *gorm.DB) error {
	return ErrLedgerImmutable
}

func (t *Transaction) BeforeDelete(tx *gorm.DB) error {
	return ErrLedgerImmutable
}
