package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Wallet holds the spendable balance of one user
type Wallet struct {
	ID        string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID    string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"userId"`
	Balance   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// TransactionType tells whether a ledger entry moved money in or out of a wallet
type TransactionType string

const (
	TransactionDebit  TransactionType = "DEBIT"
	TransactionCredit TransactionType = "CREDIT"
)

// PaymentStatus of a ledger entry
type PaymentStatus string

const (
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Transaction is an append-only ledger entry. Rows are never updated.
type Transaction struct {
	ID             string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID         string          `gorm:"type:varchar(64);index;not null" json:"userId"`
	WalletID       string          `gorm:"type:varchar(36);index;not null" json:"walletId"`
	SubscriptionID *string         `gorm:"type:varchar(36);index" json:"subscriptionId"`
	Amount         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Type           TransactionType `gorm:"type:varchar(16);not null" json:"type"`
	PaymentStatus  PaymentStatus   `gorm:"type:varchar(16);not null;index" json:"paymentStatus"`
	Reference      string          `gorm:"type:varchar(128)" json:"reference"`
	CreatedAt      time.Time       `gorm:"index" json:"createdAt"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
