package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TopUpStatus is the review state of a wallet top-up request
type TopUpStatus string

const (
	TopUpPending  TopUpStatus = "PENDING"
	TopUpApproved TopUpStatus = "APPROVED"
	TopUpRejected TopUpStatus = "REJECTED"
)

// Valid reports whether s is a known top-up status
func (s TopUpStatus) Valid() bool {
	switch s {
	case TopUpPending, TopUpApproved, TopUpRejected:
		return true
	}
	return false
}

// WalletTopUp is a user's request to add funds, settled by an admin.
// Once it leaves PENDING it never changes again.
type WalletTopUp struct {
	ID              string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID          string          `gorm:"type:varchar(64);index;not null" json:"userId"`
	WalletID        string          `gorm:"type:varchar(36);index;not null" json:"walletId"`
	PaymentMethodID string          `gorm:"type:varchar(36);index;not null" json:"paymentMethodId"`
	PaymentMethod   *PaymentMethod  `gorm:"foreignKey:PaymentMethodID" json:"paymentMethod,omitempty"`
	Amount          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Status          TopUpStatus     `gorm:"type:varchar(16);not null;index" json:"status"`
	TransactionRef  string          `gorm:"type:varchar(128)" json:"transactionRef"`
	AdminNote       string          `gorm:"type:text" json:"adminNote"`
	ProcessedAt     *time.Time      `json:"processedAt"`
	CreatedAt       time.Time       `gorm:"index" json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (w *WalletTopUp) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// PaymentMethod is an admin-managed channel users can top up through
type PaymentMethod struct {
	ID          string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Status      Status    `gorm:"type:varchar(16);not null;default:ACTIVE;index" json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (p *PaymentMethod) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
