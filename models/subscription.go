package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Status marks catalog records (plans, payment methods) as usable or retired
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// Valid reports whether s is a known catalog status
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// BillingPeriod of a plan
type BillingPeriod string

const (
	BillingMonthly BillingPeriod = "MONTHLY"
	BillingYearly  BillingPeriod = "YEARLY"
)

// Valid reports whether p is a known billing period
func (p BillingPeriod) Valid() bool {
	return p == BillingMonthly || p == BillingYearly
}

// SubscriptionStatus is the lifecycle state of a user subscription
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "ACTIVE"
	SubscriptionCanceled SubscriptionStatus = "CANCELED"
	SubscriptionExpired  SubscriptionStatus = "EXPIRED"
)

// SubscriptionPlan is a purchasable membership tier
type SubscriptionPlan struct {
	ID            string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(100);not null" json:"name"`
	Slug          string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"price"`
	BillingPeriod BillingPeriod   `gorm:"type:varchar(16);not null" json:"billingPeriod"`
	PlanDuration  int             `gorm:"not null;default:1" json:"planDuration"`
	Status        Status          `gorm:"type:varchar(16);not null;default:ACTIVE;index" json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

func (p *SubscriptionPlan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// TermMonths is the length of a purchase or plan change
func (p *SubscriptionPlan) TermMonths() int {
	return p.PlanDuration
}

// RenewalMonths is the length of an automatic renewal. Yearly plans count
// their duration in years when renewing.
func (p *SubscriptionPlan) RenewalMonths() int {
	if p.BillingPeriod == BillingYearly {
		return p.PlanDuration * 12
	}
	return p.PlanDuration
}

// UserSubscription links a user to a plan for a bounded period.
// A user has at most one ACTIVE row at any time.
type UserSubscription struct {
	ID                    string             `gorm:"type:varchar(36);primaryKey" json:"id"`
	UserID                string             `gorm:"type:varchar(64);index;not null" json:"userId"`
	PlanID                string             `gorm:"type:varchar(36);index;not null" json:"planId"`
	Plan                  *SubscriptionPlan  `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
	Status                SubscriptionStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	SubscriptionStartDate time.Time          `gorm:"not null" json:"subscriptionStartDate"`
	SubscriptionEndDate   time.Time          `gorm:"not null;index" json:"subscriptionEndDate"`
	AutoRenew             bool               `gorm:"not null" json:"autoRenew"`
	Transactions          []Transaction      `gorm:"foreignKey:SubscriptionID" json:"transactions,omitempty"`
	CreatedAt             time.Time          `json:"createdAt"`
	UpdatedAt             time.Time          `json:"updatedAt"`
}

func (s *UserSubscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
