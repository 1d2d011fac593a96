package services

import (
	"context"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MembershipReport summarizes the catalog, subscriptions and revenue
type MembershipReport struct {
	TotalPlans          int64                               `json:"totalPlans"`
	ActivePlans         int64                               `json:"activePlans"`
	Subscriptions       map[models.SubscriptionStatus]int64 `json:"subscriptions"`
	SubscriptionsByPlan []PlanSubscriptionCount             `json:"subscriptionsByPlan"`
	Revenue             decimal.Decimal                     `json:"revenue"`
	Transactions        map[models.PaymentStatus]int64      `json:"transactions"`
	LatestTransaction   *models.Transaction                 `json:"latestTransaction"`
}

// PlanSubscriptionCount is the number of active subscriptions on one plan
type PlanSubscriptionCount struct {
	PlanID string `json:"planId"`
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Active int64  `json:"active"`
}

// Report computes the membership report. Revenue is the sum of successful
// subscription debits.
func (s *MembershipService) Report(ctx context.Context) (*MembershipReport, error) {
	db := s.db.WithContext(ctx)
	report := &MembershipReport{
		Subscriptions: map[models.SubscriptionStatus]int64{},
		Transactions:  map[models.PaymentStatus]int64{},
		Revenue:       decimal.Zero,
	}

	if err := db.Model(&models.SubscriptionPlan{}).Count(&report.TotalPlans).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.SubscriptionPlan{}).Where("status = ?", models.StatusActive).Count(&report.ActivePlans).Error; err != nil {
		return nil, err
	}

	for _, status := range []models.SubscriptionStatus{models.SubscriptionActive, models.SubscriptionCanceled, models.SubscriptionExpired} {
		var n int64
		if err := db.Model(&models.UserSubscription{}).Where("status = ?", status).Count(&n).Error; err != nil {
			return nil, err
		}
		report.Subscriptions[status] = n
	}

	byPlan, err := s.activeByPlan(db)
	if err != nil {
		return nil, err
	}
	report.SubscriptionsByPlan = byPlan

	for _, status := range []models.PaymentStatus{models.PaymentSuccess, models.PaymentFailed} {
		var n int64
		if err := db.Model(&models.Transaction{}).Where("payment_status = ?", status).Count(&n).Error; err != nil {
			return nil, err
		}
		report.Transactions[status] = n
	}

	// Summed in Go so the result keeps decimal precision on every driver
	var amounts []decimal.Decimal
	err = db.Model(&models.Transaction{}).
		Where("payment_status = ? AND type = ? AND subscription_id IS NOT NULL", models.PaymentSuccess, models.TransactionDebit).
		Pluck("amount", &amounts).Error
	if err != nil {
		return nil, err
	}
	for _, a := range amounts {
		report.Revenue = report.Revenue.Add(a)
	}

	var latest models.Transaction
	err = db.Order("created_at DESC").Limit(1).Find(&latest).Error
	if err != nil {
		return nil, err
	}
	if latest.ID != "" {
		report.LatestTransaction = &latest
	}

	return report, nil
}

func (s *MembershipService) activeByPlan(db *gorm.DB) ([]PlanSubscriptionCount, error) {
	var plans []models.SubscriptionPlan
	if err := db.Order("name ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	counts := make([]PlanSubscriptionCount, 0, len(plans))
	for _, p := range plans {
		var n int64
		err := db.Model(&models.UserSubscription{}).
			Where("plan_id = ? AND status = ?", p.ID, models.SubscriptionActive).
			Count(&n).Error
		if err != nil {
			return nil, err
		}
		counts = append(counts, PlanSubscriptionCount{PlanID: p.ID, Slug: p.Slug, Name: p.Name, Active: n})
	}
	return counts, nil
}
