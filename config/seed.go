package config

import (
	"github.com/Govind-619/MemberSphere/models"
	"github.com/shopspring/decimal"
)

// DefaultPlans is the catalog a fresh database starts with
func DefaultPlans() []models.SubscriptionPlan {
	return []models.SubscriptionPlan{
		{
			Name:          "Basic Monthly",
			Slug:          "basic-monthly",
			Description:   "Entry level membership billed every month",
			Price:         decimal.RequireFromString("19.99"),
			BillingPeriod: models.BillingMonthly,
			PlanDuration:  1,
			Status:        models.StatusActive,
		},
		{
			Name:          "Pro Monthly",
			Slug:          "pro-monthly",
			Description:   "Full membership billed every month",
			Price:         decimal.RequireFromString("39.99"),
			BillingPeriod: models.BillingMonthly,
			PlanDuration:  1,
			Status:        models.StatusActive,
		},
		{
			Name:          "Business Annual",
			Slug:          "business-annual",
			Description:   "Team membership billed once a year",
			Price:         decimal.RequireFromString("399.99"),
			BillingPeriod: models.BillingYearly,
			PlanDuration:  12,
			Status:        models.StatusActive,
		},
	}
}
