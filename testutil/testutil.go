// Package testutil provides an in-memory store, a controllable clock and
// seed helpers for package tests.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/Govind-619/MemberSphere/config"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewDB opens a private in-memory sqlite database with the full schema.
// A single connection is kept open so concurrent callers are serialized
// the way row locks serialize them in postgres.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	db, err := gorm.Open(sqlite.Open(dsn), config.GormConfig())
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	return db
}

// FixedClock returns a settable time, always in UTC
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a FixedClock at t truncated to the second
func NewClock(t time.Time) *FixedClock {
	return &FixedClock{now: t.UTC().Truncate(time.Second)}
}

func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t.UTC().Truncate(time.Second)
}

// Advance moves the clock forward by d
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Money parses a decimal literal, failing the test on bad input
func Money(t testing.TB, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// SeedWallet creates a wallet for userID holding balance
func SeedWallet(t testing.TB, db *gorm.DB, userID, balance string) *models.Wallet {
	t.Helper()
	w := &models.Wallet{UserID: userID, Balance: Money(t, balance)}
	require.NoError(t, db.Create(w).Error)
	return w
}

// SeedPlan creates an active monthly plan with the given slug and price
func SeedPlan(t testing.TB, db *gorm.DB, slug, price string) *models.SubscriptionPlan {
	t.Helper()
	return SeedPlanWith(t, db, models.SubscriptionPlan{Slug: slug, Price: Money(t, price)})
}

// SeedPlanWith creates p, filling unset fields with monthly active defaults
func SeedPlanWith(t testing.TB, db *gorm.DB, p models.SubscriptionPlan) *models.SubscriptionPlan {
	t.Helper()
	if p.Name == "" {
		p.Name = p.Slug
	}
	if p.BillingPeriod == "" {
		p.BillingPeriod = models.BillingMonthly
	}
	if p.PlanDuration == 0 {
		p.PlanDuration = 1
	}
	if p.Status == "" {
		p.Status = models.StatusActive
	}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

// SeedPaymentMethod creates a payment method with status
func SeedPaymentMethod(t testing.TB, db *gorm.DB, name string, status models.Status) *models.PaymentMethod {
	t.Helper()
	pm := &models.PaymentMethod{Name: name, Status: status}
	require.NoError(t, db.Create(pm).Error)
	return pm
}

// SeedSubscription creates s as given; start defaults to a month before end
func SeedSubscription(t testing.TB, db *gorm.DB, s models.UserSubscription) *models.UserSubscription {
	t.Helper()
	if s.SubscriptionStartDate.IsZero() {
		s.SubscriptionStartDate = s.SubscriptionEndDate.AddDate(0, -1, 0)
	}
	require.NoError(t, db.Create(&s).Error)
	return &s
}

// Balance reloads the balance of the wallet owned by userID
func Balance(t testing.TB, db *gorm.DB, userID string) decimal.Decimal {
	t.Helper()
	var w models.Wallet
	require.NoError(t, db.Where("user_id = ?", userID).First(&w).Error)
	return w.Balance
}

// CountTransactions counts ledger rows of userID
func CountTransactions(t testing.TB, db *gorm.DB, userID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.Transaction{}).Where("user_id = ?", userID).Count(&n).Error)
	return n
}
