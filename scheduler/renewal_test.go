package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Govind-619/MemberSphere/metrics"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/services"
	"github.com/Govind-619/MemberSphere/testutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var sweepTime = time.Date(2026, time.May, 1, 12, 0, 0, 0, time.UTC)

func newReconciler(t *testing.T) (*Reconciler, *gorm.DB, *testutil.FixedClock) {
	t.Helper()
	db := testutil.NewDB(t)
	clock := testutil.NewClock(sweepTime)
	r := NewReconciler(db, services.NewLedger(db), clock, WithMetrics(metrics.MustNew(prometheus.NewRegistry())))
	return r, db, clock
}

func dueSubscription(t *testing.T, db *gorm.DB, userID, planID string, end time.Time, autoRenew bool) *models.UserSubscription {
	t.Helper()
	return testutil.SeedSubscription(t, db, models.UserSubscription{
		UserID:              userID,
		PlanID:              planID,
		Status:              models.SubscriptionActive,
		SubscriptionEndDate: end,
		AutoRenew:           autoRenew,
	})
}

func reload(t *testing.T, db *gorm.DB, id string) models.UserSubscription {
	t.Helper()
	var sub models.UserSubscription
	require.NoError(t, db.Where("id = ?", id).First(&sub).Error)
	return sub
}

func TestSweepRenewsFromPreviousEndDate(t *testing.T) {
	r, db, _ := newReconciler(t)
	plan := testutil.SeedPlan(t, db, "pro-monthly", "39.99")
	testutil.SeedWallet(t, db, "user-1", "100.00")
	end := time.Date(2026, time.April, 30, 8, 0, 0, 0, time.UTC)
	sub := dueSubscription(t, db, "user-1", plan.ID, end, true)

	result, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Candidates: 1, Renewed: 1}, result)

	stored := reload(t, db, sub.ID)
	assert.Equal(t, models.SubscriptionActive, stored.Status)
	assert.True(t, stored.SubscriptionEndDate.Equal(time.Date(2026, time.May, 30, 8, 0, 0, 0, time.UTC)),
		"got %s", stored.SubscriptionEndDate)
	assert.Equal(t, "60.01", testutil.Balance(t, db, "user-1").StringFixed(2))

	var txn models.Transaction
	require.NoError(t, db.Where("user_id = ?", "user-1").First(&txn).Error)
	require.NotNil(t, txn.SubscriptionID)
	assert.Equal(t, sub.ID, *txn.SubscriptionID)
	assert.Equal(t, models.TransactionDebit, txn.Type)
	assert.Equal(t, "renewal:pro-monthly", txn.Reference)
}

func TestSweepExpiresOnInsufficientFunds(t *testing.T) {
	r, db, _ := newReconciler(t)
	plan := testutil.SeedPlan(t, db, "pro-monthly", "39.99")
	testutil.SeedWallet(t, db, "user-1", "10.00")
	sub := dueSubscription(t, db, "user-1", plan.ID, sweepTime.Add(-time.Hour), true)

	result, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Expired)

	assert.Equal(t, models.SubscriptionExpired, reload(t, db, sub.ID).Status)
	assert.Equal(t, "10.00", testutil.Balance(t, db, "user-1").StringFixed(2))
	assert.Zero(t, testutil.CountTransactions(t, db, "user-1"))
}

func TestSweepExpiresWithoutAutoRenewOrWallet(t *testing.T) {
	r, db, _ := newReconciler(t)
	plan := testutil.SeedPlan(t, db, "basic-monthly", "19.99")
	testutil.SeedWallet(t, db, "user-1", "500.00")
	manual := dueSubscription(t, db, "user-1", plan.ID, sweepTime.Add(-time.Minute), false)
	orphan := dueSubscription(t, db, "user-2", plan.ID, sweepTime.Add(-time.Minute), true)

	result, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Candidates: 2, Expired: 2}, result)

	assert.Equal(t, models.SubscriptionExpired, reload(t, db, manual.ID).Status)
	assert.Equal(t, models.SubscriptionExpired, reload(t, db, orphan.ID).Status)
	assert.Equal(t, "500.00", testutil.Balance(t, db, "user-1").StringFixed(2))
}

func TestSweepExpiresWhenPlanIsGone(t *testing.T) {
	r, db, _ := newReconciler(t)
	plan := testutil.SeedPlan(t, db, "legacy-monthly", "19.99")
	testutil.SeedWallet(t, db, "user-1", "500.00")
	sub := dueSubscription(t, db, "user-1", plan.ID, sweepTime.Add(-time.Hour), true)

	require.NoError(t, db.Exec("PRAGMA foreign_keys = OFF").Error)
	require.NoError(t, db.Exec("DELETE FROM subscription_plans WHERE id = ?", plan.ID).Error)

	result, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Candidates: 1, Expired: 1}, result)
	assert.Equal(t, models.SubscriptionExpired, reload(t, db, sub.ID).Status)
	assert.Equal(t, "500.00", testutil.Balance(t, db, "user-1").StringFixed(2))
	assert.Zero(t, testutil.CountTransactions(t, db, "user-1"))
}

func TestReconcileLocksWalletBeforeSubscription(t *testing.T) {
	r, db, _ := newReconciler(t)
	plan := testutil.SeedPlan(t, db, "pro-monthly", "39.99")
	testutil.SeedWallet(t, db, "user-1", "100.00")
	dueSubscription(t, db, "user-1", plan.ID, sweepTime.Add(-time.Hour), true)

	var tables []string
	err := db.Callback().Query().After("gorm:query").Register("test:trace_tables", func(tx *gorm.DB) {
		tables = append(tables, tx.Statement.Table)
	})
	require.NoError(t, err)

	result, err := r.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.Renewed)

	firstWallet := -1
	for i, table := range tables {
		if table == "wallets" {
			firstWallet = i
			break
		}
	}
	require.GreaterOrEqual(t, firstWallet, 0, "tables: %v", tables)
	assert.Contains(t, tables[firstWallet:], "user_subscriptions", "subscription must be read under lock after the wallet: %v", tables)
	assert.NotContains(t, tables[:firstWallet], "subscription_plans", "tables: %v", tables)
}

func TestSweepIgnoresFutureAndInactiveSubscriptions(t *testing.T) {
	r, db, _ := newReconciler(t)
	plan := testutil.SeedPlan(t, db, "basic-monthly", "19.99")
	testutil.SeedWallet(t, db, "user-1", "50.00")
	testutil.SeedWallet(t, db, "user-2", "50.00")
	future := dueSubscription(t, db, "user-1", plan.ID, sweepTime.Add(time.Second), true)
	testutil.SeedSubscription(t, db, models.UserSubscription{
		UserID:              "user-2",
		PlanID:              plan.ID,
		Status:              models.SubscriptionCanceled,
		SubscriptionEndDate: sweepTime.Add(-24 * time.Hour),
	})

	result, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Candidates)
	assert.True(t, reload(t, db, future.ID).SubscriptionEndDate.Equal(sweepTime.Add(time.Second)))
}

func TestSweepRenewsDueAtExactlyNow(t *testing.T) {
	r, db, _ := newReconciler(t)
	plan := testutil.SeedPlan(t, db, "basic-monthly", "19.99")
	testutil.SeedWallet(t, db, "user-1", "19.99")
	sub := dueSubscription(t, db, "user-1", plan.ID, sweepTime, true)

	result, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Renewed)
	assert.True(t, testutil.Balance(t, db, "user-1").IsZero())
	assert.True(t, reload(t, db, sub.ID).SubscriptionEndDate.Equal(time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)))
}

func TestSweepTwiceChargesOnce(t *testing.T) {
	r, db, _ := newReconciler(t)
	plan := testutil.SeedPlan(t, db, "pro-monthly", "39.99")
	testutil.SeedWallet(t, db, "user-1", "100.00")
	testutil.SeedWallet(t, db, "user-2", "1.00")
	renewing := dueSubscription(t, db, "user-1", plan.ID, sweepTime.Add(-time.Hour), true)
	expiring := dueSubscription(t, db, "user-2", plan.ID, sweepTime.Add(-time.Hour), true)
	ctx := context.Background()

	first, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Candidates: 2, Renewed: 1, Expired: 1}, first)

	second, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, second)

	assert.Equal(t, int64(1), testutil.CountTransactions(t, db, "user-1"))
	assert.Equal(t, "60.01", testutil.Balance(t, db, "user-1").StringFixed(2))
	assert.Equal(t, models.SubscriptionActive, reload(t, db, renewing.ID).Status)
	assert.Equal(t, models.SubscriptionExpired, reload(t, db, expiring.ID).Status)
}

func TestReconcileSkipsRowsHandledSinceTheDueQuery(t *testing.T) {
	r, db, clock := newReconciler(t)
	plan := testutil.SeedPlan(t, db, "pro-monthly", "39.99")
	testutil.SeedWallet(t, db, "user-1", "100.00")
	sub := dueSubscription(t, db, "user-1", plan.ID, sweepTime.Add(-time.Hour), true)
	ctx := context.Background()

	ids, err := r.dueIDs(ctx, clock.Now())
	require.NoError(t, err)
	require.Equal(t, []string{sub.ID}, ids)

	// a cancel commits between the scan and the per-item transaction
	membership := services.NewMembershipService(db, services.NewLedger(db), clock)
	_, err = membership.CancelSubscription(ctx, services.Consumer("user-1"), "user-1")
	require.NoError(t, err)

	outcome, err := r.reconcile(ctx, sub.ID, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
	assert.Equal(t, models.SubscriptionCanceled, reload(t, db, sub.ID).Status)
	assert.Zero(t, testutil.CountTransactions(t, db, "user-1"))

	outcome, err = r.reconcile(ctx, "missing", clock.Now())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, outcome)
}

func TestSweepContinuesPastFailingCandidate(t *testing.T) {
	r, db, _ := newReconciler(t)
	plan := testutil.SeedPlan(t, db, "basic-monthly", "19.99")
	testutil.SeedWallet(t, db, "user-bad", "100.00")
	testutil.SeedWallet(t, db, "user-ok", "100.00")
	bad := dueSubscription(t, db, "user-bad", plan.ID, sweepTime.Add(-2*time.Hour), true)
	ok := dueSubscription(t, db, "user-ok", plan.ID, sweepTime.Add(-time.Hour), true)

	err := db.Callback().Create().Before("gorm:create").Register("test:fail_ledger_row", func(tx *gorm.DB) {
		if txn, isTxn := tx.Statement.Dest.(*models.Transaction); isTxn && txn.UserID == "user-bad" {
			tx.AddError(errors.New("ledger write failed"))
		}
	})
	require.NoError(t, err)

	result, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Candidates: 2, Renewed: 1, Failed: 1}, result)

	storedBad := reload(t, db, bad.ID)
	assert.Equal(t, models.SubscriptionActive, storedBad.Status)
	assert.True(t, storedBad.SubscriptionEndDate.Equal(bad.SubscriptionEndDate))
	assert.Equal(t, "100.00", testutil.Balance(t, db, "user-bad").StringFixed(2))

	assert.Equal(t, "80.01", testutil.Balance(t, db, "user-ok").StringFixed(2))
	assert.True(t, reload(t, db, ok.ID).SubscriptionEndDate.After(sweepTime))
}

func TestSweepRenewsYearlyPlanInYears(t *testing.T) {
	r, db, _ := newReconciler(t)
	plan := testutil.SeedPlanWith(t, db, models.SubscriptionPlan{
		Slug:          "team-yearly",
		Price:         testutil.Money(t, "199.00"),
		BillingPeriod: models.BillingYearly,
		PlanDuration:  1,
	})
	testutil.SeedWallet(t, db, "user-1", "200.00")
	end := time.Date(2026, time.April, 15, 0, 0, 0, 0, time.UTC)
	sub := dueSubscription(t, db, "user-1", plan.ID, end, true)

	_, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.True(t, reload(t, db, sub.ID).SubscriptionEndDate.Equal(time.Date(2027, time.April, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "1.00", testutil.Balance(t, db, "user-1").StringFixed(2))
}

func TestSweepStopsOnCanceledContext(t *testing.T) {
	r, db, _ := newReconciler(t)
	plan := testutil.SeedPlan(t, db, "basic-monthly", "19.99")
	testutil.SeedWallet(t, db, "user-1", "100.00")
	dueSubscription(t, db, "user-1", plan.ID, sweepTime.Add(-time.Hour), true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "100.00", testutil.Balance(t, db, "user-1").StringFixed(2))
}

func TestStartRejectsBadSchedule(t *testing.T) {
	db := testutil.NewDB(t)
	r := NewReconciler(db, services.NewLedger(db), testutil.NewClock(sweepTime), WithSchedule("not a schedule"))
	assert.Error(t, r.Start(context.Background()))
}

func TestStartAndStop(t *testing.T) {
	r, _, _ := newReconciler(t)
	require.NoError(t, r.Start(context.Background()))

	select {
	case <-r.Stop().Done():
	case <-time.After(5 * time.Second):
		t.Fatal("reconciler did not stop")
	}
}
