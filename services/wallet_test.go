package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/testutil"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestTopUp(t *testing.T, f *fixture, userID, methodID, amount string) *models.WalletTopUp {
	t.Helper()
	topUp, err := f.wallet.RequestTopUp(context.Background(), userID, TopUpRequest{
		PaymentMethodID: methodID,
		Amount:          testutil.Money(t, amount),
		TransactionRef:  "bank-ref-" + amount,
	})
	require.NoError(t, err)
	return topUp
}

func TestRequestTopUpCreatesPending(t *testing.T) {
	f := newFixture(t)
	testutil.SeedWallet(t, f.db, "user-1", "10.00")
	method := testutil.SeedPaymentMethod(t, f.db, "Bank transfer", models.StatusActive)

	topUp := requestTopUp(t, f, "user-1", method.ID, "50.00")
	assert.Equal(t, models.TopUpPending, topUp.Status)
	assert.Nil(t, topUp.ProcessedAt)
	assert.Equal(t, "bank-ref-50.00", topUp.TransactionRef)

	assert.Equal(t, "10.00", testutil.Balance(t, f.db, "user-1").StringFixed(2))
	assert.Zero(t, testutil.CountTransactions(t, f.db, "user-1"))
}

func TestRequestTopUpValidation(t *testing.T) {
	f := newFixture(t)
	testutil.SeedWallet(t, f.db, "user-1", "10.00")
	active := testutil.SeedPaymentMethod(t, f.db, "Bank transfer", models.StatusActive)
	inactive := testutil.SeedPaymentMethod(t, f.db, "Cheque", models.StatusInactive)
	ctx := context.Background()

	_, err := f.wallet.RequestTopUp(ctx, "user-1", TopUpRequest{
		PaymentMethodID: inactive.ID, Amount: testutil.Money(t, "5.00"), TransactionRef: "x",
	})
	assert.ErrorIs(t, err, ErrPaymentMethod)
	assert.Equal(t, utils.KindInactive, utils.GetAppError(err).Kind)

	_, err = f.wallet.RequestTopUp(ctx, "user-1", TopUpRequest{
		PaymentMethodID: "missing", Amount: testutil.Money(t, "5.00"), TransactionRef: "x",
	})
	assert.ErrorIs(t, err, ErrPaymentMethod)

	_, err = f.wallet.RequestTopUp(ctx, "user-1", TopUpRequest{
		PaymentMethodID: active.ID, Amount: testutil.Money(t, "5.005"), TransactionRef: "x",
	})
	assert.ErrorIs(t, err, utils.ErrInvalidAmount)

	_, err = f.wallet.RequestTopUp(ctx, "user-1", TopUpRequest{
		PaymentMethodID: active.ID, Amount: testutil.Money(t, "5.00"), TransactionRef: "  ",
	})
	require.Error(t, err)
	assert.Equal(t, utils.KindInvalid, utils.GetAppError(err).Kind)

	_, err = f.wallet.RequestTopUp(ctx, "user-9", TopUpRequest{
		PaymentMethodID: active.ID, Amount: testutil.Money(t, "5.00"), TransactionRef: "x",
	})
	assert.ErrorIs(t, err, ErrWalletNotFound)

	var count int64
	require.NoError(t, f.db.Model(&models.WalletTopUp{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestApproveTopUpCreditsOnce(t *testing.T) {
	f := newFixture(t)
	testutil.SeedWallet(t, f.db, "user-1", "10.00")
	method := testutil.SeedPaymentMethod(t, f.db, "Bank transfer", models.StatusActive)
	topUp := requestTopUp(t, f, "user-1", method.ID, "50.00")
	ctx := context.Background()

	f.clock.Advance(time.Hour)
	receipt, err := f.wallet.ApproveTopUp(ctx, topUp.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TopUpApproved, receipt.TopUp.Status)
	require.NotNil(t, receipt.TopUp.ProcessedAt)
	assert.Equal(t, f.clock.Now(), *receipt.TopUp.ProcessedAt)
	assert.Equal(t, "60.00", receipt.Balance.StringFixed(2))
	assert.Equal(t, models.TransactionCredit, receipt.Transaction.Type)
	assert.Equal(t, "topup:"+topUp.ID, receipt.Transaction.Reference)

	_, err = f.wallet.ApproveTopUp(ctx, topUp.ID)
	assert.ErrorIs(t, err, ErrTopUpProcessed)

	_, err = f.wallet.RejectTopUp(ctx, topUp.ID, "late")
	assert.ErrorIs(t, err, ErrTopUpProcessed)

	assert.Equal(t, "60.00", testutil.Balance(t, f.db, "user-1").StringFixed(2))
	assert.Equal(t, int64(1), testutil.CountTransactions(t, f.db, "user-1"))
}

func TestApproveTopUpConcurrently(t *testing.T) {
	f := newFixture(t)
	testutil.SeedWallet(t, f.db, "user-1", "0.00")
	method := testutil.SeedPaymentMethod(t, f.db, "Bank transfer", models.StatusActive)
	topUp := requestTopUp(t, f, "user-1", method.ID, "25.00")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.wallet.ApproveTopUp(context.Background(), topUp.ID)
		}(i)
	}
	wg.Wait()

	failures := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, ErrTopUpProcessed)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, "25.00", testutil.Balance(t, f.db, "user-1").StringFixed(2))
	assert.Equal(t, int64(1), testutil.CountTransactions(t, f.db, "user-1"))
}

func TestRejectTopUpThenApproveConflicts(t *testing.T) {
	f := newFixture(t)
	testutil.SeedWallet(t, f.db, "user-1", "100.00")
	method := testutil.SeedPaymentMethod(t, f.db, "Bank transfer", models.StatusActive)
	topUp := requestTopUp(t, f, "user-1", method.ID, "50.00")
	ctx := context.Background()

	_, err := f.wallet.RejectTopUp(ctx, topUp.ID, " no ")
	assert.ErrorIs(t, err, ErrRejectReason)

	rejected, err := f.wallet.RejectTopUp(ctx, topUp.ID, "duplicate")
	require.NoError(t, err)
	assert.Equal(t, models.TopUpRejected, rejected.Status)
	assert.Equal(t, "duplicate", rejected.AdminNote)
	require.NotNil(t, rejected.ProcessedAt)

	_, err = f.wallet.ApproveTopUp(ctx, topUp.ID)
	assert.ErrorIs(t, err, ErrTopUpProcessed)
	assert.Equal(t, utils.KindConflict, utils.GetAppError(err).Kind)

	assert.Equal(t, "100.00", testutil.Balance(t, f.db, "user-1").StringFixed(2))
	assert.Zero(t, testutil.CountTransactions(t, f.db, "user-1"))

	var stored models.WalletTopUp
	require.NoError(t, f.db.Where("id = ?", topUp.ID).First(&stored).Error)
	assert.Equal(t, models.TopUpRejected, stored.Status)
	assert.Equal(t, "duplicate", stored.AdminNote)
}

func TestRejectTopUpWithoutReason(t *testing.T) {
	f := newFixture(t)
	testutil.SeedWallet(t, f.db, "user-1", "100.00")
	method := testutil.SeedPaymentMethod(t, f.db, "Bank transfer", models.StatusActive)
	topUp := requestTopUp(t, f, "user-1", method.ID, "50.00")
	ctx := context.Background()

	rejected, err := f.wallet.RejectTopUp(ctx, topUp.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.TopUpRejected, rejected.Status)
	assert.Empty(t, rejected.AdminNote)

	_, err = f.wallet.RejectTopUp(ctx, topUp.ID, "")
	assert.ErrorIs(t, err, ErrTopUpProcessed)
	_, err = f.wallet.RejectTopUp(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrTopUpNotFound)
	assert.Equal(t, "100.00", testutil.Balance(t, f.db, "user-1").StringFixed(2))
}

func TestApproveUnknownTopUp(t *testing.T) {
	f := newFixture(t)

	_, err := f.wallet.ApproveTopUp(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTopUpNotFound)
	_, err = f.wallet.RejectTopUp(context.Background(), "missing", "nope")
	assert.ErrorIs(t, err, ErrTopUpNotFound)
}

func TestWalletSummaryAndListings(t *testing.T) {
	f := newFixture(t)
	testutil.SeedWallet(t, f.db, "user-1", "0.00")
	testutil.SeedWallet(t, f.db, "user-2", "0.00")
	method := testutil.SeedPaymentMethod(t, f.db, "Bank transfer", models.StatusActive)
	ctx := context.Background()

	var ids []string
	for _, amount := range []string{"1.00", "2.00", "3.00", "4.00", "5.00", "6.00"} {
		ids = append(ids, requestTopUp(t, f, "user-1", method.ID, amount).ID)
	}
	requestTopUp(t, f, "user-2", method.ID, "9.00")

	_, err := f.wallet.ApproveTopUp(ctx, ids[0])
	require.NoError(t, err)

	summary, err := f.wallet.Summary(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "1.00", summary.Wallet.Balance.StringFixed(2))
	assert.Len(t, summary.RecentTopUps, utils.RecentTopUpsLimit)
	require.NotNil(t, summary.RecentTopUps[0].PaymentMethod)

	topUps, meta, err := f.wallet.ListTopUps(ctx, "user-1", utils.NewPagination(1, 4))
	require.NoError(t, err)
	assert.Len(t, topUps, 4)
	assert.Equal(t, int64(6), meta.Total)
	assert.Equal(t, 2, meta.PageCount)

	pending, err := f.wallet.AdminListTopUps(ctx, models.TopUpPending)
	require.NoError(t, err)
	assert.Len(t, pending, 6)

	all, err := f.wallet.AdminListTopUps(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 7)

	_, err = f.wallet.AdminListTopUps(ctx, "DONE")
	assert.Equal(t, utils.KindInvalid, utils.GetAppError(err).Kind)

	_, err = f.wallet.Summary(ctx, "user-9")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestPaymentMethodAdministration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	off := false
	card, err := f.wallet.CreatePaymentMethod(ctx, PaymentMethodInput{Name: " Card "})
	require.NoError(t, err)
	assert.Equal(t, "Card", card.Name)
	assert.Equal(t, models.StatusActive, card.Status)

	_, err = f.wallet.CreatePaymentMethod(ctx, PaymentMethodInput{Name: "Cash", IsActive: &off})
	require.NoError(t, err)

	_, err = f.wallet.CreatePaymentMethod(ctx, PaymentMethodInput{Name: ""})
	assert.Equal(t, utils.KindInvalid, utils.GetAppError(err).Kind)

	methods, meta, err := f.wallet.ListPaymentMethods(ctx, utils.NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, int64(1), meta.Total)

	updated, err := f.wallet.UpdatePaymentMethod(ctx, card.ID, PaymentMethodUpdate{IsActive: &off})
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, updated.Status)

	on := true
	updated, err = f.wallet.UpdatePaymentMethod(ctx, card.ID, PaymentMethodUpdate{IsActive: &on})
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, updated.Status)

	_, err = f.wallet.UpdatePaymentMethod(ctx, "missing", PaymentMethodUpdate{IsActive: &off})
	assert.ErrorIs(t, err, ErrAdminPaymentMethod)

	all, err := f.wallet.ListAllPaymentMethods(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
