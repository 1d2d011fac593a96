// Package scheduler runs the periodic renewal sweep over due subscriptions.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Govind-619/MemberSphere/metrics"
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/services"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// Renewal outcomes, also used as metric labels
const (
	OutcomeRenewed = "renewed"
	OutcomeExpired = "expired"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// SweepResult counts what one sweep did with its candidates
type SweepResult struct {
	Candidates int `json:"candidates"`
	Renewed    int `json:"renewed"`
	Expired    int `json:"expired"`
	Skipped    int `json:"skipped"`
	Failed     int `json:"failed"`
}

func (r *SweepResult) add(outcome string) {
	switch outcome {
	case OutcomeRenewed:
		r.Renewed++
	case OutcomeExpired:
		r.Expired++
	case OutcomeSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// Reconciler renews or expires ACTIVE subscriptions whose end date has
// passed. Each candidate is handled in its own database transaction.
type Reconciler struct {
	db       *gorm.DB
	ledger   *services.Ledger
	clock    utils.Clock
	schedule string
	metrics  *metrics.Metrics
	cron     *cron.Cron
}

// Option configures a Reconciler
type Option func(*Reconciler)

// WithSchedule sets the cron spec used by Start
func WithSchedule(spec string) Option {
	return func(r *Reconciler) {
		if spec != "" {
			r.schedule = spec
		}
	}
}

// WithMetrics records sweep outcomes into m
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// NewReconciler builds a reconciler over db. Balance changes go through
// ledger.
func NewReconciler(db *gorm.DB, ledger *services.Ledger, clock utils.Clock, opts ...Option) *Reconciler {
	r := &Reconciler{
		db:       db,
		ledger:   ledger,
		clock:    clock,
		schedule: utils.DefaultRenewalSchedule,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sweep processes every subscription due at the moment the sweep starts.
// A failing candidate is logged and counted, the rest still run. Only a
// failing due query or a canceled ctx returns an error.
func (r *Reconciler) Sweep(ctx context.Context) (SweepResult, error) {
	started := time.Now()
	defer func() { r.metrics.ObserveSweep(time.Since(started)) }()

	now := r.clock.Now()
	var result SweepResult

	ids, err := r.dueIDs(ctx, now)
	if err != nil {
		utils.LogError("Renewal sweep could not load due subscriptions: %v", err)
		return result, err
	}
	result.Candidates = len(ids)
	utils.LogInfo("Renewal sweep started at %s with %d due subscriptions", now.Format(time.RFC3339), len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			utils.LogInfo("Renewal sweep interrupted after %d of %d subscriptions", result.Renewed+result.Expired+result.Skipped+result.Failed, len(ids))
			return result, err
		}

		outcome, err := r.reconcile(ctx, id, now)
		if err != nil {
			utils.LogError("Renewal of subscription %s failed: %v", id, err)
			outcome = OutcomeFailed
		}
		result.add(outcome)
		r.metrics.ObserveRenewal(outcome)
	}

	utils.LogInfo("Renewal sweep finished - Renewed: %d, Expired: %d, Skipped: %d, Failed: %d",
		result.Renewed, result.Expired, result.Skipped, result.Failed)
	return result, nil
}

func (r *Reconciler) dueIDs(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.UserSubscription{}).
		Where("status = ? AND subscription_end_date <= ?", models.SubscriptionActive, now).
		Order("subscription_end_date ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// reconcile re-reads the subscription under lock, so a cancel or renewal
// that committed after the due query turns this candidate into a skip.
// The owner's wallet is locked before the subscription, the same order
// plan changes take.
func (r *Reconciler) reconcile(ctx context.Context, id string, now time.Time) (string, error) {
	outcome := OutcomeSkipped
	err := r.ledger.InTx(ctx, func(tx *gorm.DB) error {
		var owner models.UserSubscription
		if err := tx.Select("id", "user_id").Where("id = ?", id).First(&owner).Error; err != nil {
			if utils.IsRecordNotFound(err) {
				return nil
			}
			return err
		}
		wallet, walletErr := r.ledger.LockWalletByUser(tx, owner.UserID)
		if walletErr != nil && !errors.Is(walletErr, services.ErrWalletNotFound) {
			return walletErr
		}

		var sub models.UserSubscription
		if err := utils.LockForUpdate(tx).Where("id = ?", id).First(&sub).Error; err != nil {
			if utils.IsRecordNotFound(err) {
				return nil
			}
			return err
		}
		if sub.Status != models.SubscriptionActive || sub.SubscriptionEndDate.After(now) {
			utils.LogDebug("Subscription %s already handled, skipping", id)
			return nil
		}

		if !sub.AutoRenew {
			outcome = OutcomeExpired
			return r.expire(tx, &sub, "auto-renew disabled")
		}

		var plan models.SubscriptionPlan
		if err := tx.Where("id = ?", sub.PlanID).First(&plan).Error; err != nil {
			if utils.IsRecordNotFound(err) {
				outcome = OutcomeExpired
				return r.expire(tx, &sub, "plan no longer exists")
			}
			return err
		}

		if walletErr != nil {
			outcome = OutcomeExpired
			return r.expire(tx, &sub, "wallet not found")
		}
		if wallet.Balance.LessThan(plan.Price) {
			outcome = OutcomeExpired
			return r.expire(tx, &sub, fmt.Sprintf("balance %s below price %s",
				utils.FormatAmount(wallet.Balance), utils.FormatAmount(plan.Price)))
		}

		if _, _, err := r.ledger.ChargeTx(tx, wallet.ID, plan.Price, services.Entry{
			SubscriptionID: &sub.ID,
			Reference:      "renewal:" + plan.Slug,
		}); err != nil {
			return err
		}

		next := utils.AddMonths(sub.SubscriptionEndDate, plan.RenewalMonths())
		err := tx.Model(&models.UserSubscription{}).
			Where("id = ?", sub.ID).
			Updates(map[string]interface{}{"subscription_end_date": next, "updated_at": now}).Error
		if err != nil {
			return err
		}
		outcome = OutcomeRenewed
		utils.LogInfo("Subscription %s renewed on plan %s until %s", sub.ID, plan.Slug, next.Format(time.RFC3339))
		return nil
	})
	if err != nil {
		return OutcomeFailed, err
	}
	return outcome, nil
}

func (r *Reconciler) expire(tx *gorm.DB, sub *models.UserSubscription, reason string) error {
	err := tx.Model(&models.UserSubscription{}).
		Where("id = ?", sub.ID).
		Updates(map[string]interface{}{"status": models.SubscriptionExpired, "updated_at": r.clock.Now()}).Error
	if err != nil {
		return err
	}
	utils.LogInfo("Subscription %s of user %s expired: %s", sub.ID, sub.UserID, reason)
	return nil
}

// Start schedules Sweep on the configured cron spec. A sweep that is still
// running when the next tick fires causes that tick to be skipped.
func (r *Reconciler) Start(ctx context.Context) error {
	r.cron = cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := r.cron.AddFunc(r.schedule, func() {
		if _, err := r.Sweep(ctx); err != nil {
			utils.LogError("Scheduled renewal sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid renewal schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	utils.LogInfo("Renewal reconciler scheduled with %q", r.schedule)
	return nil
}

// Stop stops scheduling sweeps. The returned context is done once a
// running sweep has returned.
func (r *Reconciler) Stop() context.Context {
	if r.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	utils.LogInfo("Renewal reconciler stopping")
	return r.cron.Stop()
}
