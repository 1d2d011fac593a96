package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MembershipService drives the subscription state machine. It owns every
// user-triggered change of UserSubscription; money moves only through the
// Ledger.
type MembershipService struct {
	db     *gorm.DB
	ledger *Ledger
	clock  utils.Clock
}

// NewMembershipService wires the service to its store, ledger and clock
func NewMembershipService(db *gorm.DB, ledger *Ledger, clock utils.Clock) *MembershipService {
	return &MembershipService{db: db, ledger: ledger, clock: clock}
}

// SubscriptionReceipt is returned by purchases and plan changes
type SubscriptionReceipt struct {
	Subscription *models.UserSubscription `json:"subscription"`
	Transaction  *models.Transaction      `json:"transaction"`
	Balance      decimal.Decimal          `json:"balance"`
	// Created is set when a plan change had no active subscription to
	// change and bought a new one instead
	Created bool `json:"created"`
}

// Code reports the success code matching how the receipt was produced
func (r *SubscriptionReceipt) Code() string {
	if r.Created {
		return CodeSubscribed
	}
	return CodePlanChanged
}

// Subscribe buys planID for userID. The plan lookup, the wallet charge, the
// subscription row and its ledger row commit together or not at all.
func (s *MembershipService) Subscribe(ctx context.Context, userID, planID string, autoRenew bool) (*SubscriptionReceipt, error) {
	utils.LogInfo("Subscribe called - User: %s, Plan: %s, AutoRenew: %t", userID, planID, autoRenew)

	var receipt *SubscriptionReceipt
	err := s.ledger.InTx(ctx, func(tx *gorm.DB) error {
		plan, err := s.activePlan(tx, planID)
		if err != nil {
			return err
		}
		wallet, err := s.ledger.LockWalletByUser(tx, userID)
		if err != nil {
			return err
		}
		receipt, err = s.subscribeTx(tx, wallet, plan, autoRenew)
		return err
	})
	if err != nil {
		utils.LogError("Subscribe failed - User: %s, Plan: %s: %v", userID, planID, err)
		return nil, err
	}

	receipt.Created = true
	utils.LogInfo("User %s subscribed to plan %s until %s", userID, planID,
		receipt.Subscription.SubscriptionEndDate.Format(time.RFC3339))
	return receipt, nil
}

func (s *MembershipService) subscribeTx(tx *gorm.DB, wallet *models.Wallet, plan *models.SubscriptionPlan, autoRenew bool) (*SubscriptionReceipt, error) {
	if _, err := s.activeSubscription(tx, wallet.UserID, false); err == nil {
		return nil, ErrActiveSubscriptionExist
	} else if !errors.Is(err, ErrNoActiveSubscription) {
		return nil, err
	}

	now := s.clock.Now()
	sub := &models.UserSubscription{
		UserID:                wallet.UserID,
		PlanID:                plan.ID,
		Status:                models.SubscriptionActive,
		SubscriptionStartDate: now,
		SubscriptionEndDate:   utils.AddMonths(now, plan.TermMonths()),
		AutoRenew:             autoRenew,
	}
	if err := tx.Create(sub).Error; err != nil {
		if utils.IsDuplicateKey(err) {
			return nil, ErrActiveSubscriptionExist
		}
		return nil, err
	}

	txn, balance, err := s.ledger.ChargeTx(tx, wallet.ID, plan.Price, Entry{
		SubscriptionID: &sub.ID,
		Reference:      "subscribe:" + plan.Slug,
	})
	if err != nil {
		return nil, err
	}

	sub.Plan = plan
	return &SubscriptionReceipt{Subscription: sub, Transaction: txn, Balance: balance}, nil
}

// AutoRenewOrDefault resolves an optional renewal flag. Subscriptions renew
// unless the caller says otherwise.
func AutoRenewOrDefault(autoRenew *bool) bool {
	if autoRenew == nil {
		return true
	}
	return *autoRenew
}

// ChangePlan moves the active subscription of userID to targetPlanID,
// charging the new price and restarting the term from now. The renewal flag
// of the active subscription is kept. Without an active subscription it
// subscribes instead, renewing unless autoRenew says otherwise.
func (s *MembershipService) ChangePlan(ctx context.Context, userID, targetPlanID string, autoRenew *bool) (*SubscriptionReceipt, error) {
	utils.LogInfo("ChangePlan called - User: %s, Target plan: %s", userID, targetPlanID)

	var receipt *SubscriptionReceipt
	err := s.ledger.InTx(ctx, func(tx *gorm.DB) error {
		plan, err := s.activePlan(tx, targetPlanID)
		if err != nil {
			return err
		}
		wallet, err := s.ledger.LockWalletByUser(tx, userID)
		if err != nil {
			return err
		}

		active, err := s.activeSubscription(tx, userID, true)
		if errors.Is(err, ErrNoActiveSubscription) {
			utils.LogDebug("No active subscription for user %s, subscribing instead", userID)
			receipt, err = s.subscribeTx(tx, wallet, plan, AutoRenewOrDefault(autoRenew))
			if err == nil {
				receipt.Created = true
			}
			return err
		}
		if err != nil {
			return err
		}
		if active.PlanID == plan.ID {
			return ErrAlreadyOnPlan
		}

		txn, balance, err := s.ledger.ChargeTx(tx, wallet.ID, plan.Price, Entry{
			SubscriptionID: &active.ID,
			Reference:      "change_plan:" + plan.Slug,
		})
		if err != nil {
			return err
		}

		now := s.clock.Now()
		active.PlanID = plan.ID
		active.SubscriptionStartDate = now
		active.SubscriptionEndDate = utils.AddMonths(now, plan.TermMonths())
		err = tx.Model(&models.UserSubscription{}).
			Where("id = ?", active.ID).
			Updates(map[string]interface{}{
				"plan_id":                 active.PlanID,
				"subscription_start_date": active.SubscriptionStartDate,
				"subscription_end_date":   active.SubscriptionEndDate,
				"updated_at":              now,
			}).Error
		if err != nil {
			return err
		}

		active.Plan = plan
		receipt = &SubscriptionReceipt{Subscription: active, Transaction: txn, Balance: balance}
		return nil
	})
	if err != nil {
		utils.LogError("ChangePlan failed - User: %s, Target plan: %s: %v", userID, targetPlanID, err)
		return nil, err
	}

	utils.LogInfo("User %s now on plan %s", userID, targetPlanID)
	return receipt, nil
}

// CancelSubscription ends the active subscription of userID immediately.
// No refund is issued. The actor only decides which codes are reported.
func (s *MembershipService) CancelSubscription(ctx context.Context, actor Actor, userID string) (*models.UserSubscription, error) {
	utils.LogInfo("CancelSubscription called - User: %s, Actor: %s %s", userID, actor.Role, actor.ID)

	var canceled *models.UserSubscription
	err := s.ledger.InTx(ctx, func(tx *gorm.DB) error {
		active, err := s.activeSubscription(tx, userID, true)
		if errors.Is(err, ErrNoActiveSubscription) {
			return actor.noActiveSubscription()
		}
		if err != nil {
			return err
		}

		now := s.clock.Now()
		res := tx.Model(&models.UserSubscription{}).
			Where("id = ? AND status = ?", active.ID, models.SubscriptionActive).
			Updates(map[string]interface{}{
				"status":                models.SubscriptionCanceled,
				"auto_renew":            false,
				"subscription_end_date": now,
				"updated_at":            now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return actor.noActiveSubscription()
		}

		active.Status = models.SubscriptionCanceled
		active.AutoRenew = false
		active.SubscriptionEndDate = now
		canceled = active
		return nil
	})
	if err != nil {
		utils.LogError("CancelSubscription failed - User: %s: %v", userID, err)
		return nil, err
	}

	utils.LogInfo("Subscription %s of user %s canceled", canceled.ID, userID)
	return canceled, nil
}

// GetSubscription returns the active subscription of userID with its plan
// and ledger rows, newest first
func (s *MembershipService) GetSubscription(ctx context.Context, userID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := s.db.WithContext(ctx).
		Preload("Plan").
		Preload("Transactions", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).
		First(&sub).Error
	if err != nil {
		if utils.IsRecordNotFound(err) {
			return nil, ErrNoActiveSubscription
		}
		return nil, err
	}
	return &sub, nil
}

// activePlan loads planID and checks it can be bought
func (s *MembershipService) activePlan(tx *gorm.DB, planID string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := tx.Where("id = ?", planID).First(&plan).Error; err != nil {
		if utils.IsRecordNotFound(err) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	if plan.Status != models.StatusActive {
		return nil, ErrPlanNotFound
	}
	return &plan, nil
}

func (s *MembershipService) activeSubscription(tx *gorm.DB, userID string, lock bool) (*models.UserSubscription, error) {
	q := tx
	if lock {
		q = utils.LockForUpdate(tx)
	}
	var sub models.UserSubscription
	err := q.Where("user_id = ? AND status = ?", userID, models.SubscriptionActive).First(&sub).Error
	if err != nil {
		if utils.IsRecordNotFound(err) {
			return nil, ErrNoActiveSubscription
		}
		return nil, err
	}
	return &sub, nil
}

// ListActivePlans pages through purchasable plans, cheapest first
func (s *MembershipService) ListActivePlans(ctx context.Context, page utils.Pagination) ([]models.SubscriptionPlan, utils.PageMeta, error) {
	db := s.db.WithContext(ctx).Model(&models.SubscriptionPlan{}).
		Where("status = ?", models.StatusActive).
		Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, utils.PageMeta{}, err
	}

	var plans []models.SubscriptionPlan
	if err := db.Scopes(utils.Paginate(page)).Order("price ASC").Order("name ASC").Find(&plans).Error; err != nil {
		return nil, utils.PageMeta{}, err
	}
	return plans, page.Meta(total), nil
}

// PlanInput carries the fields of a new plan
type PlanInput struct {
	Name          string               `json:"name" binding:"required,max=100"`
	Slug          string               `json:"slug" binding:"required,max=100"`
	Description   string               `json:"description"`
	Price         decimal.Decimal      `json:"price" binding:"required"`
	BillingPeriod models.BillingPeriod `json:"billingPeriod" binding:"required,oneof=MONTHLY YEARLY"`
	PlanDuration  int                  `json:"planDuration" binding:"required,min=1"`
	Status        models.Status        `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

// PlanUpdate carries the fields an admin may edit; nil fields are kept
type PlanUpdate struct {
	Name          *string               `json:"name" binding:"omitempty,max=100"`
	Description   *string               `json:"description"`
	Price         *decimal.Decimal      `json:"price"`
	BillingPeriod *models.BillingPeriod `json:"billingPeriod" binding:"omitempty,oneof=MONTHLY YEARLY"`
	PlanDuration  *int                  `json:"planDuration" binding:"omitempty,min=1"`
	Status        *models.Status        `json:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

// CreatePlan adds a plan to the catalog
func (s *MembershipService) CreatePlan(ctx context.Context, in PlanInput) (*models.SubscriptionPlan, error) {
	utils.LogInfo("CreatePlan called - Slug: %s", in.Slug)

	if err := utils.ValidateAmount(in.Price); err != nil {
		return nil, err
	}
	if !in.BillingPeriod.Valid() {
		return nil, utils.InvalidError(utils.CodeInvalidPayload, "invalid billing period").
			WithFields(utils.FieldValidationError{Field: "billingPeriod", Message: "must be one of MONTHLY YEARLY"})
	}
	if in.PlanDuration < 1 {
		return nil, utils.InvalidError(utils.CodeInvalidPayload, "invalid plan duration").
			WithFields(utils.FieldValidationError{Field: "planDuration", Message: "must be at least 1"})
	}
	status := in.Status
	if status == "" {
		status = models.StatusActive
	}

	plan := &models.SubscriptionPlan{
		Name:          strings.TrimSpace(in.Name),
		Slug:          strings.ToLower(strings.TrimSpace(in.Slug)),
		Description:   in.Description,
		Price:         in.Price,
		BillingPeriod: in.BillingPeriod,
		PlanDuration:  in.PlanDuration,
		Status:        status,
	}
	err := s.ledger.InTx(ctx, func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&models.SubscriptionPlan{}).Where("slug = ?", plan.Slug).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return ErrPlanSlugTaken
		}
		if err := tx.Create(plan).Error; err != nil {
			if utils.IsDuplicateKey(err) {
				return ErrPlanSlugTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		utils.LogError("Failed to create plan %s: %v", in.Slug, err)
		return nil, err
	}

	utils.LogInfo("Plan %s created with id %s", plan.Slug, plan.ID)
	return plan, nil
}

// UpdatePlan applies the non-nil fields of in to planID
func (s *MembershipService) UpdatePlan(ctx context.Context, planID string, in PlanUpdate) (*models.SubscriptionPlan, error) {
	utils.LogInfo("UpdatePlan called - Plan: %s", planID)

	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.Price != nil {
		if err := utils.ValidateAmount(*in.Price); err != nil {
			return nil, err
		}
		updates["price"] = *in.Price
	}
	if in.BillingPeriod != nil {
		if !in.BillingPeriod.Valid() {
			return nil, utils.InvalidError(utils.CodeInvalidPayload, "invalid billing period").
				WithFields(utils.FieldValidationError{Field: "billingPeriod", Message: "must be one of MONTHLY YEARLY"})
		}
		updates["billing_period"] = *in.BillingPeriod
	}
	if in.PlanDuration != nil {
		if *in.PlanDuration < 1 {
			return nil, utils.InvalidError(utils.CodeInvalidPayload, "invalid plan duration").
				WithFields(utils.FieldValidationError{Field: "planDuration", Message: "must be at least 1"})
		}
		updates["plan_duration"] = *in.PlanDuration
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return nil, utils.InvalidError(utils.CodeInvalidPayload, "invalid status").
				WithFields(utils.FieldValidationError{Field: "status", Message: "must be one of ACTIVE INACTIVE"})
		}
		updates["status"] = *in.Status
	}

	var plan models.SubscriptionPlan
	err := s.ledger.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", planID).First(&plan).Error; err != nil {
			if utils.IsRecordNotFound(err) {
				return ErrAdminPlanNotFound
			}
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = s.clock.Now()
		if err := tx.Model(&plan).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", planID).First(&plan).Error
	})
	if err != nil {
		utils.LogError("UpdatePlan failed - Plan: %s: %v", planID, err)
		return nil, err
	}
	return &plan, nil
}

// DeletePlan removes a plan that no subscription has ever referenced.
// Referenced plans must be deactivated instead.
func (s *MembershipService) DeletePlan(ctx context.Context, planID string) error {
	utils.LogInfo("DeletePlan called - Plan: %s", planID)

	err := s.ledger.InTx(ctx, func(tx *gorm.DB) error {
		var plan models.SubscriptionPlan
		if err := tx.Where("id = ?", planID).First(&plan).Error; err != nil {
			if utils.IsRecordNotFound(err) {
				return ErrAdminPlanNotFound
			}
			return err
		}

		var refs int64
		if err := tx.Model(&models.UserSubscription{}).Where("plan_id = ?", planID).Count(&refs).Error; err != nil {
			return err
		}
		if refs > 0 {
			return ErrPlanInUse
		}
		return tx.Delete(&plan).Error
	})
	if err != nil {
		utils.LogError("DeletePlan failed - Plan: %s: %v", planID, err)
		return err
	}
	return nil
}

// ListPlans returns the whole catalog, newest first
func (s *MembershipService) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	var plans []models.SubscriptionPlan
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

// GetPlan returns one plan regardless of status
func (s *MembershipService) GetPlan(ctx context.Context, planID string) (*models.SubscriptionPlan, error) {
	var plan models.SubscriptionPlan
	if err := s.db.WithContext(ctx).Where("id = ?", planID).First(&plan).Error; err != nil {
		if utils.IsRecordNotFound(err) {
			return nil, ErrAdminPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}
