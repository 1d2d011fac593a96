package services

import (
	"context"
	"strings"
	"time"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletService runs the top-up workflow and the wallet read models.
// Balance changes are delegated to the Ledger.
type WalletService struct {
	db     *gorm.DB
	ledger *Ledger
	clock  utils.Clock
}

// NewWalletService wires the service to its store, ledger and clock
func NewWalletService(db *gorm.DB, ledger *Ledger, clock utils.Clock) *WalletService {
	return &WalletService{db: db, ledger: ledger, clock: clock}
}

// WalletSummary is a wallet with its most recent top-up requests
type WalletSummary struct {
	Wallet       *models.Wallet       `json:"wallet"`
	RecentTopUps []models.WalletTopUp `json:"recentTopUps"`
}

// TopUpRequest is what a user submits to add funds
type TopUpRequest struct {
	PaymentMethodID string          `json:"paymentMethodId" binding:"required"`
	Amount          decimal.Decimal `json:"amount" binding:"required"`
	TransactionRef  string          `json:"transactionId" binding:"required,max=128"`
}

// TopUpReceipt is returned when an approval credited a wallet
type TopUpReceipt struct {
	TopUp       *models.WalletTopUp `json:"topUp"`
	Transaction *models.Transaction `json:"transaction"`
	Balance     decimal.Decimal     `json:"balance"`
}

// OpenWallet gives a newly registered user an empty wallet
func (s *WalletService) OpenWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	return s.ledger.OpenWallet(ctx, userID)
}

// Summary returns the wallet of userID and its latest top-ups
func (s *WalletService) Summary(ctx context.Context, userID string) (*WalletSummary, error) {
	db := s.db.WithContext(ctx)
	wallet, err := s.ledger.WalletByUser(db, userID)
	if err != nil {
		return nil, err
	}

	var topUps []models.WalletTopUp
	err = db.Preload("PaymentMethod").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(utils.RecentTopUpsLimit).
		Find(&topUps).Error
	if err != nil {
		return nil, err
	}
	return &WalletSummary{Wallet: wallet, RecentTopUps: topUps}, nil
}

// ListTransactions pages through the ledger rows of userID
func (s *WalletService) ListTransactions(ctx context.Context, userID string, page utils.Pagination) ([]models.Transaction, utils.PageMeta, error) {
	return s.ledger.ListTransactions(ctx, userID, page)
}

// RequestTopUp records a PENDING top-up. The balance is untouched until an
// admin verifies the external reference and approves it.
func (s *WalletService) RequestTopUp(ctx context.Context, userID string, req TopUpRequest) (*models.WalletTopUp, error) {
	utils.LogInfo("RequestTopUp called - User: %s, Method: %s, Amount: %s",
		userID, req.PaymentMethodID, utils.FormatAmount(req.Amount))

	if err := utils.ValidateAmount(req.Amount); err != nil {
		return nil, err
	}
	ref := strings.TrimSpace(req.TransactionRef)
	if ref == "" {
		return nil, utils.InvalidError(utils.CodeInvalidPayload, "transaction reference is required").
			WithFields(utils.FieldValidationError{Field: "transactionId", Message: "is required"})
	}

	db := s.db.WithContext(ctx)
	var method models.PaymentMethod
	err := db.Where("id = ? AND status = ?", req.PaymentMethodID, models.StatusActive).First(&method).Error
	if err != nil {
		if utils.IsRecordNotFound(err) {
			return nil, ErrPaymentMethod
		}
		return nil, err
	}

	wallet, err := s.ledger.WalletByUser(db, userID)
	if err != nil {
		return nil, err
	}

	topUp := &models.WalletTopUp{
		UserID:          userID,
		WalletID:        wallet.ID,
		PaymentMethodID: method.ID,
		Amount:          req.Amount,
		Status:          models.TopUpPending,
		TransactionRef:  ref,
	}
	if err := db.Create(topUp).Error; err != nil {
		utils.LogError("Failed to create top-up for user %s: %v", userID, err)
		return nil, err
	}

	topUp.PaymentMethod = &method
	utils.LogInfo("Top-up %s requested by user %s", topUp.ID, userID)
	return topUp, nil
}

// ListTopUps pages through the top-ups of userID, newest first
func (s *WalletService) ListTopUps(ctx context.Context, userID string, page utils.Pagination) ([]models.WalletTopUp, utils.PageMeta, error) {
	db := s.db.WithContext(ctx).Model(&models.WalletTopUp{}).
		Where("user_id = ?", userID).
		Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, utils.PageMeta{}, err
	}

	var topUps []models.WalletTopUp
	err := db.Preload("PaymentMethod").
		Scopes(utils.Paginate(page)).
		Order("created_at DESC").
		Find(&topUps).Error
	if err != nil {
		return nil, utils.PageMeta{}, err
	}
	return topUps, page.Meta(total), nil
}

// AdminListTopUps lists every top-up, optionally filtered by status
func (s *WalletService) AdminListTopUps(ctx context.Context, status models.TopUpStatus) ([]models.WalletTopUp, error) {
	db := s.db.WithContext(ctx).Preload("PaymentMethod")
	if status != "" {
		if !status.Valid() {
			return nil, utils.InvalidError(utils.CodeInvalidPayload, "invalid status filter").
				WithFields(utils.FieldValidationError{Field: "status", Message: "must be one of PENDING APPROVED REJECTED"})
		}
		db = db.Where("status = ?", status)
	}

	var topUps []models.WalletTopUp
	if err := db.Order("created_at DESC").Find(&topUps).Error; err != nil {
		return nil, err
	}
	return topUps, nil
}

// ApproveTopUp settles a PENDING top-up and credits its wallet. The status
// change is conditional on the row still being PENDING, so a repeated or
// concurrent approval credits at most once and reports ErrTopUpProcessed.
func (s *WalletService) ApproveTopUp(ctx context.Context, topUpID string) (*TopUpReceipt, error) {
	utils.LogInfo("ApproveTopUp called - TopUp: %s", topUpID)

	var receipt *TopUpReceipt
	err := s.ledger.InTx(ctx, func(tx *gorm.DB) error {
		topUp, err := s.pendingTopUp(tx, topUpID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.settle(tx, topUp.ID, models.TopUpApproved, "", now); err != nil {
			return err
		}

		txn, balance, err := s.ledger.CreditTx(tx, topUp.WalletID, topUp.Amount, Entry{Reference: "topup:" + topUp.ID})
		if err != nil {
			return err
		}

		topUp.Status = models.TopUpApproved
		topUp.ProcessedAt = &now
		receipt = &TopUpReceipt{TopUp: topUp, Transaction: txn, Balance: balance}
		return nil
	})
	if err != nil {
		utils.LogError("ApproveTopUp failed - TopUp: %s: %v", topUpID, err)
		return nil, err
	}

	utils.LogInfo("Top-up %s approved, wallet %s credited", topUpID, receipt.TopUp.WalletID)
	return receipt, nil
}

// RejectTopUp settles a PENDING top-up without touching the balance. The
// reason is optional and kept as the admin note.
func (s *WalletService) RejectTopUp(ctx context.Context, topUpID, reason string) (*models.WalletTopUp, error) {
	utils.LogInfo("RejectTopUp called - TopUp: %s", topUpID)

	reason = strings.TrimSpace(reason)
	if reason != "" && len(reason) < utils.MinRejectReasonLength {
		return nil, ErrRejectReason.WithFields(utils.FieldValidationError{Field: "reason", Message: "must be at least 3 characters"})
	}

	var rejected *models.WalletTopUp
	err := s.ledger.InTx(ctx, func(tx *gorm.DB) error {
		topUp, err := s.pendingTopUp(tx, topUpID)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		if err := s.settle(tx, topUp.ID, models.TopUpRejected, reason, now); err != nil {
			return err
		}

		topUp.Status = models.TopUpRejected
		topUp.AdminNote = reason
		topUp.ProcessedAt = &now
		rejected = topUp
		return nil
	})
	if err != nil {
		utils.LogError("RejectTopUp failed - TopUp: %s: %v", topUpID, err)
		return nil, err
	}

	utils.LogInfo("Top-up %s rejected", topUpID)
	return rejected, nil
}

func (s *WalletService) pendingTopUp(tx *gorm.DB, topUpID string) (*models.WalletTopUp, error) {
	var topUp models.WalletTopUp
	if err := utils.LockForUpdate(tx).Where("id = ?", topUpID).First(&topUp).Error; err != nil {
		if utils.IsRecordNotFound(err) {
			return nil, ErrTopUpNotFound
		}
		return nil, err
	}
	if topUp.Status != models.TopUpPending {
		return nil, ErrTopUpProcessed
	}
	return &topUp, nil
}

// settle moves a top-up out of PENDING. Zero affected rows means another
// caller settled it first.
func (s *WalletService) settle(tx *gorm.DB, topUpID string, status models.TopUpStatus, note string, now time.Time) error {
	updates := map[string]interface{}{
		"status":       status,
		"processed_at": now,
		"updated_at":   now,
	}
	if note != "" {
		updates["admin_note"] = note
	}
	res := tx.Model(&models.WalletTopUp{}).
		Where("id = ? AND status = ?", topUpID, models.TopUpPending).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrTopUpProcessed
	}
	return nil
}

// PaymentMethodInput carries the fields of a new payment method. It is
// active unless isActive is false.
type PaymentMethodInput struct {
	Name        string `json:"name" binding:"required,max=100"`
	Description string `json:"description"`
	IsActive    *bool  `json:"isActive"`
}

// PaymentMethodUpdate carries editable fields; nil fields are kept
type PaymentMethodUpdate struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description"`
	IsActive    *bool   `json:"isActive"`
}

func methodStatus(isActive bool) models.Status {
	if isActive {
		return models.StatusActive
	}
	return models.StatusInactive
}

// ListPaymentMethods pages through the active payment methods
func (s *WalletService) ListPaymentMethods(ctx context.Context, page utils.Pagination) ([]models.PaymentMethod, utils.PageMeta, error) {
	db := s.db.WithContext(ctx).Model(&models.PaymentMethod{}).
		Where("status = ?", models.StatusActive).
		Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, utils.PageMeta{}, err
	}

	var methods []models.PaymentMethod
	if err := db.Scopes(utils.Paginate(page)).Order("name ASC").Find(&methods).Error; err != nil {
		return nil, utils.PageMeta{}, err
	}
	return methods, page.Meta(total), nil
}

// ListAllPaymentMethods returns every payment method for admins
func (s *WalletService) ListAllPaymentMethods(ctx context.Context) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}

// CreatePaymentMethod adds a payment method, active unless stated otherwise
func (s *WalletService) CreatePaymentMethod(ctx context.Context, in PaymentMethodInput) (*models.PaymentMethod, error) {
	utils.LogInfo("CreatePaymentMethod called - Name: %s", in.Name)

	name := strings.TrimSpace(in.Name)
	if err := utils.ValidateStringLength(name, 1, 100); err != nil {
		return nil, utils.InvalidError(utils.CodeInvalidPayload, "invalid name").
			WithFields(utils.FieldValidationError{Field: "name", Message: err.Error()})
	}
	status := methodStatus(in.IsActive == nil || *in.IsActive)

	method := &models.PaymentMethod{Name: name, Description: in.Description, Status: status}
	if err := s.db.WithContext(ctx).Create(method).Error; err != nil {
		utils.LogError("Failed to create payment method %s: %v", name, err)
		return nil, err
	}
	return method, nil
}

// UpdatePaymentMethod applies the non-nil fields of in
func (s *WalletService) UpdatePaymentMethod(ctx context.Context, id string, in PaymentMethodUpdate) (*models.PaymentMethod, error) {
	utils.LogInfo("UpdatePaymentMethod called - Method: %s", id)

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := utils.ValidateStringLength(name, 1, 100); err != nil {
			return nil, utils.InvalidError(utils.CodeInvalidPayload, "invalid name").
				WithFields(utils.FieldValidationError{Field: "name", Message: err.Error()})
		}
		updates["name"] = name
	}
	if in.Description != nil {
		updates["description"] = *in.Description
	}
	if in.IsActive != nil {
		updates["status"] = methodStatus(*in.IsActive)
	}

	var method models.PaymentMethod
	err := s.ledger.InTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&method).Error; err != nil {
			if utils.IsRecordNotFound(err) {
				return ErrAdminPaymentMethod
			}
			return err
		}
		if len(updates) == 0 {
			return nil
		}
		updates["updated_at"] = s.clock.Now()
		if err := tx.Model(&method).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&method).Error
	})
	if err != nil {
		utils.LogError("UpdatePaymentMethod failed - Method: %s: %v", id, err)
		return nil, err
	}
	return &method, nil
}
