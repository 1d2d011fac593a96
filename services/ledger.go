package services

import (
	"context"

	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry describes what a ledger movement is for
type Entry struct {
	SubscriptionID *string
	Reference      string
}

// Ledger is the only writer of Wallet.Balance. Every balance change locks
// the wallet row, computes the new balance in decimal and appends exactly
// one Transaction row in the same database transaction.
type Ledger struct {
	db *gorm.DB
}

// NewLedger creates a Ledger over db
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// InTx runs fn inside one database transaction bound to ctx
func (l *Ledger) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return l.db.WithContext(ctx).Transaction(fn)
}

// OpenWallet creates the wallet of userID with a zero balance. Calling it
// again returns the existing wallet unchanged.
func (l *Ledger) OpenWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	utils.LogInfo("OpenWallet called - User: %s", userID)

	wallet := models.Wallet{UserID: userID, Balance: decimal.Zero}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&wallet).Error
	if err != nil {
		utils.LogError("Failed to open wallet for user %s: %v", userID, err)
		return nil, err
	}

	existing, err := l.WalletByUser(l.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	utils.LogDebug("Wallet %s ready for user %s", existing.ID, userID)
	return existing, nil
}

// WalletByUser reads the wallet of userID without locking it
func (l *Ledger) WalletByUser(tx *gorm.DB, userID string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := tx.Where("user_id = ?", userID).First(&wallet).Error; err != nil {
		if utils.IsRecordNotFound(err) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// LockWalletByUser reads the wallet of userID and holds its row lock until
// tx ends
func (l *Ledger) LockWalletByUser(tx *gorm.DB, userID string) (*models.Wallet, error) {
	return l.lockWallet(tx, "user_id = ?", userID)
}

func (l *Ledger) lockWallet(tx *gorm.DB, query string, arg string) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := utils.LockForUpdate(tx).Where(query, arg).First(&wallet).Error; err != nil {
		if utils.IsRecordNotFound(err) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// Charge debits amount from the wallet in its own transaction and returns
// the new balance
func (l *Ledger) Charge(ctx context.Context, walletID string, amount decimal.Decimal, entry Entry) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.InTx(ctx, func(tx *gorm.DB) error {
		var err error
		_, balance, err = l.ChargeTx(tx, walletID, amount, entry)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// Credit adds amount to the wallet in its own transaction and returns the
// new balance
func (l *Ledger) Credit(ctx context.Context, walletID string, amount decimal.Decimal, entry Entry) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := l.InTx(ctx, func(tx *gorm.DB) error {
		var err error
		_, balance, err = l.CreditTx(tx, walletID, amount, entry)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return balance, nil
}

// ChargeTx debits amount inside tx. It fails with ErrInsufficientFunds,
// leaving no trace, when the balance is lower than amount.
func (l *Ledger) ChargeTx(tx *gorm.DB, walletID string, amount decimal.Decimal, entry Entry) (*models.Transaction, decimal.Decimal, error) {
	return l.apply(tx, walletID, amount, models.TransactionDebit, entry)
}

// CreditTx adds amount inside tx
func (l *Ledger) CreditTx(tx *gorm.DB, walletID string, amount decimal.Decimal, entry Entry) (*models.Transaction, decimal.Decimal, error) {
	return l.apply(tx, walletID, amount, models.TransactionCredit, entry)
}

func (l *Ledger) apply(tx *gorm.DB, walletID string, amount decimal.Decimal, kind models.TransactionType, entry Entry) (*models.Transaction, decimal.Decimal, error) {
	if err := utils.ValidateAmount(amount); err != nil {
		return nil, decimal.Zero, err
	}

	wallet, err := l.lockWallet(tx, "id = ?", walletID)
	if err != nil {
		return nil, decimal.Zero, err
	}

	var balance decimal.Decimal
	if kind == models.TransactionDebit {
		if wallet.Balance.LessThan(amount) {
			utils.LogDebug("Insufficient balance in wallet %s: has %s, needs %s",
				wallet.ID, utils.FormatAmount(wallet.Balance), utils.FormatAmount(amount))
			return nil, wallet.Balance, ErrInsufficientFunds
		}
		balance = wallet.Balance.Sub(amount)
	} else {
		balance = wallet.Balance.Add(amount)
	}

	err = tx.Model(&models.Wallet{}).
		Where("id = ?", wallet.ID).
		Updates(map[string]interface{}{"balance": balance, "updated_at": tx.NowFunc()}).Error
	if err != nil {
		return nil, decimal.Zero, err
	}

	txn := &models.Transaction{
		UserID:         wallet.UserID,
		WalletID:       wallet.ID,
		SubscriptionID: entry.SubscriptionID,
		Amount:         amount,
		Type:           kind,
		PaymentStatus:  models.PaymentSuccess,
		Reference:      entry.Reference,
	}
	if err := tx.Create(txn).Error; err != nil {
		return nil, decimal.Zero, err
	}

	utils.LogDebug("Ledger %s of %s on wallet %s, balance now %s",
		kind, utils.FormatAmount(amount), wallet.ID, utils.FormatAmount(balance))
	return txn, balance, nil
}

// ListTransactions pages through the ledger rows of userID, newest first
func (l *Ledger) ListTransactions(ctx context.Context, userID string, page utils.Pagination) ([]models.Transaction, utils.PageMeta, error) {
	db := l.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID).Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, utils.PageMeta{}, err
	}

	var txns []models.Transaction
	if err := db.Scopes(utils.Paginate(page)).Order("created_at DESC").Find(&txns).Error; err != nil {
		return nil, utils.PageMeta{}, err
	}
	return txns, page.Meta(total), nil
}
