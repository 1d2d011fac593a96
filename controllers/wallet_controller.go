package controllers

import (
	"github.com/Govind-619/MemberSphere/services"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
)

// WalletController serves the consumer wallet endpoints
type WalletController struct {
	wallet *services.WalletService
}

func NewWalletController(wallet *services.WalletService) *WalletController {
	return &WalletController{wallet: wallet}
}

// Summary returns the caller's balance and recent top-ups
func (ctl *WalletController) Summary(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	utils.LogInfo("Wallet Summary called for user %s", actor.ID)

	summary, err := ctl.wallet.Summary(c.Request.Context(), actor.ID)
	if err != nil {
		utils.LogError("Failed to fetch wallet summary for user %s: %v", actor.ID, err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, services.CodeWalletSummary, summary)
}

// Transactions pages through the caller's ledger entries, newest first
func (ctl *WalletController) Transactions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	page := utils.PaginationFromQuery(c)
	utils.LogInfo("Wallet Transactions called - User: %s, Page: %d", actor.ID, page.Page)

	txns, meta, err := ctl.wallet.ListTransactions(c.Request.Context(), actor.ID, page)
	if err != nil {
		utils.LogError("Failed to list transactions for user %s: %v", actor.ID, err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, services.CodeTransactionsListed, utils.Page{Items: txns, Meta: meta})
}

// PaymentMethods lists the methods a top-up may reference
func (ctl *WalletController) PaymentMethods(c *gin.Context) {
	page := utils.PaginationFromQuery(c)
	methods, meta, err := ctl.wallet.ListPaymentMethods(c.Request.Context(), page)
	if err != nil {
		utils.LogError("Failed to list payment methods: %v", err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, services.CodePaymentMethodsListed, utils.Page{Items: methods, Meta: meta})
}

// RequestTopUp records an off-platform payment for admin review
func (ctl *WalletController) RequestTopUp(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req services.TopUpRequest
	if !bindJSON(c, &req) {
		return
	}
	utils.LogInfo("RequestTopUp called - User: %s, Amount: %s", actor.ID, req.Amount.String())

	topUp, err := ctl.wallet.RequestTopUp(c.Request.Context(), actor.ID, req)
	if err != nil {
		utils.LogError("Top-up request failed for user %s: %v", actor.ID, err)
		utils.Fail(c, err)
		return
	}
	utils.Created(c, services.CodeTopUpRequested, topUp)
}

// ListTopUps pages through the caller's top-up requests
func (ctl *WalletController) ListTopUps(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	page := utils.PaginationFromQuery(c)
	topUps, meta, err := ctl.wallet.ListTopUps(c.Request.Context(), actor.ID, page)
	if err != nil {
		utils.LogError("Failed to list top-ups for user %s: %v", actor.ID, err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, services.CodeTopUpsListed, utils.Page{Items: topUps, Meta: meta})
}
