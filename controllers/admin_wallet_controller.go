package controllers

import (
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/services"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
)

// AdminWalletController serves payment method and top-up review endpoints
type AdminWalletController struct {
	wallet *services.WalletService
}

func NewAdminWalletController(wallet *services.WalletService) *AdminWalletController {
	return &AdminWalletController{wallet: wallet}
}

type rejectTopUpRequest struct {
	Reason string `json:"reason"`
}

func (ctl *AdminWalletController) ListPaymentMethods(c *gin.Context) {
	methods, err := ctl.wallet.ListAllPaymentMethods(c.Request.Context())
	if err != nil {
		utils.LogError("Failed to list payment methods: %v", err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, services.CodeAdminPaymentMethods, methods)
}

func (ctl *AdminWalletController) CreatePaymentMethod(c *gin.Context) {
	var req services.PaymentMethodInput
	if !bindJSON(c, &req) {
		return
	}
	utils.LogInfo("CreatePaymentMethod called - Name: %s", req.Name)
	method, err := ctl.wallet.CreatePaymentMethod(c.Request.Context(), req)
	if err != nil {
		utils.LogError("Failed to create payment method: %v", err)
		utils.Fail(c, err)
		return
	}
	utils.Created(c, services.CodePaymentMethodCreated, method)
}

func (ctl *AdminWalletController) UpdatePaymentMethod(c *gin.Context) {
	id := c.Param("id")
	var req services.PaymentMethodUpdate
	if !bindJSON(c, &req) {
		return
	}
	utils.LogInfo("UpdatePaymentMethod called for %s", id)
	method, err := ctl.wallet.UpdatePaymentMethod(c.Request.Context(), id, req)
	if err != nil {
		utils.LogError("Failed to update payment method %s: %v", id, err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, services.CodePaymentMethodUpdated, method)
}

// ListTopUps lists top-ups, optionally filtered by ?status=
func (ctl *AdminWalletController) ListTopUps(c *gin.Context) {
	status := models.TopUpStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		utils.LogError("Invalid top-up status filter: %s", status)
		utils.Fail(c, utils.InvalidError(utils.CodeInvalidPayload, "invalid payload").
			WithFields(utils.FieldValidationError{Field: "status", Message: "must be one of PENDING APPROVED REJECTED"}))
		return
	}
	topUps, err := ctl.wallet.AdminListTopUps(c.Request.Context(), status)
	if err != nil {
		utils.LogError("Failed to list top-ups: %v", err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, services.CodeAdminTopUpsListed, topUps)
}

// ApproveTopUp credits the wallet and settles the request
func (ctl *AdminWalletController) ApproveTopUp(c *gin.Context) {
	id := c.Param("id")
	utils.LogInfo("ApproveTopUp called for %s", id)
	receipt, err := ctl.wallet.ApproveTopUp(c.Request.Context(), id)
	if err != nil {
		utils.LogError("Failed to approve top-up %s: %v", id, err)
		utils.Fail(c, err)
		return
	}
	utils.LogInfo("Approved top-up %s, new balance %s", id, utils.FormatAmount(receipt.Balance))
	utils.Success(c, services.CodeTopUpApproved, receipt)
}

// RejectTopUp settles the request without moving money
func (ctl *AdminWalletController) RejectTopUp(c *gin.Context) {
	id := c.Param("id")
	var req rejectTopUpRequest
	// the reason is optional, so is the body
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	utils.LogInfo("RejectTopUp called for %s", id)
	topUp, err := ctl.wallet.RejectTopUp(c.Request.Context(), id, req.Reason)
	if err != nil {
		utils.LogError("Failed to reject top-up %s: %v", id, err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, services.CodeTopUpRejected, topUp)
}
