package controllers

import (
	"github.com/Govind-619/MemberSphere/services"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
)

// MembershipController serves the consumer membership endpoints
type MembershipController struct {
	membership *services.MembershipService
}

func NewMembershipController(membership *services.MembershipService) *MembershipController {
	return &MembershipController{membership: membership}
}

type subscribeRequest struct {
	PlanID    string `json:"planId" binding:"required"`
	AutoRenew *bool  `json:"autoRenew"`
}

type changePlanRequest struct {
	TargetPlanID string `json:"targetPlanId" binding:"required"`
}

// ListPlans returns the active plans a user can buy
func (ctl *MembershipController) ListPlans(c *gin.Context) {
	utils.LogInfo("ListPlans called")
	page := utils.PaginationFromQuery(c)
	plans, meta, err := ctl.membership.ListActivePlans(c.Request.Context(), page)
	if err != nil {
		utils.LogError("Failed to list plans: %v", err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, services.CodePlansListed, utils.Page{Items: plans, Meta: meta})
}

// GetSubscription returns the caller's active subscription with its plan
// and payments
func (ctl *MembershipController) GetSubscription(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	utils.LogInfo("GetSubscription called for user %s", actor.ID)

	sub, err := ctl.membership.GetSubscription(c.Request.Context(), actor.ID)
	if err != nil {
		utils.LogError("Failed to fetch subscription for user %s: %v", actor.ID, err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, services.CodeSubscriptionFetched, sub)
}

// Subscribe buys a plan from the caller's wallet
func (ctl *MembershipController) Subscribe(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req subscribeRequest
	if !bindJSON(c, &req) {
		return
	}
	utils.LogInfo("Subscribe called - User: %s, Plan: %s", actor.ID, req.PlanID)

	receipt, err := ctl.membership.Subscribe(c.Request.Context(), actor.ID, req.PlanID, services.AutoRenewOrDefault(req.AutoRenew))
	if err != nil {
		utils.LogError("Subscribe failed for user %s: %v", actor.ID, err)
		utils.Fail(c, err)
		return
	}
	utils.Created(c, services.CodeSubscribed, receipt)
}

// ChangePlan moves the caller's active subscription to another plan
func (ctl *MembershipController) ChangePlan(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req changePlanRequest
	if !bindJSON(c, &req) {
		return
	}
	utils.LogInfo("ChangePlan called - User: %s, Target plan: %s", actor.ID, req.TargetPlanID)

	receipt, err := ctl.membership.ChangePlan(c.Request.Context(), actor.ID, req.TargetPlanID, nil)
	if err != nil {
		utils.LogError("ChangePlan failed for user %s: %v", actor.ID, err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, receipt.Code(), receipt)
}

// Cancel ends the caller's active subscription
func (ctl *MembershipController) Cancel(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	utils.LogInfo("Cancel called for user %s", actor.ID)

	consumer := services.Consumer(actor.ID)
	sub, err := ctl.membership.CancelSubscription(c.Request.Context(), consumer, actor.ID)
	if err != nil {
		utils.LogError("Cancel failed for user %s: %v", actor.ID, err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, consumer.Code("membership", "subscription_canceled"), sub)
}
