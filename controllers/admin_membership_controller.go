package controllers

import (
	"github.com/Govind-619/MemberSphere/services"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
)

// AdminMembershipController serves the plan catalog and subscription
// administration endpoints
type AdminMembershipController struct {
	membership *services.MembershipService
}

func NewAdminMembershipController(membership *services.MembershipService) *AdminMembershipController {
	return &AdminMembershipController{membership: membership}
}

// ListPlans returns every plan regardless of status
func (ctl *AdminMembershipController) ListPlans(c *gin.Context) {
	utils.LogInfo("Admin ListPlans called")
	plans, err := ctl.membership.ListPlans(c.Request.Context())
	if err != nil {
		utils.LogError("Failed to list plans: %v", err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, services.CodeAdminPlansListed, plans)
}

func (ctl *AdminMembershipController) GetPlan(c *gin.Context) {
	id := c.Param("id")
	utils.LogInfo("Admin GetPlan called for plan %s", id)
	plan, err := ctl.membership.GetPlan(c.Request.Context(), id)
	if err != nil {
		utils.LogError("Failed to fetch plan %s: %v", id, err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, services.CodePlanFetched, plan)
}

func (ctl *AdminMembershipController) CreatePlan(c *gin.Context) {
	utils.LogInfo("Admin CreatePlan called")
	var req services.PlanInput
	if !bindJSON(c, &req) {
		return
	}
	plan, err := ctl.membership.CreatePlan(c.Request.Context(), req)
	if err != nil {
		utils.LogError("Failed to create plan %s: %v", req.Slug, err)
		utils.Fail(c, err)
		return
	}
	utils.LogInfo("Created plan %s (%s)", plan.Slug, plan.ID)
	utils.Created(c, services.CodePlanCreated, plan)
}

func (ctl *AdminMembershipController) UpdatePlan(c *gin.Context) {
	id := c.Param("id")
	utils.LogInfo("Admin UpdatePlan called for plan %s", id)
	var req services.PlanUpdate
	if !bindJSON(c, &req) {
		return
	}
	plan, err := ctl.membership.UpdatePlan(c.Request.Context(), id, req)
	if err != nil {
		utils.LogError("Failed to update plan %s: %v", id, err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, services.CodePlanUpdated, plan)
}

func (ctl *AdminMembershipController) DeletePlan(c *gin.Context) {
	id := c.Param("id")
	utils.LogInfo("Admin DeletePlan called for plan %s", id)
	if err := ctl.membership.DeletePlan(c.Request.Context(), id); err != nil {
		utils.LogError("Failed to delete plan %s: %v", id, err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, services.CodePlanDeleted, gin.H{"id": id})
}

// CancelSubscription cancels a user's active subscription on their behalf
func (ctl *AdminMembershipController) CancelSubscription(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	userID := c.Param("userId")
	utils.LogInfo("Admin %s canceling subscription of user %s", actor.ID, userID)

	sub, err := ctl.membership.CancelSubscription(c.Request.Context(), actor, userID)
	if err != nil {
		utils.LogError("Admin cancel failed for user %s: %v", userID, err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, actor.Code("membership", "subscription_canceled"), sub)
}

// Report returns the membership report as JSON
func (ctl *AdminMembershipController) Report(c *gin.Context) {
	utils.LogInfo("Admin membership Report called")
	report, err := ctl.membership.Report(c.Request.Context())
	if err != nil {
		utils.LogError("Failed to build membership report: %v", err)
		utils.Fail(c, err)
		return
	}
	utils.Success(c, services.CodeReportGenerated, report)
}
