// Package worker binds queue commands to the membership, wallet and
// renewal workflows.
package worker

import (
	"github.com/Govind-619/MemberSphere/models"
	"github.com/Govind-619/MemberSphere/services"
)

// Commands consumed from the core queue
const (
	CmdUserRegistered = "core.user.registered"

	CmdMembershipPlans      = "core.membership.plans"
	CmdMembershipDetail     = "core.membership.detail"
	CmdMembershipSubscribe  = "core.membership.subscribe"
	CmdMembershipChangePlan = "core.membership.change_plan"
	CmdMembershipCancel     = "core.membership.cancel"

	CmdAdminMembershipCancel = "core.admin.membership.cancel"
	CmdAdminPlanList         = "core.admin.membership.plan.list"
	CmdAdminPlanDetail       = "core.admin.membership.plan.detail"
	CmdAdminPlanCreate       = "core.admin.membership.plan.create"
	CmdAdminPlanUpdate       = "core.admin.membership.plan.update"
	CmdAdminPlanDelete       = "core.admin.membership.plan.delete"
	CmdAdminMembershipReport = "core.admin.membership.report"

	CmdWalletSummary        = "core.wallet.summary"
	CmdWalletTransactions   = "core.wallet.transactions"
	CmdWalletPaymentMethods = "core.wallet.payment_methods"
	CmdWalletTopUpRequest   = "core.wallet.topup.request"
	CmdWalletTopUpList      = "core.wallet.topup.list"

	CmdAdminPaymentMethodCreate = "core.admin.wallet.payment_method.create"
	CmdAdminPaymentMethodUpdate = "core.admin.wallet.payment_method.update"
	CmdAdminPaymentMethodList   = "core.admin.wallet.payment_method.list"
	CmdAdminTopUpList           = "core.admin.wallet.topup.list"
	CmdAdminTopUpApprove        = "core.admin.wallet.topup.approve"
	CmdAdminTopUpReject         = "core.admin.wallet.topup.reject"

	CmdRenewalSweep = "core.scheduler.renewal_sweep"
)

// UserPayload addresses one user
type UserPayload struct {
	UserID string `json:"userId" binding:"required"`
}

// PagePayload asks for one page of a listing
type PagePayload struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// UserPagePayload asks for one page of a user's listing
type UserPagePayload struct {
	UserID string `json:"userId" binding:"required"`
	PagePayload
}

// IDPayload addresses one record
type IDPayload struct {
	ID string `json:"id" binding:"required"`
}

// SubscribePayload buys a plan. An omitted autoRenew means the
// subscription renews.
type SubscribePayload struct {
	UserID    string `json:"userId" binding:"required"`
	PlanID    string `json:"planId" binding:"required"`
	AutoRenew *bool  `json:"autoRenew"`
}

// ChangePlanPayload moves a user to another plan
type ChangePlanPayload struct {
	UserID       string `json:"userId" binding:"required"`
	TargetPlanID string `json:"targetPlanId" binding:"required"`
	AutoRenew    *bool  `json:"autoRenew"`
}

// CancelPayload ends a subscription. AdminID is set when an administrator
// cancels on the user's behalf.
type CancelPayload struct {
	UserID  string `json:"userId" binding:"required"`
	AdminID string `json:"adminId"`
}

// Actor resolves who is canceling
func (p CancelPayload) Actor() services.Actor {
	if p.AdminID != "" {
		return services.Admin(p.AdminID)
	}
	return services.Consumer(p.UserID)
}

// PlanUpdatePayload edits a plan
type PlanUpdatePayload struct {
	ID string `json:"id" binding:"required"`
	services.PlanUpdate
}

// TopUpRequestPayload submits a top-up for a user
type TopUpRequestPayload struct {
	UserID string `json:"userId" binding:"required"`
	services.TopUpRequest
}

// PaymentMethodUpdatePayload edits a payment method
type PaymentMethodUpdatePayload struct {
	ID string `json:"id" binding:"required"`
	services.PaymentMethodUpdate
}

// TopUpFilterPayload filters the admin top-up listing
type TopUpFilterPayload struct {
	Status models.TopUpStatus `json:"status" binding:"omitempty,oneof=PENDING APPROVED REJECTED"`
}

// RejectTopUpPayload rejects a top-up with a reason
type RejectTopUpPayload struct {
	ID     string `json:"id" binding:"required"`
	Reason string `json:"reason"`
}
