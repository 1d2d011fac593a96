package services

import "github.com/Govind-619/MemberSphere/utils"

// Business failures. Each carries a stable code; errors.Is matches on it.
var (
	ErrWalletNotFound     = utils.NotFoundError("wallet.not_found", "wallet not found")
	ErrInsufficientFunds  = utils.InsufficientFundsError("wallet.insufficient_balance", "insufficient wallet balance")
	ErrPaymentMethod      = utils.InactiveError("wallet.payment_method_not_found", "payment method not found or inactive")
	ErrTopUpNotFound      = utils.NotFoundError("wallet_admin.topup_not_found", "top-up request not found")
	ErrTopUpProcessed     = utils.ConflictError("wallet_admin.topup_already_processed", "top-up request already processed")
	ErrRejectReason       = utils.InvalidError("wallet_admin.reject_reason_too_short", "a rejection reason needs at least 3 characters")
	ErrAdminPaymentMethod = utils.NotFoundError("wallet_admin.payment_method_not_found", "payment method not found")

	ErrPlanNotFound              = utils.NotFoundError("membership.plan_not_found_or_inactive", "plan not found or inactive")
	ErrActiveSubscriptionExist   = utils.ConflictError("membership.active_subscription_exists", "an active subscription already exists")
	ErrAlreadyOnPlan             = utils.ConflictError("membership.already_subscribed", "already subscribed to this plan")
	ErrNoActiveSubscription      = utils.NotFoundError("membership.active_subscription_not_found", "no active subscription")
	ErrAdminNoActiveSubscription = utils.NotFoundError("membership_admin.active_subscription_not_found", "user has no active subscription")
	ErrAdminPlanNotFound         = utils.NotFoundError("membership_admin.plan_not_found", "plan not found")
	ErrPlanSlugTaken             = utils.ConflictError("membership_admin.plan_slug_taken", "a plan with this slug already exists")
	ErrPlanInUse                 = utils.ConflictError("membership_admin.plan_in_use", "plan is referenced by subscriptions")
)

// Success codes returned alongside workflow results
const (
	CodeWalletOpened          = "wallet.opened"
	CodeWalletSummary         = "wallet.summary_fetched"
	CodeTransactionsListed    = "wallet.transactions_fetched"
	CodePaymentMethodsListed  = "wallet.payment_methods_fetched"
	CodeTopUpRequested        = "wallet.topup_requested"
	CodeTopUpsListed          = "wallet.topups_fetched"
	CodeAdminPaymentMethods   = "wallet_admin.payment_methods_fetched"
	CodePaymentMethodCreated  = "wallet_admin.payment_method_created"
	CodePaymentMethodUpdated  = "wallet_admin.payment_method_updated"
	CodeAdminTopUpsListed     = "wallet_admin.topups_fetched"
	CodeTopUpApproved         = "wallet_admin.topup_approved"
	CodeTopUpRejected         = "wallet_admin.topup_rejected"
	CodePlansListed           = "membership.plans_fetched"
	CodeSubscriptionFetched   = "membership.subscription_fetched"
	CodeSubscribed            = "membership.subscribed_successfully"
	CodePlanChanged           = "membership.plan_changed"
	CodeAdminPlansListed      = "membership_admin.plans_fetched"
	CodePlanFetched           = "membership_admin.plan_fetched"
	CodePlanCreated           = "membership_admin.plan_created"
	CodePlanUpdated           = "membership_admin.plan_updated"
	CodePlanDeleted           = "membership_admin.plan_deleted"
	CodeReportGenerated       = "membership_admin.report_generated"
	CodeRenewalSweepCompleted = "scheduler.renewal_sweep_completed"
)
