package worker

import (
	"context"

	"github.com/Govind-619/MemberSphere/messaging"
	"github.com/Govind-619/MemberSphere/scheduler"
	"github.com/Govind-619/MemberSphere/services"
	"github.com/Govind-619/MemberSphere/utils"
)

// Handlers runs queue commands against the services
type Handlers struct {
	membership *services.MembershipService
	wallet     *services.WalletService
	reconciler *scheduler.Reconciler
}

// NewHandlers wires the handlers. reconciler may be nil when the sweep
// command should not be served by this worker.
func NewHandlers(membership *services.MembershipService, wallet *services.WalletService, reconciler *scheduler.Reconciler) *Handlers {
	return &Handlers{membership: membership, wallet: wallet, reconciler: reconciler}
}

// Register adds every command to router
func (h *Handlers) Register(router *messaging.Router) {
	router.Handle(CmdUserRegistered, h.userRegistered)

	router.Handle(CmdMembershipPlans, h.listActivePlans)
	router.Handle(CmdMembershipDetail, h.subscriptionDetail)
	router.Handle(CmdMembershipSubscribe, h.subscribe)
	router.Handle(CmdMembershipChangePlan, h.changePlan)
	router.Handle(CmdMembershipCancel, h.cancel)

	router.Handle(CmdAdminMembershipCancel, h.cancel)
	router.Handle(CmdAdminPlanList, h.listPlans)
	router.Handle(CmdAdminPlanDetail, h.planDetail)
	router.Handle(CmdAdminPlanCreate, h.createPlan)
	router.Handle(CmdAdminPlanUpdate, h.updatePlan)
	router.Handle(CmdAdminPlanDelete, h.deletePlan)
	router.Handle(CmdAdminMembershipReport, h.membershipReport)

	router.Handle(CmdWalletSummary, h.walletSummary)
	router.Handle(CmdWalletTransactions, h.walletTransactions)
	router.Handle(CmdWalletPaymentMethods, h.paymentMethods)
	router.Handle(CmdWalletTopUpRequest, h.requestTopUp)
	router.Handle(CmdWalletTopUpList, h.listTopUps)

	router.Handle(CmdAdminPaymentMethodCreate, h.createPaymentMethod)
	router.Handle(CmdAdminPaymentMethodUpdate, h.updatePaymentMethod)
	router.Handle(CmdAdminPaymentMethodList, h.allPaymentMethods)
	router.Handle(CmdAdminTopUpList, h.adminListTopUps)
	router.Handle(CmdAdminTopUpApprove, h.approveTopUp)
	router.Handle(CmdAdminTopUpReject, h.rejectTopUp)

	if h.reconciler != nil {
		router.Handle(CmdRenewalSweep, h.renewalSweep)
	}
}

func (h *Handlers) userRegistered(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p UserPayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	wallet, err := h.wallet.OpenWallet(ctx, p.UserID)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodeWalletOpened, Data: wallet}, nil
}

func (h *Handlers) listActivePlans(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p PagePayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	plans, meta, err := h.membership.ListActivePlans(ctx, utils.NewPagination(p.Page, p.Limit))
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodePlansListed, Data: utils.Page{Items: plans, Meta: meta}}, nil
}

func (h *Handlers) subscriptionDetail(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p UserPayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	sub, err := h.membership.GetSubscription(ctx, p.UserID)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodeSubscriptionFetched, Data: sub}, nil
}

func (h *Handlers) subscribe(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p SubscribePayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	receipt, err := h.membership.Subscribe(ctx, p.UserID, p.PlanID, services.AutoRenewOrDefault(p.AutoRenew))
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodeSubscribed, Data: receipt}, nil
}

func (h *Handlers) changePlan(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p ChangePlanPayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	receipt, err := h.membership.ChangePlan(ctx, p.UserID, p.TargetPlanID, p.AutoRenew)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: receipt.Code(), Data: receipt}, nil
}

// cancel serves both the consumer and the admin command; the payload
// decides the actor
func (h *Handlers) cancel(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p CancelPayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	actor := p.Actor()
	if d.Command == CmdAdminMembershipCancel && actor.Role != services.RoleAdmin {
		return messaging.Reply{}, utils.InvalidError(utils.CodeInvalidPayload, "invalid payload").
			WithFields(utils.FieldValidationError{Field: "adminId", Message: "is required"})
	}
	sub, err := h.membership.CancelSubscription(ctx, actor, p.UserID)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: actor.Code("membership", "subscription_canceled"), Data: sub}, nil
}

func (h *Handlers) listPlans(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	plans, err := h.membership.ListPlans(ctx)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodeAdminPlansListed, Data: plans}, nil
}

func (h *Handlers) planDetail(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p IDPayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	plan, err := h.membership.GetPlan(ctx, p.ID)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodePlanFetched, Data: plan}, nil
}

func (h *Handlers) createPlan(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p services.PlanInput
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	plan, err := h.membership.CreatePlan(ctx, p)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodePlanCreated, Data: plan}, nil
}

func (h *Handlers) updatePlan(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p PlanUpdatePayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	plan, err := h.membership.UpdatePlan(ctx, p.ID, p.PlanUpdate)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodePlanUpdated, Data: plan}, nil
}

func (h *Handlers) deletePlan(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p IDPayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	if err := h.membership.DeletePlan(ctx, p.ID); err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodePlanDeleted, Data: p}, nil
}

func (h *Handlers) membershipReport(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	report, err := h.membership.Report(ctx)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodeReportGenerated, Data: report}, nil
}

func (h *Handlers) walletSummary(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p UserPayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	summary, err := h.wallet.Summary(ctx, p.UserID)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodeWalletSummary, Data: summary}, nil
}

func (h *Handlers) walletTransactions(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p UserPagePayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	txns, meta, err := h.wallet.ListTransactions(ctx, p.UserID, utils.NewPagination(p.Page, p.Limit))
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodeTransactionsListed, Data: utils.Page{Items: txns, Meta: meta}}, nil
}

func (h *Handlers) paymentMethods(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p PagePayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	methods, meta, err := h.wallet.ListPaymentMethods(ctx, utils.NewPagination(p.Page, p.Limit))
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodePaymentMethodsListed, Data: utils.Page{Items: methods, Meta: meta}}, nil
}

func (h *Handlers) requestTopUp(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p TopUpRequestPayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	topUp, err := h.wallet.RequestTopUp(ctx, p.UserID, p.TopUpRequest)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodeTopUpRequested, Data: topUp}, nil
}

func (h *Handlers) listTopUps(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p UserPagePayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	topUps, meta, err := h.wallet.ListTopUps(ctx, p.UserID, utils.NewPagination(p.Page, p.Limit))
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodeTopUpsListed, Data: utils.Page{Items: topUps, Meta: meta}}, nil
}

func (h *Handlers) createPaymentMethod(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p services.PaymentMethodInput
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	method, err := h.wallet.CreatePaymentMethod(ctx, p)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodePaymentMethodCreated, Data: method}, nil
}

func (h *Handlers) updatePaymentMethod(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p PaymentMethodUpdatePayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	method, err := h.wallet.UpdatePaymentMethod(ctx, p.ID, p.PaymentMethodUpdate)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodePaymentMethodUpdated, Data: method}, nil
}

func (h *Handlers) allPaymentMethods(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	methods, err := h.wallet.ListAllPaymentMethods(ctx)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodeAdminPaymentMethods, Data: methods}, nil
}

func (h *Handlers) adminListTopUps(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p TopUpFilterPayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	topUps, err := h.wallet.AdminListTopUps(ctx, p.Status)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodeAdminTopUpsListed, Data: topUps}, nil
}

func (h *Handlers) approveTopUp(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p IDPayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	receipt, err := h.wallet.ApproveTopUp(ctx, p.ID)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodeTopUpApproved, Data: receipt}, nil
}

func (h *Handlers) rejectTopUp(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	var p RejectTopUpPayload
	if err := messaging.Bind(d, &p); err != nil {
		return messaging.Reply{}, err
	}
	topUp, err := h.wallet.RejectTopUp(ctx, p.ID, p.Reason)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodeTopUpRejected, Data: topUp}, nil
}

func (h *Handlers) renewalSweep(ctx context.Context, d messaging.Delivery) (messaging.Reply, error) {
	result, err := h.reconciler.Sweep(ctx)
	if err != nil {
		return messaging.Reply{}, err
	}
	return messaging.Reply{Code: services.CodeRenewalSweepCompleted, Data: result}, nil
}
