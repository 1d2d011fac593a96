package routes

import (
	"github.com/Govind-619/MemberSphere/controllers"
	"github.com/Govind-619/MemberSphere/middleware"
	"github.com/gin-gonic/gin"
)

// initAdminRoutes registers the admin routes behind the admin role check
func initAdminRoutes(router *gin.RouterGroup, deps Dependencies) {
	membership := controllers.NewAdminMembershipController(deps.Membership)
	wallet := controllers.NewAdminWalletController(deps.Wallet)

	admin := router.Group("/admin")
	admin.Use(middleware.AuthMiddleware(deps.JWTSecret), middleware.AdminMiddleware())
	{
		plans := admin.Group("/membership/plans")
		{
			plans.GET("", membership.ListPlans)
			plans.POST("", membership.CreatePlan)
			plans.GET("/:id", membership.GetPlan)
			plans.PUT("/:id", membership.UpdatePlan)
			plans.DELETE("/:id", membership.DeletePlan)
		}
		admin.POST("/membership/users/:userId/cancel", membership.CancelSubscription)

		reports := admin.Group("/membership/report")
		{
			reports.GET("", membership.Report)
			reports.GET("/excel", membership.ExportReportExcel)
			reports.GET("/pdf", membership.ExportReportPDF)
		}

		methods := admin.Group("/wallet/payment-methods")
		{
			methods.GET("", wallet.ListPaymentMethods)
			methods.POST("", wallet.CreatePaymentMethod)
			methods.PUT("/:id", wallet.UpdatePaymentMethod)
		}

		topUps := admin.Group("/wallet/topups")
		{
			topUps.GET("", wallet.ListTopUps)
			topUps.POST("/:id/approve", wallet.ApproveTopUp)
			topUps.POST("/:id/reject", wallet.RejectTopUp)
		}
	}
}
