package routes

import (
	"github.com/Govind-619/MemberSphere/controllers"
	"github.com/Govind-619/MemberSphere/middleware"
	"github.com/gin-gonic/gin"
)

// initUserRoutes registers the consumer membership and wallet routes
func initUserRoutes(router *gin.RouterGroup, deps Dependencies) {
	membership := controllers.NewMembershipController(deps.Membership)
	wallet := controllers.NewWalletController(deps.Wallet)

	// Plans are public
	router.GET("/membership/plans", membership.ListPlans)

	user := router.Group("")
	user.Use(middleware.AuthMiddleware(deps.JWTSecret))
	{
		user.GET("/membership", membership.GetSubscription)
		user.POST("/membership/subscribe", membership.Subscribe)
		user.POST("/membership/change-plan", membership.ChangePlan)
		user.POST("/membership/cancel", membership.Cancel)

		user.GET("/wallet", wallet.Summary)
		user.GET("/wallet/transactions", wallet.Transactions)
		user.GET("/wallet/payment-methods", wallet.PaymentMethods)
		user.POST("/wallet/topups", wallet.RequestTopUp)
		user.GET("/wallet/topups", wallet.ListTopUps)
	}
}
