package routes

import (
	"net/http"

	"github.com/Govind-619/MemberSphere/metrics"
	"github.com/Govind-619/MemberSphere/services"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
)

// Dependencies are the services the HTTP surface exposes. A nil Metrics
// uses the shared collectors.
type Dependencies struct {
	Membership *services.MembershipService
	Wallet     *services.WalletService
	JWTSecret  string
	CORSOrigin string
	Metrics    *metrics.Metrics
}

// SetupRouter initializes and returns the Gin router with all routes
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	if deps.Metrics == nil {
		deps.Metrics = metrics.Default()
	}

	router.Use(utils.RecoveryMiddleware())
	router.Use(utils.RequestIDMiddleware())
	router.Use(utils.LoggerMiddleware())
	router.Use(utils.CORSMiddleware(deps.CORSOrigin))
	router.Use(deps.Metrics.HTTPMiddleware())
	router.Use(utils.SecurityHeadersMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": utils.AppName})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API version group
	api := router.Group("/" + utils.APIVersion)
	{
		initUserRoutes(api, deps)
		initAdminRoutes(api, deps)
	}

	return router
}
