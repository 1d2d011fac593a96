package controllers

import (
	"github.com/Govind-619/MemberSphere/middleware"
	"github.com/Govind-619/MemberSphere/services"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
)

// currentActor returns the authenticated caller or answers 401
func currentActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		utils.LogError("Actor not found in context")
		utils.Unauthorized(c, "Please login for access")
		return services.Actor{}, false
	}
	return actor, true
}

// bindJSON decodes and validates the request body, answering 400 on failure
func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		utils.LogError("Invalid request body for %s: %v", c.FullPath(), err)
		utils.Fail(c, utils.InvalidPayload(err))
		return false
	}
	return true
}
