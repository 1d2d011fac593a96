package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Govind-619/MemberSphere/services"
	"github.com/Govind-619/MemberSphere/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
)

const actorKey = "actor"

// AuthMiddleware verifies the bearer token issued by the identity provider
// and stores the caller as a services.Actor. Tokens carry the user id in
// "sub" or "user_id" and an optional "role".
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.LogError("Missing Authorization header")
			utils.Unauthorized(c, "Please login for access")
			return
		}

		// Extract token from Bearer header
		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			utils.LogError("Invalid Bearer token format")
			utils.Unauthorized(c, "Please login for access")
			return
		}

		if secret == "" {
			utils.LogError("JWT secret not configured")
			utils.Fail(c, utils.InternalError(fmt.Errorf("jwt secret not configured")))
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			utils.LogError("Invalid token: %v", err)
			utils.Unauthorized(c, "Please login for access")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			utils.LogError("Invalid token claims")
			utils.Unauthorized(c, "Invalid token claims")
			return
		}

		actor, err := actorFromClaims(claims)
		if err != nil {
			utils.LogError("Rejected token: %v", err)
			utils.Unauthorized(c, "Invalid token claims")
			return
		}

		c.Set(actorKey, actor)
		utils.LogDebug("Authenticated %s %s", actor.Role, actor.ID)
		c.Next()
	}
}

// AdminMiddleware lets only administrators through. It must run after
// AuthMiddleware.
func AdminMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			utils.LogError("Actor not found in context")
			utils.Unauthorized(c, "Please login for access")
			return
		}
		if actor.Role != services.RoleAdmin {
			utils.LogError("Non-admin %s attempted admin access", actor.ID)
			utils.Forbidden(c, "Admin access required")
			return
		}
		c.Next()
	}
}

// ActorFrom returns the caller stored by AuthMiddleware
func ActorFrom(c *gin.Context) (services.Actor, bool) {
	v, exists := c.Get(actorKey)
	if !exists {
		return services.Actor{}, false
	}
	actor, ok := v.(services.Actor)
	return actor, ok
}

func actorFromClaims(claims jwt.MapClaims) (services.Actor, error) {
	id := claimString(claims["sub"])
	if id == "" {
		id = claimString(claims["user_id"])
	}
	if id == "" {
		return services.Actor{}, fmt.Errorf("token has no subject")
	}

	role := services.Role(strings.ToUpper(claimString(claims["role"])))
	if role == "" {
		role = services.RoleConsumer
	}
	if !role.Valid() {
		return services.Actor{}, fmt.Errorf("unknown role %q", role)
	}
	return services.Actor{Role: role, ID: id}, nil
}

// claimString accepts both string and numeric ids
func claimString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}
