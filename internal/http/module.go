package http

import (
	"github.com/gin-gonic/gin"

	"prospector_backend/platform/config"
)

// Module is an HTTP-facing slice of the backend (leads, webhooks, settings, ...).
type Module interface {
	Name() string
	RegisterRoutes(ctx *RouterContext)
}

// RouterContext hands each module the route groups it may mount on.
//
//	V1         /api/v1, public (inbound webhooks guard themselves with a shared secret)
//	Protected  /api/v1, operator JWT required
//	Admin      /api/v1/admin, operator JWT with the admin role
type RouterContext struct {
	Engine    *gin.Engine
	V1        *gin.RouterGroup
	Protected *gin.RouterGroup
	Admin     *gin.RouterGroup

	Config         config.JWTConfig
	AuthMiddleware gin.HandlerFunc
}
