// Package webhook provides the inbound reply webhooks.
// This file defines the module that encapsulates webhook setup and route registration.
package webhook

import (
	apphttp "prospector_backend/internal/http"
	"prospector_backend/platform/httpkit"
	"prospector_backend/platform/logger"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	secret  string
	limiter *httpkit.IPRateLimiter
}

// NewModule creates and initializes the webhook module. archive may be nil.
func NewModule(router ReplyRouter, archive *PayloadArchive, secret string, log *logger.Logger) *Module {
	return &Module{
		handler: NewHandler(router, archive, log),
		secret:  secret,
		limiter: httpkit.NewWebhookRateLimiter(log),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public endpoints, authenticated by a shared secret instead of a JWT.
	group := ctx.V1.Group("/webhooks")
	group.Use(m.limiter.RateLimit(), httpkit.SharedSecret(m.secret))
	group.POST("/inbound-email", m.handler.HandleInboundEmail)
	group.POST("/inbound-sms", m.handler.HandleInboundSMS)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
