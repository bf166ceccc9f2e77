package dispatch

import (
	"context"

	"github.com/gin-gonic/gin"

	apphttp "prospector_backend/internal/http"
	"prospector_backend/internal/leads/domain"
	"prospector_backend/platform/httpkit"
)

// SelfTester checks channel connectivity.
type SelfTester interface {
	SelfTest(ctx context.Context, ch domain.Channel) SelfTestResult
}

// Module exposes the channel self-test to operators.
type Module struct {
	tester SelfTester
}

func NewModule(tester SelfTester) *Module {
	return &Module{tester: tester}
}

func (m *Module) Name() string { return "dispatch" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/channels/self-test", m.SelfTestAll)
}

// SelfTestAll pings every channel provider; nothing is sent.
func (m *Module) SelfTestAll(c *gin.Context) {
	channels := []domain.Channel{domain.ChannelEmail, domain.ChannelWhatsApp, domain.ChannelSMS}
	results := make([]SelfTestResult, 0, len(channels))
	for _, ch := range channels {
		results = append(results, m.tester.SelfTest(c.Request.Context(), ch))
	}
	httpkit.OK(c, gin.H{"channels": results})
}

var _ apphttp.Module = (*Module)(nil)
