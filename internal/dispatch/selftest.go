package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"prospector_backend/internal/leads/domain"
)

// ErrNotConfigured is returned by SelfTest for a channel without a sender.
var ErrNotConfigured = errors.New("channel not configured")

type pinger interface {
	Ping(ctx context.Context) error
}

// SelfTestResult is the outcome of a connectivity check.
type SelfTestResult struct {
	Channel   domain.Channel `json:"channel"`
	OK        bool           `json:"ok"`
	Error     string         `json:"error,omitempty"`
	LatencyMs int64          `json:"latencyMs"`
}

// SelfTest checks provider connectivity and credentials for one channel without sending.
func (d *Dispatcher) SelfTest(ctx context.Context, ch domain.Channel) SelfTestResult {
	result := SelfTestResult{Channel: ch}

	var target any
	switch ch {
	case domain.ChannelEmail:
		if d.email != nil {
			target = d.email
		}
	case domain.ChannelWhatsApp:
		target = d.whatsapp
	case domain.ChannelSMS:
		target = d.sms
	default:
		result.Error = fmt.Sprintf("unknown channel %q", ch)
		return result
	}

	p, ok := target.(pinger)
	if target == nil || !ok {
		result.Error = ErrNotConfigured.Error()
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start := time.Now()
	err := p.Ping(ctx)
	result.LatencyMs = time.Since(start).Milliseconds()
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.OK = true
	return result
}

// SelfTestAll checks every channel.
func (d *Dispatcher) SelfTestAll(ctx context.Context) []SelfTestResult {
	channels := []domain.Channel{domain.ChannelEmail, domain.ChannelWhatsApp, domain.ChannelSMS}
	results := make([]SelfTestResult, 0, len(channels))
	for _, ch := range channels {
		results = append(results, d.SelfTest(ctx, ch))
	}
	return results
}
