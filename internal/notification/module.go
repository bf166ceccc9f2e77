// Package notification keeps the operator informed: reply alerts by email and WhatsApp,
// the daily pipeline briefing, and the live dashboard stream.
// It subscribes to domain events so the lead lifecycle never talks to notification channels directly.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"prospector_backend/internal/activity"
	"prospector_backend/internal/email"
	"prospector_backend/internal/events"
	apphttp "prospector_backend/internal/http"
	"prospector_backend/internal/leads/domain"
	"prospector_backend/internal/notification/sse"
	"prospector_backend/internal/settings"
	"prospector_backend/platform/config"
	"prospector_backend/platform/logger"
)

const (
	briefingWindow     = 24 * time.Hour
	whatsappPreviewLen = 280
)

// WhatsAppSender sends WhatsApp messages.
type WhatsAppSender interface {
	SendMessage(ctx context.Context, phoneNumber string, message string) error
}

// StatusCounter reports the pipeline size per status.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)
}

// ActivityCounter reports audit entry counts per kind.
type ActivityCounter interface {
	CountSince(ctx context.Context, since time.Time) (map[activity.Kind]int, error)
}

// SettingsSource exposes the current runtime settings.
type SettingsSource interface {
	Current() *settings.Snapshot
}

// Deps groups the module's collaborators. Sender and WhatsApp may be nil.
type Deps struct {
	Sender   email.Sender
	WhatsApp WhatsAppSender
	Config   config.NotificationConfig
	Leads    StatusCounter
	Activity ActivityCounter
	Settings SettingsSource
	Stream   *sse.Service
	Log      *logger.Logger
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender   email.Sender
	whatsapp WhatsAppSender
	cfg      config.NotificationConfig
	leads    StatusCounter
	activity ActivityCounter
	settings SettingsSource
	stream   *sse.Service
	log      *logger.Logger
	now      func() time.Time
}

// New creates a new notification module.
func New(deps Deps) *Module {
	stream := deps.Stream
	if stream == nil {
		stream = sse.New(deps.Log)
	}
	return &Module{
		sender:   deps.Sender,
		whatsapp: deps.WhatsApp,
		cfg:      deps.Config,
		leads:    deps.Leads,
		activity: deps.Activity,
		settings: deps.Settings,
		stream:   stream,
		log:      deps.Log,
		now:      time.Now,
	}
}

func (m *Module) Name() string { return "notification" }

// RegisterRoutes mounts the live event stream for the dashboard.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/events", m.stream.Handler())
}

// Stream returns the dashboard event stream.
func (m *Module) Stream() *sse.Service { return m.stream }

// RegisterHandlers subscribes the module to the lifecycle events it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadPitched{}.EventName(), m)
	bus.Subscribe(events.LeadReplied{}.EventName(), m)
	bus.Subscribe(events.LeadConverted{}.EventName(), m)
	bus.Subscribe(events.LeadArchived{}.EventName(), m)
	bus.Subscribe(events.ScanCompleted{}.EventName(), m)
}

// Handle routes events to the appropriate notification handler.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadReplied:
		m.stream.Broadcast(sse.Event{Type: sse.EventLeadReplied, LeadID: e.LeadID, Message: e.LeadName, Data: e})
		return m.handleLeadReplied(ctx, e)
	case events.LeadPitched:
		m.stream.Broadcast(sse.Event{Type: sse.EventLeadPitched, LeadID: e.LeadID, Data: e})
	case events.LeadConverted:
		m.stream.Broadcast(sse.Event{Type: sse.EventLeadConverted, LeadID: e.LeadID, Data: e})
	case events.LeadArchived:
		m.stream.Broadcast(sse.Event{Type: sse.EventLeadArchived, LeadID: e.LeadID, Message: e.Reason})
	case events.ScanCompleted:
		m.stream.Broadcast(sse.Event{Type: sse.EventScanCompleted, Data: e})
	default:
		m.log.Warn("unhandled event type in notification module", "event", event.EventName())
	}
	return nil
}

func (m *Module) handleLeadReplied(ctx context.Context, e events.LeadReplied) error {
	var errs []error

	if to := m.cfg.GetOperatorEmail(); to != "" && m.sender != nil {
		html, err := email.RenderReplyAlert(e.LeadName, e.Channel, e.FromAddress, e.Body)
		if err != nil {
			return err
		}
		err = m.sender.Send(ctx, email.Message{
			To:      to,
			Subject: fmt.Sprintf("Reply from %s (%s)", e.LeadName, e.Channel),
			Text:    fmt.Sprintf("%s replied via %s from %s:\n\n%s", e.LeadName, e.Channel, e.FromAddress, e.Body),
			HTML:    html,
			ReplyTo: replyToFor(e),
		})
		if err != nil {
			m.log.Error("failed to send reply alert email", "leadId", e.LeadID, "error", err)
			errs = append(errs, fmt.Errorf("reply alert email: %w", err))
		}
	}

	if phone := m.cfg.GetOperatorPhone(); phone != "" && m.whatsapp != nil {
		text := fmt.Sprintf("New reply from %s via %s:\n%s", e.LeadName, e.Channel, truncate(e.Body, whatsappPreviewLen))
		if err := m.whatsapp.SendMessage(ctx, phone, text); err != nil {
			m.log.Error("failed to send reply alert whatsapp", "leadId", e.LeadID, "error", err)
			errs = append(errs, fmt.Errorf("reply alert whatsapp: %w", err))
		}
	}

	if len(errs) == 0 {
		m.log.Info("reply alert sent", "leadId", e.LeadID, "channel", e.Channel)
	}
	return errors.Join(errs...)
}

// SendDailyBriefing emails the operator a summary of the pipeline and the last day's activity.
// It matches the job signature so the worker can run it on the briefing schedule.
func (m *Module) SendDailyBriefing(ctx context.Context, _ []byte) error {
	if m.settings != nil && !m.settings.Current().BriefingEnabled {
		m.log.Info("daily briefing disabled, skipping")
		return nil
	}
	to := m.cfg.GetOperatorEmail()
	if to == "" || m.sender == nil {
		m.log.Warn("daily briefing skipped: no operator email or email provider configured")
		return nil
	}

	data, err := m.buildBriefing(ctx)
	if err != nil {
		return err
	}
	html, err := email.RenderBriefing(data)
	if err != nil {
		return err
	}

	if err := m.sender.Send(ctx, email.Message{
		To:      to,
		Subject: "Prospector briefing " + data.Date,
		Text:    briefingText(data),
		HTML:    html,
	}); err != nil {
		return fmt.Errorf("send briefing: %w", err)
	}
	m.log.Info("daily briefing sent", "date", data.Date)
	return nil
}

func (m *Module) buildBriefing(ctx context.Context) (email.BriefingData, error) {
	now := m.now()
	statusCounts, err := m.leads.CountByStatus(ctx)
	if err != nil {
		return email.BriefingData{}, fmt.Errorf("count leads: %w", err)
	}
	activityCounts, err := m.activity.CountSince(ctx, now.Add(-briefingWindow))
	if err != nil {
		return email.BriefingData{}, fmt.Errorf("count activity: %w", err)
	}

	data := email.BriefingData{Date: now.Format("2006-01-02")}
	for _, s := range domain.AllStatuses() {
		data.Statuses = append(data.Statuses, email.Count{Label: string(s), Count: statusCounts[s]})
	}
	for kind, n := range activityCounts {
		data.Activity = append(data.Activity, email.Count{Label: string(kind), Count: n})
	}
	sort.Slice(data.Activity, func(i, j int) bool { return data.Activity[i].Label < data.Activity[j].Label })
	return data, nil
}

func briefingText(data email.BriefingData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pipeline on %s\n", data.Date)
	for _, c := range data.Statuses {
		fmt.Fprintf(&b, "  %-14s %d\n", c.Label, c.Count)
	}
	b.WriteString("\nLast 24 hours\n")
	if len(data.Activity) == 0 {
		b.WriteString("  no activity\n")
	}
	for _, c := range data.Activity {
		fmt.Fprintf(&b, "  %-18s %d\n", c.Label, c.Count)
	}
	return b.String()
}

func replyToFor(e events.LeadReplied) string {
	if e.Channel == string(domain.ChannelEmail) {
		return e.FromAddress
	}
	return ""
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
