// Package ports defines the collaborators the lead lifecycle depends on.
// Concrete implementations live in other bounded contexts and are injected at startup.
package ports

import (
	"context"

	"github.com/google/uuid"

	"prospector_backend/internal/activity"
	"prospector_backend/internal/dispatch"
	"prospector_backend/internal/leads/domain"
	"prospector_backend/internal/messages"
	"prospector_backend/internal/outreach"
	"prospector_backend/internal/settings"
)

// ContentComposer produces pitch and follow-up copy for a lead.
type ContentComposer interface {
	PitchEmail(ctx context.Context, snap *settings.Snapshot, p outreach.Prospect) (outreach.Content, error)
	PitchMessaging(ctx context.Context, snap *settings.Snapshot, p outreach.Prospect) (outreach.Content, error)
	Followup(ctx context.Context, snap *settings.Snapshot, p outreach.Prospect, stage, daysSincePitch int) (outreach.Content, error)
}

// ChannelDispatcher delivers persisted messages.
type ChannelDispatcher interface {
	Capabilities(snap *settings.Snapshot, rcpt dispatch.Recipient) dispatch.Capabilities
	SendPitch(ctx context.Context, caps dispatch.Capabilities, rcpt dispatch.Recipient, mail, messaging *dispatch.Outbound) dispatch.PitchResult
	SendEmail(ctx context.Context, rcpt dispatch.Recipient, out dispatch.Outbound) dispatch.Result
}

// MessageStore is the part of the message log the lifecycle writes.
type MessageStore interface {
	Create(ctx context.Context, p messages.CreateParams) (messages.Message, error)
	RecordDelivery(ctx context.Context, id uuid.UUID, d messages.Delivery) error
	CancelPendingForLead(ctx context.Context, leadID uuid.UUID) (int64, error)
	SentPitchChannels(ctx context.Context, leadID uuid.UUID) ([]domain.Channel, error)
}

// SettingsSource hands out the current immutable settings snapshot.
type SettingsSource interface {
	Current() *settings.Snapshot
}

// AuditLog appends activity entries.
type AuditLog interface {
	Record(ctx context.Context, leadID *uuid.UUID, kind activity.Kind, message string, metadata map[string]any) error
}
