// Package replies matches inbound answers to leads and resolves them.
package replies

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"prospector_backend/internal/activity"
	"prospector_backend/internal/events"
	"prospector_backend/internal/leads/domain"
	"prospector_backend/internal/leads/repository"
	"prospector_backend/platform/apperr"
	"prospector_backend/platform/logger"
	"prospector_backend/platform/phone"
)

// LeadFinder looks up leads by contact address.
type LeadFinder interface {
	GetByEmail(ctx context.Context, email string) (repository.Lead, error)
	GetByPhone(ctx context.Context, matchKey string) (repository.Lead, error)
}

// ReplyStore persists matched replies.
type ReplyStore interface {
	Create(ctx context.Context, p CreateParams) (Reply, error)
}

// Resolver moves a lead to replied and cancels its pending outreach.
type Resolver interface {
	MarkReplied(ctx context.Context, leadID uuid.UUID) (repository.Lead, bool, error)
}

// AuditLog appends activity entries.
type AuditLog interface {
	Record(ctx context.Context, leadID *uuid.UUID, kind activity.Kind, message string, metadata map[string]any) error
}

// Inbound is one received message from a prospect.
type Inbound struct {
	Channel    domain.Channel
	From       string
	Body       string
	RawPayload string
	ArchiveKey *string
}

// Result reports what routing did. Matched is false when no lead owns the sender address.
type Result struct {
	Matched       bool
	LeadID        uuid.UUID
	ReplyID       uuid.UUID
	StatusChanged bool
}

type Router struct {
	leads    LeadFinder
	replies  ReplyStore
	resolver Resolver
	audit    AuditLog
	bus      events.Publisher
	region   string
	log      *logger.Logger
}

func NewRouter(leads LeadFinder, replies ReplyStore, resolver Resolver, audit AuditLog, bus events.Publisher, region string, log *logger.Logger) *Router {
	return &Router{
		leads:    leads,
		replies:  replies,
		resolver: resolver,
		audit:    audit,
		bus:      bus,
		region:   region,
		log:      log,
	}
}

// RouteInboundReply matches the sender to a lead, stores the reply and marks the lead
// replied. Every matched reply is stored; only the first one changes the lead.
func (r *Router) RouteInboundReply(ctx context.Context, in Inbound) (Result, error) {
	if !in.Channel.Valid() {
		return Result{}, apperr.Validation(fmt.Sprintf("unknown channel %q", in.Channel))
	}
	from := strings.TrimSpace(in.From)
	if from == "" {
		return Result{}, apperr.Validation("sender address is required")
	}

	lead, err := r.match(ctx, in.Channel, from)
	if errors.Is(err, repository.ErrNotFound) {
		r.log.Info("replies: no lead for sender, dropped", "channel", in.Channel, "from", from)
		return Result{}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("match reply sender: %w", err)
	}

	log := r.log.WithLead(lead.ID.String()).With("channel", in.Channel)

	reply, err := r.replies.Create(ctx, CreateParams{
		LeadID:      lead.ID,
		Channel:     in.Channel,
		FromAddress: from,
		Body:        in.Body,
		RawPayload:  in.RawPayload,
		ArchiveKey:  in.ArchiveKey,
	})
	if err != nil {
		return Result{}, err
	}

	_, changed, err := r.resolver.MarkReplied(ctx, lead.ID)
	if err != nil {
		return Result{}, fmt.Errorf("mark lead replied: %w", err)
	}
	log.Info("replies: reply routed", "replyId", reply.ID, "statusChanged", changed)

	leadID := lead.ID
	if err := r.audit.Record(context.WithoutCancel(ctx), &leadID, activity.KindReplyReceived, "Reply received via "+string(in.Channel), map[string]any{
		"replyId":       reply.ID.String(),
		"from":          from,
		"statusChanged": changed,
	}); err != nil {
		log.Warn("replies: audit record failed", "error", err)
	}

	if r.bus != nil {
		r.bus.Publish(ctx, events.LeadReplied{
			BaseEvent:     events.NewBaseEvent(),
			LeadID:        lead.ID,
			ReplyID:       reply.ID,
			LeadName:      lead.Name,
			Channel:       string(in.Channel),
			FromAddress:   from,
			Body:          in.Body,
			StatusChanged: changed,
		})
	}

	return Result{Matched: true, LeadID: lead.ID, ReplyID: reply.ID, StatusChanged: changed}, nil
}

func (r *Router) match(ctx context.Context, channel domain.Channel, from string) (repository.Lead, error) {
	if channel == domain.ChannelEmail {
		return r.leads.GetByEmail(ctx, EmailAddress(from))
	}
	key := phone.LookupKey(strings.TrimPrefix(from, "whatsapp:"), r.region)
	if key == "" {
		return repository.Lead{}, repository.ErrNotFound
	}
	return r.leads.GetByPhone(ctx, key)
}

// EmailAddress extracts the bare address from a From header such as
// "Jan Jansen <jan@example.nl>". Unparseable input is returned trimmed.
func EmailAddress(from string) string {
	from = strings.TrimSpace(from)
	if addr, err := mail.ParseAddress(from); err == nil {
		return addr.Address
	}
	return from
}
