// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"github.com/google/uuid"

	"prospector_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Lifecycle Events
// =============================================================================

// LeadPitched is published after the initial outreach for a lead completes.
type LeadPitched struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	EmailSent    bool      `json:"emailSent"`
	MessagingVia string    `json:"messagingVia,omitempty"`
}

func (e LeadPitched) EventName() string { return "leads.pitched" }

// LeadReplied is published when an inbound reply is matched to a lead.
type LeadReplied struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	ReplyID     uuid.UUID `json:"replyId"`
	LeadName    string    `json:"leadName"`
	Channel     string    `json:"channel"`
	FromAddress string    `json:"fromAddress"`
	Body        string    `json:"body"`
	// StatusChanged is false for second and later replies on the same lead.
	StatusChanged bool `json:"statusChanged"`
}

func (e LeadReplied) EventName() string { return "leads.replied" }

// LeadConverted is published when an operator marks a lead as a customer.
type LeadConverted struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	Revenue float64   `json:"revenue"`
}

func (e LeadConverted) EventName() string { return "leads.converted" }

// LeadArchived is published when a lead leaves the pipeline without converting.
type LeadArchived struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Reason string    `json:"reason"`
}

func (e LeadArchived) EventName() string { return "leads.archived" }

// =============================================================================
// Discovery Events
// =============================================================================

// ScanCompleted is published when a discovery scan run finishes.
type ScanCompleted struct {
	BaseEvent
	ScanRunID uuid.UUID `json:"scanRunId"`
	Found     int       `json:"found"`
	Inserted  int       `json:"inserted"`
	Updated   int       `json:"updated"`
	Failed    bool      `json:"failed"`
}

func (e ScanCompleted) EventName() string { return "discovery.scan_completed" }
