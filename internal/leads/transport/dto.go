// Package transport holds the request and response shapes of the leads API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// ListLeadsRequest filters the lead list.
type ListLeadsRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=new pitched followed_up_1 followed_up_2 followed_up_3 replied archived converted"`
	Search   string `form:"search" validate:"max=100"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=200"`
}

// ConvertLeadRequest records a won lead.
type ConvertLeadRequest struct {
	Revenue float64 `json:"revenue" validate:"gte=0"`
}

// ArchiveLeadRequest takes a lead out of the pipeline.
type ArchiveLeadRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// UpdateNotesRequest replaces the operator notes of a lead.
type UpdateNotesRequest struct {
	Notes string `json:"notes" validate:"max=10000"`
}

// PitchBatchRequest enqueues pitches for new leads. Size 0 uses the configured batch size.
type PitchBatchRequest struct {
	Size int `json:"size" validate:"min=0,max=200"`
}

type LeadResponse struct {
	ID            uuid.UUID  `json:"id"`
	ExternalID    string     `json:"externalId"`
	Name          string     `json:"name"`
	Category      string     `json:"category"`
	Location      string     `json:"location"`
	Address       string     `json:"address"`
	Email         *string    `json:"email,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	Website       *string    `json:"website,omitempty"`
	WebsiteStatus string     `json:"websiteStatus"`
	Rating        *float64   `json:"rating,omitempty"`
	ReviewCount   int        `json:"reviewCount"`
	HasPhotos     bool       `json:"hasPhotos"`
	Status        string     `json:"status"`
	Revenue       *float64   `json:"revenue,omitempty"`
	Notes         string     `json:"notes"`
	ArchiveReason *string    `json:"archiveReason,omitempty"`
	PitchedAt     *time.Time `json:"pitchedAt,omitempty"`
	RepliedAt     *time.Time `json:"repliedAt,omitempty"`
	ConvertedAt   *time.Time `json:"convertedAt,omitempty"`
	ArchivedAt    *time.Time `json:"archivedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type MessageResponse struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Channel     string     `json:"channel"`
	Subject     *string    `json:"subject,omitempty"`
	Body        string     `json:"body"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retryCount"`
	Error       *string    `json:"error,omitempty"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	SentAt      *time.Time `json:"sentAt,omitempty"`
}

type ReplyResponse struct {
	ID          uuid.UUID `json:"id"`
	Channel     string    `json:"channel"`
	FromAddress string    `json:"fromAddress"`
	Body        string    `json:"body"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

type ActivityResponse struct {
	Kind      string         `json:"kind"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// LeadDetailResponse is a lead with its full outreach history.
type LeadDetailResponse struct {
	Lead     LeadResponse       `json:"lead"`
	Messages []MessageResponse  `json:"messages"`
	Replies  []ReplyResponse    `json:"replies"`
	Activity []ActivityResponse `json:"activity"`
}

// PitchResponse reports a manual pitch.
type PitchResponse struct {
	Outcome            string `json:"outcome"`
	Status             string `json:"status"`
	EmailStatus        string `json:"emailStatus,omitempty"`
	MessagingStatus    string `json:"messagingStatus,omitempty"`
	MessagingChannel   string `json:"messagingChannel,omitempty"`
	FollowupsScheduled int    `json:"followupsScheduled"`
}

type PitchBatchResponse struct {
	Scheduled int `json:"scheduled"`
}

type PipelineCountsResponse struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}
