package management

import (
	"prospector_backend/internal/activity"
	"prospector_backend/internal/leads/repository"
	"prospector_backend/internal/leads/transport"
	"prospector_backend/internal/messages"
	"prospector_backend/internal/replies"
)

// ToLeadResponse converts a repository lead to its API shape.
func ToLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:            lead.ID,
		ExternalID:    lead.ExternalID,
		Name:          lead.Name,
		Category:      lead.Category,
		Location:      lead.Location,
		Address:       lead.Address,
		Email:         lead.Email,
		Phone:         lead.Phone,
		Website:       lead.Website,
		WebsiteStatus: string(lead.WebsiteStatus),
		Rating:        lead.Rating,
		ReviewCount:   lead.ReviewCount,
		HasPhotos:     lead.HasPhotos,
		Status:        string(lead.Status),
		Revenue:       lead.Revenue,
		Notes:         lead.Notes,
		ArchiveReason: lead.ArchiveReason,
		PitchedAt:     lead.PitchedAt,
		RepliedAt:     lead.RepliedAt,
		ConvertedAt:   lead.ConvertedAt,
		ArchivedAt:    lead.ArchivedAt,
		CreatedAt:     lead.CreatedAt,
		UpdatedAt:     lead.UpdatedAt,
	}
}

func toMessageResponses(items []messages.Message) []transport.MessageResponse {
	out := make([]transport.MessageResponse, 0, len(items))
	for _, m := range items {
		out = append(out, transport.MessageResponse{
			ID:          m.ID,
			Type:        string(m.Type),
			Channel:     string(m.Channel),
			Subject:     m.Subject,
			Body:        m.Body,
			Status:      string(m.Status),
			RetryCount:  m.RetryCount,
			Error:       m.Error,
			ScheduledAt: m.ScheduledAt,
			SentAt:      m.SentAt,
		})
	}
	return out
}

func toReplyResponses(items []replies.Reply) []transport.ReplyResponse {
	out := make([]transport.ReplyResponse, 0, len(items))
	for _, r := range items {
		out = append(out, transport.ReplyResponse{
			ID:          r.ID,
			Channel:     string(r.Channel),
			FromAddress: r.FromAddress,
			Body:        r.Body,
			ReceivedAt:  r.ReceivedAt,
		})
	}
	return out
}

func toActivityResponses(items []activity.Entry) []transport.ActivityResponse {
	out := make([]transport.ActivityResponse, 0, len(items))
	for _, e := range items {
		out = append(out, transport.ActivityResponse{
			Kind:      string(e.Kind),
			Message:   e.Message,
			Metadata:  e.Metadata,
			CreatedAt: e.CreatedAt,
		})
	}
	return out
}
