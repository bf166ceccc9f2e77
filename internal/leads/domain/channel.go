package domain

// Channel is an outbound or inbound delivery medium.
type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	switch c {
	case ChannelEmail, ChannelWhatsApp, ChannelSMS:
		return true
	}
	return false
}

// WebsiteStatus captures why a business qualifies as a prospect.
type WebsiteStatus string

const (
	WebsiteNone   WebsiteStatus = "none"
	WebsiteDead   WebsiteStatus = "dead"
	WebsiteParked WebsiteStatus = "parked"
)

// WebsiteHealthy is only produced by the prober; healthy businesses are never stored.
const WebsiteHealthy WebsiteStatus = "healthy"

// Qualifies reports whether a business with this website status becomes a lead.
func (w WebsiteStatus) Qualifies() bool {
	return w == WebsiteNone || w == WebsiteDead || w == WebsiteParked
}

// MessageType identifies which outreach step a message belongs to.
type MessageType string

const (
	MessagePitch     MessageType = "pitch"
	MessageFollowup1 MessageType = "followup_1"
	MessageFollowup2 MessageType = "followup_2"
	MessageFollowup3 MessageType = "followup_3"
)

// FollowupMessageType maps a stage (1..3) to its message type.
func FollowupMessageType(stage int) MessageType {
	switch stage {
	case 1:
		return MessageFollowup1
	case 2:
		return MessageFollowup2
	case 3:
		return MessageFollowup3
	}
	return ""
}

// MessageStatus is the delivery state of a single message.
type MessageStatus string

const (
	MessagePending   MessageStatus = "pending"
	MessageSent      MessageStatus = "sent"
	MessageFailed    MessageStatus = "failed"
	MessageCancelled MessageStatus = "cancelled"
)
