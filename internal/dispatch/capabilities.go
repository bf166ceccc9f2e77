package dispatch

import (
	"strings"

	"prospector_backend/internal/leads/domain"
	"prospector_backend/internal/settings"
)

// Capabilities is the single decision of which channels a dispatch may use. It combines
// the settings toggles, configured senders and the recipient's contact details, and is
// computed once per operation so a settings change cannot flip a channel mid-send.
type Capabilities struct {
	Email    bool
	WhatsApp bool
	SMS      bool
	// Reasons explains each unavailable channel.
	Reasons map[domain.Channel]string
}

// Messaging reports whether any messaging channel can be used.
func (c Capabilities) Messaging() bool {
	return c.WhatsApp || c.SMS
}

// PrimaryMessaging is the channel the messaging record is first tagged with.
func (c Capabilities) PrimaryMessaging() domain.Channel {
	if c.WhatsApp {
		return domain.ChannelWhatsApp
	}
	if c.SMS {
		return domain.ChannelSMS
	}
	return ""
}

// Capabilities computes channel availability for a recipient under snap.
func (d *Dispatcher) Capabilities(snap *settings.Snapshot, rcpt Recipient) Capabilities {
	caps := Capabilities{Reasons: make(map[domain.Channel]string)}
	hasEmail := strings.TrimSpace(rcpt.Email) != ""
	hasPhone := strings.TrimSpace(rcpt.Phone) != ""

	caps.Email = d.available(domain.ChannelEmail, snap, hasEmail, d.email != nil, &caps)
	caps.WhatsApp = d.available(domain.ChannelWhatsApp, snap, hasPhone, d.whatsapp != nil, &caps)
	caps.SMS = d.available(domain.ChannelSMS, snap, hasPhone, d.sms != nil, &caps)
	return caps
}

func (d *Dispatcher) available(ch domain.Channel, snap *settings.Snapshot, hasContact, configured bool, caps *Capabilities) bool {
	switch {
	case !hasContact:
		caps.Reasons[ch] = "no contact address"
	case !snap.ChannelEnabled(ch):
		caps.Reasons[ch] = "disabled in settings"
	case !configured:
		caps.Reasons[ch] = "sender not configured"
	default:
		return true
	}
	return false
}
