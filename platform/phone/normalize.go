// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when a number carries no country prefix.
const DefaultRegion = "NL"

// NormalizeE164 formats a phone number to E.164 using region for national numbers.
// If parsing fails, it returns the trimmed input.
func NormalizeE164(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}
	if region == "" {
		region = DefaultRegion
	}

	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// MatchKey reduces a phone number to digits with an optional leading plus.
// "+31 (6) 12-34" and "+31612 34" produce the same key. Lookups compare keys exactly.
func MatchKey(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	if strings.HasPrefix(trimmed, "+") {
		b.WriteByte('+')
	}
	for _, r := range trimmed {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	key := b.String()
	if key == "+" {
		return ""
	}
	return key
}

// WhatsAppJID converts a number into the "<digits>@s.whatsapp.net" form used by the gateway.
func WhatsAppJID(input, region string) string {
	e164 := NormalizeE164(input, region)
	digits := strings.TrimPrefix(MatchKey(e164), "+")
	if digits == "" {
		return ""
	}
	return digits + "@s.whatsapp.net"
}

// LookupKey is the match key of a number after E.164 normalization, so national and
// international spellings of one number share a key. Stored and inbound numbers must both
// go through it.
func LookupKey(input, region string) string {
	return MatchKey(NormalizeE164(input, region))
}
