package phone

import "testing"

func TestMatchKey(t *testing.T) {
	cases := map[string]string{
		"+31 6 1234 5678":  "+31612345678",
		"(06) 12-34-56-78": "0612345678",
		"  +1 (555) 010 ": "+1555010",
		"":                 "",
		"+":                "",
		"tel: n/a":         "",
	}
	for in, want := range cases {
		if got := MatchKey(in); got != want {
			t.Errorf("MatchKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeE164(t *testing.T) {
	if got := NormalizeE164("06 12345678", "NL"); got != "+31612345678" {
		t.Fatalf("expected +31612345678, got %q", got)
	}
	if got := NormalizeE164("not a number", "NL"); got != "not a number" {
		t.Fatalf("expected passthrough for invalid input, got %q", got)
	}
}

func TestWhatsAppJID(t *testing.T) {
	if got := WhatsAppJID("+31 6 12345678", ""); got != "31612345678@s.whatsapp.net" {
		t.Fatalf("unexpected jid %q", got)
	}
}

func TestLookupKeyJoinsSpellings(t *testing.T) {
	national := LookupKey("06-12345678", "NL")
	international := LookupKey("+31 6 1234 5678", "NL")
	if national != "+31612345678" || national != international {
		t.Fatalf("keys differ: %q vs %q", national, international)
	}
}
