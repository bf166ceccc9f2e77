package storage

import "testing"

func TestValidateContentType(t *testing.T) {
	ok := []string{"application/json", "text/plain; charset=utf-8", "message/rfc822"}
	for _, ct := range ok {
		if err := ValidateContentType(ct); err != nil {
			t.Errorf("%q rejected: %v", ct, err)
		}
	}
	bad := []string{"image/png", "", "not a type"}
	for _, ct := range bad {
		if err := ValidateContentType(ct); err == nil {
			t.Errorf("%q accepted", ct)
		}
	}
}

func TestValidateSize(t *testing.T) {
	if err := ValidateSize(0); err == nil {
		t.Error("empty payload accepted")
	}
	if err := ValidateSize(MaxPayloadSize + 1); err == nil {
		t.Error("oversized payload accepted")
	}
	if err := ValidateSize(512); err != nil {
		t.Errorf("512 bytes rejected: %v", err)
	}
}
