package sanitize

import "testing"

func TestStripHTML(t *testing.T) {
	in := "<p>Hallo,</p><p>Ja graag &amp; snel</p><br>&lt;script&gt;x&lt;/script&gt;"
	got := StripHTML(in)
	want := "Hallo,\nJa graag & snel\n\nx"
	if got != want {
		t.Fatalf("StripHTML() = %q, want %q", got, want)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc…" {
		t.Fatalf("unexpected %q", got)
	}
	if got := Truncate("abc", 3); got != "abc" {
		t.Fatalf("unexpected %q", got)
	}
}
