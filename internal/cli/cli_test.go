package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestSettingValue(t *testing.T) {
	cases := map[string]string{
		"true":      "true",
		"25":        "25",
		"[3,7,14]":  "[3,7,14]",
		`"Acme"`:    `"Acme"`,
		"Acme Web":  `"Acme Web"`,
		"not{json}": `"not{json}"`,
	}
	for in, want := range cases {
		if got := string(settingValue(in)); got != want {
			t.Errorf("settingValue(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()
	want := []string{"migrate", "pitch", "pitch-batch", "scan", "selftest", "settings"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd == root {
			t.Errorf("expected subcommand %q", name)
		}
	}
}

func TestPitchRejectsInvalidLeadID(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"pitch", "not-a-uuid"})

	err := root.Execute()
	if err == nil || !strings.Contains(err.Error(), "invalid lead id") {
		t.Fatalf("expected invalid lead id error, got %v", err)
	}
}

func TestMigrateRejectsUnknownAction(t *testing.T) {
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"migrate", "down"})

	if err := root.Execute(); err == nil {
		t.Fatal("expected error for unsupported migrate action")
	}
}
