package outreach

import (
	"context"
	"errors"
	"strings"
	"testing"

	"prospector_backend/internal/leads/domain"
	"prospector_backend/internal/settings"
	"prospector_backend/platform/apperr"
)

type recordingGenerator struct {
	system []string
	user   []string
	reply  string
	err    error
}

func (g *recordingGenerator) Generate(_ context.Context, system, user string) (string, error) {
	g.system = append(g.system, system)
	g.user = append(g.user, user)
	return g.reply, g.err
}

func defaults(t *testing.T) *settings.Snapshot {
	t.Helper()
	snap, err := settings.Defaults()
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

var bakery = Prospect{Name: "Bakkerij Jansen", Category: "bakery", Location: "Utrecht", WebsiteStatus: domain.WebsiteParked, ReviewCount: 12}

func TestPitchEmailParsesSubject(t *testing.T) {
	gen := &recordingGenerator{reply: "Subject: Jullie website\n\nHoi Bakkerij Jansen,\nkorte vraag."}
	content, err := NewComposer(gen).PitchEmail(context.Background(), defaults(t), bakery)
	if err != nil {
		t.Fatal(err)
	}
	if content.Subject != "Jullie website" {
		t.Fatalf("subject = %q", content.Subject)
	}
	if !strings.HasPrefix(content.Body, "Hoi Bakkerij Jansen") {
		t.Fatalf("body = %q", content.Body)
	}
	if !strings.Contains(gen.user[0], "Bakkerij Jansen (bakery in Utrecht)") {
		t.Fatalf("prompt not rendered: %q", gen.user[0])
	}
	if !strings.Contains(gen.user[0], "parked placeholder") {
		t.Fatalf("website situation missing: %q", gen.user[0])
	}
}

func TestPitchEmailWithoutSubjectLineGetsDefault(t *testing.T) {
	gen := &recordingGenerator{reply: "Hoi, korte vraag over jullie site."}
	content, err := NewComposer(gen).PitchEmail(context.Background(), defaults(t), bakery)
	if err != nil {
		t.Fatal(err)
	}
	if content.Subject != "Een website voor Bakkerij Jansen" || content.Body != "Hoi, korte vraag over jullie site." {
		t.Fatalf("unexpected content %+v", content)
	}
}

func TestFollowupUsesStagePrompt(t *testing.T) {
	snap := defaults(t)
	gen := &recordingGenerator{reply: "Subject: Nog even\n\nHoi"}
	composer := NewComposer(gen)

	for stage := 1; stage <= 3; stage++ {
		if _, err := composer.Followup(context.Background(), snap, bakery, stage, 3); err != nil {
			t.Fatal(err)
		}
		prompt, _ := snap.Prompt(settings.FollowupPromptKey(stage))
		if !strings.HasPrefix(gen.system[stage-1], strings.TrimSpace(prompt.System)[:20]) {
			t.Fatalf("stage %d used the wrong system prompt", stage)
		}
	}
	if !strings.Contains(gen.user[1], "follow-up 2 of 3") {
		t.Fatalf("stage number missing from prompt: %q", gen.user[1])
	}
	if !strings.Contains(gen.user[2], "last follow-up") {
		t.Fatalf("final stage prompt not used: %q", gen.user[2])
	}
}

func TestMissingPromptIsConfigurationError(t *testing.T) {
	snap := *defaults(t)
	snap.Prompts = map[string]settings.Prompt{}
	gen := &recordingGenerator{reply: "x"}

	_, err := NewComposer(gen).Followup(context.Background(), &snap, bakery, 2, 5)
	if apperr.GetKind(err) != apperr.KindConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if len(gen.user) != 0 {
		t.Fatal("generator must not be called without a prompt")
	}
}

func TestGeneratorFailureIsGenerationError(t *testing.T) {
	gen := &recordingGenerator{err: errors.New("401 unauthorized")}
	_, err := NewComposer(gen).PitchMessaging(context.Background(), defaults(t), bakery)
	if !IsGenerationError(err) {
		t.Fatalf("expected GenerationError, got %v", err)
	}

	gen = &recordingGenerator{reply: "   "}
	_, err = NewComposer(gen).PitchMessaging(context.Background(), defaults(t), bakery)
	if !IsGenerationError(err) {
		t.Fatalf("empty output should be a GenerationError, got %v", err)
	}
}

func TestCleanMessaging(t *testing.T) {
	got := cleanMessaging("```\n\"Hoi! Zin in een website?\"\n```")
	if got != "Hoi! Zin in een website?" {
		t.Fatalf("cleanMessaging = %q", got)
	}
}
