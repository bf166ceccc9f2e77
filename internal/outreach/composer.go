package outreach

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"prospector_backend/internal/leads/domain"
	"prospector_backend/internal/settings"
	"prospector_backend/platform/apperr"
	"prospector_backend/platform/sanitize"
)

const (
	maxSubjectLength   = 120
	maxMessagingLength = 1000
)

// Prospect is the lead context prompts are rendered with.
type Prospect struct {
	Name          string
	Category      string
	Location      string
	WebsiteStatus domain.WebsiteStatus
	Rating        *float64
	ReviewCount   int
}

// Content is generated copy. Subject is empty for messaging content.
type Content struct {
	Subject string
	Body    string
}

type promptData struct {
	BusinessName     string
	Category         string
	Location         string
	WebsiteSituation string
	Rating           string
	ReviewCount      int
	OfferSummary     string
	SenderName       string
	SenderCompany    string
	Stage            int
	DaysSincePitch   int
}

// Composer selects the prompt for a message type, renders it and post-processes the output.
type Composer struct {
	gen Generator
}

func NewComposer(gen Generator) *Composer {
	return &Composer{gen: gen}
}

// PitchEmail generates the first email.
func (c *Composer) PitchEmail(ctx context.Context, snap *settings.Snapshot, p Prospect) (Content, error) {
	text, err := c.generate(ctx, snap, settings.PromptPitchEmail, newPromptData(snap, p, 0, 0))
	if err != nil {
		return Content{}, err
	}
	return parseEmail(text, p.Name), nil
}

// PitchMessaging generates the first WhatsApp/SMS message.
func (c *Composer) PitchMessaging(ctx context.Context, snap *settings.Snapshot, p Prospect) (Content, error) {
	text, err := c.generate(ctx, snap, settings.PromptPitchMessaging, newPromptData(snap, p, 0, 0))
	if err != nil {
		return Content{}, err
	}
	return Content{Body: cleanMessaging(text)}, nil
}

// Followup generates the email for stage 1..3 using that stage's own prompt.
func (c *Composer) Followup(ctx context.Context, snap *settings.Snapshot, p Prospect, stage, daysSincePitch int) (Content, error) {
	if stage < 1 || stage > domain.FollowupStageCount {
		return Content{}, apperr.Validation(fmt.Sprintf("follow-up stage %d out of range", stage))
	}
	text, err := c.generate(ctx, snap, settings.FollowupPromptKey(stage), newPromptData(snap, p, stage, daysSincePitch))
	if err != nil {
		return Content{}, err
	}
	return parseEmail(text, p.Name), nil
}

func (c *Composer) generate(ctx context.Context, snap *settings.Snapshot, key string, data promptData) (string, error) {
	prompt, ok := snap.Prompt(key)
	if !ok {
		return "", apperr.Configuration(fmt.Sprintf("prompt %q is not configured", key))
	}

	system, err := render(key+".system", prompt.System, data)
	if err != nil {
		return "", err
	}
	user, err := render(key+".user", prompt.User, data)
	if err != nil {
		return "", err
	}

	text, err := c.gen.Generate(ctx, system, user)
	if err != nil {
		if IsGenerationError(err) {
			return "", err
		}
		return "", &GenerationError{Provider: "generator", Reason: "upstream error", Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &GenerationError{Provider: "generator", Reason: "empty content"}
	}
	return text, nil
}

func render(name, text string, data promptData) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", apperr.Configuration(fmt.Sprintf("prompt %s: %v", name, err))
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", apperr.Configuration(fmt.Sprintf("prompt %s: %v", name, err))
	}
	return strings.TrimSpace(buf.String()), nil
}

func newPromptData(snap *settings.Snapshot, p Prospect, stage, days int) promptData {
	rating := "unknown"
	if p.Rating != nil {
		rating = fmt.Sprintf("%.1f", *p.Rating)
	}
	return promptData{
		BusinessName:     p.Name,
		Category:         p.Category,
		Location:         p.Location,
		WebsiteSituation: websiteSituation(p.WebsiteStatus),
		Rating:           rating,
		ReviewCount:      p.ReviewCount,
		OfferSummary:     snap.OfferSummary,
		SenderName:       snap.SenderName,
		SenderCompany:    snap.SenderCompany,
		Stage:            stage,
		DaysSincePitch:   days,
	}
}

func websiteSituation(status domain.WebsiteStatus) string {
	switch status {
	case domain.WebsiteDead:
		return "their website does not load"
	case domain.WebsiteParked:
		return "their domain shows a parked placeholder page"
	default:
		return "they have no website"
	}
}

// parseEmail splits a leading "Subject:" line from the body.
func parseEmail(text, businessName string) Content {
	text = stripFences(text)
	lines := strings.Split(text, "\n")

	subject := ""
	start := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if len(trimmed) > 8 && strings.EqualFold(trimmed[:8], "subject:") {
			subject = strings.TrimSpace(trimmed[8:])
			start = i + 1
		}
		break
	}
	if subject == "" {
		subject = "Een website voor " + businessName
	}

	body := strings.TrimSpace(strings.Join(lines[start:], "\n"))
	return Content{
		Subject: sanitize.Truncate(sanitize.Text(subject), maxSubjectLength),
		Body:    body,
	}
}

func cleanMessaging(text string) string {
	text = strings.TrimSpace(stripFences(text))
	text = strings.Trim(text, "\"")
	return sanitize.Truncate(strings.TrimSpace(text), maxMessagingLength)
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}
