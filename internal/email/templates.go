package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

type baseEmailData struct {
	Title   string
	Heading string
}

type outreachEmailData struct {
	baseEmailData
	Paragraphs    []string
	SenderName    string
	SenderCompany string
}

type replyAlertEmailData struct {
	baseEmailData
	LeadName   string
	Channel    string
	From       string
	Paragraphs []string
}

// Count is one labelled number in the briefing.
type Count struct {
	Label string
	Count int
}

// BriefingData is the content of the daily operator briefing.
type BriefingData struct {
	Date     string
	Statuses []Count
	Activity []Count
}

type briefingEmailData struct {
	baseEmailData
	BriefingData
}

// RenderOutreach wraps generated plain text in the outreach layout.
func RenderOutreach(subject, body, senderName, senderCompany string) (string, error) {
	return renderEmailTemplate("outreach.html", outreachEmailData{
		baseEmailData: baseEmailData{Title: subject},
		Paragraphs:    paragraphs(body),
		SenderName:    senderName,
		SenderCompany: senderCompany,
	})
}

// RenderReplyAlert renders the operator notification for an inbound reply.
func RenderReplyAlert(leadName, channel, from, body string) (string, error) {
	return renderEmailTemplate("reply_alert.html", replyAlertEmailData{
		baseEmailData: baseEmailData{Title: "New reply", Heading: "New reply from " + leadName},
		LeadName:      leadName,
		Channel:       channel,
		From:          from,
		Paragraphs:    paragraphs(body),
	})
}

// RenderBriefing renders the daily pipeline briefing.
func RenderBriefing(data BriefingData) (string, error) {
	return renderEmailTemplate("briefing.html", briefingEmailData{
		baseEmailData: baseEmailData{Title: "Daily briefing", Heading: "Daily briefing"},
		BriefingData:  data,
	})
}

func renderEmailTemplate(name string, data any) (string, error) {
	templates := []string{"templates/base.html", "templates/" + name}
	tmpl, err := template.New("base.html").ParseFS(templateFS, templates...)
	if err != nil {
		return "", fmt.Errorf("parse email template %s: %w", name, err)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "email", data); err != nil {
		return "", fmt.Errorf("execute email template %s: %w", name, err)
	}
	return buf.String(), nil
}

// paragraphs splits text on blank lines; single newlines are folded into spaces.
func paragraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		out = append(out, strings.Join(strings.Fields(block), " "))
	}
	return out
}
