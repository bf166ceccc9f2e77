package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const brevoBaseURL = "https://api.brevo.com/v3"

type BrevoSender struct {
	apiKey    string
	fromName  string
	fromEmail string
	baseURL   string
	client    *http.Client
}

type brevoContact struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

type brevoEmailRequest struct {
	Sender      brevoContact   `json:"sender"`
	To          []brevoContact `json:"to"`
	ReplyTo     *brevoContact  `json:"replyTo,omitempty"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent,omitempty"`
	TextContent string         `json:"textContent,omitempty"`
}

// StatusError is a non-2xx answer from the Brevo API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("brevo: status %d: %s", e.StatusCode, e.Body)
}

func NewBrevoSender(apiKey, fromEmail, fromName string) *BrevoSender {
	return &BrevoSender{
		apiKey:    apiKey,
		fromName:  fromName,
		fromEmail: fromEmail,
		baseURL:   brevoBaseURL,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// WithBaseURL points the sender at another API root.
func (b *BrevoSender) WithBaseURL(baseURL string) *BrevoSender {
	b.baseURL = strings.TrimRight(baseURL, "/")
	return b
}

func (b *BrevoSender) Provider() string { return "brevo" }

func (b *BrevoSender) Send(ctx context.Context, m Message) error {
	payload := brevoEmailRequest{
		Sender:      brevoContact{Name: b.fromName, Email: b.fromEmail},
		To:          []brevoContact{{Email: m.To}},
		Subject:     m.Subject,
		HTMLContent: m.HTML,
		TextContent: m.Text,
	}
	if m.ReplyTo != "" {
		payload.ReplyTo = &brevoContact{Email: m.ReplyTo}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return b.do(ctx, http.MethodPost, "/smtp/email", bytes.NewReader(body))
}

// Ping fetches the account, which fails on a revoked or wrong key.
func (b *BrevoSender) Ping(ctx context.Context) error {
	return b.do(ctx, http.MethodGet, "/account", nil)
}

func (b *BrevoSender) do(ctx context.Context, method, path string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("api-key", b.apiKey)
	req.Header.Set("accept", "application/json")
	if body != nil {
		req.Header.Set("content-type", "application/json")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	return nil
}
