// Package sms sends text messages through the Twilio REST API.
package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"prospector_backend/platform/config"
	"prospector_backend/platform/logger"
	"prospector_backend/platform/phone"
)

const twilioBaseURL = "https://api.twilio.com/2010-04-01"

// ErrInvalidNumber is returned when the recipient cannot be formatted as E.164.
var ErrInvalidNumber = errors.New("sms: invalid phone number")

type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	from       string
	region     string
	http       *http.Client
	log        *logger.Logger
}

// APIError is an error answer from Twilio. Code is Twilio's own error code.
type APIError struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twilio returned %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}

type sendResponse struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

// NewClient returns nil when Twilio credentials are incomplete.
func NewClient(cfg config.SMSConfig, region string, log *logger.Logger) *Client {
	if !cfg.IsSMSEnabled() {
		return nil
	}
	if region == "" {
		region = phone.DefaultRegion
	}
	return &Client{
		baseURL:    twilioBaseURL,
		accountSID: cfg.GetTwilioAccountSID(),
		authToken:  cfg.GetTwilioAuthToken(),
		from:       cfg.GetTwilioFromNumber(),
		region:     region,
		http:       &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// WithBaseURL points the client at another API root.
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// Send delivers body to the recipient and returns the Twilio message SID.
func (c *Client) Send(ctx context.Context, to, body string) (string, error) {
	if c == nil {
		return "", errors.New("sms: client not configured")
	}

	e164 := phone.NormalizeE164(to, c.region)
	if !strings.HasPrefix(e164, "+") {
		return "", ErrInvalidNumber
	}

	form := url.Values{}
	form.Set("To", e164)
	form.Set("From", c.from)
	form.Set("Body", body)

	var out sendResponse
	path := fmt.Sprintf("/Accounts/%s/Messages.json", url.PathEscape(c.accountSID))
	if err := c.do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()), &out); err != nil {
		return "", err
	}

	c.log.Info("sms sent via twilio", "sid", out.SID, "status", out.Status)
	return out.SID, nil
}

// Ping fetches the account resource to validate credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("sms: client not configured")
	}
	path := fmt.Sprintf("/Accounts/%s.json", url.PathEscape(c.accountSID))
	return c.do(ctx, http.MethodGet, path, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode twilio response: %w", err)
		}
	}
	return nil
}
