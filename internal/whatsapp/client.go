// Package whatsapp sends messages through a GOWA (go-whatsapp-web-multidevice) gateway.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"prospector_backend/platform/config"
	"prospector_backend/platform/logger"
	"prospector_backend/platform/phone"
)

// ErrInvalidNumber is returned when a phone number cannot be turned into a WhatsApp JID.
var ErrInvalidNumber = errors.New("whatsapp: invalid phone number")

type Client struct {
	baseURL  string
	username string
	password string
	deviceID string
	region   string
	http     *http.Client
	log      *logger.Logger
}

type gowaRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// StatusError is a non-2xx answer from the gateway.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("whatsapp service returned %d: %s", e.StatusCode, e.Body)
}

// NewClient returns nil when no gateway URL is configured.
func NewClient(cfg config.WhatsAppConfig, region string, log *logger.Logger) *Client {
	if cfg.GetWhatsAppURL() == "" {
		return nil
	}

	if region == "" {
		region = phone.DefaultRegion
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		username: cfg.GetWhatsAppUsername(),
		password: cfg.GetWhatsAppPassword(),
		deviceID: cfg.GetWhatsAppDeviceID(),
		region:   region,
		http:     &http.Client{Timeout: 10 * time.Second},
		log:      log,
	}
}

func (c *Client) SendMessage(ctx context.Context, phoneNumber string, message string) error {
	if c == nil {
		return errors.New("whatsapp: client not configured")
	}

	jid := phone.WhatsAppJID(phoneNumber, c.region)
	if jid == "" {
		return ErrInvalidNumber
	}

	body, err := json.Marshal(gowaRequest{Phone: jid, Message: message})
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	if err := c.do(ctx, http.MethodPost, "/send/message", bytes.NewReader(body)); err != nil {
		return err
	}

	c.log.Info("whatsapp sent via gowa", "jid", jid)
	return nil
}

// Ping checks that the gateway answers and the device session is valid.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("whatsapp: client not configured")
	}
	return c.do(ctx, http.MethodGet, "/app/devices", nil)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-Id", c.deviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	return nil
}
