package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"prospector_backend/internal/leads/domain"
	"prospector_backend/internal/replies"
	"prospector_backend/platform/httpkit"
	"prospector_backend/platform/logger"
)

const (
	maxPayloadBytes = 1 << 20
	routeTimeout    = 30 * time.Second

	errInvalidRequest = "invalid request body"
	twimlEmpty        = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`
)

// ReplyRouter matches a parsed inbound message to a lead.
type ReplyRouter interface {
	RouteInboundReply(ctx context.Context, in replies.Inbound) (replies.Result, error)
}

// Handler acknowledges inbound reply webhooks and routes them in the background.
type Handler struct {
	router  ReplyRouter
	archive *PayloadArchive
	log     *logger.Logger
	// run executes the detached routing work.
	run func(func())
}

// NewHandler creates a new webhook handler. archive may be nil.
func NewHandler(router ReplyRouter, archive *PayloadArchive, log *logger.Logger) *Handler {
	return &Handler{
		router:  router,
		archive: archive,
		log:     log,
		run:     func(fn func()) { go fn() },
	}
}

// emailPayload covers the JSON shape of common inbound-parse providers.
type emailPayload struct {
	From    string `json:"from"`
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	Body    string `json:"body"`
}

// HandleInboundEmail accepts a parsed email as JSON or form data.
// POST /api/v1/webhooks/inbound-email
func (h *Handler) HandleInboundEmail(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}
	contentType := c.ContentType()

	payload, err := parseEmailPayload(contentType, raw)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return
	}
	from := firstNonEmpty(payload.From, payload.Sender)
	if strings.TrimSpace(from) == "" {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, "missing sender")
		return
	}

	body := firstNonEmpty(payload.Text, payload.Body)
	if payload.Subject != "" {
		body = "Subject: " + payload.Subject + "\n\n" + body
	}

	h.dispatch(c, replies.Inbound{
		Channel:    domain.ChannelEmail,
		From:       from,
		Body:       body,
		RawPayload: string(raw),
	}, c.GetHeader("Content-Type"), raw)
	httpkit.OK(c, gin.H{"status": "received"})
}

// HandleInboundSMS accepts a Twilio messaging webhook.
// POST /api/v1/webhooks/inbound-sms
func (h *Handler) HandleInboundSMS(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}

	form, err := url.ParseQuery(string(raw))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, err.Error())
		return
	}
	from := form.Get("From")
	if strings.TrimSpace(from) == "" {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, "missing From")
		return
	}

	channel := domain.ChannelSMS
	if strings.HasPrefix(from, "whatsapp:") {
		channel = domain.ChannelWhatsApp
	}

	h.dispatch(c, replies.Inbound{
		Channel:    channel,
		From:       strings.TrimPrefix(from, "whatsapp:"),
		Body:       form.Get("Body"),
		RawPayload: string(raw),
	}, c.GetHeader("Content-Type"), raw)
	c.Data(http.StatusOK, "text/xml; charset=utf-8", []byte(twimlEmpty))
}

// dispatch archives and routes the reply after the response is written.
func (h *Handler) dispatch(c *gin.Context, in replies.Inbound, contentType string, raw []byte) {
	ctx := context.WithoutCancel(c.Request.Context())
	h.run(func() {
		ctx, cancel := context.WithTimeout(ctx, routeTimeout)
		defer cancel()

		if h.archive != nil {
			if key, err := h.archive.Store(ctx, in.Channel, contentType, raw); err != nil {
				h.log.Warn("webhook: archive raw payload failed", "channel", in.Channel, "error", err)
			} else {
				in.ArchiveKey = &key
			}
		}

		if _, err := h.router.RouteInboundReply(ctx, in); err != nil {
			h.log.Error("webhook: route inbound reply failed", "channel", in.Channel, "error", err)
		}
	})
}

func readBody(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPayloadBytes+1))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, errInvalidRequest, nil)
		return nil, false
	}
	if len(raw) > maxPayloadBytes {
		httpkit.Error(c, http.StatusRequestEntityTooLarge, "payload too large", nil)
		return nil, false
	}
	return raw, true
}

func parseEmailPayload(contentType string, raw []byte) (emailPayload, error) {
	var p emailPayload
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch mediaType {
	case "application/json":
		if err := json.Unmarshal(raw, &p); err != nil {
			return p, err
		}
	case "application/x-www-form-urlencoded", "":
		form, err := url.ParseQuery(string(raw))
		if err != nil {
			return p, err
		}
		p = emailPayload{
			From:    form.Get("from"),
			Sender:  form.Get("sender"),
			Subject: form.Get("subject"),
			Text:    form.Get("text"),
			Body:    form.Get("body"),
		}
	default:
		return p, fmt.Errorf("unsupported content type %q", mediaType)
	}
	return p, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
