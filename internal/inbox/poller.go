// Package inbox polls the reply mailbox and hands each unseen message to the reply router.
package inbox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"

	"prospector_backend/internal/leads/domain"
	"prospector_backend/internal/replies"
	"prospector_backend/platform/logger"
	"prospector_backend/platform/sanitize"
)

const (
	defaultPollInterval = time.Minute
	contentTypeRFC822   = "message/rfc822"
)

// ReplyRouter matches a parsed inbound message to a lead.
type ReplyRouter interface {
	RouteInboundReply(ctx context.Context, in replies.Inbound) (replies.Result, error)
}

// Archiver stores the raw message source and returns its key.
type Archiver interface {
	Store(ctx context.Context, channel domain.Channel, contentType string, raw []byte) (string, error)
}

// Poller reads unseen mail on an interval.
type Poller struct {
	dial     Dialer
	router   ReplyRouter
	archive  Archiver
	interval time.Duration
	log      *logger.Logger
}

// NewPoller creates a poller. archive may be nil.
func NewPoller(dial Dialer, router ReplyRouter, archive Archiver, interval time.Duration, log *logger.Logger) *Poller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Poller{dial: dial, router: router, archive: archive, interval: interval, log: log}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.log.Info("inbox poller started", "interval", p.interval.String())
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if n, err := p.PollOnce(ctx); err != nil {
			p.log.Error("inbox poll failed", "error", err)
		} else if n > 0 {
			p.log.Info("inbox poll routed replies", "count", n)
		}

		select {
		case <-ctx.Done():
			p.log.Info("inbox poller stopped")
			return
		case <-ticker.C:
		}
	}
}

// PollOnce routes every unseen message and marks the handled ones seen.
// Messages that fail to parse are marked seen too; routing failures are retried next poll.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	box, err := p.dial()
	if err != nil {
		return 0, err
	}
	defer func() {
		if err := box.Close(); err != nil {
			p.log.Debug("inbox logout failed", "error", err)
		}
	}()

	messages, err := box.FetchUnseen()
	if err != nil {
		return 0, err
	}

	handled := make([]uint32, 0, len(messages))
	routed := 0
	for _, raw := range messages {
		if ctx.Err() != nil {
			break
		}
		in, err := ParseMessage(raw.Data)
		if err != nil {
			p.log.Warn("inbox: unparseable message skipped", "uid", raw.UID, "error", err)
			handled = append(handled, raw.UID)
			continue
		}

		if p.archive != nil {
			if key, err := p.archive.Store(ctx, domain.ChannelEmail, contentTypeRFC822, raw.Data); err != nil {
				p.log.Warn("inbox: archive raw message failed", "uid", raw.UID, "error", err)
			} else {
				in.ArchiveKey = &key
			}
		}

		res, err := p.router.RouteInboundReply(ctx, in)
		if err != nil {
			p.log.Error("inbox: route reply failed", "uid", raw.UID, "error", err)
			continue
		}
		handled = append(handled, raw.UID)
		if res.Matched {
			routed++
		}
	}

	if err := box.MarkSeen(handled); err != nil {
		return routed, fmt.Errorf("mark seen: %w", err)
	}
	return routed, nil
}

// ParseMessage extracts the sender and plain-text body from an RFC 822 message.
func ParseMessage(data []byte) (replies.Inbound, error) {
	mr, err := mail.CreateReader(bytes.NewReader(data))
	if err != nil {
		return replies.Inbound{}, fmt.Errorf("read message: %w", err)
	}

	from, err := mr.Header.AddressList("From")
	if err != nil || len(from) == 0 {
		return replies.Inbound{}, fmt.Errorf("message has no usable From header")
	}
	subject, _ := mr.Header.Subject()

	var text, html string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return replies.Inbound{}, fmt.Errorf("read part: %w", err)
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		b, err := io.ReadAll(part.Body)
		if err != nil {
			return replies.Inbound{}, fmt.Errorf("read body: %w", err)
		}
		switch {
		case strings.HasPrefix(contentType, "text/plain") && text == "":
			text = string(b)
		case strings.HasPrefix(contentType, "text/html") && html == "":
			html = string(b)
		}
	}
	if text == "" {
		text = sanitize.StripHTML(html)
	}

	body := strings.TrimSpace(text)
	if subject != "" {
		body = "Subject: " + subject + "\n\n" + body
	}
	return replies.Inbound{
		Channel:    domain.ChannelEmail,
		From:       from[0].Address,
		Body:       body,
		RawPayload: string(data),
	}, nil
}
