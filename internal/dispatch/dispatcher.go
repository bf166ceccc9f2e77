// Package dispatch delivers generated outreach over email, WhatsApp and SMS. Email is retried
// with exponential backoff; messaging tries WhatsApp once and falls back to a single SMS.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"prospector_backend/internal/activity"
	"prospector_backend/internal/email"
	"prospector_backend/internal/leads/domain"
	"prospector_backend/internal/messages"
	"prospector_backend/platform/logger"
)

const (
	defaultEmailAttempts = 3
	defaultEmailBackoff  = 2 * time.Second
	defaultSendTimeout   = 20 * time.Second
)

type WhatsAppSender interface {
	SendMessage(ctx context.Context, phoneNumber, message string) error
}

type SMSSender interface {
	Send(ctx context.Context, to, body string) (string, error)
}

// MessageLog records message rows and their delivery outcome.
type MessageLog interface {
	Create(ctx context.Context, p messages.CreateParams) (messages.Message, error)
	RecordDelivery(ctx context.Context, id uuid.UUID, d messages.Delivery) error
}

// AuditLog appends activity entries.
type AuditLog interface {
	Record(ctx context.Context, leadID *uuid.UUID, kind activity.Kind, message string, metadata map[string]any) error
}

// Deps are the collaborators of a Dispatcher. Nil senders mark a channel as unconfigured.
type Deps struct {
	Email    email.Sender
	WhatsApp WhatsAppSender
	SMS      SMSSender
	Messages MessageLog
	Audit    AuditLog
	Log      *logger.Logger
}

// Recipient is the lead a message goes to.
type Recipient struct {
	LeadID uuid.UUID
	Email  string
	Phone  string
}

// Outbound is a persisted pending message ready to send.
type Outbound struct {
	MessageID     uuid.UUID
	Type          domain.MessageType
	Channel       domain.Channel
	Subject       string
	Body          string
	SenderName    string
	SenderCompany string
}

// Result is the final outcome on one channel.
type Result struct {
	Channel   domain.Channel
	MessageID uuid.UUID
	Status    domain.MessageStatus
	Attempts  int
	Err       error
}

// Sent reports whether delivery succeeded.
func (r *Result) Sent() bool {
	return r != nil && r.Status == domain.MessageSent
}

// PitchResult holds per-channel outcomes. A nil entry means the channel was not attempted.
type PitchResult struct {
	Email     *Result
	Messaging *Result
	// Fallback is the WhatsApp result when Messaging holds the SMS fallback outcome.
	Fallback *Result
}

type Dispatcher struct {
	email    email.Sender
	whatsapp WhatsAppSender
	sms      SMSSender
	messages MessageLog
	audit    AuditLog
	log      *logger.Logger

	emailAttempts int
	emailBackoff  time.Duration
	sendTimeout   time.Duration
	breakers      map[domain.Channel]*gobreaker.CircuitBreaker
	limiters      map[domain.Channel]*rate.Limiter
}

// Option tunes a Dispatcher.
type Option func(*Dispatcher)

// WithEmailRetry sets the total email attempts and the initial backoff.
func WithEmailRetry(attempts int, backoff time.Duration) Option {
	return func(d *Dispatcher) {
		if attempts > 0 {
			d.emailAttempts = attempts
		}
		if backoff > 0 {
			d.emailBackoff = backoff
		}
	}
}

// WithRateLimit replaces the send rate of a channel.
func WithRateLimit(ch domain.Channel, perSecond float64, burst int) Option {
	return func(d *Dispatcher) {
		d.limiters[ch] = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func New(deps Deps, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		email:         deps.Email,
		whatsapp:      deps.WhatsApp,
		sms:           deps.SMS,
		messages:      deps.Messages,
		audit:         deps.Audit,
		log:           deps.Log,
		emailAttempts: defaultEmailAttempts,
		emailBackoff:  defaultEmailBackoff,
		sendTimeout:   defaultSendTimeout,
		breakers:      make(map[domain.Channel]*gobreaker.CircuitBreaker),
		limiters: map[domain.Channel]*rate.Limiter{
			domain.ChannelEmail:    rate.NewLimiter(2, 5),
			domain.ChannelWhatsApp: rate.NewLimiter(1, 3),
			domain.ChannelSMS:      rate.NewLimiter(1, 3),
		},
	}
	for _, ch := range []domain.Channel{domain.ChannelEmail, domain.ChannelWhatsApp, domain.ChannelSMS} {
		d.breakers[ch] = newBreaker(ch)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func newBreaker(ch domain.Channel) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "dispatch-" + string(ch),
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A rejected recipient says nothing about the provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err)
		},
	})
}

// SendPitch delivers the pitch on email and messaging concurrently. Either outbound may be
// nil when the orchestrator decided that channel is not reachable.
func (d *Dispatcher) SendPitch(ctx context.Context, caps Capabilities, rcpt Recipient, mail, messaging *Outbound) PitchResult {
	var (
		result PitchResult
		g      errgroup.Group
	)

	if mail != nil && caps.Email {
		g.Go(func() error {
			r := d.SendEmail(ctx, rcpt, *mail)
			result.Email = &r
			return nil
		})
	}
	if messaging != nil && caps.Messaging() {
		g.Go(func() error {
			result.Messaging, result.Fallback = d.sendMessaging(ctx, caps, rcpt, *messaging)
			return nil
		})
	}
	_ = g.Wait()

	return result
}

// SendEmail delivers an email with bounded retries. Permanent failures stop immediately.
func (d *Dispatcher) SendEmail(ctx context.Context, rcpt Recipient, out Outbound) Result {
	result := Result{Channel: domain.ChannelEmail, MessageID: out.MessageID}
	if d.email == nil {
		result.Err = &PermanentError{Err: errors.New("email sender not configured")}
		return d.finish(ctx, rcpt, result)
	}

	if err := checkmail.ValidateFormat(rcpt.Email); err != nil {
		result.Err = &PermanentError{Err: fmt.Errorf("recipient %q: %w", rcpt.Email, err)}
		return d.finish(ctx, rcpt, result)
	}

	msg := email.Message{To: rcpt.Email, Subject: out.Subject, Text: out.Body}
	if html, err := email.RenderOutreach(out.Subject, out.Body, out.SenderName, out.SenderCompany); err == nil {
		msg.HTML = html
	} else {
		d.log.Warn("render outreach html failed, sending text only", "error", err)
	}

	backoff := retry.WithMaxRetries(uint64(d.emailAttempts-1), retry.NewExponential(d.emailBackoff))
	result.Err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		result.Attempts++
		err := d.attempt(ctx, rcpt, out, domain.ChannelEmail, result.Attempts, func(ctx context.Context) error {
			return d.email.Send(ctx, msg)
		})
		if err == nil || IsPermanent(err) || isBreakerOpen(err) {
			return err
		}
		return retry.RetryableError(err)
	})

	return d.finish(ctx, rcpt, result)
}

// sendMessaging tries the primary channel once and, only if it fails, one SMS on a new
// message row. The second return value is the primary outcome when a fallback ran.
func (d *Dispatcher) sendMessaging(ctx context.Context, caps Capabilities, rcpt Recipient, out Outbound) (*Result, *Result) {
	if out.Channel == domain.ChannelSMS {
		r := d.sendSMS(ctx, rcpt, out)
		return &r, nil
	}

	primary := Result{Channel: domain.ChannelWhatsApp, MessageID: out.MessageID, Attempts: 1}
	primary.Err = d.attempt(ctx, rcpt, out, domain.ChannelWhatsApp, 1, func(ctx context.Context) error {
		return d.whatsapp.SendMessage(ctx, rcpt.Phone, out.Body)
	})
	primary = d.finish(ctx, rcpt, primary)
	if primary.Sent() || !caps.SMS {
		return &primary, nil
	}

	d.log.WithLead(rcpt.LeadID.String()).Info("whatsapp failed, falling back to sms", "error", primary.Err)
	msg, err := d.messages.Create(ctx, messages.CreateParams{
		LeadID:  rcpt.LeadID,
		Type:    out.Type,
		Channel: domain.ChannelSMS,
		Body:    out.Body,
	})
	if err != nil {
		d.log.DatabaseError("create sms fallback message", err)
		return &primary, nil
	}

	fallbackOut := out
	fallbackOut.MessageID = msg.ID
	fallbackOut.Channel = domain.ChannelSMS
	fallback := d.sendSMS(ctx, rcpt, fallbackOut)
	return &fallback, &primary
}

func (d *Dispatcher) sendSMS(ctx context.Context, rcpt Recipient, out Outbound) Result {
	result := Result{Channel: domain.ChannelSMS, MessageID: out.MessageID, Attempts: 1}
	if d.sms == nil {
		result.Err = &PermanentError{Err: errors.New("sms sender not configured")}
		return d.finish(ctx, rcpt, result)
	}
	result.Err = d.attempt(ctx, rcpt, out, domain.ChannelSMS, 1, func(ctx context.Context) error {
		_, err := d.sms.Send(ctx, rcpt.Phone, out.Body)
		return err
	})
	return d.finish(ctx, rcpt, result)
}

// attempt runs one rate-limited, breaker-guarded send with its own timeout and audits it.
func (d *Dispatcher) attempt(ctx context.Context, rcpt Recipient, out Outbound, ch domain.Channel, n int, send func(context.Context) error) error {
	if ch == domain.ChannelWhatsApp && d.whatsapp == nil {
		return &PermanentError{Err: errors.New("whatsapp sender not configured")}
	}
	if limiter := d.limiters[ch]; limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return err
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	_, err := d.breakers[ch].Execute(func() (interface{}, error) {
		return nil, send(sendCtx)
	})

	meta := map[string]any{
		"channel":   string(ch),
		"messageId": out.MessageID.String(),
		"type":      string(out.Type),
		"attempt":   n,
		"ok":        err == nil,
	}
	summary := fmt.Sprintf("%s delivery attempt %d succeeded", ch, n)
	if err != nil {
		meta["error"] = err.Error()
		meta["permanent"] = IsPermanent(err)
		summary = fmt.Sprintf("%s delivery attempt %d failed", ch, n)
		d.log.DeliveryFailure(rcpt.LeadID.String(), string(ch), n, err)
	}
	d.record(ctx, rcpt.LeadID, activity.KindDeliveryAttempt, summary, meta)

	return err
}

// finish stores the final status of a message row.
func (d *Dispatcher) finish(ctx context.Context, rcpt Recipient, r Result) Result {
	delivery := messages.Delivery{Status: domain.MessageSent}
	if r.Attempts > 1 {
		delivery.RetryCount = r.Attempts - 1
	}
	if r.Err != nil {
		delivery.Status = domain.MessageFailed
		delivery.Error = r.Err.Error()
	}
	r.Status = delivery.Status

	if r.MessageID != uuid.Nil {
		if err := d.messages.RecordDelivery(context.WithoutCancel(ctx), r.MessageID, delivery); err != nil {
			d.log.WithLead(rcpt.LeadID.String()).Error("record delivery failed", "messageId", r.MessageID, "error", err)
		}
	}
	return r
}

func (d *Dispatcher) record(ctx context.Context, leadID uuid.UUID, kind activity.Kind, message string, meta map[string]any) {
	if d.audit == nil {
		return
	}
	if err := d.audit.Record(context.WithoutCancel(ctx), &leadID, kind, message, meta); err != nil {
		d.log.Warn("audit record failed", "kind", kind, "error", err)
	}
}
