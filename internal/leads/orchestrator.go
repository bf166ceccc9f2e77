package leads

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"prospector_backend/internal/activity"
	"prospector_backend/internal/dispatch"
	"prospector_backend/internal/events"
	"prospector_backend/internal/leads/domain"
	"prospector_backend/internal/leads/ports"
	"prospector_backend/internal/leads/repository"
	"prospector_backend/internal/messages"
	"prospector_backend/internal/outreach"
	"prospector_backend/internal/scheduler"
	"prospector_backend/internal/settings"
	"prospector_backend/platform/apperr"
	"prospector_backend/platform/logger"
)

// ArchiveReasonNoReply is recorded when the grace period after the last follow-up ends.
const ArchiveReasonNoReply = "no reply after full sequence"

// staleClaimAge is how long a pitch claim blocks other pitch attempts.
const staleClaimAge = 15 * time.Minute

// LeadStore is the part of the lead store the orchestrator uses.
type LeadStore interface {
	repository.LeadReader
	repository.LifecycleWriter
	repository.PitchQueueReader
}

// Outcome tells callers what an orchestrator operation did.
type Outcome string

const (
	OutcomeDone             Outcome = "done"
	OutcomeAlreadyProcessed Outcome = "already_processed"
	OutcomeAlreadyResolved  Outcome = "already_resolved"
	OutcomeDisabled         Outcome = "disabled"
	OutcomeNotReady         Outcome = "not_ready"
	OutcomeInFlight         Outcome = "in_flight"
)

// PitchResult summarizes PitchLead.
type PitchResult struct {
	Outcome            Outcome
	Lead               repository.Lead
	Email              *dispatch.Result
	Messaging          *dispatch.Result
	FollowupsScheduled int
}

// FollowupResult summarizes RunFollowup.
type FollowupResult struct {
	Outcome Outcome
	Stage   int
	Status  domain.Status
	Sent    bool
}

// CancelResult summarizes CancelPendingForLead.
type CancelResult struct {
	TasksCancelled    int
	MessagesCancelled int64
}

// OrchestratorDeps are the collaborators of the lifecycle state machine.
type OrchestratorDeps struct {
	Leads     LeadStore
	Messages  ports.MessageStore
	Composer  ports.ContentComposer
	Dispatch  ports.ChannelDispatcher
	Scheduler scheduler.Scheduler
	Settings  ports.SettingsSource
	Audit     ports.AuditLog
	Bus       events.Publisher
	Log       *logger.Logger
	Now       func() time.Time
}

// Orchestrator drives each lead through pitch, three follow-ups and archival, and
// resolves leads on reply, conversion or manual archive.
type Orchestrator struct {
	leads     LeadStore
	messages  ports.MessageStore
	composer  ports.ContentComposer
	dispatch  ports.ChannelDispatcher
	scheduler scheduler.Scheduler
	settings  ports.SettingsSource
	audit     ports.AuditLog
	bus       events.Publisher
	log       *logger.Logger
	now       func() time.Time

	// In-process guard against concurrent runs of the same step for one lead.
	activeRuns map[string]bool
	runsMu     sync.Mutex
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		leads:      deps.Leads,
		messages:   deps.Messages,
		composer:   deps.Composer,
		dispatch:   deps.Dispatch,
		scheduler:  deps.Scheduler,
		settings:   deps.Settings,
		audit:      deps.Audit,
		bus:        deps.Bus,
		log:        deps.Log,
		now:        now,
		activeRuns: make(map[string]bool),
	}
}

// markRunning attempts to mark a step as active. Returns false if it is already running.
func (o *Orchestrator) markRunning(step string, leadID uuid.UUID) bool {
	o.runsMu.Lock()
	defer o.runsMu.Unlock()

	key := step + ":" + leadID.String()
	if o.activeRuns[key] {
		return false
	}
	o.activeRuns[key] = true
	return true
}

func (o *Orchestrator) markComplete(step string, leadID uuid.UUID) {
	o.runsMu.Lock()
	defer o.runsMu.Unlock()
	delete(o.activeRuns, step+":"+leadID.String())
}

// PitchLead sends the first outreach to a new lead. Calling it for a lead that is not new,
// or that another worker is pitching, is a no-op reported as OutcomeAlreadyProcessed.
func (o *Orchestrator) PitchLead(ctx context.Context, leadID uuid.UUID) (PitchResult, error) {
	return o.pitch(ctx, leadID, false)
}

func (o *Orchestrator) pitch(ctx context.Context, leadID uuid.UUID, resume bool) (PitchResult, error) {
	log := o.log.WithLead(leadID.String())
	snap := o.settings.Current()

	if !o.markRunning("pitch", leadID) {
		log.Info("orchestrator: pitch already running for lead, skipping")
		return PitchResult{Outcome: OutcomeInFlight}, nil
	}
	defer o.markComplete("pitch", leadID)

	lead, claimed, err := o.leads.ClaimPitch(ctx, leadID, o.now().Add(-staleClaimAge))
	if err != nil {
		return PitchResult{}, o.lookupError(err, leadID)
	}
	if !claimed {
		if lead.Status == domain.StatusNew && lead.PitchClaimedAt != nil {
			return o.completeDeliveredPitch(ctx, snap, lead)
		}
		result := PitchResult{Outcome: OutcomeAlreadyProcessed, Lead: lead}
		if resume && lead.Status == domain.StatusPitched {
			result.FollowupsScheduled, err = o.scheduleFollowups(ctx, snap, lead)
			if err != nil {
				return result, err
			}
		}
		log.Debug("orchestrator: pitch skipped", "status", lead.Status)
		return result, nil
	}

	prospect := toProspect(lead)
	rcpt := toRecipient(lead)
	caps := o.dispatch.Capabilities(snap, rcpt)

	// Email is the primary channel: without its content the pitch does not happen.
	var mailContent outreach.Content
	if caps.Email {
		mailContent, err = o.composer.PitchEmail(ctx, snap, prospect)
		if err != nil {
			o.releaseClaim(ctx, leadID)
			o.record(ctx, leadID, activity.KindPitchFailed, "Pitch generation failed", map[string]any{"error": err.Error()})
			return PitchResult{}, fmt.Errorf("generate pitch email: %w", err)
		}
	}

	var messagingContent *outreach.Content
	if caps.Messaging() {
		content, err := o.composer.PitchMessaging(ctx, snap, prospect)
		if err != nil {
			log.Warn("orchestrator: messaging pitch generation failed, continuing with email only", "error", err)
		} else {
			messagingContent = &content
		}
	}

	// A reply or manual action may have resolved the lead while content was generated.
	if current, resolved := o.resolvedDuringPitch(ctx, leadID); resolved {
		log.Info("orchestrator: lead resolved during pitch, not sending", "status", current.Status)
		return PitchResult{Outcome: OutcomeAlreadyResolved, Lead: current}, nil
	}

	mail, messaging, err := o.persistPitch(ctx, snap, lead, caps, mailContent, messagingContent)
	if err != nil {
		o.releaseClaim(ctx, leadID)
		return PitchResult{}, err
	}
	o.record(ctx, leadID, activity.KindPitchGenerated, "Pitch generated", map[string]any{
		"email":     mail != nil,
		"messaging": messaging != nil,
		"reasons":   caps.Reasons,
	})

	// The resolution may also land between the check above and the message insert, after
	// CancelPendingForLead already ran.
	if current, resolved := o.resolvedDuringPitch(ctx, leadID); resolved {
		if _, err := o.messages.CancelPendingForLead(context.WithoutCancel(ctx), leadID); err != nil {
			log.Error("orchestrator: cancel pitch messages of resolved lead failed", "error", err)
		}
		log.Info("orchestrator: lead resolved during pitch, not sending", "status", current.Status)
		return PitchResult{Outcome: OutcomeAlreadyResolved, Lead: current}, nil
	}

	delivery := o.dispatch.SendPitch(ctx, caps, rcpt, mail, messaging)
	result := PitchResult{Outcome: OutcomeDone, Email: delivery.Email, Messaging: delivery.Messaging}
	o.recordPitchOutcome(ctx, leadID, delivery)

	// Delivery failures do not stop the lifecycle; the lead stays a viable prospect.
	return o.finishPitch(ctx, snap, leadID, result, delivery.Email.Sent(), sentChannel(delivery.Messaging))
}

// completeDeliveredPitch finishes a pitch whose delivery succeeded but whose status update
// did not, so a retried task schedules the follow-ups instead of leaving the lead in new.
// A claim without a delivered pitch belongs to a run still in flight and is left alone.
func (o *Orchestrator) completeDeliveredPitch(ctx context.Context, snap *settings.Snapshot, lead repository.Lead) (PitchResult, error) {
	result := PitchResult{Outcome: OutcomeAlreadyProcessed, Lead: lead}
	channels, err := o.messages.SentPitchChannels(ctx, lead.ID)
	if err != nil {
		return result, err
	}
	if len(channels) == 0 {
		o.log.WithLead(lead.ID.String()).Debug("orchestrator: pitch claimed by another run, skipping")
		return result, nil
	}

	var (
		emailSent    bool
		messagingVia string
	)
	for _, ch := range channels {
		if ch == domain.ChannelEmail {
			emailSent = true
		} else {
			messagingVia = string(ch)
		}
	}
	o.log.WithLead(lead.ID.String()).Info("orchestrator: completing delivered pitch", "channels", channels)
	return o.finishPitch(ctx, snap, lead.ID, result, emailSent, messagingVia)
}

// finishPitch moves the lead to pitched and schedules its follow-ups.
func (o *Orchestrator) finishPitch(ctx context.Context, snap *settings.Snapshot, leadID uuid.UUID, result PitchResult, emailSent bool, messagingVia string) (PitchResult, error) {
	updated, changed, err := o.leads.Transition(context.WithoutCancel(ctx), leadID, []domain.Status{domain.StatusNew}, domain.StatusPitched, repository.TransitionOptions{})
	if err != nil {
		return result, fmt.Errorf("mark lead pitched: %w", err)
	}
	result.Lead = updated
	if !changed {
		o.log.WithLead(leadID.String()).Info("orchestrator: lead left new during pitch, no follow-ups scheduled", "status", updated.Status)
		return result, nil
	}

	result.FollowupsScheduled, err = o.scheduleFollowups(ctx, snap, updated)
	o.publish(ctx, events.LeadPitched{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       leadID,
		EmailSent:    emailSent,
		MessagingVia: messagingVia,
	})
	return result, err
}

func (o *Orchestrator) resolvedDuringPitch(ctx context.Context, leadID uuid.UUID) (repository.Lead, bool) {
	current, err := o.leads.GetByID(ctx, leadID)
	if err != nil || !current.Status.IsTerminal() {
		return repository.Lead{}, false
	}
	return current, true
}

func (o *Orchestrator) persistPitch(ctx context.Context, snap *settings.Snapshot, lead repository.Lead, caps dispatch.Capabilities, mailContent outreach.Content, messagingContent *outreach.Content) (*dispatch.Outbound, *dispatch.Outbound, error) {
	var mail, messaging *dispatch.Outbound

	if caps.Email {
		subject := mailContent.Subject
		msg, err := o.messages.Create(ctx, messages.CreateParams{
			LeadID:  lead.ID,
			Type:    domain.MessagePitch,
			Channel: domain.ChannelEmail,
			Subject: &subject,
			Body:    mailContent.Body,
		})
		if err != nil {
			return nil, nil, err
		}
		mail = outbound(snap, msg, mailContent)
	}

	if messagingContent != nil {
		msg, err := o.messages.Create(ctx, messages.CreateParams{
			LeadID:  lead.ID,
			Type:    domain.MessagePitch,
			Channel: caps.PrimaryMessaging(),
			Body:    messagingContent.Body,
		})
		if err != nil {
			return nil, nil, err
		}
		messaging = outbound(snap, msg, *messagingContent)
	}

	return mail, messaging, nil
}

// scheduleFollowups registers the three follow-up stages. Offsets count from PitchedAt,
// not CreatedAt. An already scheduled stage counts as scheduled.
func (o *Orchestrator) scheduleFollowups(ctx context.Context, snap *settings.Snapshot, lead repository.Lead) (int, error) {
	if !snap.FollowupEnabled {
		o.log.WithLead(lead.ID.String()).Info("orchestrator: automated follow-up disabled, none scheduled")
		return 0, nil
	}

	start := o.now()
	if lead.PitchedAt != nil && lead.PitchedAt.Before(start) {
		start = *lead.PitchedAt
	}
	elapsed := o.now().Sub(start)

	var (
		scheduled int
		errs      []error
	)
	for stage := 1; stage <= domain.FollowupStageCount; stage++ {
		delay := snap.FollowupDelay(stage) - elapsed
		if delay < 0 {
			delay = 0
		}
		_, err := o.scheduler.Schedule(ctx, scheduler.FollowupKey(lead.ID, stage), delay)
		switch {
		case err == nil, errors.Is(err, scheduler.ErrTaskExists):
			scheduled++
		default:
			errs = append(errs, fmt.Errorf("schedule follow-up %d: %w", stage, err))
		}
	}
	return scheduled, errors.Join(errs...)
}

// RunFollowup sends follow-up stage 1..3. A lead that already resolved, or that is not at
// the right point of the sequence, is left alone without error.
func (o *Orchestrator) RunFollowup(ctx context.Context, leadID uuid.UUID, stage int) (FollowupResult, error) {
	result := FollowupResult{Stage: stage}
	target, err := domain.FollowupStatus(stage)
	if err != nil {
		return result, apperr.Validation(err.Error())
	}

	log := o.log.WithLead(leadID.String()).With("stage", stage)
	snap := o.settings.Current()
	if !snap.FollowupEnabled {
		log.Info("orchestrator: automated follow-up disabled, skipping")
		result.Outcome = OutcomeDisabled
		return result, nil
	}

	step := fmt.Sprintf("followup_%d", stage)
	if !o.markRunning(step, leadID) {
		result.Outcome = OutcomeInFlight
		return result, nil
	}
	defer o.markComplete(step, leadID)

	lead, err := o.leads.GetByID(ctx, leadID)
	if err != nil {
		return result, o.lookupError(err, leadID)
	}
	result.Status = lead.Status

	switch {
	case lead.Status.IsTerminal():
		log.Info("orchestrator: cancelled, lead already resolved", "status", lead.Status)
		result.Outcome = OutcomeAlreadyResolved
		return result, nil
	case lead.Status.AlreadyReached(target):
		log.Debug("orchestrator: follow-up already sent", "status", lead.Status)
		result.Outcome = OutcomeAlreadyProcessed
		if stage == domain.FollowupStageCount && lead.Status == target {
			return result, o.scheduleArchiveCheck(ctx, snap, leadID)
		}
		return result, nil
	case !containsStatus(domain.FollowupSources(stage), lead.Status):
		log.Info("orchestrator: follow-up fired before pitch completed", "status", lead.Status)
		result.Outcome = OutcomeNotReady
		return result, nil
	}

	rcpt := toRecipient(lead)
	caps := o.dispatch.Capabilities(snap, rcpt)

	var (
		msg     messages.Message
		content outreach.Content
	)
	if caps.Email {
		content, err = o.composer.Followup(ctx, snap, toProspect(lead), stage, daysSince(lead.PitchedAt, o.now()))
		if err != nil {
			o.record(ctx, leadID, activity.KindFollowupFailed, fmt.Sprintf("Follow-up %d generation failed", stage), map[string]any{"stage": stage, "error": err.Error()})
			return result, fmt.Errorf("generate follow-up %d: %w", stage, err)
		}
		subject := content.Subject
		msg, err = o.messages.Create(ctx, messages.CreateParams{
			LeadID:  leadID,
			Type:    domain.FollowupMessageType(stage),
			Channel: domain.ChannelEmail,
			Subject: &subject,
			Body:    content.Body,
		})
		if err != nil {
			return result, err
		}
	}

	// Advance first so a reply arriving now wins and no follow-up goes out after it.
	updated, changed, err := o.leads.Transition(ctx, leadID, domain.FollowupSources(stage), target, repository.TransitionOptions{})
	if err != nil {
		return result, fmt.Errorf("advance lead to %s: %w", target, err)
	}
	result.Status = updated.Status
	if !changed {
		if msg.ID != uuid.Nil {
			if err := o.messages.RecordDelivery(ctx, msg.ID, messages.Delivery{Status: domain.MessageCancelled}); err != nil {
				log.Error("orchestrator: cancel unsent follow-up message failed", "messageId", msg.ID, "error", err)
			}
		}
		log.Info("orchestrator: lead moved during follow-up, not sending", "status", updated.Status)
		result.Outcome = OutcomeAlreadyResolved
		return result, nil
	}

	result.Outcome = OutcomeDone
	if msg.ID == uuid.Nil {
		o.record(ctx, leadID, activity.KindFollowupSkipped, fmt.Sprintf("Follow-up %d skipped: email unavailable", stage), map[string]any{
			"stage":  stage,
			"reason": caps.Reasons[domain.ChannelEmail],
		})
	} else {
		r := o.dispatch.SendEmail(ctx, rcpt, *outbound(snap, msg, content))
		result.Sent = r.Sent()
		kind, summary := activity.KindFollowupSent, fmt.Sprintf("Follow-up %d sent", stage)
		meta := map[string]any{"stage": stage, "messageId": msg.ID.String(), "attempts": r.Attempts}
		if !r.Sent() {
			kind, summary = activity.KindFollowupFailed, fmt.Sprintf("Follow-up %d failed", stage)
			if r.Err != nil {
				meta["error"] = r.Err.Error()
			}
		}
		o.record(ctx, leadID, kind, summary, meta)
	}

	if stage == domain.FollowupStageCount {
		return result, o.scheduleArchiveCheck(ctx, snap, leadID)
	}
	return result, nil
}

func (o *Orchestrator) scheduleArchiveCheck(ctx context.Context, snap *settings.Snapshot, leadID uuid.UUID) error {
	_, err := o.scheduler.Schedule(ctx, scheduler.ArchiveCheckKey(leadID), snap.GracePeriod())
	if err != nil && !errors.Is(err, scheduler.ErrTaskExists) {
		return fmt.Errorf("schedule archive check: %w", err)
	}
	return nil
}

// ArchiveIfUnresolved archives a lead whose sequence ended without a reply.
func (o *Orchestrator) ArchiveIfUnresolved(ctx context.Context, leadID uuid.UUID) (Outcome, error) {
	lead, err := o.leads.GetByID(ctx, leadID)
	if err != nil {
		return "", o.lookupError(err, leadID)
	}
	if lead.Status.IsTerminal() {
		o.log.WithLead(leadID.String()).Debug("orchestrator: archive check found resolved lead", "status", lead.Status)
		return OutcomeAlreadyResolved, nil
	}

	reason := ArchiveReasonNoReply
	_, changed, err := o.leads.Transition(ctx, leadID, domain.SourcesFor(domain.StatusArchived), domain.StatusArchived, repository.TransitionOptions{ArchiveReason: &reason})
	if err != nil {
		return "", err
	}
	if !changed {
		return OutcomeAlreadyResolved, nil
	}

	if _, err := o.CancelPendingForLead(ctx, leadID); err != nil {
		o.log.WithLead(leadID.String()).Warn("orchestrator: cancel after archive failed", "error", err)
	}
	o.record(ctx, leadID, activity.KindLeadArchived, "Archived: "+reason, map[string]any{"reason": reason, "automatic": true})
	o.publish(ctx, events.LeadArchived{BaseEvent: events.NewBaseEvent(), LeadID: leadID, Reason: reason})
	return OutcomeDone, nil
}

// CancelPendingForLead removes every not-yet-fired task of the lead and cancels its pending
// messages. It is safe to call repeatedly and for leads without pending work.
func (o *Orchestrator) CancelPendingForLead(ctx context.Context, leadID uuid.UUID) (CancelResult, error) {
	var (
		result CancelResult
		errs   []error
	)
	for _, key := range scheduler.PendingKeys(leadID, domain.FollowupStageCount) {
		cancelled, err := o.scheduler.Cancel(ctx, key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if cancelled {
			result.TasksCancelled++
		}
	}

	n, err := o.messages.CancelPendingForLead(ctx, leadID)
	if err != nil {
		errs = append(errs, err)
	}
	result.MessagesCancelled = n

	if result.TasksCancelled > 0 || n > 0 {
		o.log.WithLead(leadID.String()).Info("orchestrator: cancelled pending work", "tasks", result.TasksCancelled, "messages", n)
	}
	return result, errors.Join(errs...)
}

// MarkReplied resolves a lead after an inbound reply. changed is false when the lead had
// already replied or converted.
func (o *Orchestrator) MarkReplied(ctx context.Context, leadID uuid.UUID) (repository.Lead, bool, error) {
	lead, changed, err := o.leads.Transition(ctx, leadID, domain.SourcesFor(domain.StatusReplied), domain.StatusReplied, repository.TransitionOptions{})
	if err != nil {
		return repository.Lead{}, false, o.lookupError(err, leadID)
	}
	if _, err := o.CancelPendingForLead(ctx, leadID); err != nil {
		o.log.WithLead(leadID.String()).Warn("orchestrator: cancel after reply failed", "error", err)
	}
	return lead, changed, nil
}

// MarkConverted records a won lead with its revenue.
func (o *Orchestrator) MarkConverted(ctx context.Context, leadID uuid.UUID, revenue float64) (repository.Lead, error) {
	lead, changed, err := o.leads.Transition(ctx, leadID, domain.SourcesFor(domain.StatusConverted), domain.StatusConverted, repository.TransitionOptions{Revenue: &revenue})
	if err != nil {
		return repository.Lead{}, o.lookupError(err, leadID)
	}
	if !changed {
		if lead.Status == domain.StatusConverted {
			return lead, nil
		}
		return lead, apperr.Conflict(fmt.Sprintf("lead is %s and cannot be converted", lead.Status))
	}

	if _, err := o.CancelPendingForLead(ctx, leadID); err != nil {
		o.log.WithLead(leadID.String()).Warn("orchestrator: cancel after conversion failed", "error", err)
	}
	o.record(ctx, leadID, activity.KindLeadConverted, fmt.Sprintf("Converted (revenue %.2f)", revenue), map[string]any{"revenue": revenue})
	o.publish(ctx, events.LeadConverted{BaseEvent: events.NewBaseEvent(), LeadID: leadID, Revenue: revenue})
	return lead, nil
}

// MarkArchived takes a lead out of the pipeline on operator request.
func (o *Orchestrator) MarkArchived(ctx context.Context, leadID uuid.UUID, reason string) (repository.Lead, error) {
	var opts repository.TransitionOptions
	if reason != "" {
		opts.ArchiveReason = &reason
	}
	lead, changed, err := o.leads.Transition(ctx, leadID, domain.SourcesFor(domain.StatusArchived), domain.StatusArchived, opts)
	if err != nil {
		return repository.Lead{}, o.lookupError(err, leadID)
	}
	if !changed {
		if lead.Status == domain.StatusArchived {
			return lead, nil
		}
		return lead, apperr.Conflict(fmt.Sprintf("lead is %s and cannot be archived", lead.Status))
	}

	if _, err := o.CancelPendingForLead(ctx, leadID); err != nil {
		o.log.WithLead(leadID.String()).Warn("orchestrator: cancel after archive failed", "error", err)
	}
	o.record(ctx, leadID, activity.KindLeadArchived, "Archived by operator", map[string]any{"reason": reason, "automatic": false})
	o.publish(ctx, events.LeadArchived{BaseEvent: events.NewBaseEvent(), LeadID: leadID, Reason: reason})
	return lead, nil
}

func (o *Orchestrator) recordPitchOutcome(ctx context.Context, leadID uuid.UUID, delivery dispatch.PitchResult) {
	meta := map[string]any{}
	sent := false
	for name, r := range map[string]*dispatch.Result{"email": delivery.Email, "messaging": delivery.Messaging} {
		if r == nil {
			continue
		}
		meta[name] = string(r.Status)
		meta[name+"Channel"] = string(r.Channel)
		if r.Err != nil {
			meta[name+"Error"] = r.Err.Error()
		}
		sent = sent || r.Sent()
	}
	if delivery.Fallback != nil {
		meta["fallbackFrom"] = string(delivery.Fallback.Channel)
	}

	switch {
	case delivery.Email == nil && delivery.Messaging == nil:
		o.record(ctx, leadID, activity.KindPitchSent, "Pitch recorded without delivery: no reachable channel", meta)
	case sent:
		o.record(ctx, leadID, activity.KindPitchSent, "Pitch sent", meta)
	default:
		o.record(ctx, leadID, activity.KindPitchFailed, "Pitch delivery failed on every channel", meta)
	}
}

func (o *Orchestrator) releaseClaim(ctx context.Context, leadID uuid.UUID) {
	if err := o.leads.ReleasePitchClaim(context.WithoutCancel(ctx), leadID); err != nil {
		o.log.WithLead(leadID.String()).Error("orchestrator: release pitch claim failed", "error", err)
	}
}

func (o *Orchestrator) lookupError(err error, leadID uuid.UUID) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(fmt.Sprintf("lead %s not found", leadID))
	}
	return err
}

func (o *Orchestrator) record(ctx context.Context, leadID uuid.UUID, kind activity.Kind, message string, meta map[string]any) {
	if o.audit == nil {
		return
	}
	if err := o.audit.Record(context.WithoutCancel(ctx), &leadID, kind, message, meta); err != nil {
		o.log.Warn("orchestrator: audit record failed", "kind", kind, "error", err)
	}
}

func (o *Orchestrator) publish(ctx context.Context, evt events.Event) {
	if o.bus != nil {
		o.bus.Publish(ctx, evt)
	}
}

func toProspect(lead repository.Lead) outreach.Prospect {
	return outreach.Prospect{
		Name:          lead.Name,
		Category:      lead.Category,
		Location:      lead.Location,
		WebsiteStatus: lead.WebsiteStatus,
		Rating:        lead.Rating,
		ReviewCount:   lead.ReviewCount,
	}
}

func toRecipient(lead repository.Lead) dispatch.Recipient {
	rcpt := dispatch.Recipient{LeadID: lead.ID}
	if lead.HasEmail() {
		rcpt.Email = *lead.Email
	}
	if lead.HasPhone() {
		rcpt.Phone = *lead.Phone
	}
	return rcpt
}

func outbound(snap *settings.Snapshot, msg messages.Message, content outreach.Content) *dispatch.Outbound {
	return &dispatch.Outbound{
		MessageID:     msg.ID,
		Type:          msg.Type,
		Channel:       msg.Channel,
		Subject:       content.Subject,
		Body:          content.Body,
		SenderName:    snap.SenderName,
		SenderCompany: snap.SenderCompany,
	}
}

func sentChannel(r *dispatch.Result) string {
	if r.Sent() {
		return string(r.Channel)
	}
	return ""
}

func daysSince(t *time.Time, now time.Time) int {
	if t == nil {
		return 0
	}
	return int(now.Sub(*t).Hours() / 24)
}

func containsStatus(list []domain.Status, s domain.Status) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}
