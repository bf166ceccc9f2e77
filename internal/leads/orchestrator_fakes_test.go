package leads

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"prospector_backend/internal/activity"
	"prospector_backend/internal/dispatch"
	"prospector_backend/internal/leads/domain"
	"prospector_backend/internal/leads/repository"
	"prospector_backend/internal/messages"
	"prospector_backend/internal/outreach"
	"prospector_backend/internal/settings"
)

type fakeLeadStore struct {
	mu    sync.Mutex
	now   func() time.Time
	leads map[uuid.UUID]*repository.Lead
	// beforeTransition runs once, before the next guarded update.
	beforeTransition func(*repository.Lead)
	// transitionErr fails the next guarded update once.
	transitionErr error
	// sentPitch mirrors the delivered-pitch guard of ClaimPitch.
	sentPitch func(uuid.UUID) bool
	history   map[uuid.UUID][]domain.Status
}

func newFakeLeadStore(now func() time.Time) *fakeLeadStore {
	return &fakeLeadStore{now: now, leads: map[uuid.UUID]*repository.Lead{}, history: map[uuid.UUID][]domain.Status{}}
}

func (s *fakeLeadStore) add(email, phone string) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead := &repository.Lead{
		ID:            uuid.New(),
		ExternalID:    uuid.NewString(),
		Name:          "Bakkerij Jansen",
		Category:      "bakery",
		Location:      "Utrecht",
		WebsiteStatus: domain.WebsiteNone,
		Status:        domain.StatusNew,
		CreatedAt:     s.now().Add(time.Duration(len(s.leads)) * time.Second),
	}
	if email != "" {
		lead.Email = &email
	}
	if phone != "" {
		lead.Phone = &phone
	}
	s.leads[lead.ID] = lead
	return lead.ID
}

func (s *fakeLeadStore) status(id uuid.UUID) domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leads[id].Status
}

func (s *fakeLeadStore) set(id uuid.UUID, status domain.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[id].Status = status
}

func (s *fakeLeadStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return *lead, nil
}

func (s *fakeLeadStore) GetByEmail(_ context.Context, email string) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lead := range s.leads {
		if lead.Email != nil && strings.EqualFold(*lead.Email, strings.TrimSpace(email)) {
			return *lead, nil
		}
	}
	return repository.Lead{}, repository.ErrNotFound
}

func (s *fakeLeadStore) GetByPhone(_ context.Context, matchKey string) (repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lead := range s.leads {
		if lead.PhoneNormalized != nil && *lead.PhoneNormalized == matchKey {
			return *lead, nil
		}
	}
	return repository.Lead{}, repository.ErrNotFound
}

func (s *fakeLeadStore) List(_ context.Context, _ repository.ListParams) ([]repository.Lead, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]repository.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		out = append(out, *lead)
	}
	return out, len(out), nil
}

func (s *fakeLeadStore) Transition(_ context.Context, id uuid.UUID, from []domain.Status, target domain.Status, opts repository.TransitionOptions) (repository.Lead, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return repository.Lead{}, false, repository.ErrNotFound
	}
	if err := s.transitionErr; err != nil {
		s.transitionErr = nil
		return repository.Lead{}, false, err
	}
	if hook := s.beforeTransition; hook != nil {
		s.beforeTransition = nil
		hook(lead)
	}
	if !containsStatus(from, lead.Status) {
		return *lead, false, nil
	}

	now := s.now()
	lead.Status = target
	lead.UpdatedAt = now
	switch target {
	case domain.StatusPitched:
		lead.PitchedAt = &now
	case domain.StatusReplied:
		lead.RepliedAt = &now
	case domain.StatusConverted:
		lead.ConvertedAt = &now
	case domain.StatusArchived:
		lead.ArchivedAt = &now
	}
	if opts.Revenue != nil {
		lead.Revenue = opts.Revenue
	}
	if opts.ArchiveReason != nil {
		lead.ArchiveReason = opts.ArchiveReason
	}
	s.history[id] = append(s.history[id], target)
	return *lead, true, nil
}

func (s *fakeLeadStore) ClaimPitch(_ context.Context, id uuid.UUID, staleBefore time.Time) (repository.Lead, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lead, ok := s.leads[id]
	if !ok {
		return repository.Lead{}, false, repository.ErrNotFound
	}
	if lead.Status != domain.StatusNew {
		return *lead, false, nil
	}
	if lead.PitchClaimedAt != nil {
		stale := lead.PitchClaimedAt.Before(staleBefore)
		if !stale || (s.sentPitch != nil && s.sentPitch(id)) {
			return *lead, false, nil
		}
	}
	now := s.now()
	lead.PitchClaimedAt = &now
	return *lead, true, nil
}

func (s *fakeLeadStore) ReleasePitchClaim(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lead, ok := s.leads[id]; ok && lead.Status == domain.StatusNew {
		lead.PitchClaimedAt = nil
	}
	return nil
}

func (s *fakeLeadStore) ListPitchCandidates(_ context.Context, limit int) ([]repository.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []repository.Lead
	for _, lead := range s.leads {
		if lead.Status == domain.StatusNew && lead.PitchClaimedAt == nil {
			out = append(out, *lead)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeMessageStore struct {
	mu    sync.Mutex
	order []uuid.UUID
	byID  map[uuid.UUID]*messages.Message
	// afterCreate runs once, outside the lock, after the next insert.
	afterCreate func(messages.Message)
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{byID: map[uuid.UUID]*messages.Message{}}
}

func (s *fakeMessageStore) Create(_ context.Context, p messages.CreateParams) (messages.Message, error) {
	s.mu.Lock()
	msg := &messages.Message{
		ID:      uuid.New(),
		LeadID:  p.LeadID,
		Type:    p.Type,
		Channel: p.Channel,
		Subject: p.Subject,
		Body:    p.Body,
		Status:  domain.MessagePending,
	}
	s.byID[msg.ID] = msg
	s.order = append(s.order, msg.ID)
	created := *msg
	hook := s.afterCreate
	s.afterCreate = nil
	s.mu.Unlock()

	if hook != nil {
		hook(created)
	}
	return created, nil
}

func (s *fakeMessageStore) RecordDelivery(_ context.Context, id uuid.UUID, d messages.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.byID[id]
	if !ok {
		return messages.ErrNotFound
	}
	if msg.Status != domain.MessagePending {
		return nil
	}
	msg.Status = d.Status
	msg.RetryCount = d.RetryCount
	return nil
}

func (s *fakeMessageStore) CancelPendingForLead(_ context.Context, leadID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, msg := range s.byID {
		if msg.LeadID == leadID && msg.Status == domain.MessagePending {
			msg.Status = domain.MessageCancelled
			n++
		}
	}
	return n, nil
}

func (s *fakeMessageStore) SentPitchChannels(_ context.Context, leadID uuid.UUID) ([]domain.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Channel
	for _, id := range s.order {
		msg := s.byID[id]
		if msg.LeadID == leadID && msg.Type == domain.MessagePitch && msg.Status == domain.MessageSent {
			out = append(out, msg.Channel)
		}
	}
	return out, nil
}

func (s *fakeMessageStore) hasSentPitch(leadID uuid.UUID) bool {
	channels, _ := s.SentPitchChannels(context.Background(), leadID)
	return len(channels) > 0
}

func (s *fakeMessageStore) forLead(leadID uuid.UUID) []messages.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []messages.Message
	for _, id := range s.order {
		if msg := s.byID[id]; msg.LeadID == leadID {
			out = append(out, *msg)
		}
	}
	return out
}

type fakeComposer struct {
	mu sync.Mutex
	// duringMessaging runs while messaging copy is generated.
	duringMessaging func()
	emailErr       error
	messagingErr   error
	followupErr    error
	followupStages []int
}

func (c *fakeComposer) PitchEmail(context.Context, *settings.Snapshot, outreach.Prospect) (outreach.Content, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.emailErr != nil {
		return outreach.Content{}, c.emailErr
	}
	return outreach.Content{Subject: "Een website voor jullie", Body: "Hoi!"}, nil
}

func (c *fakeComposer) PitchMessaging(context.Context, *settings.Snapshot, outreach.Prospect) (outreach.Content, error) {
	c.mu.Lock()
	hook := c.duringMessaging
	c.mu.Unlock()
	if hook != nil {
		hook()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.messagingErr != nil {
		return outreach.Content{}, c.messagingErr
	}
	return outreach.Content{Body: "Hoi, even via WhatsApp"}, nil
}

func (c *fakeComposer) Followup(_ context.Context, _ *settings.Snapshot, _ outreach.Prospect, stage, _ int) (outreach.Content, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.followupErr != nil {
		return outreach.Content{}, c.followupErr
	}
	c.followupStages = append(c.followupStages, stage)
	return outreach.Content{Subject: "Nog even over je website", Body: "Follow-up"}, nil
}

// fakeDispatcher delivers everything successfully and records what it sent.
type fakeDispatcher struct {
	mu       sync.Mutex
	messages *fakeMessageStore
	pitches  int
	sent     []dispatch.Outbound
	failAll  bool
}

func (d *fakeDispatcher) Capabilities(snap *settings.Snapshot, rcpt dispatch.Recipient) dispatch.Capabilities {
	return dispatch.Capabilities{
		Email:    rcpt.Email != "" && snap.ChannelEmail,
		WhatsApp: rcpt.Phone != "" && snap.ChannelWhatsApp,
		SMS:      rcpt.Phone != "" && snap.ChannelSMS,
		Reasons:  map[domain.Channel]string{},
	}
}

func (d *fakeDispatcher) SendPitch(ctx context.Context, _ dispatch.Capabilities, rcpt dispatch.Recipient, mail, messaging *dispatch.Outbound) dispatch.PitchResult {
	d.mu.Lock()
	d.pitches++
	d.mu.Unlock()

	var result dispatch.PitchResult
	if mail != nil {
		r := d.SendEmail(ctx, rcpt, *mail)
		result.Email = &r
	}
	if messaging != nil {
		r := d.deliver(ctx, *messaging)
		result.Messaging = &r
	}
	return result
}

func (d *fakeDispatcher) SendEmail(ctx context.Context, _ dispatch.Recipient, out dispatch.Outbound) dispatch.Result {
	return d.deliver(ctx, out)
}

func (d *fakeDispatcher) deliver(ctx context.Context, out dispatch.Outbound) dispatch.Result {
	d.mu.Lock()
	d.sent = append(d.sent, out)
	fail := d.failAll
	d.mu.Unlock()

	status := domain.MessageSent
	if fail {
		status = domain.MessageFailed
	}
	_ = d.messages.RecordDelivery(ctx, out.MessageID, messages.Delivery{Status: status})
	return dispatch.Result{Channel: out.Channel, MessageID: out.MessageID, Status: status, Attempts: 1}
}

func (d *fakeDispatcher) sentTypes() []domain.MessageType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]domain.MessageType, len(d.sent))
	for i, o := range d.sent {
		out[i] = o.Type
	}
	return out
}

type fakeSettings struct {
	snap *settings.Snapshot
}

func (f *fakeSettings) Current() *settings.Snapshot { return f.snap }

type fakeAudit struct {
	mu    sync.Mutex
	kinds []activity.Kind
}

func (a *fakeAudit) Record(_ context.Context, _ *uuid.UUID, kind activity.Kind, _ string, _ map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.kinds = append(a.kinds, kind)
	return nil
}

func (a *fakeAudit) count(kind activity.Kind) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, k := range a.kinds {
		if k == kind {
			n++
		}
	}
	return n
}
