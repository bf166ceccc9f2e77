package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"prospector_backend/internal/activity"
	"prospector_backend/internal/events"
	"prospector_backend/internal/leads/domain"
	"prospector_backend/internal/leads/repository"
	"prospector_backend/internal/scheduler"
	"prospector_backend/internal/settings"
	"prospector_backend/platform/logger"
	"prospector_backend/platform/phone"
)

const (
	probeConcurrency = 8
	triggerSchedule  = "schedule"
)

// LeadUpserter stores discovered businesses.
type LeadUpserter interface {
	Upsert(ctx context.Context, p repository.UpsertParams) (repository.Lead, bool, error)
}

// WebsiteProber classifies a business website.
type WebsiteProber interface {
	Probe(ctx context.Context, website string) domain.WebsiteStatus
}

// RunRecorder keeps the scan run history and the activity log.
type RunRecorder interface {
	StartScanRun(ctx context.Context, trigger string) (activity.ScanRun, error)
	FinishScanRun(ctx context.Context, id uuid.UUID, result activity.ScanResult) error
	Record(ctx context.Context, leadID *uuid.UUID, kind activity.Kind, message string, metadata map[string]any) error
}

// SettingsSource exposes the current runtime settings.
type SettingsSource interface {
	Current() *settings.Snapshot
}

// ScanDeps groups the scan service's collaborators. Bus may be nil.
type ScanDeps struct {
	Source   Source
	Prober   WebsiteProber
	Leads    LeadUpserter
	Runs     RunRecorder
	Settings SettingsSource
	Bus      events.Publisher
	Region   string
	Log      *logger.Logger
}

// ScanService runs discovery scans.
type ScanService struct {
	source   Source
	prober   WebsiteProber
	leads    LeadUpserter
	runs     RunRecorder
	settings SettingsSource
	bus      events.Publisher
	region   string
	log      *logger.Logger
}

func NewScanService(deps ScanDeps) *ScanService {
	return &ScanService{
		source:   deps.Source,
		prober:   deps.Prober,
		leads:    deps.Leads,
		runs:     deps.Runs,
		settings: deps.Settings,
		bus:      deps.Bus,
		region:   deps.Region,
		log:      deps.Log,
	}
}

type candidate struct {
	business Business
	target   settings.ScanTarget
	status   domain.WebsiteStatus
}

// Run searches every target, probes each website and upserts the businesses that qualify.
// A failing target or lead does not stop the run; all failures are reported together.
func (s *ScanService) Run(ctx context.Context, targets []settings.ScanTarget, trigger string) (activity.ScanResult, error) {
	run, err := s.runs.StartScanRun(ctx, trigger)
	if err != nil {
		return activity.ScanResult{}, fmt.Errorf("start scan run: %w", err)
	}
	log := s.log.With("scanRunId", run.ID.String(), "trigger", trigger)
	log.Info("discovery scan started", "targets", len(targets))
	started := time.Now()

	var errs []error
	candidates, searchErrs := s.search(ctx, targets)
	errs = append(errs, searchErrs...)

	result := activity.ScanResult{Found: len(candidates)}
	if err := s.probe(ctx, candidates); err != nil {
		errs = append(errs, err)
	}

	for _, c := range candidates {
		if !c.status.Qualifies() {
			result.Skipped++
			continue
		}
		_, inserted, err := s.leads.Upsert(ctx, s.upsertParams(c))
		if err != nil {
			log.Error("discovery upsert failed", "externalId", c.business.ExternalID, "error", err)
			errs = append(errs, err)
			continue
		}
		if inserted {
			result.Inserted++
		} else {
			result.Updated++
		}
	}
	result.Err = errors.Join(errs...)

	finishCtx := context.WithoutCancel(ctx)
	if err := s.runs.FinishScanRun(finishCtx, run.ID, result); err != nil {
		log.Error("finish scan run failed", "error", err)
	}
	meta := map[string]any{
		"scanRunId": run.ID.String(),
		"trigger":   trigger,
		"found":     result.Found,
		"inserted":  result.Inserted,
		"updated":   result.Updated,
		"skipped":   result.Skipped,
	}
	if result.Err != nil {
		meta["error"] = result.Err.Error()
	}
	if err := s.runs.Record(finishCtx, nil, activity.KindScanCompleted,
		fmt.Sprintf("Scan found %d businesses, %d new", result.Found, result.Inserted), meta); err != nil {
		log.Warn("record scan activity failed", "error", err)
	}
	if s.bus != nil {
		s.bus.Publish(finishCtx, events.ScanCompleted{
			BaseEvent: events.NewBaseEvent(),
			ScanRunID: run.ID,
			Found:     result.Found,
			Inserted:  result.Inserted,
			Updated:   result.Updated,
			Failed:    result.Err != nil,
		})
	}

	log.Info("discovery scan finished",
		"found", result.Found, "inserted", result.Inserted, "updated", result.Updated,
		"skipped", result.Skipped, "errors", len(errs), "duration", time.Since(started).String())
	return result, result.Err
}

// RunScanJob runs a scan over the configured targets. Scheduled runs honour the auto-scan toggle.
func (s *ScanService) RunScanJob(ctx context.Context, payload []byte) error {
	var p scheduler.ScanRunPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return scheduler.Permanent(fmt.Errorf("decode scan payload: %w", err))
		}
	}
	if p.Trigger == "" {
		p.Trigger = triggerSchedule
	}

	snap := s.settings.Current()
	if p.Trigger == triggerSchedule && !snap.ScanEnabled {
		s.log.Info("auto-scan disabled, scan skipped")
		return nil
	}
	if len(snap.ScanTargets) == 0 {
		s.log.Warn("scan skipped: no scan targets configured")
		return nil
	}
	_, err := s.Run(ctx, snap.ScanTargets, p.Trigger)
	return err
}

func (s *ScanService) search(ctx context.Context, targets []settings.ScanTarget) ([]*candidate, []error) {
	var (
		out  []*candidate
		errs []error
		seen = make(map[string]bool)
	)
	for _, target := range targets {
		businesses, err := s.source.Search(ctx, target)
		if err != nil {
			s.log.Error("discovery search failed", "category", target.Category, "location", target.Location, "error", err)
			errs = append(errs, fmt.Errorf("search %s in %s: %w", target.Category, target.Location, err))
		}
		for _, b := range businesses {
			if b.ExternalID == "" || seen[b.ExternalID] {
				continue
			}
			seen[b.ExternalID] = true
			out = append(out, &candidate{business: b, target: target})
		}
	}
	return out, errs
}

func (s *ScanService) probe(ctx context.Context, candidates []*candidate) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(probeConcurrency)
	for _, c := range candidates {
		g.Go(func() error {
			c.status = s.prober.Probe(gctx, c.business.Website)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *ScanService) upsertParams(c *candidate) repository.UpsertParams {
	b := c.business
	p := repository.UpsertParams{
		ExternalID:    b.ExternalID,
		Name:          b.Name,
		Category:      c.target.Category,
		Location:      c.target.Location,
		Address:       b.Address,
		WebsiteStatus: c.status,
		Rating:        b.Rating,
		ReviewCount:   b.ReviewCount,
		HasPhotos:     b.HasPhotos,
		RawSnapshot:   b.Raw,
	}
	if email := strings.ToLower(strings.TrimSpace(b.Email)); email != "" && checkmail.ValidateFormat(email) == nil {
		p.Email = &email
	}
	if raw := strings.TrimSpace(b.Phone); raw != "" {
		e164 := phone.NormalizeE164(raw, s.region)
		key := phone.LookupKey(raw, s.region)
		p.Phone = &e164
		if key != "" {
			p.PhoneNormalized = &key
		}
	}
	if website := strings.TrimSpace(b.Website); website != "" {
		p.Website = &website
	}
	return p
}
