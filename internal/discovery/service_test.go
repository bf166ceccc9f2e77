package discovery

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"

	"prospector_backend/internal/activity"
	"prospector_backend/internal/leads/domain"
	"prospector_backend/internal/leads/repository"
	"prospector_backend/internal/settings"
	"prospector_backend/platform/logger"
)

type fakeSource struct {
	results map[string][]Business
	fail    map[string]bool
}

func (f fakeSource) Search(_ context.Context, target settings.ScanTarget) ([]Business, error) {
	if f.fail[target.Category] {
		return nil, errors.New("quota exceeded")
	}
	return f.results[target.Category], nil
}

type fakeProber map[string]domain.WebsiteStatus

func (f fakeProber) Probe(_ context.Context, website string) domain.WebsiteStatus {
	if website == "" {
		return domain.WebsiteNone
	}
	return f[website]
}

type fakeLeads struct {
	mu       sync.Mutex
	existing map[string]bool
	upserts  []repository.UpsertParams
	failFor  string
}

func (f *fakeLeads) Upsert(_ context.Context, p repository.UpsertParams) (repository.Lead, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ExternalID == f.failFor {
		return repository.Lead{}, false, errors.New("constraint violation")
	}
	f.upserts = append(f.upserts, p)
	inserted := !f.existing[p.ExternalID]
	return repository.Lead{ID: uuid.New(), ExternalID: p.ExternalID}, inserted, nil
}

type fakeRuns struct {
	started  []string
	finished []activity.ScanResult
	kinds    []activity.Kind
}

func (f *fakeRuns) StartScanRun(_ context.Context, trigger string) (activity.ScanRun, error) {
	f.started = append(f.started, trigger)
	return activity.ScanRun{ID: uuid.New(), Trigger: trigger}, nil
}

func (f *fakeRuns) FinishScanRun(_ context.Context, _ uuid.UUID, result activity.ScanResult) error {
	f.finished = append(f.finished, result)
	return nil
}

func (f *fakeRuns) Record(_ context.Context, _ *uuid.UUID, kind activity.Kind, _ string, _ map[string]any) error {
	f.kinds = append(f.kinds, kind)
	return nil
}

type fakeSettings struct{ snap *settings.Snapshot }

func (f fakeSettings) Current() *settings.Snapshot { return f.snap }

func newTestScan(t *testing.T, source Source, leads *fakeLeads, runs *fakeRuns, snap *settings.Snapshot) *ScanService {
	t.Helper()
	if snap == nil {
		var err error
		if snap, err = settings.Defaults(); err != nil {
			t.Fatalf("defaults: %v", err)
		}
	}
	return NewScanService(ScanDeps{
		Source: source,
		Prober: fakeProber{
			"https://healthy.nl": domain.WebsiteHealthy,
			"https://parked.nl":  domain.WebsiteParked,
			"https://dead.nl":    domain.WebsiteDead,
		},
		Leads:    leads,
		Runs:     runs,
		Settings: fakeSettings{snap: snap},
		Region:   "NL",
		Log:      logger.Discard(),
	})
}

func TestRunUpsertsQualifyingBusinesses(t *testing.T) {
	source := fakeSource{results: map[string][]Business{
		"bakery": {
			{ExternalID: "places:1", Name: "No Site", Phone: "030 123 4567", Email: " Info@NoSite.nl "},
			{ExternalID: "places:2", Name: "Healthy", Website: "https://healthy.nl"},
			{ExternalID: "places:3", Name: "Parked", Website: "https://parked.nl", Email: "not-an-email"},
		},
		"florist": {
			{ExternalID: "places:1", Name: "No Site"},
			{ExternalID: "places:4", Name: "Dead", Website: "https://dead.nl"},
		},
	}}
	leads := &fakeLeads{existing: map[string]bool{"places:4": true}}
	runs := &fakeRuns{}
	svc := newTestScan(t, source, leads, runs, nil)

	result, err := svc.Run(context.Background(), []settings.ScanTarget{
		{Category: "bakery", Location: "Utrecht"},
		{Category: "florist", Location: "Utrecht"},
	}, "manual")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Found != 4 || result.Inserted != 2 || result.Updated != 1 || result.Skipped != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(runs.started) != 1 || runs.started[0] != "manual" || len(runs.finished) != 1 {
		t.Fatalf("scan run not recorded: %+v", runs)
	}
	if len(runs.kinds) != 1 || runs.kinds[0] != activity.KindScanCompleted {
		t.Fatalf("activity kinds = %v", runs.kinds)
	}

	byID := map[string]repository.UpsertParams{}
	for _, p := range leads.upserts {
		byID[p.ExternalID] = p
	}
	noSite := byID["places:1"]
	if noSite.Email == nil || *noSite.Email != "info@nosite.nl" {
		t.Fatalf("email = %v", noSite.Email)
	}
	if noSite.Phone == nil || *noSite.Phone != "+31301234567" {
		t.Fatalf("phone = %v", noSite.Phone)
	}
	if noSite.PhoneNormalized == nil || *noSite.PhoneNormalized != "+31301234567" {
		t.Fatalf("phone key = %v", noSite.PhoneNormalized)
	}
	if noSite.WebsiteStatus != domain.WebsiteNone || noSite.Category != "bakery" {
		t.Fatalf("unexpected params %+v", noSite)
	}
	if byID["places:3"].Email != nil {
		t.Fatal("invalid email should not be stored")
	}
	if byID["places:3"].WebsiteStatus != domain.WebsiteParked {
		t.Fatalf("status = %s", byID["places:3"].WebsiteStatus)
	}
}

func TestRunContinuesPastFailures(t *testing.T) {
	source := fakeSource{
		results: map[string][]Business{"bakery": {{ExternalID: "places:1"}, {ExternalID: "places:2"}}},
		fail:    map[string]bool{"florist": true},
	}
	leads := &fakeLeads{failFor: "places:1"}
	runs := &fakeRuns{}
	svc := newTestScan(t, source, leads, runs, nil)

	result, err := svc.Run(context.Background(), []settings.ScanTarget{
		{Category: "florist", Location: "Utrecht"},
		{Category: "bakery", Location: "Utrecht"},
	}, "schedule")
	if err == nil {
		t.Fatal("expected joined error")
	}
	if result.Inserted != 1 || result.Err == nil {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(runs.finished) != 1 || runs.finished[0].Err == nil {
		t.Fatal("failure not written to scan run")
	}
}

func TestRunScanJobHonoursToggle(t *testing.T) {
	snap, err := settings.Defaults()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	snap.ScanEnabled = false
	snap.ScanTargets = []settings.ScanTarget{{Category: "bakery", Location: "Utrecht"}}

	runs := &fakeRuns{}
	svc := newTestScan(t, fakeSource{}, &fakeLeads{}, runs, snap)

	if err := svc.RunScanJob(context.Background(), []byte(`{"trigger":"schedule"}`)); err != nil {
		t.Fatalf("RunScanJob: %v", err)
	}
	if len(runs.started) != 0 {
		t.Fatal("scheduled scan ran while disabled")
	}

	if err := svc.RunScanJob(context.Background(), []byte(`{"trigger":"manual"}`)); err != nil {
		t.Fatalf("RunScanJob: %v", err)
	}
	if len(runs.started) != 1 {
		t.Fatal("manual scan should ignore the toggle")
	}
}

func TestRunScanJobRejectsBadPayload(t *testing.T) {
	svc := newTestScan(t, fakeSource{}, &fakeLeads{}, &fakeRuns{}, nil)
	if err := svc.RunScanJob(context.Background(), []byte("{")); err == nil {
		t.Fatal("expected decode error")
	}
}
