//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"prospector_backend/internal/leads/domain"
	"prospector_backend/platform/db/dbtest"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	ctx := context.Background()

	pg, err := dbtest.Start(ctx)
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = pg.Stop(context.Background()) })

	return New(pg.Pool)
}

func strPtr(s string) *string { return &s }

func TestUpsertCoalescesContactFields(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first, inserted, err := repo.Upsert(ctx, UpsertParams{
		ExternalID:    "places:abc",
		Name:          "Cafe Noord",
		Category:      "cafe",
		Location:      "Utrecht",
		Email:         strPtr("Info@CafeNoord.nl"),
		WebsiteStatus: domain.WebsiteNone,
		ReviewCount:   12,
	})
	if err != nil || !inserted {
		t.Fatalf("first upsert: inserted=%v err=%v", inserted, err)
	}

	second, inserted, err := repo.Upsert(ctx, UpsertParams{
		ExternalID:    "places:abc",
		Name:          "Cafe Noord & Co",
		Category:      "cafe",
		Location:      "Utrecht",
		Phone:         strPtr("+31301234567"),
		WebsiteStatus: domain.WebsiteNone,
		ReviewCount:   15,
	})
	if err != nil || inserted {
		t.Fatalf("second upsert: inserted=%v err=%v", inserted, err)
	}
	if second.ID != first.ID {
		t.Fatal("rediscovery created a second lead")
	}
	if second.Email == nil || *second.Email != "Info@CafeNoord.nl" {
		t.Fatalf("email was cleared: %v", second.Email)
	}
	if second.Name != "Cafe Noord & Co" || second.ReviewCount != 15 {
		t.Fatalf("descriptive fields not refreshed: %+v", second)
	}
	if second.Status != domain.StatusNew {
		t.Fatalf("status = %s, want new", second.Status)
	}

	byEmail, err := repo.GetByEmail(ctx, "  info@cafenoord.NL ")
	if err != nil || byEmail.ID != first.ID {
		t.Fatalf("GetByEmail: lead=%v err=%v", byEmail.ID, err)
	}
}

func TestUpsertRequiresExternalID(t *testing.T) {
	repo := newTestRepository(t)
	if _, _, err := repo.Upsert(context.Background(), UpsertParams{Name: "x"}); err != ErrExternalIDRequired {
		t.Fatalf("err = %v, want ErrExternalIDRequired", err)
	}
}

func TestTransitionIsGuarded(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	lead, _, err := repo.Upsert(ctx, UpsertParams{ExternalID: "places:t1", Name: "A", WebsiteStatus: domain.WebsiteDead})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	replied, changed, err := repo.Transition(ctx, lead.ID, domain.SourcesFor(domain.StatusReplied), domain.StatusReplied, TransitionOptions{})
	if err != nil || !changed {
		t.Fatalf("reply transition: changed=%v err=%v", changed, err)
	}
	if replied.RepliedAt == nil {
		t.Fatal("replied_at not set")
	}

	current, changed, err := repo.Transition(ctx, lead.ID, []domain.Status{domain.StatusNew}, domain.StatusPitched, TransitionOptions{})
	if err != nil {
		t.Fatalf("guarded transition: %v", err)
	}
	if changed || current.Status != domain.StatusReplied {
		t.Fatalf("terminal lead moved: changed=%v status=%s", changed, current.Status)
	}
}

func TestClaimPitchOnlyOnce(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	lead, _, err := repo.Upsert(ctx, UpsertParams{ExternalID: "places:c1", Name: "B", WebsiteStatus: domain.WebsiteParked})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	stale := time.Now().Add(-15 * time.Minute)
	if _, ok, err := repo.ClaimPitch(ctx, lead.ID, stale); err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	if _, ok, err := repo.ClaimPitch(ctx, lead.ID, stale); err != nil || ok {
		t.Fatalf("second claim: ok=%v err=%v", ok, err)
	}

	if err := repo.ReleasePitchClaim(ctx, lead.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if _, ok, err := repo.ClaimPitch(ctx, lead.ID, stale); err != nil || !ok {
		t.Fatalf("claim after release: ok=%v err=%v", ok, err)
	}
}

func TestCountByStatus(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	for _, id := range []string{"places:n1", "places:n2"} {
		if _, _, err := repo.Upsert(ctx, UpsertParams{ExternalID: id, Name: id, WebsiteStatus: domain.WebsiteNone}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	counts, err := repo.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if counts[domain.StatusNew] != 2 {
		t.Fatalf("new = %d, want 2", counts[domain.StatusNew])
	}
}
