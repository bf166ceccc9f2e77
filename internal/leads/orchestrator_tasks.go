package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"prospector_backend/internal/scheduler"
	"prospector_backend/platform/apperr"
)

// pitchStagger spaces out the pitch tasks of one batch.
const pitchStagger = 30 * time.Second

// HandleTask runs a fired lead task. Missing leads and races are absorbed; configuration
// and validation failures are marked permanent so the queue does not retry them.
func (o *Orchestrator) HandleTask(ctx context.Context, task scheduler.Task) error {
	var err error
	switch task.Key.Kind {
	case scheduler.KindPitch:
		_, err = o.pitch(ctx, task.Key.LeadID, true)
	case scheduler.KindFollowup:
		_, err = o.RunFollowup(ctx, task.Key.LeadID, task.Key.Stage)
	case scheduler.KindArchiveCheck:
		_, err = o.ArchiveIfUnresolved(ctx, task.Key.LeadID)
	default:
		return scheduler.Permanent(fmt.Errorf("unknown task kind %q", task.Key.Kind))
	}

	switch {
	case err == nil:
		return nil
	case apperr.Is(err, apperr.KindNotFound):
		o.log.WithLead(task.Key.LeadID.String()).Debug("orchestrator: task for missing lead dropped", "task", task.Key.String())
		return nil
	case apperr.Is(err, apperr.KindConfiguration), apperr.Is(err, apperr.KindValidation):
		return scheduler.Permanent(err)
	default:
		return err
	}
}

// SchedulePitchBatch enqueues a pitch task for up to limit new leads, oldest first.
// A limit of zero or less uses the configured batch size.
func (o *Orchestrator) SchedulePitchBatch(ctx context.Context, limit int, trigger string) (int, error) {
	if limit <= 0 {
		limit = o.settings.Current().PitchBatchSize
	}
	if limit <= 0 {
		return 0, nil
	}

	candidates, err := o.leads.ListPitchCandidates(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pitch candidates: %w", err)
	}

	var (
		scheduled int
		errs      []error
	)
	for i, lead := range candidates {
		_, err := o.scheduler.Schedule(ctx, scheduler.PitchKey(lead.ID), time.Duration(i)*pitchStagger)
		switch {
		case err == nil:
			scheduled++
		case errors.Is(err, scheduler.ErrTaskExists):
		default:
			errs = append(errs, fmt.Errorf("schedule pitch for %s: %w", lead.ID, err))
		}
	}

	o.log.Info("orchestrator: pitch batch scheduled", "trigger", trigger, "candidates", len(candidates), "scheduled", scheduled)
	return scheduled, errors.Join(errs...)
}

// SchedulePitch enqueues a single pitch task to run right away.
func (o *Orchestrator) SchedulePitch(ctx context.Context, leadID uuid.UUID) error {
	_, err := o.scheduler.Schedule(ctx, scheduler.PitchKey(leadID), 0)
	if errors.Is(err, scheduler.ErrTaskExists) {
		return nil
	}
	return err
}

// RunPitchBatchJob is the handler of the periodic pitch batch job. Scheduled runs honour the
// auto-pitch toggle; manual runs do not.
func (o *Orchestrator) RunPitchBatchJob(ctx context.Context, payload []byte) error {
	var p scheduler.PitchBatchPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &p); err != nil {
			return scheduler.Permanent(fmt.Errorf("decode pitch batch payload: %w", err))
		}
	}
	if p.Trigger == "" {
		p.Trigger = "schedule"
	}
	if p.Trigger == "schedule" && !o.settings.Current().PitchEnabled {
		o.log.Info("orchestrator: auto-pitch disabled, batch skipped")
		return nil
	}
	_, err := o.SchedulePitchBatch(ctx, p.Size, p.Trigger)
	return err
}
