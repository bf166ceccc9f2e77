package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskKind is the kind of deferred lead work.
type TaskKind string

const (
	KindPitch        TaskKind = "pitch"
	KindFollowup     TaskKind = "followup"
	KindArchiveCheck TaskKind = "archive"
)

// TaskKey identifies a deferred unit of lead work. Its string form is the task id in the
// queue, so at most one live task exists per key.
type TaskKey struct {
	LeadID uuid.UUID
	Kind   TaskKind
	Stage  int
}

// PitchKey is the key of a lead's pitch task.
func PitchKey(leadID uuid.UUID) TaskKey {
	return TaskKey{LeadID: leadID, Kind: KindPitch}
}

// FollowupKey is the key of a lead's follow-up task for stage 1..3.
func FollowupKey(leadID uuid.UUID, stage int) TaskKey {
	return TaskKey{LeadID: leadID, Kind: KindFollowup, Stage: stage}
}

// ArchiveCheckKey is the key of a lead's grace-period archive task.
func ArchiveCheckKey(leadID uuid.UUID) TaskKey {
	return TaskKey{LeadID: leadID, Kind: KindArchiveCheck}
}

// PendingKeys lists every key CancelPendingForLead must clear for a lead.
func PendingKeys(leadID uuid.UUID, followupStages int) []TaskKey {
	keys := []TaskKey{PitchKey(leadID)}
	for stage := 1; stage <= followupStages; stage++ {
		keys = append(keys, FollowupKey(leadID, stage))
	}
	return append(keys, ArchiveCheckKey(leadID))
}

// String renders "pitch:<lead>", "followup:<lead>:<stage>" or "archive:<lead>".
func (k TaskKey) String() string {
	if k.Kind == KindFollowup {
		return fmt.Sprintf("%s:%s:%d", k.Kind, k.LeadID, k.Stage)
	}
	return fmt.Sprintf("%s:%s", k.Kind, k.LeadID)
}

// Validate rejects keys that cannot be scheduled.
func (k TaskKey) Validate() error {
	if k.LeadID == uuid.Nil {
		return errors.New("task key: lead id is required")
	}
	switch k.Kind {
	case KindPitch, KindArchiveCheck:
		if k.Stage != 0 {
			return fmt.Errorf("task key: %s takes no stage", k.Kind)
		}
	case KindFollowup:
		if k.Stage < 1 || k.Stage > 3 {
			return fmt.Errorf("task key: follow-up stage %d out of range", k.Stage)
		}
	default:
		return fmt.Errorf("task key: unknown kind %q", k.Kind)
	}
	return nil
}

// ParseKey is the inverse of TaskKey.String.
func ParseKey(raw string) (TaskKey, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return TaskKey{}, fmt.Errorf("task key %q: malformed", raw)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return TaskKey{}, fmt.Errorf("task key %q: %w", raw, err)
	}
	key := TaskKey{LeadID: id, Kind: TaskKind(parts[0])}
	if len(parts) == 3 {
		key.Stage, err = strconv.Atoi(parts[2])
		if err != nil {
			return TaskKey{}, fmt.Errorf("task key %q: bad stage", raw)
		}
	}
	return key, key.Validate()
}

// Task is a fired unit of lead work handed to a Handler.
type Task struct {
	Key         TaskKey
	ScheduledAt time.Time
	// Attempt is 0 on the first execution and increases with each retry.
	Attempt int
}
