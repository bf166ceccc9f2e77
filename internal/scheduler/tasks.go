package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task types as they appear in the queue.
const (
	TaskLeadPitch        = "lead.pitch"
	TaskLeadFollowup     = "lead.followup"
	TaskLeadArchiveCheck = "lead.archive_check"
	TaskPitchBatch       = "pitch.batch"
	TaskScanRun          = "scan.run"
	TaskDailyBriefing    = "briefing.send"
)

// TaskType maps a lead task kind to its queue task type.
func (k TaskKind) TaskType() string {
	switch k {
	case KindPitch:
		return TaskLeadPitch
	case KindFollowup:
		return TaskLeadFollowup
	default:
		return TaskLeadArchiveCheck
	}
}

// LeadWorkPayload is the payload of every keyed lead task.
type LeadWorkPayload struct {
	Key         string    `json:"key"`
	ScheduledAt time.Time `json:"scheduledAt"`
}

// PitchBatchPayload asks the worker to enqueue pitches for up to Size new leads.
type PitchBatchPayload struct {
	Size    int    `json:"size,omitempty"`
	Trigger string `json:"trigger"`
}

// ScanRunPayload asks the worker to run a discovery scan.
type ScanRunPayload struct {
	Trigger string `json:"trigger"`
}

func NewLeadWorkTask(key TaskKey, scheduledAt time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(LeadWorkPayload{Key: key.String(), ScheduledAt: scheduledAt})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(key.Kind.TaskType(), data), nil
}

func ParseLeadWorkPayload(task *asynq.Task) (Task, error) {
	var payload LeadWorkPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return Task{}, fmt.Errorf("decode lead task: %w", err)
	}
	key, err := ParseKey(payload.Key)
	if err != nil {
		return Task{}, err
	}
	return Task{Key: key, ScheduledAt: payload.ScheduledAt}, nil
}

func NewJobTask(taskType string, payload any) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}
