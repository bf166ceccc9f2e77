// Package settings holds the runtime-tunable business settings. Every operation reads one
// immutable Snapshot; updates swap in a new snapshot for all later operations.
package settings

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"prospector_backend/internal/leads/domain"
)

// Prompt keys. Follow-up keys are derived with FollowupPromptKey.
const (
	PromptPitchEmail     = "pitch_email"
	PromptPitchMessaging = "pitch_messaging"
)

// FollowupPromptKey returns the prompt key for a follow-up stage.
func FollowupPromptKey(stage int) string {
	return fmt.Sprintf("followup_%d", stage)
}

// Prompt is a system/user template pair for the content generator.
type Prompt struct {
	System string `json:"system" yaml:"system"`
	User   string `json:"user" yaml:"user"`
}

// ScanTarget is one discovery query.
type ScanTarget struct {
	Category string `json:"category" yaml:"category"`
	Location string `json:"location" yaml:"location"`
}

// Snapshot is an immutable view of all settings. Callers must not modify its slices or maps.
type Snapshot struct {
	ScanEnabled      bool              `json:"scan_enabled" yaml:"scan_enabled"`
	ScanTargets      []ScanTarget      `json:"scan_targets" yaml:"scan_targets"`
	PitchEnabled     bool              `json:"pitch_enabled" yaml:"pitch_enabled"`
	PitchBatchSize   int               `json:"pitch_batch_size" yaml:"pitch_batch_size"`
	FollowupEnabled  bool              `json:"followup_enabled" yaml:"followup_enabled"`
	FollowupDays     []int             `json:"followup_days" yaml:"followup_days"`
	GracePeriodHours int               `json:"grace_period_hours" yaml:"grace_period_hours"`
	BriefingEnabled  bool              `json:"briefing_enabled" yaml:"briefing_enabled"`
	ChannelEmail     bool              `json:"channel_email" yaml:"channel_email"`
	ChannelWhatsApp  bool              `json:"channel_whatsapp" yaml:"channel_whatsapp"`
	ChannelSMS       bool              `json:"channel_sms" yaml:"channel_sms"`
	SenderName       string            `json:"sender_name" yaml:"sender_name"`
	SenderCompany    string            `json:"sender_company" yaml:"sender_company"`
	OfferSummary     string            `json:"offer_summary" yaml:"offer_summary"`
	Prompts          map[string]Prompt `json:"prompts" yaml:"prompts"`
}

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults returns the built-in settings.
func Defaults() (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(defaultsYAML, &s); err != nil {
		return nil, fmt.Errorf("parse default settings: %w", err)
	}
	return &s, nil
}

// FollowupDelay is the offset of a follow-up stage from the start of the sequence.
func (s *Snapshot) FollowupDelay(stage int) time.Duration {
	if stage < 1 || stage > len(s.FollowupDays) {
		return 0
	}
	return time.Duration(s.FollowupDays[stage-1]) * 24 * time.Hour
}

// GracePeriod is the wait after the last follow-up before a silent lead is archived.
func (s *Snapshot) GracePeriod() time.Duration {
	return time.Duration(s.GracePeriodHours) * time.Hour
}

// Prompt returns the prompt stored under key.
func (s *Snapshot) Prompt(key string) (Prompt, bool) {
	p, ok := s.Prompts[key]
	return p, ok && p.User != ""
}

// ChannelEnabled reports the operator toggle for a channel.
func (s *Snapshot) ChannelEnabled(c domain.Channel) bool {
	switch c {
	case domain.ChannelEmail:
		return s.ChannelEmail
	case domain.ChannelWhatsApp:
		return s.ChannelWhatsApp
	case domain.ChannelSMS:
		return s.ChannelSMS
	}
	return false
}

// Validate checks cross-field rules.
func (s *Snapshot) Validate() error {
	if len(s.FollowupDays) != domain.FollowupStageCount {
		return fmt.Errorf("followup_days must have %d entries", domain.FollowupStageCount)
	}
	prev := 0
	for i, d := range s.FollowupDays {
		if d <= prev {
			return fmt.Errorf("followup_days must be positive and strictly increasing (entry %d)", i+1)
		}
		prev = d
	}
	if s.GracePeriodHours <= 0 {
		return fmt.Errorf("grace_period_hours must be positive")
	}
	if s.PitchBatchSize < 1 || s.PitchBatchSize > 500 {
		return fmt.Errorf("pitch_batch_size must be between 1 and 500")
	}
	for key, p := range s.Prompts {
		if p.User == "" {
			return fmt.Errorf("prompt %q needs a user template", key)
		}
	}
	for _, t := range s.ScanTargets {
		if t.Category == "" || t.Location == "" {
			return fmt.Errorf("scan_targets entries need category and location")
		}
	}
	return nil
}

// merge overlays stored values onto base. Prompts merge per key so a stored override of
// one prompt keeps the built-in defaults for the others.
func merge(base *Snapshot, stored map[string]json.RawMessage) (*Snapshot, error) {
	encoded, err := json.Marshal(base)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return nil, err
	}

	var promptOverrides map[string]Prompt
	for key, value := range stored {
		if _, known := fields[key]; !known {
			return nil, fmt.Errorf("unknown setting %q", key)
		}
		if key == "prompts" {
			if err := json.Unmarshal(value, &promptOverrides); err != nil {
				return nil, fmt.Errorf("setting prompts: %w", err)
			}
			continue
		}
		fields[key] = value
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var out Snapshot
	if err := json.Unmarshal(merged, &out); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	for key, p := range promptOverrides {
		if out.Prompts == nil {
			out.Prompts = map[string]Prompt{}
		}
		out.Prompts[key] = p
	}
	return &out, nil
}
