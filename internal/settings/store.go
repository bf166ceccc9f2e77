package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"prospector_backend/platform/apperr"
	"prospector_backend/platform/logger"
)

// ReloadChannel is the Redis pub/sub channel announcing settings changes.
const ReloadChannel = "prospector:settings:reload"

// KeyValueStore is the persistence the Store needs.
type KeyValueStore interface {
	LoadAll(ctx context.Context) (map[string]json.RawMessage, error)
	SaveAll(ctx context.Context, values map[string]json.RawMessage) error
}

// Store serves the current Snapshot and swaps it atomically on reload.
type Store struct {
	repo    KeyValueStore
	redis   *redis.Client
	log     *logger.Logger
	current atomic.Pointer[Snapshot]
}

// NewStore creates a store. redisClient may be nil, in which case changes made by other
// processes are only picked up on the next explicit Reload.
func NewStore(repo KeyValueStore, redisClient *redis.Client, log *logger.Logger) *Store {
	return &Store{repo: repo, redis: redisClient, log: log}
}

// Current returns the active snapshot. It is never nil after a successful Reload.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Reload rebuilds the snapshot from defaults and stored values.
func (s *Store) Reload(ctx context.Context) error {
	stored, err := s.repo.LoadAll(ctx)
	if err != nil {
		return err
	}
	snap, err := s.build(stored, nil)
	if err != nil {
		return err
	}
	s.current.Store(snap)
	return nil
}

// Update validates and persists a partial change, then publishes a reload.
// A "prompts" value is merged per prompt key with the stored prompts.
func (s *Store) Update(ctx context.Context, patch map[string]json.RawMessage) (*Snapshot, error) {
	if len(patch) == 0 {
		return s.Current(), nil
	}
	stored, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	effective, err := mergePromptPatch(stored, patch)
	if err != nil {
		return nil, invalidSettings(err)
	}
	snap, err := s.build(stored, effective)
	if err != nil {
		return nil, invalidSettings(err)
	}
	if err := s.repo.SaveAll(ctx, effective); err != nil {
		return nil, err
	}
	s.current.Store(snap)

	if s.redis != nil {
		if err := s.redis.Publish(ctx, ReloadChannel, "reload").Err(); err != nil {
			s.log.Warn("settings reload broadcast failed", "error", err)
		}
	}
	s.log.Info("settings updated", "keys", len(patch))
	return snap, nil
}

// Watch reloads the snapshot whenever another process announces a change.
// It blocks until ctx is cancelled.
func (s *Store) Watch(ctx context.Context) {
	if s.redis == nil {
		return
	}
	sub := s.redis.Subscribe(ctx, ReloadChannel)
	defer func() {
		_ = sub.Close()
	}()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ch:
			if !ok {
				return
			}
			if err := s.Reload(ctx); err != nil {
				s.log.Error("settings reload failed", "error", err)
				continue
			}
			s.log.Debug("settings reloaded")
		}
	}
}

func (s *Store) build(stored, patch map[string]json.RawMessage) (*Snapshot, error) {
	base, err := Defaults()
	if err != nil {
		return nil, err
	}
	values := make(map[string]json.RawMessage, len(stored)+len(patch))
	for k, v := range stored {
		values[k] = v
	}
	for k, v := range patch {
		values[k] = v
	}
	snap, err := merge(base, values)
	if err != nil {
		return nil, err
	}
	if err := snap.Validate(); err != nil {
		return nil, fmt.Errorf("settings: %w", err)
	}
	return snap, nil
}

func mergePromptPatch(stored, patch map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	raw, ok := patch["prompts"]
	if !ok {
		return patch, nil
	}
	prompts := map[string]Prompt{}
	if existing, ok := stored["prompts"]; ok {
		if err := json.Unmarshal(existing, &prompts); err != nil {
			return nil, fmt.Errorf("stored prompts: %w", err)
		}
	}
	var updates map[string]Prompt
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("prompts: %w", err)
	}
	for k, v := range updates {
		prompts[k] = v
	}
	combined, err := json.Marshal(prompts)
	if err != nil {
		return nil, err
	}

	out := make(map[string]json.RawMessage, len(patch))
	for k, v := range patch {
		out[k] = v
	}
	out["prompts"] = combined
	return out, nil
}

func invalidSettings(err error) error {
	return apperr.Wrap(apperr.KindValidation, "invalid settings", err).
		WithOp("settings.update").
		WithDetails(err.Error())
}
