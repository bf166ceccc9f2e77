package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Scheduler driven by a virtual clock. Tasks fire only when the
// clock is advanced, which lets lifecycle tests cover days of follow-ups instantly.
type Memory struct {
	mu       sync.Mutex
	now      time.Time
	handler  Handler
	maxRetry int
	tasks    map[string]*memoryTask
	dead     []DeadTask
	seq      int64
}

type memoryTask struct {
	task    Task
	fireAt  time.Time
	seq     int64
	running bool
}

// DeadTask is a task that exhausted its retries or failed permanently.
type DeadTask struct {
	Key      TaskKey
	Attempts int
	Err      error
}

func NewMemory(start time.Time, maxRetry int) *Memory {
	return &Memory{
		now:      start,
		maxRetry: maxRetry,
		tasks:    make(map[string]*memoryTask),
	}
}

// SetHandler sets the handler that fired tasks are delivered to.
func (m *Memory) SetHandler(h Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
}

// Now returns the virtual time.
func (m *Memory) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Memory) Schedule(_ context.Context, key TaskKey, delay time.Duration) (Handle, error) {
	if err := key.Validate(); err != nil {
		return Handle{}, err
	}
	if delay < 0 {
		delay = 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := key.String()
	if _, ok := m.tasks[id]; ok {
		return Handle{}, ErrTaskExists
	}
	fireAt := m.now.Add(delay)
	m.put(Task{Key: key, ScheduledAt: fireAt}, fireAt)
	return Handle{ID: id, FireAt: fireAt}, nil
}

func (m *Memory) put(task Task, fireAt time.Time) {
	m.seq++
	m.tasks[task.Key.String()] = &memoryTask{task: task, fireAt: fireAt, seq: m.seq}
}

func (m *Memory) Cancel(_ context.Context, key TaskKey) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := key.String()
	t, ok := m.tasks[id]
	if !ok || t.running {
		return false, nil
	}
	delete(m.tasks, id)
	return true, nil
}

// Pending lists keys of tasks not yet fired, ordered by fire time.
func (m *Memory) Pending() []TaskKey {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]*memoryTask, 0, len(m.tasks))
	for _, t := range m.tasks {
		if !t.running {
			items = append(items, t)
		}
	}
	sortTasks(items)
	keys := make([]TaskKey, len(items))
	for i, t := range items {
		keys[i] = t.task.Key
	}
	return keys
}

// FireTime reports when key is due, if it is pending.
func (m *Memory) FireTime(key TaskKey) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[key.String()]
	if !ok || t.running {
		return time.Time{}, false
	}
	return t.fireAt, true
}

// Dead returns tasks that exhausted their retries.
func (m *Memory) Dead() []DeadTask {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]DeadTask(nil), m.dead...)
}

// Advance moves the clock forward by d, firing due tasks in fire-time order. Tasks
// scheduled by handlers fire in the same call when they fall inside the window.
func (m *Memory) Advance(ctx context.Context, d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return
		}
		t, handler := m.nextDue(target)
		if t == nil {
			break
		}
		m.fire(ctx, t, handler)
	}

	m.mu.Lock()
	if target.After(m.now) {
		m.now = target
	}
	m.mu.Unlock()
}

func (m *Memory) nextDue(target time.Time) (*memoryTask, Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var next *memoryTask
	for _, t := range m.tasks {
		if t.running || t.fireAt.After(target) {
			continue
		}
		if next == nil || t.fireAt.Before(next.fireAt) || (t.fireAt.Equal(next.fireAt) && t.seq < next.seq) {
			next = t
		}
	}
	if next == nil {
		return nil, nil
	}
	if next.fireAt.After(m.now) {
		m.now = next.fireAt
	}
	next.running = true
	return next, m.handler
}

func (m *Memory) fire(ctx context.Context, t *memoryTask, handler Handler) {
	var err error
	if handler != nil {
		err = handler.HandleTask(ctx, t.task)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := t.task.Key.String()
	delete(m.tasks, id)
	if err == nil {
		return
	}
	if errors.Is(err, ErrPermanent) || t.task.Attempt >= m.maxRetry {
		m.dead = append(m.dead, DeadTask{Key: t.task.Key, Attempts: t.task.Attempt + 1, Err: err})
		return
	}
	retry := t.task
	retry.Attempt++
	m.put(retry, m.now.Add(RetryDelay(retry.Attempt)))
}

func sortTasks(items []*memoryTask) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].fireAt.Equal(items[j].fireAt) {
			return items[i].seq < items[j].seq
		}
		return items[i].fireAt.Before(items[j].fireAt)
	})
}
