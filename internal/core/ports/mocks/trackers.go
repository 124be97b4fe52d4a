package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/lueurxax/brand-safety-audit/internal/core/domain"
)

// Trackers is a thread-safe in-memory implementation of ports.TrackerRepository,
// ports.TopicRepository and ports.LockRepository.
type Trackers struct {
	mu       sync.Mutex
	trackers map[string]domain.ScriptTracker
	topics   map[int64]domain.TopicAudit
	locks    map[int64]bool

	// SaveTrackerFn allows overriding SaveTracker behavior.
	SaveTrackerFn func(ctx context.Context, tracker domain.ScriptTracker) error
}

// NewTrackers creates an empty tracker repository.
func NewTrackers() *Trackers {
	return &Trackers{
		trackers: make(map[string]domain.ScriptTracker),
		topics:   make(map[int64]domain.TopicAudit),
		locks:    make(map[int64]bool),
	}
}

// GetOrCreateTracker returns the tracker called name, creating it at cursor zero.
func (t *Trackers) GetOrCreateTracker(_ context.Context, name string) (domain.ScriptTracker, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.trackers[name]
	if !ok {
		tr = domain.ScriptTracker{Name: name, UpdatedAt: time.Now()}
		t.trackers[name] = tr
	}

	return tr, nil
}

// SaveTracker stores tracker.
func (t *Trackers) SaveTracker(ctx context.Context, tracker domain.ScriptTracker) error {
	if t.SaveTrackerFn != nil {
		return t.SaveTrackerFn(ctx, tracker)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tracker.UpdatedAt = time.Now()
	t.trackers[tracker.Name] = tracker

	return nil
}

// RunningTopics returns topics with IsRunning set, ordered by id.
func (t *Trackers) RunningTopics(_ context.Context) ([]domain.TopicAudit, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []domain.TopicAudit

	for _, topic := range t.topics {
		if topic.IsRunning {
			topic.Keywords = append([]string(nil), topic.Keywords...)
			out = append(out, topic)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

// SaveTopic stores topic.
func (t *Trackers) SaveTopic(_ context.Context, topic domain.TopicAudit) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.topics[topic.ID] = topic

	return nil
}

// TryAcquireAdvisoryLock acquires lockID when no other holder has it.
func (t *Trackers) TryAcquireAdvisoryLock(_ context.Context, lockID int64) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.locks[lockID] {
		return false, nil
	}

	t.locks[lockID] = true

	return true, nil
}

// ReleaseAdvisoryLock releases lockID.
func (t *Trackers) ReleaseAdvisoryLock(_ context.Context, lockID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.locks, lockID)

	return nil
}

// Helper methods for testing

// Tracker returns the stored tracker called name.
func (t *Trackers) Tracker(name string) (domain.ScriptTracker, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tr, ok := t.trackers[name]

	return tr, ok
}

// Topic returns the stored topic with id.
func (t *Trackers) Topic(id int64) (domain.TopicAudit, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	topic, ok := t.topics[id]

	return topic, ok
}

// Locked reports whether lockID is held.
func (t *Trackers) Locked(lockID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.locks[lockID]
}
