package checkpoint

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is the reference in-memory checkpoint store.
// Data is lost when the process exits; use it for tests and for graphs
// that only need interrupt/resume within a single process lifetime.
type MemoryStore struct {
	mu      sync.RWMutex
	threads map[string]map[string]*Checkpoint // threadID -> checkpointID -> checkpoint
	closed  bool
}

// NewMemoryStore creates a new in-memory checkpoint store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads: make(map[string]map[string]*Checkpoint),
	}
}

// Put implements Store. A repeated (thread, checkpoint) key replaces the
// stored data in place, retaining a single ordering entry.
func (m *MemoryStore) Put(_ context.Context, cp *Checkpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	thread := m.threads[cp.ThreadID]
	if thread == nil {
		thread = make(map[string]*Checkpoint)
		m.threads[cp.ThreadID] = thread
	}

	stored := cp.Clone()
	if prev, exists := thread[cp.ID]; exists {
		// Idempotent replace keeps the original ordering slot.
		stored.Sequence = prev.Sequence
	}
	thread[cp.ID] = stored

	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, threadID, checkpointID string) (*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	thread, ok := m.threads[threadID]
	if !ok || len(thread) == 0 {
		return nil, ErrNotFound
	}

	if checkpointID != "" {
		cp, ok := thread[checkpointID]
		if !ok {
			return nil, ErrNotFound
		}
		return cp.Clone(), nil
	}

	var latest *Checkpoint
	for _, cp := range thread {
		if latest == nil || cp.Sequence > latest.Sequence {
			latest = cp
		}
	}
	return latest.Clone(), nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, threadID string) ([]*Checkpoint, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	thread := m.threads[threadID]
	cps := make([]*Checkpoint, 0, len(thread))
	for _, cp := range thread {
		cps = append(cps, cp.Clone())
	}

	sort.Slice(cps, func(i, j int) bool {
		return cps[i].Sequence < cps[j].Sequence
	})

	return cps, nil
}

// DeleteThread implements Store.
func (m *MemoryStore) DeleteThread(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.threads, threadID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.threads = nil
	return nil
}

// Len returns the total number of checkpoints across all threads.
// Useful for testing.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, thread := range m.threads {
		count += len(thread)
	}
	return count
}
