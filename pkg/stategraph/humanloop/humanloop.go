// Package humanloop tracks pending interrupts so an external actor - a
// human reviewer, an approval service - can see what a paused thread is
// waiting for and answer it.
//
// The engine itself only pauses and resumes; it does not know who answers.
// This package is the bookkeeping between the two: when an invocation
// returns interrupted, the application raises a Request carrying the
// interrupt payload, and later resolves it with the reviewer's response.
// The response is typically fed back with the graph's UpdateState before
// re-invoking the thread.
//
// Design influences:
//   - Temporal workflow signals (durable requests to a paused execution)
//   - LangGraph human-in-the-loop interrupts
package humanloop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusRejected Status = "rejected"
)

// Request records one pending interrupt awaiting external input.
type Request struct {
	// ID uniquely identifies this request.
	ID string `json:"id"`

	// ThreadID is the paused thread awaiting input.
	ThreadID string `json:"thread_id"`

	// Node is where the thread paused and will resume.
	Node string `json:"node"`

	// Payload is the value the interrupting node surfaced, e.g. the
	// question being asked.
	Payload any `json:"payload,omitempty"`

	// Response holds the reviewer's answer once resolved.
	Response any `json:"response,omitempty"`

	// Reason holds the rejection reason once rejected.
	Reason string `json:"reason,omitempty"`

	Status     Status     `json:"status"`
	RaisedAt   time.Time  `json:"raised_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// NewRequest creates a pending request for a paused thread.
func NewRequest(threadID, node string, payload any) *Request {
	return &Request{
		ID:       fmt.Sprintf("hlr-%s", uuid.New().String()[:8]),
		ThreadID: threadID,
		Node:     node,
		Payload:  payload,
		Status:   StatusPending,
		RaisedAt: time.Now(),
	}
}

// Open reports whether the request still awaits an answer.
func (r *Request) Open() bool {
	return r.Status == StatusPending
}

// Clone creates a shallow copy of the request. Payload and Response are
// shared; callers must not mutate them after raising.
func (r *Request) Clone() *Request {
	requestCopy := *r
	if r.ResolvedAt != nil {
		t := *r.ResolvedAt
		requestCopy.ResolvedAt = &t
	}
	return &requestCopy
}

// ErrRequestNotFound is returned when a request ID is unknown.
var ErrRequestNotFound = errors.New("humanloop: request not found")

// ErrAlreadyAnswered is returned when resolving or rejecting a request
// that is no longer pending.
var ErrAlreadyAnswered = errors.New("humanloop: request already answered")

// Inbox persists interrupt requests and their answers.
type Inbox interface {
	// Raise records a pending request.
	Raise(ctx context.Context, req *Request) error

	// Pending returns the open requests for a thread, oldest first.
	Pending(ctx context.Context, threadID string) ([]*Request, error)

	// Get retrieves a request by ID.
	Get(ctx context.Context, id string) (*Request, error)

	// Resolve answers a pending request.
	Resolve(ctx context.Context, id string, response any) error

	// Reject closes a pending request without an answer.
	Reject(ctx context.Context, id string, reason string) error

	// ListByThread returns all requests for a thread, oldest first,
	// answered ones included.
	ListByThread(ctx context.Context, threadID string) ([]*Request, error)

	// Delete removes a request.
	Delete(ctx context.Context, id string) error
}

// MemoryInbox is an in-memory Inbox implementation.
type MemoryInbox struct {
	mu       sync.RWMutex
	requests map[string]*Request
	byThread map[string][]string // threadID -> request IDs, raise order
}

// NewMemoryInbox creates an empty in-memory inbox.
func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{
		requests: make(map[string]*Request),
		byThread: make(map[string][]string),
	}
}

// Raise records a pending request, filling in defaults for zero fields.
func (m *MemoryInbox) Raise(_ context.Context, req *Request) error {
	if req.ThreadID == "" {
		return errors.New("humanloop: thread ID is required")
	}
	if req.ID == "" {
		req.ID = fmt.Sprintf("hlr-%s", uuid.New().String()[:8])
	}
	if req.RaisedAt.IsZero() {
		req.RaisedAt = time.Now()
	}
	if req.Status == "" {
		req.Status = StatusPending
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests[req.ID] = req.Clone()
	m.byThread[req.ThreadID] = append(m.byThread[req.ThreadID], req.ID)
	return nil
}

// Pending returns the open requests for a thread, oldest first.
func (m *MemoryInbox) Pending(_ context.Context, threadID string) ([]*Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var pending []*Request
	for _, id := range m.byThread[threadID] {
		if req := m.requests[id]; req != nil && req.Status == StatusPending {
			pending = append(pending, req.Clone())
		}
	}
	return pending, nil
}

// Get retrieves a request by ID.
func (m *MemoryInbox) Get(_ context.Context, id string) (*Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, exists := m.requests[id]
	if !exists {
		return nil, ErrRequestNotFound
	}
	return req.Clone(), nil
}

// Resolve answers a pending request.
func (m *MemoryInbox) Resolve(_ context.Context, id string, response any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, exists := m.requests[id]
	if !exists {
		return ErrRequestNotFound
	}
	if req.Status != StatusPending {
		return ErrAlreadyAnswered
	}

	now := time.Now()
	req.Status = StatusResolved
	req.Response = response
	req.ResolvedAt = &now
	return nil
}

// Reject closes a pending request without an answer.
func (m *MemoryInbox) Reject(_ context.Context, id string, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, exists := m.requests[id]
	if !exists {
		return ErrRequestNotFound
	}
	if req.Status != StatusPending {
		return ErrAlreadyAnswered
	}

	now := time.Now()
	req.Status = StatusRejected
	req.Reason = reason
	req.ResolvedAt = &now
	return nil
}

// ListByThread returns all requests for a thread, oldest first.
func (m *MemoryInbox) ListByThread(_ context.Context, threadID string) ([]*Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := m.byThread[threadID]
	result := make([]*Request, 0, len(ids))
	for _, id := range ids {
		if req := m.requests[id]; req != nil {
			result = append(result, req.Clone())
		}
	}
	return result, nil
}

// Delete removes a request.
func (m *MemoryInbox) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, exists := m.requests[id]
	if !exists {
		return ErrRequestNotFound
	}

	delete(m.requests, id)
	ids := m.byThread[req.ThreadID]
	for i, rid := range ids {
		if rid == id {
			m.byThread[req.ThreadID] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(m.byThread[req.ThreadID]) == 0 {
		delete(m.byThread, req.ThreadID)
	}
	return nil
}
