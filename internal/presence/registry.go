// Package presence maps connected users to the connection handle that
// currently represents them. The registry is in-memory and single-node.
package presence

import (
	"bytes"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Handle is a live connection that can accept outbound frames. Send must not
// block and reports false when the frame was dropped.
type Handle interface {
	Send(data []byte) bool
}

type Registry struct {
	mu      sync.RWMutex
	handles map[uuid.UUID]Handle
}

func NewRegistry() *Registry {
	return &Registry{handles: make(map[uuid.UUID]Handle)}
}

// Register binds h to userID and returns the handle it replaced, if any.
// The last connection wins.
func (r *Registry) Register(userID uuid.UUID, h Handle) (prev Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev = r.handles[userID]
	r.handles[userID] = h
	return prev
}

// Unregister removes userID only while h is still its current handle, so a
// replaced connection closing late cannot evict its successor.
func (r *Registry) Unregister(userID uuid.UUID, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.handles[userID]; !ok || cur != h {
		return false
	}
	delete(r.handles, userID)
	return true
}

func (r *Registry) Lookup(userID uuid.UUID) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[userID]
	return h, ok
}

func (r *Registry) IsOnline(userID uuid.UUID) bool {
	_, ok := r.Lookup(userID)
	return ok
}

// Snapshot returns the connected user ids in a stable order.
func (r *Registry) Snapshot() []uuid.UUID {
	r.mu.RLock()
	ids := make([]uuid.UUID, 0, len(r.handles))
	for id := range r.handles {
		ids = append(ids, id)
	}
	r.mu.RUnlock()

	slices.SortFunc(ids, compareIDs)
	return ids
}

// Handles returns every current handle.
func (r *Registry) Handles() []Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hs := make([]Handle, 0, len(r.handles))
	for _, h := range r.handles {
		hs = append(hs, h)
	}
	return hs
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}

func compareIDs(a, b uuid.UUID) int {
	return bytes.Compare(a[:], b[:])
}
