package ws

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	jww "github.com/spf13/jwalterweatherman"
	"github.com/vedran77/parley/internal/presence"
)

// OnlineStore persists the best-effort online flag.
type OnlineStore interface {
	SetOnline(ctx context.Context, id uuid.UUID, online bool) error
}

// Hub binds authenticated clients to user ids and routes events to them.
type Hub struct {
	registry *presence.Registry
	online   OnlineStore
}

func NewHub(registry *presence.Registry, online OnlineStore) *Hub {
	return &Hub{registry: registry, online: online}
}

// Connect registers c as its user's current connection and announces the
// new online set. A previous connection of the same user is closed.
func (h *Hub) Connect(ctx context.Context, c *Client) {
	if prev := h.registry.Register(c.userID, c); prev != nil {
		jww.WARN.Printf("[WS] user %s reconnected, previous connection replaced", c.userID)
		if old, ok := prev.(*Client); ok && old != c {
			old.evict()
		}
	}
	if err := h.online.SetOnline(ctx, c.userID, true); err != nil {
		jww.ERROR.Printf("[WS] persisting online for %s: %v", c.userID, err)
	}
	jww.INFO.Printf("[WS] user %s connected (%d total)", c.userID, h.registry.Len())
	h.broadcastOnline()
}

// Disconnect removes c if it is still the user's current connection.
func (h *Hub) Disconnect(ctx context.Context, c *Client) {
	if !h.registry.Unregister(c.userID, c) {
		return
	}
	if err := h.online.SetOnline(ctx, c.userID, false); err != nil {
		jww.ERROR.Printf("[WS] persisting offline for %s: %v", c.userID, err)
	}
	jww.INFO.Printf("[WS] user %s disconnected (%d total)", c.userID, h.registry.Len())
	h.broadcastOnline()
}

// SendToUser sends an event to the user's current connection, if any.
func (h *Hub) SendToUser(userID uuid.UUID, event *Event) {
	handle, ok := h.registry.Lookup(userID)
	if !ok {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		jww.ERROR.Printf("[WS] marshal %s: %v", event.Type, err)
		return
	}
	if !handle.Send(data) {
		jww.DEBUG.Printf("[WS] dropped %s for %s", event.Type, userID)
	}
}

// broadcastOnline sends the full online id set to every connection.
func (h *Hub) broadcastOnline() {
	evt, err := NewEvent(EventTypeOnlineUser, h.registry.Snapshot())
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	for _, handle := range h.registry.Handles() {
		handle.Send(data)
	}
}

func (h *Hub) IsOnline(userID uuid.UUID) bool {
	return h.registry.IsOnline(userID)
}
