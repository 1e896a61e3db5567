package handlers

import (
	"net/http"

	"github.com/vedran77/parley/internal/service"
	"github.com/vedran77/parley/internal/transport/http/middleware"
)

// ChatHandler exposes read-only views of the chat state over HTTP.
type ChatHandler struct {
	sidebar *service.SidebarService
	gate    *service.MessageGate
}

func NewChatHandler(sidebar *service.SidebarService, gate *service.MessageGate) *ChatHandler {
	return &ChatHandler{sidebar: sidebar, gate: gate}
}

func (h *ChatHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	entries, err := h.sidebar.List(r.Context(), userID)
	if err != nil {
		respondError(w, "list conversations", err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *ChatHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	reqs, err := h.gate.PendingRequests(r.Context(), userID)
	if err != nil {
		respondError(w, "list requests", err)
		return
	}

	writeJSON(w, http.StatusOK, reqs)
}
