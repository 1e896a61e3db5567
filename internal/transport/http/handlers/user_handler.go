package handlers

import (
	"net/http"

	"github.com/vedran77/parley/internal/service"
	"github.com/vedran77/parley/internal/transport/http/middleware"
	"github.com/vedran77/parley/pkg/validator"
)

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Me(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respondError(w, "me", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe applies a partial {name?, avatarUrl?} change to the caller.
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var input service.ProfileInput
	if !decodeBody(w, r, &input) {
		return
	}
	if errs := validator.ValidateProfile(input.Name, input.AvatarURL); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), middleware.GetUserID(r.Context()), input)
	if err != nil {
		respondError(w, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if errs := validator.ValidateSearch(query); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	users, err := h.userService.Search(r.Context(), middleware.GetUserID(r.Context()), query)
	if err != nil {
		respondError(w, "search users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}
