package handlers

import (
	"net/http"

	"github.com/vedran77/parley/internal/service"
	"github.com/vedran77/parley/pkg/validator"
)

// AuthHandler issues tokens. Both routes are public.
type AuthHandler struct {
	auth *service.AuthService
}

func NewAuthHandler(auth *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// Register creates an account from {name, email, password, avatarUrl?} and
// answers 201 with the profile and a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if !decodeBody(w, r, &in) {
		return
	}
	if errs := validator.ValidateRegister(in.Name, in.Email, in.Password, in.AvatarURL); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	resp, err := h.auth.Register(r.Context(), in)
	if err != nil {
		respondError(w, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// Login exchanges {email, password} for a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if !decodeBody(w, r, &in) {
		return
	}
	if errs := validator.ValidateLogin(in.Email, in.Password); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	resp, err := h.auth.Login(r.Context(), in)
	if err != nil {
		respondError(w, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
