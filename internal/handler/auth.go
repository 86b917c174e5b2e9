package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/todoapp/todo-api/internal/middleware"
	"github.com/todoapp/todo-api/internal/model"
	"github.com/todoapp/todo-api/internal/service"
)

// AuthHandler handles HTTP requests for user accounts and sessions.
type AuthHandler struct {
	service *service.AuthService
	log     *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc *service.AuthService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{service: svc, log: log}
}

// HandleRegister handles POST /users requests.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.CreateUserRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.service.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	w.Header().Set(middleware.AuthHeader, resp.Token)
	writeJSON(w, http.StatusOK, resp.User)
}

// HandleLogin handles POST /users/login requests.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	w.Header().Set(middleware.AuthHeader, resp.Token)
	writeJSON(w, http.StatusOK, resp.User)
}

// HandleMe handles GET /users/me requests.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	writeJSON(w, http.StatusOK, user.Public())
}

// HandleLogout handles DELETE /users/me/token requests.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	token, hasToken := middleware.TokenFromContext(r.Context())
	if !ok || !hasToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	if err := h.service.Logout(r.Context(), user.ID, token); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
