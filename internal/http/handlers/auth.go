package handlers

import (
	"log/slog"
	"net/http"

	"finmail/internal/http/respond"
	"finmail/internal/models"
	"finmail/internal/security"
)

type AuthHandler struct {
	auth     *security.Authenticator
	sessions *security.SessionManager
	logger   *slog.Logger
}

func NewAuthHandler(auth *security.Authenticator, sessions *security.SessionManager, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		sessions: sessions,
		logger:   logger,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeStoreError(w, r, h.logger, err, "user")
		return
	}
	if err := validateInput(&in); err != nil {
		writeStoreError(w, r, h.logger, err, "user")
		return
	}

	user, err := h.auth.Register(r.Context(), in)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "user")
		return
	}

	h.logger.Info("user registered", "username", user.Username)
	respond.JSON(w, http.StatusCreated, user)
}

// Login verifies credentials and issues a fresh session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeStoreError(w, r, h.logger, err, "login")
		return
	}
	if err := validateInput(&in); err != nil {
		writeStoreError(w, r, h.logger, err, "login")
		return
	}

	session, err := h.auth.Login(r.Context(), in.Username, in.Password)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "login")
		return
	}
	if err := h.sessions.Start(w, r, session); err != nil {
		writeStoreError(w, r, h.logger, err, "session")
		return
	}

	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    session,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.End(w, r); err != nil {
		writeStoreError(w, r, h.logger, err, "session")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me returns the caller's user as currently stored.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	session, ok := security.SessionFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	current, err := h.auth.CurrentUser(r.Context(), session)
	if err != nil {
		writeStoreError(w, r, h.logger, err, "user")
		return
	}
	respond.JSON(w, http.StatusOK, current)
}
