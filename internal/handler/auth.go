package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/autoprice/autoprice/internal/auth"
	"github.com/autoprice/autoprice/internal/model"
	"github.com/autoprice/autoprice/internal/server/middleware"
	"github.com/autoprice/autoprice/internal/store"
)

// AuthHandler serves registration, login, and profile management.
type AuthHandler struct {
	store      *store.Store
	hasher     *auth.Hasher
	tokens     *auth.TokenService
	ttlMinutes int
	logger     *slog.Logger
}

// NewAuthHandler creates an AuthHandler. ttlMinutes is the lifetime of
// issued tokens.
func NewAuthHandler(st *store.Store, hasher *auth.Hasher, tokens *auth.TokenService, ttlMinutes int, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		store:      st,
		hasher:     hasher,
		tokens:     tokens,
		ttlMinutes: ttlMinutes,
		logger:     logger,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the payload for a successful login.
type loginResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   int         `json:"expires_in"`
	User        *model.User `json:"user"`
}

// Register creates a new user account.
// POST /api/v1/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username, email, and password are required")
		return
	}
	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid email address")
		return
	}
	if len(req.Password) < 6 {
		writeError(w, http.StatusBadRequest, "password must be at least 6 characters long")
		return
	}

	if _, err := h.store.GetUserByUsername(r.Context(), req.Username); err == nil {
		writeError(w, http.StatusConflict, "username already registered")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.logger.Error("register: username lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}
	if _, err := h.store.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		h.logger.Error("register: email lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.logger.Error("register: password hashing failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	user := &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := h.store.CreateUser(r.Context(), user); err != nil {
		h.logger.Error("register: create user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	h.logger.Info("user registered", "username", user.Username, "user_id", user.ID)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "user registered successfully",
		"user":    user,
	})
}

// Login authenticates a username/password pair and issues a bearer token.
// The response is identical for an unknown username and a wrong password.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}
		h.logger.Error("login: user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	if !h.hasher.Verify(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	if !user.IsActive {
		writeError(w, http.StatusForbidden, "account deactivated")
		return
	}

	token, err := h.tokens.Issue(auth.Claims{Subject: user.Username, UserID: user.ID}, h.ttlMinutes)
	if err != nil {
		h.logger.Error("login: token issuance failed", "error", err)
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	h.logger.Info("user logged in", "username", user.Username, "user_id", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   h.ttlMinutes * 60,
		User:        user,
	})
}

// Me returns the authenticated user's profile.
// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("me: user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
}

// UpdateMe updates the authenticated user's email and/or password. A new
// password hash is generated only here, never implicitly.
// PUT /api/v1/auth/me
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req updateProfileRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" && req.Password == "" {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}

	user, err := h.store.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("update profile: user lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	var updated []string

	if req.Email != "" {
		if !strings.Contains(req.Email, "@") {
			writeError(w, http.StatusBadRequest, "invalid email address")
			return
		}
		existing, err := h.store.GetUserByEmail(r.Context(), req.Email)
		if err == nil && existing.ID != user.ID {
			writeError(w, http.StatusConflict, "email already in use")
			return
		}
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			h.logger.Error("update profile: email lookup failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update profile")
			return
		}
		user.Email = req.Email
		updated = append(updated, "email")
	}

	if req.Password != "" {
		if len(req.Password) < 6 {
			writeError(w, http.StatusBadRequest, "password must be at least 6 characters long")
			return
		}
		hash, err := h.hasher.Hash(req.Password)
		if err != nil {
			h.logger.Error("update profile: password hashing failed", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to update profile")
			return
		}
		user.PasswordHash = hash
		updated = append(updated, "password")
	}

	if err := h.store.UpdateUser(r.Context(), user); err != nil {
		h.logger.Error("update profile: save failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "profile updated successfully",
		"updated_fields": updated,
		"user":           user,
	})
}

// Logout is a stateless no-op: tokens are self-contained and simply expire.
// Clients should discard their token.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "logged out, discard the bearer token client-side",
	})
}
