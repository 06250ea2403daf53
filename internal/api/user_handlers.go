package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JakeFAU/tubescout/internal/auth"
	"github.com/JakeFAU/tubescout/internal/crawler"
)

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if users == nil {
		users = []crawler.User{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

type createUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	role := crawler.RoleUser
	if req.Role != "" {
		role = crawler.Role(req.Role)
	}
	if !role.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid role")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	created, err := s.store.CreateUser(r.Context(), crawler.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	})
	if errors.Is(err, crawler.ErrConflict) {
		writeError(w, http.StatusBadRequest, "Username or email already exists")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logActivity(r, crawler.ActivityEntry{
		Action:     crawler.ActionCreatedUser,
		EntityType: "user",
		EntityID:   &created.ID,
		Details:    "Created user " + created.Username,
	})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user_id": created.ID})
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	if id == currentUser(r).ID {
		writeError(w, http.StatusBadRequest, "Cannot delete yourself")
		return
	}
	err := s.store.DeactivateUser(r.Context(), id)
	if errors.Is(err, crawler.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logActivity(r, crawler.ActivityEntry{
		Action:     crawler.ActionDeactivatedUser,
		EntityType: "user",
		EntityID:   &id,
		Details:    "Deactivated user",
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	id, ok := userIDParam(w, r)
	if !ok {
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Password == "" {
		writeError(w, http.StatusBadRequest, "Password required")
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		writeError(w, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	err = s.store.UpdatePassword(r.Context(), id, hash)
	if errors.Is(err, crawler.ErrNotFound) {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logActivity(r, crawler.ActivityEntry{
		Action:     crawler.ActionResetPassword,
		EntityType: "user",
		EntityID:   &id,
		Details:    "Password reset by admin",
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func userIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return 0, false
	}
	return id, true
}
