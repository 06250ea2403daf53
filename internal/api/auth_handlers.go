package api

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/auth"
	"github.com/JakeFAU/tubescout/internal/crawler"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userSummary struct {
	ID       int64        `json:"id"`
	Username string       `json:"username"`
	Role     crawler.Role `json:"role"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	u, err := s.store.UserByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil && !errors.Is(err, crawler.ErrNotFound) {
		s.writeServiceError(w, r, err)
		return
	}
	if err != nil || !auth.VerifyPassword(req.Password, u.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	token, exp, err := s.sessions.Issue(u)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.setSessionCookie(w, token, exp)
	s.logger.Info("user logged in", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"user":    userSummary{ID: u.ID, Username: u.Username, Role: u.Role},
	})
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request) {
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	stats, err := s.store.UserStats(r.Context(), u.ID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"role":     u.Role,
		"stats":    stats,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	u := currentUser(r)
	if !auth.VerifyPassword(req.CurrentPassword, u.PasswordHash) {
		writeError(w, http.StatusBadRequest, "Current password is incorrect")
		return
	}
	hash, err := auth.HashPassword(req.NewPassword)
	if errors.Is(err, auth.ErrPasswordTooShort) {
		writeError(w, http.StatusBadRequest, "New password must be at least 6 characters")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if err := s.store.UpdatePassword(r.Context(), u.ID, hash); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.logActivity(r, crawler.ActivityEntry{
		Action:     crawler.ActionChangedPassword,
		EntityType: "user",
		EntityID:   &u.ID,
		Details:    "Password changed",
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// logActivity records entry for the current user. Failures are logged, not returned.
func (s *Server) logActivity(r *http.Request, entry crawler.ActivityEntry) {
	u := currentUser(r)
	if entry.UserID == nil && u.ID != 0 {
		id := u.ID
		entry.UserID = &id
	}
	if err := s.store.LogActivity(r.Context(), entry); err != nil {
		s.logger.Warn("log activity", zap.String("action", entry.Action), zap.Error(err))
	}
}
