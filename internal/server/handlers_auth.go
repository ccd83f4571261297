package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"growwly/internal/models"
	"growwly/internal/storage"
)

const defaultSessionTTL = 24 * time.Hour

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

type authResponse struct {
	User      models.Profile `json:"user"`
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
}

func (s *Server) sessionTTL() time.Duration {
	if ttl := s.cfg.SessionTTL.Duration; ttl > 0 {
		return ttl
	}
	return defaultSessionTTL
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, status int, user models.Profile) {
	sess, err := s.store.CreateSession(r.Context(), user.ID, s.sessionTTL())
	if err != nil {
		writeError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, status, authResponse{User: user, Token: sess.Token, ExpiresAt: sess.ExpiresAt})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	user, err := s.store.CreateUser(r.Context(), in.Email, in.Password, in.FullName)
	if err != nil {
		writeError(w, err)
		return
	}
	s.startSession(w, r, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in credentials
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	user, err := s.store.Authenticate(r.Context(), in.Email, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	s.startSession(w, r, http.StatusOK, user)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := SessionFrom(r.Context()); ok {
		if err := s.store.DeleteSession(r.Context(), sess.Token); err != nil {
			writeError(w, err)
			return
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleAuthStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": true, "user": sess.User})
}

// handleGetProfile hides the email from everyone but the owner, and the
// join date when the owner opted out.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := s.store.GetProfile(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if viewerID(r) != p.ID {
		p.Email = ""
		if !p.ShowJoinDate {
			p.CreatedAt = time.Time{}
		}
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, sess *Session) {
	var in storage.ProfileUpdate
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	p, err := s.store.UpdateProfile(r.Context(), sess.User.ID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
