package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"growwly/internal/models"
)

type achievementsResponse struct {
	Earned    []models.UserAchievement `json:"earned"`
	Available []models.AchievementType `json:"available"`
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request, sess *Session) {
	earned, err := s.store.ListAchievements(r.Context(), sess.User.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	types, err := s.store.ListAchievementTypes(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, achievementsResponse{Earned: earned, Available: types})
}

func (s *Server) handleListCustomAchievements(w http.ResponseWriter, r *http.Request, sess *Session) {
	list, err := s.store.ListCustomAchievements(r.Context(), sess.User.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateCustomAchievement(w http.ResponseWriter, r *http.Request, sess *Session) {
	var in models.CustomAchievement
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	a, err := s.store.CreateCustomAchievement(r.Context(), sess.User.ID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleDeleteCustomAchievement(w http.ResponseWriter, r *http.Request, sess *Session) {
	if err := s.store.DeleteCustomAchievement(r.Context(), mux.Vars(r)["id"], sess.User.ID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
