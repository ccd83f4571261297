package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"growwly/internal/dayset"
	"growwly/internal/models"
	"growwly/internal/stats"
	"growwly/internal/storage"
)

type statsResponse struct {
	Today   dayset.DayKey     `json:"today"`
	Summary stats.Summary     `json:"summary"`
	Period  stats.PeriodStats `json:"period"`
}

// ownerStats computes stats over one owner's records. Non-owners only
// ever see public entries.
func (s *Server) ownerStats(r *http.Request, ownerID string, ownerView bool) (statsResponse, error) {
	rng, err := stats.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		return statsResponse{}, err
	}
	q := storage.RecordQuery{OwnerID: ownerID}
	if !ownerView {
		q.Visibility = models.VisibilityPublic
	}
	entries, err := s.store.FetchRecords(r.Context(), q)
	if err != nil {
		return statsResponse{}, err
	}
	records, err := stats.FromEntries(entries)
	if err != nil {
		return statsResponse{}, err
	}

	today := s.calendar.Today(s.now())
	return statsResponse{
		Today:   today,
		Summary: stats.Personal(records, today, ownerView),
		Period:  stats.Aggregate(records, rng, today),
	}, nil
}

func (s *Server) handleMyStats(w http.ResponseWriter, r *http.Request, sess *Session) {
	resp, err := s.ownerStats(r, sess.User.ID, true)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUserStats(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := s.store.GetProfile(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	resp, err := s.ownerStats(r, id, viewerID(r) == id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCommunityStats(w http.ResponseWriter, r *http.Request) {
	entries, err := s.store.FetchRecords(r.Context(), storage.RecordQuery{Visibility: models.VisibilityPublic})
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := stats.FromEntries(entries)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats.Community(records, s.calendar.Today(s.now())))
}
