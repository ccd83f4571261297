package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"growwly/internal/dayset"
	"growwly/internal/logger"
	"growwly/internal/models"
	"growwly/internal/realtime"
	"growwly/internal/stats"
	"growwly/internal/storage"
)

type createdProgress struct {
	Entry           models.ProgressEntry     `json:"entry"`
	NewAchievements []models.UserAchievement `json:"new_achievements"`
}

func (s *Server) handleCreateProgress(w http.ResponseWriter, r *http.Request, sess *Session) {
	var in storage.NewProgress
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	if in.Date == "" {
		in.Date = s.calendar.Today(s.now()).String()
	}
	entry, err := s.store.CreateProgress(r.Context(), sess.User.ID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(r.Context(), realtime.TableProgress, realtime.KindInsert, entry.ID, entry)

	awarded, err := s.awardMilestones(r, sess.User.ID)
	if err != nil {
		// the entry is stored; milestones are retried on the next entry
		logger.Warn("award milestones", "user", sess.User.ID, "error", err)
	}
	if awarded == nil {
		awarded = []models.UserAchievement{}
	}
	writeJSON(w, http.StatusCreated, createdProgress{Entry: entry, NewAchievements: awarded})
}

func (s *Server) awardMilestones(r *http.Request, userID string) ([]models.UserAchievement, error) {
	entries, err := s.store.FetchRecords(r.Context(), storage.RecordQuery{OwnerID: userID})
	if err != nil {
		return nil, err
	}
	records, err := stats.FromEntries(entries)
	if err != nil {
		return nil, err
	}
	summary := stats.Personal(records, s.calendar.Today(s.now()), true)
	return s.store.AwardMilestones(r.Context(), userID, summary)
}

// recordQuery reads owner, visibility, from and limit. Callers only see
// private entries of their own.
func (s *Server) recordQuery(r *http.Request) (storage.RecordQuery, bool, error) {
	q := r.URL.Query()
	rq := storage.RecordQuery{
		OwnerID: q.Get("owner"),
		Limit:   queryInt(r, "limit", 0),
	}
	if v := q.Get("visibility"); v != "" {
		vis, err := models.ParseVisibility(v)
		if err != nil {
			return rq, false, err
		}
		rq.Visibility = vis
	}
	if from := q.Get("from"); from != "" {
		day, err := dayset.Parse(from)
		if err != nil {
			return rq, false, err
		}
		rq.DateFrom = day
	}

	viewer := viewerID(r)
	if rq.OwnerID == "" || rq.OwnerID != viewer {
		if rq.Visibility == models.VisibilityPrivate {
			return rq, false, nil
		}
		rq.Visibility = models.VisibilityPublic
	}
	return rq, true, nil
}

func (s *Server) handleListProgress(w http.ResponseWriter, r *http.Request) {
	rq, visible, err := s.recordQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if !visible {
		writeJSON(w, http.StatusOK, []models.ProgressEntry{})
		return
	}
	entries, err := s.store.FetchRecords(r.Context(), rq)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleDeleteProgress(w http.ResponseWriter, r *http.Request, sess *Session) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteProgress(r.Context(), id, sess.User.ID); err != nil {
		writeError(w, err)
		return
	}
	s.publish(r.Context(), realtime.TableProgress, realtime.KindDelete, id, nil)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	feed, err := s.store.CommunityFeed(r.Context(), viewerID(r), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

func (s *Server) handleHeadings(w http.ResponseWriter, r *http.Request, sess *Session) {
	headings, err := s.store.RecentHeadings(r.Context(), sess.User.ID, queryInt(r, "limit", 10))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, headings)
}
