package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"growwly/internal/realtime"
)

type likeResponse struct {
	Liked bool `json:"liked"`
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request, sess *Session) {
	in, liked, err := s.store.ToggleLike(r.Context(), sess.User.ID, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if liked {
		s.publish(r.Context(), realtime.TableInteractions, realtime.KindInsert, in.ID, in)
	} else {
		s.publish(r.Context(), realtime.TableInteractions, realtime.KindDelete, in.ID, nil)
	}
	writeJSON(w, http.StatusOK, likeResponse{Liked: liked})
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request, sess *Session) {
	var in struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	comment, err := s.store.AddComment(r.Context(), sess.User.ID, mux.Vars(r)["id"], in.Content)
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(r.Context(), realtime.TableInteractions, realtime.KindInsert, comment.ID, comment)
	writeJSON(w, http.StatusCreated, comment)
}

func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	list, err := s.store.ListInteractions(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleListBlocks(w http.ResponseWriter, r *http.Request, sess *Session) {
	blocks, err := s.store.ListBlocks(r.Context(), sess.User.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, blocks)
}

func (s *Server) handleBlock(w http.ResponseWriter, r *http.Request, sess *Session) {
	if err := s.store.BlockUser(r.Context(), sess.User.ID, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request, sess *Session) {
	if err := s.store.UnblockUser(r.Context(), sess.User.ID, mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
