package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"growwly/internal/realtime"
	"growwly/internal/storage"
)

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.store.ListMessages(r.Context(), queryInt(r, "limit", storage.DefaultChatLimit))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request, sess *Session) {
	var in struct {
		Message  string `json:"message"`
		ClientID string `json:"client_id"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	msg, err := s.store.CreateMessage(r.Context(), sess.User.ID, in.Message, in.ClientID)
	if err != nil {
		writeError(w, err)
		return
	}
	s.publish(r.Context(), realtime.TableChat, realtime.KindInsert, msg.ID, msg)
	writeJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request, sess *Session) {
	id := mux.Vars(r)["id"]
	if err := s.store.DeleteMessage(r.Context(), id, sess.User.ID); err != nil {
		writeError(w, err)
		return
	}
	s.publish(r.Context(), realtime.TableChat, realtime.KindDelete, id, nil)
	w.WriteHeader(http.StatusNoContent)
}
