package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"growwly/internal/apperr"
	"growwly/internal/assistant"
	"growwly/internal/logger"
	"growwly/internal/models"
	"growwly/internal/music"
)

// The /functions routes keep the response shapes of the hosted edge
// functions they replace: flat {"success", "error"} bodies.

func writeFunctionError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	var req assistant.Request
	if err := decodeJSON(r, &req); err != nil {
		writeFunctionError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	reply, err := s.assistant.Reply(r.Context(), req)
	if err != nil {
		writeFunctionError(w, http.StatusBadRequest, "Message is required")
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

type requestReceipt struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	EmailError string `json:"emailError,omitempty"`
}

// notify runs the email sub-step after the request row is stored. Email
// failures never fail the request.
func (s *Server) notify(ctx context.Context, label string, send func(context.Context) error) requestReceipt {
	if !s.notifier.Enabled() {
		return requestReceipt{Success: true, Message: label + " received successfully (email notification not configured)"}
	}
	if err := send(ctx); err != nil {
		return requestReceipt{Success: true, Message: label + " received (email notification failed)", EmailError: err.Error()}
	}
	return requestReceipt{Success: true, Message: label + " sent successfully with email notification"}
}

func (s *Server) handleAccessRequest(w http.ResponseWriter, r *http.Request) {
	var in models.AccessRequest
	if err := decodeJSON(r, &in); err != nil {
		writeFunctionError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	stored, err := s.store.CreateAccessRequest(r.Context(), in)
	if err != nil {
		s.functionStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.notify(r.Context(), "Access request", func(ctx context.Context) error {
		return s.notifier.AccessRequest(ctx, stored)
	}))
}

func (s *Server) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var in models.PasswordResetRequest
	if err := decodeJSON(r, &in); err != nil {
		writeFunctionError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	stored, err := s.store.CreatePasswordResetRequest(r.Context(), in)
	if err != nil {
		s.functionStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.notify(r.Context(), "Password reset request", func(ctx context.Context) error {
		return s.notifier.PasswordReset(ctx, stored)
	}))
}

func (s *Server) functionStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, apperr.ErrValidation) {
		writeFunctionError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), apperr.ErrValidation.Error()+": "))
		return
	}
	logger.Error("store request", "error", err)
	writeFunctionError(w, http.StatusInternalServerError, "Internal server error")
}

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	tracks := s.music.List(r.URL.Query().Get("genre"), queryInt(r, "limit", 0))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": tracks, "total": len(tracks)})
}

// handleRandomTracks returns a single track object when count is 1, a list
// otherwise.
func (s *Server) handleRandomTracks(w http.ResponseWriter, r *http.Request) {
	count := queryInt(r, "count", 1)
	tracks := s.music.Random(count, r.URL.Query().Get("genre"))
	var data any = tracks
	if count == 1 {
		data = nil
		if len(tracks) > 0 {
			data = tracks[0]
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data, "total": len(tracks)})
}

func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	track, err := s.music.Get(mux.Vars(r)["id"])
	if err != nil {
		writeFunctionError(w, http.StatusNotFound, "Track not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": track})
}

func (s *Server) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	var in music.Track
	if err := decodeJSON(r, &in); err != nil {
		writeFunctionError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	track, err := s.music.Add(in)
	if err != nil {
		writeFunctionError(w, http.StatusBadRequest, strings.TrimPrefix(err.Error(), apperr.ErrValidation.Error()+": "))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": track, "message": "Track added successfully"})
}
