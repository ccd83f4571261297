package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"growwly/internal/apperr"
	"growwly/internal/logger"
	"growwly/internal/realtime"
)

var errRouteNotFound = apperr.NotFound("no such route")

const maxBodyBytes = 1 << 20

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorBody(code, message string) map[string]apiError {
	return map[string]apiError{"error": {Code: code, Message: message}}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encode response", "error", err)
	}
}

// writeError renders err as an error envelope. Internal errors are logged
// and their detail withheld.
func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	kind := apperr.KindOf(err)
	message := err.Error()
	if kind == apperr.KindInternal {
		logger.Error("request failed", "error", err)
		message = "Internal server error"
	}
	writeJSON(w, status, errorBody(string(kind), message))
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is empty")
		}
		return apperr.Validation("invalid JSON payload: %v", err)
	}
	return nil
}

// queryInt parses a positive integer query parameter, def when absent or
// malformed.
func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// publish fans a row change out to websocket subscribers. It outlives the
// request so a client disconnecting early still lets others see the change.
func (s *Server) publish(ctx context.Context, table realtime.Table, kind realtime.Kind, id string, record any) {
	ctx = context.WithoutCancel(ctx)
	if kind == realtime.KindDelete {
		s.hub.Publish(ctx, realtime.Deleted(table, id))
		return
	}
	ev, err := realtime.Changed(table, kind, id, record)
	if err != nil {
		logger.Error("build realtime event", "table", table, "error", err)
		return
	}
	s.hub.Publish(ctx, ev)
}
