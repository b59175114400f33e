package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/qrapi/internal/apperr"
)

type errorBody struct {
	Error   bool   `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError renders err as the JSON error body. Internal failures are
// logged here with their cause; the client only sees the public message.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	e, ok := apperr.As(err)
	if !ok {
		logger.Error("unhandled error", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: true, Code: http.StatusInternalServerError, Message: "internal error"})
		return
	}
	if e.Internal() {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "class", string(e.Class), "error", err)
	}
	writeJSON(w, e.Status, errorBody{Error: true, Code: e.Status, Message: e.Message})
}

// NotFound answers any route that is not registered.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, errorBody{Error: true, Code: http.StatusNotFound, Message: "endpoint not found"})
}
